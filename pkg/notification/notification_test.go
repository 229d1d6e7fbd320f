package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/tucnak/telebot.v2"
)

var (
	winTrade = core.TradeEvent{
		ID: "t1", SessionID: "s1", Timestamp: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		PnL: 625, Percent: 2.5, Size: 2500, Type: core.TradeTypeWin,
	}
	lossTrade = core.TradeEvent{
		ID: "t2", SessionID: "s1", Timestamp: time.Date(2024, 1, 1, 10, 31, 0, 0, time.UTC),
		PnL: -150, Percent: -0.6, Size: 2500, Type: core.TradeTypeLoss,
	}
)

type recorder struct {
	texts  []string
	trades []core.TradeEvent
	errs   []error
}

func (r *recorder) Notify(text string)            { r.texts = append(r.texts, text) }
func (r *recorder) OnTrade(trade core.TradeEvent) { r.trades = append(r.trades, trade) }
func (r *recorder) OnError(err error)             { r.errs = append(r.errs, err) }

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}

	m.Notify("hello")
	m.OnTrade(winTrade)
	m.OnError(errors.New("boom"))

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []string{"hello"}, r.texts)
		assert.Equal(t, []core.TradeEvent{winTrade}, r.trades)
		require.Len(t, r.errs, 1)
		assert.EqualError(t, r.errs[0], "boom")
	}
}

func TestFormatTrade(t *testing.T) {
	assert.Equal(t, "WIN +2.50% | PnL +625.00 | size 2500.00 | 10:30:00", FormatTrade(winTrade))
	assert.Equal(t, "LOSS -0.60% | PnL -150.00 | size 2500.00 | 10:31:00", FormatTrade(lossTrade))
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	n := NewLogNotifier(logger)

	n.Notify("deployed")
	n.OnTrade(winTrade)
	n.OnError(errors.New("upstream down"))

	entries := hook.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, log.InfoLevel, entries[0].Level)
	assert.Equal(t, "deployed", entries[0].Message)

	assert.Equal(t, log.DebugLevel, entries[1].Level)
	assert.Equal(t, "s1", entries[1].Data["session"])
	assert.Equal(t, 625.0, entries[1].Data["pnl"])

	assert.Equal(t, log.ErrorLevel, entries[2].Level)
	assert.EqualError(t, entries[2].Data[log.ErrorKey].(error), "upstream down")
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.messages = append(f.messages, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeWriter{}
	k := &KafkaPublisher{writer: writer}

	k.OnTrade(winTrade)
	k.Notify("hello")
	k.OnError(errors.New("boom"))
	require.NoError(t, k.Close())

	require.Len(t, writer.messages, 3)
	assert.True(t, writer.closed)

	assert.Equal(t, "s1", string(writer.messages[0].Key))
	var decoded core.TradeEvent
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, winTrade.ID, decoded.ID)
	assert.Equal(t, winTrade.PnL, decoded.PnL)
	assert.Equal(t, winTrade.Timestamp.UnixMilli(), decoded.Timestamp.UnixMilli())

	assert.Equal(t, "notice", string(writer.messages[1].Key))
	assert.JSONEq(t, `{"message":"hello"}`, string(writer.messages[1].Value))
	assert.JSONEq(t, `{"error":"boom"}`, string(writer.messages[2].Value))
}

func TestKafkaPublisherWriteFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("no brokers")}
	k := &KafkaPublisher{writer: writer}

	assert.NotPanics(t, func() { k.OnTrade(lossTrade) })
	assert.Len(t, writer.messages, 1)
}

func TestMail(t *testing.T) {
	var sent []string
	m := NewMail(MailParams{
		SMTPServerPort:    587,
		SMTPServerAddress: "smtp.example.com",
		To:                "to@example.com",
		From:              "from@example.com",
		Password:          "secret",
	})
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.example.com:587", addr)
		assert.Equal(t, "from@example.com", from)
		assert.Equal(t, []string{"to@example.com"}, to)
		sent = append(sent, string(msg))
		return nil
	}

	m.OnTrade(winTrade)
	assert.Empty(t, sent, "winning trades are not mailed")

	m.OnTrade(lossTrade)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Subject: LOSING TRADE - s1")
	assert.Contains(t, sent[0], FormatTrade(lossTrade))

	m.OnError(errors.New("boom"))
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], "Error boom")
}

func TestAuthorized(t *testing.T) {
	settings := &core.Settings{Telegram: core.TelegramSettings{Users: []int{42}}}

	tests := []struct {
		name   string
		update *tb.Update
		want   bool
	}{
		{"no message", &tb.Update{}, false},
		{"no sender", &tb.Update{Message: &tb.Message{}}, false},
		{"unknown user", &tb.Update{Message: &tb.Message{Sender: &tb.User{ID: 7}}}, false},
		{"allowed user", &tb.Update{Message: &tb.Message{Sender: &tb.User{ID: 42}}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, authorized(settings, tc.update))
		})
	}
}

func TestTelegramMessages(t *testing.T) {
	snapshot := simulation.Snapshot{
		ID:       "s1",
		Status:   simulation.StatusRunning,
		Strategy: core.Strategy{Name: "Momentum Scalper"},
		Price:    29500.5,
		Aggregates: core.Aggregates{
			TotalPnL: -150, TotalTrades: 2, WinRate: 50, EstimatedReturn: -1.5,
		},
	}

	msg := statusMessage(snapshot)
	assert.Contains(t, msg, "Status: `running`")
	assert.Contains(t, msg, "Strategy: `Momentum Scalper`")
	assert.Contains(t, msg, "Price: `29500.50`")
	assert.Contains(t, msg, "Trades: `2`")
	assert.Contains(t, msg, "PnL: `-150.00`")
	assert.Contains(t, msg, "Win rate: `50.0%`")

	assert.Contains(t, tradeMessage(winTrade), "WINNING TRADE")
	assert.Contains(t, tradeMessage(lossTrade), "LOSING TRADE")
	assert.Equal(t, "+0.00", formatSigned(0))
}
