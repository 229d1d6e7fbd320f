package simulation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/stretchr/testify/require"
)

// Each step draws volatility, win, outcome percentage and candle volume.
var (
	forcedWin  = []float64{0.5, 0, 1, 0}
	forcedLoss = []float64{0.5, 0.99, 1, 0}
)

func scenarioParams() Params {
	return Params{Budget: 10000, Leverage: 1, PositionSize: 25, StopLoss: 2, TakeProfit: 5, WinRate: 70}
}

func seedCandles(now time.Time) []core.Candle {
	return []core.Candle{{Pair: "BTCUSDT", Time: now, Open: 30000, High: 30100, Low: 29900, Close: 30000, Volume: 80}}
}

type memoryStorage struct {
	mu     sync.Mutex
	trades []core.TradeEvent
	err    error
}

func (m *memoryStorage) SaveSelectedStrategy(core.Strategy) error { return nil }
func (m *memoryStorage) SelectedStrategy() (core.Strategy, error) {
	return core.Strategy{}, core.ErrNotFound
}
func (m *memoryStorage) SaveTrade(trade core.TradeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return m.err
}
func (m *memoryStorage) Trades(...core.TradeFilter) ([]core.TradeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.TradeEvent(nil), m.trades...), nil
}
func (m *memoryStorage) Close() error { return nil }

func TestSession_ForcedWins(t *testing.T) {
	now := time.Now()
	session := NewSession(scenarioParams(), seedCandles(now), core.NewSequence(forcedWin...))

	for i := 0; i < 5; i++ {
		event, err := session.Step(now.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)
		require.Equal(t, core.TradeTypeWin, event.Trade.Type)
		require.Equal(t, 5.0, event.Trade.Percent)
		require.Equal(t, 2500.0, event.Trade.Size)
	}

	agg := session.Snapshot().Aggregates
	require.Equal(t, 5, agg.TotalTrades)
	require.InDelta(t, 625, agg.TotalPnL, 1e-9)
	require.InDelta(t, 100, agg.WinRate, 1e-9)
	require.Equal(t, 0.0, agg.MaxDrawdown)
	require.Equal(t, 6.25, agg.EstimatedReturn)
}

func TestSession_ForcedLosses(t *testing.T) {
	now := time.Now()
	session := NewSession(scenarioParams(), seedCandles(now), core.NewSequence(forcedLoss...))

	for i := 0; i < 3; i++ {
		_, err := session.Step(now)
		require.NoError(t, err)
	}

	snapshot := session.Snapshot()
	require.Len(t, snapshot.Trades, 3)
	require.InDelta(t, -150, snapshot.Aggregates.TotalPnL, 1e-9)
	require.Equal(t, -2.0, snapshot.Aggregates.MaxDrawdown)
	require.Equal(t, 0.0, snapshot.Aggregates.WinRate)
	require.Equal(t, -1.5, snapshot.Aggregates.EstimatedReturn)
}

func TestSession_PriceWalk(t *testing.T) {
	now := time.Now()
	// volatility draw 1 gives +0.1%
	session := NewSession(scenarioParams(), seedCandles(now), core.NewSequence(1, 0, 0.5, 0))

	event, err := session.Step(now.Add(time.Second))
	require.NoError(t, err)
	require.InDelta(t, 30030, event.Price, 1e-9)
	require.False(t, event.Rolled)
	require.InDelta(t, 30030, event.Candle.Close, 1e-9)
	require.InDelta(t, 30100, event.Candle.High, 1e-9)

	event, err = session.Step(now.Add(FastRollover + time.Millisecond))
	require.NoError(t, err)
	require.True(t, event.Rolled)
	require.Len(t, session.Snapshot().Candles, 2)
}

func TestSession_IncrementalWinRate(t *testing.T) {
	session := NewSession(scenarioParams(), nil, core.NewRand(42))

	wins := 0
	for i := 1; i <= 500; i++ {
		event, err := session.Step(time.Now())
		require.NoError(t, err)
		if event.Trade.IsWin() {
			wins++
		}
		require.InDelta(t, 100*float64(wins)/float64(i), event.Aggregates.WinRate, 1e-9)
		require.GreaterOrEqual(t, event.Aggregates.WinRate, 0.0)
		require.LessOrEqual(t, event.Aggregates.WinRate, 100.0)
	}
}

func TestSession_DrawdownAndReturn(t *testing.T) {
	session := NewSession(scenarioParams(), nil, core.NewRand(3))

	previous := 0.0
	total := 0.0
	for i := 0; i < 200; i++ {
		event, err := session.Step(time.Now())
		require.NoError(t, err)
		total += event.Trade.PnL

		require.LessOrEqual(t, event.Aggregates.MaxDrawdown, previous)
		require.LessOrEqual(t, event.Aggregates.MaxDrawdown, 0.0)
		require.Equal(t, core.Round(event.Aggregates.TotalPnL/10000*100, 2), event.Aggregates.EstimatedReturn)
		previous = event.Aggregates.MaxDrawdown
	}
	require.InDelta(t, total, session.Snapshot().Aggregates.TotalPnL, 1e-6)
}

func TestSession_TradeLogCap(t *testing.T) {
	session := NewSession(scenarioParams(), nil, core.NewRand(1), WithTradeLogCap(10))

	var last core.TradeEvent
	for i := 0; i < 25; i++ {
		event, err := session.Step(time.Now())
		require.NoError(t, err)
		last = event.Trade
	}

	snapshot := session.Snapshot()
	require.Len(t, snapshot.Trades, 10)
	require.Equal(t, last.ID, snapshot.Trades[9].ID)
	require.Equal(t, 25, snapshot.Aggregates.TotalTrades)
}

func TestSession_Reset(t *testing.T) {
	now := time.Now()
	session := NewSession(scenarioParams(), seedCandles(now), core.NewSequence(forcedWin...))
	_, err := session.Step(now)
	require.NoError(t, err)

	session.Reset()
	first := session.Snapshot()
	session.Reset()
	second := session.Snapshot()

	require.Equal(t, core.Aggregates{}, first.Aggregates)
	require.Equal(t, first.Aggregates, second.Aggregates)
	require.Empty(t, second.Trades)
	require.Equal(t, StatusIdle, second.Status)
	require.GreaterOrEqual(t, second.Price, 29000.0)
	require.Less(t, second.Price, 30001.0)
	require.Len(t, second.Candles, 1)
}

func TestSession_Lifecycle(t *testing.T) {
	session := NewSession(scenarioParams(), nil, core.NewRand(9), WithTickInterval(5*time.Millisecond))
	events, cancel := session.Feed().Subscribe(128)
	defer cancel()

	session.Start()
	session.Start()
	require.Equal(t, StatusRunning, session.Status())

	select {
	case event := <-events:
		require.Equal(t, session.ID(), event.SessionID)
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}

	session.Pause()
	require.Equal(t, StatusIdle, session.Status())
	trades := session.Snapshot().Aggregates.TotalTrades

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, trades, session.Snapshot().Aggregates.TotalTrades)

	_, ticked := session.Tick(time.Now())
	require.False(t, ticked)

	session.Dispose()
	session.Dispose()
	session.Start()
	require.Equal(t, StatusIdle, session.Status())

	_, err := session.Step(time.Now())
	require.ErrorIs(t, err, core.ErrSessionDisposed)
}

func TestSession_Hooks(t *testing.T) {
	storage := &memoryStorage{err: errors.New("disk full")}
	session := NewSession(scenarioParams(), nil, core.NewRand(5), WithStorage(storage), WithID("abc"))

	for i := 0; i < 3; i++ {
		_, err := session.Step(time.Now())
		require.NoError(t, err)
	}

	trades, err := storage.Trades()
	require.NoError(t, err)
	require.Len(t, trades, 3)
	require.Equal(t, "abc", trades[0].SessionID)
	require.Equal(t, 3, session.Snapshot().Aggregates.TotalTrades)
}
