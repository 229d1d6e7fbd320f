package tradesim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/raykavin/tradesim/internal/config"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/logger/zerolog"
	"github.com/raykavin/tradesim/pkg/notification"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	trades []core.TradeEvent
	texts  []string
}

func (r *recordingNotifier) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordingNotifier) OnTrade(trade core.TradeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
}

func (r *recordingNotifier) OnError(error) {}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

func newApp(t *testing.T, options ...Option) *TradeSim {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	store, err := storage.FromMemory()
	require.NoError(t, err)

	options = append([]Option{
		WithLogger(zerolog.NewNop()),
		WithStorage(store),
		WithCandleSource(exchange.NewSeedGenerator(core.NewSequence(0.5))),
		WithRandSource(func() core.Rand { return core.NewRand(7) }),
	}, options...)

	app, err := New(cfg, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestSimulate(t *testing.T) {
	notifier := &recordingNotifier{}
	app := newApp(t, WithNotifier(notifier))

	summary, err := app.Simulate(context.Background(), simulation.Request{StrategyID: 1, Start: true}, 20)
	require.NoError(t, err)

	assert.Equal(t, 20, summary.Aggregates.TotalTrades)
	assert.Len(t, summary.Trades, 20)
	assert.Equal(t, 20, notifier.count())
	assert.Empty(t, app.Manager().List(), "headless sessions are disposed")

	stored, err := app.Storage().Trades()
	require.NoError(t, err)
	assert.Len(t, stored, 20)
}

func TestSimulate_Cancelled(t *testing.T) {
	app := newApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := app.Simulate(ctx, simulation.Request{}, 5)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, app.Manager().List())
}

func TestLaunch_RegistersSession(t *testing.T) {
	app := newApp(t)

	session, err := app.Launch(context.Background(), simulation.Request{StrategyID: 2})
	require.NoError(t, err)

	got, err := app.Manager().Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, 2, session.Snapshot().Strategy.ID)
}

func TestServer(t *testing.T) {
	app := newApp(t)

	server, err := app.Server()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/strategies", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRandSource(t *testing.T) {
	a := randSource(42)
	b := randSource(42)

	first, second := a(), a()
	assert.Equal(t, b().Float64(), first.Float64())
	assert.Equal(t, b().Float64(), second.Float64())

	c := randSource(42)
	assert.NotEqual(t, c().Float64(), c().Float64())
}

func TestInitializeStorage(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	t.Run("buntdb", func(t *testing.T) {
		cfg.Storage.Driver = config.DriverBuntDB
		cfg.Storage.Path = filepath.Join(t.TempDir(), "trades.db")

		app := &TradeSim{config: cfg}
		require.NoError(t, initializeStorage(app))
		t.Cleanup(func() { _ = app.storage.Close() })
		assert.IsType(t, &storage.BuntStorage{}, app.storage)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.Path = filepath.Join(t.TempDir(), "trades.sqlite")

		app := &TradeSim{config: cfg}
		require.NoError(t, initializeStorage(app))
		t.Cleanup(func() { _ = app.storage.Close() })
		assert.IsType(t, &storage.SQLStorage{}, app.storage)
	})
}

func TestDispatcher(t *testing.T) {
	d := &dispatcher{}
	d.OnTrade(core.TradeEvent{})

	first, second := &recordingNotifier{}, &recordingNotifier{}
	d.add(first)
	d.add(second)

	d.OnTrade(core.TradeEvent{ID: "a"})
	d.Notify("hello")

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, []string{"hello"}, second.texts)
}

func TestInitializeNotifications(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Mail = config.MailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "bot@example.com",
		To:      "trader@example.com",
	}

	app := &TradeSim{config: cfg, notifiers: &dispatcher{}}
	require.NoError(t, initializeNotifications(app))

	notifiers := app.notifiers.current()
	require.Len(t, notifiers, 2)
	assert.IsType(t, &notification.LogNotifier{}, notifiers[0])
	assert.IsType(t, &notification.Mail{}, notifiers[1])
}
