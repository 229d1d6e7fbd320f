package plot

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/logger/zerolog"
	"github.com/raykavin/tradesim/pkg/market"
	"github.com/raykavin/tradesim/pkg/metric"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/storage"
	"github.com/raykavin/tradesim/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *Server
	manager *simulation.Manager
	storage *storage.BuntStorage
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	log := zerolog.NewNop()
	metrics := metric.NewCollector()
	manager := simulation.NewManager(log, metrics)

	store, err := storage.FromMemory()
	require.NoError(t, err)

	catalog, err := strategy.Load()
	require.NoError(t, err)

	seed := exchange.NewSeedGenerator(core.NewSequence(0.5))
	launcher := simulation.NewLauncher(log, manager, catalog,
		simulation.WithCandles(seed, "1h", 10),
		simulation.WithRandSource(func() core.Rand { return core.NewSequence(0.5, 0, 1, 0) }),
		simulation.WithSelectionStore(store),
		simulation.WithSessionOptions(
			simulation.WithTickInterval(time.Hour),
			simulation.WithStorage(store),
			simulation.WithMetrics(metrics),
		),
	)

	server, err := NewServer(log, manager,
		WithDebug(),
		WithStorage(store),
		WithMetrics(metrics),
		WithMarketHandler(market.NewHandler(log, nil, nil, nil, nil)),
		WithLauncher(launcher),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		manager.Close()
		_ = store.Close()
	})

	return fixture{server: server, manager: manager, storage: store}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &value))
	return value
}

func (f fixture) createSession(t *testing.T, body map[string]any) simulation.Snapshot {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[simulation.Snapshot](t, w)
}

func TestServer_Pages(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Conservative Grid")
	assert.Contains(t, w.Body.String(), "/assets/dashboard.js")

	w = f.do(t, http.MethodGet, "/assets/dashboard.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "/api/sessions")

	w = f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["sessions"])
}

func TestServer_Strategies(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]core.Strategy](t, w), 10)

	w = f.do(t, http.MethodPost, "/api/recommendations", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	recommendation := decode[recommendationResponse](t, w)
	assert.Equal(t, []int{1, 2, 5}, recommendation.IDs)
	require.Len(t, recommendation.Strategies, 3)
	assert.Equal(t, 5, recommendation.Strategies[2].ID)

	w = f.do(t, http.MethodPost, "/api/recommendations", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SelectedStrategy(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/strategy/selected", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/strategy/selected", map[string]int{"id": 99})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/strategy/selected", map[string]int{"id": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/strategy/selected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[core.Strategy](t, w).ID)

	// a session without strategy id picks up the stored selection
	snapshot := f.createSession(t, map[string]any{})
	assert.Equal(t, 3, snapshot.Strategy.ID)
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t)

	snapshot := f.createSession(t, map[string]any{"strategyId": 1, "budget": "abc", "leverage": "2"})
	assert.Equal(t, simulation.StatusIdle, snapshot.Status)
	assert.Equal(t, 10000.0, snapshot.Params.Budget)
	assert.Equal(t, 2.0, snapshot.Params.Leverage)
	assert.Equal(t, 85.0, snapshot.Params.WinRate)
	assert.Len(t, snapshot.Candles, 10)
	assert.Equal(t, snapshot.Candles[len(snapshot.Candles)-1].Close, snapshot.Price)

	base := "/api/sessions/" + snapshot.ID

	w := f.do(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, simulation.StatusRunning, decode[simulation.Snapshot](t, w).Status)

	w = f.do(t, http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, simulation.StatusIdle, decode[simulation.Snapshot](t, w).Status)

	session, err := f.manager.Get(snapshot.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := session.Step(time.Now())
		require.NoError(t, err)
	}

	w = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[simulation.Snapshot](t, w).Aggregates.TotalTrades)

	w = f.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[simulation.Report](t, w)
	assert.Equal(t, 3, report.Trades)
	assert.Equal(t, 3, report.Wins)

	w = f.do(t, http.MethodGet, base+"/trades?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]core.TradeEvent](t, w), 2)

	stored, err := f.storage.Trades(core.WithSession(snapshot.ID))
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	w = f.do(t, http.MethodGet, base+"/chart.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	w = f.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[simulation.Snapshot](t, w).Aggregates.TotalTrades)

	w = f.do(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]simulation.Snapshot](t, w), 1)

	w = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	f.server.Lock()
	_, ok := f.server.animators[snapshot.ID]
	f.server.Unlock()
	assert.False(t, ok, "animator is stopped with the session")

	w = f.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SessionErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/sessions", map[string]any{"strategyId": 42})
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = f.do(t, http.MethodPost, "/api/sessions/unknown/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/sessions/unknown/explode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartOnCreate(t *testing.T) {
	f := newFixture(t)

	snapshot := f.createSession(t, map[string]any{"strategyId": 2, "start": true})
	assert.Equal(t, simulation.StatusRunning, snapshot.Status)
}

func TestServer_MetricsAndFunctions(t *testing.T) {
	f := newFixture(t)
	f.createSession(t, map[string]any{"strategyId": 1})

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradesim_sessions_active 1")
	assert.Contains(t, w.Body.String(), `tradesim_http_request_duration_seconds_count{route="/api/sessions"}`)

	w = f.do(t, http.MethodOptions, "/functions/okx-market-data", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_WebSocket(t *testing.T) {
	f := newFixture(t)
	snapshot := f.createSession(t, map[string]any{"strategyId": 1})

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"unknown", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+snapshot.ID, nil)
	require.NoError(t, err)
	defer conn.Close()

	var message struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, MessageInitialData, message.Type)

	var initial simulation.Snapshot
	require.NoError(t, json.Unmarshal(message.Payload, &initial))
	assert.Equal(t, snapshot.ID, initial.ID)

	session, err := f.manager.Get(snapshot.ID)
	require.NoError(t, err)
	event, err := session.Step(time.Now())
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, MessageTick, message.Type)

	var tick simulation.TickEvent
	require.NoError(t, json.Unmarshal(message.Payload, &tick))
	assert.Equal(t, event.Trade.ID, tick.Trade.ID)
	assert.Equal(t, 1, tick.Aggregates.TotalTrades)

	require.NoError(t, f.manager.Delete(snapshot.ID))
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, MessageClosed, message.Type)
}
