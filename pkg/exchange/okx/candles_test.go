package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raykavin/tradesim/pkg/logger/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(zerolog.NewNop(), WithBaseURL(server.URL))
}

func TestCandlesByLimit_ReversesToOldestFirst(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/candles", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			["1700007200000","102","104","101","103","7","0","0","1"],
			["1700003600000","101","103","100","102","6","0","0","1"],
			["1700000000000","100","102","99","101","5","0","0","1"]
		]}`))
	})

	candles, err := client.CandlesByLimit(context.Background(), "btc", "1h", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	require.Contains(t, gotQuery, "instId=BTC-USDT")
	require.Contains(t, gotQuery, "bar=1H")
	require.Contains(t, gotQuery, "limit=3")

	require.Equal(t, int64(1700000000000), candles[0].Time.UnixMilli())
	require.Equal(t, 100.0, candles[0].Open)
	require.Equal(t, 102.0, candles[0].High)
	require.Equal(t, 99.0, candles[0].Low)
	require.Equal(t, 101.0, candles[0].Close)
	require.Equal(t, 5.0, candles[0].Volume)
	require.Equal(t, 103.0, candles[2].Close)
}

func TestCandlesByLimit_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"msg":"boom"}`},
		{"not found", http.StatusNotFound, ``},
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"missing data", http.StatusOK, `{"code":"0"}`},
		{"data not array", http.StatusOK, `{"code":"0","data":{"a":1}}`},
		{"null data", http.StatusOK, `{"code":"0","data":null}`},
		{"bad json", http.StatusOK, `{"data":[`},
		{"short row", http.StatusOK, `{"data":[["1700000000000","1"]]}`},
		{"bad number", http.StatusOK, `{"data":[["1700000000000","x","1","1","1","1"]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			candles, err := client.CandlesByLimit(context.Background(), "BTC", "15m", 100)
			require.NoError(t, err)
			require.NotNil(t, candles)
			require.Empty(t, candles)
		})
	}
}

func TestCandlesByLimit_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := New(zerolog.NewNop(), WithBaseURL(server.URL))
	candles, err := client.CandlesByLimit(context.Background(), "BTC", "15m", 10)
	require.NoError(t, err)
	require.Empty(t, candles)
}

func TestFetchCandles_ClampsLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	candles, err := client.FetchCandles(context.Background(), "ETH", "4h", 500)
	require.NoError(t, err)
	require.Empty(t, candles)
}

func TestHistoryCandles_PagesBackwards(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/history-candles", r.URL.Path)
		assert.Equal(t, "1700007200000", r.URL.Query().Get("after"))
		assert.Equal(t, "4H", r.URL.Query().Get("bar"))
		_, _ = w.Write([]byte(`{"code":"0","data":[
			["1700003600000","101","103","100","102","6"],
			["1700000000000","100","102","99","101","5"]
		]}`))
	})

	candles, err := client.HistoryCandles(context.Background(), "ETH", "4h", time.UnixMilli(1700007200000), 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "ETH-USDT", candles[0].Pair)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
}
