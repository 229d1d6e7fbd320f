package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/samber/lo"
)

const MaxCandleLimit = 100

// CandlesByLimit implements core.CandleSource. Every failure is logged and
// turned into an empty result so callers can fall back to synthetic data.
func (c *Client) CandlesByLimit(ctx context.Context, symbol, timeframe string, limit int) ([]core.Candle, error) {
	candles, err := c.FetchCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		c.log.WithError(err).
			WithFields(logger.Fields{"symbol": symbol, "timeframe": timeframe}).
			Error("okx: failed to fetch candle data")
		return []core.Candle{}, nil
	}
	return candles, nil
}

// FetchCandles returns up to limit candles, oldest first. OKX answers newest
// first, so the rows are reversed.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]core.Candle, error) {
	return c.fetchCandles(ctx, "/api/v5/market/candles", symbol, timeframe, limit, time.Time{})
}

// HistoryCandles returns up to limit candles opened strictly before the given
// time, oldest first. It pages through the archive endpoint, which reaches
// further back than the recent candles endpoint.
func (c *Client) HistoryCandles(ctx context.Context, symbol, timeframe string, before time.Time, limit int) ([]core.Candle, error) {
	return c.fetchCandles(ctx, "/api/v5/market/history-candles", symbol, timeframe, limit, before)
}

func (c *Client) fetchCandles(ctx context.Context, path, symbol, timeframe string, limit int, before time.Time) ([]core.Candle, error) {
	pair := exchange.Pair(symbol)
	query := url.Values{}
	query.Set("instId", pair)
	query.Set("bar", TimeframeExact(timeframe))
	query.Set("limit", strconv.Itoa(lo.Clamp(limit, 1, MaxCandleLimit)))
	if !before.IsZero() {
		query.Set("after", strconv.FormatInt(before.UnixMilli(), 10))
	}

	payload, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	if err := json.Unmarshal(payload.Data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}

	candles := make([]core.Candle, len(rows))
	for i, row := range rows {
		candle, err := parseCandle(pair, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		candles[len(rows)-1-i] = candle
	}

	return candles, nil
}

// parseCandle reads [ts, open, high, low, close, volume, ...]
func parseCandle(pair string, row []any) (core.Candle, error) {
	if len(row) < 6 {
		return core.Candle{}, fmt.Errorf("%w: candle row has %d fields", core.ErrInvalidPayload, len(row))
	}

	values := make([]float64, 6)
	for i := range values {
		v, err := toFloat(row[i])
		if err != nil {
			return core.Candle{}, err
		}
		values[i] = v
	}

	at := time.UnixMilli(int64(values[0]))
	return core.Candle{
		Pair:      pair,
		Time:      at,
		UpdatedAt: at,
		Open:      values[1],
		High:      values[2],
		Low:       values[3],
		Close:     values[4],
		Volume:    values[5],
		Complete:  true,
	}, nil
}

// toFloat accepts both the quoted numbers OKX sends and bare JSON numbers
func toFloat(v any) (float64, error) {
	switch value := v.(type) {
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
		}
		return f, nil
	case float64:
		return value, nil
	}
	return 0, fmt.Errorf("%w: unexpected value %v", core.ErrInvalidPayload, v)
}
