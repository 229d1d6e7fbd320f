package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
)

const ExchangeName = "OKX"

type ticker struct {
	InstID  string `json:"instId"`
	Last    string `json:"last"`
	Open24h string `json:"open24h"`
	High24h string `json:"high24h"`
	Low24h  string `json:"low24h"`
	Vol24h  string `json:"vol24h"`
	TS      string `json:"ts"`
}

// Tickers returns spot quotes for the given instrument ids. Bare symbols are
// completed with the USDT quote. Unlike candles, failures are returned.
func (c *Client) Tickers(ctx context.Context, symbols []string) ([]core.Price, error) {
	query := url.Values{}
	query.Set("instType", "SPOT")
	query.Set("instId", strings.Join(exchange.Pairs(symbols), ","))

	payload, err := c.get(ctx, "/api/v5/market/tickers", query)
	if err != nil {
		return nil, err
	}

	var tickers []ticker
	if err := json.Unmarshal(payload.Data, &tickers); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}

	prices := make([]core.Price, 0, len(tickers))
	for _, t := range tickers {
		prices = append(prices, t.price())
	}
	return prices, nil
}

func (t ticker) price() core.Price {
	last := parseOrZero(t.Last)
	open := parseOrZero(t.Open24h)
	ts, _ := strconv.ParseInt(t.TS, 10, 64)

	return core.Price{
		Symbol:    t.InstID,
		Price:     last,
		Change24h: ChangePercent(last, open),
		Volume24h: parseOrZero(t.Vol24h),
		High24h:   parseOrZero(t.High24h),
		Low24h:    parseOrZero(t.Low24h),
		Timestamp: ts,
		Exchange:  ExchangeName,
	}
}

// ChangePercent formats (last-open)/open*100 with two decimals
func ChangePercent(last, open float64) string {
	if open == 0 {
		return "0.00"
	}
	return strconv.FormatFloat((last-open)/open*100, 'f', 2, 64)
}

func parseOrZero(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}

// PriceSource adapts the ticker endpoint to core.PriceSource
type PriceSource struct {
	client *Client
}

// NewPriceSource wraps client
func NewPriceSource(client *Client) PriceSource {
	return PriceSource{client: client}
}

// Name implements core.PriceSource
func (p PriceSource) Name() string { return ExchangeName }

// Prices implements core.PriceSource
func (p PriceSource) Prices(ctx context.Context, ids []string) ([]core.Price, error) {
	return p.client.Tickers(ctx, ids)
}
