// Package coingecko reads spot prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/metric"
)

const (
	DefaultBaseURL = "https://api.coingecko.com"
	ExchangeName   = "CoinGecko"
	sourceName     = "coingecko"
)

// Client queries /api/v3/simple/price
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metric.Collector
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithMetrics records every upstream call on the collector
func WithMetrics(metrics *metric.Collector) Option {
	return func(c *Client) { c.metrics = metrics }
}

// New creates a CoinGecko client
func New(options ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type quote struct {
	USD           float64  `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change"`
	USD24hVol     float64  `json:"usd_24h_vol"`
	LastUpdatedAt int64    `json:"last_updated_at"`
}

// Name implements core.PriceSource
func (c *Client) Name() string { return ExchangeName }

// Prices implements core.PriceSource. Ids are CoinGecko coin ids such as
// "bitcoin"; the upper-cased id becomes the symbol.
func (c *Client) Prices(ctx context.Context, ids []string) ([]core.Price, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")
	query.Set("include_24hr_vol", "true")
	query.Set("include_last_updated_at", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/simple/price?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(sourceName, 0)
		return nil, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(sourceName, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: coingecko %d: %s", core.ErrUpstreamStatus, resp.StatusCode, body)
	}

	var quotes map[string]quote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}

	coins := make([]string, 0, len(quotes))
	for coin := range quotes {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	prices := make([]core.Price, 0, len(quotes))
	for _, coin := range coins {
		q := quotes[coin]
		change := "0.00"
		if q.USD24hChange != nil && *q.USD24hChange != 0 {
			change = strconv.FormatFloat(*q.USD24hChange, 'f', 2, 64)
		}
		prices = append(prices, core.Price{
			Symbol:    strings.ToUpper(coin),
			Price:     q.USD,
			Change24h: change,
			Volume24h: q.USD24hVol,
			Timestamp: q.LastUpdatedAt * 1000,
			Exchange:  ExchangeName,
		})
	}
	return prices, nil
}
