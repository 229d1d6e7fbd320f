// Package jupiter reads Solana token prices from the Jupiter price API.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/metric"
)

const (
	DefaultBaseURL = "https://price.jup.ag"
	ExchangeName   = "Jupiter"
	sourceName     = "jupiter"

	// SOLMint is the wrapped SOL mint address
	SOLMint = "So11111111111111111111111111111111111111112"
)

// Client queries /v4/price
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

// New creates a Jupiter client
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

type response struct {
	Data map[string]struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
	} `json:"data"`
}

// Name implements core.PriceSource
func (c *Client) Name() string { return ExchangeName }

// Prices implements core.PriceSource. Jupiter has no 24h change, so it is
// always "0.00".
func (c *Client) Prices(ctx context.Context, ids []string) ([]core.Price, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v4/price?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(sourceName, 0)
		return nil, fmt.Errorf("jupiter request failed: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(sourceName, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: jupiter %d: %s", core.ErrUpstreamStatus, resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("%w: jupiter response has no data", core.ErrInvalidPayload)
	}

	tokens := make([]string, 0, len(payload.Data))
	for token := range payload.Data {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	now := core.NowMillis()
	prices := make([]core.Price, 0, len(tokens))
	for _, token := range tokens {
		prices = append(prices, core.Price{
			Symbol:    token,
			Price:     payload.Data[token].Price,
			Change24h: "0.00",
			Timestamp: now,
			Exchange:  ExchangeName,
		})
	}
	return prices, nil
}
