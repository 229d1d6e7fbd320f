// Package okx is a client for the public OKX v5 market endpoints.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/metric"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.okx.com"
	sourceName     = "okx"

	defaultRateLimit = 10
	defaultBurst     = 20
	errorBodyLimit   = 512
)

// Client talks to the OKX public REST API
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metric.Collector
	log     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRateLimit caps outgoing requests per second
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics records every upstream call on the collector
func WithMetrics(metrics *metric.Collector) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates an OKX client
func New(log logger.Logger, options ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(defaultRateLimit, defaultBurst),
		log:     log,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// envelope is the common OKX response shape. Data stays raw so that a
// missing or non-array field can be told apart from an empty one.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// get performs a rate limited GET and decodes the envelope
func (c *Client) get(ctx context.Context, path string, query url.Values) (envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return envelope{}, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(sourceName, 0)
		return envelope{}, fmt.Errorf("okx request failed: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(sourceName, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return envelope{}, fmt.Errorf("%w: okx %d: %s", core.ErrUpstreamStatus, resp.StatusCode, body)
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}
	if !isArray(payload.Data) {
		return envelope{}, fmt.Errorf("%w: okx data is not an array", core.ErrInvalidPayload)
	}

	return payload, nil
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
