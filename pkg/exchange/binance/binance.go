// Package binance reads spot prices from Binance for the price aggregator.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/metric"
)

const (
	ExchangeName = "Binance"
	sourceName   = "binance"
)

// PriceSource lists spot prices through the public ticker endpoint
type PriceSource struct {
	client  *binance.Client
	metrics *metric.Collector
}

// Option configures a PriceSource
type Option func(*PriceSource)

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(baseURL string) Option {
	return func(p *PriceSource) {
		p.client.BaseURL = baseURL
	}
}

// WithMetrics records every upstream call on the collector
func WithMetrics(metrics *metric.Collector) Option {
	return func(p *PriceSource) {
		p.metrics = metrics
	}
}

// NewPriceSource creates an unauthenticated Binance source
func NewPriceSource(options ...Option) *PriceSource {
	p := &PriceSource{client: binance.NewClient("", "")}
	for _, option := range options {
		option(p)
	}
	return p
}

// Name implements core.PriceSource
func (p *PriceSource) Name() string { return ExchangeName }

// Prices implements core.PriceSource. Ids may be bare symbols or OKX style
// pairs; both are converted to Binance symbols such as BTCUSDT.
func (p *PriceSource) Prices(ctx context.Context, ids []string) ([]core.Price, error) {
	symbols := make([]string, 0, len(ids))
	for _, pair := range exchange.Pairs(ids) {
		asset, quote := exchange.SplitAssetQuote(pair)
		symbols = append(symbols, asset+quote)
	}

	listed, err := p.client.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		p.metrics.ObserveUpstream(sourceName, 0)
		return nil, fmt.Errorf("failed to list binance prices: %w", err)
	}
	p.metrics.ObserveUpstream(sourceName, 200)

	now := core.NowMillis()
	prices := make([]core.Price, 0, len(listed))
	for _, item := range listed {
		value, err := strconv.ParseFloat(item.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: binance price %q", core.ErrInvalidPayload, item.Price)
		}
		prices = append(prices, core.Price{
			Symbol:    toPair(item.Symbol),
			Price:     value,
			Change24h: "0.00",
			Timestamp: now,
			Exchange:  ExchangeName,
		})
	}
	return prices, nil
}

// toPair turns BTCUSDT into BTC-USDT so symbols group with the other sources
func toPair(symbol string) string {
	if base, found := strings.CutSuffix(symbol, exchange.DefaultQuote); found {
		return base + "-" + exchange.DefaultQuote
	}
	return symbol
}
