package exchange

import (
	"context"
	"math"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
)

const (
	DefaultSeedCount    = 25
	DefaultSeedInterval = time.Hour
	DefaultBasePrice    = 29000.0
	DefaultBaseBand     = 1000.0

	seedVolatility = 0.01
	wickFactor     = 0.5
)

// SeedGenerator produces a synthetic random-walk candle sequence. It is the
// last resort when no market data can be fetched and never fails.
type SeedGenerator struct {
	rng      core.Rand
	count    int
	interval time.Duration
	base     float64
	band     float64
	now      func() time.Time
}

// SeedOption configures a SeedGenerator
type SeedOption func(*SeedGenerator)

// WithCount sets how many candles are produced
func WithCount(count int) SeedOption {
	return func(g *SeedGenerator) {
		if count > 0 {
			g.count = count
		}
	}
}

// WithInterval sets the spacing between consecutive candles
func WithInterval(interval time.Duration) SeedOption {
	return func(g *SeedGenerator) {
		if interval > 0 {
			g.interval = interval
		}
	}
}

// WithBaseBand sets the band [base, base+band) the starting price is drawn from
func WithBaseBand(base, band float64) SeedOption {
	return func(g *SeedGenerator) {
		g.base = base
		g.band = band
	}
}

// WithClock overrides the wall clock, used to anchor the last candle
func WithClock(now func() time.Time) SeedOption {
	return func(g *SeedGenerator) {
		g.now = now
	}
}

// NewSeedGenerator creates a generator drawing from rng
func NewSeedGenerator(rng core.Rand, options ...SeedOption) *SeedGenerator {
	g := &SeedGenerator{
		rng:      rng,
		count:    DefaultSeedCount,
		interval: DefaultSeedInterval,
		base:     DefaultBasePrice,
		band:     DefaultBaseBand,
		now:      time.Now,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// BasePrice draws a fresh starting price from the configured band
func (g *SeedGenerator) BasePrice() float64 {
	return g.base + g.rng.Float64()*g.band
}

// Generate draws a base price and walks count candles from it
func (g *SeedGenerator) Generate(pair string) []core.Candle {
	return g.GenerateFrom(pair, g.BasePrice())
}

// GenerateFrom walks count candles starting at base. The last candle is
// stamped at the current time and every open equals the previous close.
func (g *SeedGenerator) GenerateFrom(pair string, base float64) []core.Candle {
	now := g.now()
	candles := make([]core.Candle, 0, g.count)
	price := base

	for i := g.count - 1; i >= 0; i-- {
		volatility := core.Uniform(g.rng, -1, 1)
		change := price * volatility * seedVolatility

		open := price
		closePrice := price + change
		high := math.Max(open, closePrice) + g.rng.Float64()*math.Abs(change)*wickFactor
		low := math.Min(open, closePrice) - g.rng.Float64()*math.Abs(change)*wickFactor
		volume := g.rng.Float64()*100 + 50

		at := now.Add(-time.Duration(i) * g.interval)
		candles = append(candles, core.Candle{
			Pair:      pair,
			Time:      at,
			UpdatedAt: at,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Complete:  i > 0,
		})

		price = closePrice
	}

	return candles
}

// CandlesByLimit implements core.CandleSource. The limit caps the count.
func (g *SeedGenerator) CandlesByLimit(_ context.Context, symbol, _ string, limit int) ([]core.Candle, error) {
	candles := g.Generate(Pair(symbol))
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
