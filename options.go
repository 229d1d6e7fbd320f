package tradesim

import (
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/metric"
)

// Option is a functional option for configuring a TradeSim instance
type Option func(*TradeSim)

// WithLogger replaces DefaultLog
func WithLogger(log logger.Logger) Option {
	return func(app *TradeSim) {
		app.log = log
	}
}

// WithStorage sets the trade journal, by default the configured driver opens
// the file named in the configuration
func WithStorage(storage core.Storage) Option {
	return func(app *TradeSim) {
		app.storage = storage
	}
}

// WithNotifier registers a notifier to every session
func WithNotifier(notifier core.Notifier) Option {
	return func(app *TradeSim) {
		app.notifiers.add(notifier)
	}
}

// WithCandleSource replaces the OKX-then-generated candle chain
func WithCandleSource(source core.CandleSource) Option {
	return func(app *TradeSim) {
		app.candles = source
	}
}

// WithRandSource replaces the seeded randomness factory
func WithRandSource(newRand func() core.Rand) Option {
	return func(app *TradeSim) {
		app.newRand = newRand
	}
}

// WithMetrics shares a collector with the caller
func WithMetrics(metrics *metric.Collector) Option {
	return func(app *TradeSim) {
		app.metrics = metrics
	}
}
