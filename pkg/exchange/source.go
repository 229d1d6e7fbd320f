package exchange

import (
	"context"
	"fmt"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
)

// FallbackSource asks each source in turn and returns the first non-empty
// result. Failures are logged and never surfaced.
type FallbackSource struct {
	sources []core.CandleSource
	log     logger.Logger
}

// NewFallbackSource chains sources; put the seed generator last
func NewFallbackSource(log logger.Logger, sources ...core.CandleSource) *FallbackSource {
	return &FallbackSource{sources: sources, log: log}
}

// CandlesByLimit implements core.CandleSource
func (f *FallbackSource) CandlesByLimit(ctx context.Context, symbol, timeframe string, limit int) ([]core.Candle, error) {
	for i, source := range f.sources {
		candles, err := source.CandlesByLimit(ctx, symbol, timeframe, limit)
		if err != nil {
			f.log.WithError(err).
				WithFields(logger.Fields{"source": fmt.Sprintf("%T", source), "symbol": symbol}).
				Warn("candle source failed")
			continue
		}
		if len(candles) > 0 {
			if i > 0 {
				f.log.WithField("symbol", symbol).Infof("using fallback candle source %T", source)
			}
			return candles, nil
		}
	}
	return nil, nil
}
