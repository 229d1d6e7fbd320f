package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	candles []core.Candle
	err     error
	calls   int
}

func (s *stubSource) CandlesByLimit(context.Context, string, string, int) ([]core.Candle, error) {
	s.calls++
	return s.candles, s.err
}

func TestFallbackSource_UsesFirstNonEmpty(t *testing.T) {
	failing := &stubSource{err: errors.New("down")}
	empty := &stubSource{}
	live := &stubSource{candles: []core.Candle{{Close: 1}}}
	last := &stubSource{candles: []core.Candle{{Close: 2}}}

	source := NewFallbackSource(zerolog.NewNop(), failing, empty, live, last)

	candles, err := source.CandlesByLimit(context.Background(), "BTC", "15m", 100)
	require.NoError(t, err)
	require.Equal(t, 1.0, candles[0].Close)
	require.Equal(t, 1, failing.calls)
	require.Equal(t, 1, empty.calls)
	require.Equal(t, 0, last.calls)
}

func TestFallbackSource_SeedNeverEmpty(t *testing.T) {
	source := NewFallbackSource(zerolog.NewNop(), &stubSource{}, NewSeedGenerator(core.NewRand(1)))

	candles, err := source.CandlesByLimit(context.Background(), "BTC", "15m", 100)
	require.NoError(t, err)
	require.Len(t, candles, DefaultSeedCount)
}
