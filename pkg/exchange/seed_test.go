package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestSeedGenerator_Generate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gen := NewSeedGenerator(core.NewRand(42), WithClock(func() time.Time { return now }))

	candles := gen.Generate("BTC-USDT")
	require.Len(t, candles, DefaultSeedCount)

	first := candles[0]
	require.GreaterOrEqual(t, first.Open, DefaultBasePrice)
	require.Less(t, first.Open, DefaultBasePrice+DefaultBaseBand)
	require.Equal(t, now.Add(-24*time.Hour), first.Time)
	require.Equal(t, now, candles[len(candles)-1].Time)

	for i, candle := range candles {
		require.True(t, candle.Valid(), "candle %d breaks OHLC ordering", i)
		require.GreaterOrEqual(t, candle.Volume, 50.0)
		require.Less(t, candle.Volume, 150.0)
		if i > 0 {
			require.Equal(t, candles[i-1].Close, candle.Open)
			require.Equal(t, time.Hour, candle.Time.Sub(candles[i-1].Time))
		}
	}
}

func TestSeedGenerator_GenerateFrom(t *testing.T) {
	// volatility = 0.75*2-1 = 0.5, so every bar moves +0.5%
	rng := core.NewSequence(0.75, 0, 0, 0.5)
	gen := NewSeedGenerator(rng, WithCount(2))

	candles := gen.GenerateFrom("ETH-USDT", 1000)
	require.Len(t, candles, 2)
	require.InDelta(t, 1000, candles[0].Open, 1e-9)
	require.InDelta(t, 1005, candles[0].Close, 1e-9)
	require.InDelta(t, 1005, candles[0].High, 1e-9)
	require.InDelta(t, 1000, candles[0].Low, 1e-9)
	require.InDelta(t, 100, candles[0].Volume, 1e-9)
	require.InDelta(t, 1005, candles[1].Open, 1e-9)
}

func TestSeedGenerator_CandlesByLimit(t *testing.T) {
	gen := NewSeedGenerator(core.NewRand(7))

	candles, err := gen.CandlesByLimit(context.Background(), "sol", "15m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 10)
	require.Equal(t, "SOL-USDT", candles[0].Pair)
}
