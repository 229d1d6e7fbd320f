package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, f func(i int) float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = f(i)
	}
	return values
}

func TestSMA(t *testing.T) {
	closes := series(10, func(i int) float64 { return float64(i + 1) })
	sma := SMA(closes, 3)
	require.Len(t, sma, 10)
	assert.InDelta(t, 9.0, sma[9], 1e-9)
	assert.InDelta(t, 2.0, sma[2], 1e-9)
}

func TestCompute_Constant(t *testing.T) {
	closes := series(30, func(int) float64 { return 100 })
	r := Compute(closes, 14)

	assert.False(t, r.Ready(13))
	require.True(t, r.Ready(29))
	assert.InDelta(t, 100.0, r.SMA[29], 1e-9)
	assert.InDelta(t, 100.0, r.EMA[29], 1e-9)
	assert.InDelta(t, 100.0, r.Upper[29], 1e-9)
	assert.InDelta(t, 100.0, r.Middle[29], 1e-9)
	assert.InDelta(t, 100.0, r.Lower[29], 1e-9)
}

func TestCompute_Trend(t *testing.T) {
	closes := series(40, func(i int) float64 { return 100 + float64(i) })
	r := Compute(closes, 14)

	require.True(t, r.Ready(39))
	assert.InDelta(t, 100.0, r.RSI[39], 1e-9, "only gains")
	assert.Greater(t, r.Upper[39], r.Middle[39])
	assert.Less(t, r.Lower[39], r.Middle[39])
	// both averages trail a linear trend by (period-1)/2
	assert.InDelta(t, 132.5, r.SMA[39], 1e-6)
	assert.InDelta(t, 132.5, r.EMA[39], 1e-6)
}

func TestCompute_ShortSeries(t *testing.T) {
	closes := []float64{1, 2, 3}

	var r Readings
	require.NotPanics(t, func() { r = Compute(closes, 14) })
	assert.Len(t, r.SMA, 3)
	assert.Len(t, r.RSI, 3)
	for i := range closes {
		assert.False(t, r.Ready(i))
	}
}
