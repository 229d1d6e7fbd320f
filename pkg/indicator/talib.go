// Package indicator wraps the go-talib studies shown next to simulated candles.
package indicator

import "github.com/markcheno/go-talib"

// BB calculates Bollinger Bands over a simple moving average.
// Returns upper, middle, and lower bands
func BB(input []float64, period int, deviation float64) ([]float64, []float64, []float64) {
	return talib.BBands(input, period, deviation, deviation, talib.SMA)
}

// EMA calculates Exponential Moving Average
func EMA(input []float64, period int) []float64 {
	return talib.Ema(input, period)
}

// SMA calculates Simple Moving Average
func SMA(input []float64, period int) []float64 {
	return talib.Sma(input, period)
}

// RSI calculates Relative Strength Index
func RSI(input []float64, period int) []float64 {
	return talib.Rsi(input, period)
}

// Readings holds every study for one close series, index aligned with it.
// Values before Ready are warm-up zeros.
type Readings struct {
	Period int
	SMA    []float64
	EMA    []float64
	RSI    []float64
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Compute runs all studies with the same period. Series too short for the
// period yield all-zero readings.
func Compute(closes []float64, period int) Readings {
	r := Readings{Period: period}
	n := len(closes)

	if period < 2 || n <= period {
		r.SMA, r.EMA, r.RSI = make([]float64, n), make([]float64, n), make([]float64, n)
		r.Upper, r.Middle, r.Lower = make([]float64, n), make([]float64, n), make([]float64, n)
		return r
	}

	r.SMA = SMA(closes, period)
	r.EMA = EMA(closes, period)
	r.RSI = RSI(closes, period)
	r.Upper, r.Middle, r.Lower = BB(closes, period, 2)
	return r
}

// Ready reports whether every study has a value at index i
func (r Readings) Ready(i int) bool {
	return r.Period >= 2 && i >= r.Period && i < len(r.SMA)
}
