package metric

import (
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultSamples    = 1000
	DefaultConfidence = 0.95
)

// BootstrapInterval is a resampled confidence interval of some statistic
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap resamples values with replacement sampleSize times, applies
// measure to each resample and returns the two-sided interval at confidence.
func Bootstrap(values []float64, measure func([]float64) float64, sampleSize int,
	confidence float64) BootstrapInterval {

	if len(values) == 0 || sampleSize <= 0 {
		return BootstrapInterval{}
	}

	data := make([]float64, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		resample := lo.Times(len(values), func(int) float64 {
			return lo.Sample(values)
		})
		data = append(data, measure(resample))
	}
	sort.Float64s(data)

	tail := 1 - confidence
	mean, stdDev := stat.MeanStdDev(data, nil)

	return BootstrapInterval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}

// MeanInterval is the 95% bootstrap interval of the mean
func MeanInterval(values []float64) BootstrapInterval {
	return Bootstrap(values, func(sample []float64) float64 {
		return stat.Mean(sample, nil)
	}, DefaultSamples, DefaultConfidence)
}
