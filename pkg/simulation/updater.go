package simulation

import (
	"math"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
)

const (
	FastRollover  = 5 * time.Second
	SlowRollover  = time.Hour
	DefaultWindow = 24
)

// CandleUpdater folds price ticks into a sliding window of candles
type CandleUpdater struct {
	rng       core.Rand
	threshold time.Duration
	window    int
}

// NewCandleUpdater creates an updater that opens a new candle once threshold
// has elapsed since the last one and keeps at most window candles.
func NewCandleUpdater(rng core.Rand, threshold time.Duration, window int) *CandleUpdater {
	if threshold <= 0 {
		threshold = FastRollover
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &CandleUpdater{rng: rng, threshold: threshold, window: window}
}

// Window is the maximum number of candles kept
func (u *CandleUpdater) Window() int { return u.window }

// Threshold is the rollover interval
func (u *CandleUpdater) Threshold() time.Duration { return u.threshold }

// Trim drops the oldest candles beyond the window
func (u *CandleUpdater) Trim(buf []core.Candle) []core.Candle {
	if len(buf) <= u.window {
		return buf
	}
	return buf[len(buf)-u.window:]
}

// Apply merges price into buf at now. It returns the updated buffer and
// whether a new candle was opened. The last candle is mutated in place.
func (u *CandleUpdater) Apply(buf []core.Candle, price float64, now time.Time) ([]core.Candle, bool) {
	if len(buf) == 0 {
		return append(buf, core.Candle{
			Time:      now,
			UpdatedAt: now,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    u.rng.Float64()*100 + 50,
		}), true
	}

	last := &buf[len(buf)-1]
	if now.Sub(last.Time) >= u.threshold {
		last.Complete = true
		next := core.Candle{
			Pair:      last.Pair,
			Time:      now,
			UpdatedAt: now,
			Open:      last.Close,
			High:      math.Max(last.Close, price),
			Low:       math.Min(last.Close, price),
			Close:     price,
			Volume:    u.rng.Float64()*100 + 50,
		}
		return u.Trim(append(buf, next)), true
	}

	last.Close = price
	last.High = math.Max(last.High, price)
	last.Low = math.Min(last.Low, price)
	last.Volume += u.rng.Float64() * 5
	last.UpdatedAt = now
	return buf, false
}
