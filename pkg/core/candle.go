package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Candle represents one OHLCV bar
type Candle struct {
	Pair      string
	Time      time.Time
	UpdatedAt time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Complete  bool
}

// GetPair returns the trading pair identifier for the candle
func (c Candle) GetPair() string { return c.Pair }

// GetTime returns the timestamp of the candle
func (c Candle) GetTime() time.Time { return c.Time }

// GetOpen returns the opening price of the candle
func (c Candle) GetOpen() float64 { return c.Open }

// GetClose returns the closing price of the candle
func (c Candle) GetClose() float64 { return c.Close }

// GetLow returns the lowest price during the candle period
func (c Candle) GetLow() float64 { return c.Low }

// GetHigh returns the highest price during the candle period
func (c Candle) GetHigh() float64 { return c.High }

// GetVolume returns the volume accumulated by the candle
func (c Candle) GetVolume() float64 { return c.Volume }

// IsEmpty checks if the candle contains no significant data
func (c Candle) IsEmpty() bool { return c.Close == 0 && c.Open == 0 && c.Volume == 0 }

// Bullish reports whether the candle closed above its open
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Valid checks the OHLC ordering low <= min(open, close) <= max(open, close) <= high
func (c Candle) Valid() bool {
	return c.Low <= math.Min(c.Open, c.Close) && math.Max(c.Open, c.Close) <= c.High && c.Volume >= 0
}

// ToSlice converts a candle to a CSV row with the specified decimal precision.
// Column order is time, open, close, low, high, volume.
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

type candleJSON struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarshalJSON encodes the candle with its time in epoch milliseconds
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		Time:   c.Time.UnixMilli(),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	})
}

// UnmarshalJSON decodes a candle whose time is in epoch milliseconds
func (c *Candle) UnmarshalJSON(data []byte) error {
	var raw candleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Time = time.UnixMilli(raw.Time)
	c.Open = raw.Open
	c.High = raw.High
	c.Low = raw.Low
	c.Close = raw.Close
	c.Volume = raw.Volume
	return nil
}

// Candles is an ordered, oldest-first candle buffer
type Candles []Candle

// Last returns the most recent candle and false when the buffer is empty
func (cs Candles) Last() (Candle, bool) {
	if len(cs) == 0 {
		return Candle{}, false
	}
	return cs[len(cs)-1], true
}

// Closes returns the close prices as a series
func (cs Candles) Closes() Series[float64] {
	closes := make(Series[float64], len(cs))
	for i, c := range cs {
		closes[i] = c.Close
	}
	return closes
}

// PriceRange returns the lowest low and the highest high of the buffer
func (cs Candles) PriceRange() (low, high float64) {
	if len(cs) == 0 {
		return 0, 0
	}

	low, high = cs[0].Low, cs[0].High
	for _, c := range cs[1:] {
		low = math.Min(low, c.Low)
		high = math.Max(high, c.High)
	}
	return low, high
}

// Clone returns a copy that shares no memory with the receiver
func (cs Candles) Clone() Candles {
	if cs == nil {
		return nil
	}
	out := make(Candles, len(cs))
	copy(out, cs)
	return out
}
