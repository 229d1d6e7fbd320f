package okx

import "strings"

// DefaultTimeframe is used for any interval OKX does not know
const DefaultTimeframe = "15m"

var timeframes = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1H",
	"2h":  "2H",
	"4h":  "4H",
	"6h":  "6H",
	"12h": "12H",
	"1d":  "1D",
	"1w":  "1W",
}

// Timeframe maps a user interval such as "4h" to the OKX bar code "4H".
// Input is lowercased first, so "1M" reads as one minute.
func Timeframe(interval string) string {
	if bar, ok := timeframes[strings.ToLower(strings.TrimSpace(interval))]; ok {
		return bar
	}
	return DefaultTimeframe
}

// TimeframeExact accepts a bar code exactly as OKX spells it, including the
// monthly "1M", and falls back to Timeframe otherwise.
func TimeframeExact(bar string) string {
	if bar == "1M" {
		return bar
	}
	return Timeframe(bar)
}
