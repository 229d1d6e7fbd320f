package deploy

import (
	"fmt"

	"github.com/raykavin/tradesim/pkg/core"
)

type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

var logTypes = []LogType{LogInfo, LogSuccess, LogWarning, LogError}

// message renders one execution log line. Some lines draw their own numbers.
type message func(strategy string, rng core.Rand) string

func fixed(text string) message {
	return func(string, core.Rand) string { return text }
}

var messagesByType = map[LogType][]message{
	LogInfo: {
		func(strategy string, _ core.Rand) string { return "Analyzing market conditions for " + strategy },
		fixed("Fetching order book data from OKX API"),
		fixed("Calculating optimal entry points"),
		fixed("Monitoring price action"),
		fixed("Scanning for arbitrage opportunities"),
		fixed("Checking for trend reversals"),
		fixed("Analyzing market sentiment"),
		fixed("Calculating risk parameters"),
		fixed("Fetching wallet balances"),
		fixed("Checking API rate limits"),
	},
	LogSuccess: {
		func(_ string, rng core.Rand) string {
			side := "SHORT"
			if rng.Float64() > 0.5 {
				side = "LONG"
			}
			return fmt.Sprintf("Opened %s position at $%.2f", side, rng.Float64()*1000+28000)
		},
		func(_ string, rng core.Rand) string {
			sign := "-"
			if rng.Float64() > 0.6 {
				sign = "+"
			}
			return fmt.Sprintf("Closed position with %s%.2f profit", sign, rng.Float64()*100)
		},
		fixed("Successfully updated stop loss"),
		fixed("Take profit order executed"),
		fixed("Strategy parameters optimized"),
		fixed("OKX connection refreshed"),
		fixed("Wallet synchronization complete"),
	},
	LogWarning: {
		fixed("High volatility detected, adjusting parameters"),
		fixed("Approaching daily trade limit"),
		fixed("Unusual market conditions detected"),
		fixed("Network latency detected"),
		fixed("API rate limit at 80%"),
		fixed("Slippage detected on order execution"),
	},
	LogError: {
		fixed("Failed to execute order, retrying"),
		fixed("Temporary API timeout, reconnecting"),
		fixed("Order partially filled"),
		fixed("Price slippage exceeded limits"),
		fixed("Network connection interrupted"),
	},
}

var initialMessages = []string{
	"Initializing deployment process",
	"Connecting to OKX trading platform",
	"Validating API credentials",
}

// pick draws an index in [0, n)
func pick(rng core.Rand, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
