package exchange

import (
	"strings"
)

// DefaultQuote is the quote asset every simulated pair trades against
const DefaultQuote = "USDT"

// Tokens lists the symbols a strategy can be bound to, in priority order
var Tokens = []string{"BTC", "ETH", "SOL", "OKB", "BNB"}

// Pair formats a bare symbol as an OKX instrument id, BTC becomes BTC-USDT.
// Symbols that already carry a quote are returned upper-cased.
func Pair(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, "-") {
		return symbol
	}
	return symbol + "-" + DefaultQuote
}

// Pairs formats every symbol with Pair
func Pairs(symbols []string) []string {
	pairs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol = strings.TrimSpace(symbol); symbol != "" {
			pairs = append(pairs, Pair(symbol))
		}
	}
	return pairs
}

// SplitAssetQuote splits an instrument id such as BTC-USDT into its asset and quote
func SplitAssetQuote(pair string) (asset string, quote string) {
	asset, quote, found := strings.Cut(strings.ToUpper(pair), "-")
	if !found {
		return asset, DefaultQuote
	}
	return asset, quote
}
