package strategy

import "github.com/raykavin/tradesim/pkg/core"

// DefaultToken is charted when a strategy names no known token
const DefaultToken = "BTC"

var tokenByName = map[string]string{
	"BTC":      "BTC",
	"ETH":      "ETH",
	"SOL":      "SOL",
	"OKB":      "OKB",
	"BNB":      "BNB",
	"Bitcoin":  "BTC",
	"Ethereum": "ETH",
	"Solana":   "SOL",
	"OKX":      "OKB",
	"Binance":  "BNB",
}

// TokenFor picks the token to chart for a strategy from its bestFor list
func TokenFor(strategy core.Strategy) string {
	for _, item := range strategy.BestFor {
		if token, ok := tokenByName[item]; ok {
			return token
		}
	}
	return DefaultToken
}
