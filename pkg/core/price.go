package core

import (
	"strings"
	"time"
)

// Price is a spot quote normalized from any upstream
type Price struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h string  `json:"change24h"`
	Volume24h float64 `json:"volume24h,omitempty"`
	High24h   float64 `json:"high24h,omitempty"`
	Low24h    float64 `json:"low24h,omitempty"`
	Timestamp int64   `json:"timestamp"`
	Exchange  string  `json:"exchange"`
}

// BaseSymbol strips the quote suffix, BTC-USDT and BTC-USD both become BTC
func (p Price) BaseSymbol() string {
	return strings.Replace(strings.Replace(p.Symbol, "-USDT", "", 1), "-USD", "", 1)
}

// AggregatedPrice is the per-symbol average across exchanges
type AggregatedPrice struct {
	Symbol           string             `json:"symbol"`
	Price            float64            `json:"price"`
	Change24h        string             `json:"change24h"`
	Volume24h        float64            `json:"volume24h"`
	Exchanges        []string           `json:"exchanges"`
	PricesByExchange map[string]float64 `json:"pricesByExchange"`
	Timestamp        int64              `json:"timestamp"`
}

// NowMillis returns the current time in epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
