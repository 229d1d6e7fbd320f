package simulation

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	DefaultBudget       = 10000.0
	DefaultLeverage     = 1.0
	DefaultPositionSize = 25.0
	DefaultStopLoss     = 2.0
	DefaultTakeProfit   = 5.0
	DefaultWinRate      = 70.0
)

// Params are the trading parameters of one session
type Params struct {
	Budget       float64 `json:"budget"`
	Leverage     float64 `json:"leverage"`
	PositionSize float64 `json:"positionSize"` // percent of budget
	StopLoss     float64 `json:"stopLoss"`     // percent
	TakeProfit   float64 `json:"takeProfit"`   // percent
	WinRate      float64 `json:"winRate"`      // strategy win probability, percent
}

// DefaultParams returns the parameters used when nothing is supplied
func DefaultParams() Params {
	return Params{
		Budget:       DefaultBudget,
		Leverage:     DefaultLeverage,
		PositionSize: DefaultPositionSize,
		StopLoss:     DefaultStopLoss,
		TakeProfit:   DefaultTakeProfit,
		WinRate:      DefaultWinRate,
	}
}

// ParseParams reads the user supplied strings. Anything that does not parse
// to a finite number falls back to its default, so it never fails.
func ParseParams(budget, leverage, position, stopLoss, takeProfit string, winRate float64) Params {
	if math.IsNaN(winRate) || math.IsInf(winRate, 0) {
		winRate = DefaultWinRate
	}

	return Params{
		Budget:       parseOr(budget, DefaultBudget),
		Leverage:     parseOr(leverage, DefaultLeverage),
		PositionSize: parseOr(position, DefaultPositionSize),
		StopLoss:     parseOr(stopLoss, DefaultStopLoss),
		TakeProfit:   parseOr(takeProfit, DefaultTakeProfit),
		WinRate:      lo.Clamp(winRate, 0, 100),
	}
}

// TradeSize is the notional of every simulated trade
func (p Params) TradeSize() float64 {
	return p.Budget * (p.PositionSize / 100) * p.Leverage
}

func parseOr(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
