package core

import (
	"encoding/json"
	"math"
	"time"
)

// TradeType classifies a simulated fill
type TradeType string

const (
	TradeTypeWin  TradeType = "win"
	TradeTypeLoss TradeType = "loss"
)

// TradeEvent is one simulated fill. It is never mutated after creation.
type TradeEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID string    `json:"session_id" gorm:"index;size:36"`
	Timestamp time.Time `json:"-" gorm:"index"`
	PnL       float64   `json:"pnl"`
	Percent   float64   `json:"percent"`
	Size      float64   `json:"size"`
	Type      TradeType `json:"type" gorm:"size:8"`
}

// IsWin reports whether the trade closed in profit
func (t TradeEvent) IsWin() bool { return t.Type == TradeTypeWin }

type tradeAlias TradeEvent

type tradeJSON struct {
	tradeAlias
	Timestamp int64 `json:"timestamp"`
}

// MarshalJSON encodes the trade with its timestamp in epoch milliseconds
func (t TradeEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeJSON{tradeAlias: tradeAlias(t), Timestamp: t.Timestamp.UnixMilli()})
}

// UnmarshalJSON decodes a trade whose timestamp is in epoch milliseconds
func (t *TradeEvent) UnmarshalJSON(data []byte) error {
	var raw tradeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = TradeEvent(raw.tradeAlias)
	t.Timestamp = time.UnixMilli(raw.Timestamp)
	return nil
}

// TradeFilter selects trades when reading them back from storage
type TradeFilter func(TradeEvent) bool

// WithSession keeps trades produced by the given session
func WithSession(sessionID string) TradeFilter {
	return func(t TradeEvent) bool {
		return t.SessionID == sessionID
	}
}

// WithType keeps trades of the given type
func WithType(tradeType TradeType) TradeFilter {
	return func(t TradeEvent) bool {
		return t.Type == tradeType
	}
}

// WithSince keeps trades created at or after the given time
func WithSince(since time.Time) TradeFilter {
	return func(t TradeEvent) bool {
		return !t.Timestamp.Before(since)
	}
}

// Aggregates are the running statistics of a simulation session
type Aggregates struct {
	TotalPnL        float64 `json:"total_pnl"`
	TotalTrades     int     `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`
	EstimatedReturn float64 `json:"estimated_return"`
	// MaxDrawdown is the worst single-trade percentage seen so far, never above zero.
	MaxDrawdown  float64 `json:"max_drawdown"`
	AvgTradeSize float64 `json:"avg_trade_size"`
}

// Fold returns the aggregates after one more trade. Win rate and average trade size
// are updated incrementally from the previous values.
func (a Aggregates) Fold(trade TradeEvent, budget float64) Aggregates {
	n := float64(a.TotalTrades)

	win := 0.0
	if trade.IsWin() {
		win = 1
	}

	winCount := a.WinRate/100*n + win

	next := Aggregates{
		TotalPnL:     a.TotalPnL + trade.PnL,
		TotalTrades:  a.TotalTrades + 1,
		WinRate:      winCount / (n + 1) * 100,
		MaxDrawdown:  math.Min(a.MaxDrawdown, trade.Percent),
		AvgTradeSize: (a.AvgTradeSize*n + trade.Size) / (n + 1),
	}

	if budget != 0 {
		next.EstimatedReturn = Round(next.TotalPnL/budget*100, 2)
	}

	return next
}

// Round rounds v half away from zero to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
