package simulation

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/metric"
	"github.com/samber/lo"
)

// Summary collects performance statistics of a session's trade log
type Summary struct {
	SessionID  string
	Strategy   string
	Trades     []core.TradeEvent
	Aggregates core.Aggregates
}

// Report is the JSON view of a Summary
type Report struct {
	SessionID       string  `json:"session_id"`
	Strategy        string  `json:"strategy"`
	Trades          int     `json:"trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinPercentage   float64 `json:"win_percentage"`
	Payoff          float64 `json:"payoff"`
	ProfitFactor    float64 `json:"profit_factor"`
	SQN             float64 `json:"sqn"`
	TotalPnL        float64 `json:"total_pnl"`
	EstimatedReturn float64 `json:"estimated_return"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	AvgTradeSize    float64 `json:"avg_trade_size"`
	MeanPnLLower    float64 `json:"mean_pnl_lower"`
	MeanPnLUpper    float64 `json:"mean_pnl_upper"`
}

// NewSummary builds a summary from a snapshot
func NewSummary(snapshot Snapshot) Summary {
	return Summary{
		SessionID:  snapshot.ID,
		Strategy:   snapshot.Strategy.Name,
		Trades:     snapshot.Trades,
		Aggregates: snapshot.Aggregates,
	}
}

func (s Summary) Wins() []core.TradeEvent {
	return lo.Filter(s.Trades, func(t core.TradeEvent, _ int) bool { return t.IsWin() })
}

func (s Summary) Losses() []core.TradeEvent {
	return lo.Filter(s.Trades, func(t core.TradeEvent, _ int) bool { return !t.IsWin() })
}

// PnL returns the profit of every logged trade
func (s Summary) PnL() []float64 {
	return lo.Map(s.Trades, func(t core.TradeEvent, _ int) float64 { return t.PnL })
}

// WinPercentage is computed over the logged trades only
func (s Summary) WinPercentage() float64 {
	if len(s.Trades) == 0 {
		return 0
	}
	return float64(len(s.Wins())) / float64(len(s.Trades)) * 100
}

// Payoff is the average winning percentage over the absolute average losing one
func (s Summary) Payoff() float64 {
	wins, losses := s.Wins(), s.Losses()
	if len(wins) == 0 || len(losses) == 0 {
		return 0
	}

	avgWin := lo.MeanBy(wins, func(t core.TradeEvent) float64 { return t.Percent })
	avgLoss := lo.MeanBy(losses, func(t core.TradeEvent) float64 { return t.Percent })
	if avgLoss == 0 {
		return 0
	}
	return avgWin / math.Abs(avgLoss)
}

// ProfitFactor is gross profit over gross loss
func (s Summary) ProfitFactor() float64 {
	grossLoss := lo.SumBy(s.Losses(), func(t core.TradeEvent) float64 { return t.PnL })
	if grossLoss == 0 {
		return 0
	}
	grossProfit := lo.SumBy(s.Wins(), func(t core.TradeEvent) float64 { return t.PnL })
	return grossProfit / math.Abs(grossLoss)
}

// SQN is the system quality number, sqrt(n) * mean / stddev of trade PnL
func (s Summary) SQN() float64 {
	n := float64(len(s.Trades))
	if n == 0 {
		return 0
	}

	pnl := s.PnL()
	mean := lo.Sum(pnl) / n

	variance := 0.0
	for _, v := range pnl {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / n)
	if stdDev == 0 {
		return 0
	}
	return math.Sqrt(n) * mean / stdDev
}

// MeanInterval is the bootstrap interval of the mean trade PnL
func (s Summary) MeanInterval() metric.BootstrapInterval {
	return metric.MeanInterval(s.PnL())
}

func (s Summary) Report() Report {
	interval := s.MeanInterval()
	return Report{
		SessionID:       s.SessionID,
		Strategy:        s.Strategy,
		Trades:          len(s.Trades),
		Wins:            len(s.Wins()),
		Losses:          len(s.Losses()),
		WinPercentage:   s.WinPercentage(),
		Payoff:          s.Payoff(),
		ProfitFactor:    s.ProfitFactor(),
		SQN:             s.SQN(),
		TotalPnL:        s.Aggregates.TotalPnL,
		EstimatedReturn: s.Aggregates.EstimatedReturn,
		MaxDrawdown:     s.Aggregates.MaxDrawdown,
		AvgTradeSize:    s.Aggregates.AvgTradeSize,
		MeanPnLLower:    interval.Lower,
		MeanPnLUpper:    interval.Upper,
	}
}

// String formats the summary as a text table
func (s Summary) String() string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	interval := s.MeanInterval()
	data := [][]string{
		{"Strategy", s.Strategy},
		{"Trades", strconv.Itoa(s.Aggregates.TotalTrades)},
		{"Logged", strconv.Itoa(len(s.Trades))},
		{"Win", strconv.Itoa(len(s.Wins()))},
		{"Loss", strconv.Itoa(len(s.Losses()))},
		{"% Win", fmt.Sprintf("%.1f", s.Aggregates.WinRate)},
		{"Payoff", fmt.Sprintf("%.1f", s.Payoff()*100)},
		{"Pr.Fact", fmt.Sprintf("%.1f", s.ProfitFactor()*100)},
		{"SQN", fmt.Sprintf("%.2f", s.SQN())},
		{"PnL", fmt.Sprintf("%.2f", s.Aggregates.TotalPnL)},
		{"Return", fmt.Sprintf("%.2f%%", s.Aggregates.EstimatedReturn)},
		{"Drawdown", fmt.Sprintf("%.2f%%", s.Aggregates.MaxDrawdown)},
		{"Avg Size", fmt.Sprintf("%.2f", s.Aggregates.AvgTradeSize)},
		{"Mean PnL 95%", fmt.Sprintf("%.2f .. %.2f", interval.Lower, interval.Upper)},
	}

	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return tableString.String()
}

// Histogram prints the distribution of trade PnL
func (s Summary) Histogram(w io.Writer) error {
	pnl := s.PnL()
	if len(pnl) == 0 {
		return nil
	}
	hist := histogram.Hist(15, pnl)
	return histogram.Fprint(w, hist, histogram.Linear(10))
}
