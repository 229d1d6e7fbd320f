package simulation

import (
	"bytes"
	"testing"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	summary := Summary{
		Strategy: "Momentum Breakout",
		Trades: []core.TradeEvent{
			{PnL: 100, Percent: 4, Type: core.TradeTypeWin},
			{PnL: 50, Percent: 2, Type: core.TradeTypeWin},
			{PnL: -50, Percent: -2, Type: core.TradeTypeLoss},
		},
		Aggregates: core.Aggregates{TotalPnL: 100, TotalTrades: 3, WinRate: 200.0 / 3, MaxDrawdown: -2, EstimatedReturn: 1},
	}

	require.Len(t, summary.Wins(), 2)
	require.Len(t, summary.Losses(), 1)
	require.InDelta(t, 66.67, summary.WinPercentage(), 0.01)
	require.Equal(t, 1.5, summary.Payoff())
	require.Equal(t, 3.0, summary.ProfitFactor())
	require.Greater(t, summary.SQN(), 0.0)

	report := summary.Report()
	require.Equal(t, 3, report.Trades)
	require.Equal(t, -2.0, report.MaxDrawdown)
	require.LessOrEqual(t, report.MeanPnLLower, report.MeanPnLUpper)

	table := summary.String()
	require.Contains(t, table, "Momentum Breakout")
	require.Contains(t, table, "Pr.Fact")

	var buf bytes.Buffer
	require.NoError(t, summary.Histogram(&buf))
	require.NotEmpty(t, buf.String())
}

func TestSummary_Empty(t *testing.T) {
	summary := NewSummary(Snapshot{})
	require.Zero(t, summary.WinPercentage())
	require.Zero(t, summary.Payoff())
	require.Zero(t, summary.ProfitFactor())
	require.Zero(t, summary.SQN())

	var buf bytes.Buffer
	require.NoError(t, summary.Histogram(&buf))
	require.Empty(t, buf.String())
}
