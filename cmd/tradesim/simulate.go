package main

import (
	"fmt"
	"strconv"

	"github.com/raykavin/tradesim"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/spf13/cobra"
)

// Simulate command flags
var (
	simulateStrategy   int
	simulateSteps      int
	simulateBudget     float64
	simulateLeverage   float64
	simulatePosition   float64
	simulateStopLoss   float64
	simulateTakeProfit float64
	simulateTimeframe  string
	simulateHistogram  bool
	simulateCandles    string
)

func buildSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless session and print its summary",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().IntVarP(&simulateStrategy, "strategy", "s", 0, "Strategy id (default the selected strategy)")
	simulateCmd.Flags().IntVarP(&simulateSteps, "steps", "n", 100, "Number of simulated trades")
	simulateCmd.Flags().Float64Var(&simulateBudget, "budget", simulation.DefaultBudget, "Budget")
	simulateCmd.Flags().Float64Var(&simulateLeverage, "leverage", simulation.DefaultLeverage, "Leverage")
	simulateCmd.Flags().Float64Var(&simulatePosition, "position", simulation.DefaultPositionSize, "Position size in percent of the budget")
	simulateCmd.Flags().Float64Var(&simulateStopLoss, "stop-loss", simulation.DefaultStopLoss, "Stop loss in percent")
	simulateCmd.Flags().Float64Var(&simulateTakeProfit, "take-profit", simulation.DefaultTakeProfit, "Take profit in percent")
	simulateCmd.Flags().StringVarP(&simulateTimeframe, "timeframe", "t", "", "Candle timeframe (e.g. 1h)")
	simulateCmd.Flags().BoolVar(&simulateHistogram, "histogram", true, "Print the PnL histogram")
	simulateCmd.Flags().StringVar(&simulateCandles, "candles", "", "Seed the session from a CSV file written by download")

	return simulateCmd
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	if simulateSteps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", simulateSteps)
	}

	var options []tradesim.Option
	if simulateCandles != "" {
		source, err := exchange.NewCSVSource(simulateCandles)
		if err != nil {
			return fmt.Errorf("failed to load candles: %w", err)
		}
		options = append(options, tradesim.WithCandleSource(source))
	}

	app, err := loadApp(options...)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Simulate(cmd.Context(), simulation.Request{
		StrategyID:   simulateStrategy,
		Budget:       formatFloat(simulateBudget),
		Leverage:     formatFloat(simulateLeverage),
		PositionSize: formatFloat(simulatePosition),
		StopLoss:     formatFloat(simulateStopLoss),
		TakeProfit:   formatFloat(simulateTakeProfit),
		Timeframe:    simulateTimeframe,
	}, simulateSteps)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, summary.String())
	if simulateHistogram {
		fmt.Fprintln(out)
		return summary.Histogram(out)
	}
	return nil
}
