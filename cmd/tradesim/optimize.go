package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange/okx"
	"github.com/raykavin/tradesim/pkg/optimizer"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/strategy"
	"github.com/spf13/cobra"
)

// Optimize command flags
var (
	optimizeStrategy   int
	optimizeIterations int
	optimizeSteps      int
	optimizeTop        int
	optimizeMetric     string
	optimizeMinimize   bool
	optimizeSeed       int64
	optimizeOutput     string
)

func buildOptimizeCmd() *cobra.Command {
	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search leverage, position size, stop loss and take profit for a strategy",
		RunE:  runOptimize,
	}

	optimizeCmd.Flags().IntVarP(&optimizeStrategy, "strategy", "s", 0, "Strategy id (default the selected strategy)")
	optimizeCmd.Flags().IntVarP(&optimizeIterations, "iterations", "i", 100, "Parameter sets to evaluate")
	optimizeCmd.Flags().IntVarP(&optimizeSteps, "steps", "n", 200, "Trades simulated per evaluation")
	optimizeCmd.Flags().IntVar(&optimizeTop, "top", 10, "Results to print")
	optimizeCmd.Flags().StringVarP(&optimizeMetric, "metric", "m", string(optimizer.MetricProfit), "Target metric")
	optimizeCmd.Flags().BoolVar(&optimizeMinimize, "minimize", false, "Minimize the target metric")
	optimizeCmd.Flags().Int64Var(&optimizeSeed, "seed", 1, "Seed shared by every evaluation")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "output", "o", "", "Also write the results to a CSV file")

	return optimizeCmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	selected, err := app.Strategy(optimizeStrategy)
	if err != nil {
		return err
	}

	candles, err := app.Candles().CandlesByLimit(cmd.Context(), strategy.TokenFor(selected),
		okx.Timeframe(simulation.DefaultTimeframe), simulation.DefaultWindow)
	if err != nil {
		return err
	}

	base := simulation.DefaultParams()
	base.WinRate = selected.WinRate
	evaluator := optimizer.NewSessionEvaluator(selected, base, candles, optimizeSteps,
		func() core.Rand { return core.NewRand(optimizeSeed) })

	config := optimizer.NewConfig().
		WithMaxIterations(optimizeIterations).
		WithParallelism(runtime.NumCPU()).
		WithTargetMetric(optimizer.MetricName(optimizeMetric), !optimizeMinimize).
		WithTopN(optimizeTop).
		WithLogger(app.Log())

	search, err := optimizer.NewRandomSearch(config, app.Rand())
	if err != nil {
		return err
	}

	results, err := search.Optimize(cmd.Context(), evaluator)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s, %d trades per evaluation\n", selected.Name, optimizeSteps)
	optimizer.PrintResults(cmd.OutOrStdout(), results)

	if optimizeOutput == "" {
		return nil
	}

	file, err := os.Create(optimizeOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", optimizeOutput, err)
	}
	defer file.Close()
	return optimizer.WriteCSV(file, results)
}
