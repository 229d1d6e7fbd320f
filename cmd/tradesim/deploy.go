package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/tradesim/pkg/deploy"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// Deploy command flags
var (
	deployStrategy int
	deploySteps    int
	deployDuration time.Duration
)

func buildDeployCmd() *cobra.Command {
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Simulate a strategy and roll it out to a mock live account",
		RunE:  runDeploy,
	}

	deployCmd.Flags().IntVarP(&deployStrategy, "strategy", "s", 0, "Strategy id (default the selected strategy)")
	deployCmd.Flags().IntVarP(&deploySteps, "steps", "n", 50, "Trades simulated before deploying")
	deployCmd.Flags().DurationVar(&deployDuration, "duration", 0, "Stop after this long (default until interrupted)")

	return deployCmd
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	selected, err := app.Strategy(deployStrategy)
	if err != nil {
		return err
	}

	summary, err := app.Simulate(ctx, simulation.Request{StrategyID: selected.ID}, deploySteps)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), summary.String())

	out := cmd.OutOrStdout()
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("deploying "+selected.Name),
		progressbar.OptionClearOnFinish(),
	)

	deployment := deploy.New(selected, app.Rand(), app.Log(),
		deploy.WithResults(deploy.ResultsFromAggregates(summary.Aggregates)),
		deploy.WithNotifier(app.Notifier()),
	)
	deployment.Subscribe(func(event deploy.Event) {
		switch event.Kind {
		case deploy.EventProgress:
			_ = bar.Set(event.Progress)
			if event.Status == deploy.StatusDeployed {
				_ = bar.Finish()
			}
		case deploy.EventLog:
			fmt.Fprintf(out, "%s  %-8s %s\n", event.Log.Time, event.Log.Type, event.Log.Message)
		case deploy.EventMetrics:
			fmt.Fprintf(out, "balance %.2f  equity %.2f  daily %+.2f  trades %d  uptime %s\n",
				event.Metrics.Balance, event.Metrics.Equity, event.Metrics.DailyPnL,
				event.Metrics.TotalTrades, event.Metrics.Uptime)
		}
	})

	if deployDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deployDuration)
		defer cancel()
	}

	err = deployment.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
