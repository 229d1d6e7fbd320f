package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raykavin/tradesim"
	"github.com/raykavin/tradesim/internal/config"
	"github.com/spf13/cobra"
)

// Command line flags shared by every command
var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "tradesim",
		Short:        "Simulated crypto trading sessions with a live dashboard",
		Version:      "1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (default ./tradesim.yaml)")

	rootCmd.AddCommand(
		buildServeCmd(),
		buildSimulateCmd(),
		buildCandlesCmd(),
		buildDownloadCmd(),
		buildRecommendCmd(),
		buildDeployCmd(),
		buildPricesCmd(),
		buildOptimizeCmd(),
		buildInitCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp reads the configuration and builds the application
func loadApp(options ...tradesim.Option) (*tradesim.TradeSim, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return tradesim.New(cfg, options...)
}

func buildInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return nil
		},
	}
}
