package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/market"
	"github.com/spf13/cobra"
)

// Prices command flags
var (
	pricesWatch    bool
	pricesInterval time.Duration
)

func buildPricesCmd() *cobra.Command {
	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Print spot prices averaged across exchanges",
		RunE:  runPrices,
	}

	pricesCmd.Flags().BoolVarP(&pricesWatch, "watch", "w", false, "Keep polling until interrupted")
	pricesCmd.Flags().DurationVarP(&pricesInterval, "interval", "i", market.DefaultPollInterval, "Polling interval with --watch")

	return pricesCmd
}

func runPrices(cmd *cobra.Command, _ []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	fetch := market.FromAggregator(app.Aggregator())
	render := func(prices []core.AggregatedPrice) {
		renderPrices(cmd, prices)
	}

	if !pricesWatch {
		prices, err := fetch(cmd.Context())
		if err != nil {
			return err
		}
		render(prices)
		return nil
	}

	err = market.NewPoller(app.Log(), fetch, pricesInterval).Run(cmd.Context(), render)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func renderPrices(cmd *cobra.Command, prices []core.AggregatedPrice) {
	sort.Slice(prices, func(i, j int) bool { return prices[i].Symbol < prices[j].Symbol })

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Symbol", "Price", "24h", "Volume", "Exchanges"})
	for _, price := range prices {
		table.Append([]string{
			price.Symbol,
			fmt.Sprintf("%.4f", price.Price),
			price.Change24h + "%",
			fmt.Sprintf("%.0f", price.Volume24h),
			strings.Join(price.Exchanges, ", "),
		})
	}
	table.Render()
}
