package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/tradesim/pkg/strategy"
	"github.com/spf13/cobra"
)

func buildRecommendCmd() *cobra.Command {
	prefs := strategy.DefaultPreferences()
	var selectFirst bool

	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the strategy catalog against trading preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := strategy.Load()
			if err != nil {
				return err
			}

			ids := catalog.Recommend(strategy.Normalize(prefs))
			recommended := catalog.ByIDs(ids)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Name", "Risk", "Win rate", "Return", "Best for"})
			for _, s := range recommended {
				table.Append([]string{
					strconv.Itoa(s.ID),
					s.Name,
					string(s.Risk),
					fmt.Sprintf("%.0f%%", s.WinRate),
					s.ExpectedReturn,
					strings.Join(s.BestFor, ", "),
				})
			}
			table.Render()

			if !selectFirst || len(recommended) == 0 {
				return nil
			}

			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Storage().SaveSelectedStrategy(recommended[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected %s\n", recommended[0].Name)
			return nil
		},
	}

	recommendCmd.Flags().StringVar(&prefs.RiskTolerance, "risk", prefs.RiskTolerance, "Risk tolerance: conservative, moderate or aggressive")
	recommendCmd.Flags().StringVar(&prefs.TradingTimeframe, "timeframe", prefs.TradingTimeframe, "Trading timeframe: scalping, day or swing")
	recommendCmd.Flags().Float64Var(&prefs.ExpectedReturn, "return", prefs.ExpectedReturn, "Expected monthly return in percent")
	recommendCmd.Flags().Float64Var(&prefs.WinRate, "win-rate", prefs.WinRate, "Desired win rate in percent")
	recommendCmd.Flags().StringVar(&prefs.CryptoPreference, "crypto", prefs.CryptoPreference, "Preferred crypto: bitcoin, ethereum, solana, okx or binance")
	recommendCmd.Flags().BoolVar(&selectFirst, "select", false, "Store the best match as the selected strategy")

	return recommendCmd
}
