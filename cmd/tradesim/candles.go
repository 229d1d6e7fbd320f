package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange/okx"
	"github.com/raykavin/tradesim/pkg/indicator"
	"github.com/spf13/cobra"
)

// Candles command flags
var (
	candlesSymbol    string
	candlesTimeframe string
	candlesLimit     int
	candlesPeriod    int
)

func buildCandlesCmd() *cobra.Command {
	candlesCmd := &cobra.Command{
		Use:   "candles",
		Short: "Print recent candles with their studies",
		RunE:  runCandles,
	}

	candlesCmd.Flags().StringVarP(&candlesSymbol, "symbol", "p", "BTC", "Token or pair (e.g. BTC or BTC-USDT)")
	candlesCmd.Flags().StringVarP(&candlesTimeframe, "timeframe", "t", "1h", "Timeframe (e.g. 15m, 1h, 1M)")
	candlesCmd.Flags().IntVarP(&candlesLimit, "limit", "l", 24, "Number of candles")
	candlesCmd.Flags().IntVar(&candlesPeriod, "period", 14, "Study period")

	return candlesCmd
}

func runCandles(cmd *cobra.Command, _ []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	candles, err := app.Candles().CandlesByLimit(cmd.Context(), candlesSymbol, okx.TimeframeExact(candlesTimeframe), candlesLimit)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles for %s", candlesSymbol)
	}

	renderCandles(cmd, candles, indicator.Compute(core.Candles(candles).Closes(), candlesPeriod))
	return nil
}

func renderCandles(cmd *cobra.Command, candles []core.Candle, readings indicator.Readings) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Time", "Open", "High", "Low", "Close", "Volume", "SMA", "RSI"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i, candle := range candles {
		sma, rsi := "-", "-"
		if readings.Ready(i) {
			sma = strconv.FormatFloat(readings.SMA[i], 'f', 2, 64)
			rsi = strconv.FormatFloat(readings.RSI[i], 'f', 1, 64)
		}

		table.Append([]string{
			candle.Time.Format("2006-01-02 15:04"),
			strconv.FormatFloat(candle.Open, 'f', 2, 64),
			strconv.FormatFloat(candle.High, 'f', 2, 64),
			strconv.FormatFloat(candle.Low, 'f', 2, 64),
			strconv.FormatFloat(candle.Close, 'f', 2, 64),
			strconv.FormatFloat(candle.Volume, 'f', 2, 64),
			sma,
			rsi,
		})
	}

	table.Render()
}
