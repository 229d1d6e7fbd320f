package main

import (
	"fmt"
	"time"

	"github.com/raykavin/tradesim"
	"github.com/raykavin/tradesim/pkg/history"
	"github.com/spf13/cobra"
)

const (
	dateLayout = "2006-01-02"
)

// Download command flags
var (
	symbol     string
	days       int
	startDate  string
	endDate    string
	timeframe  string
	outputFile string
)

func buildDownloadCmd() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical candles from OKX into a CSV file",
		RunE:  runDownload,
	}

	downloadCmd.Flags().StringVarP(&symbol, "symbol", "p", "", "Token or pair (e.g. BTC or BTC-USDT)")
	downloadCmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to download (default 30 days)")
	downloadCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2021-12-01)")
	downloadCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2021-12-31)")
	downloadCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe (e.g. 1h)")
	downloadCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (e.g. ./btc.csv)")

	_ = downloadCmd.MarkFlagRequired("symbol")
	_ = downloadCmd.MarkFlagRequired("timeframe")
	_ = downloadCmd.MarkFlagRequired("output")

	return downloadCmd
}

func runDownload(cmd *cobra.Command, _ []string) error {
	options, err := buildDownloadOptions()
	if err != nil {
		return err
	}

	app, err := loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return history.NewDownloader(tradesim.DefaultLog, app.OKX(), cmd.ErrOrStderr()).Download(
		cmd.Context(),
		symbol,
		timeframe,
		outputFile,
		options...,
	)
}

func buildDownloadOptions() ([]history.Option, error) {
	var options []history.Option

	if days > 0 {
		options = append(options, history.WithDays(days))
	}

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("START and END dates must be provided together")
		}

		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date format: %w", err)
		}

		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date format: %w", err)
		}

		options = append(options, history.WithInterval(start, end))
	}

	return options, nil
}
