// Package history downloads archived candles into the CSV layout replayed by
// exchange.CSVSource.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"
)

const (
	batchSize        = 100
	defaultPrecision = 2
)

// CSV header names
var csvHeaders = []string{"time", "open", "close", "low", "high", "volume"}

// Source pages archived candles backwards in time, as the OKX client does
type Source interface {
	HistoryCandles(ctx context.Context, symbol, timeframe string, before time.Time, limit int) ([]core.Candle, error)
}

// Downloader facilitates downloading historical candle data
type Downloader struct {
	source    Source
	log       logger.Logger
	precision int
	progress  io.Writer
}

// Parameters defines the time range for data download
type Parameters struct {
	Start time.Time
	End   time.Time
}

// Option is a function type for configuring download parameters
type Option func(*Parameters)

// WithInterval sets specific start and end times for the download
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays sets the download period to a specific number of days from now
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

// NewDownloader creates a downloader over source. Progress is drawn on
// progress, or hidden when it is nil.
func NewDownloader(log logger.Logger, source Source, progress io.Writer) Downloader {
	return Downloader{
		source:    source,
		log:       log,
		precision: defaultPrecision,
		progress:  progress,
	}
}

// calculateCandleCount determines the number of candles in the given timeframe
func calculateCandleCount(start, end time.Time, timeframe string) (int, time.Duration, error) {
	interval, err := str2duration.ParseDuration(timeframe)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timeframe %q: %w", timeframe, err)
	}
	if interval <= 0 {
		return 0, 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}
	return int(end.Sub(start) / interval), interval, nil
}

// Download fetches candles of symbol and saves them to outputPath
func (d Downloader) Download(ctx context.Context, symbol, timeframe, outputPath string, options ...Option) error {
	recordFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer recordFile.Close()

	return d.Write(ctx, recordFile, symbol, timeframe, options...)
}

// Write fetches candles of symbol and writes them as CSV, oldest first
func (d Downloader) Write(ctx context.Context, w io.Writer, symbol, timeframe string, options ...Option) error {
	parameters := initializeParameters()
	for _, option := range options {
		option(parameters)
	}
	if !parameters.Start.Before(parameters.End) {
		return fmt.Errorf("start %s is not before end %s", parameters.Start, parameters.End)
	}

	candleCount, interval, err := calculateCandleCount(parameters.Start, parameters.End, timeframe)
	if err != nil {
		return err
	}

	d.log.Infof("Downloading %d candles of %s for %s", candleCount, timeframe, symbol)

	progressBar := d.newProgressBar(candleCount)
	candles, err := d.fetch(ctx, symbol, timeframe, parameters, progressBar)
	if err != nil {
		return err
	}
	if err := progressBar.Finish(); err != nil {
		d.log.Warnf("Failed to close progress bar: %s", err.Error())
	}

	if missing := candleCount - len(candles); missing > 0 {
		d.log.Warnf("%d missing candles", missing)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return err
	}
	for _, candle := range candles {
		if err := writer.Write(candle.ToSlice(d.precision)); err != nil {
			return err
		}
	}
	writer.Flush()

	d.log.WithField("interval", interval.String()).Info("Done!")
	return writer.Error()
}

func (d Downloader) newProgressBar(total int) *progressbar.ProgressBar {
	if d.progress == nil {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription("candles"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// fetch pages backwards from End until Start is passed or the archive runs dry
func (d Downloader) fetch(ctx context.Context, symbol, timeframe string, parameters *Parameters, progressBar *progressbar.ProgressBar) ([]core.Candle, error) {
	var candles []core.Candle
	before := parameters.End

	for before.After(parameters.Start) {
		batch, err := d.source.HistoryCandles(ctx, symbol, timeframe, before, batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to download candles before %s: %w", before.Format(time.RFC3339), err)
		}
		if len(batch) == 0 {
			break
		}

		inRange := lo.Filter(batch, func(c core.Candle, _ int) bool {
			return !c.Time.Before(parameters.Start) && c.Time.Before(parameters.End)
		})
		candles = append(candles, inRange...)

		if err := progressBar.Add(len(inRange)); err != nil {
			d.log.Warnf("Failed to update progress bar: %s", err.Error())
		}

		oldest := batch[0].Time
		if !oldest.Before(before) {
			break
		}
		before = oldest
	}

	candles = lo.UniqBy(candles, func(c core.Candle) int64 { return c.Time.UnixMilli() })
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// initializeParameters creates default parameters for the last month
func initializeParameters() *Parameters {
	now := time.Now()
	return &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
}
