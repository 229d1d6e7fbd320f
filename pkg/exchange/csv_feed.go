package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/samber/lo"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrMissingColumn    = errors.New("missing csv column")
	defaultHeaderMap    = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
)

// CSVSource replays candles previously written by the history downloader
type CSVSource struct {
	file    string
	candles []core.Candle
}

// NewCSVSource loads every candle of file into memory
func NewCSVSource(file string) (*CSVSource, error) {
	candles, err := ReadCandlesCSV(file)
	if err != nil {
		return nil, err
	}
	return &CSVSource{file: file, candles: candles}, nil
}

// CandlesByLimit implements core.CandleSource. Symbol and timeframe are fixed
// by the file, so they only label the returned candles.
func (c *CSVSource) CandlesByLimit(_ context.Context, symbol, _ string, limit int) ([]core.Candle, error) {
	if len(c.candles) == 0 {
		return nil, ErrInsufficientData
	}

	candles := c.candles
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	pair := Pair(symbol)
	return lo.Map(candles, func(candle core.Candle, _ int) core.Candle {
		candle.Pair = pair
		return candle
	}), nil
}

// ReadCandlesCSV parses a time,open,close,low,high,volume file. A header row is
// optional; when present it may list the columns in any order.
func ReadCandlesCSV(file string) ([]core.Candle, error) {
	csvFile, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer csvFile.Close()

	lines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrInsufficientData
	}

	headers, hasHeader := parseHeaders(lines[0])
	if hasHeader {
		lines = lines[1:]
	}

	candles := make([]core.Candle, 0, len(lines))
	for n, line := range lines {
		candle, err := parseCandleFromLine(line, headers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// parseHeaders maps column names to indexes. A numeric first cell means the
// file has no header and uses the default layout.
func parseHeaders(first []string) (map[string]int, bool) {
	if _, err := strconv.ParseInt(first[0], 10, 64); err == nil {
		return defaultHeaderMap, false
	}

	headers := make(map[string]int, len(first))
	for index, name := range first {
		headers[name] = index
	}
	return headers, true
}

func parseCandleFromLine(line []string, headers map[string]int) (core.Candle, error) {
	field := func(name string) (string, error) {
		index, ok := headers[name]
		if !ok || index >= len(line) {
			return "", fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return line[index], nil
	}

	raw, err := field("time")
	if err != nil {
		return core.Candle{}, err
	}
	timestamp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return core.Candle{}, err
	}

	at := time.Unix(timestamp, 0).UTC()
	candle := core.Candle{Time: at, UpdatedAt: at, Complete: true}

	targets := map[string]*float64{
		"open": &candle.Open, "close": &candle.Close, "low": &candle.Low,
		"high": &candle.High, "volume": &candle.Volume,
	}
	for name, target := range targets {
		raw, err := field(name)
		if err != nil {
			return core.Candle{}, err
		}
		if *target, err = strconv.ParseFloat(raw, 64); err != nil {
			return core.Candle{}, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return candle, nil
}
