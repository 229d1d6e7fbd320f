package optimizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func parameterNames(results []*Result) []string {
	names := lo.Uniq(lo.FlatMap(results, func(result *Result, _ int) []string {
		return lo.Keys(result.Parameters)
	}))
	sort.Strings(names)
	return names
}

func row(rank int, result *Result, params []string) []string {
	values := []string{strconv.Itoa(rank)}
	for _, name := range params {
		values = append(values, strconv.FormatFloat(result.Parameters[name], 'f', -1, 64))
	}
	for _, metric := range Metrics {
		values = append(values, strconv.FormatFloat(result.Metrics[metric], 'f', 2, 64))
	}
	return values
}

func header(params []string) []string {
	columns := append([]string{"rank"}, params...)
	for _, metric := range Metrics {
		columns = append(columns, string(metric))
	}
	return columns
}

// WriteCSV writes results in their current order, one row per result
func WriteCSV(w io.Writer, results []*Result) error {
	params := parameterNames(results)

	writer := csv.NewWriter(w)
	if err := writer.Write(header(params)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, result := range results {
		if err := writer.Write(row(i+1, result, params)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// PrintResults renders results as a text table
func PrintResults(w io.Writer, results []*Result) {
	params := parameterNames(results)

	table := tablewriter.NewWriter(w)
	table.SetHeader(lo.Map(header(params), func(column string, _ int) string {
		return strings.ReplaceAll(column, "_", " ")
	}))
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, result := range results {
		table.Append(row(i+1, result, params))
	}
	table.Render()
}
