// Package market aggregates spot prices from several upstreams and exposes
// them through JSON proxy handlers.
package market

import (
	"context"

	"github.com/StudioSol/set"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Query binds a price source to the ids it is asked for
type Query struct {
	Source core.PriceSource
	IDs    []string
}

// Aggregator fans out to every query and averages prices per symbol
type Aggregator struct {
	queries []Query
	log     logger.Logger
	now     func() int64
}

func NewAggregator(log logger.Logger, queries ...Query) *Aggregator {
	return &Aggregator{queries: queries, log: log, now: core.NowMillis}
}

// Fetch queries every source concurrently. A failing source is logged and
// skipped. The result keeps the query order.
func (a *Aggregator) Fetch(ctx context.Context) []core.Price {
	results := make([][]core.Price, len(a.queries))

	var g errgroup.Group
	for i, query := range a.queries {
		g.Go(func() error {
			prices, err := query.Source.Prices(ctx, query.IDs)
			if err != nil {
				a.log.WithError(err).WithField("source", query.Source.Name()).Warn("price source failed")
				return nil
			}
			results[i] = prices
			return nil
		})
	}
	_ = g.Wait()

	return lo.Flatten(results)
}

// Aggregate fetches and groups the prices
func (a *Aggregator) Aggregate(ctx context.Context) []core.AggregatedPrice {
	return Group(a.Fetch(ctx), a.now())
}

// Group merges quotes by base symbol in first-seen order. The price is the
// mean across exchanges; change and volume come from the first quote.
func Group(prices []core.Price, timestamp int64) []core.AggregatedPrice {
	symbols := set.NewLinkedHashSetString()
	bySymbol := make(map[string][]core.Price)

	for _, price := range prices {
		symbol := price.BaseSymbol()
		symbols.Add(symbol)
		bySymbol[symbol] = append(bySymbol[symbol], price)
	}

	aggregated := make([]core.AggregatedPrice, 0, symbols.Length())
	for symbol := range symbols.Iter() {
		quotes := bySymbol[symbol]
		first := quotes[0]

		change := first.Change24h
		if change == "" {
			change = "0.00"
		}

		byExchange := make(map[string]float64, len(quotes))
		for _, q := range quotes {
			byExchange[q.Exchange] = q.Price
		}

		aggregated = append(aggregated, core.AggregatedPrice{
			Symbol:           symbol,
			Price:            lo.SumBy(quotes, func(q core.Price) float64 { return q.Price }) / float64(len(quotes)),
			Change24h:        change,
			Volume24h:        first.Volume24h,
			Exchanges:        lo.Map(quotes, func(q core.Price, _ int) string { return q.Exchange }),
			PricesByExchange: byExchange,
			Timestamp:        timestamp,
		})
	}

	return aggregated
}
