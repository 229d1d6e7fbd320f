package market

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
)

// ErrNoPrices is returned when every source came back empty
var ErrNoPrices = errors.New("no prices available")

const DefaultPollInterval = 10 * time.Second

// FetchFunc produces one batch of aggregated prices
type FetchFunc func(ctx context.Context) ([]core.AggregatedPrice, error)

// FromAggregator adapts an aggregator, treating an empty batch as a failure
func FromAggregator(aggregator *Aggregator) FetchFunc {
	return func(ctx context.Context) ([]core.AggregatedPrice, error) {
		prices := aggregator.Aggregate(ctx)
		if len(prices) == 0 {
			return nil, ErrNoPrices
		}
		return prices, nil
	}
}

// Poller calls a FetchFunc at a fixed interval and backs off after failures
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	backoff  *backoff.Backoff
	log      logger.Logger
}

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithBackoff sets the failure wait bounds
func WithBackoff(min, max time.Duration) PollerOption {
	return func(p *Poller) {
		p.backoff = &backoff.Backoff{Min: min, Max: max, Factor: 2}
	}
}

func NewPoller(log logger.Logger, fetch FetchFunc, interval time.Duration, options ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p := &Poller{
		fetch:    fetch,
		interval: interval,
		log:      log,
		backoff: &backoff.Backoff{
			Min: 100 * time.Millisecond,
			Max: 1 * time.Second,
		},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run polls until ctx is done, handing every successful batch to consumer
func (p *Poller) Run(ctx context.Context, consumer func([]core.AggregatedPrice)) error {
	for {
		wait := p.interval

		prices, err := p.fetch(ctx)
		if err != nil {
			wait = p.backoff.Duration()
			p.log.WithError(err).Warnf("price poll failed, retrying in %s", wait)
		} else {
			p.backoff.Reset()
			consumer(prices)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
