package optimizer

import (
	"context"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/simulation"
)

// SessionEvaluator scores a parameter set with a headless session. Every
// evaluation replays the same random draws when newRand is seeded, so sets
// are compared on equal luck.
type SessionEvaluator struct {
	strategy core.Strategy
	base     simulation.Params
	candles  []core.Candle
	steps    int
	interval time.Duration
	newRand  func() core.Rand
}

// NewSessionEvaluator runs steps trades per evaluation over candles
func NewSessionEvaluator(strategy core.Strategy, base simulation.Params, candles []core.Candle, steps int, newRand func() core.Rand) *SessionEvaluator {
	return &SessionEvaluator{
		strategy: strategy,
		base:     base,
		candles:  candles,
		steps:    steps,
		interval: simulation.DefaultTickInterval,
		newRand:  newRand,
	}
}

// Evaluate implements Evaluator
func (e *SessionEvaluator) Evaluate(ctx context.Context, params ParameterSet) (*Result, error) {
	started := time.Now()

	session := simulation.NewSession(params.Apply(e.base), e.candles, e.newRand(),
		simulation.WithStrategy(e.strategy),
	)
	defer session.Dispose()

	now := time.Now()
	for i := 0; i < e.steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now = now.Add(e.interval)
		if _, err := session.Step(now); err != nil {
			return nil, err
		}
	}

	summary := simulation.NewSummary(session.Snapshot())
	return &Result{
		Parameters: params,
		Metrics: map[MetricName]float64{
			MetricProfit:       summary.Aggregates.TotalPnL,
			MetricReturn:       summary.Aggregates.EstimatedReturn,
			MetricWinRate:      summary.Aggregates.WinRate,
			MetricPayoff:       summary.Payoff(),
			MetricProfitFactor: summary.ProfitFactor(),
			MetricSQN:          summary.SQN(),
			MetricDrawdown:     summary.Aggregates.MaxDrawdown,
			MetricTradeCount:   float64(summary.Aggregates.TotalTrades),
		},
		Duration: time.Since(started),
	}, nil
}
