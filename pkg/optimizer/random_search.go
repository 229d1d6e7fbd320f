package optimizer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"golang.org/x/sync/errgroup"
)

// RandomSearch draws parameter sets uniformly from their ranges
type RandomSearch struct {
	config *Config
	rng    core.Rand
}

// NewRandomSearch creates a random search optimizer. The sets are drawn from
// rng before any evaluation starts, so a seeded rng gives the same sets
// whatever the parallelism.
func NewRandomSearch(config *Config, rng core.Rand) (*RandomSearch, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RandomSearch{config: config, rng: rng}, nil
}

// Optimize evaluates MaxIterations sets and returns the best TopN
func (r *RandomSearch) Optimize(ctx context.Context, evaluator Evaluator) ([]*Result, error) {
	sets := make([]ParameterSet, r.config.MaxIterations)
	for i := range sets {
		sets[i] = r.sample()
	}

	r.logf("Starting random search with %d iterations", len(sets))

	results := make([]*Result, 0, len(sets))
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(r.config.Parallelism, 1))

	for _, set := range sets {
		group.Go(func() error {
			started := time.Now()
			result, err := evaluator.Evaluate(ctx, set)
			if err != nil {
				return err
			}
			if result.Duration == 0 {
				result.Duration = time.Since(started)
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	SortResults(results, r.config.TargetMetric, r.config.Maximize)
	if r.config.TopN > 0 && len(results) > r.config.TopN {
		results = results[:r.config.TopN]
	}

	r.logf("Random search completed, best %s %.2f", r.config.TargetMetric, results[0].Metrics[r.config.TargetMetric])
	return results, nil
}

func (r *RandomSearch) sample() ParameterSet {
	set := make(ParameterSet, len(r.config.Parameters))
	for _, param := range r.config.Parameters {
		set[param.Name] = r.value(param)
	}
	return set
}

func (r *RandomSearch) value(param Parameter) float64 {
	v := core.Uniform(r.rng, param.Min, param.Max)
	if param.Step > 0 {
		v = param.Min + math.Round((v-param.Min)/param.Step)*param.Step
		v = math.Min(v, param.Max)
	}
	return core.Round(v, 4)
}

func (r *RandomSearch) logf(format string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Infof(format, args...)
	}
}
