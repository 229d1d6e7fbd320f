// Package optimizer searches the risk parameters of a strategy for the
// combination that performs best over simulated sessions.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/samber/lo"
)

// Names of the tunable session parameters
const (
	ParamLeverage     = "leverage"
	ParamPositionSize = "position_size"
	ParamStopLoss     = "stop_loss"
	ParamTakeProfit   = "take_profit"
)

var ErrInvalidParameter = errors.New("invalid parameter")

// Parameter is a tunable session parameter and the range it is drawn from.
// A positive Step snaps drawn values to Min + k*Step.
type Parameter struct {
	Name        string
	Description string
	Min         float64
	Max         float64
	Step        float64
}

// DefaultParameters covers the ranges the launch form accepts
func DefaultParameters() []Parameter {
	return []Parameter{
		{Name: ParamLeverage, Description: "Leverage", Min: 1, Max: 10, Step: 1},
		{Name: ParamPositionSize, Description: "Position size in percent", Min: 5, Max: 50, Step: 5},
		{Name: ParamStopLoss, Description: "Stop loss in percent", Min: 0.5, Max: 5, Step: 0.5},
		{Name: ParamTakeProfit, Description: "Take profit in percent", Min: 1, Max: 10, Step: 0.5},
	}
}

// ParameterSet holds one value per parameter name
type ParameterSet map[string]float64

// Apply overrides the matching fields of base
func (p ParameterSet) Apply(base simulation.Params) simulation.Params {
	if v, ok := p[ParamLeverage]; ok {
		base.Leverage = v
	}
	if v, ok := p[ParamPositionSize]; ok {
		base.PositionSize = v
	}
	if v, ok := p[ParamStopLoss]; ok {
		base.StopLoss = v
	}
	if v, ok := p[ParamTakeProfit]; ok {
		base.TakeProfit = v
	}
	return base
}

// String formats the set with sorted keys, e.g. {leverage: 2, stop_loss: 1.5}
func (p ParameterSet) String() string {
	keys := lo.Keys(p)
	sort.Strings(keys)

	parts := lo.Map(keys, func(key string, _ int) string {
		return fmt.Sprintf("%s: %g", key, p[key])
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

// MetricName identifies a performance metric of an evaluation
type MetricName string

const (
	MetricProfit       MetricName = "profit"
	MetricReturn       MetricName = "return"
	MetricWinRate      MetricName = "win_rate"
	MetricPayoff       MetricName = "payoff"
	MetricProfitFactor MetricName = "profit_factor"
	MetricSQN          MetricName = "sqn"
	MetricDrawdown     MetricName = "drawdown"
	MetricTradeCount   MetricName = "trade_count"
)

// Metrics lists every metric an evaluation reports, in display order
var Metrics = []MetricName{
	MetricProfit, MetricReturn, MetricWinRate, MetricPayoff,
	MetricProfitFactor, MetricSQN, MetricDrawdown, MetricTradeCount,
}

// Result is the outcome of a single evaluation
type Result struct {
	Parameters ParameterSet
	Metrics    map[MetricName]float64
	Duration   time.Duration
}

// Evaluator scores a parameter set
type Evaluator interface {
	Evaluate(ctx context.Context, params ParameterSet) (*Result, error)
}

// Config holds configuration for the optimization process
type Config struct {
	Parameters    []Parameter
	MaxIterations int
	Parallelism   int
	Logger        logger.Logger
	TargetMetric  MetricName
	Maximize      bool
	TopN          int
}

// NewConfig creates a default configuration
func NewConfig() *Config {
	return &Config{
		Parameters:    DefaultParameters(),
		MaxIterations: 100,
		Parallelism:   1,
		TargetMetric:  MetricProfit,
		Maximize:      true,
		TopN:          5,
	}
}

// WithParameters replaces the parameters to optimize
func (c *Config) WithParameters(params ...Parameter) *Config {
	c.Parameters = params
	return c
}

// WithMaxIterations sets the maximum number of iterations
func (c *Config) WithMaxIterations(iterations int) *Config {
	c.MaxIterations = iterations
	return c
}

// WithParallelism sets the number of parallel evaluations
func (c *Config) WithParallelism(n int) *Config {
	c.Parallelism = n
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger logger.Logger) *Config {
	c.Logger = logger
	return c
}

// WithTargetMetric sets the target metric to optimize
func (c *Config) WithTargetMetric(metric MetricName, maximize bool) *Config {
	c.TargetMetric = metric
	c.Maximize = maximize
	return c
}

// WithTopN sets the number of top results to return
func (c *Config) WithTopN(n int) *Config {
	c.TopN = n
	return c
}

// Validate checks the ranges and the target metric
func (c *Config) Validate() error {
	if len(c.Parameters) == 0 {
		return fmt.Errorf("%w: at least one parameter must be provided", ErrInvalidParameter)
	}
	for _, param := range c.Parameters {
		if param.Min > param.Max {
			return fmt.Errorf("%w: %s min %g is above max %g", ErrInvalidParameter, param.Name, param.Min, param.Max)
		}
		if param.Step < 0 {
			return fmt.Errorf("%w: %s step must not be negative", ErrInvalidParameter, param.Name)
		}
	}
	if !lo.Contains(Metrics, c.TargetMetric) {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, c.TargetMetric)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive", ErrInvalidParameter)
	}
	return nil
}

// SortResults orders results by metric, best first
func SortResults(results []*Result, metric MetricName, maximize bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Metrics[metric], results[j].Metrics[metric]
		if maximize {
			return a > b
		}
		return a < b
	})
}
