package optimizer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stopLossEvaluator rewards wide stops, so the best set has the largest one
type stopLossEvaluator struct {
	calls atomic.Int32
	err   error
}

func (s *stopLossEvaluator) Evaluate(_ context.Context, params ParameterSet) (*Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &Result{
		Parameters: params,
		Metrics: map[MetricName]float64{
			MetricProfit:   params[ParamStopLoss] * 100,
			MetricDrawdown: -params[ParamStopLoss],
		},
	}, nil
}

func TestParameterSet(t *testing.T) {
	set := ParameterSet{ParamStopLoss: 1.5, ParamLeverage: 3}
	assert.Equal(t, "{leverage: 3, stop_loss: 1.5}", set.String())

	params := set.Apply(simulation.DefaultParams())
	assert.Equal(t, 3.0, params.Leverage)
	assert.Equal(t, 1.5, params.StopLoss)
	assert.Equal(t, simulation.DefaultTakeProfit, params.TakeProfit)
	assert.Equal(t, simulation.DefaultBudget, params.Budget)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, NewConfig().Validate())

	tests := map[string]*Config{
		"no parameters":  NewConfig().WithParameters(),
		"inverted range": NewConfig().WithParameters(Parameter{Name: ParamLeverage, Min: 5, Max: 1}),
		"negative step":  NewConfig().WithParameters(Parameter{Name: ParamLeverage, Min: 1, Max: 5, Step: -1}),
		"unknown metric": NewConfig().WithTargetMetric("luck", true),
		"no iterations":  NewConfig().WithMaxIterations(0),
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, config.Validate(), ErrInvalidParameter)
		})
	}
}

func TestRandomSearch_Optimize(t *testing.T) {
	config := NewConfig().
		WithParameters(Parameter{Name: ParamStopLoss, Min: 0.5, Max: 5, Step: 0.5}).
		WithMaxIterations(40).
		WithParallelism(4).
		WithTopN(3)

	search, err := NewRandomSearch(config, core.NewRand(11))
	require.NoError(t, err)

	evaluator := &stopLossEvaluator{}
	results, err := search.Optimize(context.Background(), evaluator)
	require.NoError(t, err)

	assert.EqualValues(t, 40, evaluator.calls.Load())
	require.Len(t, results, 3)
	for i, result := range results {
		stop := result.Parameters[ParamStopLoss]
		assert.GreaterOrEqual(t, stop, 0.5)
		assert.LessOrEqual(t, stop, 5.0)
		assert.InDelta(t, 0, stop*2-float64(int(stop*2)), 1e-9, "snapped to the step")
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Metrics[MetricProfit], result.Metrics[MetricProfit])
		}
		assert.Positive(t, result.Duration)
	}
}

func TestRandomSearch_Minimize(t *testing.T) {
	config := NewConfig().
		WithParameters(Parameter{Name: ParamStopLoss, Min: 1, Max: 2}).
		WithMaxIterations(10).
		WithTargetMetric(MetricDrawdown, false).
		WithTopN(0)

	search, err := NewRandomSearch(config, core.NewSequence(0, 0.5, 0.99))
	require.NoError(t, err)

	results, err := search.Optimize(context.Background(), &stopLossEvaluator{})
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Equal(t, 1.99, results[0].Parameters[ParamStopLoss])
	assert.Equal(t, 1.0, results[9].Parameters[ParamStopLoss])
}

func TestRandomSearch_EvaluatorError(t *testing.T) {
	search, err := NewRandomSearch(NewConfig().WithMaxIterations(5), core.NewRand(1))
	require.NoError(t, err)

	_, err = search.Optimize(context.Background(), &stopLossEvaluator{err: errors.New("boom")})
	require.EqualError(t, err, "boom")
}

func TestSessionEvaluator(t *testing.T) {
	strategy := core.Strategy{ID: 1, Name: "Conservative Grid", WinRate: 85}
	base := simulation.DefaultParams()
	base.WinRate = strategy.WinRate

	newRand := func() core.Rand { return core.NewRand(99) }
	evaluator := NewSessionEvaluator(strategy, base, nil, 30, newRand)

	set := ParameterSet{ParamLeverage: 2, ParamStopLoss: 1}
	first, err := evaluator.Evaluate(context.Background(), set)
	require.NoError(t, err)
	second, err := evaluator.Evaluate(context.Background(), set)
	require.NoError(t, err)

	assert.Equal(t, 30.0, first.Metrics[MetricTradeCount])
	assert.Equal(t, first.Metrics[MetricProfit], second.Metrics[MetricProfit], "same draws, same outcome")
	assert.LessOrEqual(t, first.Metrics[MetricDrawdown], 0.0)
	assert.GreaterOrEqual(t, first.Metrics[MetricDrawdown], -1.0, "losses are bounded by the stop")

	doubled, err := evaluator.Evaluate(context.Background(), ParameterSet{ParamLeverage: 4, ParamStopLoss: 1})
	require.NoError(t, err)
	assert.InDelta(t, first.Metrics[MetricProfit]*2, doubled.Metrics[MetricProfit], 1e-6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = evaluator.Evaluate(ctx, set)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteCSV(t *testing.T) {
	results := []*Result{
		{Parameters: ParameterSet{ParamStopLoss: 2, ParamLeverage: 1}, Metrics: map[MetricName]float64{MetricProfit: 12.346}},
		{Parameters: ParameterSet{ParamStopLoss: 1, ParamLeverage: 3}, Metrics: map[MetricName]float64{MetricProfit: 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"rank", "leverage", "stop_loss", "profit"}, records[0][:4])
	assert.Equal(t, []string{"1", "1", "2", "12.35"}, records[1][:4])
	assert.Equal(t, []string{"2", "3", "1", "3.00"}, records[2][:4])

	var table bytes.Buffer
	PrintResults(&table, results)
	assert.Contains(t, table.String(), "STOP LOSS")
}
