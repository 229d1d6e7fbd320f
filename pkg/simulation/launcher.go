package simulation

import (
	"context"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/exchange/okx"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/strategy"
)

// DefaultTimeframe is the candle interval sessions are seeded with
const DefaultTimeframe = "1h"

// Request is the launch form of a session. Numeric fields stay strings so
// that anything unparsable falls back to its default.
type Request struct {
	StrategyID   int    `json:"strategyId"`
	Budget       string `json:"budget"`
	Leverage     string `json:"leverage"`
	PositionSize string `json:"positionSize"`
	StopLoss     string `json:"stopLoss"`
	TakeProfit   string `json:"takeProfit"`
	Timeframe    string `json:"timeframe"`
	Start        bool   `json:"start"`
}

// Launcher builds sessions from launch requests and registers them on a manager
type Launcher struct {
	log       logger.Logger
	manager   *Manager
	catalog   *strategy.Catalog
	selection core.Storage
	candles   core.CandleSource
	timeframe string
	limit     int
	newRand   func() core.Rand
	options   []Option
}

// LauncherOption configures a Launcher
type LauncherOption func(*Launcher)

// WithCandles sets where sessions take their initial candles from, at which
// timeframe and how many
func WithCandles(source core.CandleSource, timeframe string, limit int) LauncherOption {
	return func(l *Launcher) {
		l.candles = source
		if timeframe != "" {
			l.timeframe = timeframe
		}
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithRandSource sets the randomness factory, called once per session
func WithRandSource(newRand func() core.Rand) LauncherOption {
	return func(l *Launcher) {
		l.newRand = newRand
	}
}

// WithSelectionStore reads the selected strategy when a request names none
func WithSelectionStore(storage core.Storage) LauncherOption {
	return func(l *Launcher) {
		l.selection = storage
	}
}

// WithSessionOptions are applied to every launched session
func WithSessionOptions(options ...Option) LauncherOption {
	return func(l *Launcher) {
		l.options = append(l.options, options...)
	}
}

func NewLauncher(log logger.Logger, manager *Manager, catalog *strategy.Catalog, options ...LauncherOption) *Launcher {
	l := &Launcher{
		log:       log,
		manager:   manager,
		catalog:   catalog,
		timeframe: DefaultTimeframe,
		limit:     DefaultWindow,
		newRand:   func() core.Rand { return core.NewRand(0) },
	}
	for _, option := range options {
		option(l)
	}
	if l.candles == nil {
		l.candles = exchange.NewSeedGenerator(l.newRand())
	}
	return l
}

func (l *Launcher) Catalog() *strategy.Catalog { return l.catalog }

func (l *Launcher) Manager() *Manager { return l.manager }

// Strategy resolves the requested strategy, then the stored selection, then
// the first default
func (l *Launcher) Strategy(id int) (core.Strategy, error) {
	if id != 0 {
		return l.catalog.ByID(id)
	}

	if l.selection != nil {
		if selected, err := l.selection.SelectedStrategy(); err == nil {
			return selected, nil
		}
	}

	defaults := l.catalog.Default()
	if len(defaults) == 0 {
		return core.Strategy{}, core.ErrNotFound
	}
	return defaults[0], nil
}

// Launch creates a session seeded with candles of the strategy's token and
// registers it. Candle failures are logged and the session starts from a
// random base price instead.
func (l *Launcher) Launch(ctx context.Context, req Request) (*Session, error) {
	selected, err := l.Strategy(req.StrategyID)
	if err != nil {
		return nil, err
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = l.timeframe
	}

	symbol := strategy.TokenFor(selected)
	candles, err := l.candles.CandlesByLimit(ctx, symbol, okx.Timeframe(timeframe), l.limit)
	if err != nil {
		l.log.WithError(err).Warnf("failed to load candles for %s, starting from a base price", symbol)
		candles = nil
	}

	params := ParseParams(req.Budget, req.Leverage, req.PositionSize, req.StopLoss, req.TakeProfit, selected.WinRate)
	options := append([]Option{WithStrategy(selected), WithLogger(l.log)}, l.options...)

	session := NewSession(params, candles, l.newRand(), options...)
	l.manager.Add(session)

	l.log.WithFields(logger.Fields{
		"session":  session.ID(),
		"strategy": selected.Name,
		"symbol":   symbol,
		"candles":  len(candles),
	}).Info("session created")

	if req.Start {
		session.Start()
	}
	return session, nil
}
