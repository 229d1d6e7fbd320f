// Package simulation runs synthetic trading sessions: a random price walk,
// random trade outcomes weighted by a strategy win rate and running statistics.
package simulation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/logger/zerolog"
	"github.com/raykavin/tradesim/pkg/metric"
)

const (
	DefaultTickInterval = time.Second
	DefaultTradeLogCap  = 500

	// priceStep scales the per-tick volatility draw
	priceStep = 0.001
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// Snapshot is a deep copy of the session state
type Snapshot struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	Strategy   core.Strategy     `json:"strategy"`
	Params     Params            `json:"params"`
	Price      float64           `json:"price"`
	Candles    core.Candles      `json:"candles"`
	Trades     []core.TradeEvent `json:"trades"`
	Aggregates core.Aggregates   `json:"aggregates"`
}

// Session owns the candle buffer, trade log and aggregates of one simulation.
// All mutable state is guarded by mu and every tick reads it fresh.
type Session struct {
	mu sync.Mutex

	id       string
	strategy core.Strategy
	params   Params
	rng      core.Rand
	updater  *CandleUpdater
	feed     *Feed

	log      logger.Logger
	storage  core.Storage
	notifier core.Notifier
	metrics  *metric.Collector
	now      func() time.Time

	tickInterval time.Duration
	logCap       int

	status     Status
	disposed   bool
	price      float64
	candles    core.Candles
	trades     []core.TradeEvent
	aggregates core.Aggregates

	finish chan struct{}
	done   chan struct{}
}

// Option configures a Session
type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

func WithStrategy(strategy core.Strategy) Option {
	return func(s *Session) { s.strategy = strategy }
}

func WithTickInterval(interval time.Duration) Option {
	return func(s *Session) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithTradeLogCap bounds the trade log kept for display. Aggregates still
// cover every trade.
func WithTradeLogCap(limit int) Option {
	return func(s *Session) {
		if limit > 0 {
			s.logCap = limit
		}
	}
}

// WithRollover sets the candle rollover threshold and window
func WithRollover(threshold time.Duration, window int) Option {
	return func(s *Session) { s.updater = NewCandleUpdater(s.rng, threshold, window) }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithStorage journals every trade
func WithStorage(storage core.Storage) Option {
	return func(s *Session) { s.storage = storage }
}

func WithNotifier(notifier core.Notifier) Option {
	return func(s *Session) { s.notifier = notifier }
}

func WithMetrics(metrics *metric.Collector) Option {
	return func(s *Session) { s.metrics = metrics }
}

// WithClock overrides the clock used by the ticker goroutine
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an idle session over the initial candles. The current
// price starts at the last close, or at a random base when there is none.
func NewSession(params Params, candles []core.Candle, rng core.Rand, options ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		params:       params,
		rng:          rng,
		feed:         NewFeed(),
		log:          zerolog.NewNop(),
		now:          time.Now,
		tickInterval: DefaultTickInterval,
		logCap:       DefaultTradeLogCap,
		status:       StatusIdle,
	}
	s.updater = NewCandleUpdater(rng, FastRollover, DefaultWindow)

	for _, option := range options {
		option(s)
	}

	s.candles = core.Candles(s.updater.Trim(candles)).Clone()
	if last, ok := s.candles.Last(); ok {
		s.price = last.Close
	} else {
		s.price = s.basePrice()
	}
	s.log = s.log.WithField("session", s.id)

	return s
}

func (s *Session) ID() string { return s.id }

// Feed publishes one TickEvent per step
func (s *Session) Feed() *Feed { return s.feed }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start arms the ticker. It is a no-op when already running or disposed.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || s.status == StatusRunning {
		return
	}

	s.status = StatusRunning
	s.finish = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.tickInterval, s.finish, s.done)

	s.log.Info("simulation started")
}

func (s *Session) run(interval time.Duration, finish <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(s.now())
		case <-finish:
			return
		}
	}
}

// Pause disarms the ticker and keeps the state. It returns once the ticker
// goroutine has exited, so no tick runs afterwards.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}
	s.status = StatusIdle
	finish, done := s.finish, s.done
	s.finish, s.done = nil, nil
	s.mu.Unlock()

	close(finish)
	<-done

	s.log.Info("simulation paused")
}

// Reset stops the session, clears the trade log, zeroes the aggregates and
// draws a fresh base price. The candle buffer is kept.
func (s *Session) Reset() {
	s.Pause()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = nil
	s.aggregates = core.Aggregates{}
	s.price = s.basePrice()
}

// Dispose stops the session for good and closes its feed
func (s *Session) Dispose() {
	s.Pause()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	s.feed.Close()
	s.log.Debug("simulation disposed")
}

// Tick runs one step at now if the session is running
func (s *Session) Tick(now time.Time) (TickEvent, bool) {
	s.mu.Lock()
	if s.status != StatusRunning || s.disposed {
		s.mu.Unlock()
		return TickEvent{}, false
	}
	event := s.step(now)
	s.mu.Unlock()

	s.publish(event)
	return event, true
}

// Step runs one step at now regardless of the state. It fails only once
// the session is disposed.
func (s *Session) Step(now time.Time) (TickEvent, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return TickEvent{}, core.ErrSessionDisposed
	}
	event := s.step(now)
	s.mu.Unlock()

	s.publish(event)
	return event, nil
}

// step must run with mu held. The draws happen in a fixed order: volatility,
// win, outcome percentage and then the candle volume.
func (s *Session) step(now time.Time) TickEvent {
	volatility := core.Uniform(s.rng, -1, 1)
	price := s.price + s.price*volatility*priceStep

	isWin := s.rng.Float64() < s.params.WinRate/100
	size := s.params.TradeSize()

	trade := core.TradeEvent{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Timestamp: now,
		Size:      size,
		Type:      core.TradeTypeLoss,
	}
	if isWin {
		trade.Type = core.TradeTypeWin
		trade.Percent = s.rng.Float64() * s.params.TakeProfit
	} else {
		trade.Percent = -(s.rng.Float64() * s.params.StopLoss)
	}
	trade.PnL = size * trade.Percent / 100

	s.trades = append(s.trades, trade)
	if len(s.trades) > s.logCap {
		n := copy(s.trades, s.trades[len(s.trades)-s.logCap:])
		s.trades = s.trades[:n]
	}
	s.aggregates = s.aggregates.Fold(trade, s.params.Budget)

	var rolled bool
	s.price = price
	s.candles, rolled = s.updater.Apply(s.candles, price, now)
	last, _ := s.candles.Last()

	return TickEvent{
		SessionID:  s.id,
		Trade:      trade,
		Aggregates: s.aggregates,
		Price:      price,
		Candle:     last,
		Rolled:     rolled,
	}
}

// publish runs the hooks outside the lock so they may read the session
func (s *Session) publish(event TickEvent) {
	s.metrics.ObserveTrade(string(event.Trade.Type))

	if s.storage != nil {
		if err := s.storage.SaveTrade(event.Trade); err != nil {
			s.log.WithError(err).Warn("failed to persist trade")
		}
	}
	if s.notifier != nil {
		s.notifier.OnTrade(event.Trade)
	}

	s.feed.Publish(event)
}

// Snapshot returns a copy safe to read while the session runs
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := make([]core.TradeEvent, len(s.trades))
	copy(trades, s.trades)

	return Snapshot{
		ID:         s.id,
		Status:     s.status,
		Strategy:   s.strategy,
		Params:     s.params,
		Price:      s.price,
		Candles:    s.candles.Clone(),
		Trades:     trades,
		Aggregates: s.aggregates,
	}
}

func (s *Session) basePrice() float64 {
	return exchange.DefaultBasePrice + s.rng.Float64()*exchange.DefaultBaseBand
}
