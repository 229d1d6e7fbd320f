// Package deploy simulates rolling a strategy out to a live exchange: a
// progress bar, drifting account metrics and a stream of execution logs.
package deploy

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/simulation"
)

const (
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultMetricsInterval  = 2 * time.Second
	DefaultLogInterval      = 5 * time.Second
	DefaultLogCap           = 100
	InitialBalance          = 10000.0

	progressStep = 10
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDeploying Status = "deploying"
	StatusDeployed  Status = "deployed"
	StatusStopped   Status = "stopped"
)

// LogEntry is one execution log line, Time is HH:MM:SS
type LogEntry struct {
	Time    string  `json:"time"`
	Message string  `json:"message"`
	Type    LogType `json:"type"`
}

// Metrics is the live account view of a deployed strategy
type Metrics struct {
	ActiveTrades int     `json:"activeTrades"`
	DailyPnL     float64 `json:"dailyPnL"`
	Uptime       string  `json:"uptime"`
	TotalTrades  int     `json:"totalTrades"`
	Balance      float64 `json:"balance"`
	Equity       float64 `json:"equity"`
}

// MockResults summarises the simulation that preceded the deployment
type MockResults struct {
	PnL             float64 `json:"pnl"`
	Trades          int     `json:"trades"`
	WinRate         float64 `json:"winRate"`
	EstimatedReturn float64 `json:"estimatedReturn"`
}

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventMetrics  EventKind = "metrics"
	EventLog      EventKind = "log"
)

// Event is delivered to subscribers on every state change
type Event struct {
	Kind     EventKind `json:"kind"`
	Status   Status    `json:"status"`
	Progress int       `json:"progress"`
	Metrics  Metrics   `json:"metrics"`
	Log      *LogEntry `json:"log,omitempty"`
}

// State is a copy of the deployment state
type State struct {
	Strategy core.Strategy `json:"strategy"`
	Status   Status        `json:"status"`
	Progress int           `json:"progress"`
	Metrics  Metrics       `json:"metrics"`
	Logs     []LogEntry    `json:"logs"`
	Results  MockResults   `json:"results"`
}

// Deployment drives one simulated rollout
type Deployment struct {
	mu sync.Mutex

	strategy core.Strategy
	rng      core.Rand
	log      logger.Logger
	notifier core.Notifier
	now      func() time.Time

	progressEvery time.Duration
	metricsEvery  time.Duration
	logsEvery     time.Duration
	logCap        int

	status     Status
	progress   int
	metrics    Metrics
	logs       []LogEntry
	results    MockResults
	deployedAt time.Time

	subscribers []func(Event)

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Deployment
type Option func(*Deployment)

// WithIntervals overrides the progress, metrics and log intervals
func WithIntervals(progress, metrics, logs time.Duration) Option {
	return func(d *Deployment) {
		if progress > 0 {
			d.progressEvery = progress
		}
		if metrics > 0 {
			d.metricsEvery = metrics
		}
		if logs > 0 {
			d.logsEvery = logs
		}
	}
}

func WithLogCap(limit int) Option {
	return func(d *Deployment) {
		if limit > 0 {
			d.logCap = limit
		}
	}
}

// WithNotifier forwards every execution log
func WithNotifier(notifier core.Notifier) Option {
	return func(d *Deployment) { d.notifier = notifier }
}

// WithSession takes the mock results from a finished simulation
func WithSession(snapshot simulation.Snapshot) Option {
	return func(d *Deployment) { d.results = ResultsFromSnapshot(snapshot) }
}

// WithResults sets the mock results directly
func WithResults(results MockResults) Option {
	return func(d *Deployment) { d.results = results }
}

func WithClock(now func() time.Time) Option {
	return func(d *Deployment) { d.now = now }
}

func New(strategy core.Strategy, rng core.Rand, log logger.Logger, options ...Option) *Deployment {
	d := &Deployment{
		strategy:      strategy,
		rng:           rng,
		log:           log,
		now:           time.Now,
		progressEvery: DefaultProgressInterval,
		metricsEvery:  DefaultMetricsInterval,
		logsEvery:     DefaultLogInterval,
		logCap:        DefaultLogCap,
		status:        StatusPending,
		metrics:       Metrics{Uptime: "0h 0m", Balance: InitialBalance, Equity: InitialBalance},
		stop:          make(chan struct{}),
	}
	d.results = RandomResults(rng)

	for _, option := range options {
		option(d)
	}
	return d
}

// ResultsFromSnapshot reads the mock results of a simulation session
func ResultsFromSnapshot(snapshot simulation.Snapshot) MockResults {
	return ResultsFromAggregates(snapshot.Aggregates)
}

func ResultsFromAggregates(aggregates core.Aggregates) MockResults {
	return MockResults{
		PnL:             aggregates.TotalPnL,
		Trades:          aggregates.TotalTrades,
		WinRate:         aggregates.WinRate,
		EstimatedReturn: aggregates.EstimatedReturn,
	}
}

// RandomResults stands in when no simulation ran before deploying
func RandomResults(rng core.Rand) MockResults {
	return MockResults{
		PnL:             rng.Float64()*1000 - 200,
		Trades:          int(math.Floor(rng.Float64()*50)) + 10,
		WinRate:         rng.Float64()*30 + 60,
		EstimatedReturn: rng.Float64()*25 + 5,
	}
}

// Subscribe registers fn for every future event. It must not block.
func (d *Deployment) Subscribe(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// Run deploys and then keeps the metrics and logs moving until ctx is done
// or Stop is called.
func (d *Deployment) Run(ctx context.Context) error {
	d.Begin()

	progress := time.NewTicker(d.progressEvery)
	defer progress.Stop()

	for d.State().Status == StatusDeploying {
		select {
		case <-ctx.Done():
			d.finish()
			return ctx.Err()
		case <-d.stop:
			d.finish()
			return nil
		case <-progress.C:
			d.Advance()
		}
	}

	metrics := time.NewTicker(d.metricsEvery)
	defer metrics.Stop()
	logs := time.NewTicker(d.logsEvery)
	defer logs.Stop()

	for {
		select {
		case <-ctx.Done():
			d.finish()
			return ctx.Err()
		case <-d.stop:
			d.finish()
			return nil
		case <-metrics.C:
			d.StepMetrics()
		case <-logs.C:
			d.AppendLog()
		}
	}
}

// Stop ends Run
func (d *Deployment) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// Begin starts the rollout with the initial execution logs
func (d *Deployment) Begin() {
	d.mu.Lock()
	if d.status != StatusPending {
		d.mu.Unlock()
		return
	}
	d.status = StatusDeploying

	now := d.now()
	entries := make([]LogEntry, 0, len(initialMessages))
	for _, text := range initialMessages {
		entries = append(entries, LogEntry{Time: clock(now), Message: text, Type: LogInfo})
	}
	d.appendLogs(entries...)
	d.mu.Unlock()

	for i := range entries {
		d.emit(Event{Kind: EventLog, Log: &entries[i]})
	}
	d.log.WithField("strategy", d.strategy.Name).Info("deployment started")
}

// Advance moves the progress by one step, completing the deployment at 100
func (d *Deployment) Advance() {
	d.mu.Lock()
	if d.status != StatusDeploying {
		d.mu.Unlock()
		return
	}
	d.progress = min(100, d.progress+progressStep)
	if d.progress == 100 {
		d.status = StatusDeployed
		d.deployedAt = d.now()
	}
	d.mu.Unlock()

	d.emit(Event{Kind: EventProgress})
	if d.State().Status == StatusDeployed {
		d.log.WithField("strategy", d.strategy.Name).Info("strategy deployed")
	}
}

// StepMetrics applies one random drift to the account metrics
func (d *Deployment) StepMetrics() {
	d.mu.Lock()
	if d.status != StatusDeployed {
		d.mu.Unlock()
		return
	}

	m := d.metrics
	pnlChange := (d.rng.Float64() - 0.4) * 20
	m.ActiveTrades = max(0, m.ActiveTrades+int(math.Floor(d.rng.Float64()*3-1)))
	if d.rng.Float64() > 0.7 {
		m.TotalTrades++
	}
	m.Balance += pnlChange
	m.DailyPnL += pnlChange
	m.Equity = m.Balance * (1 + d.rng.Float64()*0.05)
	m.Uptime = uptime(d.now().Sub(d.deployedAt))
	d.metrics = m
	d.mu.Unlock()

	d.emit(Event{Kind: EventMetrics})
}

// AppendLog adds one random execution log line
func (d *Deployment) AppendLog() LogEntry {
	d.mu.Lock()
	logType := logTypes[pick(d.rng, len(logTypes))]
	messages := messagesByType[logType]
	entry := LogEntry{
		Time:    clock(d.now()),
		Message: messages[pick(d.rng, len(messages))](d.strategy.Name, d.rng),
		Type:    logType,
	}
	d.appendLogs(entry)
	d.mu.Unlock()

	d.emit(Event{Kind: EventLog, Log: &entry})
	return entry
}

// appendLogs must run with mu held
func (d *Deployment) appendLogs(entries ...LogEntry) {
	d.logs = append(d.logs, entries...)
	if len(d.logs) > d.logCap {
		d.logs = append([]LogEntry(nil), d.logs[len(d.logs)-d.logCap:]...)
	}
}

func (d *Deployment) finish() {
	d.mu.Lock()
	d.status = StatusStopped
	d.mu.Unlock()
	d.log.WithField("strategy", d.strategy.Name).Info("deployment stopped")
}

func (d *Deployment) emit(event Event) {
	d.mu.Lock()
	event.Status = d.status
	event.Progress = d.progress
	event.Metrics = d.metrics
	subscribers := append([]func(Event){}, d.subscribers...)
	d.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}

	if event.Log != nil && d.notifier != nil {
		d.notifier.Notify(fmt.Sprintf("[%s] %s %s", event.Log.Type, event.Log.Time, event.Log.Message))
	}
}

// State returns a copy of the deployment state
func (d *Deployment) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return State{
		Strategy: d.strategy,
		Status:   d.status,
		Progress: d.progress,
		Metrics:  d.metrics,
		Logs:     append([]LogEntry(nil), d.logs...),
		Results:  d.results,
	}
}

func clock(t time.Time) string {
	return t.Format("15:04:05")
}

func uptime(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("%dh %dm", int(elapsed.Hours()), int(elapsed.Minutes())%60)
}
