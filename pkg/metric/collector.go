package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the prometheus series exported by tradesim. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry
	ticks    prometheus.Counter
	trades   *prometheus.CounterVec
	upstream *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	sessions prometheus.Gauge
}

// NewCollector registers every series on a private registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_ticks_total",
			Help: "Simulation ticks processed across all sessions.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradesim_trades_total",
			Help: "Simulated trades by outcome.",
		}, []string{"type"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradesim_upstream_requests_total",
			Help: "Requests sent to market data upstreams by source and status.",
		}, []string{"source", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradesim_http_request_duration_seconds",
			Help:    "Dashboard HTTP latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradesim_sessions_active",
			Help: "Simulation sessions currently tracked.",
		}),
	}

	c.registry.MustRegister(c.ticks, c.trades, c.upstream, c.latency, c.sessions)
	return c
}

// Registry exposes the registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// ObserveTrade counts one tick and its trade outcome
func (c *Collector) ObserveTrade(tradeType string) {
	if c == nil {
		return
	}
	c.ticks.Inc()
	c.trades.WithLabelValues(tradeType).Inc()
}

// ObserveUpstream counts one upstream call. Status 0 marks a transport error.
func (c *Collector) ObserveUpstream(source string, status int) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.upstream.WithLabelValues(source, label).Inc()
}

// ObserveRequest records the duration of one HTTP request
func (c *Collector) ObserveRequest(route string, started time.Time) {
	if c == nil {
		return
	}
	c.latency.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

// SetSessions updates the active session gauge
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.sessions.Set(float64(n))
}
