package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-level Prometheus view of the core's counters. The
// authoritative per-object counters (tool stats, worker performance
// counters, context cache hits) live on their owning components as atomics;
// Metrics mirrors the aggregate for scraping. All methods are nil-safe so
// components can run without metrics in tests.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	dispatches      *prometheus.CounterVec
	contextCache    *prometheus.CounterVec
}

// NewMetrics builds and registers the metric bundle on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "requests_total",
			Help:      "Processed analytics requests by terminal status.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "request_duration_seconds",
			Help:      "End-to-end ProcessRequest latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "tool_calls_total",
			Help:      "Tool handler invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "tool_duration_seconds",
			Help:      "Tool handler latency by tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "worker_dispatches_total",
			Help:      "Worker dispatches by worker and outcome.",
		}, []string{"worker", "outcome"}),
		contextCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "context_cache_events_total",
			Help:      "Context profile cache hits and misses.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.toolCalls, m.toolDuration, m.dispatches, m.contextCache)
	return m
}

// ObserveRequest records a completed request.
func (m *Metrics) ObserveRequest(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// ObserveTool records one tool handler invocation.
func (m *Metrics) ObserveTool(tool string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome(success)).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveDispatch records one worker dispatch.
func (m *Metrics) ObserveDispatch(worker string, success bool) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(worker, outcome(success)).Inc()
}

// ObserveContextCache records a cache hit or miss.
func (m *Metrics) ObserveContextCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.contextCache.WithLabelValues("hit").Inc()
	} else {
		m.contextCache.WithLabelValues("miss").Inc()
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
