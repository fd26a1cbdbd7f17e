package lockcoordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label constants for metrics.
const (
	LabelBackend = "backend"
	LabelOutcome = "outcome"
)

// Outcome constants for acquisition attempts.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeRetried = "retried"
)

// Metrics provides Prometheus metrics for lock acquisition, renewal, and
// release. A nil *Metrics is valid and every method is a no-op on it, so
// the coordinator never branches on whether metrics are enabled.
type Metrics struct {
	acquireTotal   *prometheus.CounterVec
	acquireLatency *prometheus.HistogramVec
	stealTotal     *prometheus.CounterVec
	renewTotal     *prometheus.CounterVec
	releaseTotal   *prometheus.CounterVec

	registered bool
}

// NewMetrics creates and registers lock-coordinator metrics. If registry is
// nil, metrics are created but not registered (useful for tests).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "condlock",
				Subsystem: "coordinator",
				Name:      "acquire_total",
				Help:      "Total number of lock acquisition attempts by outcome",
			},
			[]string{LabelBackend, LabelOutcome},
		),
		acquireLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "condlock",
				Subsystem: "coordinator",
				Name:      "acquire_latency_seconds",
				Help:      "Time spent in Lock() until it returns",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{LabelBackend},
		),
		stealTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "condlock",
				Subsystem: "coordinator",
				Name:      "steal_total",
				Help:      "Total number of successful lock steals",
			},
			[]string{LabelBackend},
		),
		renewTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "condlock",
				Subsystem: "coordinator",
				Name:      "renew_total",
				Help:      "Total number of renewal attempts by outcome",
			},
			[]string{LabelBackend, LabelOutcome},
		),
		releaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "condlock",
				Subsystem: "coordinator",
				Name:      "release_total",
				Help:      "Total number of lock releases",
			},
			[]string{LabelBackend},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.acquireTotal,
			m.acquireLatency,
			m.stealTotal,
			m.renewTotal,
			m.releaseTotal,
		)
		m.registered = true
	}

	return m
}

// ObserveAcquire records an acquisition outcome.
func (m *Metrics) ObserveAcquire(backend, outcome string) {
	if m == nil {
		return
	}
	m.acquireTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveAcquireLatency records the duration of a Lock() call.
func (m *Metrics) ObserveAcquireLatency(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.acquireLatency.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveSteal records a successful steal.
func (m *Metrics) ObserveSteal(backend string) {
	if m == nil {
		return
	}
	m.stealTotal.WithLabelValues(backend).Inc()
}

// ObserveRenew records a renewal attempt outcome ("granted" on success,
// "denied" on ConditionalCheckFailed, "error" on any other backend error).
func (m *Metrics) ObserveRenew(backend, outcome string) {
	if m == nil {
		return
	}
	m.renewTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveRelease records a release.
func (m *Metrics) ObserveRelease(backend string) {
	if m == nil {
		return
	}
	m.releaseTotal.WithLabelValues(backend).Inc()
}

// Describe implements prometheus.Collector for composition into a parent
// registry's Describe pass.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil || !m.registered {
		return
	}
	m.acquireTotal.Describe(ch)
	m.acquireLatency.Describe(ch)
	m.stealTotal.Describe(ch)
	m.renewTotal.Describe(ch)
	m.releaseTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil || !m.registered {
		return
	}
	m.acquireTotal.Collect(ch)
	m.acquireLatency.Collect(ch)
	m.stealTotal.Collect(ch)
	m.renewTotal.Collect(ch)
	m.releaseTotal.Collect(ch)
}
