// Package metrics exposes Prometheus instrumentation for the polling engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition directions
const (
	DirectionStart = "start"
	DirectionEnd   = "end"
)

// Metrics holds the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	polls              prometheus.Counter
	pollDuration       prometheus.Histogram
	skippedTicks       prometheus.Counter
	transitions        *prometheus.CounterVec
	callbackFailures   *prometheus.CounterVec
	collectionFailures *prometheus.CounterVec
	detections         *prometheus.CounterVec
	active             prometheus.Gauge
}

// New registers the meetsense collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		polls: f.NewCounter(prometheus.CounterOpts{
			Name: "meetsense_polls_total",
			Help: "Completed detection polls",
		}),
		pollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetsense_poll_duration_seconds",
			Help:    "Time spent collecting signals and evaluating one poll",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		skippedTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "meetsense_skipped_ticks_total",
			Help: "Ticks dropped because the previous poll was still running",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsense_transitions_total",
			Help: "Meeting state transitions, partitioned by direction",
		}, []string{"direction"}),
		callbackFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsense_callback_failures_total",
			Help: "Listener invocations that panicked, partitioned by event",
		}, []string{"event"}),
		collectionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsense_collection_failures_total",
			Help: "Signal collector calls that failed, partitioned by signal",
		}, []string{"signal"}),
		detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsense_detections_total",
			Help: "Poll verdicts, partitioned by reason",
		}, []string{"reason"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "meetsense_meeting_active",
			Help: "1 while a meeting is detected, 0 otherwise",
		}),
	}
}

// ObservePoll records a completed poll
func (m *Metrics) ObservePoll(d time.Duration, reason string, active bool) {
	if m == nil {
		return
	}
	m.polls.Inc()
	m.pollDuration.Observe(d.Seconds())
	m.detections.WithLabelValues(reason).Inc()
	if active {
		m.active.Set(1)
	} else {
		m.active.Set(0)
	}
}

// TickSkipped records a tick dropped by the skip-if-busy policy
func (m *Metrics) TickSkipped() {
	if m == nil {
		return
	}
	m.skippedTicks.Inc()
}

// Transition records a start or end edge
func (m *Metrics) Transition(direction string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(direction).Inc()
}

// CallbackFailed records a panicking listener
func (m *Metrics) CallbackFailed(event string) {
	if m == nil {
		return
	}
	m.callbackFailures.WithLabelValues(event).Inc()
}

// CollectionFailed records a failed collector call
func (m *Metrics) CollectionFailed(signal string) {
	if m == nil {
		return
	}
	m.collectionFailures.WithLabelValues(signal).Inc()
}
