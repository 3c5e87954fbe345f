// Package metrics exposes Prometheus counters for web steps. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by every step in the process.
type Metrics struct {
	entities        *prometheus.CounterVec   // by step
	requests        *prometheus.CounterVec   // by step, method, outcome
	requestDuration *prometheus.HistogramVec // by step, method
	skipped         *prometheus.CounterVec   // by step
}

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// New creates and registers the collectors on reg. A nil registry disables metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webstep",
			Name:      "entities_processed_total",
			Help:      "Payload items turned into requests",
		}, []string{"step"}),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webstep",
			Name:      "requests_total",
			Help:      "HTTP requests executed",
		}, []string{"step", "method", "outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webstep",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "method"}),

		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webstep",
			Name:      "messages_skipped_total",
			Help:      "Messages ignored because of the run-when cadence",
		}, []string{"step"}),
	}
	for _, c := range []prometheus.Collector{m.entities, m.requests, m.requestDuration, m.skipped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) EntityProcessed(step string) {
	if m == nil {
		return
	}
	m.entities.WithLabelValues(step).Inc()
}

// RequestDone records the outcome and latency of one request.
func (m *Metrics) RequestDone(step, method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.requests.WithLabelValues(step, method, outcome).Inc()
	m.requestDuration.WithLabelValues(step, method).Observe(elapsed.Seconds())
}

func (m *Metrics) MessageSkipped(step string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(step).Inc()
}
