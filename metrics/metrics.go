// Package metrics exposes Prometheus instrumentation for the polling waits.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seauto"

// Wait outcomes.
const (
	OutcomeSatisfied = "satisfied"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
	OutcomeCanceled  = "canceled"
)

// Collector holds the custom metrics recorded by seauto.
type Collector struct {
	WaitDuration      *prometheus.HistogramVec
	WaitPolls         *prometheus.CounterVec
	WaitTimeouts      *prometheus.CounterVec
	FieldAttempts     prometheus.Counter
	CapturedResponses prometheus.Counter
}

// New creates the metrics without registering them.
func New() *Collector {
	return &Collector{
		WaitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wait_duration_seconds",
			Help:      "Time spent in polling waits.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 90},
		}, []string{"operation", "outcome"}),
		WaitPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wait_polls_total",
			Help:      "Condition evaluations performed by polling waits.",
		}, []string{"operation"}),
		WaitTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wait_timeouts_total",
			Help:      "Polling waits that ran out of time.",
		}, []string{"operation"}),
		FieldAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_attempts_total",
			Help:      "Write attempts made while populating fields.",
		}),
		CapturedResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_responses_total",
			Help:      "Captured page responses inspected while waiting for a key.",
		}),
	}
}

// Register creates the metrics and registers them with reg.
func Register(reg prometheus.Registerer) (*Collector, error) {
	c := New()
	for _, m := range []prometheus.Collector{
		c.WaitDuration, c.WaitPolls, c.WaitTimeouts, c.FieldAttempts, c.CapturedResponses,
	} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	return c, nil
}

// Nop returns metrics that are recorded but never exported.
func Nop() *Collector { return New() }

// ObserveWait records the result of one polling wait.
func (c *Collector) ObserveWait(operation, outcome string, elapsed time.Duration, polls int) {
	if c == nil {
		return
	}
	c.WaitDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
	c.WaitPolls.WithLabelValues(operation).Add(float64(polls))
	if outcome == OutcomeTimeout {
		c.WaitTimeouts.WithLabelValues(operation).Inc()
	}
}

// AddFieldAttempt counts one field write attempt.
func (c *Collector) AddFieldAttempt() {
	if c == nil {
		return
	}
	c.FieldAttempts.Inc()
}

// AddCapturedResponses counts n inspected responses.
func (c *Collector) AddCapturedResponses(n int) {
	if c == nil {
		return
	}
	c.CapturedResponses.Add(float64(n))
}
