// Package metrics exposes Prometheus collectors for the admission guard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"learn.admissionguard/types"
)

// Metrics holds the guard's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder, so instrumentation stays optional.
type Metrics struct {
	checks    *prometheus.CounterVec
	failOpens prometheus.Counter
}

// New creates the collectors and registers them with reg. Passing a nil
// registerer uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admissionguard_checks_total",
				Help: "Total number of sliding-window checks performed",
			},
			[]string{"scope", "outcome"},
		),
		failOpens: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "admissionguard_store_fail_open_total",
				Help: "Total number of checks admitted because the store was unavailable",
			},
		),
	}
}

// RecordCheck counts one check by scope and outcome.
func (m *Metrics) RecordCheck(scope types.Scope, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.checks.WithLabelValues(scope.String(), outcome).Inc()
}

// RecordFailOpen counts one check that fell back to admission because
// the store could not be reached.
func (m *Metrics) RecordFailOpen() {
	if m == nil {
		return
	}
	m.failOpens.Inc()
}
