// Package metrics exposes the Prometheus instrumentation: breaker state
// transitions and booking outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
)

type Metrics struct {
	registry *prometheus.Registry

	breakerTransitions *prometheus.CounterVec
	bookingOutcomes    *prometheus.CounterVec
	callFailures       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by breaker and new state.",
		}, []string{"breaker", "to"}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Name:      "booking_outcomes_total",
			Help:      "Booking attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		callFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Name:      "call_failures_total",
			Help:      "Failed platform calls by platform and error kind.",
		}, []string{"platform", "kind"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.breakerTransitions,
		m.bookingOutcomes,
		m.callFailures,
	)
	return m
}

// BreakerTransition is wired into the resilience registry's hook.
func (m *Metrics) BreakerTransition(name string, _, to resilience.State) {
	m.breakerTransitions.WithLabelValues(name, to.String()).Inc()
}

// BookingOutcome implements the orchestrator's observer.
func (m *Metrics) BookingOutcome(platform reservation.Platform, outcome string) {
	m.bookingOutcomes.WithLabelValues(string(platform), outcome).Inc()
}

// CallFailure counts a failed platform call by classified kind.
func (m *Metrics) CallFailure(platform reservation.Platform, kind resilience.Kind) {
	m.callFailures.WithLabelValues(string(platform), kind.String()).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
