// Package metrics defines the Prometheus instrumentation for the console.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for soc-console.
// Pass to components that need to record metrics.
type Metrics struct {
	APIRequestsTotal   *prometheus.CounterVec
	GateDecisionsTotal *prometheus.CounterVec
	LiveReconnects     prometheus.Counter
	RefreshesTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		APIRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soc_console",
				Name:      "api_requests_total",
				Help:      "Total backend API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"}, // outcome=ok/error
		),
		GateDecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soc_console",
				Name:      "gate_decisions_total",
				Help:      "Total access gate decisions by outcome",
			},
			[]string{"outcome"}, // render/redirect_login/redirect_unauthorized
		),
		LiveReconnects: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "soc_console",
				Name:      "live_reconnects_total",
				Help:      "Total live channel reconnect attempts",
			},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soc_console",
				Name:      "refreshes_total",
				Help:      "Total dashboard data refreshes by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAPIRequest satisfies the api adapter's recorder port.
func (m *Metrics) RecordAPIRequest(endpoint, outcome string) {
	m.APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordGateDecision satisfies the gate service's recorder port.
func (m *Metrics) RecordGateDecision(outcome string) {
	m.GateDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordLiveReconnect satisfies the live channel's recorder port.
func (m *Metrics) RecordLiveReconnect() {
	m.LiveReconnects.Inc()
}

// RecordRefresh counts one dashboard refresh by outcome.
func (m *Metrics) RecordRefresh(outcome string) {
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape handler for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
