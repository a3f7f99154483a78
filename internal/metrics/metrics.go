// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Connection duration buckets; relayed bodies can take a while on slow origins.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Outcome labels for finished connections (bounded cardinality).
const (
	OutcomeRelayed        = "relayed"
	OutcomeEmptyRequest   = "empty_request"
	OutcomeBadRequestLine = "bad_request_line"
	OutcomeNotImplemented = "method_not_implemented"
	OutcomeBadTarget      = "bad_target"
	OutcomeConnectFailed  = "connect_failed"
	OutcomeWriteFailed    = "upstream_write_failed"
	OutcomeRelayFailed    = "relay_failed"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsTotal    *prometheus.CounterVec
	ConnectionsInFlight prometheus.Gauge
	ConnectionDuration  *prometheus.HistogramVec

	UpstreamDials *prometheus.CounterVec
	RelayedBytes  *prometheus.CounterVec

	AdminRequestsTotal   *prometheus.CounterVec
	AdminRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinyproxy_connections_total",
			Help: "Total client connections handled, by outcome.",
		}, []string{"outcome"}),

		ConnectionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tinyproxy_connections_in_flight",
			Help: "Number of client connections currently being served.",
		}),

		ConnectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tinyproxy_connection_duration_seconds",
			Help:    "Time from accept to teardown, by outcome.",
			Buckets: defaultBuckets,
		}, []string{"outcome"}),

		UpstreamDials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinyproxy_upstream_dials_total",
			Help: "Total outbound origin connections, by result.",
		}, []string{"result"}),

		RelayedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinyproxy_relayed_bytes_total",
			Help: "Bytes relayed through the proxy, by direction.",
		}, []string{"direction"}),

		AdminRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinyproxy_admin_http_requests_total",
			Help: "Total requests to the admin endpoints.",
		}, []string{"method", "status_code", "path"}),

		AdminRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tinyproxy_admin_http_request_duration_seconds",
			Help:    "Admin endpoint latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path"}),
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.ConnectionsInFlight,
		m.ConnectionDuration,
		m.UpstreamDials,
		m.RelayedBytes,
		m.AdminRequestsTotal,
		m.AdminRequestDuration,
	)

	return m
}

// knownOutcomes lists the allowed outcome label values (bounded cardinality).
var knownOutcomes = map[string]bool{
	OutcomeRelayed:        true,
	OutcomeEmptyRequest:   true,
	OutcomeBadRequestLine: true,
	OutcomeNotImplemented: true,
	OutcomeBadTarget:      true,
	OutcomeConnectFailed:  true,
	OutcomeWriteFailed:    true,
	OutcomeRelayFailed:    true,
}

// NormalizeOutcome returns a bounded outcome label for Prometheus metrics.
// Unknown values are mapped to "other" to prevent cardinality explosion.
func NormalizeOutcome(outcome string) string {
	if knownOutcomes[outcome] {
		return outcome
	}
	return "other"
}

// knownAdminPaths lists the allowed admin path label values (bounded cardinality).
var knownAdminPaths = []string{"/healthz", "/proxy/status", "/metrics"}

// NormalizeAdminPath returns a bounded path label for Prometheus metrics.
func NormalizeAdminPath(path string) string {
	for _, p := range knownAdminPaths {
		if path == p {
			return p
		}
	}
	return "other"
}
