// Package metrics provides Prometheus metrics for the oVirt provider.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ovirt_provider"

// Metrics owns its registry so that independent provider instances
// (and tests) never share collectors.
type Metrics struct {
	verifications    *prometheus.CounterVec
	connectionsOpen  *prometheus.CounterVec
	disconnectErrors prometheus.Counter
	refreshTargets   *prometheus.CounterVec
	targetsNotFound  prometheus.Counter
	refreshDuration  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a metrics set registered on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credential_verifications_total",
				Help:      "Total number of credential verifications by auth role and result",
			},
			[]string{"auth_role", "result"},
		),
		connectionsOpen: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_opened_total",
				Help:      "Total number of API connections opened by version and service role",
			},
			[]string{"version", "service"},
		),
		disconnectErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disconnect_errors_total",
				Help:      "Total number of errors swallowed while releasing connections",
			},
		),
		refreshTargets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_targets_total",
				Help:      "Total number of resolved refresh targets fetched, by target kind",
			},
			[]string{"kind"},
		),
		targetsNotFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_targets_not_found_total",
				Help:      "Total number of targeted refreshes whose entity was absent upstream",
			},
		),
		refreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of manager refreshes in seconds",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900},
			},
			[]string{"manager", "status"},
		),
	}

	registry.MustRegister(
		m.verifications,
		m.connectionsOpen,
		m.disconnectErrors,
		m.refreshTargets,
		m.targetsNotFound,
		m.refreshDuration,
	)

	return m
}

// Registry returns the registry backing m, or nil for a nil m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordVerification counts a credential verification. result is "success"
// or the error kind.
func (m *Metrics) RecordVerification(authRole, result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(authRole, result).Inc()
}

// RecordConnection counts an opened API connection.
func (m *Metrics) RecordConnection(version, service string) {
	if m == nil {
		return
	}
	m.connectionsOpen.WithLabelValues(version, service).Inc()
}

// RecordDisconnectError counts a release failure that was logged and dropped.
func (m *Metrics) RecordDisconnectError() {
	if m == nil {
		return
	}
	m.disconnectErrors.Inc()
}

// RecordTarget counts a fetched target. notFound marks a targeted refresh
// whose payload was emptied.
func (m *Metrics) RecordTarget(kind string, notFound bool) {
	if m == nil {
		return
	}
	m.refreshTargets.WithLabelValues(kind).Inc()
	if notFound {
		m.targetsNotFound.Inc()
	}
}

// ObserveRefresh records the duration of a manager refresh.
func (m *Metrics) ObserveRefresh(manager string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.refreshDuration.WithLabelValues(manager, status).Observe(d.Seconds())
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
