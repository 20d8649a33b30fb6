// Package metrics provides Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Storage operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ItemsStored       prometheus.Gauge

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionsExpired prometheus.Counter

	// Health metrics
	HealthChecksTotal   *prometheus.CounterVec
	HealthCheckDuration prometheus.Histogram
	RecoveriesTotal     *prometheus.CounterVec
	AlertsTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Duration of storage operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ItemsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storage_items_stored",
				Help: "Number of items currently stored",
			},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Number of currently active sessions",
			},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_expired_total",
				Help: "Total number of sessions evicted by expiration",
			},
		),

		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"strategy", "status"},
		),
		HealthCheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "health_check_duration_seconds",
				Help:    "Duration of health checks",
				Buckets: prometheus.DefBuckets,
			},
		),
		RecoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adapter_recoveries_total",
				Help: "Total number of adapter recovery attempts",
			},
			[]string{"status"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "health_alerts_total",
				Help: "Total number of health alerts dispatched",
			},
			[]string{"type", "severity"},
		),
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.ItemsStored,
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionsExpired,
		m.HealthChecksTotal,
		m.HealthCheckDuration,
		m.RecoveriesTotal,
		m.AlertsTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry (for testing purposes).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
