// Package health provides adapter health monitoring: pluggable probe
// strategies, a rolling trend window, status classification, and alerting.
package health

import (
	"time"
)

// Status classifies the monitored adapter's health.
type Status string

const (
	// StatusHealthy means probes succeed within the response time threshold.
	StatusHealthy Status = "healthy"
	// StatusDegraded means probes succeed but response time exceeds the
	// threshold.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means consecutive failures reached the failure
	// threshold.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown means no probe has completed yet.
	StatusUnknown Status = "unknown"
)

// Result is the immutable outcome of one health check invocation.
type Result struct {
	Status              Status                 `json:"status"`
	Healthy             bool                   `json:"healthy"`
	Strategy            string                 `json:"strategy"`
	ResponseTime        time.Duration          `json:"responseTimeMs"`
	Timestamp           time.Time              `json:"timestamp"`
	ConsecutiveFailures int                    `json:"consecutiveFailures"`
	Error               string                 `json:"error,omitempty"`
	Details             map[string]interface{} `json:"details,omitempty"`
}

// AlertType identifies the condition that produced an alert.
type AlertType string

const (
	// AlertHealthFailure fires when status crosses into unhealthy.
	AlertHealthFailure AlertType = "health_failure"
	// AlertPerformanceDegradation fires when status crosses into degraded.
	AlertPerformanceDegradation AlertType = "performance_degradation"
	// AlertRecovery fires when status returns to healthy.
	AlertRecovery AlertType = "recovery"
	// AlertTrendWarning fires when the rolling success rate declines across
	// the trend window.
	AlertTrendWarning AlertType = "trend_warning"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	// SeverityInfo marks informational alerts.
	SeverityInfo AlertSeverity = "info"
	// SeverityWarning marks degradations that need attention.
	SeverityWarning AlertSeverity = "warning"
	// SeverityCritical marks failures that need immediate attention.
	SeverityCritical AlertSeverity = "critical"
)

// Alert is an immutable notification produced on a status transition or
// threshold crossing. It is delivered to registered handlers and kept in a
// bounded in-memory buffer; it is not persisted.
type Alert struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Result    *Result       `json:"relatedResult,omitempty"`
}

// AlertHandler receives dispatched alerts. Handlers are invoked in
// unspecified order; a failure in one handler does not block the others.
type AlertHandler func(Alert)
