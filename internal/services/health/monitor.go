package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/pkg/fifomutex"
	"github.com/taskvault/storage-service/internal/pkg/metrics"
	"github.com/taskvault/storage-service/internal/services/orchestrator"
)

const (
	// DefaultCheckInterval is the default period of the monitoring loop.
	DefaultCheckInterval = 30 * time.Second
	// DefaultFailureThreshold is the consecutive-failure count that flips
	// status to unhealthy.
	DefaultFailureThreshold = 3
	// DefaultRecoveryThreshold is the consecutive-success count required to
	// return to healthy from unhealthy.
	DefaultRecoveryThreshold = 2
	// DefaultResponseTimeThreshold is the latency above which a successful
	// probe still counts as degraded.
	DefaultResponseTimeThreshold = time.Second
	// DefaultTrendWindowSize is the default trend window capacity.
	DefaultTrendWindowSize = 20
	// DefaultCacheTTL is how long a result is served without re-probing.
	DefaultCacheTTL = 5 * time.Second
	// DefaultStrategy is used when the caller does not name one.
	DefaultStrategy = StrategyPing

	// maxRecentAlerts bounds the in-memory alert buffer.
	maxRecentAlerts = 50
)

// Config holds the configuration for the health monitor.
type Config struct {
	// Orchestrator provides the adapter to probe and the recovery path.
	// Required.
	Orchestrator *orchestrator.Orchestrator

	CheckInterval         time.Duration
	FailureThreshold      int
	RecoveryThreshold     int
	ResponseTimeThreshold time.Duration
	TrendWindowSize       int
	CacheTTL              time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Monitor runs periodic and on-demand health checks against the active
// adapter, aggregates results into a rolling trend, classifies status, and
// dispatches alerts to registered handlers.
type Monitor struct {
	mu fifomutex.Mutex

	orch *orchestrator.Orchestrator

	checkInterval         time.Duration
	failureThreshold      int
	recoveryThreshold     int
	responseTimeThreshold time.Duration
	cacheTTL              time.Duration

	strategies map[string]Strategy
	trend      *trend

	status               Status
	consecutiveFailures  int
	consecutiveSuccesses int
	lastResult           *Result
	lastResultAt         time.Time

	handlers     []AlertHandler
	recentAlerts []Alert

	monitorDone chan struct{}
	monitoring  bool

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewMonitor creates a new health monitor.
func NewMonitor(cfg *Config) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	m := &Monitor{
		orch:                  cfg.Orchestrator,
		checkInterval:         cfg.CheckInterval,
		failureThreshold:      cfg.FailureThreshold,
		recoveryThreshold:     cfg.RecoveryThreshold,
		responseTimeThreshold: cfg.ResponseTimeThreshold,
		cacheTTL:              cfg.CacheTTL,
		strategies:            strategies(),
		status:                StatusUnknown,
		logger:                cfg.Logger.With().Str("component", "health-monitor").Logger(),
		metrics:               cfg.Metrics,
	}

	if m.checkInterval <= 0 {
		m.checkInterval = DefaultCheckInterval
	}
	if m.failureThreshold <= 0 {
		m.failureThreshold = DefaultFailureThreshold
	}
	if m.recoveryThreshold <= 0 {
		m.recoveryThreshold = DefaultRecoveryThreshold
	}
	if m.responseTimeThreshold <= 0 {
		m.responseTimeThreshold = DefaultResponseTimeThreshold
	}
	if m.cacheTTL <= 0 {
		m.cacheTTL = DefaultCacheTTL
	}
	windowSize := cfg.TrendWindowSize
	if windowSize <= 0 {
		windowSize = DefaultTrendWindowSize
	}
	m.trend = newTrend(windowSize)

	return m, nil
}

// RegisterAlertHandler adds a handler to the alert fan-out.
func (m *Monitor) RegisterAlertHandler(ctx context.Context, handler AlertHandler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	return m.mu.WithLock(ctx, func() error {
		m.handlers = append(m.handlers, handler)
		return nil
	})
}

// StartMonitoring begins the periodic probe loop. Idempotent.
func (m *Monitor) StartMonitoring(ctx context.Context) error {
	return m.mu.WithLock(ctx, func() error {
		if m.monitoring {
			return nil
		}
		m.monitoring = true
		m.monitorDone = make(chan struct{})
		go m.monitorLoop(m.monitorDone)
		m.logger.Info().Dur("interval", m.checkInterval).Msg("health monitoring started")
		return nil
	})
}

// StopMonitoring cancels the periodic probe loop. Idempotent.
func (m *Monitor) StopMonitoring(ctx context.Context) error {
	return m.mu.WithLock(ctx, func() error {
		if !m.monitoring {
			return nil
		}
		m.monitoring = false
		close(m.monitorDone)
		m.logger.Info().Msg("health monitoring stopped")
		return nil
	})
}

// CheckHealth runs one health check and folds the result into the trend.
// When no strategy is named, a result cached within the TTL is returned
// without re-probing; an explicit strategy always probes.
func (m *Monitor) CheckHealth(ctx context.Context, strategyName string) (*Result, error) {
	useCache := strategyName == ""
	if strategyName == "" {
		strategyName = DefaultStrategy
	}

	var strategy Strategy
	err := m.mu.WithLock(ctx, func() error {
		s, ok := m.strategies[strategyName]
		if !ok {
			return domainerrors.NewHealthCheckFailedError(strategyName, "0s",
				fmt.Errorf("unknown health check strategy: %s", strategyName))
		}
		strategy = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		if cached := m.cachedResult(ctx); cached != nil {
			return cached, nil
		}
	}

	// The probe itself runs outside the monitor mutex; only the result
	// bookkeeping below holds it.
	probe := m.runStrategy(ctx, strategy)

	var result Result
	var alerts []Alert
	err = m.mu.WithLock(ctx, func() error {
		result, alerts = m.recordLocked(probe, strategy.Name())
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.dispatch(alerts)

	if m.metrics != nil {
		status := "success"
		if !result.Healthy {
			status = "failure"
		}
		m.metrics.HealthChecksTotal.WithLabelValues(strategy.Name(), status).Inc()
		m.metrics.HealthCheckDuration.Observe(result.ResponseTime.Seconds())
	}
	return &result, nil
}

// ForceRecovery delegates to the orchestrator's recovery path.
func (m *Monitor) ForceRecovery(ctx context.Context) error {
	m.logger.Info().Msg("forcing adapter recovery")
	if err := m.orch.AttemptRecovery(ctx); err != nil {
		return fmt.Errorf("forced recovery failed: %w", err)
	}
	return nil
}

// Status returns the current classification.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	status := StatusUnknown
	err := m.mu.WithLock(ctx, func() error {
		status = m.status
		return nil
	})
	return status, err
}

// Trend returns a copy of the rolling trend window and its aggregates.
func (m *Monitor) Trend(ctx context.Context, includeResults bool) (TrendSnapshot, error) {
	var snapshot TrendSnapshot
	err := m.mu.WithLock(ctx, func() error {
		snapshot = m.trend.snapshot(includeResults)
		return nil
	})
	return snapshot, err
}

// RecentAlerts returns a copy of the bounded alert buffer, newest last.
func (m *Monitor) RecentAlerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	err := m.mu.WithLock(ctx, func() error {
		alerts = append([]Alert(nil), m.recentAlerts...)
		return nil
	})
	return alerts, err
}

// cachedResult returns the last result when it is still within the TTL.
func (m *Monitor) cachedResult(ctx context.Context) *Result {
	var cached *Result
	_ = m.mu.WithLock(ctx, func() error {
		if m.lastResult != nil && time.Since(m.lastResultAt) < m.cacheTTL {
			copied := *m.lastResult
			cached = &copied
		}
		return nil
	})
	return cached
}

// runStrategy resolves the adapter and executes the probe.
func (m *Monitor) runStrategy(ctx context.Context, strategy Strategy) StrategyResult {
	start := time.Now()
	adapter, err := m.orch.GetAdapter(ctx, false)
	if err != nil {
		return StrategyResult{
			Healthy:      false,
			Error:        fmt.Sprintf("adapter unavailable: %v", err),
			ResponseTime: time.Since(start),
		}
	}
	return strategy.Check(ctx, adapter)
}

// recordLocked folds a probe outcome into the monitor state: consecutive
// counters, classification, trend window, result cache, and any alerts the
// transition produces. Caller must hold the mutex.
func (m *Monitor) recordLocked(probe StrategyResult, strategyName string) (Result, []Alert) {
	previous := m.status

	if probe.Healthy {
		m.consecutiveFailures = 0
		m.consecutiveSuccesses++
	} else {
		m.consecutiveFailures++
		m.consecutiveSuccesses = 0
	}

	status := m.classifyLocked(probe, previous)
	m.status = status

	result := Result{
		Status:              status,
		Healthy:             probe.Healthy,
		Strategy:            strategyName,
		ResponseTime:        probe.ResponseTime,
		Timestamp:           time.Now().UTC(),
		ConsecutiveFailures: m.consecutiveFailures,
		Error:               probe.Error,
		Details:             probe.Details,
	}

	prevDirection := m.trend.direction()
	m.trend.add(result)
	m.lastResult = &result
	m.lastResultAt = result.Timestamp

	var alerts []Alert
	if status == StatusUnhealthy && previous != StatusUnhealthy {
		alerts = append(alerts, m.newAlertLocked(AlertHealthFailure, SeverityCritical,
			fmt.Sprintf("adapter became unhealthy after %d consecutive failures", m.consecutiveFailures), &result))
	}
	if status == StatusDegraded && previous != StatusDegraded {
		alerts = append(alerts, m.newAlertLocked(AlertPerformanceDegradation, SeverityWarning,
			fmt.Sprintf("health check succeeded but took %s (threshold %s)", result.ResponseTime, m.responseTimeThreshold), &result))
	}
	if status == StatusHealthy && (previous == StatusUnhealthy || previous == StatusDegraded) {
		alerts = append(alerts, m.newAlertLocked(AlertRecovery, SeverityInfo,
			fmt.Sprintf("adapter recovered after %d consecutive successes", m.consecutiveSuccesses), &result))
	}
	if direction := m.trend.direction(); direction == DirectionDeclining && prevDirection != DirectionDeclining {
		alerts = append(alerts, m.newAlertLocked(AlertTrendWarning, SeverityWarning,
			fmt.Sprintf("health success rate declining across window (%.0f%%)", m.trend.successRate()*100), &result))
	}
	return result, alerts
}

// classifyLocked applies the threshold rules. Caller must hold the mutex.
func (m *Monitor) classifyLocked(probe StrategyResult, previous Status) Status {
	if m.consecutiveFailures >= m.failureThreshold {
		return StatusUnhealthy
	}
	if !probe.Healthy {
		// Below the failure threshold a failed probe degrades but does not
		// flip to unhealthy.
		if previous == StatusUnhealthy {
			return StatusUnhealthy
		}
		return StatusDegraded
	}
	if previous == StatusUnhealthy && m.consecutiveSuccesses < m.recoveryThreshold {
		return StatusUnhealthy
	}
	if probe.ResponseTime > m.responseTimeThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// newAlertLocked creates an alert and appends it to the bounded buffer.
// Caller must hold the mutex.
func (m *Monitor) newAlertLocked(alertType AlertType, severity AlertSeverity, message string, result *Result) Alert {
	alert := Alert{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Result:    result,
	}
	if len(m.recentAlerts) == maxRecentAlerts {
		m.recentAlerts = m.recentAlerts[1:]
	}
	m.recentAlerts = append(m.recentAlerts, alert)
	if m.metrics != nil {
		m.metrics.AlertsTotal.WithLabelValues(string(alertType), string(severity)).Inc()
	}
	return alert
}

// dispatch fans alerts out to the registered handlers. A panicking handler
// is logged and does not block the others.
func (m *Monitor) dispatch(alerts []Alert) {
	if len(alerts) == 0 {
		return
	}
	var handlers []AlertHandler
	_ = m.mu.WithLock(context.Background(), func() error {
		handlers = append([]AlertHandler(nil), m.handlers...)
		return nil
	})
	for _, alert := range alerts {
		m.logger.Warn().
			Str("alert_id", alert.ID).
			Str("type", string(alert.Type)).
			Str("severity", string(alert.Severity)).
			Msg(alert.Message)
		for _, handler := range handlers {
			m.invokeHandler(handler, alert)
		}
	}
}

func (m *Monitor) invokeHandler(handler AlertHandler, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Str("alert_id", alert.ID).Msg("alert handler panicked")
		}
	}()
	handler(alert)
}

// monitorLoop runs CheckHealth on the configured interval until stopped.
func (m *Monitor) monitorLoop(done chan struct{}) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, err := m.CheckHealth(context.Background(), DefaultStrategy); err != nil {
				m.logger.Warn().Err(err).Msg("periodic health check failed")
			}
		}
	}
}
