// Package store provides the storage facade: the single object callers use
// for task CRUD. Every operation ensures the adapter is initialized, touches
// the session's access time, records instrumentation, and translates errors
// into the domain taxonomy.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskvault/storage-service/internal/core/storage"
	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/pkg/metrics"
	"github.com/taskvault/storage-service/internal/services/health"
	"github.com/taskvault/storage-service/internal/services/orchestrator"
	"github.com/taskvault/storage-service/internal/services/session"
)

// Stats is the facade-level stats view merging adapter and session state.
type Stats struct {
	ItemCount      int64                  `json:"itemCount"`
	SessionID      string                 `json:"sessionId"`
	CreatedAt      time.Time              `json:"createdAt"`
	LastAccessAt   time.Time              `json:"lastAccessAt"`
	StorageType    storage.Type           `json:"storageType"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// Diagnostics aggregates the state of every orchestration component.
type Diagnostics struct {
	SessionID    string               `json:"sessionId"`
	Orchestrator orchestrator.Status  `json:"orchestrator"`
	HealthStatus health.Status        `json:"healthStatus"`
	Trend        health.TrendSnapshot `json:"trend"`
	Sessions     *models.SessionStats `json:"sessions"`
	RecentAlerts []health.Alert       `json:"recentAlerts"`
}

// Service is the facade surface exposed to the request-dispatch layer.
type Service interface {
	// List returns all tasks.
	List(ctx context.Context) ([]*models.Task, error)

	// Get returns a task by id.
	Get(ctx context.Context, id string) (*models.Task, error)

	// Create stores a new task.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)

	// Update applies a partial update to an existing task.
	Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error)

	// Delete removes a task by id.
	Delete(ctx context.Context, id string) error

	// FindByName returns tasks whose name contains the given string.
	FindByName(ctx context.Context, name string) ([]*models.Task, error)

	// Clear removes all tasks and returns the number removed.
	Clear(ctx context.Context) (int64, error)

	// GetByProject returns tasks belonging to the given project.
	GetByProject(ctx context.Context, projectID string) ([]*models.Task, error)

	// GetStats returns the facade-level stats view.
	GetStats(ctx context.Context) (*Stats, error)

	// HealthCheck runs a health check through the monitor.
	HealthCheck(ctx context.Context) (*health.Result, error)

	// Diagnostics aggregates the state of all orchestration components.
	Diagnostics(ctx context.Context) (*Diagnostics, error)

	// Close shuts down the monitor, orchestrator, and session registry.
	Close(ctx context.Context) error
}

// Config holds the dependencies for the storage facade.
type Config struct {
	Registry     *session.Registry
	Orchestrator *orchestrator.Orchestrator
	Monitor      *health.Monitor
	// SessionID scopes the facade's own session in the registry.
	SessionID string
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// service implements the Service interface.
type service struct {
	registry  *session.Registry
	orch      *orchestrator.Orchestrator
	monitor   *health.Monitor
	sessionID string
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewService creates the storage facade.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Monitor == nil {
		return nil, fmt.Errorf("health monitor is required")
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	return &service{
		registry:  cfg.Registry,
		orch:      cfg.Orchestrator,
		monitor:   cfg.Monitor,
		sessionID: cfg.SessionID,
		logger:    cfg.Logger.With().Str("component", "store").Logger(),
		metrics:   cfg.Metrics,
	}, nil
}

// List returns all tasks.
func (s *service) List(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.do(ctx, "list", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		tasks, err = adapter.List(ctx)
		return err
	})
	return tasks, err
}

// Get returns a task by id.
func (s *service) Get(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, domainerrors.NewValidationError("task id is required", "")
	}
	var task *models.Task
	err := s.do(ctx, "get", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		task, err = adapter.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domainerrors.NewNotFoundError("task", id)
	}
	return task, nil
}

// Create stores a new task.
func (s *service) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task == nil || task.Name == "" {
		return nil, domainerrors.NewValidationError("task name is required", "")
	}
	var created *models.Task
	err := s.do(ctx, "create", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		created, err = adapter.Create(ctx, task)
		return err
	})
	return created, err
}

// Update applies a partial update to an existing task.
func (s *service) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	if id == "" {
		return nil, domainerrors.NewValidationError("task id is required", "")
	}
	var updated *models.Task
	err := s.do(ctx, "update", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		updated, err = adapter.Update(ctx, id, update)
		return err
	})
	return updated, err
}

// Delete removes a task by id.
func (s *service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domainerrors.NewValidationError("task id is required", "")
	}
	var existed bool
	err := s.do(ctx, "delete", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		existed, err = adapter.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !existed {
		return domainerrors.NewNotFoundError("task", id)
	}
	return nil
}

// FindByName returns tasks whose name contains the given string.
func (s *service) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.do(ctx, "findByName", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		tasks, err = adapter.FindByName(ctx, name)
		return err
	})
	return tasks, err
}

// Clear removes all tasks.
func (s *service) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := s.do(ctx, "clear", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		removed, err = adapter.Clear(ctx)
		return err
	})
	return removed, err
}

// GetByProject returns tasks belonging to the given project.
func (s *service) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	if projectID == "" {
		return nil, domainerrors.NewValidationError("project id is required", "")
	}
	var tasks []*models.Task
	err := s.do(ctx, "getByProject", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		tasks, err = adapter.GetByProject(ctx, projectID)
		return err
	})
	return tasks, err
}

// GetStats returns the facade-level stats view.
func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	var adapterStats *storage.Stats
	err := s.do(ctx, "getStats", func(ctx context.Context, adapter storage.Adapter) error {
		var err error
		adapterStats, err = adapter.Stats(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ItemCount:      adapterStats.ItemCount,
		SessionID:      s.sessionID,
		StorageType:    adapterStats.StorageType,
		AdditionalInfo: adapterStats.AdditionalInfo,
	}
	if sess, err := s.registry.GetSession(ctx, s.sessionID); err == nil && sess != nil {
		stats.CreatedAt = sess.CreatedAt
		stats.LastAccessAt = sess.LastAccessAt
	}
	if s.metrics != nil {
		s.metrics.ItemsStored.Set(float64(stats.ItemCount))
	}
	return stats, nil
}

// HealthCheck runs a health check through the monitor.
func (s *service) HealthCheck(ctx context.Context) (*health.Result, error) {
	return s.monitor.CheckHealth(ctx, "")
}

// Diagnostics aggregates the state of all orchestration components.
func (s *service) Diagnostics(ctx context.Context) (*Diagnostics, error) {
	orchStatus, err := s.orch.Status(ctx)
	if err != nil {
		return nil, s.translate("diagnostics", "status", err)
	}
	healthStatus, err := s.monitor.Status(ctx)
	if err != nil {
		return nil, s.translate("diagnostics", "health", err)
	}
	trendSnapshot, err := s.monitor.Trend(ctx, false)
	if err != nil {
		return nil, s.translate("diagnostics", "trend", err)
	}
	sessionStats, err := s.registry.Stats(ctx)
	if err != nil {
		return nil, s.translate("diagnostics", "sessions", err)
	}
	alerts, err := s.monitor.RecentAlerts(ctx)
	if err != nil {
		return nil, s.translate("diagnostics", "alerts", err)
	}
	return &Diagnostics{
		SessionID:    s.sessionID,
		Orchestrator: orchStatus,
		HealthStatus: healthStatus,
		Trend:        trendSnapshot,
		Sessions:     sessionStats,
		RecentAlerts: alerts,
	}, nil
}

// Close shuts down the monitor, orchestrator, and session registry.
func (s *service) Close(ctx context.Context) error {
	if err := s.monitor.StopMonitoring(ctx); err != nil {
		return fmt.Errorf("failed to stop health monitoring: %w", err)
	}
	if err := s.orch.Close(ctx); err != nil {
		return fmt.Errorf("failed to close orchestrator: %w", err)
	}
	if err := s.registry.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down session registry: %w", err)
	}
	s.logger.Info().Msg("storage facade closed")
	return nil
}

// do wraps one CRUD operation: ensure the adapter is ready, touch the
// session, execute, and record instrumentation.
func (s *service) do(ctx context.Context, operation string, fn func(context.Context, storage.Adapter) error) error {
	start := time.Now()

	adapter, err := s.orch.GetAdapter(ctx, false)
	if err != nil {
		s.record(operation, start, err)
		return s.translate(operation, "initialization", err)
	}

	if err := s.touchSession(ctx); err != nil {
		s.logger.Warn().Err(err).Str("operation", operation).Msg("failed to touch session")
	}

	err = fn(ctx, adapter)
	s.record(operation, start, err)
	if err != nil {
		translated := s.translate(operation, "execution", err)
		// A plain backend failure while the orchestrator is degraded is
		// reported as the degradation, not as an opaque internal error.
		if domainerrors.IsCode(translated, domainerrors.ErrCodeInternal) {
			if status, statusErr := s.orch.Status(ctx); statusErr == nil && status.State == orchestrator.StateUnhealthy {
				unhealthy := domainerrors.NewAdapterUnhealthyError(status.ConsecutiveFailures)
				unhealthy.Err = err
				return unhealthy
			}
		}
		return translated
	}
	return nil
}

// touchSession refreshes the facade session, recreating it after expiry.
func (s *service) touchSession(ctx context.Context) error {
	touched, err := s.registry.UpdateAccessTime(ctx, s.sessionID)
	if err != nil {
		return err
	}
	if touched {
		return nil
	}
	_, err = s.registry.CreateSession(ctx, session.CreateOptions{ID: s.sessionID})
	return err
}

// record emits instrumentation for one operation.
func (s *service) record(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.metrics != nil {
		s.metrics.OperationsTotal.WithLabelValues(operation, status).Inc()
		s.metrics.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
	event := s.logger.Debug()
	if err != nil {
		event = s.logger.Warn().Err(err)
	}
	event.Str("operation", operation).Dur("latency", elapsed).Str("status", status).Msg("storage operation")
}

// translate wraps errors into the uniform domain shape carrying operation
// name, session id, and phase context. Domain errors pass through untouched.
func (s *service) translate(operation, phase string, err error) error {
	if err == nil {
		return nil
	}
	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		return domainErr
	}
	if errors.Is(err, storage.ErrAlreadyExists) {
		return domainerrors.NewConflictError(err.Error(), "")
	}
	if errors.Is(err, storage.ErrNotFound) {
		return domainerrors.NewNotFoundError("task", err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.NewTimeoutError(operation)
	}
	wrapped := domainerrors.NewInternalError(fmt.Sprintf("%s failed", operation), err)
	wrapped.Details = fmt.Sprintf("operation=%s session=%s phase=%s: %v", operation, s.sessionID, phase, err)
	return wrapped
}
