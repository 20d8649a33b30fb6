// Package orchestrator owns the storage adapter lifecycle: a state machine
// with retrying initialization, health probing, and non-blocking background
// recovery.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskvault/storage-service/internal/core/storage"
	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/pkg/fifomutex"
	"github.com/taskvault/storage-service/internal/pkg/metrics"
)

// State represents the orchestrator's lifecycle state.
type State string

const (
	// StateUninitialized is the starting state before any initialization.
	StateUninitialized State = "UNINITIALIZED"
	// StateInitializing is active while an initialization attempt runs.
	StateInitializing State = "INITIALIZING"
	// StateReady means the adapter is initialized and healthy.
	StateReady State = "READY"
	// StateUnhealthy means the adapter exists but its last probe failed.
	StateUnhealthy State = "UNHEALTHY"
	// StateError means initialization exhausted its budget or failures
	// crossed the consecutive-failure threshold.
	StateError State = "ERROR"
	// StateClosed is terminal; no operation changes state afterwards.
	StateClosed State = "CLOSED"
)

// Status is a read-only snapshot of the orchestrator's state.
type Status struct {
	State               State     `json:"state"`
	Healthy             bool      `json:"healthy"`
	LastHealthCheck     time.Time `json:"lastHealthCheck,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Error               string    `json:"error,omitempty"`
}

const (
	// DefaultMaxRetries is the default initialization retry budget.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the default delay between initialization attempts.
	DefaultRetryDelay = 2 * time.Second
	// DefaultRecoveryMaxRetries is the default recovery retry budget. It is
	// deliberately smaller than the boot budget: recovery should not be as
	// aggressive as first boot.
	DefaultRecoveryMaxRetries = 2
	// DefaultRecoveryRetryDelay is the default delay between recovery attempts.
	DefaultRecoveryRetryDelay = time.Second
	// DefaultMaxConsecutiveFailures is the failure count at which the
	// orchestrator gives up and enters ERROR.
	DefaultMaxConsecutiveFailures = 5
	// DefaultInitWaitTimeout bounds how long a concurrent caller waits for an
	// in-progress initialization.
	DefaultInitWaitTimeout = 30 * time.Second
	// DefaultInitPollInterval is the poll period while waiting.
	DefaultInitPollInterval = 100 * time.Millisecond
)

// Config holds the configuration for the orchestrator.
type Config struct {
	// Factory constructs a fresh adapter per initialization attempt. Required.
	Factory storage.Factory
	// Session is handed to the adapter's Initialize.
	Session *models.Session

	MaxRetries             int
	RetryDelay             time.Duration
	RecoveryMaxRetries     int
	RecoveryRetryDelay     time.Duration
	MaxConsecutiveFailures int
	EnableAutoRecovery     bool
	InitWaitTimeout        time.Duration
	InitPollInterval       time.Duration

	// HealthCheckInterval, when non-zero, runs PerformHealthCheck on a
	// periodic timer owned by the orchestrator. Leave zero when an external
	// monitor drives the checks.
	HealthCheckInterval time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Orchestrator drives exactly one storage adapter through its lifecycle.
type Orchestrator struct {
	mu fifomutex.Mutex

	factory storage.Factory
	session *models.Session

	maxRetries             int
	retryDelay             time.Duration
	recoveryMaxRetries     int
	recoveryRetryDelay     time.Duration
	maxConsecutiveFailures int
	enableAutoRecovery     bool
	initWaitTimeout        time.Duration
	initPollInterval       time.Duration

	adapter storage.Adapter
	status  Status
	closed  bool

	recoveryPending bool
	recoveryCancel  context.CancelFunc
	recoveryWG      sync.WaitGroup

	tickerDone chan struct{}
	tickerOnce sync.Once

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a new orchestrator in the UNINITIALIZED state.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("adapter factory is required")
	}

	o := &Orchestrator{
		factory:                cfg.Factory,
		session:                cfg.Session,
		maxRetries:             cfg.MaxRetries,
		retryDelay:             cfg.RetryDelay,
		recoveryMaxRetries:     cfg.RecoveryMaxRetries,
		recoveryRetryDelay:     cfg.RecoveryRetryDelay,
		maxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		enableAutoRecovery:     cfg.EnableAutoRecovery,
		initWaitTimeout:        cfg.InitWaitTimeout,
		initPollInterval:       cfg.InitPollInterval,
		status:                 Status{State: StateUninitialized},
		tickerDone:             make(chan struct{}),
		logger:                 cfg.Logger.With().Str("component", "orchestrator").Logger(),
		metrics:                cfg.Metrics,
	}

	if o.maxRetries <= 0 {
		o.maxRetries = DefaultMaxRetries
	}
	if o.retryDelay <= 0 {
		o.retryDelay = DefaultRetryDelay
	}
	if o.recoveryMaxRetries <= 0 {
		o.recoveryMaxRetries = DefaultRecoveryMaxRetries
	}
	if o.recoveryRetryDelay <= 0 {
		o.recoveryRetryDelay = DefaultRecoveryRetryDelay
	}
	if o.maxConsecutiveFailures <= 0 {
		o.maxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.initWaitTimeout <= 0 {
		o.initWaitTimeout = DefaultInitWaitTimeout
	}
	if o.initPollInterval <= 0 {
		o.initPollInterval = DefaultInitPollInterval
	}

	if cfg.HealthCheckInterval > 0 {
		go o.healthCheckLoop(cfg.HealthCheckInterval)
	}

	return o, nil
}

// Initialize drives the orchestrator to READY (or UNHEALTHY when the initial
// probe fails but the adapter is usable). Construction is retried up to the
// configured budget; the triggering error surfaces once the budget is
// exhausted. A caller that observes an initialization already in flight waits
// for it instead of racing a duplicate construction.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.mu.Lock(ctx); err != nil {
		return err
	}
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is closed")
	}
	if o.status.State == StateInitializing {
		// Another caller owns the in-flight initialization; wait for it.
		o.mu.Unlock()
		return o.waitForInitialization(ctx)
	}
	if o.status.State == StateReady {
		o.mu.Unlock()
		return nil
	}

	old := o.adapter
	o.adapter = nil
	o.setStateLocked(StateInitializing, "")
	o.mu.Unlock()

	return o.rebuildAdapter(ctx, old, o.maxRetries, o.retryDelay)
}

// GetAdapter returns the live adapter handle, initializing first when needed.
// With force set, a full re-initialization always runs.
func (o *Orchestrator) GetAdapter(ctx context.Context, force bool) (storage.Adapter, error) {
	if err := o.mu.Lock(ctx); err != nil {
		return nil, err
	}
	if o.closed {
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator is closed")
	}

	state := o.status.State
	adapter := o.adapter

	if !force {
		if state == StateReady || (state == StateUnhealthy && adapter != nil) {
			o.mu.Unlock()
			return adapter, nil
		}
		if state == StateInitializing {
			o.mu.Unlock()
			if err := o.waitForInitialization(ctx); err != nil {
				return nil, err
			}
			return o.adapterHandle(ctx)
		}
	}

	old := o.adapter
	o.adapter = nil
	o.setStateLocked(StateInitializing, "")
	o.mu.Unlock()

	if err := o.rebuildAdapter(ctx, old, o.maxRetries, o.retryDelay); err != nil {
		return nil, err
	}
	return o.adapterHandle(ctx)
}

// PerformHealthCheck probes the adapter and folds the result into the shared
// status. Failures below the consecutive-failure threshold degrade state to
// UNHEALTHY and, when auto-recovery is enabled, schedule a non-blocking
// background recovery; at or beyond the threshold the state becomes ERROR.
func (o *Orchestrator) PerformHealthCheck(ctx context.Context) (Status, error) {
	if err := o.mu.Lock(ctx); err != nil {
		return Status{}, err
	}
	if o.closed {
		status := o.status
		o.mu.Unlock()
		return status, fmt.Errorf("orchestrator is closed")
	}

	if o.adapter == nil {
		o.setStateLocked(StateInitializing, "")
		o.mu.Unlock()
		err := o.rebuildAdapter(ctx, nil, o.maxRetries, o.retryDelay)
		status, statusErr := o.Status(context.WithoutCancel(ctx))
		if statusErr != nil {
			return Status{}, statusErr
		}
		return status, err
	}

	result := o.adapter.HealthCheck(ctx)
	o.status.LastHealthCheck = time.Now().UTC()

	scheduleRecovery := false
	if result.Healthy {
		o.status.Healthy = true
		o.status.ConsecutiveFailures = 0
		o.setStateLocked(StateReady, "")
	} else {
		o.status.Healthy = false
		o.status.ConsecutiveFailures++
		if o.status.ConsecutiveFailures >= o.maxConsecutiveFailures {
			o.setStateLocked(StateError, result.Error)
		} else {
			o.setStateLocked(StateUnhealthy, result.Error)
			if o.enableAutoRecovery && !o.recoveryPending {
				o.recoveryPending = true
				scheduleRecovery = true
			}
		}
	}
	status := o.status
	o.mu.Unlock()

	// The lock is released before the recovery task is scheduled so a slow
	// recovery never blocks unrelated callers.
	if scheduleRecovery {
		o.scheduleRecovery()
	}
	return status, nil
}

// AttemptRecovery closes and discards the current adapter, then re-initializes
// with the (smaller) recovery retry budget. Adapter I/O runs outside the
// orchestrator mutex; only state transitions hold it.
func (o *Orchestrator) AttemptRecovery(ctx context.Context) error {
	if err := o.mu.Lock(ctx); err != nil {
		return err
	}
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is closed")
	}
	old := o.adapter
	o.adapter = nil
	o.setStateLocked(StateInitializing, "")
	o.mu.Unlock()

	err := o.rebuildAdapter(ctx, old, o.recoveryMaxRetries, o.recoveryRetryDelay)
	if o.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		o.metrics.RecoveriesTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		o.logger.Error().Err(err).Msg("adapter recovery failed")
		return err
	}
	o.logger.Info().Msg("adapter recovered")
	return nil
}

// Status returns a read-only copy of the orchestrator status.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	var status Status
	err := o.mu.WithLock(ctx, func() error {
		status = o.status
		return nil
	})
	return status, err
}

// Close cancels the health-check timer and any scheduled recovery, closes the
// adapter if present, and transitions to CLOSED. Idempotent; subsequent
// Initialize/GetAdapter calls fail fast. In-flight adapter I/O is allowed to
// complete before the adapter handle is closed.
func (o *Orchestrator) Close(ctx context.Context) error {
	if err := o.mu.Lock(ctx); err != nil {
		return err
	}
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.setStateLocked(StateClosed, "")
	adapter := o.adapter
	o.adapter = nil
	if o.recoveryCancel != nil {
		o.recoveryCancel()
	}
	o.tickerOnce.Do(func() { close(o.tickerDone) })
	o.mu.Unlock()

	o.recoveryWG.Wait()

	if adapter != nil {
		if err := adapter.Close(ctx); err != nil {
			return fmt.Errorf("failed to close adapter: %w", err)
		}
	}
	o.logger.Debug().Msg("orchestrator closed")
	return nil
}

// rebuildAdapter closes the previous adapter handle, constructs a replacement,
// and commits the outcome. The caller must transition to INITIALIZING and
// release the mutex first; adapter I/O then runs unlocked, so concurrent
// callers observe the in-flight state and wait instead of queueing on the
// mutex or racing a duplicate construction.
func (o *Orchestrator) rebuildAdapter(ctx context.Context, old storage.Adapter, retries int, delay time.Duration) error {
	if old != nil {
		if err := old.Close(ctx); err != nil {
			o.logger.Warn().Err(err).Msg("failed to close previous adapter")
		}
	}

	adapter, probe, attempts, err := o.constructAdapter(ctx, retries, delay)

	// The commit must run even when ctx was cancelled mid-construction, or the
	// orchestrator would be stuck in INITIALIZING.
	if lockErr := o.mu.Lock(context.WithoutCancel(ctx)); lockErr != nil {
		if adapter != nil {
			_ = adapter.Close(ctx)
		}
		return lockErr
	}
	defer o.mu.Unlock()

	if o.closed {
		if adapter != nil {
			_ = adapter.Close(ctx)
		}
		return fmt.Errorf("orchestrator is closed")
	}
	if err != nil {
		o.setStateLocked(StateError, err.Error())
		return domainerrors.NewAdapterInitFailedError(attempts, err)
	}

	if o.adapter != nil && o.adapter != adapter {
		// A forced re-initialization overlapped another rebuild; the handle
		// committed first loses.
		_ = o.adapter.Close(ctx)
	}
	o.adapter = adapter
	o.status.LastHealthCheck = time.Now().UTC()
	o.status.ConsecutiveFailures = 0
	if probe.Healthy {
		o.status.Healthy = true
		o.setStateLocked(StateReady, "")
	} else {
		// The adapter is kept so background recovery can take over.
		o.status.Healthy = false
		o.setStateLocked(StateUnhealthy, probe.Error)
	}
	o.logger.Info().Int("attempts", attempts).Str("state", string(o.status.State)).Msg("adapter initialized")
	return nil
}

// constructAdapter attempts factory construction, adapter initialization, and
// an initial probe, up to retries times with a fixed delay between attempts.
// Failed adapters are closed before retrying.
func (o *Orchestrator) constructAdapter(ctx context.Context, retries int, delay time.Duration) (storage.Adapter, storage.HealthResult, int, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, storage.HealthResult{}, attempt - 1, err
		}

		adapter, err := o.factory(ctx)
		if err == nil {
			err = adapter.Initialize(ctx, o.session)
			if err != nil {
				_ = adapter.Close(ctx)
			} else {
				probe := adapter.HealthCheck(ctx)
				return adapter, probe, attempt, nil
			}
		}

		lastErr = err
		o.logger.Warn().Err(err).Int("attempt", attempt).Int("max_retries", retries).Msg("adapter initialization attempt failed")
		if attempt < retries {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, storage.HealthResult{}, attempt, ctx.Err()
			}
		}
	}
	return nil, storage.HealthResult{}, retries, lastErr
}

// waitForInitialization polls until the in-flight initialization settles or
// the wait budget is exceeded.
func (o *Orchestrator) waitForInitialization(ctx context.Context) error {
	deadline := time.Now().Add(o.initWaitTimeout)
	for {
		status, err := o.Status(ctx)
		if err != nil {
			return err
		}
		switch status.State {
		case StateReady, StateUnhealthy:
			return nil
		case StateError:
			return domainerrors.NewAdapterUnavailableError(fmt.Errorf("initialization failed: %s", status.Error))
		case StateClosed:
			return fmt.Errorf("orchestrator is closed")
		}
		if time.Now().After(deadline) {
			return domainerrors.NewInitTimeoutError(o.initWaitTimeout.String())
		}
		select {
		case <-time.After(o.initPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// adapterHandle returns the current adapter after a successful wait.
func (o *Orchestrator) adapterHandle(ctx context.Context) (storage.Adapter, error) {
	var adapter storage.Adapter
	err := o.mu.WithLock(ctx, func() error {
		adapter = o.adapter
		return nil
	})
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, domainerrors.NewAdapterUnavailableError(nil)
	}
	return adapter, nil
}

// scheduleRecovery launches the background recovery task. The task handle is
// tracked so Close can cancel and await it.
func (o *Orchestrator) scheduleRecovery() {
	recoveryCtx, cancel := context.WithCancel(context.Background())
	err := o.mu.WithLock(context.Background(), func() error {
		if o.closed {
			return fmt.Errorf("orchestrator is closed")
		}
		o.recoveryCancel = cancel
		// Registered under the same lock Close takes before waiting, so the
		// Add is ordered before Close's Wait.
		o.recoveryWG.Add(1)
		return nil
	})
	if err != nil {
		cancel()
		return
	}
	o.logger.Info().Msg("scheduling background adapter recovery")
	go func() {
		defer o.recoveryWG.Done()
		defer cancel()
		err := o.AttemptRecovery(recoveryCtx)
		_ = o.mu.WithLock(context.Background(), func() error {
			o.recoveryPending = false
			return nil
		})
		if err != nil {
			o.logger.Warn().Err(err).Msg("background recovery did not restore the adapter")
		}
	}()
}

// healthCheckLoop runs PerformHealthCheck on a fixed interval until Close.
func (o *Orchestrator) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.tickerDone:
			return
		case <-ticker.C:
			if _, err := o.PerformHealthCheck(context.Background()); err != nil {
				o.logger.Warn().Err(err).Msg("periodic health check failed")
			}
		}
	}
}

// setStateLocked records a state transition. Caller must hold the mutex.
func (o *Orchestrator) setStateLocked(state State, errMsg string) {
	if o.status.State != state {
		o.logger.Debug().Str("from", string(o.status.State)).Str("to", string(state)).Msg("state transition")
	}
	o.status.State = state
	o.status.Error = errMsg
}
