// Package session provides the session registry: caller-scoped contexts with
// access-time bookkeeping, expiration, and a periodic eviction sweep.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/pkg/fifomutex"
	"github.com/taskvault/storage-service/internal/pkg/metrics"
)

const (
	// DefaultSessionTimeout is the default session expiration window.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultCleanupInterval is the default sweep period.
	DefaultCleanupInterval = time.Minute

	// DefaultMaxSessions is the default registry capacity.
	DefaultMaxSessions = 100
)

// CreateOptions holds the parameters for creating a session.
type CreateOptions struct {
	// ID is the session id; generated when empty.
	ID string
	// Timeout overrides the registry default when non-zero.
	Timeout  time.Duration
	UserID   string
	APIURL   string
	Metadata map[string]interface{}
}

// Config holds the configuration for the session registry.
type Config struct {
	DefaultTimeout  time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

// Registry owns the set of active sessions. All reads and mutations run
// inside its FIFO mutex; only copies of sessions cross the boundary.
type Registry struct {
	mu       fifomutex.Mutex
	sessions map[string]*models.Session

	defaultTimeout  time.Duration
	cleanupInterval time.Duration
	maxSessions     int

	expiredTotal int64

	logger  zerolog.Logger
	metrics *metrics.Metrics

	sweepDone chan struct{}
	closed    bool
}

// NewRegistry creates a new session registry and starts its eviction sweep.
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	defaultTimeout := cfg.DefaultTimeout
	if defaultTimeout == 0 {
		defaultTimeout = DefaultSessionTimeout
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	maxSessions := cfg.MaxSessions
	if maxSessions == 0 {
		maxSessions = DefaultMaxSessions
	}
	if maxSessions < 0 {
		return nil, fmt.Errorf("max sessions must be positive")
	}

	r := &Registry{
		sessions:        make(map[string]*models.Session),
		defaultTimeout:  defaultTimeout,
		cleanupInterval: cleanupInterval,
		maxSessions:     maxSessions,
		logger:          cfg.Logger.With().Str("component", "session-registry").Logger(),
		metrics:         cfg.Metrics,
		sweepDone:       make(chan struct{}),
	}

	go r.sweepLoop()

	return r, nil
}

// CreateSession creates a new session. It fails when the registry is at
// capacity or the requested id already exists.
func (r *Registry) CreateSession(ctx context.Context, opts CreateOptions) (*models.Session, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	var created *models.Session
	err := r.mu.WithLock(ctx, func() error {
		if r.closed {
			return fmt.Errorf("session registry is shut down")
		}
		r.evictExpiredLocked()
		if len(r.sessions) >= r.maxSessions {
			return domainerrors.NewSessionLimitExceededError(r.maxSessions)
		}
		if _, exists := r.sessions[id]; exists {
			return domainerrors.NewSessionAlreadyExistsError(id)
		}

		s := models.NewSession(id, timeout)
		s.UserID = opts.UserID
		s.APIURL = opts.APIURL
		if opts.Metadata != nil {
			s.Metadata = make(map[string]interface{}, len(opts.Metadata))
			for k, v := range opts.Metadata {
				s.Metadata[k] = v
			}
		}
		r.sessions[id] = s
		created = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.SessionsTotal.Inc()
		r.metrics.SessionsActive.Inc()
	}
	r.logger.Debug().Str("session_id", id).Dur("timeout", timeout).Msg("session created")
	return created, nil
}

// GetSession returns a copy of the session, refreshing its access time.
// Returns nil (not an error) when the session does not exist; an expired
// session is lazily evicted and reported as absent.
func (r *Registry) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var found *models.Session
	err := r.mu.WithLock(ctx, func() error {
		s, live := r.lookupLocked(id)
		if !live {
			return nil
		}
		s.Touch()
		found = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// UpdateAccessTime refreshes the session's access time without a full read.
// Returns whether the session existed and was live.
func (r *Registry) UpdateAccessTime(ctx context.Context, id string) (bool, error) {
	touched := false
	err := r.mu.WithLock(ctx, func() error {
		s, live := r.lookupLocked(id)
		if !live {
			return nil
		}
		s.Touch()
		touched = true
		return nil
	})
	return touched, err
}

// IsSessionValid reports whether the session exists and has not expired.
func (r *Registry) IsSessionValid(ctx context.Context, id string) (bool, error) {
	valid := false
	err := r.mu.WithLock(ctx, func() error {
		_, valid = r.lookupLocked(id)
		return nil
	})
	return valid, err
}

// RemoveSession removes a session by id. Returns whether it existed.
func (r *Registry) RemoveSession(ctx context.Context, id string) (bool, error) {
	removed := false
	err := r.mu.WithLock(ctx, func() error {
		if _, exists := r.sessions[id]; exists {
			delete(r.sessions, id)
			removed = true
		}
		return nil
	})
	if removed && r.metrics != nil {
		r.metrics.SessionsActive.Dec()
	}
	return removed, err
}

// ActiveSessions returns copies of all live sessions, lazily evicting
// expired entries.
func (r *Registry) ActiveSessions(ctx context.Context) ([]*models.Session, error) {
	var active []*models.Session
	err := r.mu.WithLock(ctx, func() error {
		r.evictExpiredLocked()
		active = make([]*models.Session, 0, len(r.sessions))
		for _, s := range r.sessions {
			active = append(active, s.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}

// Stats returns aggregate statistics over the live sessions plus the
// cumulative expired counter.
func (r *Registry) Stats(ctx context.Context) (*models.SessionStats, error) {
	stats := &models.SessionStats{}
	err := r.mu.WithLock(ctx, func() error {
		r.evictExpiredLocked()
		stats.ActiveCount = len(r.sessions)
		stats.ExpiredTotal = r.expiredTotal
		if len(r.sessions) == 0 {
			return nil
		}
		var totalAge time.Duration
		for _, s := range r.sessions {
			if stats.OldestCreatedAt.IsZero() || s.CreatedAt.Before(stats.OldestCreatedAt) {
				stats.OldestCreatedAt = s.CreatedAt
			}
			if s.CreatedAt.After(stats.NewestCreatedAt) {
				stats.NewestCreatedAt = s.CreatedAt
			}
			totalAge += s.Age()
		}
		stats.AverageAge = totalAge / time.Duration(len(r.sessions))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// UpdateMetadata shallow-merges the given metadata into the session.
func (r *Registry) UpdateMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	return r.mu.WithLock(ctx, func() error {
		s, err := r.requireLocked(id)
		if err != nil {
			return err
		}
		if s.Metadata == nil {
			s.Metadata = make(map[string]interface{}, len(metadata))
		}
		for k, v := range metadata {
			s.Metadata[k] = v
		}
		s.Touch()
		return nil
	})
}

// GetMetadata returns a copy of the session's metadata.
func (r *Registry) GetMetadata(ctx context.Context, id string) (map[string]interface{}, error) {
	var meta map[string]interface{}
	err := r.mu.WithLock(ctx, func() error {
		s, err := r.requireLocked(id)
		if err != nil {
			return err
		}
		meta = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			meta[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Shutdown cancels the sweep and clears all state. Idempotent.
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.mu.WithLock(ctx, func() error {
		if r.closed {
			return nil
		}
		r.closed = true
		close(r.sweepDone)
		if r.metrics != nil {
			r.metrics.SessionsActive.Sub(float64(len(r.sessions)))
		}
		r.sessions = make(map[string]*models.Session)
		r.logger.Debug().Msg("session registry shut down")
		return nil
	})
}

// requireLocked returns the live session for id, telling a missing session
// apart from one that just expired. Expired entries are evicted on the way.
// Caller must hold the registry mutex.
func (r *Registry) requireLocked(id string) (*models.Session, error) {
	s, exists := r.sessions[id]
	if !exists {
		return nil, domainerrors.NewSessionNotFoundError(id)
	}
	if s.IsExpired() {
		r.evictLocked(id)
		return nil, domainerrors.NewSessionExpiredError(id)
	}
	return s, nil
}

// lookupLocked returns the live session for id, lazily evicting it when
// expired. Caller must hold the registry mutex.
func (r *Registry) lookupLocked(id string) (*models.Session, bool) {
	s, exists := r.sessions[id]
	if !exists {
		return nil, false
	}
	if s.IsExpired() {
		r.evictLocked(id)
		return nil, false
	}
	return s, true
}

// evictLocked removes one expired session and updates counters.
func (r *Registry) evictLocked(id string) {
	delete(r.sessions, id)
	r.expiredTotal++
	if r.metrics != nil {
		r.metrics.SessionsExpired.Inc()
		r.metrics.SessionsActive.Dec()
	}
	r.logger.Debug().Str("session_id", id).Msg("session expired")
}

// evictExpiredLocked removes every expired session.
func (r *Registry) evictExpiredLocked() {
	for id, s := range r.sessions {
		if s.IsExpired() {
			r.evictLocked(id)
		}
	}
}

// sweepLoop periodically evicts expired sessions until Shutdown.
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.sweepDone:
			return
		case <-ticker.C:
			err := r.mu.WithLock(context.Background(), func() error {
				if r.closed {
					return nil
				}
				r.evictExpiredLocked()
				return nil
			})
			if err != nil {
				r.logger.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}
