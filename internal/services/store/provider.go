package store

import (
	"context"
	"fmt"
	"sync"

	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
)

// DefaultSessionID scopes requests that do not carry their own session id.
const DefaultSessionID = "default"

// Provider hands out session-scoped facades that share one session registry,
// orchestrator, and health monitor.
type Provider struct {
	mu       sync.Mutex
	base     Config
	services map[string]Service
	closed   bool
}

// NewProvider creates a facade provider. The SessionID field of the config is
// ignored; each facade gets its own.
func NewProvider(cfg *Config) (*Provider, error) {
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
	return &Provider{
		base:     *cfg,
		services: make(map[string]Service),
	}, nil
}

// ForSession returns the facade scoped to the given session id, creating it
// on first use. An empty id maps to the default session.
func (p *Provider) ForSession(sessionID string) (Service, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, domainerrors.NewServiceUnavailableError("storage facade provider", nil)
	}
	if svc, ok := p.services[sessionID]; ok {
		return svc, nil
	}

	cfg := p.base
	cfg.SessionID = sessionID
	svc, err := NewService(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create facade for session %s: %w", sessionID, err)
	}
	p.services[sessionID] = svc
	return svc, nil
}

// Close shuts down the shared components. Facade instances become unusable.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.services = nil
	p.mu.Unlock()

	if err := p.base.Monitor.StopMonitoring(ctx); err != nil {
		return fmt.Errorf("failed to stop health monitoring: %w", err)
	}
	if err := p.base.Orchestrator.Close(ctx); err != nil {
		return fmt.Errorf("failed to close orchestrator: %w", err)
	}
	if err := p.base.Registry.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down session registry: %w", err)
	}
	return nil
}
