// Package models contains domain models for the TaskVault Storage Service.
package models

import "time"

// Session represents a caller-scoped context with its own expiration clock.
// Sessions are owned by the session registry; only copies cross its boundary.
type Session struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"createdAt"`
	LastAccessAt time.Time              `json:"lastAccessAt"`
	Timeout      time.Duration          `json:"timeoutMs"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	UserID       string                 `json:"userId,omitempty"`
	APIURL       string                 `json:"apiUrl,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewSession creates a new session with the given id and timeout.
func NewSession(id string, timeout time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastAccessAt: now,
		Timeout:      timeout,
		ExpiresAt:    now.Add(timeout),
	}
}

// Touch refreshes the access time and re-derives the expiration.
func (s *Session) Touch() {
	s.LastAccessAt = time.Now().UTC()
	s.ExpiresAt = s.LastAccessAt.Add(s.Timeout)
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// Clone returns a copy safe to hand outside the registry's critical section.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// SessionStats summarizes the registry's current population.
type SessionStats struct {
	ActiveCount     int           `json:"activeCount"`
	ExpiredTotal    int64         `json:"expiredTotal"`
	OldestCreatedAt time.Time     `json:"oldestCreatedAt,omitempty"`
	NewestCreatedAt time.Time     `json:"newestCreatedAt,omitempty"`
	AverageAge      time.Duration `json:"averageAgeMs"`
}
