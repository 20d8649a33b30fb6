package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/services/session"
)

func newTestRegistry(t *testing.T, cfg *session.Config) *session.Registry {
	t.Helper()
	if cfg == nil {
		cfg = &session.Config{}
	}
	registry, err := session.NewRegistry(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = registry.Shutdown(context.Background())
	})
	return registry
}

func TestNewRegistry_NilConfig(t *testing.T) {
	// Act
	registry, err := session.NewRegistry(nil)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, registry)
	assert.Contains(t, err.Error(), "config is required")
}

func TestCreateSession_GeneratesID(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)

	// Act
	created, err := registry.CreateSession(context.Background(), session.CreateOptions{})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.ExpiresAt.IsZero())
}

func TestCreateSession_DuplicateID(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	_, err := registry.CreateSession(context.Background(), session.CreateOptions{ID: "s1"})
	require.NoError(t, err)

	// Act
	_, err = registry.CreateSession(context.Background(), session.CreateOptions{ID: "s1"})

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeSessionAlreadyExists))
}

func TestCreateSession_CapacityLimit(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, &session.Config{MaxSessions: 2})
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})
	require.NoError(t, err)
	_, err = registry.CreateSession(ctx, session.CreateOptions{ID: "s2"})
	require.NoError(t, err)

	// Act
	_, err = registry.CreateSession(ctx, session.CreateOptions{ID: "s3"})

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsSessionLimitExceeded(err))
}

func TestCreateSession_EvictsExpiredBeforeCapacityCheck(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, &session.Config{
		MaxSessions:     2,
		CleanupInterval: time.Hour,
	})
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)
	_, err = registry.CreateSession(ctx, session.CreateOptions{ID: "s2"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// Act
	_, err = registry.CreateSession(ctx, session.CreateOptions{ID: "s3"})

	// Assert
	require.NoError(t, err, "expired session should free a slot")
}

func TestGetSession_RefreshesAccessTime(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	created, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})
	require.NoError(t, err)

	// Act
	time.Sleep(5 * time.Millisecond)
	fetched, err := registry.GetSession(ctx, "s1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.LastAccessAt.After(created.LastAccessAt))
}

func TestGetSession_Missing(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)

	// Act
	fetched, err := registry.GetSession(context.Background(), "nope")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestGetSession_ExpiredIsEvicted(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, &session.Config{CleanupInterval: time.Hour})
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// Act
	fetched, err := registry.GetSession(ctx, "s1")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, fetched)

	stats, err := registry.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ExpiredTotal)
	assert.Equal(t, 0, stats.ActiveCount)
}

func TestUpdateAccessTime(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})
	require.NoError(t, err)

	// Act
	touched, err := registry.UpdateAccessTime(ctx, "s1")
	missing, err2 := registry.UpdateAccessTime(ctx, "nope")

	// Assert
	require.NoError(t, err)
	assert.True(t, touched)
	require.NoError(t, err2)
	assert.False(t, missing)
}

func TestIsSessionValid(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, &session.Config{CleanupInterval: time.Hour})
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	// Act + Assert
	valid, err := registry.IsSessionValid(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, valid)

	time.Sleep(20 * time.Millisecond)

	valid, err = registry.IsSessionValid(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestRemoveSession(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})
	require.NoError(t, err)

	// Act
	removed, err := registry.RemoveSession(ctx, "s1")
	again, err2 := registry.RemoveSession(ctx, "s1")

	// Assert
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, err2)
	assert.False(t, again)
}

func TestActiveSessions_ReturnsCopies(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{
		ID:       "s1",
		Metadata: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)

	// Act
	active, err := registry.ActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	active[0].Metadata["k"] = "mutated"

	// Assert
	meta, err := registry.GetMetadata(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v", meta["k"])
}

func TestSweep_EvictsExpiredSessions(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, &session.Config{
		CleanupInterval: 20 * time.Millisecond,
	})
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	// Act: wait for at least one sweep tick past the expiry.
	require.Eventually(t, func() bool {
		stats, err := registry.Stats(ctx)
		return err == nil && stats.ExpiredTotal == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateMetadata_MergesAndTouches(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{
		ID:       "s1",
		Metadata: map[string]interface{}{"a": 1, "b": 2},
	})
	require.NoError(t, err)

	// Act
	err = registry.UpdateMetadata(ctx, "s1", map[string]interface{}{"b": 3, "c": 4})

	// Assert
	require.NoError(t, err)
	meta, err := registry.GetMetadata(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3, "c": 4}, meta)
}

func TestUpdateMetadata_MissingSession(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)

	// Act
	err := registry.UpdateMetadata(context.Background(), "nope", map[string]interface{}{"k": "v"})

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeSessionNotFound))
}

func TestGetMetadata_ExpiredSession(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{
		ID:       "short-lived",
		Timeout:  time.Millisecond,
		Metadata: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	// Act
	_, err = registry.GetMetadata(ctx, "short-lived")

	// Assert: an expired session is reported as expired, not merely absent.
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeSessionExpired))

	err = registry.UpdateMetadata(ctx, "short-lived", map[string]interface{}{"k": "v2"})
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.ErrCodeSessionNotFound),
		"the expired entry was evicted on first touch, so the second touch sees a missing session")
}

func TestStats_Aggregates(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = registry.CreateSession(ctx, session.CreateOptions{ID: "s2"})
	require.NoError(t, err)

	// Act
	stats, err := registry.Stats(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.Equal(t, int64(0), stats.ExpiredTotal)
	assert.True(t, stats.OldestCreatedAt.Before(stats.NewestCreatedAt) || stats.OldestCreatedAt.Equal(stats.NewestCreatedAt))
	assert.Greater(t, stats.AverageAge, time.Duration(0))
}

func TestShutdown_RejectsNewSessions(t *testing.T) {
	// Arrange
	registry := newTestRegistry(t, nil)
	ctx := context.Background()
	require.NoError(t, registry.Shutdown(ctx))

	// Act
	_, err := registry.CreateSession(ctx, session.CreateOptions{ID: "s1"})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")

	// Shutdown is idempotent.
	assert.NoError(t, registry.Shutdown(ctx))
}
