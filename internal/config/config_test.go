package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/config"
	"github.com/taskvault/storage-service/internal/core/storage"
)

func TestLoad_Defaults(t *testing.T) {
	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, storage.TypeMemory, cfg.Storage.Type)
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, 100, cfg.Session.MaxSessions)
	assert.Equal(t, 3, cfg.Health.FailureThreshold)
	assert.Equal(t, 2, cfg.Health.RecoveryThreshold)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRetries)
	assert.True(t, cfg.Orchestrator.EnableAutoRecovery)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	// Arrange
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("SESSION_TIMEOUT_MS", "60000")
	t.Setenv("ADAPTER_ENABLE_AUTO_RECOVERY", "false")
	t.Setenv("METRICS_ENABLED", "false")

	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, storage.TypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis.internal", cfg.Storage.Redis.Host)
	assert.Equal(t, time.Minute, cfg.Session.Timeout)
	assert.False(t, cfg.Orchestrator.EnableAutoRecovery)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	// Arrange
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("MAX_SESSIONS", "")

	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Session.MaxSessions)
}

func TestLoad_UnknownStorageType(t *testing.T) {
	// Arrange
	t.Setenv("STORAGE_TYPE", "cassandra")

	// Act
	cfg, err := config.Load()

	// Assert
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unsupported storage type")
}
