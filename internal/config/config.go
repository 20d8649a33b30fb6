// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskvault/storage-service/internal/core/storage"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig
	Storage      StorageConfig
	Session      SessionConfig
	Health       HealthConfig
	Orchestrator OrchestratorConfig
	Log          LogConfig
	Metrics      MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds storage backend selection and per-backend parameters.
type StorageConfig struct {
	Type   storage.Type
	Badger BadgerConfig
	Redis  RedisConfig
	Mongo  MongoConfig
}

// BadgerConfig holds embedded-file backend configuration.
type BadgerConfig struct {
	Path string
}

// RedisConfig holds Redis backend configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MongoConfig holds MongoDB backend configuration.
type MongoConfig struct {
	URI      string
	Database string
}

// SessionConfig holds session registry configuration.
type SessionConfig struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
}

// HealthConfig holds health monitor configuration.
type HealthConfig struct {
	CheckInterval         time.Duration
	FailureThreshold      int
	RecoveryThreshold     int
	ResponseTimeThreshold time.Duration
	TrendWindowSize       int
	CacheTTL              time.Duration
}

// OrchestratorConfig holds adapter orchestrator configuration.
type OrchestratorConfig struct {
	MaxRetries             int
	RetryDelay             time.Duration
	RecoveryMaxRetries     int
	RecoveryRetryDelay     time.Duration
	MaxConsecutiveFailures int
	EnableAutoRecovery     bool
	InitWaitTimeout        time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Storage: StorageConfig{
			Type: storage.Type(getEnv("STORAGE_TYPE", "memory")),
			Badger: BadgerConfig{
				Path: getEnv("BADGER_PATH", "./data/taskvault"),
			},
			Redis: RedisConfig{
				Host:     getEnv("REDIS_HOST", "localhost"),
				Port:     getEnv("REDIS_PORT", "6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
			Mongo: MongoConfig{
				URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database: getEnv("MONGODB_DATABASE", "taskvault"),
			},
		},
		Session: SessionConfig{
			Timeout:         getEnvAsMillis("SESSION_TIMEOUT_MS", 30*time.Minute),
			CleanupInterval: getEnvAsMillis("CLEANUP_INTERVAL_MS", time.Minute),
			MaxSessions:     getEnvAsInt("MAX_SESSIONS", 100),
		},
		Health: HealthConfig{
			CheckInterval:         getEnvAsMillis("HEALTH_CHECK_INTERVAL_MS", 30*time.Second),
			FailureThreshold:      getEnvAsInt("HEALTH_FAILURE_THRESHOLD", 3),
			RecoveryThreshold:     getEnvAsInt("HEALTH_RECOVERY_THRESHOLD", 2),
			ResponseTimeThreshold: getEnvAsMillis("HEALTH_RESPONSE_TIME_THRESHOLD_MS", time.Second),
			TrendWindowSize:       getEnvAsInt("HEALTH_TREND_WINDOW_SIZE", 20),
			CacheTTL:              getEnvAsMillis("HEALTH_CACHE_TTL_MS", 5*time.Second),
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:             getEnvAsInt("ADAPTER_MAX_RETRIES", 3),
			RetryDelay:             getEnvAsMillis("ADAPTER_RETRY_DELAY_MS", 2*time.Second),
			RecoveryMaxRetries:     getEnvAsInt("ADAPTER_RECOVERY_MAX_RETRIES", 2),
			RecoveryRetryDelay:     getEnvAsMillis("ADAPTER_RECOVERY_RETRY_DELAY_MS", time.Second),
			MaxConsecutiveFailures: getEnvAsInt("ADAPTER_MAX_CONSECUTIVE_FAILURES", 5),
			EnableAutoRecovery:     getEnvAsBool("ADAPTER_ENABLE_AUTO_RECOVERY", true),
			InitWaitTimeout:        getEnvAsMillis("ADAPTER_INIT_WAIT_TIMEOUT_MS", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if !cfg.Storage.Type.Valid() {
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return cfg, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsMillis gets an environment variable holding milliseconds as a
// time.Duration with a default value.
func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return time.Duration(intValue) * time.Millisecond
		}
	}
	return defaultValue
}
