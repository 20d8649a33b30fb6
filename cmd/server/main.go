// Package main is the entry point for the TaskVault Storage Service.
// @title TaskVault Storage Service API
// @version 1.0
// @description Session-scoped task storage with pluggable backends (memory, Badger, Redis, MongoDB)

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /
// @schemes http https
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskvault/storage-service/internal/api/handlers"
	"github.com/taskvault/storage-service/internal/api/middleware"
	"github.com/taskvault/storage-service/internal/api/routes"
	"github.com/taskvault/storage-service/internal/config"
	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
	badgerstore "github.com/taskvault/storage-service/internal/infrastructure/storage/badger"
	memorystore "github.com/taskvault/storage-service/internal/infrastructure/storage/memory"
	mongostore "github.com/taskvault/storage-service/internal/infrastructure/storage/mongodb"
	redisstore "github.com/taskvault/storage-service/internal/infrastructure/storage/redis"
	"github.com/taskvault/storage-service/internal/pkg/metrics"
	"github.com/taskvault/storage-service/internal/services/health"
	"github.com/taskvault/storage-service/internal/services/orchestrator"
	"github.com/taskvault/storage-service/internal/services/session"
	"github.com/taskvault/storage-service/internal/services/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// Metrics registry
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	// Session registry
	registry, err := session.NewRegistry(&session.Config{
		DefaultTimeout:  cfg.Session.Timeout,
		CleanupInterval: cfg.Session.CleanupInterval,
		MaxSessions:     cfg.Session.MaxSessions,
		Logger:          log.Logger,
		Metrics:         m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session registry")
	}

	// Adapter orchestrator with the backend factory selected by config
	orch, err := orchestrator.New(&orchestrator.Config{
		Factory:                createAdapterFactory(cfg.Storage),
		Session:                models.NewSession(store.DefaultSessionID, cfg.Session.Timeout),
		MaxRetries:             cfg.Orchestrator.MaxRetries,
		RetryDelay:             cfg.Orchestrator.RetryDelay,
		RecoveryMaxRetries:     cfg.Orchestrator.RecoveryMaxRetries,
		RecoveryRetryDelay:     cfg.Orchestrator.RecoveryRetryDelay,
		MaxConsecutiveFailures: cfg.Orchestrator.MaxConsecutiveFailures,
		EnableAutoRecovery:     cfg.Orchestrator.EnableAutoRecovery,
		InitWaitTimeout:        cfg.Orchestrator.InitWaitTimeout,
		Logger:                 log.Logger,
		Metrics:                m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create orchestrator")
	}

	if err := orch.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Str("storage_type", string(cfg.Storage.Type)).Msg("failed to initialize storage adapter")
	}

	// Health monitor
	monitor, err := health.NewMonitor(&health.Config{
		Orchestrator:          orch,
		CheckInterval:         cfg.Health.CheckInterval,
		FailureThreshold:      cfg.Health.FailureThreshold,
		RecoveryThreshold:     cfg.Health.RecoveryThreshold,
		ResponseTimeThreshold: cfg.Health.ResponseTimeThreshold,
		TrendWindowSize:       cfg.Health.TrendWindowSize,
		CacheTTL:              cfg.Health.CacheTTL,
		Logger:                log.Logger,
		Metrics:               m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create health monitor")
	}

	if err := monitor.RegisterAlertHandler(ctx, logAlerts()); err != nil {
		log.Fatal().Err(err).Msg("failed to register alert handler")
	}
	if err := monitor.StartMonitoring(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start health monitoring")
	}

	// Facade provider
	provider, err := store.NewProvider(&store.Config{
		Registry:     registry,
		Orchestrator: orch,
		Monitor:      monitor,
		Logger:       log.Logger,
		Metrics:      m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage facade provider")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Setup router
	router := setupRouter(monitor, orch, provider, m)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("address", cfg.Server.Address()).Str("storage_type", string(cfg.Storage.Type)).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := provider.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to close storage components")
	}

	log.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger from config.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// createAdapterFactory returns the adapter factory for the configured backend.
func createAdapterFactory(cfg config.StorageConfig) storage.Factory {
	switch cfg.Type {
	case storage.TypeBadger:
		return func(ctx context.Context) (storage.Adapter, error) {
			return badgerstore.NewAdapter(badgerstore.Config{
				Path: cfg.Badger.Path,
			})
		}
	case storage.TypeRedis:
		return func(ctx context.Context) (storage.Adapter, error) {
			return redisstore.NewAdapter(redisstore.Config{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}
	case storage.TypeMongoDB:
		return func(ctx context.Context) (storage.Adapter, error) {
			return mongostore.NewAdapter(mongostore.Config{
				URI:          cfg.Mongo.URI,
				DatabaseName: cfg.Mongo.Database,
			})
		}
	default:
		return func(ctx context.Context) (storage.Adapter, error) {
			return memorystore.NewAdapter(), nil
		}
	}
}

// logAlerts returns an alert handler that writes alerts to the global logger.
func logAlerts() health.AlertHandler {
	return func(alert health.Alert) {
		log.Warn().
			Str("alert_id", alert.ID).
			Str("type", string(alert.Type)).
			Str("severity", string(alert.Severity)).
			Time("timestamp", alert.Timestamp).
			Msg(alert.Message)
	}
}

// setupRouter creates and configures the Gin router.
func setupRouter(monitor *health.Monitor, orch *orchestrator.Orchestrator, provider *store.Provider, m *metrics.Metrics) *gin.Engine {
	router := gin.New()

	// Create middleware
	loggingMw := middleware.NewLoggingMiddleware()
	errorMw := middleware.NewErrorMiddleware()
	sessionMw := middleware.NewSessionMiddleware()

	// Create handlers
	healthHandler := handlers.NewHealthHandler(monitor, orch, provider)
	tasksHandler := handlers.NewTasksHandler(provider)

	// Setup routes
	routesCfg := &routes.Config{
		HealthHandler:     healthHandler,
		TasksHandler:      tasksHandler,
		SessionMiddleware: sessionMw,
	}
	if m != nil {
		routesCfg.MetricsHandler = m.Handler()
	}

	routes.SetupWithMiddleware(router, routesCfg, loggingMw, errorMw)

	return router
}
