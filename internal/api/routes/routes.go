// Package routes defines the HTTP routes for the TaskVault Storage Service.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/storage-service/internal/api/handlers"
	"github.com/taskvault/storage-service/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler     *handlers.HealthHandler
	TasksHandler      *handlers.TasksHandler
	SessionMiddleware *middleware.SessionMiddleware
	// MetricsHandler serves the /metrics endpoint. Optional.
	MetricsHandler http.Handler
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// API v1 routes - all routes under /api/v1/storage-service
	v1 := r.Group("/api/v1/storage-service")
	{
		// Health check routes
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		if cfg.MetricsHandler != nil {
			v1.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
		}

		// Session-scoped routes
		scoped := v1.Group("")
		scoped.Use(cfg.SessionMiddleware.ExtractSession())
		{
			scoped.GET("/diagnostics", cfg.HealthHandler.Diagnostics)
			scoped.POST("/recover", cfg.HealthHandler.Recover)
			scoped.GET("/stats", cfg.TasksHandler.GetStats)

			// --- Task CRUD Routes ---
			tasks := scoped.Group("/tasks")
			{
				tasks.GET("", cfg.TasksHandler.ListTasks)
				tasks.POST("", cfg.TasksHandler.CreateTask)
				tasks.DELETE("", cfg.TasksHandler.ClearTasks)

				tasks.GET("/find", cfg.TasksHandler.FindTasks)
				tasks.GET("/:taskId", cfg.TasksHandler.GetTask)
				tasks.PUT("/:taskId", cfg.TasksHandler.UpdateTask)
				tasks.DELETE("/:taskId", cfg.TasksHandler.DeleteTask)
			}

			// --- Project Routes ---
			scoped.GET("/projects/:projectId/tasks", cfg.TasksHandler.GetProjectTasks)
		}
	}

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	// Apply global middleware
	r.HandleMethodNotAllowed = true
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(gin.Recovery())
	r.Use(middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()))

	// Setup routes
	Setup(r, cfg)
}
