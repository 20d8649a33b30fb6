// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/storage-service/internal/api/dto"
	"github.com/taskvault/storage-service/internal/api/middleware"
	"github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/services/health"
	"github.com/taskvault/storage-service/internal/services/orchestrator"
	"github.com/taskvault/storage-service/internal/services/store"
)

// HealthHandler handles health, readiness, and diagnostics endpoints.
type HealthHandler struct {
	monitor  *health.Monitor
	orch     *orchestrator.Orchestrator
	provider *store.Provider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(monitor *health.Monitor, orch *orchestrator.Orchestrator, provider *store.Provider) *HealthHandler {
	return &HealthHandler{
		monitor:  monitor,
		orch:     orch,
		provider: provider,
	}
}

// Health handles the /health endpoint.
// @Summary Health check
// @Description Runs a health check against the active storage adapter
// @Tags Health
// @Produce json
// @Param strategy query string false "Probe strategy" Enums(ping, read, write, comprehensive)
// @Success 200 {object} dto.HealthResponse "Adapter healthy or degraded"
// @Failure 503 {object} dto.HealthResponse "Adapter unhealthy"
// @Router /api/v1/storage-service/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	var req dto.HealthCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}

	result, err := h.monitor.CheckHealth(c.Request.Context(), req.Strategy)
	if err != nil {
		middleware.HandleError(c, errors.NewInternalError("health check failed", err))
		return
	}

	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, dto.HealthResponse{
		Status:              string(result.Status),
		Healthy:             result.Healthy,
		Strategy:            result.Strategy,
		ResponseTimeMs:      result.ResponseTime.Milliseconds(),
		ConsecutiveFailures: result.ConsecutiveFailures,
		Error:               result.Error,
		Details:             result.Details,
	})
}

// Ready handles the /ready endpoint.
// @Summary Readiness check
// @Description Returns 200 once the storage adapter is initialized
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service ready"
// @Failure 503 {object} map[string]string "Service not ready"
// @Router /api/v1/storage-service/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	status, err := h.orch.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	switch status.State {
	case orchestrator.StateReady, orchestrator.StateUnhealthy:
		// An unhealthy adapter still serves traffic while recovery runs.
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"state":  string(status.State),
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"state":  string(status.State),
		})
	}
}

// Live handles the /live endpoint.
// @Summary Liveness check
// @Description Returns 200 if the service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service alive"
// @Router /api/v1/storage-service/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Diagnostics handles the /diagnostics endpoint.
// @Summary Diagnostics
// @Description Aggregates orchestrator state, health trend, session stats, and recent alerts
// @Tags Health
// @Produce json
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} store.Diagnostics
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/diagnostics [get]
func (h *HealthHandler) Diagnostics(c *gin.Context) {
	svc, err := h.provider.ForSession(middleware.GetSessionID(c))
	if err != nil {
		middleware.HandleError(c, errors.NewInternalError("failed to resolve storage session", err))
		return
	}

	diagnostics, err := svc.Diagnostics(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, diagnostics)
}

// Recover handles the /recover endpoint.
// @Summary Force adapter recovery
// @Description Discards the current adapter and reinitializes it
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Recovery succeeded"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/recover [post]
func (h *HealthHandler) Recover(c *gin.Context) {
	if err := h.monitor.ForceRecovery(c.Request.Context()); err != nil {
		middleware.HandleError(c, errors.NewInternalError("recovery failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "recovered",
	})
}
