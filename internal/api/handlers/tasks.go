// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/storage-service/internal/api/dto"
	"github.com/taskvault/storage-service/internal/api/middleware"
	"github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/services/store"
)

// TasksHandler handles task CRUD endpoints.
type TasksHandler struct {
	provider *store.Provider
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(provider *store.Provider) *TasksHandler {
	return &TasksHandler{
		provider: provider,
	}
}

// service resolves the facade scoped to the request's session.
func (h *TasksHandler) service(c *gin.Context) (store.Service, bool) {
	svc, err := h.provider.ForSession(middleware.GetSessionID(c))
	if err != nil {
		middleware.HandleError(c, errors.NewInternalError("failed to resolve storage session", err))
		return nil, false
	}
	return svc, true
}

// ListTasks handles GET /tasks
// @Summary List tasks
// @Description Lists all tasks, or tasks matching a name substring when ?name= is given
// @Tags Tasks
// @Produce json
// @Param name query string false "Case-insensitive name substring"
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.ListTasksResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks [get]
func (h *TasksHandler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	var tasks []*models.Task
	var err error
	if req.Name != "" {
		tasks, err = svc.FindByName(ctx, req.Name)
	} else {
		tasks, err = svc.List(ctx)
	}
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Tasks: dto.NewTaskResponses(tasks),
		Total: len(tasks),
	})
}

// FindTasks handles GET /tasks/find
// @Summary Find tasks by name
// @Description Finds tasks whose name contains the given substring (case-insensitive)
// @Tags Tasks
// @Produce json
// @Param name query string true "Case-insensitive name substring"
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.ListTasksResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks/find [get]
func (h *TasksHandler) FindTasks(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if req.Name == "" {
		middleware.HandleError(c, errors.NewValidationError("name query parameter is required", ""))
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	tasks, err := svc.FindByName(ctx, req.Name)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Tasks: dto.NewTaskResponses(tasks),
		Total: len(tasks),
	})
}

// GetTask handles GET /tasks/{taskId}
// @Summary Get a task
// @Description Retrieves a single task by id
// @Tags Tasks
// @Produce json
// @Param taskId path string true "Task ID"
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks/{taskId} [get]
func (h *TasksHandler) GetTask(c *gin.Context) {
	ctx := c.Request.Context()

	svc, ok := h.service(c)
	if !ok {
		return
	}

	task, err := svc.Get(ctx, c.Param("taskId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTaskResponse(task))
}

// CreateTask handles POST /tasks
// @Summary Create a task
// @Description Stores a new task; the id is generated when omitted
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task to create"
// @Param X-Session-ID header string false "Session ID"
// @Success 201 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks [post]
func (h *TasksHandler) CreateTask(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	task := models.NewTask(req.ID, req.Name)
	task.Description = req.Description
	task.ProjectID = req.ProjectID
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}
	task.Priority = req.Priority
	task.Tags = req.Tags
	if req.Metadata != nil {
		task.Metadata = req.Metadata
	}

	created, err := svc.Create(ctx, task)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTaskResponse(created))
}

// UpdateTask handles PUT /tasks/{taskId}
// @Summary Update a task
// @Description Applies a partial update; absent fields are left unchanged
// @Tags Tasks
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param request body dto.UpdateTaskRequest true "Fields to update"
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks/{taskId} [put]
func (h *TasksHandler) UpdateTask(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	update := &models.TaskUpdate{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		update.Status = &status
	}

	updated, err := svc.Update(ctx, c.Param("taskId"), update)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTaskResponse(updated))
}

// DeleteTask handles DELETE /tasks/{taskId}
// @Summary Delete a task
// @Description Removes a task by id
// @Tags Tasks
// @Produce json
// @Param taskId path string true "Task ID"
// @Param X-Session-ID header string false "Session ID"
// @Success 204 "Task deleted"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks/{taskId} [delete]
func (h *TasksHandler) DeleteTask(c *gin.Context) {
	ctx := c.Request.Context()

	svc, ok := h.service(c)
	if !ok {
		return
	}

	if err := svc.Delete(ctx, c.Param("taskId")); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearTasks handles DELETE /tasks
// @Summary Clear all tasks
// @Description Removes every task and returns the number removed
// @Tags Tasks
// @Produce json
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.ClearTasksResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/tasks [delete]
func (h *TasksHandler) ClearTasks(c *gin.Context) {
	ctx := c.Request.Context()

	svc, ok := h.service(c)
	if !ok {
		return
	}

	removed, err := svc.Clear(ctx)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClearTasksResponse{Removed: removed})
}

// GetProjectTasks handles GET /projects/{projectId}/tasks
// @Summary List a project's tasks
// @Description Lists tasks belonging to the given project
// @Tags Tasks
// @Produce json
// @Param projectId path string true "Project ID"
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} dto.ListTasksResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/projects/{projectId}/tasks [get]
func (h *TasksHandler) GetProjectTasks(c *gin.Context) {
	ctx := c.Request.Context()

	svc, ok := h.service(c)
	if !ok {
		return
	}

	tasks, err := svc.GetByProject(ctx, c.Param("projectId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Tasks: dto.NewTaskResponses(tasks),
		Total: len(tasks),
	})
}

// GetStats handles GET /stats
// @Summary Storage statistics
// @Description Returns item count, storage type, and session access times
// @Tags Tasks
// @Produce json
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} store.Stats
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/storage-service/stats [get]
func (h *TasksHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	svc, ok := h.service(c)
	if !ok {
		return
	}

	stats, err := svc.GetStats(ctx)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
