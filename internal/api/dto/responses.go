// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/taskvault/storage-service/internal/domain/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	ProjectID   string                 `json:"projectId,omitempty"`
	Status      string                 `json:"status"`
	Priority    int                    `json:"priority"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// NewTaskResponse converts a task model into its API shape.
func NewTaskResponse(task *models.Task) *TaskResponse {
	if task == nil {
		return nil
	}
	return &TaskResponse{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		ProjectID:   task.ProjectID,
		Status:      string(task.Status),
		Priority:    task.Priority,
		Tags:        task.Tags,
		Metadata:    task.Metadata,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// NewTaskResponses converts a slice of task models.
func NewTaskResponses(tasks []*models.Task) []*TaskResponse {
	responses := make([]*TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}
	return responses
}

// ListTasksResponse represents the response for listing tasks.
type ListTasksResponse struct {
	Tasks []*TaskResponse `json:"tasks"`
	Total int             `json:"total"`
}

// ClearTasksResponse represents the response for clearing all tasks.
type ClearTasksResponse struct {
	Removed int64 `json:"removed"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status              string                 `json:"status"`
	Healthy             bool                   `json:"healthy"`
	Strategy            string                 `json:"strategy"`
	ResponseTimeMs      int64                  `json:"responseTimeMs"`
	ConsecutiveFailures int                    `json:"consecutiveFailures"`
	Error               string                 `json:"error,omitempty"`
	Details             map[string]interface{} `json:"details,omitempty"`
}
