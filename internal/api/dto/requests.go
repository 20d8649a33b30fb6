// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	ID          string                 `json:"id" binding:"omitempty,max=128"`
	Name        string                 `json:"name" binding:"required,min=1,max=500"`
	Description string                 `json:"description" binding:"omitempty,max=10000"`
	ProjectID   string                 `json:"projectId" binding:"omitempty,max=128"`
	Status      string                 `json:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
	Priority    int                    `json:"priority" binding:"omitempty,min=0,max=10"`
	Tags        []string               `json:"tags" binding:"omitempty,max=50"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateTaskRequest represents the request body for a partial task update.
// Absent fields are left unchanged; tags replace wholesale, metadata merges.
type UpdateTaskRequest struct {
	Name        *string                `json:"name" binding:"omitempty,min=1,max=500"`
	Description *string                `json:"description" binding:"omitempty,max=10000"`
	ProjectID   *string                `json:"projectId" binding:"omitempty,max=128"`
	Status      *string                `json:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
	Priority    *int                   `json:"priority" binding:"omitempty,min=0,max=10"`
	Tags        []string               `json:"tags" binding:"omitempty,max=50"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ListTasksRequest represents the query parameters for listing tasks.
type ListTasksRequest struct {
	Name string `form:"name" binding:"omitempty,max=500"`
}

// HealthCheckRequest represents the query parameters for a health check.
type HealthCheckRequest struct {
	Strategy string `form:"strategy" binding:"omitempty,oneof=ping read write comprehensive"`
}
