// Package testutils provides test utilities and helpers.
package testutils

import (
	"time"

	"github.com/taskvault/storage-service/internal/domain/models"
)

// Test constants
const (
	TestSessionID = "session-test-123"
	TestTaskID    = "task-test-456"
	TestProjectID = "project-test-789"
	TestUserID    = "user-test-def"
)

// NewTestTask creates a test task with default values.
func NewTestTask() *models.Task {
	now := time.Now().UTC()
	return &models.Task{
		ID:          TestTaskID,
		Name:        "Test task",
		Description: "Test task description",
		ProjectID:   TestProjectID,
		Status:      models.StatusPending,
		Priority:    1,
		Tags:        []string{"test"},
		Metadata:    map[string]interface{}{"source": "fixture"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestTaskWithID creates a test task with the given id and name.
func NewTestTaskWithID(id, name string) *models.Task {
	task := NewTestTask()
	task.ID = id
	task.Name = name
	return task
}

// NewTestSession creates a test session with default values.
func NewTestSession() *models.Session {
	return models.NewSession(TestSessionID, 30*time.Minute)
}
