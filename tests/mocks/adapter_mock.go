// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

// MockAdapter is a mock implementation of storage.Adapter.
type MockAdapter struct {
	mock.Mock
}

// Initialize prepares the adapter for the given session.
func (m *MockAdapter) Initialize(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// HealthCheck probes the backend.
func (m *MockAdapter) HealthCheck(ctx context.Context) storage.HealthResult {
	args := m.Called(ctx)
	return args.Get(0).(storage.HealthResult)
}

// Close releases the adapter's resources.
func (m *MockAdapter) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// List returns all tasks.
func (m *MockAdapter) List(ctx context.Context) ([]*models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

// Get returns a task by id.
func (m *MockAdapter) Get(ctx context.Context, id string) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

// Create stores a new task.
func (m *MockAdapter) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

// Update applies a partial update to a task.
func (m *MockAdapter) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

// Delete removes a task by id.
func (m *MockAdapter) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// FindByName returns tasks whose name contains the given string.
func (m *MockAdapter) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

// Clear removes all tasks.
func (m *MockAdapter) Clear(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetByProject returns tasks belonging to a project.
func (m *MockAdapter) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

// Stats returns backend statistics.
func (m *MockAdapter) Stats(ctx context.Context) (*storage.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Stats), args.Error(1)
}
