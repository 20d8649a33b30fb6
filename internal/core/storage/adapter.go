// Package storage defines the storage adapter interface and shared types.
package storage

import (
	"context"
	"errors"

	"github.com/taskvault/storage-service/internal/domain/models"
)

// Sentinel errors adapters wrap so callers can classify backend failures
// without inspecting message text.
var (
	// ErrAlreadyExists is returned by Create when the task id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned by Update when the task does not exist.
	ErrNotFound = errors.New("not found")
)

// HealthResult is the outcome of a single adapter health probe.
type HealthResult struct {
	Healthy bool                   `json:"healthy"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Stats describes the adapter's current contents.
type Stats struct {
	ItemCount      int64                  `json:"itemCount"`
	StorageType    Type                   `json:"storageType"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// Adapter is the contract every storage backend implements. The orchestrator
// drives Initialize/HealthCheck/Close; the facade drives the CRUD set.
// Implementations are free to fail with backend-specific errors; callers wrap
// them before they reach the API surface.
type Adapter interface {
	// Initialize prepares the backend for the given session. It must be
	// called before any CRUD operation.
	Initialize(ctx context.Context, session *models.Session) error

	// HealthCheck probes the backend and reports liveness.
	HealthCheck(ctx context.Context) HealthResult

	// Close releases all backend resources. Idempotent.
	Close(ctx context.Context) error

	// List returns all tasks.
	List(ctx context.Context) ([]*models.Task, error)

	// Get returns a task by id, or nil if it does not exist.
	Get(ctx context.Context, id string) (*models.Task, error)

	// Create stores a new task. Fails if the id already exists.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)

	// Update applies a partial update to an existing task.
	Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error)

	// Delete removes a task by id. Returns true if it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// FindByName returns tasks whose name contains the given string
	// (case-insensitive).
	FindByName(ctx context.Context, name string) ([]*models.Task, error)

	// Clear removes all tasks and returns the number removed.
	Clear(ctx context.Context) (int64, error)

	// GetByProject returns tasks belonging to the given project.
	GetByProject(ctx context.Context, projectID string) ([]*models.Task, error)

	// Stats returns the adapter's current item count and backend info.
	Stats(ctx context.Context) (*Stats, error)
}

// Factory constructs a fresh adapter instance. The orchestrator calls it once
// per initialization attempt so a failed adapter can be discarded wholesale.
type Factory func(ctx context.Context) (Adapter, error)
