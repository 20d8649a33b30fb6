// Package memory provides the in-memory storage adapter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

// Adapter implements storage.Adapter backed by a process-local map. It is the
// zero-configuration default backend.
type Adapter struct {
	mu          sync.RWMutex
	tasks       map[string]*models.Task
	initialized bool
	closed      bool
	sessionID   string
}

// NewAdapter creates a new in-memory adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		tasks: make(map[string]*models.Task),
	}
}

// Initialize prepares the adapter for the given session.
func (a *Adapter) Initialize(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("memory adapter is closed")
	}
	if session != nil {
		a.sessionID = session.ID
	}
	a.initialized = true
	return nil
}

// HealthCheck probes the adapter. The in-memory backend is healthy whenever
// it is initialized and not closed.
func (a *Adapter) HealthCheck(ctx context.Context) storage.HealthResult {
	if err := ctx.Err(); err != nil {
		return storage.HealthResult{Healthy: false, Error: err.Error()}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return storage.HealthResult{Healthy: false, Error: "adapter is closed"}
	}
	if !a.initialized {
		return storage.HealthResult{Healthy: false, Error: "adapter is not initialized"}
	}
	return storage.HealthResult{
		Healthy: true,
		Details: map[string]interface{}{
			"itemCount": len(a.tasks),
		},
	}
}

// Close releases the adapter. Idempotent.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.initialized = false
	a.tasks = make(map[string]*models.Task)
	return nil
}

// List returns all tasks sorted by creation time.
func (a *Adapter) List(ctx context.Context) ([]*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	tasks := make([]*models.Task, 0, len(a.tasks))
	for _, t := range a.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Get returns a task by id, or nil if it does not exist.
func (a *Adapter) Get(ctx context.Context, id string) (*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tasks[id].Clone(), nil
}

// Create stores a new task.
func (a *Adapter) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.tasks[task.ID]; exists {
		return nil, fmt.Errorf("task %q: %w", task.ID, storage.ErrAlreadyExists)
	}
	stored := task.Clone()
	a.tasks[stored.ID] = stored
	return stored.Clone(), nil
}

// Update applies a partial update to an existing task.
func (a *Adapter) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	task, exists := a.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task %q: %w", id, storage.ErrNotFound)
	}
	task.Apply(update)
	return task.Clone(), nil
}

// Delete removes a task by id.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	if err := a.ready(ctx); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.tasks[id]; !exists {
		return false, nil
	}
	delete(a.tasks, id)
	return true, nil
}

// FindByName returns tasks whose name contains the given string.
func (a *Adapter) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	a.mu.RLock()
	defer a.mu.RUnlock()
	var matches []*models.Task
	for _, t := range a.tasks {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			matches = append(matches, t.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

// Clear removes all tasks.
func (a *Adapter) Clear(ctx context.Context) (int64, error) {
	if err := a.ready(ctx); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	count := int64(len(a.tasks))
	a.tasks = make(map[string]*models.Task)
	return count, nil
}

// GetByProject returns tasks belonging to the given project.
func (a *Adapter) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var matches []*models.Task
	for _, t := range a.tasks {
		if t.ProjectID == projectID {
			matches = append(matches, t.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

// Stats returns the adapter's current item count.
func (a *Adapter) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &storage.Stats{
		ItemCount:   int64(len(a.tasks)),
		StorageType: storage.TypeMemory,
		AdditionalInfo: map[string]interface{}{
			"sessionId": a.sessionID,
		},
	}, nil
}

// ready checks context and adapter lifecycle state before an operation.
func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fmt.Errorf("memory adapter is closed")
	}
	if !a.initialized {
		return fmt.Errorf("memory adapter is not initialized")
	}
	return nil
}
