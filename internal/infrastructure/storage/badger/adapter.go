// Package badger provides the embedded-file storage adapter backed by
// BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

const taskKeyPrefix = "task:"

// Config holds BadgerDB configuration.
type Config struct {
	// Path is the on-disk directory for the database. Required.
	Path string
	// InMemory runs badger without touching disk; used by tests.
	InMemory bool
}

// Adapter implements storage.Adapter on top of BadgerDB.
type Adapter struct {
	cfg Config

	mu          sync.RWMutex
	db          *badgerdb.DB
	initialized bool
	closed      bool
	sessionID   string
}

// NewAdapter creates a new badger adapter. The database is opened during
// Initialize, not here, so a failed open stays inside the orchestrator's
// retry loop.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger path is required")
	}
	return &Adapter{cfg: cfg}, nil
}

// Initialize opens the database and prepares the adapter for the session.
func (a *Adapter) Initialize(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("badger adapter is closed")
	}
	if a.initialized {
		return nil
	}

	opts := badgerdb.DefaultOptions(a.cfg.Path).WithLogger(nil)
	if a.cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	a.db = db
	if session != nil {
		a.sessionID = session.ID
	}
	a.initialized = true
	return nil
}

// HealthCheck verifies the database can serve a read transaction.
func (a *Adapter) HealthCheck(ctx context.Context) storage.HealthResult {
	if err := ctx.Err(); err != nil {
		return storage.HealthResult{Healthy: false, Error: err.Error()}
	}
	a.mu.RLock()
	db := a.db
	closed := a.closed
	a.mu.RUnlock()

	if closed || db == nil {
		return storage.HealthResult{Healthy: false, Error: "adapter is not initialized"}
	}
	if err := db.View(func(txn *badgerdb.Txn) error { return nil }); err != nil {
		return storage.HealthResult{Healthy: false, Error: fmt.Sprintf("badger read transaction failed: %v", err)}
	}
	lsm, vlog := db.Size()
	return storage.HealthResult{
		Healthy: true,
		Details: map[string]interface{}{
			"lsmSizeBytes":  lsm,
			"vlogSizeBytes": vlog,
		},
	}
}

// Close closes the database. Idempotent.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.initialized = false
	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	a.db = nil
	return nil
}

// List returns all tasks sorted by creation time.
func (a *Adapter) List(ctx context.Context) ([]*models.Task, error) {
	return a.scan(ctx, func(t *models.Task) bool { return true })
}

// Get returns a task by id, or nil if it does not exist.
func (a *Adapter) Get(ctx context.Context, id string) (*models.Task, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var task *models.Task
	err = db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(taskKey(id))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err := decodeTask(val)
			if err != nil {
				return err
			}
			task = t
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get task %q: %w", id, err)
	}
	return task, nil
}

// Create stores a new task.
func (a *Adapter) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	err = db.Update(func(txn *badgerdb.Txn) error {
		key := taskKey(task.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("task %q: %w", task.ID, storage.ErrAlreadyExists)
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}
		val, err := encodeTask(task)
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task.Clone(), nil
}

// Update applies a partial update to an existing task.
func (a *Adapter) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var updated *models.Task
	err = db.Update(func(txn *badgerdb.Txn) error {
		key := taskKey(id)
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("task %q: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var task *models.Task
		if err := item.Value(func(val []byte) error {
			t, err := decodeTask(val)
			if err != nil {
				return err
			}
			task = t
			return nil
		}); err != nil {
			return err
		}
		task.Apply(update)
		val, err := encodeTask(task)
		if err != nil {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task %q: %w", id, err)
	}
	return updated, nil
}

// Delete removes a task by id.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return false, err
	}
	existed := false
	err = db.Update(func(txn *badgerdb.Txn) error {
		key := taskKey(id)
		if _, err := txn.Get(key); err == badgerdb.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete task %q: %w", id, err)
	}
	return existed, nil
}

// FindByName returns tasks whose name contains the given string.
func (a *Adapter) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	needle := strings.ToLower(name)
	return a.scan(ctx, func(t *models.Task) bool {
		return strings.Contains(strings.ToLower(t.Name), needle)
	})
}

// Clear removes all tasks.
func (a *Adapter) Clear(ctx context.Context) (int64, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return 0, err
	}
	var keys [][]byte
	err = db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.IteratorOptions{Prefix: []byte(taskKeyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks for clear: %w", err)
	}
	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to delete task batch: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush clear batch: %w", err)
	}
	return int64(len(keys)), nil
}

// GetByProject returns tasks belonging to the given project.
func (a *Adapter) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return a.scan(ctx, func(t *models.Task) bool { return t.ProjectID == projectID })
}

// Stats returns the adapter's current item count and database sizes.
func (a *Adapter) Stats(ctx context.Context) (*storage.Stats, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var count int64
	err = db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.IteratorOptions{Prefix: []byte(taskKeyPrefix)}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	lsm, vlog := db.Size()
	return &storage.Stats{
		ItemCount:   count,
		StorageType: storage.TypeBadger,
		AdditionalInfo: map[string]interface{}{
			"path":          a.cfg.Path,
			"sessionId":     a.sessionID,
			"lsmSizeBytes":  lsm,
			"vlogSizeBytes": vlog,
		},
	}, nil
}

// scan iterates all task keys and returns decoded tasks passing the filter,
// sorted by creation time.
func (a *Adapter) scan(ctx context.Context, keep func(*models.Task) bool) ([]*models.Task, error) {
	db, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []*models.Task
	err = db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.IteratorOptions{Prefix: []byte(taskKeyPrefix), PrefetchValues: true, PrefetchSize: 100}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				t, err := decodeTask(val)
				if err != nil {
					return err
				}
				if keep(t) {
					tasks = append(tasks, t)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ready checks context and lifecycle state and returns the open database.
func (a *Adapter) ready(ctx context.Context) (*badgerdb.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, fmt.Errorf("badger adapter is closed")
	}
	if !a.initialized || a.db == nil {
		return nil, fmt.Errorf("badger adapter is not initialized")
	}
	return a.db, nil
}

func taskKey(id string) []byte {
	return []byte(taskKeyPrefix + id)
}

func encodeTask(t *models.Task) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}
	return data, nil
}

func decodeTask(data []byte) (*models.Task, error) {
	var t models.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &t, nil
}
