// Package redis provides the Redis storage adapter.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

const taskKeyPrefix = "task:"

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	// DialTimeout bounds the connection probe during Initialize.
	DialTimeout time.Duration
}

// Adapter implements storage.Adapter on top of Redis. Each task is stored as
// a JSON value under "task:<id>".
type Adapter struct {
	cfg Config

	mu          sync.RWMutex
	client      *redis.Client
	initialized bool
	closed      bool
	sessionID   string
}

// NewAdapter creates a new Redis adapter. The connection is established during
// Initialize so connection failures stay inside the orchestrator's retry loop.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, fmt.Errorf("redis host and port are required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Adapter{cfg: cfg}, nil
}

// Initialize connects to Redis and verifies the connection.
func (a *Adapter) Initialize(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("redis adapter is closed")
	}
	if a.initialized {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", a.cfg.Host, a.cfg.Port),
		Password: a.cfg.Password,
		DB:       a.cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.client = client
	if session != nil {
		a.sessionID = session.ID
	}
	a.initialized = true
	return nil
}

// HealthCheck pings Redis.
func (a *Adapter) HealthCheck(ctx context.Context) storage.HealthResult {
	client, err := a.ready(ctx)
	if err != nil {
		return storage.HealthResult{Healthy: false, Error: err.Error()}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return storage.HealthResult{Healthy: false, Error: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return storage.HealthResult{
		Healthy: true,
		Details: map[string]interface{}{
			"addr": fmt.Sprintf("%s:%s", a.cfg.Host, a.cfg.Port),
			"db":   a.cfg.DB,
		},
	}
}

// Close closes the Redis connection. Idempotent.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.initialized = false
	if a.client == nil {
		return nil
	}
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	a.client = nil
	return nil
}

// List returns all tasks sorted by creation time.
func (a *Adapter) List(ctx context.Context) ([]*models.Task, error) {
	return a.scan(ctx, func(t *models.Task) bool { return true })
}

// Get returns a task by id, or nil if it does not exist.
func (a *Adapter) Get(ctx context.Context, id string) (*models.Task, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	val, err := client.Get(ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %q: %w", id, err)
	}
	return decodeTask(val)
}

// Create stores a new task. Uses SETNX so an existing id fails.
func (a *Adapter) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	val, err := encodeTask(task)
	if err != nil {
		return nil, err
	}
	ok, err := client.SetNX(ctx, taskKey(task.ID), val, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("task %q: %w", task.ID, storage.ErrAlreadyExists)
	}
	return task.Clone(), nil
}

// updateTxRetries bounds the optimistic-locking retry loop in Update.
const updateTxRetries = 5

// Update applies a partial update to an existing task. The read-modify-write
// runs inside a WATCH/MULTI transaction so a concurrent writer aborts the
// commit instead of being silently overwritten; aborted transactions are
// retried a bounded number of times.
func (a *Adapter) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}

	key := taskKey(id)
	var updated *models.Task
	apply := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return fmt.Errorf("task %q: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get task %q: %w", id, err)
		}
		task, err := decodeTask(val)
		if err != nil {
			return err
		}
		task.Apply(update)
		encoded, err := encodeTask(task)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = task
		return nil
	}

	for attempt := 0; attempt < updateTxRetries; attempt++ {
		err := client.Watch(ctx, apply, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update task %q: transaction aborted after %d attempts", id, updateTxRetries)
}

// Delete removes a task by id.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return false, err
	}
	deleted, err := client.Del(ctx, taskKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete task %q: %w", id, err)
	}
	return deleted > 0, nil
}

// FindByName returns tasks whose name contains the given string.
func (a *Adapter) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	needle := strings.ToLower(name)
	return a.scan(ctx, func(t *models.Task) bool {
		return strings.Contains(strings.ToLower(t.Name), needle)
	})
}

// Clear removes all tasks using a SCAN loop.
func (a *Adapter) Clear(ctx context.Context) (int64, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return 0, err
	}
	var cursor uint64
	var deleted int64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan task keys: %w", err)
		}
		if len(keys) > 0 {
			result, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete task keys: %w", err)
			}
			deleted += result
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// GetByProject returns tasks belonging to the given project.
func (a *Adapter) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return a.scan(ctx, func(t *models.Task) bool { return t.ProjectID == projectID })
}

// Stats returns the adapter's current item count.
func (a *Adapter) Stats(ctx context.Context) (*storage.Stats, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var cursor uint64
	var count int64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan task keys: %w", err)
		}
		count += int64(len(keys))
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return &storage.Stats{
		ItemCount:   count,
		StorageType: storage.TypeRedis,
		AdditionalInfo: map[string]interface{}{
			"addr":      fmt.Sprintf("%s:%s", a.cfg.Host, a.cfg.Port),
			"db":        a.cfg.DB,
			"sessionId": a.sessionID,
		},
	}, nil
}

// scan iterates all task keys, fetches values with MGET, and returns decoded
// tasks passing the filter, sorted by creation time.
func (a *Adapter) scan(ctx context.Context, keep func(*models.Task) bool) ([]*models.Task, error) {
	client, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var cursor uint64
	var tasks []*models.Task
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, taskKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan task keys: %w", err)
		}
		if len(keys) > 0 {
			vals, err := client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to fetch tasks: %w", err)
			}
			for _, v := range vals {
				// Keys can expire between SCAN and MGET.
				s, ok := v.(string)
				if !ok {
					continue
				}
				t, err := decodeTask([]byte(s))
				if err != nil {
					return nil, err
				}
				if keep(t) {
					tasks = append(tasks, t)
				}
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ready checks context and lifecycle state and returns the live client.
func (a *Adapter) ready(ctx context.Context) (*redis.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, fmt.Errorf("redis adapter is closed")
	}
	if !a.initialized || a.client == nil {
		return nil, fmt.Errorf("redis adapter is not initialized")
	}
	return a.client, nil
}

func taskKey(id string) string {
	return taskKeyPrefix + id
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
