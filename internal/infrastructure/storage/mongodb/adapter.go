// Package mongodb provides the MongoDB storage adapter.
package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

const (
	// TasksCollection is the name of the tasks collection.
	TasksCollection = "tasks"
)

// Config holds MongoDB connection configuration.
type Config struct {
	URI          string
	DatabaseName string
}

// Adapter implements storage.Adapter on top of a MongoDB collection.
type Adapter struct {
	cfg Config

	mu          sync.RWMutex
	client      *mongo.Client
	collection  *mongo.Collection
	initialized bool
	closed      bool
	sessionID   string
}

// NewAdapter creates a new MongoDB adapter. The connection is established
// during Initialize so connection failures stay inside the orchestrator's
// retry loop.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if cfg.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}
	return &Adapter{cfg: cfg}, nil
}

// Initialize connects to MongoDB, verifies the connection, and ensures
// indexes on name and projectId.
func (a *Adapter) Initialize(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("mongodb adapter is closed")
	}
	if a.initialized {
		return nil
	}

	clientOpts := options.Client().ApplyURI(a.cfg.URI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(a.cfg.DatabaseName).Collection(TasksCollection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "projectId", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ensure task indexes: %w", err)
	}

	a.client = client
	a.collection = collection
	if session != nil {
		a.sessionID = session.ID
	}
	a.initialized = true
	return nil
}

// HealthCheck pings MongoDB.
func (a *Adapter) HealthCheck(ctx context.Context) storage.HealthResult {
	a.mu.RLock()
	client := a.client
	closed := a.closed
	a.mu.RUnlock()

	if closed || client == nil {
		return storage.HealthResult{Healthy: false, Error: "adapter is not initialized"}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return storage.HealthResult{Healthy: false, Error: fmt.Sprintf("mongodb ping failed: %v", err)}
	}
	return storage.HealthResult{
		Healthy: true,
		Details: map[string]interface{}{
			"database":   a.cfg.DatabaseName,
			"collection": TasksCollection,
		},
	}
}

// Close disconnects from MongoDB. Idempotent.
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
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	a.client = nil
	a.collection = nil
	return nil
}

// List returns all tasks sorted by creation time.
func (a *Adapter) List(ctx context.Context) ([]*models.Task, error) {
	return a.find(ctx, bson.M{})
}

// Get returns a task by id, or nil if it does not exist.
func (a *Adapter) Get(ctx context.Context, id string) (*models.Task, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	var task models.Task
	err = coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %q: %w", id, err)
	}
	return &task, nil
}

// Create stores a new task. Duplicate ids fail on the _id unique index.
func (a *Adapter) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	if _, err := coll.InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("task %q: %w", task.ID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task.Clone(), nil
}

// Update applies a partial update to an existing task. The merge is done
// client-side so metadata keeps its shallow-merge semantics.
func (a *Adapter) Update(ctx context.Context, id string, update *models.TaskUpdate) (*models.Task, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	task, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %q: %w", id, storage.ErrNotFound)
	}
	task.Apply(update)
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, task)
	if err != nil {
		return nil, fmt.Errorf("failed to update task %q: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("task %q: %w", id, storage.ErrNotFound)
	}
	return task, nil
}

// Delete removes a task by id.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return false, err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete task %q: %w", id, err)
	}
	return result.DeletedCount > 0, nil
}

// FindByName returns tasks whose name contains the given string.
func (a *Adapter) FindByName(ctx context.Context, name string) ([]*models.Task, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}
	return a.find(ctx, bson.M{"name": bson.M{"$regex": pattern}})
}

// Clear removes all tasks.
func (a *Adapter) Clear(ctx context.Context) (int64, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return 0, err
	}
	result, err := coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear tasks: %w", err)
	}
	return result.DeletedCount, nil
}

// GetByProject returns tasks belonging to the given project.
func (a *Adapter) GetByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return a.find(ctx, bson.M{"projectId": projectID})
}

// Stats returns the adapter's current item count.
func (a *Adapter) Stats(ctx context.Context) (*storage.Stats, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	return &storage.Stats{
		ItemCount:   count,
		StorageType: storage.TypeMongoDB,
		AdditionalInfo: map[string]interface{}{
			"database":   a.cfg.DatabaseName,
			"collection": TasksCollection,
			"sessionId":  a.sessionID,
		},
	}, nil
}

// find runs a filtered query sorted by creation time.
func (a *Adapter) find(ctx context.Context, filter bson.M) ([]*models.Task, error) {
	coll, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// ready checks context and lifecycle state and returns the live collection.
func (a *Adapter) ready(ctx context.Context) (*mongo.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, fmt.Errorf("mongodb adapter is closed")
	}
	if !a.initialized || a.collection == nil {
		return nil, fmt.Errorf("mongodb adapter is not initialized")
	}
	return a.collection, nil
}
