package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/infrastructure/storage/memory"
	"github.com/taskvault/storage-service/tests/testutils"
)

func newInitializedAdapter(t *testing.T) *memory.Adapter {
	t.Helper()
	adapter := memory.NewAdapter()
	require.NoError(t, adapter.Initialize(context.Background(), testutils.NewTestSession()))
	t.Cleanup(func() {
		_ = adapter.Close(context.Background())
	})
	return adapter
}

func TestOperations_RequireInitialize(t *testing.T) {
	// Arrange
	adapter := memory.NewAdapter()

	// Act
	_, err := adapter.List(context.Background())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestHealthCheck_Lifecycle(t *testing.T) {
	// Arrange
	adapter := memory.NewAdapter()
	ctx := context.Background()

	// Act + Assert
	assert.False(t, adapter.HealthCheck(ctx).Healthy)

	require.NoError(t, adapter.Initialize(ctx, testutils.NewTestSession()))
	assert.True(t, adapter.HealthCheck(ctx).Healthy)

	require.NoError(t, adapter.Close(ctx))
	assert.False(t, adapter.HealthCheck(ctx).Healthy)
}

func TestCreateGetDelete(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()

	// Act
	created, err := adapter.Create(ctx, testutils.NewTestTask())
	require.NoError(t, err)

	fetched, err := adapter.Get(ctx, created.ID)
	require.NoError(t, err)

	removed, err := adapter.Delete(ctx, created.ID)
	require.NoError(t, err)

	gone, err := adapter.Get(ctx, created.ID)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, created.ID, fetched.ID)
	assert.True(t, removed)
	assert.Nil(t, gone)
}

func TestCreate_DuplicateID(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	_, err := adapter.Create(ctx, testutils.NewTestTask())
	require.NoError(t, err)

	// Act
	_, err = adapter.Create(ctx, testutils.NewTestTask())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreate_ReturnsCopy(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	task := testutils.NewTestTask()

	// Act
	created, err := adapter.Create(ctx, task)
	require.NoError(t, err)
	created.Name = "mutated"
	task.Name = "also mutated"

	// Assert
	fetched, err := adapter.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test task", fetched.Name)
}

func TestList_SortedByCreationTime(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		task := testutils.NewTestTaskWithID(id, "task "+id)
		task.CreatedAt = time.Now().UTC()
		_, err := adapter.Create(ctx, task)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	// Act
	tasks, err := adapter.List(ctx)

	// Assert
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].ID)
	assert.Equal(t, "a", tasks[1].ID)
	assert.Equal(t, "b", tasks[2].ID)
}

func TestUpdate_MergesFields(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	_, err := adapter.Create(ctx, testutils.NewTestTask())
	require.NoError(t, err)

	priority := 5

	// Act
	updated, err := adapter.Update(ctx, testutils.TestTaskID, &models.TaskUpdate{Priority: &priority})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Priority)
	assert.Equal(t, "Test task", updated.Name)
}

func TestUpdate_Missing(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)

	// Act
	_, err := adapter.Update(context.Background(), "missing", &models.TaskUpdate{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFindByName_CaseInsensitive(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	_, err := adapter.Create(ctx, testutils.NewTestTaskWithID("t1", "Deploy Service"))
	require.NoError(t, err)
	_, err = adapter.Create(ctx, testutils.NewTestTaskWithID("t2", "deployment plan"))
	require.NoError(t, err)
	_, err = adapter.Create(ctx, testutils.NewTestTaskWithID("t3", "unrelated"))
	require.NoError(t, err)

	// Act
	matches, err := adapter.FindByName(ctx, "DEPLOY")

	// Assert
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestClearAndStats(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	_, err := adapter.Create(ctx, testutils.NewTestTaskWithID("t1", "one"))
	require.NoError(t, err)
	_, err = adapter.Create(ctx, testutils.NewTestTaskWithID("t2", "two"))
	require.NoError(t, err)

	// Act
	stats, err := adapter.Stats(ctx)
	require.NoError(t, err)
	removed, err := adapter.Clear(ctx)
	require.NoError(t, err)
	after, err := adapter.Stats(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(2), stats.ItemCount)
	assert.Equal(t, storage.TypeMemory, stats.StorageType)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, int64(0), after.ItemCount)
}

func TestGetByProject(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	task := testutils.NewTestTaskWithID("t1", "one")
	task.ProjectID = "p1"
	_, err := adapter.Create(ctx, task)
	require.NoError(t, err)
	other := testutils.NewTestTaskWithID("t2", "two")
	other.ProjectID = "p2"
	_, err = adapter.Create(ctx, other)
	require.NoError(t, err)

	// Act
	matches, err := adapter.GetByProject(ctx, "p1")

	// Assert
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "t1", matches[0].ID)
}

func TestCancelledContext(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := adapter.List(ctx)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
}
