package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
	"github.com/taskvault/storage-service/internal/infrastructure/storage/badger"
	"github.com/taskvault/storage-service/tests/testutils"
)

func newInitializedAdapter(t *testing.T) *badger.Adapter {
	t.Helper()
	adapter, err := badger.NewAdapter(badger.Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, adapter.Initialize(context.Background(), testutils.NewTestSession()))
	t.Cleanup(func() {
		_ = adapter.Close(context.Background())
	})
	return adapter
}

func TestNewAdapter_RequiresPath(t *testing.T) {
	// Act
	adapter, err := badger.NewAdapter(badger.Config{})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, adapter)
	assert.Contains(t, err.Error(), "path is required")
}

func TestInitialize_OpensOnDisk(t *testing.T) {
	// Arrange
	adapter, err := badger.NewAdapter(badger.Config{Path: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	// Act
	err = adapter.Initialize(ctx, testutils.NewTestSession())

	// Assert
	require.NoError(t, err)
	assert.True(t, adapter.HealthCheck(ctx).Healthy)
	require.NoError(t, adapter.Close(ctx))
}

func TestOperations_RequireInitialize(t *testing.T) {
	// Arrange
	adapter, err := badger.NewAdapter(badger.Config{InMemory: true})
	require.NoError(t, err)

	// Act
	_, err = adapter.List(context.Background())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestCreateGetUpdateDelete(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()

	// Act: full round trip through the persisted encoding.
	created, err := adapter.Create(ctx, testutils.NewTestTask())
	require.NoError(t, err)

	fetched, err := adapter.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, created.Tags, fetched.Tags)

	name := "renamed"
	updated, err := adapter.Update(ctx, created.ID, &models.TaskUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	removed, err := adapter.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := adapter.Get(ctx, created.ID)
	require.NoError(t, err)
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

func TestDelete_Missing(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)

	// Act
	removed, err := adapter.Delete(context.Background(), "missing")

	// Assert
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFindByNameAndProject(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()
	first := testutils.NewTestTaskWithID("t1", "Deploy Service")
	first.ProjectID = "p1"
	_, err := adapter.Create(ctx, first)
	require.NoError(t, err)
	second := testutils.NewTestTaskWithID("t2", "deployment plan")
	second.ProjectID = "p2"
	_, err = adapter.Create(ctx, second)
	require.NoError(t, err)

	// Act + Assert
	matches, err := adapter.FindByName(ctx, "DEPLOY")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	byProject, err := adapter.GetByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "t1", byProject[0].ID)
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
	assert.Equal(t, storage.TypeBadger, stats.StorageType)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, int64(0), after.ItemCount)
}

func TestClose_Idempotent(t *testing.T) {
	// Arrange
	adapter := newInitializedAdapter(t)
	ctx := context.Background()

	// Act + Assert
	require.NoError(t, adapter.Close(ctx))
	require.NoError(t, adapter.Close(ctx))

	_, err := adapter.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
