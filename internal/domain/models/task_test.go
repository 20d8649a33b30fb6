package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/domain/models"
)

func TestNewTask_GeneratesID(t *testing.T) {
	// Act
	task := models.NewTask("", "write report")

	// Assert
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "write report", task.Name)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestNewTask_KeepsCallerID(t *testing.T) {
	// Act
	task := models.NewTask("task-1", "write report")

	// Assert
	assert.Equal(t, "task-1", task.ID)
}

func TestTaskApply_PartialUpdate(t *testing.T) {
	// Arrange
	task := models.NewTask("task-1", "write report")
	task.Description = "original"
	task.Metadata = map[string]interface{}{"a": 1, "b": 2}
	before := task.UpdatedAt

	name := "revise report"
	status := models.StatusInProgress
	update := &models.TaskUpdate{
		Name:     &name,
		Status:   &status,
		Tags:     []string{"urgent"},
		Metadata: map[string]interface{}{"b": 3, "c": 4},
	}

	// Act
	time.Sleep(time.Millisecond)
	task.Apply(update)

	// Assert
	assert.Equal(t, "revise report", task.Name)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, "original", task.Description, "absent fields stay untouched")
	assert.Equal(t, []string{"urgent"}, task.Tags)
	// Metadata shallow-merges, tags replace wholesale.
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3, "c": 4}, task.Metadata)
	assert.True(t, task.UpdatedAt.After(before))
}

func TestTaskApply_NilUpdate(t *testing.T) {
	// Arrange
	task := models.NewTask("task-1", "write report")
	before := task.UpdatedAt

	// Act
	task.Apply(nil)

	// Assert
	assert.Equal(t, before, task.UpdatedAt)
}

func TestTaskClone_Independent(t *testing.T) {
	// Arrange
	task := models.NewTask("task-1", "write report")
	task.Tags = []string{"a"}
	task.Metadata = map[string]interface{}{"k": "v"}

	// Act
	clone := task.Clone()
	clone.Tags[0] = "mutated"
	clone.Metadata["k"] = "mutated"

	// Assert
	assert.Equal(t, []string{"a"}, task.Tags)
	assert.Equal(t, "v", task.Metadata["k"])
}

func TestSessionTouch_ExtendsExpiry(t *testing.T) {
	// Arrange
	session := models.NewSession("s1", 50*time.Millisecond)
	firstExpiry := session.ExpiresAt

	// Act
	time.Sleep(10 * time.Millisecond)
	session.Touch()

	// Assert
	assert.True(t, session.ExpiresAt.After(firstExpiry))
	assert.False(t, session.IsExpired())
}

func TestSessionIsExpired(t *testing.T) {
	// Arrange
	session := models.NewSession("s1", 10*time.Millisecond)
	require.False(t, session.IsExpired())

	// Act
	time.Sleep(20 * time.Millisecond)

	// Assert
	assert.True(t, session.IsExpired())
}

func TestSessionClone_Independent(t *testing.T) {
	// Arrange
	session := models.NewSession("s1", time.Minute)
	session.Metadata = map[string]interface{}{"k": "v"}

	// Act
	clone := session.Clone()
	clone.Metadata["k"] = "mutated"

	// Assert
	assert.Equal(t, "v", session.Metadata["k"])
}
