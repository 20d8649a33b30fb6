// Package models contains domain models for the TaskVault Storage Service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle status of a task.
type TaskStatus string

const (
	// StatusPending represents a task that has not been started.
	StatusPending TaskStatus = "pending"
	// StatusInProgress represents a task that is being worked on.
	StatusInProgress TaskStatus = "in_progress"
	// StatusCompleted represents a finished task.
	StatusCompleted TaskStatus = "completed"
	// StatusArchived represents a task removed from active views.
	StatusArchived TaskStatus = "archived"
)

// Task represents a stored task record.
type Task struct {
	ID          string                 `json:"id" bson:"_id"`
	Name        string                 `json:"name" bson:"name"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	ProjectID   string                 `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Status      TaskStatus             `json:"status" bson:"status"`
	Priority    int                    `json:"priority,omitempty" bson:"priority,omitempty"`
	Tags        []string               `json:"tags,omitempty" bson:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// TaskUpdate describes a partial update to a task. Nil fields are left
// untouched; Metadata is shallow-merged into the existing map.
type TaskUpdate struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	ProjectID   *string                `json:"projectId,omitempty"`
	Status      *TaskStatus            `json:"status,omitempty"`
	Priority    *int                   `json:"priority,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewTask creates a new task with the given name. An ID is generated when the
// caller does not supply one.
func NewTask(id, name string) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Task{
		ID:        id,
		Name:      name,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply merges the update into the task and bumps UpdatedAt.
func (t *Task) Apply(update *TaskUpdate) {
	if update == nil {
		return
	}
	if update.Name != nil {
		t.Name = *update.Name
	}
	if update.Description != nil {
		t.Description = *update.Description
	}
	if update.ProjectID != nil {
		t.ProjectID = *update.ProjectID
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Priority != nil {
		t.Priority = *update.Priority
	}
	if update.Tags != nil {
		t.Tags = append([]string(nil), update.Tags...)
	}
	if update.Metadata != nil {
		if t.Metadata == nil {
			t.Metadata = make(map[string]interface{}, len(update.Metadata))
		}
		for k, v := range update.Metadata {
			t.Metadata[k] = v
		}
	}
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep-enough copy of the task for handing across API
// boundaries. Tags and Metadata are copied; metadata values are shared.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Tags != nil {
		clone.Tags = append([]string(nil), t.Tags...)
	}
	if t.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
