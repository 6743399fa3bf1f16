package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the state of an asynchronous refresh task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// RefreshTask is a bulk refresh running in the background. IDs is empty when
// every product is refreshed.
type RefreshTask struct {
	ID          string          `json:"id"`
	IDs         []int           `json:"ids,omitempty"`
	Status      TaskStatus      `json:"status"`
	Message     string          `json:"message"`
	Result      *RefreshSummary `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewRefreshTask creates a queued task.
func NewRefreshTask(ids []int, now time.Time) *RefreshTask {
	return &RefreshTask{
		ID:        uuid.NewString(),
		IDs:       ids,
		Status:    TaskStatusQueued,
		Message:   "Refresh queued",
		CreatedAt: now,
	}
}

// Start marks the task as processing.
func (t *RefreshTask) Start(now time.Time) {
	t.Status = TaskStatusProcessing
	t.Message = "Refreshing prices"
	t.StartedAt = &now
}

// Complete marks the task as completed with its summary.
func (t *RefreshTask) Complete(result *RefreshSummary, now time.Time) {
	t.Status = TaskStatusCompleted
	t.Message = "Refresh completed"
	t.Result = result
	t.CompletedAt = &now
}

// Fail marks the task as failed.
func (t *RefreshTask) Fail(reason string, now time.Time) {
	t.Status = TaskStatusFailed
	t.Message = "Refresh failed"
	t.Error = reason
	t.CompletedAt = &now
}

// IsCompleted reports whether the task reached a final state.
func (t *RefreshTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Duration is the running time so far, or the total once completed.
func (t *RefreshTask) Duration(now time.Time) time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	if t.CompletedAt != nil {
		now = *t.CompletedAt
	}
	return now.Sub(*t.StartedAt)
}

// TaskStats summarizes the task queue.
type TaskStats struct {
	Total         int                `json:"total_tasks"`
	QueueSize     int                `json:"queue_size"`
	TasksByStatus map[TaskStatus]int `json:"tasks_by_status"`
}
