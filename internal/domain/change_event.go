package domain

import "time"

// ChangeOperation describes a recorded board operation.
type ChangeOperation string

// ChangeOperation values used by the session activity log.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationUpdate ChangeOperation = "update"
	ChangeOperationMove   ChangeOperation = "move"
	ChangeOperationDelete ChangeOperation = "delete"
)

// ChangeEvent represents a single activity-log entry for one task.
type ChangeEvent struct {
	ID           int64           `json:"id"`
	Operation    ChangeOperation `json:"operation"`
	TaskID       string          `json:"task_id"`
	TaskTitle    string          `json:"task_title"`
	FromColumnID string          `json:"from_column_id,omitempty"`
	FromIndex    int             `json:"from_index"`
	ToColumnID   string          `json:"to_column_id,omitempty"`
	ToIndex      int             `json:"to_index"`
	Actor        string          `json:"actor,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
