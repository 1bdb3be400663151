// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/domain"
)

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrUnavailable reports a surface whose backing service is not configured.
var ErrUnavailable = errors.New("service unavailable")

// DragOutcomeMoved and related values describe what a finished drag did.
const (
	DragOutcomeMoved   = "moved"
	DragOutcomeDeleted = "deleted"
	DragOutcomeNoop    = "noop"
)

// TaskView is one task as exposed over the wire.
type TaskView struct {
	ID          string          `json:"id"`
	ColumnID    string          `json:"column_id"`
	Position    int             `json:"position"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AddTaskRequest stores transport input for task creation.
type AddTaskRequest struct {
	ColumnID    string `json:"column_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// EditTaskRequest stores transport input for task updates. Nil fields are left alone.
type EditTaskRequest struct {
	TaskID      string  `json:"-"`
	ColumnID    string  `json:"column_id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// MoveTaskRequest moves a task by id. A nil ToIndex appends to the destination.
type MoveTaskRequest struct {
	TaskID     string `json:"-"`
	ToColumnID string `json:"to_column_id"`
	ToIndex    *int   `json:"to_index,omitempty"`
}

// PositionalMoveRequest moves whatever sits at FromColumnID[FromIndex].
type PositionalMoveRequest struct {
	FromColumnID string `json:"from_column_id"`
	FromIndex    int    `json:"from_index"`
	ToColumnID   string `json:"to_column_id"`
	ToIndex      int    `json:"to_index"`
}

// DragStartRequest begins a drag.
type DragStartRequest struct {
	TaskID string `json:"task_id"`
}

// DragEndRequest finishes a drag. Set at most one of ZoneID and TargetTaskID;
// neither means the card was released outside every drop zone.
type DragEndRequest struct {
	TaskID       string `json:"task_id,omitempty"`
	ZoneID       string `json:"zone_id,omitempty"`
	TargetTaskID string `json:"target_task_id,omitempty"`
}

// DragState reports the current drag.
type DragState struct {
	ActiveTaskID string `json:"active_task_id"`
}

// DragResult reports what a finished drag did to the board.
type DragResult struct {
	Outcome string    `json:"outcome"`
	Task    *TaskView `json:"task,omitempty"`
}

// ActivityEntry is one change-log row.
type ActivityEntry = domain.ChangeEvent

// BoardService is the board surface shared by the HTTP and MCP transports.
type BoardService interface {
	GetBoard(context.Context) (app.BoardSnapshot, error)
	AddTask(context.Context, AddTaskRequest) (TaskView, error)
	EditTask(context.Context, EditTaskRequest) (TaskView, error)
	DeleteTask(context.Context, string) (TaskView, error)
	MoveTask(context.Context, MoveTaskRequest) (TaskView, error)
	MoveTaskAt(context.Context, PositionalMoveRequest) (TaskView, error)
	StartDrag(context.Context, DragStartRequest) (DragState, error)
	EndDrag(context.Context, DragEndRequest) (DragResult, error)
	CancelDrag(context.Context) (DragState, error)
	ListActivity(context.Context, int) ([]ActivityEntry, error)
}
