package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/domain"
)

// newTestAdapter builds an adapter over todo=[a,b], doing=[], done=[].
func newTestAdapter(t *testing.T) (*SessionAdapter, *app.Session) {
	t.Helper()
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	board, err := app.BuildBoard(
		[]app.ColumnSeed{{ID: "todo", Name: "To Do"}, {ID: "doing", Name: "In Progress"}, {ID: "done", Name: "Done"}},
		[]app.TaskSeed{{ID: "a", ColumnID: "todo", Title: "A"}, {ID: "b", ColumnID: "todo", Title: "B"}},
		nil,
		now,
	)
	if err != nil {
		t.Fatalf("BuildBoard() error = %v", err)
	}
	n := 0
	session, err := app.NewSession(board, func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}, func() time.Time { return now }, app.SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return NewSessionAdapter(session), session
}

func ptr[T any](v T) *T {
	return &v
}

func TestSessionAdapterAddAndEdit(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	view, err := adapter.AddTask(ctx, AddTaskRequest{Title: "New", Priority: "HIGH", ColumnID: "doing"})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if view.ID != "n1" || view.ColumnID != "doing" || view.Position != 0 || view.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected view %#v", view)
	}

	edited, err := adapter.EditTask(ctx, EditTaskRequest{TaskID: "n1", Title: ptr("Renamed"), Priority: ptr("low")})
	if err != nil {
		t.Fatalf("EditTask() error = %v", err)
	}
	if edited.Title != "Renamed" || edited.Priority != domain.PriorityLow || edited.ColumnID != "doing" {
		t.Fatalf("unexpected edited view %#v", edited)
	}

	if _, err := adapter.EditTask(ctx, EditTaskRequest{TaskID: "n1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty patch, got %v", err)
	}
	if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: "x", Priority: "urgent"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for bad priority, got %v", err)
	}
	if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank title, got %v", err)
	}
}

func TestSessionAdapterErrorMapping(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.DeleteTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := adapter.MoveTaskAt(ctx, PositionalMoveRequest{FromColumnID: "todo", FromIndex: 9, ToColumnID: "done"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for bad index, got %v", err)
	}
	if _, err := adapter.MoveTask(ctx, MoveTaskRequest{TaskID: "a", ToColumnID: "done", ToIndex: ptr(-2)}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for negative index, got %v", err)
	}
	if _, err := adapter.EndDrag(ctx, DragEndRequest{TaskID: "a", ZoneID: "done", TargetTaskID: "b"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for ambiguous drop, got %v", err)
	}
	var nilAdapter *SessionAdapter
	if _, err := nilAdapter.GetBoard(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSessionAdapterDragFlow(t *testing.T) {
	adapter, session := newTestAdapter(t)
	ctx := context.Background()

	state, err := adapter.StartDrag(ctx, DragStartRequest{TaskID: "a"})
	if err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	if state.ActiveTaskID != "a" {
		t.Fatalf("active task = %q, want a", state.ActiveTaskID)
	}
	result, err := adapter.EndDrag(ctx, DragEndRequest{ZoneID: "done"})
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if result.Outcome != DragOutcomeMoved || result.Task == nil || result.Task.ColumnID != "done" {
		t.Fatalf("unexpected drag result %#v", result)
	}

	if _, err := adapter.StartDrag(ctx, DragStartRequest{TaskID: "b"}); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	result, err = adapter.EndDrag(ctx, DragEndRequest{ZoneID: app.RemovalZoneID})
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if result.Outcome != DragOutcomeDeleted || result.Task.ID != "b" || result.Task.Position != -1 {
		t.Fatalf("unexpected trash result %#v", result)
	}

	result, err = adapter.EndDrag(ctx, DragEndRequest{TaskID: "a"})
	if err != nil {
		t.Fatalf("EndDrag(outside) error = %v", err)
	}
	if result.Outcome != DragOutcomeNoop {
		t.Fatalf("expected noop, got %#v", result)
	}
	if session.Board().TaskCount() != 1 {
		t.Fatalf("task count = %d, want 1", session.Board().TaskCount())
	}
}
