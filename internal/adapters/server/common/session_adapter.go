package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/domain"
)

// SessionAdapter maps transport contracts onto one shared app.Session.
type SessionAdapter struct {
	session *app.Session
}

// NewSessionAdapter builds one common adapter over a session.
func NewSessionAdapter(session *app.Session) *SessionAdapter {
	return &SessionAdapter{session: session}
}

// GetBoard returns the current board snapshot.
func (a *SessionAdapter) GetBoard(_ context.Context) (app.BoardSnapshot, error) {
	if err := a.ready(); err != nil {
		return app.BoardSnapshot{}, err
	}
	return a.session.Snapshot(), nil
}

// AddTask creates one task.
func (a *SessionAdapter) AddTask(ctx context.Context, in AddTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return TaskView{}, mapAppError("add task", err)
	}
	task, err := a.session.AddTask(ctx, app.AddTaskInput{
		ColumnID:    in.ColumnID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
	})
	if err != nil {
		return TaskView{}, mapAppError("add task", err)
	}
	return a.view(task), nil
}

// EditTask updates the supplied fields of one task.
func (a *SessionAdapter) EditTask(ctx context.Context, in EditTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return TaskView{}, fmt.Errorf("edit task: task_id is required: %w", ErrInvalidRequest)
	}
	patch := domain.TaskPatch{Title: in.Title, Description: in.Description}
	if in.Priority != nil {
		priority, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return TaskView{}, mapAppError("edit task", err)
		}
		patch.Priority = &priority
	}
	if patch.Empty() {
		return TaskView{}, fmt.Errorf("edit task: at least one of title, description, priority is required: %w", ErrInvalidRequest)
	}
	task, err := a.session.EditTask(ctx, app.EditTaskInput{
		ColumnID: in.ColumnID,
		TaskID:   in.TaskID,
		Patch:    patch,
	})
	if err != nil {
		return TaskView{}, mapAppError("edit task", err)
	}
	return a.view(task), nil
}

// DeleteTask removes one task and returns it as it was.
func (a *SessionAdapter) DeleteTask(ctx context.Context, taskID string) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	if strings.TrimSpace(taskID) == "" {
		return TaskView{}, fmt.Errorf("delete task: task_id is required: %w", ErrInvalidRequest)
	}
	task, err := a.session.DeleteTask(ctx, taskID)
	if err != nil {
		return TaskView{}, mapAppError("delete task", err)
	}
	return detachedView(task), nil
}

// MoveTask relocates one task by id.
func (a *SessionAdapter) MoveTask(ctx context.Context, in MoveTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return TaskView{}, fmt.Errorf("move task: task_id is required: %w", ErrInvalidRequest)
	}
	toIndex := -1
	if in.ToIndex != nil {
		if *in.ToIndex < 0 {
			return TaskView{}, fmt.Errorf("move task: to_index must be >= 0: %w", ErrInvalidRequest)
		}
		toIndex = *in.ToIndex
	}
	task, err := a.session.MoveTaskByID(ctx, in.TaskID, in.ToColumnID, toIndex)
	if err != nil {
		return TaskView{}, mapAppError("move task", err)
	}
	return a.view(task), nil
}

// MoveTaskAt relocates the task found at a source position.
func (a *SessionAdapter) MoveTaskAt(ctx context.Context, in PositionalMoveRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	task, err := a.session.MoveTask(ctx, app.MoveTaskInput{
		FromColumnID: in.FromColumnID,
		FromIndex:    in.FromIndex,
		ToColumnID:   in.ToColumnID,
		ToIndex:      in.ToIndex,
	})
	if err != nil {
		return TaskView{}, mapAppError("move task", err)
	}
	return a.view(task), nil
}

// StartDrag marks one task as dragged.
func (a *SessionAdapter) StartDrag(ctx context.Context, in DragStartRequest) (DragState, error) {
	if err := a.ready(); err != nil {
		return DragState{}, err
	}
	if err := a.session.StartDrag(ctx, in.TaskID); err != nil {
		return DragState{}, mapAppError("start drag", err)
	}
	return DragState{ActiveTaskID: a.session.ActiveDragID()}, nil
}

// EndDrag drops the dragged task.
func (a *SessionAdapter) EndDrag(ctx context.Context, in DragEndRequest) (DragResult, error) {
	if err := a.ready(); err != nil {
		return DragResult{}, err
	}
	zone := strings.TrimSpace(in.ZoneID)
	target := strings.TrimSpace(in.TargetTaskID)
	if zone != "" && target != "" {
		return DragResult{}, fmt.Errorf("end drag: zone_id and target_task_id are mutually exclusive: %w", ErrInvalidRequest)
	}
	var ev app.DragEvent = app.DragEndOverZone{TaskID: in.TaskID, ZoneID: zone}
	if target != "" {
		ev = app.DragEndOverTask{TaskID: in.TaskID, TargetTaskID: target}
	}
	outcome, err := a.session.EndDrag(ctx, ev)
	if err != nil {
		return DragResult{}, mapAppError("end drag", err)
	}
	switch outcome.Intent.(type) {
	case app.DeleteIntent:
		view := detachedView(outcome.Task)
		return DragResult{Outcome: DragOutcomeDeleted, Task: &view}, nil
	case app.MoveIntent:
		view := a.view(outcome.Task)
		return DragResult{Outcome: DragOutcomeMoved, Task: &view}, nil
	default:
		return DragResult{Outcome: DragOutcomeNoop}, nil
	}
}

// CancelDrag aborts the active drag.
func (a *SessionAdapter) CancelDrag(ctx context.Context) (DragState, error) {
	if err := a.ready(); err != nil {
		return DragState{}, err
	}
	a.session.CancelDrag(ctx)
	return DragState{}, nil
}

// ListActivity lists recent change events, newest first.
func (a *SessionAdapter) ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("list activity: limit must be >= 0: %w", ErrInvalidRequest)
	}
	events, err := a.session.Activity(ctx, limit)
	if err != nil {
		return nil, mapAppError("list activity", err)
	}
	return events, nil
}

func (a *SessionAdapter) ready() error {
	if a == nil || a.session == nil {
		return fmt.Errorf("session adapter is not configured: %w", ErrUnavailable)
	}
	return nil
}

// view resolves the task's current column and position.
func (a *SessionAdapter) view(task domain.Task) TaskView {
	out := detachedView(task)
	if colID, idx, ok := a.session.Board().Locate(task.ID); ok {
		out.ColumnID = colID
		out.Position = idx
	}
	return out
}

// detachedView describes a task that is no longer on the board.
func detachedView(task domain.Task) TaskView {
	return TaskView{
		ID:          task.ID,
		Position:    -1,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		CreatedAt:   task.CreatedAt.UTC(),
		UpdatedAt:   task.UpdatedAt.UTC(),
	}
}

func parsePriority(raw string) (domain.Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParsePriority(raw)
}

// mapAppError maps app and domain errors onto transport-visible sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrDuplicateTaskID),
		errors.Is(err, app.ErrUnknownZone),
		errors.Is(err, app.ErrNoActiveDrag):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
