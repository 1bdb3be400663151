package app

import (
	"fmt"
	"time"

	"github.com/hylla/taskflow/internal/domain"
)

// AddTask appends an already validated task to the end of columnID.
func AddTask(board domain.Board, columnID string, task domain.Task) (domain.Board, error) {
	col, ok := board.Column(columnID)
	if !ok {
		return board, fmt.Errorf("column %q: %w", columnID, ErrNotFound)
	}
	if task.Title == "" {
		return board, domain.ErrInvalidTitle
	}
	if _, _, exists := board.Locate(task.ID); exists {
		return board, fmt.Errorf("task %q: %w", task.ID, domain.ErrDuplicateTaskID)
	}
	col, err := col.InsertAt(col.Len(), task)
	if err != nil {
		return board, err
	}
	return board.WithColumn(col)
}

// DeleteTask removes taskID from whichever column holds it.
func DeleteTask(board domain.Board, taskID string) (domain.Board, error) {
	next, _, _, _, err := removeTask(board, taskID)
	return next, err
}

// removeTask is DeleteTask that also reports what was removed and from where.
func removeTask(board domain.Board, taskID string) (domain.Board, domain.Task, string, int, error) {
	columnID, idx, ok := board.Locate(taskID)
	if !ok {
		return board, domain.Task{}, "", -1, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	col, _ := board.Column(columnID)
	col, removed, err := col.RemoveAt(idx)
	if err != nil {
		return board, domain.Task{}, "", -1, err
	}
	next, err := board.WithColumn(col)
	if err != nil {
		return board, domain.Task{}, "", -1, err
	}
	return next, removed, columnID, idx, nil
}

// EditTask applies patch to taskID inside columnID, keeping its position.
func EditTask(board domain.Board, columnID, taskID string, patch domain.TaskPatch, now time.Time) (domain.Board, domain.Task, error) {
	col, ok := board.Column(columnID)
	if !ok {
		return board, domain.Task{}, fmt.Errorf("column %q: %w", columnID, ErrNotFound)
	}
	idx := col.IndexOf(taskID)
	if idx < 0 {
		return board, domain.Task{}, fmt.Errorf("task %q in column %q: %w", taskID, columnID, ErrNotFound)
	}
	task := col.Items[idx]
	if err := task.UpdateDetails(patch, now); err != nil {
		return board, domain.Task{}, err
	}
	col, err := col.ReplaceAt(idx, task)
	if err != nil {
		return board, domain.Task{}, err
	}
	next, err := board.WithColumn(col)
	if err != nil {
		return board, domain.Task{}, err
	}
	return next, task, nil
}

// MoveTask removes the task at srcIdx of srcCol, then inserts it into dstCol at
// dstIdx clamped to the destination length after removal.
func MoveTask(board domain.Board, srcCol string, srcIdx int, dstCol string, dstIdx int) (domain.Board, domain.Task, error) {
	src, ok := board.Column(srcCol)
	if !ok {
		return board, domain.Task{}, fmt.Errorf("source column %q: %w", srcCol, ErrNotFound)
	}
	if !board.HasColumn(dstCol) {
		return board, domain.Task{}, fmt.Errorf("destination column %q: %w", dstCol, ErrNotFound)
	}
	src, task, err := src.RemoveAt(srcIdx)
	if err != nil {
		return board, domain.Task{}, err
	}
	staged, err := board.WithColumn(src)
	if err != nil {
		return board, domain.Task{}, err
	}
	dst, _ := staged.Column(dstCol)
	dst, err = dst.InsertAt(dstIdx, task)
	if err != nil {
		return board, domain.Task{}, err
	}
	next, err := staged.WithColumn(dst)
	if err != nil {
		return board, domain.Task{}, err
	}
	return next, task, nil
}

