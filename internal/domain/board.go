package domain

import (
	"fmt"
	"maps"
)

// Board maps a fixed, ordered set of column ids to their columns.
// Values are immutable from the caller's perspective: every change produces a new Board.
type Board struct {
	order   []string
	columns map[string]Column
}

// NewBoard builds a board and enforces column and task id uniqueness.
func NewBoard(columns ...Column) (Board, error) {
	b := Board{
		order:   make([]string, 0, len(columns)),
		columns: make(map[string]Column, len(columns)),
	}
	for _, col := range columns {
		if col.ID == "" {
			return Board{}, ErrInvalidColumnID
		}
		if _, ok := b.columns[col.ID]; ok {
			return Board{}, fmt.Errorf("%w: %s", ErrDuplicateColumnID, col.ID)
		}
		b.order = append(b.order, col.ID)
		b.columns[col.ID] = col.Clone()
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// ColumnIDs returns the column ids in display order.
func (b Board) ColumnIDs() []string {
	return append([]string(nil), b.order...)
}

// Columns returns the columns in display order.
func (b Board) Columns() []Column {
	out := make([]Column, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.columns[id])
	}
	return out
}

// Column returns the column registered under id.
func (b Board) Column(id string) (Column, bool) {
	col, ok := b.columns[id]
	return col, ok
}

// HasColumn reports whether id is part of the board's column set.
func (b Board) HasColumn(id string) bool {
	_, ok := b.columns[id]
	return ok
}

// Locate finds the owning column and position of taskID with a linear scan.
func (b Board) Locate(taskID string) (string, int, bool) {
	if taskID == "" {
		return "", -1, false
	}
	for _, id := range b.order {
		if idx := b.columns[id].IndexOf(taskID); idx >= 0 {
			return id, idx, true
		}
	}
	return "", -1, false
}

// Task returns the task with taskID wherever it lives.
func (b Board) Task(taskID string) (Task, bool) {
	colID, idx, ok := b.Locate(taskID)
	if !ok {
		return Task{}, false
	}
	return b.columns[colID].Items[idx], true
}

// TaskCount returns the number of tasks across all columns.
func (b Board) TaskCount() int {
	total := 0
	for _, col := range b.columns {
		total += len(col.Items)
	}
	return total
}

// WithColumn returns a copy of the board with col replacing the column of the same id.
func (b Board) WithColumn(col Column) (Board, error) {
	if _, ok := b.columns[col.ID]; !ok {
		return b, fmt.Errorf("%w: %s", ErrUnknownColumn, col.ID)
	}
	out := Board{
		order:   b.order,
		columns: maps.Clone(b.columns),
	}
	out.columns[col.ID] = col
	return out, nil
}

// Validate checks that every task id appears exactly once across the board.
func (b Board) Validate() error {
	seen := map[string]string{}
	for _, id := range b.order {
		for _, task := range b.columns[id].Items {
			if task.ID == "" {
				return fmt.Errorf("column %s: %w", id, ErrInvalidID)
			}
			if owner, ok := seen[task.ID]; ok {
				return fmt.Errorf("%w: %s in %s and %s", ErrDuplicateTaskID, task.ID, owner, id)
			}
			seen[task.ID] = id
		}
	}
	return nil
}
