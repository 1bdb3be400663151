package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/taskflow/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "taskflow.snapshot.v1"

// BoardSnapshot is the JSON-friendly export of one board.
type BoardSnapshot struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	ActiveDragID string           `json:"active_drag_id,omitempty"`
	Columns      []SnapshotColumn `json:"columns"`
}

// SnapshotColumn represents snapshot column data used by this package.
type SnapshotColumn struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Position int            `json:"position"`
	Tasks    []SnapshotTask `json:"tasks"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot exports the current board together with the active drag id.
func (s *Session) Snapshot() BoardSnapshot {
	s.mu.Lock()
	board := s.board
	active := s.drag.ActiveID()
	s.mu.Unlock()
	return SnapshotFromBoard(board, active, s.clock())
}

// SnapshotFromBoard converts board into its export form.
func SnapshotFromBoard(board domain.Board, activeDragID string, now time.Time) BoardSnapshot {
	snap := BoardSnapshot{
		Version:      SnapshotVersion,
		ExportedAt:   now.UTC(),
		ActiveDragID: activeDragID,
		Columns:      make([]SnapshotColumn, 0, len(board.ColumnIDs())),
	}
	for pos, col := range board.Columns() {
		snap.Columns = append(snap.Columns, snapshotColumnFromDomain(col, pos))
	}
	return snap
}

// Task returns the exported task with id, if present.
func (s BoardSnapshot) Task(id string) (SnapshotTask, string, bool) {
	for _, col := range s.Columns {
		for _, task := range col.Tasks {
			if task.ID == id {
				return task, col.ID, true
			}
		}
	}
	return SnapshotTask{}, "", false
}

// Validate checks version, required fields and id uniqueness.
func (s BoardSnapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	columnIDs := map[string]struct{}{}
	taskIDs := map[string]struct{}{}
	for i, c := range s.Columns {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("columns[%d].id is required", i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("columns[%d].name is required", i)
		}
		if _, exists := columnIDs[c.ID]; exists {
			return fmt.Errorf("duplicate column id: %q", c.ID)
		}
		columnIDs[c.ID] = struct{}{}
		for j, t := range c.Tasks {
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("columns[%d].tasks[%d].id is required", i, j)
			}
			if strings.TrimSpace(t.Title) == "" {
				return fmt.Errorf("columns[%d].tasks[%d].title is required", i, j)
			}
			if t.Position != j {
				return fmt.Errorf("columns[%d].tasks[%d].position = %d", i, j, t.Position)
			}
			if _, exists := taskIDs[t.ID]; exists {
				return fmt.Errorf("duplicate task id: %q", t.ID)
			}
			taskIDs[t.ID] = struct{}{}
		}
	}
	return nil
}

// snapshotColumnFromDomain handles snapshot column from domain.
func snapshotColumnFromDomain(c domain.Column, position int) SnapshotColumn {
	out := SnapshotColumn{
		ID:       c.ID,
		Name:     c.Name,
		Position: position,
		Tasks:    make([]SnapshotTask, 0, len(c.Items)),
	}
	for i, t := range c.Items {
		out.Tasks = append(out.Tasks, snapshotTaskFromDomain(t, i))
	}
	return out
}

// snapshotTaskFromDomain handles snapshot task from domain.
func snapshotTaskFromDomain(t domain.Task, position int) SnapshotTask {
	return SnapshotTask{
		ID:          t.ID,
		Position:    position,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}
