package app

import (
	"fmt"
	"strings"

	"github.com/hylla/taskflow/internal/domain"
)

// RemovalZoneID is the drop zone that deletes whatever lands on it.
const RemovalZoneID = "trash"

// DragEvent is one pointer or keyboard drag notification.
type DragEvent interface {
	dragEvent()
}

// DragStart begins dragging TaskID.
type DragStart struct {
	TaskID string
}

// DragEndOverZone drops over a column background or the removal zone.
// An empty ZoneID means the pointer was released outside every zone.
type DragEndOverZone struct {
	TaskID string
	ZoneID string
}

// DragEndOverTask drops onto another card.
type DragEndOverTask struct {
	TaskID       string
	TargetTaskID string
}

// DragCancelled aborts the active drag.
type DragCancelled struct{}

func (DragStart) dragEvent()       {}
func (DragEndOverZone) dragEvent() {}
func (DragEndOverTask) dragEvent() {}
func (DragCancelled) dragEvent()   {}

// DragIntent is the board change a finished drag asks for.
type DragIntent interface {
	dragIntent()
}

// MoveIntent relocates a task; FromIndex/ToIndex feed MoveTask directly.
type MoveIntent struct {
	TaskID       string
	FromColumnID string
	FromIndex    int
	ToColumnID   string
	ToIndex      int
}

// DeleteIntent removes a task dropped on the removal zone.
type DeleteIntent struct {
	TaskID string
}

func (MoveIntent) dragIntent()   {}
func (DeleteIntent) dragIntent() {}

// DragCoordinator tracks the card being dragged and turns drop events into intents.
// It never touches the board itself.
type DragCoordinator struct {
	activeID string
}

// ActiveID returns the dragged task id, or "" when idle.
func (c *DragCoordinator) ActiveID() string {
	return c.activeID
}

// Start marks taskID as the active drag.
func (c *DragCoordinator) Start(board domain.Board, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if _, _, ok := board.Locate(taskID); !ok {
		return fmt.Errorf("drag task %q: %w", taskID, ErrNotFound)
	}
	c.activeID = taskID
	return nil
}

// Cancel clears the active drag.
func (c *DragCoordinator) Cancel() {
	c.activeID = ""
}

// Resolve maps ev onto an intent against board. A nil intent with a nil error
// means nothing should change. End and cancel events always clear the active id.
func (c *DragCoordinator) Resolve(board domain.Board, ev DragEvent) (DragIntent, error) {
	switch ev := ev.(type) {
	case DragStart:
		return nil, c.Start(board, ev.TaskID)
	case DragCancelled:
		c.Cancel()
		return nil, nil
	case DragEndOverZone:
		taskID := c.endTaskID(ev.TaskID)
		c.Cancel()
		return resolveZoneDrop(board, taskID, strings.TrimSpace(ev.ZoneID))
	case DragEndOverTask:
		taskID := c.endTaskID(ev.TaskID)
		c.Cancel()
		return resolveTaskDrop(board, taskID, strings.TrimSpace(ev.TargetTaskID))
	case nil:
		c.Cancel()
		return nil, nil
	default:
		c.Cancel()
		return nil, fmt.Errorf("drag event %T: %w", ev, ErrUnknownZone)
	}
}

func (c *DragCoordinator) endTaskID(taskID string) string {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return c.activeID
	}
	return taskID
}

func resolveZoneDrop(board domain.Board, taskID, zoneID string) (DragIntent, error) {
	if zoneID == "" {
		return nil, nil
	}
	if taskID == "" {
		return nil, ErrNoActiveDrag
	}
	srcCol, srcIdx, ok := board.Locate(taskID)
	if !ok {
		return nil, fmt.Errorf("drag task %q: %w", taskID, ErrNotFound)
	}
	if zoneID == RemovalZoneID {
		return DeleteIntent{TaskID: taskID}, nil
	}
	dst, ok := board.Column(zoneID)
	if !ok {
		return nil, fmt.Errorf("zone %q: %w", zoneID, ErrUnknownZone)
	}
	if srcCol == zoneID && srcIdx == dst.Len()-1 {
		return nil, nil
	}
	return MoveIntent{
		TaskID:       taskID,
		FromColumnID: srcCol,
		FromIndex:    srcIdx,
		ToColumnID:   zoneID,
		ToIndex:      dst.Len(),
	}, nil
}

func resolveTaskDrop(board domain.Board, taskID, targetID string) (DragIntent, error) {
	if targetID == "" {
		return nil, nil
	}
	if taskID == "" {
		return nil, ErrNoActiveDrag
	}
	if taskID == targetID {
		return nil, nil
	}
	srcCol, srcIdx, ok := board.Locate(taskID)
	if !ok {
		return nil, fmt.Errorf("drag task %q: %w", taskID, ErrNotFound)
	}
	dstCol, dstIdx, ok := board.Locate(targetID)
	if !ok {
		return nil, fmt.Errorf("target task %q: %w", targetID, ErrNotFound)
	}
	return MoveIntent{
		TaskID:       taskID,
		FromColumnID: srcCol,
		FromIndex:    srcIdx,
		ToColumnID:   dstCol,
		ToIndex:      dstIdx,
	}, nil
}
