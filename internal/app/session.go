package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/taskflow/internal/domain"
)

// IDGenerator returns unique identifiers for new tasks.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// SessionConfig holds the optional collaborators of a Session.
type SessionConfig struct {
	DefaultColumnID string
	Sinks           []ChangeSink
	Reader          ChangeReader
	Logger          *log.Logger
}

// Session owns the live board and serializes every change to it.
// The TUI and the HTTP/MCP adapters share one Session.
type Session struct {
	mu      sync.Mutex
	board   domain.Board
	drag    DragCoordinator
	seq     int64
	emitMu  sync.Mutex
	idGen   IDGenerator
	clock   Clock
	sinks   []ChangeSink
	reader  ChangeReader
	logger  *log.Logger
	defCol  string
}

// NewSession constructs a session over an initial board.
func NewSession(board domain.Board, idGen IDGenerator, clock Clock, cfg SessionConfig) (*Session, error) {
	if idGen == nil {
		return nil, errors.New("id generator is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}
	ids := board.ColumnIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("board has no columns: %w", domain.ErrInvalidColumnID)
	}
	defCol := strings.TrimSpace(cfg.DefaultColumnID)
	if defCol == "" {
		defCol = ids[0]
	}
	if !board.HasColumn(defCol) {
		return nil, fmt.Errorf("default column %q: %w", defCol, domain.ErrUnknownColumn)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	sinks := make([]ChangeSink, 0, len(cfg.Sinks))
	for _, sink := range cfg.Sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}
	return &Session{
		board:  board,
		idGen:  idGen,
		clock:  clock,
		sinks:  sinks,
		reader: cfg.Reader,
		logger: logger,
		defCol: defCol,
	}, nil
}

// Board returns the current board value.
func (s *Session) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// DefaultColumnID returns the column new tasks land in.
func (s *Session) DefaultColumnID() string {
	return s.defCol
}

// ActiveDragID returns the dragged task id, or "".
func (s *Session) ActiveDragID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.ActiveID()
}

// AddTaskInput holds input values for add task operations.
type AddTaskInput struct {
	ColumnID    string
	Title       string
	Description string
	Priority    domain.Priority
}

// AddTask creates a task at the end of the requested (or default) column.
func (s *Session) AddTask(ctx context.Context, in AddTaskInput) (domain.Task, error) {
	columnID := strings.TrimSpace(in.ColumnID)
	if columnID == "" {
		columnID = s.defCol
	}

	s.mu.Lock()
	task, err := domain.NewTask(domain.TaskInput{
		ID:          s.idGen(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
	}, s.clock())
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	next, err := AddTask(s.board, columnID, task)
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	s.board = next
	col, _ := next.Column(columnID)
	ev := s.nextEventLocked(ctx, domain.ChangeEvent{
		Operation:  domain.ChangeOperationCreate,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		FromIndex:  -1,
		ToColumnID: columnID,
		ToIndex:    col.Len() - 1,
	})
	s.emitAndUnlock(ctx, ev)
	return task, nil
}

// EditTaskInput holds input values for edit task operations.
type EditTaskInput struct {
	ColumnID string
	TaskID   string
	Patch    domain.TaskPatch
}

// EditTask updates a task's details in place.
func (s *Session) EditTask(ctx context.Context, in EditTaskInput) (domain.Task, error) {
	taskID := strings.TrimSpace(in.TaskID)
	columnID := strings.TrimSpace(in.ColumnID)

	s.mu.Lock()
	if columnID == "" {
		owner, _, ok := s.board.Locate(taskID)
		if !ok {
			s.mu.Unlock()
			return domain.Task{}, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
		}
		columnID = owner
	}
	next, task, err := EditTask(s.board, columnID, taskID, in.Patch, s.clock())
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	s.board = next
	_, idx, _ := next.Locate(task.ID)
	ev := s.nextEventLocked(ctx, domain.ChangeEvent{
		Operation:    domain.ChangeOperationUpdate,
		TaskID:       task.ID,
		TaskTitle:    task.Title,
		FromColumnID: columnID,
		FromIndex:    idx,
		ToColumnID:   columnID,
		ToIndex:      idx,
	})
	s.emitAndUnlock(ctx, ev)
	return task, nil
}

// DeleteTask removes taskID from the board.
func (s *Session) DeleteTask(ctx context.Context, taskID string) (domain.Task, error) {
	s.mu.Lock()
	return s.deleteLocked(ctx, strings.TrimSpace(taskID))
}

// deleteLocked expects s.mu held and always releases it.
func (s *Session) deleteLocked(ctx context.Context, taskID string) (domain.Task, error) {
	next, removed, columnID, idx, err := removeTask(s.board, taskID)
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	s.board = next
	if s.drag.ActiveID() == taskID {
		s.drag.Cancel()
	}
	ev := s.nextEventLocked(ctx, domain.ChangeEvent{
		Operation:    domain.ChangeOperationDelete,
		TaskID:       removed.ID,
		TaskTitle:    removed.Title,
		FromColumnID: columnID,
		FromIndex:    idx,
		ToIndex:      -1,
	})
	s.emitAndUnlock(ctx, ev)
	return removed, nil
}

// MoveTaskInput holds input values for positional move operations.
type MoveTaskInput struct {
	FromColumnID string
	FromIndex    int
	ToColumnID   string
	ToIndex      int
}

// MoveTask relocates the task at FromColumnID[FromIndex].
func (s *Session) MoveTask(ctx context.Context, in MoveTaskInput) (domain.Task, error) {
	s.mu.Lock()
	return s.moveLocked(ctx, in)
}

// MoveTaskByID relocates taskID to toColumnID at toIndex. A negative toIndex
// appends to the end of the destination column.
func (s *Session) MoveTaskByID(ctx context.Context, taskID, toColumnID string, toIndex int) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	toColumnID = strings.TrimSpace(toColumnID)

	s.mu.Lock()
	fromCol, fromIdx, ok := s.board.Locate(taskID)
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	if toColumnID == "" {
		toColumnID = fromCol
	}
	if toIndex < 0 {
		dst, ok := s.board.Column(toColumnID)
		if !ok {
			s.mu.Unlock()
			return domain.Task{}, fmt.Errorf("destination column %q: %w", toColumnID, ErrNotFound)
		}
		toIndex = dst.Len()
	}
	return s.moveLocked(ctx, MoveTaskInput{
		FromColumnID: fromCol,
		FromIndex:    fromIdx,
		ToColumnID:   toColumnID,
		ToIndex:      toIndex,
	})
}

// moveLocked expects s.mu held and always releases it.
func (s *Session) moveLocked(ctx context.Context, in MoveTaskInput) (domain.Task, error) {
	fromCol := strings.TrimSpace(in.FromColumnID)
	toCol := strings.TrimSpace(in.ToColumnID)
	next, task, err := MoveTask(s.board, fromCol, in.FromIndex, toCol, in.ToIndex)
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	_, finalIdx, _ := next.Locate(task.ID)
	if fromCol == toCol && finalIdx == in.FromIndex {
		s.mu.Unlock()
		return task, nil
	}
	s.board = next
	ev := s.nextEventLocked(ctx, domain.ChangeEvent{
		Operation:    domain.ChangeOperationMove,
		TaskID:       task.ID,
		TaskTitle:    task.Title,
		FromColumnID: fromCol,
		FromIndex:    in.FromIndex,
		ToColumnID:   toCol,
		ToIndex:      finalIdx,
	})
	s.emitAndUnlock(ctx, ev)
	return task, nil
}

// StartDrag marks taskID as the dragged card.
func (s *Session) StartDrag(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Start(s.board, taskID)
}

// CancelDrag clears the dragged card without touching the board.
func (s *Session) CancelDrag(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
}

// DragOutcome reports what a finished drag did.
type DragOutcome struct {
	Intent DragIntent
	Task   domain.Task
}

// Changed reports whether the drag altered the board.
func (o DragOutcome) Changed() bool {
	return o.Intent != nil
}

// EndDrag resolves ev and applies the resulting intent.
func (s *Session) EndDrag(ctx context.Context, ev DragEvent) (DragOutcome, error) {
	s.mu.Lock()
	intent, err := s.drag.Resolve(s.board, ev)
	if err != nil || intent == nil {
		s.mu.Unlock()
		return DragOutcome{}, err
	}
	switch intent := intent.(type) {
	case DeleteIntent:
		task, err := s.deleteLocked(ctx, intent.TaskID)
		if err != nil {
			return DragOutcome{}, err
		}
		return DragOutcome{Intent: intent, Task: task}, nil
	case MoveIntent:
		task, err := s.moveLocked(ctx, MoveTaskInput{
			FromColumnID: intent.FromColumnID,
			FromIndex:    intent.FromIndex,
			ToColumnID:   intent.ToColumnID,
			ToIndex:      intent.ToIndex,
		})
		if err != nil {
			return DragOutcome{}, err
		}
		return DragOutcome{Intent: intent, Task: task}, nil
	default:
		s.mu.Unlock()
		return DragOutcome{}, fmt.Errorf("drag intent %T: %w", intent, ErrUnknownZone)
	}
}

// Activity lists up to limit recent change events, newest first.
func (s *Session) Activity(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if s.reader == nil {
		return []domain.ChangeEvent{}, nil
	}
	return s.reader.ListChangeEvents(ctx, limit)
}

// nextEventLocked stamps sequence, actor and time onto ev. Callers hold s.mu.
func (s *Session) nextEventLocked(ctx context.Context, ev domain.ChangeEvent) domain.ChangeEvent {
	s.seq++
	ev.ID = s.seq
	ev.Actor = string(actorOrSystem(ctx))
	ev.OccurredAt = s.clock().UTC()
	return ev
}

// emitAndUnlock hands off from the board lock to the emit lock so sinks see
// events in sequence order without blocking board readers.
func (s *Session) emitAndUnlock(ctx context.Context, ev domain.ChangeEvent) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	s.logger.Debug("board changed", "op", ev.Operation, "task", ev.TaskID, "from", ev.FromColumnID, "to", ev.ToColumnID, "actor", ev.Actor)
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, ev); err != nil {
			s.logger.Warn("change sink failed", "op", ev.Operation, "task", ev.TaskID, "err", err)
		}
	}
}
