package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hylla/taskflow/internal/domain"
)

// fakeJournal records events in memory and serves them back newest first.
type fakeJournal struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (f *fakeJournal) Record(_ context.Context, ev domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeJournal) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.events)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJournal) ops() []domain.ChangeOperation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChangeOperation, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Operation)
	}
	return out
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestSession(t *testing.T, board domain.Board, sinks ...ChangeSink) (*Session, *fakeJournal) {
	t.Helper()
	journal := &fakeJournal{}
	s, err := NewSession(board, sequentialIDs(), func() time.Time { return testNow }, SessionConfig{
		DefaultColumnID: "todo",
		Sinks:           append([]ChangeSink{journal}, sinks...),
		Reader:          journal,
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, journal
}

func TestNewSessionValidatesDefaultColumn(t *testing.T) {
	board := newTestBoard(t, nil, nil, nil)
	if _, err := NewSession(board, sequentialIDs(), nil, SessionConfig{DefaultColumnID: "later"}); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := NewSession(board, nil, nil, SessionConfig{}); err == nil {
		t.Fatal("expected error for missing id generator")
	}
	s, err := NewSession(board, sequentialIDs(), nil, SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if s.DefaultColumnID() != "todo" {
		t.Fatalf("default column = %q, want first column", s.DefaultColumnID())
	}
}

func TestSessionAddTask(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, []string{"a"}, nil, nil))
	ctx := WithActor(context.Background(), ActorTUI)

	task, err := s.AddTask(ctx, AddTaskInput{Title: "  Buy milk ", Description: "2%"})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if task.ID != "t1" || task.Title != "Buy milk" || task.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected task %#v", task)
	}
	assertColumn(t, s.Board(), "todo", "a", "t1")

	if _, err := s.AddTask(ctx, AddTaskInput{ColumnID: "done", Title: "Ship", Priority: domain.PriorityHigh}); err != nil {
		t.Fatalf("AddTask(done) error = %v", err)
	}
	assertColumn(t, s.Board(), "done", "t2")

	if len(journal.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(journal.events))
	}
	ev := journal.events[0]
	if ev.Operation != domain.ChangeOperationCreate || ev.TaskID != "t1" || ev.ToColumnID != "todo" || ev.ToIndex != 1 {
		t.Fatalf("unexpected create event %#v", ev)
	}
	if ev.Actor != string(ActorTUI) || ev.ID != 1 || journal.events[1].ID != 2 {
		t.Fatalf("unexpected event attribution %#v", journal.events)
	}
}

func TestSessionAddTaskBlankTitleLeavesBoardUnchanged(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, []string{"a"}, nil, nil))
	before := s.Board()

	if _, err := s.AddTask(context.Background(), AddTaskInput{Title: "   "}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := s.AddTask(context.Background(), AddTaskInput{ColumnID: "nope", Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertColumn(t, s.Board(), "todo", columnIDs(t, before, "todo")...)
	if s.Board().TaskCount() != before.TaskCount() {
		t.Fatal("board changed after rejected add")
	}
	if len(journal.events) != 0 {
		t.Fatalf("expected no events, got %#v", journal.events)
	}
}

func TestSessionEditTaskResolvesColumn(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, []string{"a"}, []string{"b"}, nil))
	title := "Renamed"
	high := domain.PriorityHigh

	task, err := s.EditTask(context.Background(), EditTaskInput{TaskID: "b", Patch: domain.TaskPatch{Title: &title, Priority: &high}})
	if err != nil {
		t.Fatalf("EditTask() error = %v", err)
	}
	if task.Title != "Renamed" || task.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected task %#v", task)
	}
	assertColumn(t, s.Board(), "doing", "b")
	if got := journal.ops(); !slices.Equal(got, []domain.ChangeOperation{domain.ChangeOperationUpdate}) {
		t.Fatalf("unexpected ops %v", got)
	}
	if _, err := s.EditTask(context.Background(), EditTaskInput{TaskID: "missing", Patch: domain.TaskPatch{Title: &title}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionMoveTaskByID(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, []string{"a", "b"}, []string{"c"}, nil))
	ctx := context.Background()

	if _, err := s.MoveTaskByID(ctx, "a", "doing", -1); err != nil {
		t.Fatalf("MoveTaskByID() error = %v", err)
	}
	assertColumn(t, s.Board(), "doing", "c", "a")
	if _, err := s.MoveTaskByID(ctx, "b", "", 0); err != nil {
		t.Fatalf("MoveTaskByID(same column) error = %v", err)
	}
	if got := journal.ops(); len(got) != 1 {
		t.Fatalf("expected the no-op reorder to skip the journal, got %v", got)
	}
	ev := journal.events[0]
	if ev.FromColumnID != "todo" || ev.FromIndex != 0 || ev.ToColumnID != "doing" || ev.ToIndex != 1 {
		t.Fatalf("unexpected move event %#v", ev)
	}
	if _, err := s.MoveTaskByID(ctx, "zzz", "done", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.MoveTaskByID(ctx, "a", "later", -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown destination, got %v", err)
	}
}

func TestSessionDragLifecycle(t *testing.T) {
	s, _ := newTestSession(t, newTestBoard(t, []string{"a", "b"}, nil, nil))
	ctx := context.Background()

	if err := s.StartDrag(ctx, "a"); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	if s.ActiveDragID() != "a" {
		t.Fatalf("active drag = %q, want a", s.ActiveDragID())
	}
	if snap := s.Snapshot(); snap.ActiveDragID != "a" {
		t.Fatalf("snapshot active drag = %q, want a", snap.ActiveDragID)
	}
	outcome, err := s.EndDrag(ctx, DragEndOverZone{})
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if outcome.Changed() {
		t.Fatalf("expected no change for release outside zones, got %#v", outcome)
	}
	if s.ActiveDragID() != "" {
		t.Fatal("active drag not cleared")
	}

	if err := s.StartDrag(ctx, "b"); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	s.CancelDrag(ctx)
	if s.ActiveDragID() != "" {
		t.Fatal("CancelDrag() did not clear active drag")
	}
	assertColumn(t, s.Board(), "todo", "a", "b")
}

func TestSessionDeleteClearsMatchingDrag(t *testing.T) {
	s, _ := newTestSession(t, newTestBoard(t, []string{"a", "b"}, nil, nil))
	ctx := context.Background()
	if err := s.StartDrag(ctx, "a"); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	if _, err := s.DeleteTask(ctx, "a"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if s.ActiveDragID() != "" {
		t.Fatalf("active drag = %q after deleting it", s.ActiveDragID())
	}
	if _, err := s.DeleteTask(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestSessionEndToEndMoveThenTrash walks the canonical two-card scenario.
func TestSessionEndToEndMoveThenTrash(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, []string{"A", "B"}, nil, nil))
	ctx := context.Background()

	if _, err := s.MoveTask(ctx, MoveTaskInput{FromColumnID: "todo", FromIndex: 0, ToColumnID: "doing", ToIndex: 0}); err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if err := s.StartDrag(ctx, "B"); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	outcome, err := s.EndDrag(ctx, DragEndOverZone{ZoneID: RemovalZoneID})
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if outcome.Intent != (DeleteIntent{TaskID: "B"}) || outcome.Task.ID != "B" {
		t.Fatalf("unexpected outcome %#v", outcome)
	}

	board := s.Board()
	assertColumn(t, board, "todo")
	assertColumn(t, board, "doing", "A")
	assertColumn(t, board, "done")
	if got := journal.ops(); !slices.Equal(got, []domain.ChangeOperation{domain.ChangeOperationMove, domain.ChangeOperationDelete}) {
		t.Fatalf("unexpected ops %v", got)
	}
	activity, err := s.Activity(ctx, 1)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	if len(activity) != 1 || activity[0].Operation != domain.ChangeOperationDelete {
		t.Fatalf("unexpected activity %#v", activity)
	}
}

func TestSessionDragOverTaskMovesAcrossColumns(t *testing.T) {
	s, _ := newTestSession(t, newTestBoard(t, []string{"a"}, []string{"x", "y"}, nil))
	ctx := context.Background()

	if err := s.StartDrag(ctx, "a"); err != nil {
		t.Fatalf("StartDrag() error = %v", err)
	}
	outcome, err := s.EndDrag(ctx, DragEndOverTask{TargetTaskID: "y"})
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if !outcome.Changed() {
		t.Fatal("expected the drag to change the board")
	}
	assertColumn(t, s.Board(), "doing", "x", "a", "y")
	assertColumn(t, s.Board(), "todo")
}

func TestSessionSinkFailureDoesNotRollBack(t *testing.T) {
	failing := &fakeJournal{err: errors.New("redis down")}
	s, journal := newTestSession(t, newTestBoard(t, nil, nil, nil), failing)

	if _, err := s.AddTask(context.Background(), AddTaskInput{Title: "Survives"}); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	assertColumn(t, s.Board(), "todo", "t1")
	if len(journal.events) != 1 {
		t.Fatalf("healthy sink missed the event: %#v", journal.events)
	}
}

func TestSessionActivityWithoutReader(t *testing.T) {
	s, err := NewSession(newTestBoard(t, nil, nil, nil), sequentialIDs(), nil, SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	events, err := s.Activity(context.Background(), 10)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty activity, got %#v", events)
	}
}

func TestSessionConcurrentMutationsKeepUniqueness(t *testing.T) {
	s, journal := newTestSession(t, newTestBoard(t, nil, nil, nil))
	var ids sync.Mutex
	n := 0
	s.idGen = func() string {
		ids.Lock()
		defer ids.Unlock()
		n++
		return fmt.Sprintf("c%d", n)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := s.AddTask(context.Background(), AddTaskInput{Title: fmt.Sprintf("card %d", i)})
			if err != nil {
				t.Errorf("AddTask() error = %v", err)
				return
			}
			if _, err := s.MoveTaskByID(context.Background(), task.ID, "done", 0); err != nil {
				t.Errorf("MoveTaskByID() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	board := s.Board()
	assertUniqueIDs(t, board)
	if board.TaskCount() != 8 {
		t.Fatalf("task count = %d, want 8", board.TaskCount())
	}
	for i, ev := range journal.events {
		if ev.ID != int64(i+1) {
			t.Fatalf("events out of sequence at %d: %#v", i, ev)
		}
	}
}
