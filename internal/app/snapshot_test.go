package app

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hylla/taskflow/internal/domain"
)

func TestSnapshotFromBoardPreservesOrder(t *testing.T) {
	board := newTestBoard(t, []string{"a", "b"}, nil, []string{"c"})

	snap := SnapshotFromBoard(board, "b", testNow)
	if snap.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", snap.Version)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(snap.Columns) != 3 || snap.Columns[0].ID != "todo" || snap.Columns[2].Position != 2 {
		t.Fatalf("unexpected columns %#v", snap.Columns)
	}
	if got := snap.Columns[0].Tasks; len(got) != 2 || got[1].ID != "b" || got[1].Position != 1 {
		t.Fatalf("unexpected todo tasks %#v", got)
	}
	task, colID, ok := snap.Task("c")
	if !ok || colID != "done" || task.Priority != domain.PriorityMedium {
		t.Fatalf("Task(c) = %#v, %q, %t", task, colID, ok)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"active_drag_id":"b"`) || !strings.Contains(string(raw), `"tasks":[]`) {
		t.Fatalf("unexpected snapshot json %s", raw)
	}
}

func TestSnapshotValidateRejectsBadPayloads(t *testing.T) {
	good := SnapshotFromBoard(newTestBoard(t, []string{"a"}, []string{"b"}, nil), "", testNow)

	wrongVersion := good
	wrongVersion.Version = "kan.snapshot.v1"
	if err := wrongVersion.Validate(); err == nil {
		t.Fatal("expected version error")
	}

	dup := SnapshotFromBoard(newTestBoard(t, []string{"a"}, []string{"b"}, nil), "", testNow)
	dup.Columns[1].Tasks[0].ID = "a"
	if err := dup.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate task id") {
		t.Fatalf("expected duplicate task error, got %v", err)
	}
}

func TestBuildBoardSeeds(t *testing.T) {
	columns := []ColumnSeed{{ID: "todo", Name: "To Do"}, {ID: "done", Name: "Done"}}
	board, err := BuildBoard(columns, []TaskSeed{
		{ID: "1", ColumnID: "todo", Title: "Assignment 1", Description: "due date - 1aug"},
		{ColumnID: "todo", Title: "Generated"},
	}, sequentialIDs(), testNow)
	if err != nil {
		t.Fatalf("BuildBoard() error = %v", err)
	}
	assertColumn(t, board, "todo", "1", "t1")

	if _, err := BuildBoard(columns, []TaskSeed{{ColumnID: "later", Title: "x", ID: "x"}}, nil, testNow); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := BuildBoard(columns, []TaskSeed{{ColumnID: "todo", Title: " ", ID: "x"}}, nil, testNow); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := BuildBoard([]ColumnSeed{{ID: RemovalZoneID, Name: "Trash"}}, nil, nil, testNow); !errors.Is(err, domain.ErrInvalidColumnID) {
		t.Fatalf("expected reserved column error, got %v", err)
	}
	if _, err := BuildBoard(append(columns, ColumnSeed{ID: "todo", Name: "Again"}), nil, nil, testNow); !errors.Is(err, domain.ErrDuplicateColumnID) {
		t.Fatalf("expected ErrDuplicateColumnID, got %v", err)
	}
}
