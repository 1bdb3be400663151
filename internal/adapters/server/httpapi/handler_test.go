package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/taskflow/internal/adapters/server/common"
	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/domain"
)

// recordingSink captures change events so tests can check attribution.
type recordingSink struct {
	events []domain.ChangeEvent
}

// Record stores one event.
func (s *recordingSink) Record(_ context.Context, ev domain.ChangeEvent) error {
	s.events = append(s.events, ev)
	return nil
}

// ListChangeEvents returns events newest first.
func (s *recordingSink) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	out := make([]domain.ChangeEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		out = append(out, s.events[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// failingBoard returns one configured error from every call.
type failingBoard struct {
	common.BoardService
	err error
}

// GetBoard returns the configured error.
func (f failingBoard) GetBoard(context.Context) (app.BoardSnapshot, error) {
	return app.BoardSnapshot{}, f.err
}

// newTestHandler serves todo=[A,B], doing=[], done=[] over a real session.
func newTestHandler(t *testing.T) (*Handler, *app.Session, *recordingSink) {
	t.Helper()
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	board, err := app.BuildBoard(
		[]app.ColumnSeed{{ID: "todo", Name: "To Do"}, {ID: "doing", Name: "In Progress"}, {ID: "done", Name: "Done"}},
		[]app.TaskSeed{{ID: "A", ColumnID: "todo", Title: "Task A"}, {ID: "B", ColumnID: "todo", Title: "Task B"}},
		nil,
		now,
	)
	if err != nil {
		t.Fatalf("BuildBoard() error = %v", err)
	}
	sink := &recordingSink{}
	n := 0
	session, err := app.NewSession(board, func() string {
		n++
		return fmt.Sprintf("h%d", n)
	}, func() time.Time { return now }, app.SessionConfig{Sinks: []app.ChangeSink{sink}, Reader: sink})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return NewHandler(common.NewSessionAdapter(session)), session, sink
}

// serve runs one request through the handler.
func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func columnTaskIDs(snap app.BoardSnapshot, columnID string) []string {
	for _, col := range snap.Columns {
		if col.ID != columnID {
			continue
		}
		out := make([]string, 0, len(col.Tasks))
		for _, task := range col.Tasks {
			out = append(out, task.ID)
		}
		return out
	}
	return nil
}

// TestHandlerGetBoard verifies the board snapshot response.
func TestHandlerGetBoard(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	snap := decodeBody[app.BoardSnapshot](t, rec)
	if snap.Version != app.SnapshotVersion || len(snap.Columns) != 3 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if got := columnTaskIDs(snap, "todo"); len(got) != 2 || got[0] != "A" {
		t.Fatalf("unexpected todo column %v", got)
	}
}

// TestHandlerTaskLifecycle verifies create, edit, move and delete over REST.
func TestHandlerTaskLifecycle(t *testing.T) {
	h, session, sink := newTestHandler(t)

	rec := serve(t, h, http.MethodPost, "/tasks", `{"title":"Write docs","priority":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[common.TaskView](t, rec)
	if created.ID != "h1" || created.ColumnID != "todo" || created.Position != 2 || created.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected created task %#v", created)
	}

	rec = serve(t, h, http.MethodPatch, "/tasks/h1", `{"description":"in **markdown**"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}
	if edited := decodeBody[common.TaskView](t, rec); edited.Description != "in **markdown**" || edited.Title != "Write docs" {
		t.Fatalf("unexpected edited task %#v", edited)
	}

	rec = serve(t, h, http.MethodPost, "/tasks/h1/move", `{"to_column_id":"done","to_index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rec.Code, rec.Body.String())
	}
	if moved := decodeBody[common.TaskView](t, rec); moved.ColumnID != "done" || moved.Position != 0 {
		t.Fatalf("unexpected moved task %#v", moved)
	}

	rec = serve(t, h, http.MethodDelete, "/tasks/h1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	if session.Board().TaskCount() != 2 {
		t.Fatalf("task count = %d, want 2", session.Board().TaskCount())
	}
	for _, ev := range sink.events {
		if ev.Actor != string(app.ActorHTTP) {
			t.Fatalf("event actor = %q, want http", ev.Actor)
		}
	}
	if len(sink.events) != 4 {
		t.Fatalf("expected 4 journaled events, got %d", len(sink.events))
	}
}

// TestHandlerMoveThenTrashScenario drives the move-then-trash flow over REST.
func TestHandlerMoveThenTrashScenario(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodPost, "/moves", `{"from_column_id":"todo","from_index":0,"to_column_id":"doing","to_index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, h, http.MethodPost, "/drag/start", `{"task_id":"B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drag start status = %d, body %s", rec.Code, rec.Body.String())
	}
	if state := decodeBody[common.DragState](t, rec); state.ActiveTaskID != "B" {
		t.Fatalf("active task = %q, want B", state.ActiveTaskID)
	}
	rec = serve(t, h, http.MethodPost, "/drag/end", `{"zone_id":"trash"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drag end status = %d, body %s", rec.Code, rec.Body.String())
	}
	if result := decodeBody[common.DragResult](t, rec); result.Outcome != common.DragOutcomeDeleted {
		t.Fatalf("unexpected drag result %#v", result)
	}

	snap := decodeBody[app.BoardSnapshot](t, serve(t, h, http.MethodGet, "/board", ""))
	if got := columnTaskIDs(snap, "todo"); len(got) != 0 {
		t.Fatalf("todo = %v, want empty", got)
	}
	if got := columnTaskIDs(snap, "doing"); len(got) != 1 || got[0] != "A" {
		t.Fatalf("doing = %v, want [A]", got)
	}
	if got := columnTaskIDs(snap, "done"); len(got) != 0 {
		t.Fatalf("done = %v, want empty", got)
	}

	rec = serve(t, h, http.MethodGet, "/activity?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activity status = %d", rec.Code)
	}
	payload := decodeBody[struct {
		Events []domain.ChangeEvent `json:"events"`
	}](t, rec)
	if len(payload.Events) != 1 || payload.Events[0].Operation != domain.ChangeOperationDelete {
		t.Fatalf("unexpected activity %#v", payload.Events)
	}
}

// TestHandlerDragCancel verifies cancel clears the active drag.
func TestHandlerDragCancel(t *testing.T) {
	h, session, _ := newTestHandler(t)
	if rec := serve(t, h, http.MethodPost, "/drag/start", `{"task_id":"A"}`); rec.Code != http.StatusOK {
		t.Fatalf("drag start status = %d", rec.Code)
	}
	if rec := serve(t, h, http.MethodPost, "/drag/cancel", ""); rec.Code != http.StatusOK {
		t.Fatalf("drag cancel status = %d", rec.Code)
	}
	if session.ActiveDragID() != "" {
		t.Fatalf("active drag = %q after cancel", session.ActiveDragID())
	}
}

// TestHandlerErrorMapping verifies structured status mapping for failures.
func TestHandlerErrorMapping(t *testing.T) {
	h, _, _ := newTestHandler(t)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{name: "blank title", method: http.MethodPost, target: "/tasks", body: `{"title":"  "}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown field", method: http.MethodPost, target: "/tasks", body: `{"title":"x","owner":"me"}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "trailing content", method: http.MethodPost, target: "/tasks", body: `{"title":"x"}{}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "missing task", method: http.MethodDelete, target: "/tasks/zzz", status: http.StatusNotFound, code: "not_found"},
		{name: "unknown column", method: http.MethodPost, target: "/tasks/A/move", body: `{"to_column_id":"later"}`, status: http.StatusNotFound, code: "not_found"},
		{name: "bad index", method: http.MethodPost, target: "/moves", body: `{"from_column_id":"todo","from_index":5,"to_column_id":"done","to_index":0}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown zone", method: http.MethodPost, target: "/drag/end", body: `{"task_id":"A","zone_id":"archive"}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "bad limit", method: http.MethodGet, target: "/activity?limit=-1", status: http.StatusBadRequest, code: "invalid_request"},
		{name: "method", method: http.MethodPut, target: "/board", status: http.StatusMethodNotAllowed, code: "method_not_allowed"},
		{name: "unknown route", method: http.MethodGet, target: "/tasks/A/archive", status: http.StatusNotFound, code: "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, h, tc.method, tc.target, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			envelope := decodeBody[ErrorEnvelope](t, rec)
			if envelope.Error.Code != tc.code {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tc.code)
			}
		})
	}
}

// TestHandlerUnknownZoneHint verifies the drop-zone hint text.
func TestHandlerUnknownZoneHint(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := serve(t, h, http.MethodPost, "/drag/end", `{"task_id":"A","zone_id":"archive"}`)
	envelope := decodeBody[ErrorEnvelope](t, rec)
	if !strings.Contains(envelope.Error.Hint, app.RemovalZoneID) {
		t.Fatalf("hint = %q, want mention of %q", envelope.Error.Hint, app.RemovalZoneID)
	}
}

// TestHandlerUnavailableAndInternal verifies service-level failures.
func TestHandlerUnavailableAndInternal(t *testing.T) {
	rec := serve(t, NewHandler(nil), http.MethodGet, "/board", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	rec = serve(t, NewHandler(failingBoard{err: errors.New("boom")}), http.MethodGet, "/board", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if envelope := decodeBody[ErrorEnvelope](t, rec); envelope.Error.Code != "internal_error" {
		t.Fatalf("code = %q, want internal_error", envelope.Error.Code)
	}
}
