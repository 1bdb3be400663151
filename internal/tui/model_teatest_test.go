package tui

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"
)

// TestModelWithTeatest verifies the board renders and q quits.
func TestModelWithTeatest(t *testing.T) {
	session, _ := newTestSession(t)
	tm := teatest.NewTestModel(t, NewModel(session), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Assignment 1")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestDragToTrash verifies a keyboard drag onto the trash zone.
func TestModelWithTeatestDragToTrash(t *testing.T) {
	session, journal := newTestSession(t)
	tm := teatest.NewTestModel(t, NewModel(session), teatest.WithInitialTermSize(120, 35))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Assignment 2")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Dragging")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 't', Text: "t"})
	tm.Send(tea.KeyPressMsg{Code: tea.KeyEnter})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "trashed")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final, ok := tm.FinalModel(t).(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", tm.FinalModel(t))
	}
	if final.mode != modeNone || final.status != "trashed Assignment 1" {
		t.Fatalf("unexpected final state mode=%v status=%q", final.mode, final.status)
	}
	if ids := columnTaskIDs(session, "todo"); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("expected only b left in todo, got %#v", ids)
	}
	if session.ActiveDragID() != "" {
		t.Fatalf("expected no active drag, got %q", session.ActiveDragID())
	}
	events, _ := journal.ListChangeEvents(t.Context(), 10)
	if len(events) != 1 || events[0].TaskID != "a" {
		t.Fatalf("unexpected journal %#v", events)
	}
}

// TestModelWithTeatestHelpOverlay verifies help opens in a dumb terminal.
func TestModelWithTeatestHelpOverlay(t *testing.T) {
	session, _ := newTestSession(t)
	tm := teatest.NewTestModel(
		t,
		NewModel(session),
		teatest.WithInitialTermSize(96, 28),
		teatest.WithProgramOptions(tea.WithEnvironment([]string{"TERM=dumb"})),
	)
	var captured bytes.Buffer
	stream := io.TeeReader(tm.Output(), &captured)

	teatest.WaitFor(t, stream, func(out []byte) bool {
		return strings.Contains(string(out), "Assignment 1")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, stream, func(out []byte) bool {
		return strings.Contains(string(out), "target trash")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
	if captured.Len() == 0 {
		t.Fatal("expected captured output")
	}
}
