package tui

import (
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/hylla/taskflow/internal/app"
)

// dragState tracks the grabbed card and where it would land.
type dragState struct {
	taskID string
	// column is the target zone index; len(columns) is the trash zone.
	column int
	// slot is the target position; len(items) means the column end.
	slot  int
	mouse bool
}

// hitKind classifies what lies under a pointer position.
type hitKind int

const (
	hitNone hitKind = iota
	hitColumn
	hitTask
	hitTrash
)

type hit struct {
	kind   hitKind
	column int
	task   int
}

// startDrag grabs taskID and enters drag mode.
func (m *Model) startDrag(taskID string, mouse bool) {
	if err := m.svc.StartDrag(tuiContext(), taskID); err != nil {
		m.status = "error: " + err.Error()
		return
	}
	columnID, idx, _ := m.board.Locate(taskID)
	m.drag = dragState{
		taskID: taskID,
		column: max(0, m.columnIndex(columnID)),
		slot:   idx,
		mouse:  mouse,
	}
	m.mode = modeDrag
	if task, ok := m.board.Task(taskID); ok {
		m.status = "dragging " + truncate(task.Title, 32)
	}
}

// trashZone returns the zone index of the removal zone.
func (m Model) trashZone() int {
	return len(m.columns)
}

// dragOverTrash reports whether the drop target is the removal zone.
func (m Model) dragOverTrash() bool {
	return m.drag.column >= m.trashZone()
}

// zoneLen returns how many cards the target zone holds.
func (m Model) zoneLen(zone int) int {
	if zone < 0 || zone >= len(m.columns) {
		return 0
	}
	return m.columns[zone].Len()
}

// clampDragTarget keeps the drop target inside the current board.
func (m *Model) clampDragTarget() {
	if m.mode != modeDrag {
		return
	}
	m.drag.column = clamp(m.drag.column, 0, m.trashZone())
	m.drag.slot = clamp(m.drag.slot, 0, m.zoneLen(m.drag.column))
}

// handleDragKey moves the drop target or finishes the drag.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		return m.endDrag(app.DragCancelled{})
	case key.Matches(msg, m.keys.drop), key.Matches(msg, m.keys.grab):
		return m.endDrag(m.dropEvent())
	case key.Matches(msg, m.keys.trash):
		m.drag.column = m.trashZone()
		m.drag.slot = 0
	case key.Matches(msg, m.keys.moveLeft):
		if m.drag.column > 0 {
			m.drag.column--
		}
	case key.Matches(msg, m.keys.moveRight):
		if m.drag.column < m.trashZone() {
			m.drag.column++
		}
	case key.Matches(msg, m.keys.moveUp):
		if m.drag.slot > 0 {
			m.drag.slot--
		}
	case key.Matches(msg, m.keys.moveDown):
		m.drag.slot++
	}
	m.clampDragTarget()
	return m, nil
}

// dropEvent maps the current drop target onto a drag end event.
func (m Model) dropEvent() app.DragEvent {
	if m.dragOverTrash() {
		return app.DragEndOverZone{TaskID: m.drag.taskID, ZoneID: app.RemovalZoneID}
	}
	col := m.columns[m.drag.column]
	if target, ok := col.At(m.drag.slot); ok {
		return app.DragEndOverTask{TaskID: m.drag.taskID, TargetTaskID: target.ID}
	}
	return app.DragEndOverZone{TaskID: m.drag.taskID, ZoneID: col.ID}
}

// endDrag leaves drag mode and hands ev to the session.
func (m Model) endDrag(ev app.DragEvent) (tea.Model, tea.Cmd) {
	m.mode = modeNone
	m.drag = dragState{}
	if _, ok := ev.(app.DragCancelled); ok {
		if _, err := m.svc.EndDrag(tuiContext(), ev); err != nil {
			m.status = "error: " + err.Error()
		} else {
			m.status = "drag cancelled"
		}
		return m, nil
	}
	svc := m.svc
	return m, func() tea.Msg {
		outcome, err := svc.EndDrag(tuiContext(), ev)
		if err != nil {
			return actionMsg{err: err}
		}
		return dragOutcomeMsg(outcome)
	}
}

// dragOutcomeMsg summarizes a finished drag for the status line.
func dragOutcomeMsg(outcome app.DragOutcome) actionMsg {
	switch outcome.Intent.(type) {
	case app.DeleteIntent:
		return actionMsg{status: "trashed " + truncate(outcome.Task.Title, 32), reload: true}
	case app.MoveIntent:
		return actionMsg{status: "moved " + truncate(outcome.Task.Title, 32), focusTaskID: outcome.Task.ID, reload: true}
	default:
		return actionMsg{status: "no change", reload: true}
	}
}

// dragTargetLabel describes the drop target for the floating preview.
func (m Model) dragTargetLabel() string {
	if m.dragOverTrash() {
		return "trash (delete)"
	}
	if m.drag.column < 0 || m.drag.column >= len(m.columns) {
		return "-"
	}
	col := m.columns[m.drag.column]
	target, ok := col.At(m.drag.slot)
	switch {
	case !ok:
		return "end of " + col.Name
	case target.ID == m.drag.taskID:
		return col.Name + ", current position"
	default:
		return fmt.Sprintf("%s, before %q", col.Name, truncate(target.Title, 24))
	}
}

// handleMouseWheel moves the selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone {
		return m, nil
	}
	tasks := m.currentColumnTasks()
	if len(tasks) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedTask > 0 {
			m.selectedTask--
		}
	case tea.MouseWheelDown:
		if m.selectedTask < len(tasks)-1 {
			m.selectedTask++
		}
	}
	return m, nil
}

// handleMouseClick selects under the pointer; a press on a card grabs it.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || msg.Button != tea.MouseLeft {
		return m, nil
	}
	h := m.hitTest(msg.X, msg.Y)
	switch h.kind {
	case hitTask:
		m.selectedColumn = h.column
		m.selectedTask = h.task
		m.startDrag(m.columns[h.column].Items[h.task].ID, true)
	case hitColumn:
		m.selectedColumn = h.column
		m.clampSelections()
	}
	return m, nil
}

// handleMouseMotion follows the pointer while a mouse drag is active.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeDrag || !m.drag.mouse {
		return m, nil
	}
	h := m.hitTest(msg.X, msg.Y)
	switch h.kind {
	case hitTask:
		m.drag.column, m.drag.slot = h.column, h.task
	case hitColumn:
		m.drag.column, m.drag.slot = h.column, m.zoneLen(h.column)
	case hitTrash:
		m.drag.column, m.drag.slot = m.trashZone(), 0
	}
	return m, nil
}

// handleMouseRelease drops the dragged card on whatever lies under the pointer.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeDrag || !m.drag.mouse {
		return m, nil
	}
	h := m.hitTest(msg.X, msg.Y)
	switch h.kind {
	case hitTask:
		target := m.columns[h.column].Items[h.task]
		return m.endDrag(app.DragEndOverTask{TaskID: m.drag.taskID, TargetTaskID: target.ID})
	case hitColumn:
		return m.endDrag(app.DragEndOverZone{TaskID: m.drag.taskID, ZoneID: m.columns[h.column].ID})
	case hitTrash:
		return m.endDrag(app.DragEndOverZone{TaskID: m.drag.taskID, ZoneID: app.RemovalZoneID})
	default:
		return m.endDrag(app.DragCancelled{})
	}
}

// hitTest maps screen coordinates onto the board layout rendered by View.
func (m Model) hitTest(x, y int) hit {
	if len(m.columns) == 0 || x < 0 {
		return hit{}
	}
	span := m.zoneSpan()
	zone := x / span
	if zone > m.trashZone() {
		return hit{}
	}
	relativeY := y - m.boardTop()
	if relativeY < 0 || relativeY >= m.columnHeight() {
		return hit{}
	}
	if zone == m.trashZone() {
		return hit{kind: hitTrash, column: zone}
	}
	row := relativeY - taskRowOffset
	if idx := m.taskIndexAtRow(zone, row); idx >= 0 {
		return hit{kind: hitTask, column: zone, task: idx}
	}
	return hit{kind: hitColumn, column: zone}
}

// taskIndexAtRow returns the card drawn on row of a column, or -1.
func (m Model) taskIndexAtRow(zone, row int) int {
	if row < 0 || zone < 0 || zone >= len(m.columns) {
		return -1
	}
	start := 0
	for idx, task := range m.columns[zone].Items {
		lines := m.taskLineCount(task)
		if row >= start && row < start+lines {
			return idx
		}
		start += lines + 1
	}
	return -1
}
