package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"
	"github.com/hylla/taskflow/internal/app"
	"github.com/hylla/taskflow/internal/domain"
)

// Service is the board session the model drives. *app.Session satisfies it.
type Service interface {
	Board() domain.Board
	DefaultColumnID() string
	ActiveDragID() string
	AddTask(context.Context, app.AddTaskInput) (domain.Task, error)
	EditTask(context.Context, app.EditTaskInput) (domain.Task, error)
	DeleteTask(context.Context, string) (domain.Task, error)
	StartDrag(context.Context, string) error
	EndDrag(context.Context, app.DragEvent) (app.DragOutcome, error)
	Activity(context.Context, int) ([]domain.ChangeEvent, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeEditTask
	modeTaskInfo
	modeActivityLog
	modeDrag
)

// task-form field indexes used throughout keyboard/update logic.
const (
	taskFieldTitle = iota
	taskFieldDescription
	taskFieldPriority
	taskFieldCount
)

// activity log limits used by modal rendering and retention.
const (
	activityLogMaxItems   = 200
	activityLogViewWindow = 14
)

const defaultMarkdownCacheSize = 128

// priorityOptions stores a package-level helper value.
var priorityOptions = []domain.Priority{
	domain.PriorityLow,
	domain.PriorityMedium,
	domain.PriorityHigh,
}

// activityEntry is one rendered row of the activity log.
type activityEntry struct {
	At      time.Time
	Summary string
	Target  string
	Detail  string
	Actor   string
}

// loadedMsg carries a fresh copy of the board.
type loadedMsg struct {
	board  domain.Board
	dragID string
}

// actionMsg reports the result of one board mutation.
type actionMsg struct {
	err         error
	status      string
	focusTaskID string
	closeForm   bool
	reload      bool
}

// activityLogLoadedMsg carries journal rows for the activity overlay.
type activityLogLoadedMsg struct {
	entries []activityEntry
	err     error
}

// Model is the bubbletea model for the board.
type Model struct {
	svc     Service
	board   domain.Board
	columns []domain.Column

	ready  bool
	width  int
	height int

	selectedColumn int
	selectedTask   int
	mode           inputMode
	status         string

	help       help.Model
	keys       keyMap
	taskFields TaskFieldConfig

	formInputs   []textinput.Model
	formFocus    int
	formPriority domain.Priority

	editInput  textinput.Model
	editTaskID string

	infoTaskID  string
	activityLog []activityEntry

	drag dragState

	pendingFocusTaskID string

	markdown  *markdownRenderer
	clipboard func(string) error
	logger    *log.Logger
}

// NewModel constructs a board model over svc.
func NewModel(svc Service, opts ...Option) Model {
	m := Model{
		svc:          svc,
		status:       "loading...",
		help:         help.New(),
		keys:         newKeyMap(),
		taskFields:   DefaultTaskFieldConfig(),
		formPriority: domain.PriorityMedium,
		markdown:     newMarkdownRenderer(defaultMarkdownCacheSize),
		clipboard:    systemClipboard,
		logger:       log.New(io.Discard),
	}
	m.resetTaskForm()
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.board = msg.board
		m.columns = msg.board.Columns()
		if m.mode == modeDrag && msg.dragID != m.drag.taskID {
			// The dragged card was removed elsewhere.
			m.mode = modeNone
			m.drag = dragState{}
			m.status = "drag cancelled"
		}
		m.clampSelections()
		m.clampDragTarget()
		if m.pendingFocusTaskID != "" {
			m.focusTaskByID(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		if m.mode == modeTaskInfo {
			if _, ok := m.board.Task(m.infoTaskID); !ok {
				m.mode = modeNone
			}
		}
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.logger.Debug("tui action failed", "err", msg.err)
			m.status = "error: " + msg.err.Error()
			return m, m.loadData
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.closeForm {
			m.closeForms()
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case activityLogLoadedMsg:
		if msg.err != nil {
			if m.mode == modeActivityLog {
				m.status = "activity log unavailable: " + msg.err.Error()
			}
			return m, nil
		}
		m.activityLog = append([]activityEntry(nil), msg.entries...)
		if m.mode == modeActivityLog {
			m.status = "activity log"
		}
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeNone:
			return m.handleNormalModeKey(msg)
		case modeDrag:
			return m.handleDragKey(msg)
		default:
			return m.handleInputModeKey(msg)
		}

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m.updateFocusedInput(msg)
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	return loadedMsg{board: m.svc.Board(), dragID: m.svc.ActiveDragID()}
}

// loadActivityLog loads journal entries for modal rendering.
func (m Model) loadActivityLog() tea.Msg {
	events, err := m.svc.Activity(tuiContext(), activityLogMaxItems)
	if err != nil {
		return activityLogLoadedMsg{err: err}
	}
	return activityLogLoadedMsg{entries: mapChangeEventsToActivityEntries(events)}
}

// tuiContext attributes mutations to the terminal UI.
func tuiContext() context.Context {
	return app.WithActor(context.Background(), app.ActorTUI)
}

// handleNormalModeKey handles keys while no overlay or drag is active.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggleHelp), key.Matches(msg, m.keys.cancel):
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloaded"
		return m, m.loadData
	case key.Matches(msg, m.keys.grab):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.startDrag(task.ID, false)
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.clampSelections()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			m.clampSelections()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedTask > 0 {
			m.selectedTask--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selectedTask < len(m.currentColumnTasks())-1 {
			m.selectedTask++
		}
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		return m, m.startAddTask()
	case key.Matches(msg, m.keys.editTask):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.startEditTask(task)
	case key.Matches(msg, m.keys.taskInfo):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.mode = modeTaskInfo
		m.infoTaskID = task.ID
		m.status = "task info"
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.deleteTask(task)
	case key.Matches(msg, m.keys.copyTask):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.copyTask(task)
	case key.Matches(msg, m.keys.activityLog):
		m.mode = modeActivityLog
		m.status = "activity log"
		return m, m.loadActivityLog
	default:
		return m, nil
	}
}

// handleInputModeKey routes keys for form and overlay modes.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask:
		return m.handleTaskFormKey(msg)
	case modeEditTask:
		return m.handleEditKey(msg)
	case modeTaskInfo:
		switch {
		case key.Matches(msg, m.keys.copyTask):
			if task, ok := m.board.Task(m.infoTaskID); ok {
				return m, m.copyTask(task)
			}
		case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.taskInfo), msg.String() == "q":
			m.mode = modeNone
			m.infoTaskID = ""
			m.status = "ready"
		}
		return m, nil
	case modeActivityLog:
		if key.Matches(msg, m.keys.cancel) || key.Matches(msg, m.keys.activityLog) || msg.String() == "q" {
			m.mode = modeNone
			m.status = "ready"
		}
		return m, nil
	}
	return m, nil
}

// handleTaskFormKey drives the add-task modal.
func (m Model) handleTaskFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForms()
		m.status = "cancelled"
		return m, nil
	case "tab", "down":
		return m, m.focusTaskFormField((m.formFocus + 1) % taskFieldCount)
	case "shift+tab", "up":
		return m, m.focusTaskFormField((m.formFocus + taskFieldCount - 1) % taskFieldCount)
	case "enter":
		return m.submitTaskForm()
	}
	if m.formFocus == taskFieldPriority {
		switch msg.String() {
		case "left", "h":
			m.cyclePriority(-1)
		case "right", "l", " ", "space":
			m.cyclePriority(1)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// handleEditKey drives inline title editing.
func (m Model) handleEditKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForms()
		m.status = "edit cancelled"
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.editInput.Value())
		if title == "" {
			m.status = "title required"
			return m, nil
		}
		taskID := m.editTaskID
		svc := m.svc
		return m, func() tea.Msg {
			task, err := svc.EditTask(tuiContext(), app.EditTaskInput{
				TaskID: taskID,
				Patch:  domain.TaskPatch{Title: &title},
			})
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "task updated", focusTaskID: task.ID, closeForm: true, reload: true}
		}
	}
	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

// updateFocusedInput forwards non-key messages, such as cursor blinks, to the active input.
func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case modeAddTask:
		if m.formFocus < len(m.formInputs) {
			m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		}
	case modeEditTask:
		m.editInput, cmd = m.editInput.Update(msg)
	}
	return m, cmd
}

// startAddTask opens the add-task modal.
func (m *Model) startAddTask() tea.Cmd {
	m.resetTaskForm()
	m.mode = modeAddTask
	m.status = "new task"
	return m.focusTaskFormField(taskFieldTitle)
}

// startEditTask opens the inline title editor for task.
func (m *Model) startEditTask(task domain.Task) tea.Cmd {
	m.editInput = newModalInput("", "title", task.Title, 120)
	m.editInput.CursorEnd()
	m.editTaskID = task.ID
	m.mode = modeEditTask
	m.status = "edit task"
	return m.editInput.Focus()
}

// submitTaskForm validates and submits the add-task modal.
func (m Model) submitTaskForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.formInputs[taskFieldTitle].Value())
	if title == "" {
		m.status = "title required"
		return m, m.focusTaskFormField(taskFieldTitle)
	}
	in := app.AddTaskInput{
		Title:       title,
		Description: strings.TrimSpace(m.formInputs[taskFieldDescription].Value()),
		Priority:    m.formPriority,
	}
	svc := m.svc
	return m, func() tea.Msg {
		task, err := svc.AddTask(tuiContext(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "task added", focusTaskID: task.ID, closeForm: true, reload: true}
	}
}

// deleteTask removes task from the board.
func (m Model) deleteTask(task domain.Task) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		removed, err := svc.DeleteTask(tuiContext(), task.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted " + truncate(removed.Title, 32), reload: true}
	}
}

// copyTask writes task to the clipboard as markdown.
func (m Model) copyTask(task domain.Task) tea.Cmd {
	write := m.clipboard
	text := taskClipboardText(task)
	return func() tea.Msg {
		if err := write(text); err != nil {
			return actionMsg{err: fmt.Errorf("copy task: %w", err)}
		}
		return actionMsg{status: "copied " + truncate(task.Title, 32)}
	}
}

// taskClipboardText formats one task for pasting elsewhere.
func taskClipboardText(task domain.Task) string {
	out := "# " + task.Title
	if desc := strings.TrimSpace(task.Description); desc != "" {
		out += "\n\n" + desc
	}
	return out + "\n\npriority: " + string(task.Priority)
}

// resetTaskForm clears the add-task modal fields.
func (m *Model) resetTaskForm() {
	m.formInputs = []textinput.Model{
		newModalInput("title: ", "required", "", 120),
		newModalInput("description: ", "markdown", "", 2000),
	}
	m.formFocus = taskFieldTitle
	m.formPriority = domain.PriorityMedium
}

// closeForms leaves any form mode and clears its inputs.
func (m *Model) closeForms() {
	switch m.mode {
	case modeAddTask:
		m.resetTaskForm()
	case modeEditTask:
		m.editInput.Blur()
		m.editTaskID = ""
	}
	if m.mode == modeAddTask || m.mode == modeEditTask {
		m.mode = modeNone
	}
}

// focusTaskFormField focuses one add-task field; the priority selector has no text input.
func (m *Model) focusTaskFormField(idx int) tea.Cmd {
	m.formFocus = clamp(idx, 0, taskFieldCount-1)
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	if m.formFocus < len(m.formInputs) {
		return m.formInputs[m.formFocus].Focus()
	}
	return nil
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func priorityIndex(priority domain.Priority) int {
	for idx, p := range priorityOptions {
		if p == priority {
			return idx
		}
	}
	return 1
}

func (m *Model) cyclePriority(delta int) {
	idx := priorityIndex(m.formPriority) + delta
	n := len(priorityOptions)
	m.formPriority = priorityOptions[((idx%n)+n)%n]
}

// currentColumnTasks returns the selected column's cards.
func (m Model) currentColumnTasks() []domain.Task {
	if m.selectedColumn < 0 || m.selectedColumn >= len(m.columns) {
		return nil
	}
	return m.columns[m.selectedColumn].Items
}

func (m Model) selectedTaskInCurrentColumn() (domain.Task, bool) {
	tasks := m.currentColumnTasks()
	if m.selectedTask < 0 || m.selectedTask >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.selectedTask], true
}

// columnIndex returns the display index of columnID, or -1.
func (m Model) columnIndex(columnID string) int {
	for idx, col := range m.columns {
		if col.ID == columnID {
			return idx
		}
	}
	return -1
}

// focusTaskByID selects the card with taskID when it is on the board.
func (m *Model) focusTaskByID(taskID string) {
	columnID, idx, ok := m.board.Locate(taskID)
	if !ok {
		return
	}
	if colIdx := m.columnIndex(columnID); colIdx >= 0 {
		m.selectedColumn = colIdx
		m.selectedTask = idx
	}
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if len(m.columns) == 0 {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns)-1)
	colTasks := m.currentColumnTasks()
	if len(colTasks) == 0 {
		m.selectedTask = 0
		return
	}
	m.selectedTask = clamp(m.selectedTask, 0, len(colTasks)-1)
}

// mapChangeEventsToActivityEntries converts newest-first journal events into modal rows.
func mapChangeEventsToActivityEntries(events []domain.ChangeEvent) []activityEntry {
	if len(events) == 0 {
		return []activityEntry{}
	}
	entries := make([]activityEntry, 0, len(events))
	// Journal rows are newest-first; modal rendering expects chronological order.
	for idx := len(events) - 1; idx >= 0; idx-- {
		entries = append(entries, mapChangeEventToActivityEntry(events[idx]))
	}
	if len(entries) > activityLogMaxItems {
		entries = append([]activityEntry(nil), entries[len(entries)-activityLogMaxItems:]...)
	}
	return entries
}

// mapChangeEventToActivityEntry derives a compact activity row from one event.
func mapChangeEventToActivityEntry(event domain.ChangeEvent) activityEntry {
	entry := activityEntry{
		At:     event.OccurredAt.UTC(),
		Target: strings.TrimSpace(event.TaskTitle),
		Actor:  event.Actor,
	}
	if entry.Target == "" {
		entry.Target = strings.TrimSpace(event.TaskID)
	}
	if entry.Target == "" {
		entry.Target = "-"
	}
	switch event.Operation {
	case domain.ChangeOperationCreate:
		entry.Summary = "create task"
		entry.Detail = "in " + event.ToColumnID
	case domain.ChangeOperationUpdate:
		entry.Summary = "update task"
	case domain.ChangeOperationMove:
		entry.Summary = "move task"
		entry.Detail = fmt.Sprintf("%s[%d] → %s[%d]", event.FromColumnID, event.FromIndex, event.ToColumnID, event.ToIndex)
	case domain.ChangeOperationDelete:
		entry.Summary = "delete task"
		entry.Detail = "from " + event.FromColumnID
	default:
		entry.Summary = string(event.Operation)
	}
	return entry
}
