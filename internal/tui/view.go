package tui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/taskflow/internal/domain"
)

const (
	// zoneOverhead is the per-zone chrome: left/right border (2), horizontal padding (4), margin-right (1).
	zoneOverhead = 7
	// taskRowOffset is the first card row inside a column box: top border, top padding, column title.
	taskRowOffset = 3
)

// View renders the board and any active overlay.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("taskflow")
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	header += statusStyle.Render(fmt.Sprintf("  %d tasks", m.board.TaskCount()))

	sections := []string{header, "", m.renderBoard(accent, muted, dim)}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	shortHelp := helpBubble.View(m.keys)
	if m.mode == modeDrag {
		shortHelp = helpBubble.ShortHelpView(m.keys.dragHelp())
	}
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(shortHelp)

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine

	overlayHeight := lipgloss.Height(fullContent)
	if m.height > 0 {
		overlayHeight = m.height
	}
	overlay := m.renderModeOverlay(accent, muted, m.width-8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(accent, muted, m.width-8)
	}
	if overlay != "" {
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}
	if m.mode == modeDrag {
		preview := m.renderDragPreview(muted)
		fullContent = placeOnContent(fullContent, preview, max(1, m.width), max(1, overlayHeight), lipgloss.Right, lipgloss.Bottom)
	}

	view := tea.NewView(fullContent)
	view.MouseMode = tea.MouseModeCellMotion
	view.AltScreen = true
	return view
}

// modeLabel names the active mode for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddTask:
		return "new task"
	case modeEditTask:
		return "edit"
	case modeTaskInfo:
		return "info"
	case modeActivityLog:
		return "activity"
	case modeDrag:
		return "drag"
	default:
		return "board"
	}
}

// renderBoard renders every column followed by the trash zone.
func (m Model) renderBoard(accent, muted, dim color.Color) string {
	colWidth := m.columnWidth()
	colHeight := m.columnHeight()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)

	views := make([]string, 0, len(m.columns)+1)
	for colIdx, column := range m.columns {
		style := baseColStyle
		if m.columnHighlighted(colIdx) {
			style = baseColStyle.BorderForeground(accent)
		}
		views = append(views, style.Render(m.renderColumnContent(colIdx, column, colWidth, colHeight, accent, muted)))
	}

	trashColor := lipgloss.Color("203")
	trashStyle := baseColStyle
	if m.mode == modeDrag && m.dragOverTrash() {
		trashStyle = baseColStyle.BorderForeground(trashColor)
	}
	hint := lipgloss.NewStyle().Foreground(muted)
	trashLines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(trashColor).Render("Trash"),
		"",
		hint.Render("drop a card here"),
		hint.Render("to delete it"),
	}
	views = append(views, trashStyle.Render(fitLines(strings.Join(trashLines, "\n"), max(1, colHeight-4))))

	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// columnHighlighted reports whether a column gets the accent border.
func (m Model) columnHighlighted(colIdx int) bool {
	if m.mode == modeDrag {
		return m.drag.column == colIdx
	}
	return m.selectedColumn == colIdx
}

// renderColumnContent renders one column's title and cards.
func (m Model) renderColumnContent(colIdx int, column domain.Column, colWidth, colHeight int, accent, muted color.Color) string {
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dropStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	draggedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	itemSubStyle := lipgloss.NewStyle().Foreground(muted)

	headerLines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", column.Name, column.Len()))}
	dragging := m.mode == modeDrag
	dropHere := dragging && m.drag.column == colIdx

	taskLines := make([]string, 0, max(1, column.Len()*3))
	focusStart, focusEnd := -1, -1
	if column.Len() == 0 {
		taskLines = append(taskLines, emptyStyle.Render("(empty)"))
	}
	for taskIdx, task := range column.Items {
		selected := !dragging && colIdx == m.selectedColumn && taskIdx == m.selectedTask
		dropTarget := dropHere && m.drag.slot == taskIdx
		dragged := dragging && task.ID == m.drag.taskID

		prefix := "   "
		switch {
		case dropTarget:
			prefix = "▸  "
		case selected:
			prefix = "│  "
		}
		title := prefix + truncate(task.Title, max(1, colWidth-4))
		if m.mode == modeEditTask && task.ID == m.editTaskID {
			title = prefix + m.editInput.View()
		}
		switch {
		case dropTarget:
			title = dropStyle.Render(title)
		case selected:
			title = selectedTaskStyle.Render(title)
		case dragged:
			title = draggedStyle.Render(title)
		}

		rowStart := len(taskLines)
		taskLines = append(taskLines, title)
		if sub := m.taskSecondary(task); sub != "" {
			subPrefix := "   "
			if selected {
				subPrefix = "│  "
			}
			taskLines = append(taskLines, subPrefix+itemSubStyle.Render(truncate(sub, max(1, colWidth-4))))
		}
		if taskIdx < column.Len()-1 {
			taskLines = append(taskLines, "")
		}
		if selected || dropTarget {
			focusStart, focusEnd = rowStart, len(taskLines)-1
		}
	}
	if dropHere && m.drag.slot >= column.Len() {
		taskLines = append(taskLines, "")
		focusStart, focusEnd = len(taskLines), len(taskLines)
		taskLines = append(taskLines, dropStyle.Render("▸ drop at end"))
	}

	innerHeight := max(1, colHeight-4)
	taskWindowHeight := max(1, innerHeight-len(headerLines))
	scrollTop := 0
	if focusStart >= 0 {
		if focusEnd >= scrollTop+taskWindowHeight {
			scrollTop = focusEnd - taskWindowHeight + 1
		}
		if focusStart < scrollTop {
			scrollTop = focusStart
		}
	}
	scrollTop = clamp(scrollTop, 0, max(0, len(taskLines)-taskWindowHeight))
	if len(taskLines) > taskWindowHeight {
		taskLines = taskLines[scrollTop : scrollTop+taskWindowHeight]
	}

	lines := append(append([]string{}, headerLines...), taskLines...)
	return fitLines(strings.Join(lines, "\n"), innerHeight)
}

// taskSecondary returns the muted line under a card title.
func (m Model) taskSecondary(task domain.Task) string {
	parts := make([]string, 0, 2)
	if m.taskFields.ShowPriority && task.Priority != "" {
		parts = append(parts, string(task.Priority))
	}
	if m.taskFields.ShowDescription {
		if desc := strings.TrimSpace(task.Description); desc != "" {
			first, _, _ := strings.Cut(desc, "\n")
			parts = append(parts, strings.TrimSpace(first))
		}
	}
	return strings.Join(parts, " • ")
}

// taskLineCount is how many rows one card occupies, excluding the separator.
func (m Model) taskLineCount(task domain.Task) int {
	if m.taskSecondary(task) != "" {
		return 2
	}
	return 1
}

// renderModeOverlay renders the modal for the active mode, if any.
func (m Model) renderModeOverlay(accent, muted color.Color, maxWidth int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)

	switch m.mode {
	case modeAddTask:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 40, 72))
		}
		lines := []string{titleStyle.Render("New Task")}
		for _, in := range m.formInputs {
			lines = append(lines, in.View())
		}
		lines = append(lines, m.renderPriorityPicker(accent, muted))
		if col, ok := m.board.Column(m.svc.DefaultColumnID()); ok {
			lines = append(lines, hintStyle.Render("adds to "+col.Name))
		}
		lines = append(lines, "", hintStyle.Render("enter save • tab next field • ←/→ priority • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeTaskInfo:
		task, ok := m.board.Task(m.infoTaskID)
		if !ok {
			return ""
		}
		width := 60
		if maxWidth > 0 {
			width = clamp(maxWidth, 24, 76)
			boxStyle = boxStyle.Width(width)
		}
		columnName := "-"
		if columnID, _, ok := m.board.Locate(task.ID); ok {
			if col, ok := m.board.Column(columnID); ok {
				columnName = col.Name
			}
		}
		lines := []string{
			titleStyle.Render("Task Info"),
			lipgloss.NewStyle().Bold(true).Render(task.Title),
			hintStyle.Render("column: " + columnName + " • priority: " + string(task.Priority)),
			hintStyle.Render("created: " + formatActivityTimestamp(task.CreatedAt) + " • updated: " + formatActivityTimestamp(task.UpdatedAt)),
			"",
		}
		if desc := m.markdown.render(task.Description, width-4); desc != "" {
			lines = append(lines, desc)
		} else {
			lines = append(lines, hintStyle.Render("(no description)"))
		}
		lines = append(lines, "", hintStyle.Render("esc close • y copy"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeActivityLog:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 44, 96))
		}
		lines := []string{titleStyle.Render("Activity Log")}
		if len(m.activityLog) == 0 {
			lines = append(lines, hintStyle.Render("(no activity yet)"))
		} else {
			rendered := 0
			for idx := len(m.activityLog) - 1; idx >= 0; idx-- {
				entry := m.activityLog[idx]
				line := fmt.Sprintf("%s  %s • %s", formatActivityTimestamp(entry.At), entry.Summary, truncate(entry.Target, 42))
				if entry.Detail != "" {
					line += "  " + entry.Detail
				}
				if entry.Actor != "" {
					line += hintStyle.Render("  (" + entry.Actor + ")")
				}
				lines = append(lines, line)
				rendered++
				if rendered >= activityLogViewWindow {
					break
				}
			}
		}
		lines = append(lines, hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))
	}
	return ""
}

// renderPriorityPicker renders the add-task priority selector.
func (m Model) renderPriorityPicker(accent, muted color.Color) string {
	label := "priority: "
	opts := make([]string, 0, len(priorityOptions))
	for _, p := range priorityOptions {
		switch {
		case p == m.formPriority && m.formFocus == taskFieldPriority:
			opts = append(opts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render("< "+string(p)+" >"))
		case p == m.formPriority:
			opts = append(opts, lipgloss.NewStyle().Bold(true).Render("["+string(p)+"]"))
		default:
			opts = append(opts, lipgloss.NewStyle().Foreground(muted).Render(string(p)))
		}
	}
	return label + strings.Join(opts, " ")
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	helpBubble := m.help
	if maxWidth > 0 {
		width := clamp(maxWidth, 40, 100)
		style = style.Width(width)
		helpBubble.SetWidth(width - 4)
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Help"),
		helpBubble.FullHelpView(m.keys.FullHelp()),
		lipgloss.NewStyle().Foreground(muted).Render("? or esc close"),
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderDragPreview renders the floating card that follows a drag.
func (m Model) renderDragPreview(muted color.Color) string {
	task, ok := m.board.Task(m.drag.taskID)
	if !ok {
		return ""
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("212")).
		Padding(0, 1)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Dragging: " + truncate(task.Title, 32)),
		lipgloss.NewStyle().Foreground(muted).Render("→ " + m.dragTargetLabel()),
	}
	return style.Render(strings.Join(lines, "\n"))
}

// formatActivityTimestamp formats activity timestamps for compact modal rendering.
func formatActivityTimestamp(at time.Time) string {
	if at.IsZero() {
		return "--:--:--"
	}
	local := at.Local()
	now := time.Now().In(local.Location())
	if local.Year() != now.Year() || local.YearDay() != now.YearDay() {
		return local.Format("01-02 15:04")
	}
	return local.Format("15:04:05")
}

// columnWidth returns column width.
func (m Model) columnWidth() int {
	return m.columnWidthFor(m.width)
}

// columnWidthFor returns the width of each zone; the trash zone counts as one.
func (m Model) columnWidthFor(boardWidth int) int {
	zones := len(m.columns) + 1
	w := 28
	if boardWidth > 0 {
		usable := boardWidth - zones*zoneOverhead
		candidate := usable / zones
		if candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 18, 42)
}

// zoneSpan is the on-screen width of one column or the trash zone.
func (m Model) zoneSpan() int {
	return m.columnWidth() + zoneOverhead
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	// header + spacer, status, help border + help
	h := m.height - 2 - 1 - 2
	if h < 10 {
		return 10
	}
	return h
}

// boardTop is the first screen row of the column boxes: header + spacer.
func (m Model) boardTop() int {
	return 2
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay on base.
func overlayOnContent(base, overlay string, width, height int) string {
	return placeOnContent(base, overlay, width, height, lipgloss.Center, lipgloss.Center)
}

// placeOnContent composes overlay above base at the given alignment.
func placeOnContent(base, overlay string, width, height int, hPos, vPos lipgloss.Position) string {
	if strings.TrimSpace(overlay) == "" {
		return base
	}
	if width <= 0 || height <= 0 {
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	placed := lipgloss.Place(width, height, hPos, vPos, overlay)
	overlayLayer := lipgloss.NewLayer(placed).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
