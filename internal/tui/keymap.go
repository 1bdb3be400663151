package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	moveLeft    key.Binding
	moveRight   key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	addTask     key.Binding
	taskInfo    key.Binding
	editTask    key.Binding
	deleteTask  key.Binding
	grab        key.Binding
	copyTask    key.Binding
	activityLog key.Binding
	trash       key.Binding
	drop        key.Binding
	cancel      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		addTask:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		taskInfo:    key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "task info")),
		editTask:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		deleteTask:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		grab:        key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab task")),
		copyTask:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task")),
		activityLog: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "activity log")),
		trash:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "target trash")),
		drop:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// applyConfig overrides configurable bindings; blank values keep the defaults.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.grab, cfg.Grab, "space", "grab task")
	configureBinding(&k.trash, cfg.Trash, "t", "target trash")
	configureBinding(&k.copyTask, cfg.Copy, "y", "copy task")
	configureBinding(&k.activityLog, cfg.ActivityLog, "g", "activity log")
}

// configureBinding replaces the keys and help of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	if b == nil {
		return
	}
	keys, helpKey := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys converts one configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + strings.ToLower(value)}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.editTask, k.taskInfo, k.grab, k.deleteTask, k.activityLog, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.editTask, k.taskInfo, k.deleteTask, k.copyTask, k.activityLog, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.grab, k.trash, k.drop, k.cancel},
	}
}

// dragHelp lists the bindings active while a card is grabbed.
func (k keyMap) dragHelp() []key.Binding {
	return []key.Binding{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.trash, k.drop, k.cancel}
}
