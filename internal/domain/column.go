package domain

import (
	"slices"
	"strings"
)

// Column is one named, ordered card lane on the board.
type Column struct {
	ID    string
	Name  string
	Items []Task
}

// NewColumn constructs an empty column.
func NewColumn(id, name string) (Column, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Column{}, ErrInvalidColumnID
	}
	if name == "" {
		return Column{}, ErrInvalidName
	}
	return Column{ID: id, Name: name, Items: []Task{}}, nil
}

// Len returns the number of cards in the column.
func (c Column) Len() int {
	return len(c.Items)
}

// IndexOf returns the position of taskID, or -1.
func (c Column) IndexOf(taskID string) int {
	return slices.IndexFunc(c.Items, func(t Task) bool {
		return t.ID == taskID
	})
}

// At returns the task stored at index.
func (c Column) At(index int) (Task, bool) {
	if index < 0 || index >= len(c.Items) {
		return Task{}, false
	}
	return c.Items[index], true
}

// RemoveAt returns a copy of the column without the task at index, plus that task.
func (c Column) RemoveAt(index int) (Column, Task, error) {
	if index < 0 || index >= len(c.Items) {
		return c, Task{}, ErrInvalidPosition
	}
	removed := c.Items[index]
	out := c
	out.Items = make([]Task, 0, len(c.Items)-1)
	out.Items = append(out.Items, c.Items[:index]...)
	out.Items = append(out.Items, c.Items[index+1:]...)
	return out, removed, nil
}

// InsertAt returns a copy of the column with task inserted at index, clamped to [0, Len].
func (c Column) InsertAt(index int, task Task) (Column, error) {
	if strings.TrimSpace(task.ID) == "" {
		return c, ErrInvalidID
	}
	if c.IndexOf(task.ID) >= 0 {
		return c, ErrDuplicateTaskID
	}
	index = min(max(index, 0), len(c.Items))
	out := c
	out.Items = make([]Task, 0, len(c.Items)+1)
	out.Items = append(out.Items, c.Items[:index]...)
	out.Items = append(out.Items, task)
	out.Items = append(out.Items, c.Items[index:]...)
	return out, nil
}

// ReplaceAt returns a copy of the column with the task at index swapped for task.
func (c Column) ReplaceAt(index int, task Task) (Column, error) {
	if index < 0 || index >= len(c.Items) {
		return c, ErrInvalidPosition
	}
	if c.Items[index].ID != task.ID {
		return c, ErrInvalidID
	}
	out := c
	out.Items = slices.Clone(c.Items)
	out.Items[index] = task
	return out, nil
}

// Clone returns a deep copy of the item slice.
func (c Column) Clone() Column {
	out := c
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []Task{}
	}
	return out
}
