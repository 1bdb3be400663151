package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Priorities returns the supported priorities in ascending order.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// ParsePriority normalizes raw input into a priority; blank input yields medium.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

type Task struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskInput struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
}

// TaskPatch carries optional replacements for a task's editable fields.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil
}

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}

	priority, err := ParsePriority(string(in.Priority))
	if err != nil {
		return Task{}, err
	}

	return Task{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails applies the non-nil patch fields. The task is left untouched on error.
func (t *Task) UpdateDetails(patch TaskPatch, now time.Time) error {
	title := t.Title
	description := t.Description
	priority := t.Priority
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrInvalidTitle
		}
	}
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		parsed, err := ParsePriority(string(*patch.Priority))
		if err != nil {
			return err
		}
		priority = parsed
	}
	t.Title = title
	t.Description = description
	t.Priority = priority
	t.UpdatedAt = now.UTC()
	return nil
}
