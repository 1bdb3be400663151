package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/taskflow/internal/domain"
)

// ColumnSeed describes one configured column.
type ColumnSeed struct {
	ID   string
	Name string
}

// TaskSeed describes one card placed on the board at startup.
type TaskSeed struct {
	ID          string
	ColumnID    string
	Title       string
	Description string
	Priority    domain.Priority
}

// BuildBoard assembles the startup board. Seeds without an id get one from idGen.
func BuildBoard(columns []ColumnSeed, tasks []TaskSeed, idGen IDGenerator, now time.Time) (domain.Board, error) {
	cols := make([]domain.Column, 0, len(columns))
	index := make(map[string]int, len(columns))
	for _, seed := range columns {
		if strings.TrimSpace(seed.ID) == RemovalZoneID {
			return domain.Board{}, fmt.Errorf("column id %q is reserved: %w", RemovalZoneID, domain.ErrInvalidColumnID)
		}
		col, err := domain.NewColumn(seed.ID, seed.Name)
		if err != nil {
			return domain.Board{}, fmt.Errorf("column %q: %w", seed.ID, err)
		}
		if _, ok := index[col.ID]; ok {
			return domain.Board{}, fmt.Errorf("%w: %s", domain.ErrDuplicateColumnID, col.ID)
		}
		index[col.ID] = len(cols)
		cols = append(cols, col)
	}
	for i, seed := range tasks {
		pos, ok := index[strings.TrimSpace(seed.ColumnID)]
		if !ok {
			return domain.Board{}, fmt.Errorf("seed task %d column %q: %w", i, seed.ColumnID, domain.ErrUnknownColumn)
		}
		id := strings.TrimSpace(seed.ID)
		if id == "" && idGen != nil {
			id = idGen()
		}
		task, err := domain.NewTask(domain.TaskInput{
			ID:          id,
			Title:       seed.Title,
			Description: seed.Description,
			Priority:    seed.Priority,
		}, now)
		if err != nil {
			return domain.Board{}, fmt.Errorf("seed task %d: %w", i, err)
		}
		col, err := cols[pos].InsertAt(cols[pos].Len(), task)
		if err != nil {
			return domain.Board{}, fmt.Errorf("seed task %q: %w", task.ID, err)
		}
		cols[pos] = col
	}
	return domain.NewBoard(cols...)
}
