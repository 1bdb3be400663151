package app

import (
	"context"

	"github.com/hylla/taskflow/internal/domain"
)

// ChangeSink receives one event per successful board mutation.
type ChangeSink interface {
	Record(context.Context, domain.ChangeEvent) error
}

// ChangeReader lists recorded change events, newest first.
type ChangeReader interface {
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
