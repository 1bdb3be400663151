package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownZone  = errors.New("unknown drop zone")
	ErrNoActiveDrag = errors.New("no active drag")
)
