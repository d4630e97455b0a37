package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("target not found")
	ErrNoTarget        = errors.New("no target selected")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidTime     = errors.New("invalid time")
)

// LaunchError reports an OS-level spawn failure for Path.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
