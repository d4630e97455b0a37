package scheduler

import "github.com/google/uuid"

// NewID returns a random UUID used as a run identifier.
func NewID() string {
	return uuid.NewString()
}
