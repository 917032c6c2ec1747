package queue

import (
	"errors"
	"fmt"

	"vidsub/internal/services"
)

var (
	// ErrNotFound is returned for unknown task ids.
	ErrNotFound = fmt.Errorf("task %w", services.ErrNotFound)
	// ErrInvariant is returned when a mutation would leave a task inconsistent.
	ErrInvariant = errors.New("task invariant violated")
	// ErrConflict is returned when a concurrent writer changed the task between
	// read and write more times than the store is willing to retry.
	ErrConflict = errors.New("task update conflict")
)
