package queue

import (
	"context"
	"time"
)

// MutateFunc edits a private copy of a task. Returning an error aborts the
// update and leaves the stored record untouched.
type MutateFunc func(*Task) error

// Store is the task registry contract.
type Store interface {
	// Create assigns the next id and timestamps, stores the task and returns a copy.
	Create(ctx context.Context, task Task) (*Task, error)
	// Get returns a copy of the task or ErrNotFound.
	Get(ctx context.Context, id int64) (*Task, error)
	// Update applies mutate atomically (compare-and-update) and returns the new copy.
	Update(ctx context.Context, id int64, mutate MutateFunc) (*Task, error)
	// List returns copies newest first, optionally filtered by status.
	List(ctx context.Context, statuses ...Status) ([]*Task, error)
	Close() error
}

// nextTimestamp keeps UpdatedAt strictly increasing for a record even when
// the wall clock does not advance between two mutations.
func nextTimestamp(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func statusFilter(statuses []Status) map[Status]struct{} {
	if len(statuses) == 0 {
		return nil
	}
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}
