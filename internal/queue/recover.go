package queue

import (
	"context"
	"errors"
	"fmt"
)

// InterruptedMessage is recorded on tasks found PROCESSING at startup.
const InterruptedMessage = "interrupted by server shutdown"

var errNotProcessing = errors.New("task no longer processing")

// FailStuckProcessing moves every PROCESSING task to FAILED with message,
// keeping the progress it had reached, and returns the ids it changed.
// It must run before the engine accepts work: any PROCESSING row at that
// point belongs to a run from a previous process.
func FailStuckProcessing(ctx context.Context, store Store, message string) ([]int64, error) {
	if message == "" {
		message = InterruptedMessage
	}
	stuck, err := store.List(ctx, StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("list processing tasks: %w", err)
	}
	var failed []int64
	for _, task := range stuck {
		_, err := store.Update(ctx, task.ID, func(t *Task) error {
			if t.Status != StatusProcessing {
				return errNotProcessing
			}
			t.SetFailed(message)
			return nil
		})
		switch {
		case err == nil:
			failed = append(failed, task.ID)
		case errors.Is(err, errNotProcessing), errors.Is(err, ErrNotFound):
		default:
			return failed, fmt.Errorf("fail task %d: %w", task.ID, err)
		}
	}
	return failed, nil
}
