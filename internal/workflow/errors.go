package workflow

import (
	"errors"
	"fmt"
	"strings"

	"vidsub/internal/services"
)

var (
	// ErrAlreadyProcessing is returned by Run for a task that is mid-run.
	ErrAlreadyProcessing = errors.New("task is already processing")
	// ErrNotRunnable is returned by Run for tasks whose upload failed.
	ErrNotRunnable = errors.New("task cannot be processed")
	// ErrClosed is returned once the engine stopped accepting work.
	ErrClosed = errors.New("engine closed")
)

// StageError is the failure of one pipeline stage. Its message is what ends
// up in the task's error message.
type StageError struct {
	Stage string
	Kind  services.Kind
	Err   error
}

func newStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: services.FailureKind(err), Err: err}
}

func (e *StageError) Error() string {
	detail := "failed"
	if e.Err != nil {
		detail = strings.TrimSpace(e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind.Label(), detail)
}

func (e *StageError) Unwrap() error { return e.Err }

// failureMessage renders err with its kind label, the format stored in
// Task.ErrorMessage.
func failureMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Error()
	}
	return newStageError("", err).Error()
}

// panicError turns a recovered panic into an internal failure.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("unexpected panic: %v", e.value)
}
