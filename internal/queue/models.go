package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusUploading    Status = "UPLOADING"
	StatusUploaded     Status = "UPLOADED"
	StatusUploadFailed Status = "UPLOAD_FAILED"
	StatusProcessing   Status = "PROCESSING"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
)

var allStatuses = []Status{
	StatusUploading,
	StatusUploaded,
	StatusUploadFailed,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus accepts a status name in any case.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q", value)
}

// IsFailure reports whether the status requires an error message.
func (s Status) IsFailure() bool {
	return s == StatusUploadFailed || s == StatusFailed
}

// Runnable reports whether a task in this status may be (re)started.
func (s Status) Runnable() bool {
	switch s {
	case StatusUploaded, StatusFailed, StatusCompleted:
		return true
	default:
		return false
	}
}

// Task is one unit of work.
type Task struct {
	ID           int64     `json:"id"`
	SourcePath   string    `json:"source_path"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	CurrentStep  string    `json:"current_step,omitempty"`
	SubtitlePath string    `json:"subtitle_path,omitempty"`
	OutputPath   string    `json:"output_path,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// Clone returns an independent copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// SetProgress records the active stage while processing.
func (t *Task) SetProgress(progress int, step string) {
	t.Status = StatusProcessing
	t.Progress = progress
	t.CurrentStep = step
}

// SetFailed marks the task failed, keeping the last reached progress.
func (t *Task) SetFailed(message string) {
	t.Status = StatusFailed
	t.ErrorMessage = strings.TrimSpace(message)
}

// SetCompleted marks the task done with its subtitle artifact.
func (t *Task) SetCompleted(subtitlePath string) {
	t.Status = StatusCompleted
	t.Progress = 100
	t.CurrentStep = "completed"
	t.SubtitlePath = subtitlePath
}

// Validate checks the record-level invariants every stored task must satisfy.
func (t *Task) Validate() error {
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("%w: progress %d outside 0-100", ErrInvariant, t.Progress)
	}
	if t.Status == StatusCompleted && (t.SubtitlePath == "" || t.Progress != 100) {
		return fmt.Errorf("%w: completed task requires subtitle path and progress 100", ErrInvariant)
	}
	if t.Status.IsFailure() && strings.TrimSpace(t.ErrorMessage) == "" {
		return fmt.Errorf("%w: %s task requires an error message", ErrInvariant, t.Status)
	}
	return nil
}
