package api

import (
	"path/filepath"
	"time"

	"vidsub/internal/queue"
)

// FromTask converts a queue task into its transport representation.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}
	out := Task{
		ID:           task.ID,
		OriginalName: task.OriginalName,
		SizeBytes:    task.SizeBytes,
		Status:       string(task.Status),
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		SubtitlePath: task.SubtitlePath,
		OutputPath:   task.OutputPath,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    formatTime(task.CreatedAt),
		UpdatedAt:    formatTime(task.UpdatedAt),
	}
	if task.SourcePath != "" {
		out.FileName = filepath.Base(task.SourcePath)
	}
	return out
}

// FromTasks converts a task slice, preserving order.
func FromTasks(tasks []*queue.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task == nil {
			continue
		}
		out = append(out, FromTask(task))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
