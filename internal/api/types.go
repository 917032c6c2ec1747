package api

import (
	"vidsub/internal/deps"
	"vidsub/internal/services"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a task in a transport-friendly format.
type Task struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"originalName"`
	FileName     string `json:"fileName"`
	SizeBytes    int64  `json:"sizeBytes"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStep  string `json:"currentStep,omitempty"`
	SubtitlePath string `json:"subtitlePath,omitempty"`
	OutputPath   string `json:"outputPath,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// TaskListResponse wraps a collection of tasks, newest first.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// SubtitleResponse carries the SRT text of a task.
type SubtitleResponse struct {
	TaskID  int64  `json:"taskId"`
	Content string `json:"content"`
}

// SubtitleUpdateRequest is the JSON body accepted when replacing a subtitle.
type SubtitleUpdateRequest struct {
	Content string `json:"content"`
}

// DirectoryStatus reports whether a configured directory is usable.
type DirectoryStatus struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ToolsResponse aggregates media tool, backend and directory readiness.
type ToolsResponse struct {
	Tools       deps.ToolStatus          `json:"tools"`
	Backends    []services.BackendStatus `json:"backends"`
	Directories []DirectoryStatus        `json:"directories,omitempty"`
}

// ErrorResponse is returned for every non-2xx reply. Task is set when the
// request still produced a record, as for rejected uploads.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	RequestID   string   `json:"requestId,omitempty"`
	Task        *Task    `json:"task,omitempty"`
}
