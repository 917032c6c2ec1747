package logging

import (
	"context"
	"log/slog"

	"vidsub/internal/services"
)

// Keys shared by every handler and component.
const (
	FieldComponent     = "component"
	FieldTaskID        = "task_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id" // HTTP request id

	// FieldEventType tags lines for filtering: stage_start, stage_failed, ...
	FieldEventType = "event_type"
	// FieldErrorHint is the operator's next step; FieldImpact is what the
	// user loses. Warnings and errors carry both.
	FieldErrorHint   = "error_hint"
	FieldImpact      = "impact"
	FieldFailureKind = "failure_kind"
)

// ContextFields returns the task id, stage and request id stored in ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id, ok := services.TaskIDFromContext(ctx); ok {
		attrs = append(attrs, slog.Int64(FieldTaskID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldStage, stage))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldCorrelationID, id))
	}
	return attrs
}

// WithContext stamps logger with ContextFields(ctx). A nil logger discards.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if attrs := ContextFields(ctx); len(attrs) > 0 {
		return logger.With(Args(attrs...)...)
	}
	return logger
}
