package services

import "context"

type contextKey int

const (
	taskIDKey contextKey = iota
	stageKey
	requestIDKey
)

// withValue stores v under key unless v is the zero value.
func withValue[T comparable](ctx context.Context, key contextKey, v T) context.Context {
	var zero T
	if v == zero {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func value[T comparable](ctx context.Context, key contextKey) (T, bool) {
	var zero T
	v, ok := ctx.Value(key).(T)
	return v, ok && v != zero
}

// WithTaskID tags ctx with the task being processed. Zero is ignored.
func WithTaskID(ctx context.Context, id int64) context.Context {
	return withValue(ctx, taskIDKey, id)
}

// TaskIDFromContext returns the task id set by WithTaskID.
func TaskIDFromContext(ctx context.Context) (int64, bool) {
	return value[int64](ctx, taskIDKey)
}

// WithStage tags ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage set by WithStage.
func StageFromContext(ctx context.Context) (string, bool) {
	return value[string](ctx, stageKey)
}

// WithRequestID tags ctx with the HTTP correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return value[string](ctx, requestIDKey)
}
