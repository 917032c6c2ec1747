package workflow

import (
	"context"

	"vidsub/internal/notifications"
	"vidsub/internal/services"
)

// Transcriber converts a video into source-language text. Implementations
// extract the audio themselves.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
	Available(ctx context.Context) bool
	Status(ctx context.Context) services.BackendStatus
}

// Translator translates and segments transcripts.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
	// Segment returns text split into tokens joined by " / ".
	Segment(ctx context.Context, text string) (string, error)
	Available(ctx context.Context) bool
	Status(ctx context.Context) services.BackendStatus
}

// MediaValidator checks that a file is a usable video.
type MediaValidator interface {
	ValidateStructure(ctx context.Context, path string, requireVideoStream bool) error
}

// Notifier receives task completion and failure events.
type Notifier interface {
	Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error
}
