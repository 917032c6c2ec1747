package ffprobe

import (
	"fmt"

	"vidsub/internal/services"
)

// ProbeErrorKind distinguishes probe failures.
type ProbeErrorKind int

const (
	KindToolFailure ProbeErrorKind = iota
	KindNoAudioStream
)

// ProbeError reports a failed inspection. Detail holds raw ffprobe output for
// KindToolFailure.
type ProbeError struct {
	Kind   ProbeErrorKind
	Detail string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Kind == KindNoAudioStream {
		return "media has no audio stream"
	}
	msg := "ffprobe failed: " + e.Diagnosis().Message()
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

// Diagnosis classifies the raw detail text.
func (e *ProbeError) Diagnosis() Diagnosis { return Classify(e.Detail) }

func (e *ProbeError) Unwrap() []error {
	marker := services.ErrExternalTool
	if e.Kind == KindNoAudioStream {
		marker = services.ErrValidation
	}
	if e.Err != nil {
		return []error{marker, e.Err}
	}
	return []error{marker}
}

// ValidationError reports an upload that is not a usable video.
type ValidationError struct {
	Path   string
	Reason string
	// Category is set when the failure came from ffprobe diagnostics.
	Category Category
	Err      error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrValidation, e.Err}
	}
	return []error{services.ErrValidation}
}
