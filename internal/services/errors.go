package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool    = errors.New("external tool error")
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind is the user-facing class of a failure.
type Kind string

const (
	KindValidation     Kind = "invalid_media"
	KindToolMissing    Kind = "tool_missing"
	KindBackendTimeout Kind = "backend_timeout"
	KindBackend        Kind = "backend_failure"
	KindConfiguration  Kind = "configuration"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// FailureKind classifies err. Timeouts take precedence so a probe that ran out
// of time is reported as a timeout rather than as corrupt media.
func FailureKind(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindBackendTimeout
	case errors.Is(err, ErrToolUnavailable):
		return KindToolMissing
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrTransient):
		return KindBackend
	default:
		return KindInternal
	}
}

// Label is the short prefix shown to users ahead of the error detail.
func (k Kind) Label() string {
	switch k {
	case KindValidation:
		return "invalid media"
	case KindToolMissing:
		return "media tool missing"
	case KindBackendTimeout:
		return "backend timeout"
	case KindBackend:
		return "backend failure"
	case KindConfiguration:
		return "configuration error"
	case KindNotFound:
		return "not found"
	default:
		return "internal error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
