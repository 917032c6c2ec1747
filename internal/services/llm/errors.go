package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"vidsub/internal/services"
)

// ErrMissingAPIKey is returned by every request when no key is configured.
var ErrMissingAPIKey = errors.New("llm: api key required")

// RequestError is the terminal failure of a completion call after retries.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return e.Op + ": unknown failure"
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the cause together with the services marker it maps to.
func (e *RequestError) Unwrap() []error {
	return []error{marker(e.Err), e.Err}
}

func marker(err error) error {
	switch {
	case err == nil:
		return services.ErrExternalTool
	case errors.Is(err, ErrMissingAPIKey):
		return services.ErrConfiguration
	case errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return services.ErrTimeout
	case isRetryable(err):
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

// statusError is a non-2xx reply.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (e *statusError) temporary() bool {
	switch {
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	default:
		return e.Code >= http.StatusInternalServerError
	}
}

// emptyContentError is a 2xx reply without any usable text.
type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRetryable(err error) bool {
	var empty *emptyContentError
	var status *statusError
	switch {
	case errors.As(err, &empty):
		return true
	case errors.As(err, &status):
		return status.temporary()
	default:
		return isNetTimeout(err)
	}
}
