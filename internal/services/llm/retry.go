package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// backoff is the retry policy of a Client.
type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
	// sleep replaces the timer in tests; it cannot be interrupted.
	sleep func(time.Duration)
}

func (b backoff) maxAttempts() int {
	return max(b.attempts, 1)
}

func (b backoff) ceiling() time.Duration {
	if b.max > 0 {
		return b.max
	}
	return defaultRetryMaxDelay
}

// delay doubles from base for each earlier attempt and stops at the ceiling.
func (b backoff) delay(attempt int) time.Duration {
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 1; i < attempt && d < b.ceiling(); i++ {
		d *= 2
	}
	return min(d, b.ceiling())
}

// next decides whether a failed attempt is retried and after how long. A
// Retry-After hint from the server replaces the computed delay.
func (b backoff) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	switch {
	case attempt >= b.maxAttempts(), ctx.Err() != nil:
		return 0, false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 0, false
	case !isRetryable(err):
		return 0, false
	}
	var status *statusError
	if errors.As(err, &status) && status.RetryAfter > 0 {
		return min(status.RetryAfter, b.ceiling()), true
	}
	return b.delay(attempt), true
}

func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if b.sleep != nil {
		b.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}
