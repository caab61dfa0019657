package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// RateLimitedError reports that the match data provider returned 429.
// RetryAfter carries the provider-requested wait, zero when the header was
// absent. The client never retries these locally; the task queue re-schedules
// the whole attempt instead.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
	}
	return "provider rate limited"
}

// UpstreamError reports a provider-side failure that survived the client's
// local retries.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider failure status=%d", e.Status)
	}
	return fmt.Sprintf("provider failure status=%d body=%s", e.Status, e.Body)
}
