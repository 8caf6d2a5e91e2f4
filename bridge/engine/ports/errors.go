package ports

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRetriesExhausted is the terminal error after the retry executor has
// spent every allowed attempt on a retryable failure.
var ErrRetriesExhausted = errors.New("retries exhausted")

// UpstreamError describes a failed call to an upstream HTTP service. The
// status code drives the retryable/fatal classification; RetryAfter carries
// the upstream's explicit backoff hint when present.
type UpstreamError struct {
	StatusCode int
	RetryAfter time.Duration // zero when the upstream gave no hint
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: rate limiting or
// service unavailability. Everything else is fatal.
func (e *UpstreamError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	// A Retry-After hint marks the failure retryable regardless of code.
	return e.RetryAfter > 0
}

// IsRetryable classifies an arbitrary error for the retry executor.
// Timeouts surface as *UpstreamError with a 5xx-equivalent code by the
// adapters; anything that is not an UpstreamError is fatal.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return false
}

// RetryAfterHint extracts the upstream's explicit backoff hint, if any.
func RetryAfterHint(err error) time.Duration {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}
