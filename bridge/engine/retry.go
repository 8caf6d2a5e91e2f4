package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
)

// RetryPolicy controls the bounded-retry-with-backoff executor.
// It is configuration, not mutable state.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	JitterMax   time.Duration
}

// DefaultRetryPolicy returns sensible defaults for upstream API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		JitterMax:   500 * time.Millisecond,
	}
}

// Do executes op under the policy. Retryable failures (rate limit, service
// unavailable, explicit Retry-After) sleep and retry; fatal failures stop
// immediately and propagate. After MaxAttempts retryable failures the last
// error is wrapped in ports.ErrRetriesExhausted.
//
// The executor knows nothing about the operation it wraps; classification
// lives on the error values (ports.UpstreamError).
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !ports.IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := p.delay(attempt, ports.RetryAfterHint(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ports.ErrRetriesExhausted, maxAttempts, lastErr)
}

// delay computes the sleep before the next attempt: the upstream's explicit
// hint when present, else base*2^(attempt-1) plus random jitter.
func (p RetryPolicy) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	delay := p.BaseDelay << (attempt - 1)
	if p.JitterMax > 0 {
		delay += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	return delay
}
