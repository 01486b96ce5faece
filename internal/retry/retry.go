// Package retry implements a bounded retry policy with exponential
// backoff and jitter for transient network failures.
package retry

import (
	"context"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of tries, including the first
	DefaultMaxAttempts = 3

	baseDelay = 500 * time.Millisecond
	maxDelay  = 10 * time.Second
)

// Policy configures retry behavior. The zero value retries nothing;
// use Default for the standard policy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Default returns the standard bounded policy
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// attempt budget is exhausted, or ctx is done. retryable classifies
// errors; a nil retryable treats every error as terminal.
func (p Policy) Do(ctx context.Context, fn func() error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff(attempt - 1)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoff returns the delay before the next attempt: exponential
// growth from BaseDelay, capped at MaxDelay, with up to 50% jitter
// subtracted to avoid thundering herds.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay - jitter
}
