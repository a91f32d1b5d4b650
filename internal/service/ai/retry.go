package ai

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy is the single retry authority for generation calls: every
// call site wraps its provider invocation with Do using the same policy.
type BackoffPolicy struct {
	Attempts int
	Base     time.Duration
	// Jitter scales a uniformly random addition of [0, Jitter*delay).
	Jitter float64
}

// DefaultBackoff matches the provider's observed rate-limit behavior.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Attempts: 3, Base: time.Second, Jitter: 0.5}
}

// Do runs fn, retrying on failures the retryable predicate accepts. The
// delay doubles per attempt with randomized jitter. The last error is
// returned classified once attempts are exhausted.
func (p BackoffPolicy) Do(ctx context.Context, retryable func(error) bool, fn func(context.Context) (string, error)) (string, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.Base
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := delay
			if p.Jitter > 0 {
				wait += time.Duration(rand.Float64() * p.Jitter * float64(delay))
			}
			select {
			case <-ctx.Done():
				return "", Classify(ctx.Err())
			case <-time.After(wait):
			}
			delay *= 2
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = Classify(err)
		if !retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}
