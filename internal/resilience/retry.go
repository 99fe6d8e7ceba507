// Package resilience provides retry policies and transient-error
// classification for the archive and geocoding transports.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy controls retry pacing for a transport operation.
type Policy struct {
	// MaxAttempts is the total number of tries including the first.
	// Zero or negative means a single attempt.
	MaxAttempts int

	// BaseWait is the delay before the first retry; it doubles on each
	// subsequent attempt. Default 1s.
	BaseWait time.Duration

	// MaxWait caps the computed delay. Default 30s.
	MaxWait time.Duration

	// ShouldRetry overrides the default IsTransient check.
	ShouldRetry func(error) bool

	// OnRetry runs before each retry sleep with the 1-based attempt
	// number that just failed.
	OnRetry func(attempt int, err error)
}

// Backoff returns the delay before the retry following attempt
// (0-based): BaseWait doubled attempt times with jitter of up to a
// quarter either way, never above MaxWait.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseWait
	if base <= 0 {
		base = time.Second
	}
	limit := p.MaxWait
	if limit <= 0 {
		limit = 30 * time.Second
	}

	d := base
	for i := 0; i < attempt && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}

	d += time.Duration(rand.Int64N(int64(d)/2+1)) - d/4
	if d > limit {
		d = limit
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-retryable error, or
// exhausts the policy's attempts. Context cancellation stops retries
// immediately; the last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for operations that produce a value. On failure the zero
// value is returned alongside the last error.
func DoVal[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		t := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	return zero, lastErr
}
