// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package retry provides the reusable backoff policy shared by the
// poller and the stream processor.
//
// A Policy is a value, not a stateful object: each Do call tracks its
// own attempt count, so concurrent callers can share one Policy.
// Transient errors are retried with exponentially growing, jittered
// waits; errors wrapped with Permanent abort immediately.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy defines bounded retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means no cap beyond
	// the overflow guard.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor per attempt.
	// Values below 1 are treated as 2.
	Multiplier float64

	// JitterFactor adds up to JitterFactor*delay of random jitter.
	// Zero disables jitter (deterministic delays, used in tests).
	JitterFactor float64
}

// DefaultPolicy returns the policy used by the poller: 3 attempts,
// 500ms base, doubling, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.2,
	}
}

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do aborts without further attempts.
// Use for validation failures: a malformed payload will not become
// well-formed by retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Delay returns the wait before retry number attempt (0-based), without
// jitter. It is monotone non-decreasing and capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	// Guard against overflow: past ~50 doublings the cap applies anyway.
	if attempt > 50 {
		return p.capped(time.Duration(math.MaxInt64))
	}

	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
	if d < 0 {
		d = time.Duration(math.MaxInt64)
	}
	return p.capped(d)
}

func (p Policy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// jittered returns Delay(attempt) plus up to JitterFactor of random spread.
func (p Policy) jittered(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.JitterFactor <= 0 {
		return d
	}
	jitter := time.Duration(rand.Float64() * p.JitterFactor * float64(d)) //nolint:gosec // not cryptographic
	return d + jitter
}

// Do runs op under the policy. op is attempted up to MaxAttempts times;
// between attempts Do waits Delay(attempt) plus jitter, honoring ctx
// cancellation. A Permanent error, a nil error, or exhausted attempts
// end the loop. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.jittered(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return lastErr
}
