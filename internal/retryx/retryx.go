// Package retryx provides the bounded-retry policy used when dialing
// backing stores at startup: a fixed attempt count with exponential
// backoff and an overall time cap.
package retryx

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy describes a bounded reconnection policy.
//
// Attempts is the total number of tries (not retries), Base the delay
// before the second attempt (doubling afterwards), Cap the ceiling on
// time spent across all attempts.
type Policy struct {
	Attempts uint64
	Base     time.Duration
	Cap      time.Duration
}

// DefaultPolicy returns the startup policy: 3 attempts, 500ms base
// delay, 5s total cap.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 500 * time.Millisecond, Cap: 5 * time.Second}
}

// Do runs fn under the policy. fn is retried only when it returns an
// error marked with Retryable; any other error stops immediately.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(p.Base)
	if p.Attempts > 0 {
		b = retry.WithMaxRetries(p.Attempts-1, b)
	}
	if p.Cap > 0 {
		b = retry.WithMaxDuration(p.Cap, b)
	}
	return retry.Do(ctx, b, fn)
}

// Retryable marks err as eligible for another attempt.
func Retryable(err error) error {
	return retry.RetryableError(err)
}
