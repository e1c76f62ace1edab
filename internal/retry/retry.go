// Package retry provides the single retry policy used across the
// codebase: bounded attempts with capped exponential backoff and a
// retryable-error predicate. The Gmail client, the sender analyzer and
// the analyze command each instantiate it with their own parameters so
// the backoff math lives in one place.
package retry

import (
	"context"
	"time"
)

// Policy describes a retry schedule. The delay before attempt n (0-based
// retry count) is min(BaseDelay << n, MaxDelay). A nil Retryable retries
// every error.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Delay returns the backoff before the given retry (0-based).
func (p Policy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < retry; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn up to MaxAttempts times, sleeping the policy delay between
// attempts. It stops early on success, on a non-retryable error, or when
// the context is cancelled (returning the context error).
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := Sleep(ctx, p.Delay(attempt-1)); serr != nil {
				return serr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Sleep pauses for d, waking early with the context error on
// cancellation. A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
