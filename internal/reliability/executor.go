package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last failure after all attempts were consumed.
var ErrExhausted = errors.New("retries exhausted")

// Policy configures one executor run. Retryable may be nil, in which case
// every error is considered transient.
type Policy struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	InitialBackoff    time.Duration
	Retryable         func(error) bool

	// sleep is overridable in tests; nil means real sleeping.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op under the policy's per-attempt deadline, retrying transient
// failures with pure exponential backoff. A timed-out attempt counts as a
// failed attempt. Non-retryable errors short-circuit without consuming the
// remaining attempts; they are returned as-is so callers can errors.Is/As
// against the original cause.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := runAttempt(ctx, policy.PerAttemptTimeout, op)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// The parent being done is not a service failure; stop immediately.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if err := sleepFor(ctx, policy, ExponentialBackoff(attempt, policy.InitialBackoff)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepFor(ctx context.Context, policy Policy, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if policy.sleep != nil {
		return policy.sleep(ctx, d)
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
