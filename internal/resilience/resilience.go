// Package resilience provides the retry and timeout wrappers applied
// around unreliable external calls (feed fetches, classifier calls,
// delivery, image lookups).
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimedOut marks a call that exceeded its wall-clock bound.
var ErrTimedOut = errors.New("operation timed out")

// sleep is context-aware and swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy describes retry-with-backoff behavior. The delay before
// attempt n+1 is InitialDelay * BackoffFactor^(n-1); there is no jitter.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// WithRetry runs op until it succeeds or the policy's attempts are spent,
// then surfaces the last error. Only failures trigger a retry; a returned
// value ends the loop immediately.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.InitialDelay
	factor := policy.BackoffFactor
	if factor <= 0 {
		factor = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry interrupted: %w", err)
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// DoWithTimeout is WithTimeout for operations that return only an error.
func DoWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	_, err := WithTimeout(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// WithTimeout bounds a single blocking call. The operation receives a
// context cancelled at the deadline; it is also raced against the timer
// so a call that ignores cancellation still unblocks the caller. The
// result channel is buffered, letting the overrun operation finish and
// be discarded without leaking a goroutine.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		// A panic here would escape every recover on the caller's stack
		// and kill the process; surface it as an error instead.
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		value, err := op(ctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimedOut, d)
		}
		return zero, ctx.Err()
	}
}
