package action

import (
	"context"
	"time"
)

// Backoff computes the delay before retry number attempt (1-based).
type Backoff func(attempt int, err error) time.Duration

// RetryPolicy controls Retryable.
type RetryPolicy[S any] struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is the fixed pause between attempts when Backoff is nil.
	Delay time.Duration

	// Backoff computes per-attempt delays; overrides Delay.
	Backoff Backoff

	// ShouldRetry decides whether a failure is retryable. Nil retries every
	// failure except context cancellation.
	ShouldRetry func(err error) bool

	// Fallback produces a state once retries are exhausted. Nil rethrows the
	// last failure.
	Fallback func(state S, err error) S
}

// Retryable retries t according to p. The retries run on their own goroutine
// so the result is always pending.
func Retryable[S any](t Transition[S], p RetryPolicy[S]) Transition[S] {
	return func(ctx context.Context, state S) Result[S] {
		return Pending(ctx, func(ctx context.Context) (S, error) {
			var lastErr error
			for attempt := 0; ; attempt++ {
				next, err := t(ctx, state).Await(ctx)
				if err == nil {
					return next, nil
				}
				lastErr = err

				if ctx.Err() != nil || attempt >= p.MaxRetries || !p.retryable(err) {
					break
				}
				if err := sleep(ctx, p.delay(attempt+1, err)); err != nil {
					break
				}
			}

			if p.Fallback != nil {
				return p.Fallback(state, lastErr), nil
			}
			var zero S
			return zero, lastErr
		})
	}
}

func (p RetryPolicy[S]) retryable(err error) bool {
	if p.ShouldRetry == nil {
		return true
	}
	return p.ShouldRetry(err)
}

func (p RetryPolicy[S]) delay(attempt int, err error) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt, err)
	}
	return p.Delay
}

// ConstantBackoff waits d before every retry.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int, error) time.Duration { return d }
}

// ExponentialBackoff waits initial, then multiplies by multiplier per retry,
// capped at max (no cap when max <= 0). A multiplier <= 0 defaults to 2.
func ExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) Backoff {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return func(attempt int, _ error) time.Duration {
		d := float64(initial)
		for i := 1; i < attempt; i++ {
			d *= multiplier
			if max > 0 && d >= float64(max) {
				return max
			}
		}
		if max > 0 && d > float64(max) {
			return max
		}
		return time.Duration(d)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
