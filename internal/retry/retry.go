// Package retry runs an operation again after transient failures, waiting
// InitialBackoff * 2^attempt between attempts. There is no jitter, so the schedule
// is fully determined by the attempt number.
package retry

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy describes how many times and how long to wait.
type Policy struct {
	MaxRetries     int           // retries after the first attempt, < 0 retries until ctx is done
	InitialBackoff time.Duration // wait before the first retry
	MaxBackoff     time.Duration // cap on a single wait, 0 = uncapped

	Sleep   Sleeper                                         // nil => SleepContext
	OnRetry func(attempt int, wait time.Duration, err error) // optional, called before each wait
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	wait := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		wait *= 2
		if p.MaxBackoff > 0 && wait >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		return p.MaxBackoff
	}
	return wait
}

// Do calls fn until it succeeds, fails with an error retryable rejects, or the
// retries are spent. The last error is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(attempt int) error) error {
	_, err := DoValue(ctx, p, retryable, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, retryable func(error) bool, fn func(attempt int) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 0; ; attempt++ {
		v, err := fn(attempt)
		if err == nil {
			return v, nil
		}
		if retryable != nil && !retryable(err) {
			return v, err
		}
		if p.MaxRetries >= 0 && attempt >= p.MaxRetries {
			return v, err
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			// ctx is done: surface the operation's error, not ctx.Err()
			return v, err
		}
	}
}
