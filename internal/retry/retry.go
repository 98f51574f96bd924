package retry

import (
	"context"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
)

// Policy describes a bounded retry schedule.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff returns the wait before retry n, counted from 1.
	Backoff func(n int) time.Duration
	// Retryable decides whether err is worth another attempt. Nil retries nothing.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait. Optional.
	OnRetry func(n int, wait time.Duration, err error)
}

// Linear backs off step, 2*step, 3*step and so on.
func Linear(step time.Duration) func(int) time.Duration {
	return func(n int) time.Duration {
		return time.Duration(n) * step
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the retries are used up. The last error is
// returned as is so that callers can classify it.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return v, err
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt + 1)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			var zero T
			return zero, errors.Join(err, serr)
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "retry wait")
	case <-timer.C:
		return nil
	}
}
