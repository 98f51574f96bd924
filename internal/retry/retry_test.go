package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/retry"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.NewSentinel("transient")
	errFatal     = errors.NewSentinel("fatal")
)

type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	return nil
}

func policy(clock *fakeClock) retry.Policy {
	return retry.Policy{
		MaxRetries: 3,
		Backoff:    retry.Linear(2 * time.Second),
		Retryable:  func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:      clock.Sleep,
		OnRetry:    nil,
	}
}

// failing fails with errs in order and then succeeds.
func failing(errs ...error) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= len(errs) {
			return "", errs[calls-1]
		}
		return "ok", nil
	}, &calls
}

func TestDo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		errs      []error
		want      string
		wantErr   error
		wantCalls int
		wantWaits []time.Duration
	}{
		{
			name:      "first attempt succeeds",
			want:      "ok",
			wantCalls: 1,
		},
		{
			name:      "recovers after two transient failures",
			errs:      []error{errTransient, errTransient},
			want:      "ok",
			wantCalls: 3,
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		{
			name:      "gives up after three retries",
			errs:      []error{errTransient, errTransient, errTransient, errTransient},
			wantErr:   errTransient,
			wantCalls: 4,
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second},
		},
		{
			name:      "fatal error is not retried",
			errs:      []error{errFatal},
			wantErr:   errFatal,
			wantCalls: 1,
		},
		{
			name:      "fatal after transient stops",
			errs:      []error{errTransient, errFatal},
			wantErr:   errFatal,
			wantCalls: 2,
			wantWaits: []time.Duration{2 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := &fakeClock{}
			op, calls := failing(tt.errs...)
			got, err := retry.Do(context.Background(), policy(clock), op)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
			require.Equal(t, tt.wantCalls, *calls)
			require.Equal(t, tt.wantWaits, clock.waits)
		})
	}
}

func TestDoStopsWhenContextIsDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := retry.Policy{
		MaxRetries: 3,
		Backoff:    retry.Linear(time.Hour),
		Retryable:  func(error) bool { return true },
		Sleep:      nil,
		OnRetry:    nil,
	}
	op, calls := failing(errTransient, errTransient)
	_, err := retry.Do(ctx, p, op)
	require.ErrorIs(t, err, errTransient)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, *calls)
}
