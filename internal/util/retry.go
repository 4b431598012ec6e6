package util

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff builds the delay policy of a single retry loop.
type Backoff func() backoff.BackOff

// ExponentialBackoff waits base before the first retry, doubles the delay on
// every further attempt and caps it at max. Delays are jittered.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.MaxInterval = max
		b.Multiplier = 2
		return b
	}
}

// RetryWithBackoff calls fn up to maxTries times until it returns a nil error,
// or until ctx is done, waiting between attempts as newBackoff says. A nil
// newBackoff retries immediately. If maxTries <= 0, it defaults to 1.
// Cancellation errors returned by fn are not retried.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, newBackoff Backoff, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if newBackoff != nil {
		policy = newBackoff()
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		result, err := fn(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, backoff.Permanent(err)
		}
		return result, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxTries)),
		backoff.WithMaxElapsedTime(0),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return result, err
}
