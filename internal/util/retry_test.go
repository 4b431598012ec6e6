package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result, err := RetryWithBackoff(context.Background(), 3, nil, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 99, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result != 99 {
		t.Fatalf("expected 99, got %d", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_PersistentFailure(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 3, ExponentialBackoff(time.Millisecond, 2*time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("persistent")
	})
	if err == nil || err.Error() != "persistent" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_MaxTriesZeroOrNegative(t *testing.T) {
	for _, maxTries := range []int{0, -1} {
		calls := 0
		_, _ = RetryWithBackoff(context.Background(), maxTries, nil, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		if calls != 1 {
			t.Fatalf("maxTries=%d: expected 1 call, got %d", maxTries, calls)
		}
	}
}

func TestRetryWithBackoff_FunctionReturnsContextError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 5, nil, func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("context errors must not be retried, got %d calls", calls)
	}
}

func TestRetryWithBackoff_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := RetryWithBackoff(ctx, 3, ExponentialBackoff(time.Hour, time.Hour), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := RetryWithBackoff(ctx, 3, nil, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("expected no call and context.Canceled, got %d calls, %v", calls, err)
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100*time.Millisecond, time.Second)()

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := b.NextBackOff()
		if d <= 0 || d > 1500*time.Millisecond {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
		if attempt == 1 && (d < 50*time.Millisecond || d > 150*time.Millisecond) {
			t.Fatalf("first delay %v not around 100ms", d)
		}
		prev = d
	}
	if prev < 500*time.Millisecond {
		t.Fatalf("delay did not grow towards the cap: %v", prev)
	}
}
