package reliability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flakyOp struct {
	mu    sync.Mutex
	calls int
	fails int
	err   error
}

func (f *flakyOp) run(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return "", f.err
	}
	return "ok", nil
}

func (f *flakyOp) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	op := &flakyOp{fails: 2, err: errors.New("busy")}
	var delays []time.Duration
	policy := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	out, err := Do(context.Background(), policy, op.run)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out != "ok" {
		t.Fatalf("Do() = %q, want %q", out, "ok")
	}
	if op.Calls() != 3 {
		t.Fatalf("calls = %d, want 3", op.Calls())
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", delays)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	op := &flakyOp{fails: 10, err: errors.New("busy")}
	var delays []time.Duration
	policy := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	_, err := Do(context.Background(), policy, op.run)
	if err == nil {
		t.Fatalf("expected error after exhaustion")
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, op.err) {
		t.Fatalf("error = %v, want wrapped cause %v", err, op.err)
	}
	if op.Calls() != 3 {
		t.Fatalf("calls = %d, want 3", op.Calls())
	}
	// Only two backoff waits for three attempts.
	if len(delays) != 2 {
		t.Fatalf("delays = %v, want exactly 2 entries", delays)
	}
}

func TestDoShortCircuitsNonRetryable(t *testing.T) {
	fatal := errors.New("malformed input")
	op := &flakyOp{fails: 10, err: fatal}
	policy := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		Retryable:      func(err error) bool { return !errors.Is(err, fatal) },
	}

	_, err := Do(context.Background(), policy, op.run)
	if !errors.Is(err, fatal) {
		t.Fatalf("error = %v, want %v", err, fatal)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("non-retryable error must not be reported as exhaustion")
	}
	if op.Calls() != 1 {
		t.Fatalf("calls = %d, want 1", op.Calls())
	}
}

func TestDoCountsTimeoutAsFailedAttempt(t *testing.T) {
	calls := 0
	policy := Policy{
		MaxAttempts:       2,
		PerAttemptTimeout: 10 * time.Millisecond,
		InitialBackoff:    time.Millisecond,
	}

	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want wrapped deadline exceeded", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoStopsWhenParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("busy")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestExponentialBackoffSeries(t *testing.T) {
	base := time.Second
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := ExponentialBackoff(i+1, base); got != w {
			t.Fatalf("ExponentialBackoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = true, want false", code)
		}
	}
}
