package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(3), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterRetry(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("temporary"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestDo_TerminatesAtMaxAttempts(t *testing.T) {
	for _, attempts := range []int{1, 2, 3, 5} {
		var calls int
		err := Do(context.Background(), fastPolicy(attempts), func(_ context.Context) error {
			calls++
			return NewTransientError(errors.New("always"), 500)
		})
		if err == nil {
			t.Fatalf("attempts=%d: expected error", attempts)
		}
		if calls != attempts {
			t.Errorf("attempts=%d: got %d calls", attempts, calls)
		}
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(3), func(_ context.Context) error {
		calls++
		return NewHTTPError("google", 403, []byte("denied"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	err := Do(ctx, p, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("temporary"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_AttemptTimeoutsEscalate(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:     3,
		AttemptTimeouts: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 200 * time.Millisecond},
		Backoff:         BackoffLinear,
		InitialBackoff:  time.Millisecond,
	}

	var deadlines []time.Duration
	err := Do(context.Background(), p, func(ctx context.Context) error {
		dl, ok := ctx.Deadline()
		if !ok {
			t.Fatal("attempt has no deadline")
		}
		deadlines = append(deadlines, time.Until(dl))
		if len(deadlines) < 3 {
			// Block until this attempt's own deadline fires.
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deadlines) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(deadlines))
	}
	if !(deadlines[0] < deadlines[1] && deadlines[1] < deadlines[2]) {
		t.Errorf("expected escalating deadlines, got %v", deadlines)
	}
}

func TestPolicy_LinearDelay(t *testing.T) {
	p := PhotoRetryPolicy().withDefaults()
	if got := p.delay(0); got != time.Second {
		t.Errorf("delay(0) = %v, want 1s", got)
	}
	if got := p.delay(1); got != 2*time.Second {
		t.Errorf("delay(1) = %v, want 2s", got)
	}
}

func TestPolicy_ExponentialDelayCapped(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}.withDefaults()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := p.delay(i); got != w {
			t.Errorf("delay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestPhotoRetryPolicy(t *testing.T) {
	p := PhotoRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	want := []time.Duration{5 * time.Second, 8 * time.Second, 12 * time.Second}
	for i, w := range want {
		if got := p.attemptTimeout(i); got != w {
			t.Errorf("attemptTimeout(%d) = %v, want %v", i, got, w)
		}
	}
	if got := p.attemptTimeout(7); got != 12*time.Second {
		t.Errorf("attemptTimeout past end = %v, want 12s", got)
	}
}

func TestDo_OnRetryCalled(t *testing.T) {
	var seen []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { seen = append(seen, attempt) }
	_ = Do(context.Background(), p, func(_ context.Context) error {
		return NewTransientError(errors.New("x"), 429)
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}
