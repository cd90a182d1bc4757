package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff selects how the delay between attempts grows.
type Backoff int

const (
	// BackoffExponential multiplies the delay by Multiplier after each attempt.
	BackoffExponential Backoff = iota
	// BackoffLinear adds InitialBackoff after each attempt.
	BackoffLinear
)

// RetryPolicy is an immutable description of how to retry one operation.
// Policies carry no counters, so one value can be shared across calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// AttemptTimeouts sets a per-attempt deadline. Attempt i uses
	// AttemptTimeouts[min(i, len-1)]. Empty means no per-attempt deadline.
	AttemptTimeouts []time.Duration

	Backoff        Backoff
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction adds ±fraction of the computed delay.
	JitterFraction float64

	// ShouldRetry overrides the default IsTransient check.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy returns an exponential policy suitable for API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Backoff:        BackoffExponential,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// PhotoRetryPolicy is used for individual photo fetches: two retries with
// escalating 5s/8s/12s attempt timeouts and a linear 1s backoff.
func PhotoRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		AttemptTimeouts: []time.Duration{5 * time.Second, 8 * time.Second, 12 * time.Second},
		Backoff:         BackoffLinear,
		InitialBackoff:  time.Second,
		MaxBackoff:      10 * time.Second,
	}
}

// Do runs fn under policy p.
func Do(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are spent. Cancellation of ctx stops immediately. An
// attempt that hits its own deadline is retried while ctx is still live.
func DoVal[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := runAttempt(ctx, p.attemptTimeout(attempt), fn)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		attemptTimedOut := errors.Is(err, context.DeadlineExceeded)
		if !attemptTimedOut && !shouldRetry(err) {
			return zero, lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	return p
}

func (p RetryPolicy) attemptTimeout(attempt int) time.Duration {
	if len(p.AttemptTimeouts) == 0 {
		return 0
	}
	if attempt >= len(p.AttemptTimeouts) {
		attempt = len(p.AttemptTimeouts) - 1
	}
	return p.AttemptTimeouts[attempt]
}

// delay returns the sleep after the given zero-based attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	var d float64
	switch p.Backoff {
	case BackoffLinear:
		d = float64(p.InitialBackoff) * float64(attempt+1)
	default:
		d = float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	}
	d = math.Min(d, float64(p.MaxBackoff))

	if p.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * p.JitterFraction
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// RetryLogger returns an OnRetry callback that logs at warn level.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
