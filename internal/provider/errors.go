package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/sells-group/placefinder/internal/resilience"
	"github.com/sells-group/placefinder/pkg/anthropic"
)

// Error is an upstream failure classified onto one of the sentinel errors.
// errors.Is matches both the sentinel and the underlying cause.
type Error struct {
	Provider string
	Op       string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	return e.Provider + " " + e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes the sentinel and the cause.
func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// classify maps a raw adapter error onto the sentinel taxonomy. Context
// errors pass through untouched so cancellation propagates as itself.
func classify(ctx context.Context, provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &Error{Provider: provider, Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	for _, k := range []error{ErrMisconfigured, ErrNotFound, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return ErrUnavailable
	}
	if he, ok := resilience.AsHTTPError(err); ok {
		return kindOfStatus(he.StatusCode)
	}
	if code, ok := anthropic.StatusCode(err); ok {
		return kindOfStatus(code)
	}
	return ErrUnavailable
}

func kindOfStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrMisconfigured
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUnavailable
	}
}

// IsFatal reports whether err should abort an aggregation run rather than
// count as zero candidates. An upstream timeout is not fatal; only the
// caller's own context ending is.
func IsFatal(err error) bool {
	if errors.Is(err, ErrMisconfigured) {
		return true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
