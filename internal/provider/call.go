package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/cost"
	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/resilience"
)

// Source names stamped on candidates.
const (
	SourceGoogle     = "google"
	SourceFoursquare = "foursquare"
	SourceLLM        = "llm"
	SourceOSM        = "osm"
)

// AdapterOption configures an adapter.
type AdapterOption func(*adapterBase)

// WithBreaker guards the adapter's upstream calls with cb.
func WithBreaker(cb *resilience.CircuitBreaker) AdapterOption {
	return func(a *adapterBase) { a.breaker = cb }
}

// adapterBase is embedded by every upstream adapter.
type adapterBase struct {
	name    string
	breaker *resilience.CircuitBreaker
}

func newBase(name string, opts []AdapterOption) adapterBase {
	a := adapterBase{name: name}
	for _, o := range opts {
		o(&a)
	}
	return a
}

// Name returns the upstream name.
func (a *adapterBase) Name() string { return a.name }

// call runs fn through the adapter's breaker, records metrics and cost, and
// classifies any error onto the sentinel taxonomy.
func call[T any](ctx context.Context, a *adapterBase, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	var (
		v   T
		err error
	)
	if a.breaker != nil {
		v, err = resilience.Guard(ctx, a.breaker, fn)
	} else {
		v, err = fn(ctx)
	}
	metrics.ObserveProviderCall(a.name, op, start, err)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		cost.FromContext(ctx).AddCall(a.name, op)
	}

	if err != nil {
		var zero T
		cerr := classify(ctx, a.name, op, err)
		zap.L().Debug("provider call failed",
			zap.String("provider", a.name),
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return zero, cerr
	}
	return v, nil
}
