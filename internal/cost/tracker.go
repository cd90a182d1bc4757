package cost

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Tracker accumulates the calls and tokens of one run. A nil *Tracker
// ignores everything, so adapters can record unconditionally.
type Tracker struct {
	calc *Calculator

	mu     sync.Mutex
	calls  map[string]int
	tokens map[string][2]int64
}

// NewTracker creates a tracker priced with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{
		calc:   calc,
		calls:  make(map[string]int),
		tokens: make(map[string][2]int64),
	}
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext returns the run's tracker, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// AddCall records one upstream call.
func (t *Tracker) AddCall(provider, operation string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[provider+"."+operation]++
}

// AddTokens records LLM token usage for model.
func (t *Tracker) AddTokens(model string, input, output int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.tokens[model]
	t.tokens[model] = [2]int64{cur[0] + input, cur[1] + output}
}

// Summary is a priced snapshot of a tracker.
type Summary struct {
	Calls        map[string]int
	InputTokens  int64
	OutputTokens int64
	USD          float64
}

// Summary prices everything recorded so far.
func (t *Tracker) Summary() Summary {
	s := Summary{Calls: map[string]int{}}
	if t == nil {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, n := range t.calls {
		s.Calls[key] = n
		if t.calc != nil {
			provider, op, _ := strings.Cut(key, ".")
			s.USD += float64(n) * t.calc.Call(provider, op)
		}
	}
	for model, tok := range t.tokens {
		s.InputTokens += tok[0]
		s.OutputTokens += tok[1]
		if t.calc != nil {
			s.USD += t.calc.Claude(model, tok[0], tok[1])
		}
	}
	return s
}

// Log writes the summary at info level.
func (t *Tracker) Log(phase string) {
	s := t.Summary()
	keys := make([]string, 0, len(s.Calls))
	for k := range s.Calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := []zap.Field{
		zap.String("phase", phase),
		zap.Int64("input_tokens", s.InputTokens),
		zap.Int64("output_tokens", s.OutputTokens),
		zap.Float64("estimated_cost_usd", s.USD),
	}
	for _, k := range keys {
		fields = append(fields, zap.Int("calls."+k, s.Calls[k]))
	}
	zap.L().Info("cost attribution", fields...)
}
