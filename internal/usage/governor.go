// Package usage meters searches per anonymous device and enforces the monthly
// search quota.
package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

// StatsKey is the store key for usage counters.
const StatsKey = "usage:stats"

// DefaultMonthlyLimit is the number of uncached searches allowed per month.
const DefaultMonthlyLimit = 10

// ErrQuotaExceeded is returned when a new search would exceed the monthly quota.
var ErrQuotaExceeded = eris.New("usage: monthly search quota exceeded")

// Governor tracks searches and place views in a store.
type Governor struct {
	st    store.Store
	limit int
	now   func() time.Time
	mu    sync.Mutex
}

// NewGovernor creates a governor. A non-positive limit uses the default.
func NewGovernor(st store.Store, limit int) *Governor {
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	return &Governor{st: st, limit: limit, now: time.Now}
}

// WithNow sets the clock for testing.
func (g *Governor) WithNow(now func() time.Time) *Governor {
	g.now = now
	return g
}

// Limit returns the monthly search limit.
func (g *Governor) Limit() int { return g.limit }

// load reads the stats, assigning a device id on first use and zeroing the
// monthly counters when the month has rolled over. The second return reports
// whether anything changed and should be persisted.
func (g *Governor) load(ctx context.Context) (*model.UsageStats, bool, error) {
	var s model.UsageStats
	dirty := false

	data, err := g.st.Get(ctx, StatsKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		dirty = true
	case err != nil:
		return nil, false, eris.Wrap(err, "usage: load stats")
	default:
		if jerr := json.Unmarshal(data, &s); jerr != nil {
			zap.L().Warn("resetting corrupt usage stats", zap.Error(jerr))
			s = model.UsageStats{}
			dirty = true
		}
	}

	if s.DeviceID == "" {
		s.DeviceID = uuid.NewString()
		dirty = true
	}

	month := model.MonthKey(g.now())
	if s.CurrentMonth != month {
		if s.CurrentMonth != "" {
			zap.L().Info("usage month rollover",
				zap.String("from", s.CurrentMonth),
				zap.String("to", month),
				zap.Int("searches", s.SearchCount),
			)
		}
		s.CurrentMonth = month
		s.SearchCount = 0
		s.PlaceViewCount = 0
		dirty = true
	}
	return &s, dirty, nil
}

func (g *Governor) save(ctx context.Context, s *model.UsageStats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "usage: encode stats")
	}
	return eris.Wrap(g.st.Set(ctx, StatsKey, data), "usage: save stats")
}

// Stats returns the current counters after any month rollover.
func (g *Governor) Stats(ctx context.Context) (*model.UsageStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, dirty, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		if err := g.save(ctx, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// HasExceededQuota reports whether this month's searches have reached the limit.
func (g *Governor) HasExceededQuota(ctx context.Context) (bool, error) {
	s, err := g.Stats(ctx)
	if err != nil {
		return false, err
	}
	return s.SearchCount >= g.limit, nil
}

// Remaining returns how many searches are left this month.
func (g *Governor) Remaining(ctx context.Context) (int, error) {
	s, err := g.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return max(g.limit-s.SearchCount, 0), nil
}

// RecordSearch counts one uncached search.
func (g *Governor) RecordSearch(ctx context.Context) error {
	return g.update(ctx, func(s *model.UsageStats) {
		s.SearchCount++
		s.TotalSearchesAllTime++
		s.LastSearchAt = g.now().UTC()
	})
}

// RecordPlaceView counts one place detail view.
func (g *Governor) RecordPlaceView(ctx context.Context) error {
	return g.update(ctx, func(s *model.UsageStats) {
		s.PlaceViewCount++
		s.TotalPlaceViewsAllTime++
	})
}

func (g *Governor) update(ctx context.Context, fn func(*model.UsageStats)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, _, err := g.load(ctx)
	if err != nil {
		return err
	}
	fn(s)
	return g.save(ctx, s)
}
