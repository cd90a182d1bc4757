package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/geo"
	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

// GridEntry is one cached aggregation result for a grid cell.
type GridEntry struct {
	GridKey     string         `json:"grid_key"`
	Places      []model.Place  `json:"places"`
	City        string         `json:"city,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	SearchCount int            `json:"search_count"`
	Category    model.Category `json:"category,omitempty"`
	Query       string         `json:"query,omitempty"`
}

// GridQuery identifies a cell lookup.
type GridQuery struct {
	Center   model.Coordinates
	Category model.Category // empty means all categories
	Query    string
}

// GridCache caches results by rounded coordinate and category. Entries expire
// a fixed time after their last write or hit, and the cache keeps only the
// most-searched entries once it exceeds its capacity.
type GridCache struct {
	blob
	opts options
}

// NewGridCache creates a grid cache on st.
func NewGridCache(st store.Store, opts ...Option) *GridCache {
	return &GridCache{
		blob: blob{st: st, key: KeyGrid, name: "grid"},
		opts: buildOptions(DefaultGridTTL, opts),
	}
}

// CategoryKey folds a category filter into the single category used in grid
// keys: empty for no filter or all categories, otherwise the sorted names
// joined with "+".
func CategoryKey(cats []model.Category) model.Category {
	set := make(map[model.Category]bool)
	for _, c := range cats {
		if c.Valid() {
			set[c] = true
		}
	}
	if len(set) == 0 || len(set) == len(model.Categories) {
		return ""
	}
	names := make([]string, 0, len(set))
	for c := range set {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return model.Category(strings.Join(names, "+"))
}

// queriesCompatible reports whether a cached query can answer a requested
// one. A query only conflicts with a different non-empty query.
func queriesCompatible(cached, requested string) bool {
	a, b := normalizeQuery(cached), normalizeQuery(requested)
	return a == "" || b == "" || a == b
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func (c *GridCache) keyFor(q GridQuery) string {
	return geo.GridKey(q.Center, c.opts.precision, q.Category)
}

// Lookup returns the entry for q's cell when it is fresh, its category equals
// q.Category exactly, and its query equals q.Query. A hit refreshes the
// entry's timestamp and bumps its search count.
func (c *GridCache) Lookup(ctx context.Context, q GridQuery) (*GridEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := map[string]GridEntry{}
	if _, err := c.load(ctx, &entries); err != nil {
		return nil, false, err
	}

	key := c.keyFor(q)
	e, ok := entries[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return nil, false, nil
	}

	now := c.opts.now()
	if expired(e.Timestamp, c.opts.ttl, now) {
		delete(entries, key)
		metrics.CacheLookups.WithLabelValues(c.name, "expired").Inc()
		zap.L().Debug("grid cache entry expired", zap.String("grid_key", key))
		return nil, false, c.save(ctx, entries)
	}

	if e.Category != q.Category || !queriesCompatible(e.Query, q.Query) {
		metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return nil, false, nil
	}

	e.SearchCount++
	e.Timestamp = now
	entries[key] = e
	if err := c.save(ctx, entries); err != nil {
		return nil, false, err
	}
	metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()

	out := e
	out.Places = append([]model.Place(nil), e.Places...)
	return &out, true, nil
}

// Store writes places for q's cell, replacing any previous entry and carrying
// its search count forward plus one. Expired entries are dropped, then the
// cache is trimmed to its capacity by descending search count.
func (c *GridCache) Store(ctx context.Context, q GridQuery, city string, places []model.Place) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := map[string]GridEntry{}
	if _, err := c.load(ctx, &entries); err != nil {
		return err
	}

	now := c.opts.now()
	for k, e := range entries {
		if expired(e.Timestamp, c.opts.ttl, now) {
			delete(entries, k)
			metrics.CacheEvictions.WithLabelValues(c.name, "expired").Inc()
		}
	}

	key := c.keyFor(q)
	count := 1
	if prev, ok := entries[key]; ok {
		count = prev.SearchCount + 1
	}
	entries[key] = GridEntry{
		GridKey:     key,
		Places:      append([]model.Place(nil), places...),
		City:        city,
		Timestamp:   now,
		SearchCount: count,
		Category:    q.Category,
		Query:       strings.TrimSpace(q.Query),
	}

	c.evict(entries)
	return c.save(ctx, entries)
}

// evict keeps the capacity entries with the highest search count. Ties keep
// the most recently written entry.
func (c *GridCache) evict(entries map[string]GridEntry) {
	if len(entries) <= c.opts.capacity {
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := entries[keys[i]], entries[keys[j]]
		if a.SearchCount != b.SearchCount {
			return a.SearchCount > b.SearchCount
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys[c.opts.capacity:] {
		delete(entries, k)
		metrics.CacheEvictions.WithLabelValues(c.name, "capacity").Inc()
	}
}

// GridStats summarizes the grid cache.
type GridStats struct {
	Entries       int                    `json:"entries"`
	Expired       int                    `json:"expired"`
	TotalSearches int                    `json:"total_searches"`
	ByCategory    map[model.Category]int `json:"by_category"`
	Oldest        time.Time              `json:"oldest,omitempty"`
	Newest        time.Time              `json:"newest,omitempty"`
}

// Stats reports entry counts without modifying the cache.
func (c *GridCache) Stats(ctx context.Context) (*GridStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := map[string]GridEntry{}
	if _, err := c.load(ctx, &entries); err != nil {
		return nil, err
	}
	now := c.opts.now()
	s := &GridStats{ByCategory: make(map[model.Category]int)}
	for _, e := range entries {
		s.Entries++
		s.TotalSearches += e.SearchCount
		cat := e.Category
		if cat == "" {
			cat = geo.AllCategories
		}
		s.ByCategory[cat]++
		if expired(e.Timestamp, c.opts.ttl, now) {
			s.Expired++
		}
		if s.Oldest.IsZero() || e.Timestamp.Before(s.Oldest) {
			s.Oldest = e.Timestamp
		}
		if e.Timestamp.After(s.Newest) {
			s.Newest = e.Timestamp
		}
	}
	return s, nil
}

// Clear removes every grid entry.
func (c *GridCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}
