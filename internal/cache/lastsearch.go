package cache

import (
	"context"
	"time"

	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

// LastSearch is the single most recent result, kept to restore the view on a
// cold start without calling any provider.
type LastSearch struct {
	Places     []model.Place     `json:"places"`
	City       string            `json:"city"`
	Center     model.Coordinates `json:"center"`
	Query      string            `json:"query,omitempty"`
	Categories []model.Category  `json:"categories,omitempty"`
	RadiusKm   float64           `json:"radius_km,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// LastSearchCache is a single-slot cache.
type LastSearchCache struct {
	blob
	opts options
}

// NewLastSearchCache creates the last-search cache on st.
func NewLastSearchCache(st store.Store, opts ...Option) *LastSearchCache {
	return &LastSearchCache{
		blob: blob{st: st, key: KeyLastSearch, name: "last_search"},
		opts: buildOptions(DefaultLastSearchTTL, opts),
	}
}

// Store replaces the slot. The timestamp is set to now.
func (c *LastSearchCache) Store(ctx context.Context, s LastSearch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.Timestamp = c.opts.now()
	return c.save(ctx, s)
}

// Lookup returns the slot if it is younger than the TTL. An expired slot is
// cleared.
func (c *LastSearchCache) Lookup(ctx context.Context) (*LastSearch, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s LastSearch
	found, err := c.load(ctx, &s)
	if err != nil || !found {
		if err == nil {
			metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		}
		return nil, false, err
	}
	if expired(s.Timestamp, c.opts.ttl, c.opts.now()) {
		metrics.CacheLookups.WithLabelValues(c.name, "expired").Inc()
		return nil, false, c.st.Delete(ctx, c.key)
	}
	metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return &s, true, nil
}

// Clear empties the slot.
func (c *LastSearchCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}
