package cache

import (
	"context"
	"time"

	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

type keyedEntry[T any] struct {
	ID        string    `json:"id"`
	Value     T         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// keyed is a TTL map persisted as one blob. Expired entries are swept on
// every write and ignored on read.
type keyed[T any] struct {
	blob
	opts options
}

func (c *keyed[T]) lookup(ctx context.Context, id string) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entries := map[string]keyedEntry[T]{}
	if _, err := c.load(ctx, &entries); err != nil {
		return zero, false, err
	}
	e, ok := entries[id]
	if !ok || expired(e.Timestamp, c.opts.ttl, c.opts.now()) {
		metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return zero, false, nil
	}
	metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return e.Value, true, nil
}

func (c *keyed[T]) store(ctx context.Context, id string, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := map[string]keyedEntry[T]{}
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
	entries[id] = keyedEntry[T]{ID: id, Value: v, Timestamp: now}
	return c.save(ctx, entries)
}

func (c *keyed[T]) size(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := map[string]keyedEntry[T]{}
	if _, err := c.load(ctx, &entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// DetailsCache caches resolved place details by provider id.
type DetailsCache struct {
	keyed[model.Details]
}

// NewDetailsCache creates the place-details cache on st.
func NewDetailsCache(st store.Store, opts ...Option) *DetailsCache {
	return &DetailsCache{keyed[model.Details]{
		blob: blob{st: st, key: KeyDetails, name: "details"},
		opts: buildOptions(DefaultDetailsTTL, opts),
	}}
}

// Lookup returns fresh details for placeID.
func (c *DetailsCache) Lookup(ctx context.Context, placeID string) (*model.Details, bool, error) {
	d, ok, err := c.lookup(ctx, placeID)
	if !ok || err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Store saves details under placeID.
func (c *DetailsCache) Store(ctx context.Context, placeID string, d *model.Details) error {
	if d == nil || placeID == "" {
		return nil
	}
	return c.store(ctx, placeID, *d)
}

// Len counts stored entries, including any not yet swept.
func (c *DetailsCache) Len(ctx context.Context) (int, error) { return c.size(ctx) }

// Clear removes all details.
func (c *DetailsCache) Clear(ctx context.Context) error { return c.clear(ctx) }

// TipsCache caches generated tips by normalized place name.
type TipsCache struct {
	keyed[[]string]
}

// NewTipsCache creates the tips cache on st.
func NewTipsCache(st store.Store, opts ...Option) *TipsCache {
	return &TipsCache{keyed[[]string]{
		blob: blob{st: st, key: KeyTips, name: "tips"},
		opts: buildOptions(DefaultTipsTTL, opts),
	}}
}

// Lookup returns cached tips for the place name.
func (c *TipsCache) Lookup(ctx context.Context, name string) ([]string, bool, error) {
	return c.lookup(ctx, model.NormalizeName(name))
}

// Store saves tips for the place name.
func (c *TipsCache) Store(ctx context.Context, name string, tips []string) error {
	return c.store(ctx, model.NormalizeName(name), tips)
}

// Len counts stored entries.
func (c *TipsCache) Len(ctx context.Context) (int, error) { return c.size(ctx) }

// Clear removes all tips.
func (c *TipsCache) Clear(ctx context.Context) error { return c.clear(ctx) }
