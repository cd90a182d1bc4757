// Package cache implements the persisted grid, last-search, place-details,
// and tips caches plus the hidden-names set. Every cache stores one blob per
// key in a store.Store, and each write replaces that blob whole.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/store"
)

// Persistence keys.
const (
	KeyGrid       = "cache:grid"
	KeyLastSearch = "cache:lastSearch"
	KeyDetails    = "cache:placeDetails"
	KeyTips       = "cache:tips"
	KeyHidden     = "store:hiddenPlaceNames"
)

// Default lifetimes and limits.
const (
	DefaultGridTTL       = 6 * time.Hour
	DefaultGridCapacity  = 100
	DefaultLastSearchTTL = 24 * time.Hour
	DefaultDetailsTTL    = 24 * time.Hour
	DefaultTipsTTL       = 7 * 24 * time.Hour
)

// ErrCorrupt marks a stored blob that could not be decoded. Callers never see
// it: the blob is deleted and the lookup is reported as a miss.
var ErrCorrupt = eris.New("cache: corrupt blob")

// Option configures a cache.
type Option func(*options)

type options struct {
	now       func() time.Time
	ttl       time.Duration
	capacity  int
	precision int
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTTL overrides the entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithCapacity overrides the grid cache entry cap.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithPrecision overrides the grid cell rounding precision.
func WithPrecision(p int) Option {
	return func(o *options) {
		if p >= 0 {
			o.precision = p
		}
	}
}

func buildOptions(ttl time.Duration, opts []Option) options {
	o := options{now: time.Now, ttl: ttl, capacity: DefaultGridCapacity, precision: 2}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// blob is the shared load/save logic for one store key. mu serializes the
// read-modify-write cycle of the owning cache.
type blob struct {
	st   store.Store
	key  string
	name string
	mu   sync.Mutex
}

// load decodes the key into out. A missing key leaves out untouched and
// returns false. A corrupt blob is deleted and also returns false.
func (b *blob) load(ctx context.Context, out any) (bool, error) {
	data, err := b.st.Get(ctx, b.key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: load %s", b.key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		corrupt := eris.Wrapf(ErrCorrupt, "%s: %v", b.key, err)
		zap.L().Warn("clearing corrupt cache blob", zap.String("key", b.key), zap.Error(corrupt))
		metrics.CacheLookups.WithLabelValues(b.name, "corrupt").Inc()
		if derr := b.st.Delete(ctx, b.key); derr != nil {
			return false, eris.Wrapf(derr, "cache: clear corrupt %s", b.key)
		}
		return false, nil
	}
	return true, nil
}

func (b *blob) save(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", b.key)
	}
	return eris.Wrapf(b.st.Set(ctx, b.key, data), "cache: save %s", b.key)
}

func (b *blob) clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return eris.Wrapf(b.st.Delete(ctx, b.key), "cache: clear %s", b.key)
}

func expired(ts time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(ts) >= ttl
}
