package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/geo"
	"github.com/sells-group/placefinder/internal/model"
)

// CachedResolver puts the place-details cache in front of a resolver.
// Results are cached under the provider id, and by-name results also under
// a key scoped to the search cell so repeated suggestions skip the upstream.
type CachedResolver struct {
	inner DetailsResolver
	cache *cache.DetailsCache
}

// NewCachedResolver wraps inner with c.
func NewCachedResolver(inner DetailsResolver, c *cache.DetailsCache) *CachedResolver {
	return &CachedResolver{inner: inner, cache: c}
}

// Name returns the wrapped resolver's name.
func (r *CachedResolver) Name() string { return r.inner.Name() }

// ResolveByID implements DetailsResolver.
func (r *CachedResolver) ResolveByID(ctx context.Context, providerID string) (*model.Details, error) {
	if d, ok := r.lookup(ctx, providerID); ok {
		return d, nil
	}
	d, err := r.inner.ResolveByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, providerID, d)
	return d, nil
}

// ResolveByName implements DetailsResolver.
func (r *CachedResolver) ResolveByName(ctx context.Context, name string, center model.Coordinates, radiusMeters int) (*model.Details, error) {
	key := nameKey(name, center)
	if d, ok := r.lookup(ctx, key); ok {
		return d, nil
	}
	d, err := r.inner.ResolveByName(ctx, name, center, radiusMeters)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, d)
	if d.ProviderID != "" {
		r.store(ctx, d.ProviderID, d)
	}
	return d, nil
}

func nameKey(name string, center model.Coordinates) string {
	return "name:" + geo.GridKey(center, geo.DefaultGridPrecision, "") + ":" + model.NormalizeName(name)
}

// lookup treats cache failures as misses; the cache is an optimization.
func (r *CachedResolver) lookup(ctx context.Context, key string) (*model.Details, bool) {
	d, ok, err := r.cache.Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			zap.L().Warn("details cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return d, ok
}

func (r *CachedResolver) store(ctx context.Context, key string, d *model.Details) {
	if err := r.cache.Store(ctx, key, d); err != nil {
		zap.L().Warn("details cache store failed", zap.String("key", key), zap.Error(err))
	}
}
