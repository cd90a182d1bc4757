package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/model"
)

// Tips returns tips for p, generating and caching them on first request.
// Each call counts as a place view.
func (s *Service) Tips(ctx context.Context, p model.Place) ([]string, error) {
	if err := s.Governor.RecordPlaceView(ctx); err != nil {
		zap.L().Warn("search: record place view failed", zap.Error(err))
	}

	key := model.NormalizeName(p.Name)
	if s.TipsCache != nil {
		tips, ok, err := s.TipsCache.Lookup(ctx, key)
		if err != nil {
			zap.L().Warn("search: tips cache lookup failed", zap.Error(err))
		}
		if ok {
			return tips, nil
		}
	}
	if s.TipGen == nil {
		return nil, eris.New("search: tips are not configured")
	}

	tips, err := s.TipGen.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.TipsCache != nil {
		if err := s.TipsCache.Store(ctx, key, tips); err != nil {
			zap.L().Warn("search: tips cache store failed", zap.Error(err))
		}
	}
	return tips, nil
}

// Photos fills p's images from its source's photo resolver up to
// model.MaxImages. A place whose source has no resolver is returned as is.
func (s *Service) Photos(ctx context.Context, p model.Place) (model.Place, error) {
	room := model.MaxImages - len(p.Images)
	res := s.PhotoRes[p.Source]
	if res == nil || p.ProviderID == "" || room <= 0 {
		return p, nil
	}
	urls, err := res.Fetch(ctx, p.ProviderID, room)
	if err != nil {
		return p, eris.Wrapf(err, "search: photos for %q", p.Name)
	}
	p.AppendImages(urls...)
	return p, nil
}

// CacheStats summarizes every cache.
type CacheStats struct {
	Grid    *cache.GridStats `json:"grid"`
	Details int              `json:"details"`
	Tips    int              `json:"tips"`
	Hidden  int              `json:"hidden"`
	Last    *time.Time       `json:"last_search,omitempty"`
}

// CacheStats reports sizes without modifying any cache.
func (s *Service) CacheStats(ctx context.Context) (*CacheStats, error) {
	grid, err := s.Grid.Stats(ctx)
	if err != nil {
		return nil, err
	}
	st := &CacheStats{Grid: grid}
	if s.Details != nil {
		if st.Details, err = s.Details.Len(ctx); err != nil {
			return nil, err
		}
	}
	if s.TipsCache != nil {
		if st.Tips, err = s.TipsCache.Len(ctx); err != nil {
			return nil, err
		}
	}
	if s.Hidden != nil {
		names, err := s.Hidden.List(ctx)
		if err != nil {
			return nil, err
		}
		st.Hidden = len(names)
	}
	if last, ok, err := s.LastSearch.Lookup(ctx); err == nil && ok {
		st.Last = &last.Timestamp
	}
	return st, nil
}

// ClearCaches empties the grid, last-search, details, and tips caches. Hidden
// names are user data and are kept.
func (s *Service) ClearCaches(ctx context.Context) error {
	clears := []func(context.Context) error{s.Grid.Clear, s.LastSearch.Clear}
	if s.Details != nil {
		clears = append(clears, s.Details.Clear)
	}
	if s.TipsCache != nil {
		clears = append(clears, s.TipsCache.Clear)
	}
	for _, fn := range clears {
		if err := fn(ctx); err != nil {
			return eris.Wrap(err, "search: clear caches")
		}
	}
	return nil
}
