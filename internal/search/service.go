// Package search orchestrates a user search: grid cache first, then the quota
// gate, then the aggregation engine, then the caches and the hidden-names
// filter on the way out.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/aggregate"
	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/provider"
	"github.com/sells-group/placefinder/internal/usage"
)

// EmptyMessage is shown when a search returns no places.
const EmptyMessage = "No places found nearby. Try widening your search."

// DefaultAppendThreshold is the number of new places a load-more must yield
// for another load-more to be offered.
const DefaultAppendThreshold = 4

// Engine runs one aggregation.
type Engine interface {
	Run(ctx context.Context, req aggregate.Request) (*model.Result, error)
}

// TipsGenerator produces tips for a place.
type TipsGenerator interface {
	Generate(ctx context.Context, p model.Place) ([]string, error)
}

// Query is a user search.
type Query struct {
	Center     model.Coordinates `json:"center"`
	Query      string            `json:"query,omitempty" validate:"max=200"`
	RadiusKm   float64           `json:"radius_km,omitempty" validate:"gte=0,lte=100"`
	Categories []model.Category  `json:"categories,omitempty" validate:"dive,oneof=EAT DRINK EXPLORE"`
}

// Response is a search outcome.
type Response struct {
	*model.Result
	FromCache   bool   `json:"from_cache"`
	CanLoadMore bool   `json:"can_load_more"`
	Message     string `json:"message,omitempty"`
}

// Deps are the collaborators of a Service. TipGen and PhotoRes may be nil.
type Deps struct {
	Engine     Engine
	Grid       *cache.GridCache
	LastSearch *cache.LastSearchCache
	TipsCache  *cache.TipsCache
	Details    *cache.DetailsCache
	Hidden     *cache.HiddenNames
	Governor   *usage.Governor
	TipGen     TipsGenerator
	PhotoRes   map[string]provider.PhotoResolver
}

// Config tunes a Service.
type Config struct {
	AppendThreshold int
	RadiusKm        float64
}

// Service is the search entry point shared by the CLI and the HTTP server.
type Service struct {
	Deps
	cfg Config
}

// New creates a service.
func New(deps Deps, cfg Config) *Service {
	if cfg.AppendThreshold <= 0 {
		cfg.AppendThreshold = DefaultAppendThreshold
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = aggregate.DefaultRadiusKm
	}
	return &Service{Deps: deps, cfg: cfg}
}

func (s *Service) normalize(q Query) Query {
	if q.RadiusKm <= 0 {
		q.RadiusKm = s.cfg.RadiusKm
	}
	return q
}

func gridQuery(q Query) cache.GridQuery {
	return cache.GridQuery{Center: q.Center, Category: cache.CategoryKey(q.Categories), Query: q.Query}
}

// Search answers q from the grid cache when possible. A cache hit is free;
// a miss is charged against the monthly quota and runs the engine.
func (s *Service) Search(ctx context.Context, q Query) (*Response, error) {
	q = s.normalize(q)
	log := zap.L().With(zap.String("query", q.Query), zap.Any("categories", q.Categories))

	entry, hit, err := s.Grid.Lookup(ctx, gridQuery(q))
	if err != nil {
		log.Warn("search: grid cache lookup failed", zap.Error(err))
	}
	if hit {
		log.Info("search: grid cache hit", zap.String("grid_key", entry.GridKey), zap.Int("search_count", entry.SearchCount))
		res := &model.Result{City: entry.City, Places: entry.Places, RadiusKm: q.RadiusKm}
		return s.respond(ctx, res, true, len(entry.Places) > 0)
	}

	if err := s.gate(ctx); err != nil {
		return nil, err
	}

	res, err := s.Engine.Run(ctx, aggregate.Request{
		Center:     q.Center,
		Query:      q.Query,
		RadiusKm:   q.RadiusKm,
		Categories: q.Categories,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: run")
	}
	s.record(ctx)

	if len(res.Places) > 0 {
		if err := s.Grid.Store(ctx, gridQuery(q), res.City, res.Places); err != nil {
			log.Warn("search: grid cache store failed", zap.Error(err))
		}
		s.remember(ctx, q, res)
	}
	return s.respond(ctx, res, false, len(res.Places) > 0)
}

// LoadMore runs the engine again excluding every name already shown, and
// offers another load-more only when enough new places came back. The grid
// cache is not read, but the quota still applies.
func (s *Service) LoadMore(ctx context.Context, q Query, shown []string) (*Response, error) {
	q = s.normalize(q)
	if err := s.gate(ctx); err != nil {
		return nil, err
	}

	exclude := append([]string(nil), shown...)
	if s.Hidden != nil {
		hidden, err := s.Hidden.List(ctx)
		if err != nil {
			zap.L().Warn("search: read hidden names failed", zap.Error(err))
		}
		exclude = append(exclude, hidden...)
	}

	res, err := s.Engine.Run(ctx, aggregate.Request{
		Center:       q.Center,
		Query:        q.Query,
		RadiusKm:     q.RadiusKm,
		Categories:   q.Categories,
		ExcludeNames: exclude,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: load more")
	}
	s.record(ctx)

	seen := make(map[string]bool, len(shown))
	for _, n := range shown {
		seen[model.NormalizeName(n)] = true
	}
	fresh := make([]model.Place, 0, len(res.Places))
	for _, p := range res.Places {
		if !seen[model.NormalizeName(p.Name)] {
			fresh = append(fresh, p)
		}
	}
	res.Places = fresh
	return s.respond(ctx, res, false, len(fresh) >= s.cfg.AppendThreshold)
}

// Restore returns the last search if it is still fresh.
func (s *Service) Restore(ctx context.Context) (*Response, bool, error) {
	last, ok, err := s.LastSearch.Lookup(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	res := &model.Result{City: last.City, Places: last.Places, RadiusKm: last.RadiusKm}
	resp, err := s.respond(ctx, res, true, len(last.Places) > 0)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// LastQuery returns the query of the last search, for load-more after a
// restart.
func (s *Service) LastQuery(ctx context.Context) (*Query, bool, error) {
	last, ok, err := s.LastSearch.Lookup(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Query{Center: last.Center, Query: last.Query, RadiusKm: last.RadiusKm, Categories: last.Categories}, true, nil
}

func (s *Service) gate(ctx context.Context) error {
	exceeded, err := s.Governor.HasExceededQuota(ctx)
	if err != nil {
		return eris.Wrap(err, "search: check quota")
	}
	if exceeded {
		metrics.QuotaDenials.Inc()
		return usage.ErrQuotaExceeded
	}
	return nil
}

func (s *Service) record(ctx context.Context) {
	if err := s.Governor.RecordSearch(ctx); err != nil {
		zap.L().Warn("search: record usage failed", zap.Error(err))
	}
}

func (s *Service) remember(ctx context.Context, q Query, res *model.Result) {
	err := s.LastSearch.Store(ctx, cache.LastSearch{
		Places:     res.Places,
		City:       res.City,
		Center:     q.Center,
		Query:      q.Query,
		Categories: q.Categories,
		RadiusKm:   q.RadiusKm,
	})
	if err != nil {
		zap.L().Warn("search: last search store failed", zap.Error(err))
	}
}

// respond applies the hidden-names filter and the empty message.
func (s *Service) respond(ctx context.Context, res *model.Result, fromCache, canLoadMore bool) (*Response, error) {
	if s.Hidden != nil {
		places, err := s.Hidden.Filter(ctx, res.Places)
		if err != nil {
			return nil, eris.Wrap(err, "search: hidden filter")
		}
		res.Places = places
	}
	resp := &Response{Result: res, FromCache: fromCache, CanLoadMore: canLoadMore && len(res.Places) > 0}
	if len(res.Places) == 0 {
		resp.Message = EmptyMessage
	}
	return resp, nil
}
