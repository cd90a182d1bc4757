package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/placefinder/internal/classify"
	"github.com/sells-group/placefinder/internal/cost"
	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/provider"
)

// FallbackCity labels a result when no locality is known.
const FallbackCity = "Nearby"

// Request is one aggregation run.
type Request struct {
	Center       model.Coordinates
	Query        string
	RadiusKm     float64
	Categories   []model.Category
	ExcludeNames []string
	MinResults   int // zero picks the default for the categories
}

// Engine aggregates candidates from an ordered set of provider adapters.
type Engine struct {
	cfg        Config
	providers  provider.Set
	classifier *classify.Classifier
	chains     *classify.ChainFilter
	calc       *cost.Calculator
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates an engine. A nil classifier uses the embedded taxonomy and a
// nil chain filter disables chain checks.
func New(cfg Config, providers provider.Set, classifier *classify.Classifier, chains *classify.ChainFilter) *Engine {
	if classifier == nil {
		classifier = classify.Default()
	}
	return &Engine{
		cfg:        cfg.withDefaults(len(providers.Ranked) > 0),
		providers:  providers,
		classifier: classifier,
		chains:     chains,
		sleep:      sleepCtx,
	}
}

// WithCalculator prices the per-run cost log with calc.
func (e *Engine) WithCalculator(calc *cost.Calculator) *Engine {
	e.calc = calc
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run searches outward from req.Center until at least the minimum number of
// places qualify or the attempts run out, in which case the largest set seen
// is returned. Too few places is not an error; only a misconfigured provider
// or the caller's context ending is.
func (e *Engine) Run(ctx context.Context, req Request) (*model.Result, error) {
	if req.RadiusKm <= 0 {
		req.RadiusKm = DefaultRadiusKm
	}
	tracker := cost.FromContext(ctx)
	if tracker == nil {
		tracker = cost.NewTracker(e.calc)
		ctx = cost.WithTracker(ctx, tracker)
		defer tracker.Log("search")
	}

	log := zap.L().With(
		zap.Float64("lat", req.Center.Latitude),
		zap.Float64("lng", req.Center.Longitude),
		zap.String("query", req.Query),
	)
	minResults := e.cfg.minResults(req)

	var (
		best     []*entry
		bestKm   = req.RadiusKm
		cityHint string
		radiusKm = req.RadiusKm
		attempts int
	)
	for attempts = 1; attempts <= e.cfg.MaxAttempts; attempts++ {
		accepted, hint, err := e.attempt(ctx, req, radiusKm, cityHint)
		if err != nil {
			return nil, err
		}
		if hint != "" {
			cityHint = hint
		}
		log.Info("aggregate: attempt complete",
			zap.Int("attempt", attempts),
			zap.Float64("radius_km", radiusKm),
			zap.Int("accepted", len(accepted)),
			zap.Int("min_results", minResults),
		)
		if best == nil || len(accepted) > len(best) {
			best, bestKm = accepted, radiusKm
		}
		if len(accepted) >= minResults {
			break
		}
		if attempts < e.cfg.MaxAttempts {
			radiusKm *= e.cfg.Growth
		}
	}
	attempts = min(attempts, e.cfg.MaxAttempts)

	res := e.build(best, cityHint)
	res.Attempts = attempts
	res.RadiusKm = bestKm

	metrics.EngineAttempts.Observe(float64(attempts))
	metrics.EngineResults.Observe(float64(len(res.Places)))
	log.Info("aggregate: run complete",
		zap.Int("attempts", attempts),
		zap.Int("places", len(res.Places)),
		zap.String("city", res.City),
	)
	return res, nil
}

// attempt runs one discover, resolve, filter, and score pass at radiusKm.
func (e *Engine) attempt(ctx context.Context, req Request, radiusKm float64, cityHint string) ([]*entry, string, error) {
	found, hint, err := e.discover(ctx, req, radiusKm, cityHint)
	if err != nil {
		return nil, "", err
	}

	fs := newFilterState(req, radiusKm*e.cfg.DistanceFactor)
	accepted, err := e.admit(ctx, fs, found, radiusKm)
	if err != nil {
		return nil, "", err
	}

	if e.needsCommunity(req, accepted) {
		more, err := e.community(ctx, fs, req, radiusKm)
		if err != nil {
			return nil, "", err
		}
		accepted = append(accepted, more...)
	}

	rank(accepted, req.Categories, e.cfg.TieBand)
	return accepted, hint, nil
}

// discover queries every ranked adapter and the discovery adapter at once and
// merges their candidates in adapter order, ranked first.
func (e *Engine) discover(ctx context.Context, req Request, radiusKm float64, cityHint string) ([]*entry, string, error) {
	ranked := e.providers.Ranked
	batches := make([][]model.Candidate, len(ranked))
	var disc *provider.DiscoverResult

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range ranked {
		g.Go(func() error {
			cands, err := a.Search(gctx, provider.SearchRequest{
				Center:       req.Center,
				Query:        req.Query,
				RadiusMeters: int(radiusKm * 1000),
				Categories:   req.Categories,
				Limit:        e.cfg.SearchLimit,
			})
			if err != nil {
				return adapterFailure(a.Name(), err)
			}
			batches[i] = cands
			return nil
		})
	}
	if d := e.providers.Discovery; d != nil {
		g.Go(func() error {
			res, err := d.Discover(gctx, provider.DiscoverRequest{
				Center:       req.Center,
				Query:        req.Query,
				RadiusKm:     radiusKm,
				Categories:   req.Categories,
				Exclude:      req.ExcludeNames,
				MaxResults:   e.cfg.DiscoveryCount,
				LocalityHint: cityHint,
			})
			if err != nil {
				return adapterFailure(d.Name(), err)
			}
			disc = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	var out []*entry
	for _, cands := range batches {
		for _, c := range cands {
			out = append(out, &entry{c: c})
		}
	}
	var hint string
	if disc != nil {
		hint = disc.City
		for _, c := range disc.Candidates {
			out = append(out, &entry{c: c, discovered: true})
		}
	}
	return out, hint, nil
}

// adapterFailure returns err when it must abort the run and otherwise logs
// it and returns nil, so the adapter counts as zero candidates.
func adapterFailure(name string, err error) error {
	if provider.IsFatal(err) {
		return err
	}
	zap.L().Warn("aggregate: provider returned no candidates",
		zap.String("provider", name),
		zap.Error(err),
	)
	return nil
}

// admit screens, resolves, and validates candidates, returning the accepted
// ones in merge order. Only the first candidate per name is resolved; a later
// one with the same name is tried only if the first fails validation.
func (e *Engine) admit(ctx context.Context, fs *filterState, found []*entry, radiusKm float64) ([]*entry, error) {
	var (
		screened = make([]*entry, 0, len(found))
		pending  = make(map[string]bool, len(found))
		deferred []*entry
	)
	for _, en := range found {
		if reason, ok := e.screen(fs, en); !ok {
			reject(en, reason)
			continue
		}
		key := model.NormalizeName(en.c.Name)
		if pending[key] {
			deferred = append(deferred, en)
			continue
		}
		pending[key] = true
		screened = append(screened, en)
	}

	var accepted []*entry
	for len(screened) > 0 {
		if err := e.resolve(ctx, screened, fs.center, radiusKm); err != nil {
			return nil, err
		}
		for _, en := range screened {
			if reason, ok := e.validate(fs, en); !ok {
				reject(en, reason)
				continue
			}
			fs.accepted[model.NormalizeName(en.c.Name)] = true
			accepted = append(accepted, en)
		}

		// Next round: the first deferred candidate of each name not yet accepted.
		screened = screened[:0]
		clear(pending)
		rest := deferred[:0]
		for _, en := range deferred {
			key := model.NormalizeName(en.c.Name)
			switch {
			case fs.accepted[key]:
				reject(en, RejectDuplicate)
			case pending[key]:
				rest = append(rest, en)
			default:
				pending[key] = true
				screened = append(screened, en)
			}
		}
		deferred = rest
	}
	return accepted, nil
}

// resolve fills details for incomplete candidates in fixed-size batches.
// Batches run one after another with a pause between them; calls within a
// batch run concurrently.
func (e *Engine) resolve(ctx context.Context, entries []*entry, center model.Coordinates, radiusKm float64) error {
	details := e.providers.Details
	if details == nil {
		return nil
	}
	var pending []*entry
	for _, en := range entries {
		if !en.c.Complete() {
			pending = append(pending, en)
		}
	}

	radiusMeters := int(radiusKm * e.cfg.DistanceFactor * 1000)
	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		if start > 0 && e.cfg.BatchDelay > 0 {
			if err := e.sleep(ctx, e.cfg.BatchDelay); err != nil {
				return err
			}
		}
		batch := pending[start:min(start+e.cfg.BatchSize, len(pending))]

		g, gctx := errgroup.WithContext(ctx)
		for _, en := range batch {
			g.Go(func() error {
				var (
					d   *model.Details
					err error
				)
				if en.c.ProviderID != "" && en.c.Source == details.Name() {
					d, err = details.ResolveByID(gctx, en.c.ProviderID)
				} else {
					d, err = details.ResolveByName(gctx, en.c.Name, center, radiusMeters)
				}
				if err != nil {
					if provider.IsFatal(err) {
						return err
					}
					if !errors.Is(err, provider.ErrNotFound) {
						zap.L().Warn("aggregate: detail resolution failed",
							zap.String("name", en.c.Name),
							zap.Error(err),
						)
					}
					return nil
				}
				en.c.Apply(d)
				en.resolved = true
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// needsCommunity reports whether the EXPLORE fallback should run.
func (e *Engine) needsCommunity(req Request, accepted []*entry) bool {
	if e.providers.Community == nil || !model.CategoryExplore.In(req.Categories) {
		return false
	}
	explore := 0
	for _, en := range accepted {
		if en.category == model.CategoryExplore {
			explore++
		}
	}
	return explore < e.cfg.minResults(req)
}

// community queries open map data for sights and runs the results through
// the same filters. Names already accepted this attempt are duplicates.
func (e *Engine) community(ctx context.Context, fs *filterState, req Request, radiusKm float64) ([]*entry, error) {
	cp := e.providers.Community
	cands, err := cp.Search(ctx, req.Center, int(radiusKm*1000), nil)
	if err != nil {
		return nil, adapterFailure(cp.Name(), err)
	}
	found := make([]*entry, len(cands))
	for i, c := range cands {
		found[i] = &entry{c: c}
	}
	return e.admit(ctx, fs, found, radiusKm)
}

// build converts the best entries into a result, capping its size and
// assigning ids that are unique within it.
func (e *Engine) build(best []*entry, cityHint string) *model.Result {
	if len(best) > e.cfg.ResultCap {
		best = best[:e.cfg.ResultCap]
	}
	res := &model.Result{Places: make([]model.Place, 0, len(best))}
	used := make(map[string]bool, len(best))
	for i, en := range best {
		id := en.c.ProviderID
		if id == "" || used[id] {
			id = fmt.Sprintf("%s-%d", en.c.Source, i)
		}
		used[id] = true
		p := en.c.ToPlace(id, en.category)
		p.Popularity = en.popularity
		p.IsChain = en.chain
		res.Places = append(res.Places, p)
	}
	res.City = cityLabel(res.Places, cityHint)
	return res
}

// cityLabel picks the most common locality, first seen winning ties, then
// the discovery hint, then FallbackCity.
func cityLabel(places []model.Place, hint string) string {
	counts := make(map[string]int)
	var order []string
	for _, p := range places {
		l := strings.TrimSpace(p.Locality)
		if l == "" {
			continue
		}
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	label := ""
	for _, l := range order {
		if label == "" || counts[l] > counts[label] {
			label = l
		}
	}
	if label == "" {
		label = strings.TrimSpace(hint)
	}
	if label == "" {
		return FallbackCity
	}
	if label == strings.ToLower(label) {
		label = cases.Title(language.Und).String(label)
	}
	return label
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
