package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/aggregate"
	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/classify"
	"github.com/sells-group/placefinder/internal/cost"
	"github.com/sells-group/placefinder/internal/provider"
	"github.com/sells-group/placefinder/internal/resilience"
	"github.com/sells-group/placefinder/internal/search"
	"github.com/sells-group/placefinder/internal/store"
	"github.com/sells-group/placefinder/internal/tips"
	"github.com/sells-group/placefinder/internal/usage"
	anthropicpkg "github.com/sells-group/placefinder/pkg/anthropic"
	"github.com/sells-group/placefinder/pkg/foursquare"
	"github.com/sells-group/placefinder/pkg/google"
	"github.com/sells-group/placefinder/pkg/overpass"
)

// appEnv holds the store, the caches, and the search service needed by the
// commands.
type appEnv struct {
	Store    store.Store
	Service  *search.Service
	Governor *usage.Governor
	Breakers *resilience.Breakers
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// clients are the upstream API clients built from the configured keys. A nil
// field means that upstream is not configured.
type clients struct {
	google     google.Client
	foursquare foursquare.Client
	overpass   overpass.Client
	anthropic  anthropicpkg.Client
}

func initClients() clients {
	var c clients
	if cfg.Google.Key != "" {
		opts := []google.Option{google.WithRateLimit(cfg.Google.RateLimit)}
		if cfg.Google.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.Google.BaseURL))
		}
		c.google = google.NewClient(cfg.Google.Key, opts...)
		zap.L().Debug("google places enabled")
	} else {
		zap.L().Debug("PLACEFINDER_GOOGLE_KEY not set, google places disabled")
	}
	if cfg.Foursquare.Key != "" {
		opts := []foursquare.Option{foursquare.WithRateLimit(cfg.Foursquare.RateLimit)}
		if cfg.Foursquare.BaseURL != "" {
			opts = append(opts, foursquare.WithBaseURL(cfg.Foursquare.BaseURL))
		}
		c.foursquare = foursquare.NewClient(cfg.Foursquare.Key, opts...)
		zap.L().Debug("foursquare places enabled")
	} else {
		zap.L().Debug("PLACEFINDER_FOURSQUARE_KEY not set, foursquare disabled")
	}
	if cfg.Overpass.Enabled {
		c.overpass = overpass.NewClient(
			overpass.WithBaseURL(cfg.Overpass.BaseURL),
			overpass.WithUserAgent(cfg.Overpass.UserAgent),
			overpass.WithRateLimit(cfg.Overpass.RateLimit),
		)
	}
	if cfg.Anthropic.Key != "" {
		var opts []anthropicpkg.Option
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		c.anthropic = anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)
	}
	return c
}

func (c clients) llmConfig() provider.LLMConfig {
	return provider.LLMConfig{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	}
}

// buildProviders assembles the adapter set from the configured clients. Every
// adapter shares the breaker of its upstream.
func buildProviders(c clients, br *resilience.Breakers, details *cache.DetailsCache) provider.Set {
	guard := func(name string) provider.AdapterOption { return provider.WithBreaker(br.Get(name)) }
	var set provider.Set

	for _, name := range cfg.Aggregation.Ranked {
		switch name {
		case provider.SourceGoogle:
			if c.google != nil {
				set.Ranked = append(set.Ranked, provider.NewGoogleSearch(c.google, guard(name)))
			}
		case provider.SourceFoursquare:
			if c.foursquare != nil {
				set.Ranked = append(set.Ranked, provider.NewFoursquareSearch(c.foursquare, guard(name)))
			}
		}
	}

	// Google details are preferred for verification; Foursquare stands in
	// when it is the only keyed provider.
	switch {
	case c.google != nil:
		set.Details = provider.NewCachedResolver(provider.NewGoogleDetails(c.google, guard(provider.SourceGoogle)), details)
	case c.foursquare != nil:
		set.Details = provider.NewCachedResolver(provider.NewFoursquareDetails(c.foursquare, guard(provider.SourceFoursquare)), details)
	}

	set.Photos = buildPhotos(c, br)

	if c.overpass != nil {
		set.Community = provider.NewOverpassPOI(c.overpass, guard(provider.SourceOSM))
	}
	if c.anthropic != nil && cfg.Anthropic.Discovery {
		set.Discovery = provider.NewLLMDiscovery(c.anthropic, c.llmConfig(), guard(provider.SourceLLM))
	}

	zap.L().Info("providers configured",
		zap.Int("ranked", len(set.Ranked)),
		zap.Bool("discovery", set.Discovery != nil),
		zap.Bool("community", set.Community != nil),
		zap.Bool("details", set.Details != nil),
		zap.Int("photos", len(set.Photos)),
	)
	return set
}

func buildPhotos(c clients, br *resilience.Breakers) map[string]provider.PhotoResolver {
	photos := make(map[string]provider.PhotoResolver)
	if c.google != nil {
		src := provider.NewGooglePhotos(c.google, cfg.Photos.MaxWidthPx, provider.WithBreaker(br.Get(provider.SourceGoogle)))
		photos[provider.SourceGoogle] = provider.NewPhotoFetcher(src)
	}
	if c.foursquare != nil {
		src := provider.NewFoursquarePhotos(c.foursquare, provider.WithBreaker(br.Get(provider.SourceFoursquare)))
		photos[provider.SourceFoursquare] = provider.NewPhotoFetcher(src)
	}
	return photos
}

// buildTips prefers Foursquare user tips and falls back to the LLM writer.
// It returns nil when neither is configured.
func buildTips(c clients, br *resilience.Breakers) search.TipsGenerator {
	sources := make(map[string]tips.Source)
	if c.foursquare != nil {
		sources[provider.SourceFoursquare] = provider.NewFoursquareTips(c.foursquare, provider.WithBreaker(br.Get(provider.SourceFoursquare)))
	}
	var writer tips.Writer
	if c.anthropic != nil {
		writer = provider.NewLLMTips(c.anthropic, c.llmConfig(), provider.WithBreaker(br.Get(provider.SourceLLM)))
	}
	if len(sources) == 0 && writer == nil {
		return nil
	}
	return tips.NewGenerator(sources, writer, tips.DefaultCount)
}

func engineConfig() (aggregate.Config, *classify.ChainFilter, error) {
	policy, err := classify.ParseChainPolicy(cfg.Aggregation.ChainPolicy)
	if err != nil {
		return aggregate.Config{}, nil, err
	}
	chains, err := classify.NewChainFilter(cfg.Aggregation.ExtraChains...)
	if err != nil {
		return aggregate.Config{}, nil, eris.Wrap(err, "load chain list")
	}

	ec := aggregate.DefaultConfig()
	ec.ChainPolicy = policy
	ec.MinResults = cfg.Aggregation.MinResults
	if cfg.Aggregation.MaxAttempts > 0 {
		ec.MaxAttempts = cfg.Aggregation.MaxAttempts
	}
	if cfg.Aggregation.BatchSize > 0 {
		ec.BatchSize = cfg.Aggregation.BatchSize
	}
	if cfg.Aggregation.BatchDelayMs >= 0 {
		ec.BatchDelay = time.Duration(cfg.Aggregation.BatchDelayMs) * time.Millisecond
	}
	if cfg.Aggregation.DiscoveryCount > 0 {
		ec.DiscoveryCount = cfg.Aggregation.DiscoveryCount
	}
	return ec, chains, nil
}

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }

// initEnv validates the config for mode, opens the store, and builds the
// search service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	grid := cache.NewGridCache(st,
		cache.WithTTL(hours(cfg.Cache.GridTTLHours)),
		cache.WithCapacity(cfg.Cache.GridCapacity),
		cache.WithPrecision(cfg.Cache.GridPrecision),
	)
	details := cache.NewDetailsCache(st, cache.WithTTL(hours(cfg.Cache.DetailsTTLHours)))
	gov := usage.NewGovernor(st, cfg.Usage.MonthlyLimit)
	deps := search.Deps{
		Grid:       grid,
		LastSearch: cache.NewLastSearchCache(st, cache.WithTTL(hours(cfg.Cache.LastSearchTTLHours))),
		TipsCache:  cache.NewTipsCache(st, cache.WithTTL(hours(cfg.Cache.TipsTTLHours))),
		Details:    details,
		Hidden:     cache.NewHiddenNames(st),
		Governor:   gov,
	}
	env := &appEnv{Store: st, Governor: gov}

	if mode == "local" {
		env.Service = search.New(deps, search.Config{})
		return env, nil
	}

	br := resilience.NewBreakers(resilience.BreakerConfigFrom(
		cfg.Breaker.FailureThreshold,
		time.Duration(cfg.Breaker.ResetTimeoutSecs)*time.Second,
	))
	env.Breakers = br
	c := initClients()

	ec, chains, err := engineConfig()
	if err != nil {
		env.Close()
		return nil, err
	}
	set := buildProviders(c, br, details)
	deps.Engine = aggregate.New(ec, set, classify.Default(), chains).
		WithCalculator(cost.NewCalculator(cfg.Pricing))
	deps.PhotoRes = set.Photos
	deps.TipGen = buildTips(c, br)

	env.Service = search.New(deps, search.Config{
		AppendThreshold: cfg.Aggregation.AppendMinimum,
		RadiusKm:        cfg.Aggregation.RadiusKm,
	})
	return env, nil
}
