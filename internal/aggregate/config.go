// Package aggregate runs the multi-provider search loop: discover, resolve,
// filter, score, and widen the radius until enough places qualify.
package aggregate

import (
	"time"

	"github.com/sells-group/placefinder/internal/classify"
	"github.com/sells-group/placefinder/internal/model"
)

// Defaults for Config fields left at zero.
const (
	DefaultMinResults        = 8
	DefaultExploreMinResults = 4
	DefaultMaxAttempts       = 3
	MaxAttemptsCeiling       = 5
	DefaultGrowth            = 1.5
	DefaultDiscoveryGrowth   = 2.0
	DefaultResultCap         = 18
	DefaultDiscoveryCap      = 8
	DefaultDistanceFactor    = 1.5
	DefaultBatchSize         = 10
	DefaultBatchDelay        = 100 * time.Millisecond
	DefaultTieBand           = 0.15
	DefaultRadiusKm          = 5.0
	DefaultSearchLimit       = 20
	DefaultDiscoveryCount    = 15
)

// Config tunes an Engine. Zero values take the defaults above, except
// BatchDelay where zero means no pause. Growth and result cap depend on
// whether any ranked adapter is configured.
type Config struct {
	MinResults     int
	MaxAttempts    int
	Growth         float64
	ResultCap      int
	DistanceFactor float64
	BatchSize      int
	BatchDelay     time.Duration
	TieBand        float64
	SearchLimit    int
	DiscoveryCount int
	ChainPolicy    classify.ChainPolicy
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    DefaultMaxAttempts,
		DistanceFactor: DefaultDistanceFactor,
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
		TieBand:        DefaultTieBand,
		SearchLimit:    DefaultSearchLimit,
		DiscoveryCount: DefaultDiscoveryCount,
		ChainPolicy:    classify.ChainExclude,
	}
}

func (c Config) withDefaults(ranked bool) Config {
	switch {
	case c.MaxAttempts <= DefaultMaxAttempts:
		c.MaxAttempts = DefaultMaxAttempts
	case c.MaxAttempts > MaxAttemptsCeiling:
		c.MaxAttempts = MaxAttemptsCeiling
	}
	if c.Growth <= 1 {
		c.Growth = DefaultGrowth
		if !ranked {
			c.Growth = DefaultDiscoveryGrowth
		}
	}
	if c.ResultCap <= 0 {
		c.ResultCap = DefaultResultCap
		if !ranked {
			c.ResultCap = DefaultDiscoveryCap
		}
	}
	if c.DistanceFactor <= 0 {
		c.DistanceFactor = DefaultDistanceFactor
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.TieBand <= 0 {
		c.TieBand = DefaultTieBand
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.DiscoveryCount <= 0 {
		c.DiscoveryCount = DefaultDiscoveryCount
	}
	if c.ChainPolicy == "" {
		c.ChainPolicy = classify.ChainExclude
	}
	return c
}

// minResults picks the sufficiency threshold for a request.
func (c Config) minResults(req Request) int {
	if req.MinResults > 0 {
		return req.MinResults
	}
	if len(req.Categories) == 1 && req.Categories[0] == model.CategoryExplore {
		return DefaultExploreMinResults
	}
	if c.MinResults > 0 {
		return c.MinResults
	}
	return DefaultMinResults
}
