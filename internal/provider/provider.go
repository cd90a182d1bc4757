// Package provider adapts upstream place APIs into model.Candidate values.
//
// Each upstream has its own adapter that parses its typed response into the
// shared Candidate shape. The aggregation engine only sees the interfaces
// declared here and decides nothing about which upstreams exist.
package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placefinder/internal/model"
)

// Sentinel errors every adapter maps its failures onto.
var (
	// ErrUnavailable means the upstream could not answer right now: a
	// network error, a 429 or 5xx, an exhausted upstream quota, or an open
	// circuit. The engine treats it as zero candidates.
	ErrUnavailable = eris.New("provider: unavailable")

	// ErrMisconfigured means the credentials are missing or rejected. It is
	// fatal to the run.
	ErrMisconfigured = eris.New("provider: misconfigured")

	// ErrNotFound means the upstream has no record for the lookup.
	ErrNotFound = eris.New("provider: not found")
)

// DiscoverRequest asks a discovery adapter for suggestions around a point.
type DiscoverRequest struct {
	Center       model.Coordinates
	Query        string
	RadiusKm     float64
	Categories   []model.Category
	Exclude      []string
	MaxResults   int
	LocalityHint string
}

// DiscoverResult is a discovery adapter's answer.
type DiscoverResult struct {
	City       string
	Candidates []model.Candidate
}

// DiscoveryAdapter produces unverified suggestions, typically from an LLM.
type DiscoveryAdapter interface {
	Name() string
	Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error)
}

// SearchRequest asks a ranked search adapter for places.
type SearchRequest struct {
	Center       model.Coordinates
	Query        string
	RadiusMeters int
	Categories   []model.Category
	Limit        int
}

// RankedSearchAdapter returns places in the upstream's relevance order.
type RankedSearchAdapter interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) ([]model.Candidate, error)
}

// TagFilter narrows a community POI search to tag values, keyed by tag.
type TagFilter map[string][]string

// CommunityPOIAdapter queries open map data for sights and activities.
type CommunityPOIAdapter interface {
	Name() string
	Search(ctx context.Context, center model.Coordinates, radiusMeters int, filter TagFilter) ([]model.Candidate, error)
}

// DetailsResolver fills in verified details for a candidate. Name is the
// source whose provider ids ResolveByID accepts.
type DetailsResolver interface {
	Name() string
	ResolveByName(ctx context.Context, name string, center model.Coordinates, radiusMeters int) (*model.Details, error)
	ResolveByID(ctx context.Context, providerID string) (*model.Details, error)
}

// PhotoResolver returns up to maxCount photo URLs for a place.
type PhotoResolver interface {
	Fetch(ctx context.Context, providerID string, maxCount int) ([]string, error)
}

// Set is the ordered collection of adapters an engine runs with. Which
// adapters are present is decided by the caller from available credentials.
type Set struct {
	Ranked    []RankedSearchAdapter
	Discovery DiscoveryAdapter
	Community CommunityPOIAdapter
	Details   DetailsResolver
	Photos    map[string]PhotoResolver
}
