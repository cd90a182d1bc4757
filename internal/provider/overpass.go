package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/placefinder/internal/geo"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/pkg/overpass"
)

// osmCategoryKeys are the tags whose values become classification tags.
var osmCategoryKeys = []string{"tourism", "historic", "leisure", "amenity"}

// DefaultExploreFilter is the tag filter used for the explore fallback.
func DefaultExploreFilter() TagFilter {
	f := TagFilter{}
	for _, tf := range overpass.DefaultExploreFilters {
		f[tf.Key] = tf.Values
	}
	return f
}

// OverpassPOI is a community POI adapter over OpenStreetMap.
type OverpassPOI struct {
	adapterBase
	client overpass.Client
	limit  int
}

// NewOverpassPOI creates the adapter.
func NewOverpassPOI(client overpass.Client, opts ...AdapterOption) *OverpassPOI {
	return &OverpassPOI{adapterBase: newBase(SourceOSM, opts), client: client, limit: 60}
}

// Search implements CommunityPOIAdapter. The query area is the bounding box
// of the search circle; the engine applies the exact distance check.
func (o *OverpassPOI) Search(ctx context.Context, center model.Coordinates, radiusMeters int, filter TagFilter) ([]model.Candidate, error) {
	if len(filter) == 0 {
		filter = DefaultExploreFilter()
	}
	bounds := geo.BoundingBox(center, float64(radiusMeters)/1000)
	q := overpass.POIQuery{
		BBox: &overpass.BBox{
			South: bounds.Min(1), West: bounds.Min(0),
			North: bounds.Max(1), East: bounds.Max(0),
		},
		Filters:    toOverpassFilters(filter),
		TimeoutSec: 25,
		Limit:      o.limit,
	}

	resp, err := call(ctx, &o.adapterBase, "query", func(ctx context.Context) (*overpass.Response, error) {
		return o.client.Query(ctx, q.Build())
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		lat, lon, ok := el.Point()
		if name == "" || !ok {
			continue
		}
		c := model.Candidate{
			Name:          name,
			ProviderID:    fmt.Sprintf("%s/%d", el.Type, el.ID),
			Source:        SourceOSM,
			Address:       el.Address(),
			Locality:      el.Tags["addr:city"],
			Phone:         firstTag(el.Tags, "phone", "contact:phone"),
			Website:       firstTag(el.Tags, "website", "contact:website"),
			Coordinates:   &model.Coordinates{Latitude: lat, Longitude: lon},
			CategoryGuess: model.CategoryExplore,
			Description:   el.Tags["description"],
			Order:         len(out),
		}
		for _, k := range osmCategoryKeys {
			if v := el.Tags[k]; v != "" {
				c.CategoryTags = append(c.CategoryTags, tagText(v))
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func toOverpassFilters(f TagFilter) []overpass.TagFilter {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]overpass.TagFilter, 0, len(keys))
	for _, k := range keys {
		out = append(out, overpass.TagFilter{Key: k, Values: f[k]})
	}
	return out
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}
