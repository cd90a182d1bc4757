package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/placefinder/internal/model"
)

// FeatureCollection renders places as a GeoJSON FeatureCollection. Places
// without coordinates are skipped.
func FeatureCollection(places []model.Place) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(places))}
	for _, p := range places {
		if p.Coordinates == nil {
			continue
		}
		pt := geom.NewPointFlat(geom.XY, []float64{p.Coordinates.Longitude, p.Coordinates.Latitude}).SetSRID(4326)
		props := map[string]any{
			"name":       p.Name,
			"category":   string(p.Category),
			"popularity": p.Popularity,
		}
		if p.Rating != "" {
			props["rating"] = p.Rating
		}
		if p.Address != "" {
			props["address"] = p.Address
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         p.ID,
			Geometry:   pt,
			Properties: props,
		})
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "geo: marshal feature collection")
	}
	return b, nil
}
