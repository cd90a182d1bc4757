// Package geo provides distance, grid-cell, and bounding-box helpers for
// city-scale place search.
package geo

import (
	"math"
	"strconv"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/placefinder/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// DefaultGridPrecision rounds to roughly 1.1 km cells.
const DefaultGridPrecision = 2

// AllCategories is the grid-key suffix used when no category filter applies.
const AllCategories = "ALL"

// DistanceKm returns the great-circle (haversine) distance between a and b.
func DistanceKm(a, b model.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// WithinKm reports whether b lies within maxKm of a.
func WithinKm(a, b model.Coordinates, maxKm float64) bool {
	return DistanceKm(a, b) <= maxKm
}

// GridKey buckets c into a grid cell by rounding each axis to precision
// decimals, and appends the category (or ALL). Points in the same cell and
// category share a key.
func GridKey(c model.Coordinates, precision int, category model.Category) string {
	if precision < 0 {
		precision = DefaultGridPrecision
	}
	suffix := string(category)
	if suffix == "" {
		suffix = AllCategories
	}
	return roundAxis(c.Latitude, precision) + "," + roundAxis(c.Longitude, precision) + ":" + suffix
}

func roundAxis(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	// -0.00 and 0.00 are the same cell.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == 0 {
		return strconv.FormatFloat(0, 'f', precision, 64)
	}
	return s
}

// BoundingBox returns the lng/lat bounds of a circle of radiusKm around
// center. X is longitude and Y is latitude.
func BoundingBox(center model.Coordinates, radiusKm float64) *geom.Bounds {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	dLng := dLat
	if cosLat > 1e-9 {
		dLng = dLat / cosLat
	}
	return geom.NewBounds(geom.XY).Set(
		center.Longitude-dLng, center.Latitude-dLat,
		center.Longitude+dLng, center.Latitude+dLat,
	)
}
