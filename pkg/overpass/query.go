package overpass

import (
	"fmt"
	"strings"
)

// TagFilter selects elements whose Key tag matches one of Values. An empty
// Values matches any value.
type TagFilter struct {
	Key    string
	Values []string
}

func (f TagFilter) selector() string {
	if len(f.Values) == 0 {
		return fmt.Sprintf(`["%s"]`, f.Key)
	}
	return fmt.Sprintf(`["%s"~"^(%s)$"]`, f.Key, strings.Join(f.Values, "|"))
}

// BBox is a south/west/north/east box in degrees.
type BBox struct {
	South, West, North, East float64
}

// Around is a circle of RadiusMeters around a point.
type Around struct {
	Lat, Lon     float64
	RadiusMeters int
}

// POIQuery describes a named-POI query. Exactly one of Around or BBox should
// be set. When both are, Around wins.
type POIQuery struct {
	Around     *Around
	BBox       *BBox
	Filters    []TagFilter
	TimeoutSec int
	Limit      int
}

// DefaultExploreFilters are the sightseeing and activity tags used for the
// explore fallback.
var DefaultExploreFilters = []TagFilter{
	{Key: "tourism", Values: []string{"attraction", "museum", "gallery", "viewpoint", "zoo", "aquarium", "theme_park", "artwork"}},
	{Key: "historic", Values: []string{"monument", "memorial", "castle", "fort", "ruins", "building", "ship", "archaeological_site"}},
	{Key: "leisure", Values: []string{"park", "garden", "nature_reserve", "marina", "water_park", "miniature_golf", "bowling_alley", "escape_game", "amusement_arcade"}},
}

// Build renders the query as Overpass QL. Nodes and ways are both selected
// and "out center" gives ways a coordinate.
func (q POIQuery) Build() string {
	timeout := q.TimeoutSec
	if timeout <= 0 {
		timeout = 25
	}

	var area string
	switch {
	case q.Around != nil:
		area = fmt.Sprintf("(around:%d,%.6f,%.6f)", q.Around.RadiusMeters, q.Around.Lat, q.Around.Lon)
	case q.BBox != nil:
		area = fmt.Sprintf("(%.6f,%.6f,%.6f,%.6f)", q.BBox.South, q.BBox.West, q.BBox.North, q.BBox.East)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeout)
	for _, f := range q.Filters {
		sel := f.selector()
		for _, kind := range []string{"node", "way"} {
			fmt.Fprintf(&b, "  %s%s[\"name\"]%s;\n", kind, sel, area)
		}
	}
	b.WriteString(");\nout center")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " %d", q.Limit)
	}
	b.WriteString(";")
	return b.String()
}
