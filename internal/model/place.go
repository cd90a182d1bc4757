// Package model defines the shared place, candidate, and usage types.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MaxImages caps the number of photo URLs carried on a place.
const MaxImages = 8

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ReviewType distinguishes user reviews from critic reviews.
type ReviewType string

const (
	ReviewUser   ReviewType = "user"
	ReviewCritic ReviewType = "critic"
)

// Review is a single review attached to a place.
type Review struct {
	Author string     `json:"author"`
	Text   string     `json:"text"`
	Type   ReviewType `json:"type"`
}

// Place is the canonical output entity of an aggregation run.
type Place struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    Category     `json:"category"`
	Rating      string       `json:"rating,omitempty"`
	ReviewCount int          `json:"review_count,omitempty"`
	Description string       `json:"description,omitempty"`
	Vibe        string       `json:"vibe,omitempty"`
	Address     string       `json:"address,omitempty"`
	Locality    string       `json:"locality,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	MapLink     string       `json:"map_link,omitempty"`
	Website     string       `json:"website,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	IsOpen      *bool        `json:"is_open,omitempty"`
	Images      []string     `json:"images,omitempty"`
	Reviews     []Review     `json:"reviews,omitempty"`
	Tips        []string     `json:"tips,omitempty"`
	ProviderID  string       `json:"provider_id,omitempty"`
	Source      string       `json:"source,omitempty"`
	Popularity  float64      `json:"popularity"`
	IsChain     bool         `json:"is_chain,omitempty"`
}

// AppendImages adds photo URLs, skipping duplicates and stopping at MaxImages.
func (p *Place) AppendImages(urls ...string) {
	seen := make(map[string]bool, len(p.Images))
	for _, u := range p.Images {
		seen[u] = true
	}
	for _, u := range urls {
		if len(p.Images) >= MaxImages {
			return
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		p.Images = append(p.Images, u)
	}
}

// AppendTips adds lazily generated tips.
func (p *Place) AppendTips(tips ...string) {
	for _, t := range tips {
		t = strings.TrimSpace(t)
		if t != "" {
			p.Tips = append(p.Tips, t)
		}
	}
}

// NormalizeName returns the deduplication key for a place name: NFC-normalized,
// trimmed, and lowercased. Two names are duplicates only when their keys are equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// Result is the output of a single aggregation run.
type Result struct {
	City     string  `json:"city"`
	Places   []Place `json:"places"`
	Attempts int     `json:"attempts"`
	RadiusKm float64 `json:"radius_km"`
}

// Names returns the place names in result order.
func (r *Result) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Places))
	for i, p := range r.Places {
		names[i] = p.Name
	}
	return names
}

// UsageStats tracks monthly and all-time usage for one device.
type UsageStats struct {
	DeviceID               string    `json:"device_id"`
	CurrentMonth           string    `json:"current_month"`
	SearchCount            int       `json:"search_count"`
	PlaceViewCount         int       `json:"place_view_count"`
	TotalSearchesAllTime   int       `json:"total_searches_all_time"`
	TotalPlaceViewsAllTime int       `json:"total_place_views_all_time"`
	LastSearchAt           time.Time `json:"last_search_at,omitempty"`
}

// MonthKey formats t as the "YYYY-MM" month used for usage rollover.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
