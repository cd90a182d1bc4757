package model

import (
	"fmt"
	"math"
	"strconv"
)

// BusinessStatus is the upstream-reported operating status of a business.
type BusinessStatus string

const (
	StatusUnknown           BusinessStatus = ""
	StatusOperational       BusinessStatus = "OPERATIONAL"
	StatusClosedTemporarily BusinessStatus = "CLOSED_TEMPORARILY"
	StatusClosedPermanently BusinessStatus = "CLOSED_PERMANENTLY"
)

// Closed reports whether the status excludes the place from results.
func (s BusinessStatus) Closed() bool {
	return s == StatusClosedTemporarily || s == StatusClosedPermanently
}

// Candidate is an unverified place reference produced by a provider adapter.
// Every adapter converts its own response shape into a Candidate before the
// engine sees it.
type Candidate struct {
	Name          string
	ProviderID    string
	Source        string
	Address       string
	Locality      string
	Phone         string
	Website       string
	MapLink       string
	Coordinates   *Coordinates
	Rating        float64 // raw provider value, see RatingScale
	RatingScale   float64 // 5 or 10; zero means unrated
	ReviewCount   int
	CategoryTags  []string
	CategoryID    string
	CategoryGuess Category
	Status        BusinessStatus
	IsOpen        *bool
	Photos        []string
	Reviews       []Review
	Vibe          string
	Description   string

	// Order is the candidate's position in its provider's ranking.
	Order int
}

// NormalizedRating returns the rating on a 0-5 scale.
func (c *Candidate) NormalizedRating() float64 {
	if c.Rating <= 0 || c.RatingScale <= 0 {
		return 0
	}
	r := c.Rating * 5 / c.RatingScale
	return math.Min(r, 5)
}

// Complete reports whether the candidate carries enough verified detail to
// skip detail resolution.
func (c *Candidate) Complete() bool {
	return c.Coordinates != nil && c.Address != ""
}

// Apply merges resolved details into the candidate. Resolved fields win over
// the discovery guesses, but an empty resolved field never erases a known one.
func (c *Candidate) Apply(d *Details) {
	if d == nil {
		return
	}
	if d.ProviderID != "" {
		c.ProviderID = d.ProviderID
	}
	if d.Address != "" {
		c.Address = d.Address
	}
	if d.Locality != "" {
		c.Locality = d.Locality
	}
	if d.Phone != "" {
		c.Phone = d.Phone
	}
	if d.Website != "" {
		c.Website = d.Website
	}
	if d.MapLink != "" {
		c.MapLink = d.MapLink
	}
	if d.Coordinates != nil {
		coord := *d.Coordinates
		c.Coordinates = &coord
	}
	if d.RatingScale > 0 && d.Rating > 0 {
		c.Rating = d.Rating
		c.RatingScale = d.RatingScale
	}
	if d.ReviewCount > 0 {
		c.ReviewCount = d.ReviewCount
	}
	if len(d.CategoryTags) > 0 {
		c.CategoryTags = append(c.CategoryTags, d.CategoryTags...)
	}
	if d.CategoryID != "" {
		c.CategoryID = d.CategoryID
	}
	if d.Status != StatusUnknown {
		c.Status = d.Status
	}
	if d.IsOpen != nil {
		open := *d.IsOpen
		c.IsOpen = &open
	}
	if len(d.Photos) > 0 {
		c.Photos = append(c.Photos, d.Photos...)
	}
	if len(d.Reviews) > 0 {
		c.Reviews = append(c.Reviews, d.Reviews...)
	}
	if d.Description != "" && c.Description == "" {
		c.Description = d.Description
	}
}

// Details is the full per-place record returned by a details resolver.
type Details struct {
	ProviderID   string         `json:"provider_id"`
	Name         string         `json:"name"`
	Address      string         `json:"address,omitempty"`
	Locality     string         `json:"locality,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Website      string         `json:"website,omitempty"`
	MapLink      string         `json:"map_link,omitempty"`
	Coordinates  *Coordinates   `json:"coordinates,omitempty"`
	Rating       float64        `json:"rating,omitempty"`
	RatingScale  float64        `json:"rating_scale,omitempty"`
	ReviewCount  int            `json:"review_count,omitempty"`
	CategoryTags []string       `json:"category_tags,omitempty"`
	CategoryID   string         `json:"category_id,omitempty"`
	Status       BusinessStatus `json:"status,omitempty"`
	IsOpen       *bool          `json:"is_open,omitempty"`
	Photos       []string       `json:"photos,omitempty"`
	Reviews      []Review       `json:"reviews,omitempty"`
	Description  string         `json:"description,omitempty"`
}

// FormatRating renders a 0-5 rating for display, or "" when unrated.
func FormatRating(r float64) string {
	if r <= 0 {
		return ""
	}
	return strconv.FormatFloat(math.Round(r*10)/10, 'f', 1, 64)
}

// ToPlace builds the output place for a validated candidate.
func (c *Candidate) ToPlace(id string, category Category) Place {
	p := Place{
		ID:          id,
		Name:        c.Name,
		Category:    category,
		Rating:      FormatRating(c.NormalizedRating()),
		ReviewCount: c.ReviewCount,
		Description: c.Description,
		Vibe:        c.Vibe,
		Address:     c.Address,
		Locality:    c.Locality,
		Phone:       c.Phone,
		MapLink:     c.MapLink,
		Website:     c.Website,
		IsOpen:      c.IsOpen,
		Reviews:     c.Reviews,
		ProviderID:  c.ProviderID,
		Source:      c.Source,
	}
	if c.Coordinates != nil {
		coord := *c.Coordinates
		p.Coordinates = &coord
	}
	if p.MapLink == "" && p.Coordinates != nil {
		p.MapLink = fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%.6f,%.6f", p.Coordinates.Latitude, p.Coordinates.Longitude)
	}
	p.AppendImages(c.Photos...)
	return p
}
