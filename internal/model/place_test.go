package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Joe's Diner ", "joe's diner"},
		{"JOE'S DINER", "joe's diner"},
		{"Café Luna", "café luna"},
		{"Café Luna", "café luna"}, // decomposed accent folds to composed
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestAppendImages_CapsAndDedupes(t *testing.T) {
	var p Place
	for i := 0; i < 12; i++ {
		p.AppendImages(fmt.Sprintf("https://img/%d.jpg", i), "https://img/0.jpg")
	}
	assert.Len(t, p.Images, MaxImages)
	assert.Equal(t, "https://img/0.jpg", p.Images[0])
}

func TestAppendTips_SkipsBlank(t *testing.T) {
	var p Place
	p.AppendTips(" Go early ", "", "  ")
	assert.Equal(t, []string{"Go early"}, p.Tips)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("eat")
	require.True(t, ok)
	assert.Equal(t, CategoryEat, c)

	c, ok = ParseCategory("Sights")
	require.True(t, ok)
	assert.Equal(t, CategoryExplore, c)

	_, ok = ParseCategory("shopping")
	assert.False(t, ok)

	assert.False(t, CategoryUnknown.Valid())
	assert.True(t, CategoryDrink.In([]Category{CategoryEat, CategoryDrink}))
}

func TestCandidate_NormalizedRating(t *testing.T) {
	fsq := Candidate{Rating: 8.6, RatingScale: 10}
	assert.InDelta(t, 4.3, fsq.NormalizedRating(), 0.0001)

	google := Candidate{Rating: 4.4, RatingScale: 5}
	assert.InDelta(t, 4.4, google.NormalizedRating(), 0.0001)

	unrated := Candidate{Rating: 4}
	assert.Zero(t, unrated.NormalizedRating())
}

func TestCandidate_ApplyKeepsKnownFields(t *testing.T) {
	c := Candidate{Name: "Neptune Oyster", Address: "63 Salem St", Vibe: "tiny raw bar"}
	open := true
	c.Apply(&Details{
		ProviderID:  "abc",
		Coordinates: &Coordinates{Latitude: 42.36, Longitude: -71.05},
		Rating:      4.7,
		RatingScale: 5,
		ReviewCount: 3100,
		Status:      StatusOperational,
		IsOpen:      &open,
	})

	assert.Equal(t, "abc", c.ProviderID)
	assert.Equal(t, "63 Salem St", c.Address)
	assert.Equal(t, "tiny raw bar", c.Vibe)
	require.NotNil(t, c.Coordinates)
	assert.True(t, c.Complete())
	assert.Equal(t, 3100, c.ReviewCount)
	assert.False(t, c.Status.Closed())
}

func TestCandidate_ToPlace(t *testing.T) {
	c := Candidate{
		Name:        "Lamplighter",
		Rating:      9.1,
		RatingScale: 10,
		Coordinates: &Coordinates{Latitude: 42.37, Longitude: -71.1},
		Photos:      []string{"a", "b"},
	}
	p := c.ToPlace("fsq-1", CategoryDrink)
	assert.Equal(t, "4.5", p.Rating)
	assert.Equal(t, CategoryDrink, p.Category)
	assert.Contains(t, p.MapLink, "42.370000,-71.100000")
	assert.Equal(t, []string{"a", "b"}, p.Images)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-10", MonthKey(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)))
}
