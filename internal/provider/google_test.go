package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/resilience"
	"github.com/sells-group/placefinder/pkg/google"
	"github.com/sells-group/placefinder/pkg/google/mocks"
)

var boston = model.Coordinates{Latitude: 42.3601, Longitude: -71.0589}

func boolPtr(b bool) *bool { return &b }

func neptune() google.Place {
	return google.Place{
		ID:               "ChIJ-neptune",
		DisplayName:      google.LocalizedText{Text: "Neptune Oyster"},
		FormattedAddress: "63 Salem St, Boston, MA 02113",
		AddressComponents: []google.AddressComponent{
			{LongText: "Boston", Types: []string{"locality", "political"}},
		},
		Location:            &google.LatLng{Latitude: 42.3633, Longitude: -71.0557},
		Rating:              4.7,
		UserRatingCount:     3100,
		PrimaryType:         "seafood_restaurant",
		Types:               []string{"restaurant", "seafood_restaurant", "food"},
		BusinessStatus:      "OPERATIONAL",
		CurrentOpeningHours: &google.OpeningHours{OpenNow: boolPtr(true)},
		EditorialSummary:    &google.LocalizedText{Text: "Tiny oyster bar."},
		Reviews: []google.Review{
			{Text: google.LocalizedText{Text: "Hot lobster roll!"}, AuthorAttribution: google.Author{DisplayName: "Sam"}},
			{Text: google.LocalizedText{Text: "  "}},
		},
	}
}

func TestGoogleSearch_MapsPlaces(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchText", mock.Anything, mock.MatchedBy(func(r google.SearchTextRequest) bool {
		return r.TextQuery == "restaurants" &&
			r.IncludedType == "restaurant" &&
			r.MaxResultCount == 20 &&
			r.LocationBias.Circle.Radius == 50000
	})).Return(&google.SearchTextResponse{Places: []google.Place{neptune()}}, nil)

	a := NewGoogleSearch(client)
	got, err := a.Search(context.Background(), SearchRequest{
		Center:       boston,
		RadiusMeters: 80000,
		Categories:   []model.Category{model.CategoryEat},
		Limit:        40,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Neptune Oyster", c.Name)
	assert.Equal(t, "ChIJ-neptune", c.ProviderID)
	assert.Equal(t, SourceGoogle, c.Source)
	assert.Equal(t, "Boston", c.Locality)
	assert.Equal(t, []string{"seafood restaurant", "restaurant", "food"}, c.CategoryTags)
	assert.InDelta(t, 4.7, c.NormalizedRating(), 1e-9)
	assert.Equal(t, model.StatusOperational, c.Status)
	require.NotNil(t, c.IsOpen)
	assert.True(t, *c.IsOpen)
	assert.Equal(t, "Tiny oyster bar.", c.Description)
	require.Len(t, c.Reviews, 1)
	assert.Equal(t, "Sam", c.Reviews[0].Author)
	assert.True(t, c.Complete())
}

func TestTextQuery(t *testing.T) {
	assert.Equal(t, "ramen", textQuery("  ramen ", nil))
	assert.Equal(t, "restaurants and bars and cafes and things to do", textQuery("", nil))
	assert.Equal(t, "bars and cafes", textQuery("", []model.Category{model.CategoryDrink}))
}

func TestGoogleSearch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{"auth", http.StatusForbidden, ErrMisconfigured},
		{"quota", http.StatusTooManyRequests, ErrUnavailable},
		{"server", http.StatusBadGateway, ErrUnavailable},
		{"not found", http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockClient(t)
			client.On("SearchText", mock.Anything, mock.Anything).
				Return(nil, resilience.NewHTTPError("google", tt.status, []byte("x")))

			_, err := NewGoogleSearch(client).Search(context.Background(), SearchRequest{Center: boston})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.kind == ErrMisconfigured, IsFatal(err))
		})
	}
}

func TestGoogleSearch_OpenCircuitIsUnavailable(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchText", mock.Anything, mock.Anything).
		Return(nil, resilience.NewHTTPError("google", http.StatusServiceUnavailable, nil)).Once()

	cb := resilience.NewCircuitBreaker("google", resilience.BreakerConfigFrom(1, time.Hour))
	a := NewGoogleSearch(client, WithBreaker(cb))

	_, err := a.Search(context.Background(), SearchRequest{Center: boston})
	require.ErrorIs(t, err, ErrUnavailable)

	// Second call never reaches the client.
	_, err = a.Search(context.Background(), SearchRequest{Center: boston})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestGoogleSearch_CanceledContextPassesThrough(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchText", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGoogleSearch(client).Search(ctx, SearchRequest{Center: boston})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsFatal(err))
}

func TestGoogleDetails_ResolveByName(t *testing.T) {
	client := mocks.NewMockClient(t)
	other := neptune()
	other.DisplayName.Text = "Giacomo's"
	client.On("SearchText", mock.Anything, mock.MatchedBy(func(r google.SearchTextRequest) bool {
		return r.TextQuery == "Neptune Oyster" && r.MaxResultCount == 5
	})).Return(&google.SearchTextResponse{Places: []google.Place{other, neptune()}}, nil)

	d, err := NewGoogleDetails(client).ResolveByName(context.Background(), "Neptune Oyster", boston, 5000)
	require.NoError(t, err)
	assert.Equal(t, "ChIJ-neptune", d.ProviderID)
	assert.Equal(t, 5.0, d.RatingScale)
}

func TestGoogleDetails_ResolveByNameNoMatch(t *testing.T) {
	client := mocks.NewMockClient(t)
	other := neptune()
	other.DisplayName.Text = "Somewhere Else"
	client.On("SearchText", mock.Anything, mock.Anything).
		Return(&google.SearchTextResponse{Places: []google.Place{other}}, nil)

	_, err := NewGoogleDetails(client).ResolveByName(context.Background(), "Neptune Oyster", boston, 5000)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsFatal(err))
}

func TestGoogleDetails_ResolveByID(t *testing.T) {
	client := mocks.NewMockClient(t)
	p := neptune()
	client.On("GetPlace", mock.Anything, "ChIJ-neptune").Return(&p, nil)

	d, err := NewGoogleDetails(client).ResolveByID(context.Background(), "ChIJ-neptune")
	require.NoError(t, err)
	assert.Equal(t, "63 Salem St, Boston, MA 02113", d.Address)
	assert.Equal(t, "seafood restaurant", d.CategoryTags[0])
}

func TestGooglePhotos(t *testing.T) {
	client := mocks.NewMockClient(t)
	p := neptune()
	p.Photos = []google.Photo{{Name: "places/x/photos/a", WidthPx: 800, HeightPx: 600}}
	client.On("GetPlace", mock.Anything, "ChIJ-neptune").Return(&p, nil)
	client.On("PhotoURI", mock.Anything, "places/x/photos/a", 1600).Return("https://img/a", nil)

	src := NewGooglePhotos(client, 0)
	refs, err := src.ListPhotos(context.Background(), "ChIJ-neptune")
	require.NoError(t, err)
	require.Len(t, refs, 1)

	u, err := src.PhotoURL(context.Background(), refs[0])
	require.NoError(t, err)
	assert.Equal(t, "https://img/a", u)
}

func TestSameName(t *testing.T) {
	assert.True(t, sameName("Neptune Oyster", "  neptune OYSTER"))
	assert.True(t, sameName("Neptune Oyster", "Neptune Oyster Bar"))
	assert.False(t, sameName("Bar", "Bar Mezzana"), "short names need an exact match")
	assert.False(t, sameName("", "x"))
	assert.False(t, sameName("Giacomo's", "Neptune Oyster"))
}
