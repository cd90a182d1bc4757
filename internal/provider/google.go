package provider

import (
	"context"
	"strings"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/pkg/google"
)

// googleMaxRadius is the largest locationBias circle the API accepts.
const googleMaxRadius = 50000

var googleIncludedType = map[model.Category]string{
	model.CategoryEat:     "restaurant",
	model.CategoryDrink:   "bar",
	model.CategoryExplore: "tourist_attraction",
}

var categoryPhrase = map[model.Category]string{
	model.CategoryEat:     "restaurants",
	model.CategoryDrink:   "bars and cafes",
	model.CategoryExplore: "things to do",
}

// GoogleSearch is a ranked search adapter over places:searchText.
type GoogleSearch struct {
	adapterBase
	client google.Client
}

// NewGoogleSearch creates the adapter.
func NewGoogleSearch(client google.Client, opts ...AdapterOption) *GoogleSearch {
	return &GoogleSearch{adapterBase: newBase(SourceGoogle, opts), client: client}
}

// Search implements RankedSearchAdapter.
func (g *GoogleSearch) Search(ctx context.Context, req SearchRequest) ([]model.Candidate, error) {
	sr := google.SearchTextRequest{
		TextQuery:      textQuery(req.Query, req.Categories),
		MaxResultCount: min(max(req.Limit, 1), 20),
		LocationBias: &google.LocationBias{Circle: google.Circle{
			Center: google.LatLng{Latitude: req.Center.Latitude, Longitude: req.Center.Longitude},
			Radius: float64(min(req.RadiusMeters, googleMaxRadius)),
		}},
	}
	if len(req.Categories) == 1 {
		sr.IncludedType = googleIncludedType[req.Categories[0]]
	}

	resp, err := call(ctx, &g.adapterBase, "search_text", func(ctx context.Context) (*google.SearchTextResponse, error) {
		return g.client.SearchText(ctx, sr)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(resp.Places))
	for i := range resp.Places {
		out = append(out, candidateFromDetails(googleDetails(&resp.Places[i]), SourceGoogle, i))
	}
	return out, nil
}

// textQuery builds the free-text query, falling back to category phrases
// when the user gave none.
func textQuery(query string, cats []model.Category) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	if len(cats) == 0 {
		cats = model.Categories
	}
	phrases := make([]string, 0, len(cats))
	for _, c := range cats {
		if p, ok := categoryPhrase[c]; ok {
			phrases = append(phrases, p)
		}
	}
	return strings.Join(phrases, " and ")
}

// GoogleDetails resolves place details through the Places API.
type GoogleDetails struct {
	adapterBase
	client google.Client
}

// NewGoogleDetails creates the resolver.
func NewGoogleDetails(client google.Client, opts ...AdapterOption) *GoogleDetails {
	return &GoogleDetails{adapterBase: newBase(SourceGoogle, opts), client: client}
}

// ResolveByID implements DetailsResolver.
func (g *GoogleDetails) ResolveByID(ctx context.Context, providerID string) (*model.Details, error) {
	p, err := call(ctx, &g.adapterBase, "place_details", func(ctx context.Context) (*google.Place, error) {
		return g.client.GetPlace(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}
	return googleDetails(p), nil
}

// ResolveByName implements DetailsResolver. The first result whose name
// matches wins; results that do not match are never used.
func (g *GoogleDetails) ResolveByName(ctx context.Context, name string, center model.Coordinates, radiusMeters int) (*model.Details, error) {
	sr := google.SearchTextRequest{
		TextQuery:      name,
		MaxResultCount: 5,
		LocationBias: &google.LocationBias{Circle: google.Circle{
			Center: google.LatLng{Latitude: center.Latitude, Longitude: center.Longitude},
			Radius: float64(min(radiusMeters, googleMaxRadius)),
		}},
	}
	resp, err := call(ctx, &g.adapterBase, "search_text", func(ctx context.Context) (*google.SearchTextResponse, error) {
		return g.client.SearchText(ctx, sr)
	})
	if err != nil {
		return nil, err
	}
	for i := range resp.Places {
		if sameName(name, resp.Places[i].DisplayName.Text) {
			return googleDetails(&resp.Places[i]), nil
		}
	}
	return nil, &Error{Provider: g.name, Op: "resolve_by_name", Kind: ErrNotFound, Err: errNoMatch(name)}
}

// GooglePhotos lists and resolves Places photos.
type GooglePhotos struct {
	adapterBase
	client     google.Client
	maxWidthPx int
}

// NewGooglePhotos creates the photo source.
func NewGooglePhotos(client google.Client, maxWidthPx int, opts ...AdapterOption) *GooglePhotos {
	if maxWidthPx <= 0 {
		maxWidthPx = 1600
	}
	return &GooglePhotos{adapterBase: newBase(SourceGoogle, opts), client: client, maxWidthPx: maxWidthPx}
}

// ListPhotos implements PhotoSource.
func (g *GooglePhotos) ListPhotos(ctx context.Context, providerID string) ([]PhotoRef, error) {
	p, err := call(ctx, &g.adapterBase, "place_details", func(ctx context.Context) (*google.Place, error) {
		return g.client.GetPlace(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}
	refs := make([]PhotoRef, 0, len(p.Photos))
	for _, ph := range p.Photos {
		refs = append(refs, PhotoRef{Name: ph.Name, Width: ph.WidthPx, Height: ph.HeightPx})
	}
	return refs, nil
}

// PhotoURL implements PhotoSource.
func (g *GooglePhotos) PhotoURL(ctx context.Context, ref PhotoRef) (string, error) {
	return call(ctx, &g.adapterBase, "photo", func(ctx context.Context) (string, error) {
		return g.client.PhotoURI(ctx, ref.Name, g.maxWidthPx)
	})
}

func googleDetails(p *google.Place) *model.Details {
	d := &model.Details{
		ProviderID:  p.ID,
		Name:        p.DisplayName.Text,
		Address:     p.FormattedAddress,
		Locality:    p.Locality(),
		Phone:       p.NationalPhoneNumber,
		Website:     p.WebsiteURI,
		MapLink:     p.GoogleMapsURI,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		Status:      model.BusinessStatus(p.BusinessStatus),
	}
	if p.Rating > 0 {
		d.RatingScale = 5
	}
	if p.Location != nil {
		d.Coordinates = &model.Coordinates{Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
	}
	if p.CurrentOpeningHours != nil {
		d.IsOpen = p.CurrentOpeningHours.OpenNow
	}
	if p.EditorialSummary != nil {
		d.Description = p.EditorialSummary.Text
	}

	// Primary type first so it wins classification.
	if p.PrimaryType != "" {
		d.CategoryTags = append(d.CategoryTags, tagText(p.PrimaryType))
	}
	for _, t := range p.Types {
		if t != p.PrimaryType {
			d.CategoryTags = append(d.CategoryTags, tagText(t))
		}
	}

	for _, r := range p.Reviews {
		if txt := strings.TrimSpace(r.Text.Text); txt != "" {
			d.Reviews = append(d.Reviews, model.Review{
				Author: r.AuthorAttribution.DisplayName,
				Text:   txt,
				Type:   model.ReviewUser,
			})
		}
	}
	return d
}

// tagText turns an API type like "seafood_restaurant" into "seafood restaurant".
func tagText(t string) string {
	return strings.ReplaceAll(t, "_", " ")
}
