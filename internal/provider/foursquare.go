package provider

import (
	"context"
	"strconv"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/pkg/foursquare"
)

// fsqCategories are the top-level Places v3 category ids searched per category.
var fsqCategories = map[model.Category][]string{
	model.CategoryEat:     {"13065"},
	model.CategoryDrink:   {"13003", "13032"},
	model.CategoryExplore: {"10000", "16000"},
}

// FoursquareSearch is a ranked search adapter over /places/search.
type FoursquareSearch struct {
	adapterBase
	client foursquare.Client
}

// NewFoursquareSearch creates the adapter.
func NewFoursquareSearch(client foursquare.Client, opts ...AdapterOption) *FoursquareSearch {
	return &FoursquareSearch{adapterBase: newBase(SourceFoursquare, opts), client: client}
}

// Search implements RankedSearchAdapter.
func (f *FoursquareSearch) Search(ctx context.Context, req SearchRequest) ([]model.Candidate, error) {
	sr := foursquare.SearchRequest{
		Latitude:     req.Center.Latitude,
		Longitude:    req.Center.Longitude,
		RadiusMeters: req.RadiusMeters,
		Query:        req.Query,
		Limit:        max(req.Limit, 1),
		Sort:         "RELEVANCE",
	}
	cats := req.Categories
	if len(cats) == 0 {
		cats = model.Categories
	}
	for _, c := range cats {
		sr.Categories = append(sr.Categories, fsqCategories[c]...)
	}

	places, err := call(ctx, &f.adapterBase, "search", func(ctx context.Context) ([]foursquare.Place, error) {
		return f.client.Search(ctx, sr)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(places))
	for i := range places {
		out = append(out, candidateFromDetails(fsqDetails(&places[i]), SourceFoursquare, i))
	}
	return out, nil
}

// FoursquareDetails resolves details through the Places API.
type FoursquareDetails struct {
	adapterBase
	client foursquare.Client
}

// NewFoursquareDetails creates the resolver.
func NewFoursquareDetails(client foursquare.Client, opts ...AdapterOption) *FoursquareDetails {
	return &FoursquareDetails{adapterBase: newBase(SourceFoursquare, opts), client: client}
}

// ResolveByID implements DetailsResolver.
func (f *FoursquareDetails) ResolveByID(ctx context.Context, providerID string) (*model.Details, error) {
	p, err := call(ctx, &f.adapterBase, "place", func(ctx context.Context) (*foursquare.Place, error) {
		return f.client.GetPlace(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}
	return fsqDetails(p), nil
}

// ResolveByName implements DetailsResolver.
func (f *FoursquareDetails) ResolveByName(ctx context.Context, name string, center model.Coordinates, radiusMeters int) (*model.Details, error) {
	sr := foursquare.SearchRequest{
		Latitude:     center.Latitude,
		Longitude:    center.Longitude,
		RadiusMeters: radiusMeters,
		Query:        name,
		Limit:        5,
		Sort:         "RELEVANCE",
	}
	places, err := call(ctx, &f.adapterBase, "search", func(ctx context.Context) ([]foursquare.Place, error) {
		return f.client.Search(ctx, sr)
	})
	if err != nil {
		return nil, err
	}
	for i := range places {
		if sameName(name, places[i].Name) {
			return fsqDetails(&places[i]), nil
		}
	}
	return nil, &Error{Provider: f.name, Op: "resolve_by_name", Kind: ErrNotFound, Err: errNoMatch(name)}
}

// FoursquarePhotos lists Foursquare photos. Their URLs are built locally.
type FoursquarePhotos struct {
	adapterBase
	client foursquare.Client
	limit  int
}

// NewFoursquarePhotos creates the photo source.
func NewFoursquarePhotos(client foursquare.Client, opts ...AdapterOption) *FoursquarePhotos {
	return &FoursquarePhotos{adapterBase: newBase(SourceFoursquare, opts), client: client, limit: 20}
}

// ListPhotos implements PhotoSource.
func (f *FoursquarePhotos) ListPhotos(ctx context.Context, providerID string) ([]PhotoRef, error) {
	photos, err := call(ctx, &f.adapterBase, "photos", func(ctx context.Context) ([]foursquare.Photo, error) {
		return f.client.Photos(ctx, providerID, f.limit)
	})
	if err != nil {
		return nil, err
	}
	refs := make([]PhotoRef, 0, len(photos))
	for _, p := range photos {
		refs = append(refs, PhotoRef{Name: p.ID, URL: p.URL(), Width: p.Width, Height: p.Height})
	}
	return refs, nil
}

// PhotoURL implements PhotoSource.
func (f *FoursquarePhotos) PhotoURL(_ context.Context, ref PhotoRef) (string, error) {
	return ref.URL, nil
}

// FoursquareTips returns user tips for Foursquare places.
type FoursquareTips struct {
	adapterBase
	client foursquare.Client
}

// NewFoursquareTips creates the tips source.
func NewFoursquareTips(client foursquare.Client, opts ...AdapterOption) *FoursquareTips {
	return &FoursquareTips{adapterBase: newBase(SourceFoursquare, opts), client: client}
}

// Tips returns up to limit tip texts for a Foursquare place id.
func (f *FoursquareTips) Tips(ctx context.Context, providerID string, limit int) ([]string, error) {
	tips, err := call(ctx, &f.adapterBase, "tips", func(ctx context.Context) ([]foursquare.Tip, error) {
		return f.client.Tips(ctx, providerID, limit)
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tips))
	for _, t := range tips {
		if t.Text != "" {
			out = append(out, t.Text)
		}
	}
	return out, nil
}

func fsqDetails(p *foursquare.Place) *model.Details {
	d := &model.Details{
		ProviderID:  p.FsqID,
		Name:        p.Name,
		Address:     p.Location.FormattedAddress,
		Locality:    p.Location.Locality,
		Phone:       p.Tel,
		Website:     p.Website,
		Rating:      p.Rating,
		ReviewCount: p.Stats.TotalRatings,
		Status:      fsqStatus(p.ClosedBucket),
		Description: p.Description,
	}
	if d.Address == "" {
		d.Address = p.Location.Address
	}
	if p.Rating > 0 {
		d.RatingScale = 10
	}
	if p.Geocodes.Main != nil {
		d.Coordinates = &model.Coordinates{Latitude: p.Geocodes.Main.Latitude, Longitude: p.Geocodes.Main.Longitude}
	}
	if p.Hours != nil {
		d.IsOpen = p.Hours.OpenNow
	}
	for i, c := range p.Categories {
		if i == 0 {
			d.CategoryID = strconv.Itoa(c.ID)
		}
		d.CategoryTags = append(d.CategoryTags, c.Name)
	}
	for _, ph := range p.Photos {
		d.Photos = append(d.Photos, ph.URL())
	}
	return d
}

// fsqStatus maps closed_bucket onto a business status. Only the two
// "closed" buckets count as closed.
func fsqStatus(bucket string) model.BusinessStatus {
	switch bucket {
	case foursquare.ClosedBucketLikelyClosed, foursquare.ClosedBucketVeryLikelyClosed:
		return model.StatusClosedPermanently
	case "":
		return model.StatusUnknown
	default:
		return model.StatusOperational
	}
}
