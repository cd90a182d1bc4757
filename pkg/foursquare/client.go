// Package foursquare is a thin client for the Foursquare Places API v3.
package foursquare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/placefinder/internal/resilience"
)

const (
	defaultBaseURL = "https://api.foursquare.com/v3"
	service        = "foursquare"

	// MaxRadiusMeters is the largest radius /places/search accepts.
	MaxRadiusMeters = 100000
)

// Fields requested on search and details.
const placeFields = "fsq_id,name,geocodes,location,categories,rating,stats,closed_bucket,hours,tel,website,description,photos,link"

// Closed buckets reported by the API.
const (
	ClosedBucketVeryLikelyOpen   = "VeryLikelyOpen"
	ClosedBucketLikelyOpen       = "LikelyOpen"
	ClosedBucketUnsure           = "Unsure"
	ClosedBucketLikelyClosed     = "LikelyClosed"
	ClosedBucketVeryLikelyClosed = "VeryLikelyClosed"
)

// Client performs Foursquare Places operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Place, error)
	GetPlace(ctx context.Context, fsqID string) (*Place, error)
	Photos(ctx context.Context, fsqID string, limit int) ([]Photo, error)
	Tips(ctx context.Context, fsqID string, limit int) ([]Tip, error)
}

// SearchRequest holds /places/search parameters.
type SearchRequest struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters int
	Query        string
	Categories   []string
	Limit        int
	Sort         string // RELEVANCE, RATING, DISTANCE, POPULARITY
}

// Place is a Foursquare place.
type Place struct {
	FsqID        string     `json:"fsq_id"`
	Name         string     `json:"name"`
	Geocodes     Geocodes   `json:"geocodes"`
	Location     Location   `json:"location"`
	Categories   []Category `json:"categories"`
	Rating       float64    `json:"rating"` // 0–10
	Stats        Stats      `json:"stats"`
	ClosedBucket string     `json:"closed_bucket"`
	Hours        *Hours     `json:"hours"`
	Tel          string     `json:"tel"`
	Website      string     `json:"website"`
	Description  string     `json:"description"`
	Photos       []Photo    `json:"photos"`
	Link         string     `json:"link"`
}

// Geocodes holds the place's coordinates.
type Geocodes struct {
	Main *Point `json:"main"`
}

// Point is a lat/lng pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a place's address.
type Location struct {
	Address          string `json:"address"`
	Locality         string `json:"locality"`
	Region           string `json:"region"`
	Postcode         string `json:"postcode"`
	FormattedAddress string `json:"formatted_address"`
}

// Category is a Foursquare taxonomy node.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Stats carries engagement counts.
type Stats struct {
	TotalRatings int `json:"total_ratings"`
	TotalTips    int `json:"total_tips"`
	TotalPhotos  int `json:"total_photos"`
}

// Hours carries the live open flag.
type Hours struct {
	OpenNow *bool `json:"open_now"`
}

// Photo is a photo reference. The URL is prefix + size + suffix.
type Photo struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// URL builds the full-resolution photo URL.
func (p Photo) URL() string {
	return p.Prefix + "original" + p.Suffix
}

// Tip is a short user tip.
type Tip struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Text      string `json:"text"`
}

type searchResponse struct {
	Results []Place `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit throttles requests to rps. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Foursquare client. Requests are throttled to 10 req/s
// unless overridden.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) ([]Place, error) {
	q := url.Values{}
	q.Set("ll", strconv.FormatFloat(sr.Latitude, 'f', 6, 64)+","+strconv.FormatFloat(sr.Longitude, 'f', 6, 64))
	if sr.RadiusMeters > 0 {
		q.Set("radius", strconv.Itoa(min(sr.RadiusMeters, MaxRadiusMeters)))
	}
	if sr.Query != "" {
		q.Set("query", sr.Query)
	}
	if len(sr.Categories) > 0 {
		q.Set("categories", strings.Join(sr.Categories, ","))
	}
	if sr.Limit > 0 {
		q.Set("limit", strconv.Itoa(min(sr.Limit, 50)))
	}
	if sr.Sort != "" {
		q.Set("sort", sr.Sort)
	}
	q.Set("fields", placeFields)

	var resp searchResponse
	if err := c.get(ctx, "/places/search?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrap(err, "foursquare: search")
	}
	return resp.Results, nil
}

func (c *httpClient) GetPlace(ctx context.Context, fsqID string) (*Place, error) {
	q := url.Values{}
	q.Set("fields", placeFields)

	var p Place
	if err := c.get(ctx, "/places/"+url.PathEscape(fsqID)+"?"+q.Encode(), &p); err != nil {
		return nil, eris.Wrapf(err, "foursquare: get place %s", fsqID)
	}
	return &p, nil
}

func (c *httpClient) Photos(ctx context.Context, fsqID string, limit int) ([]Photo, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("sort", "POPULAR")

	var photos []Photo
	if err := c.get(ctx, "/places/"+url.PathEscape(fsqID)+"/photos?"+q.Encode(), &photos); err != nil {
		return nil, eris.Wrapf(err, "foursquare: photos %s", fsqID)
	}
	return photos, nil
}

func (c *httpClient) Tips(ctx context.Context, fsqID string, limit int) ([]Tip, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("sort", "POPULAR")

	var tips []Tip
	if err := c.get(ctx, "/places/"+url.PathEscape(fsqID)+"/tips?"+q.Encode(), &tips); err != nil {
		return nil, eris.Wrapf(err, "foursquare: tips %s", fsqID)
	}
	return tips, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.NewHTTPError(service, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
