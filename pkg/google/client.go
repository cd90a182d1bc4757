// Package google is a thin client for the Google Places API (New).
package google

import (
	"bytes"
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
	defaultBaseURL = "https://places.googleapis.com/v1"
	service        = "google"
)

// placeFields is the field set requested for every place, both in search
// results (prefixed with "places.") and on the details endpoint.
var placeFields = []string{
	"id", "displayName", "formattedAddress", "addressComponents", "location",
	"rating", "userRatingCount", "types", "primaryType", "businessStatus",
	"currentOpeningHours.openNow", "nationalPhoneNumber", "websiteUri",
	"googleMapsUri", "photos", "reviews", "editorialSummary",
}

// Client performs Google Places API operations.
type Client interface {
	SearchText(ctx context.Context, req SearchTextRequest) (*SearchTextResponse, error)
	GetPlace(ctx context.Context, id string) (*Place, error)
	PhotoURI(ctx context.Context, photoName string, maxWidthPx int) (string, error)
}

// SearchTextRequest is the body of places:searchText.
type SearchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	LocationBias   *LocationBias `json:"locationBias,omitempty"`
	IncludedType   string        `json:"includedType,omitempty"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	RankPreference string        `json:"rankPreference,omitempty"`
}

// LocationBias biases results toward a circle.
type LocationBias struct {
	Circle Circle `json:"circle"`
}

// Circle is a center and radius in meters (max 50000).
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LatLng is a WGS84 point.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchTextResponse is the response from places:searchText.
type SearchTextResponse struct {
	Places []Place `json:"places"`
}

// Place is a place resource.
type Place struct {
	ID                  string             `json:"id"`
	DisplayName         LocalizedText      `json:"displayName"`
	FormattedAddress    string             `json:"formattedAddress"`
	AddressComponents   []AddressComponent `json:"addressComponents"`
	Location            *LatLng            `json:"location"`
	Rating              float64            `json:"rating"`
	UserRatingCount     int                `json:"userRatingCount"`
	Types               []string           `json:"types"`
	PrimaryType         string             `json:"primaryType"`
	BusinessStatus      string             `json:"businessStatus"`
	CurrentOpeningHours *OpeningHours      `json:"currentOpeningHours"`
	NationalPhoneNumber string             `json:"nationalPhoneNumber"`
	WebsiteURI          string             `json:"websiteUri"`
	GoogleMapsURI       string             `json:"googleMapsUri"`
	Photos              []Photo            `json:"photos"`
	Reviews             []Review           `json:"reviews"`
	EditorialSummary    *LocalizedText     `json:"editorialSummary"`
}

// Locality returns the "locality" address component, if any.
func (p *Place) Locality() string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == "locality" {
				return c.LongText
			}
		}
	}
	return ""
}

// LocalizedText is a string with its language.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// AddressComponent is one structured part of an address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// OpeningHours carries the live open flag.
type OpeningHours struct {
	OpenNow *bool `json:"openNow"`
}

// Photo references a place photo. Name is the resource name used by PhotoURI.
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}

// Review is a user review.
type Review struct {
	Rating                         float64       `json:"rating"`
	Text                           LocalizedText `json:"text"`
	AuthorAttribution              Author        `json:"authorAttribution"`
	RelativePublishTimeDescription string        `json:"relativePublishTimeDescription"`
}

// Author identifies a review author.
type Author struct {
	DisplayName string `json:"displayName"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
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

// NewClient creates a Google Places API client. Requests are throttled to
// 10 req/s unless overridden.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func fieldMask(prefix string) string {
	parts := make([]string, len(placeFields))
	for i, f := range placeFields {
		parts[i] = prefix + f
	}
	return strings.Join(parts, ",")
}

func (c *httpClient) SearchText(ctx context.Context, sr SearchTextRequest) (*SearchTextResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-FieldMask", fieldMask("places."))

	var result SearchTextResponse
	if err := c.do(req, &result); err != nil {
		return nil, eris.Wrap(err, "google: search text")
	}
	return &result, nil
}

func (c *httpClient) GetPlace(ctx context.Context, id string) (*Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("X-Goog-FieldMask", fieldMask(""))

	var p Place
	if err := c.do(req, &p); err != nil {
		return nil, eris.Wrapf(err, "google: get place %s", id)
	}
	return &p, nil
}

type photoMedia struct {
	Name     string `json:"name"`
	PhotoURI string `json:"photoUri"`
}

// PhotoURI resolves a photo resource name (places/{id}/photos/{ref}) into a
// short-lived image URL without following the redirect.
func (c *httpClient) PhotoURI(ctx context.Context, photoName string, maxWidthPx int) (string, error) {
	q := url.Values{}
	q.Set("skipHttpRedirect", "true")
	if maxWidthPx > 0 {
		q.Set("maxWidthPx", strconv.Itoa(maxWidthPx))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+photoName+"/media?"+q.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "google: create request")
	}

	var m photoMedia
	if err := c.do(req, &m); err != nil {
		return "", eris.Wrap(err, "google: photo media")
	}
	if m.PhotoURI == "" {
		return "", eris.New("google: photo media: empty photoUri")
	}
	return m.PhotoURI, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.NewHTTPError(service, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
