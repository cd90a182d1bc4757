package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/aggregate"
	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/resilience"
	"github.com/sells-group/placefinder/internal/search"
	"github.com/sells-group/placefinder/internal/store"
	"github.com/sells-group/placefinder/internal/usage"
)

type stubEngine struct {
	places []model.Place
	reqs   []aggregate.Request
}

func (s *stubEngine) Run(_ context.Context, req aggregate.Request) (*model.Result, error) {
	s.reqs = append(s.reqs, req)
	return &model.Result{City: "Boston", Places: append([]model.Place(nil), s.places...), Attempts: 1}, nil
}

type stubTips struct{}

func (stubTips) Generate(_ context.Context, p model.Place) ([]string, error) {
	return []string{"Sit at the bar at " + p.Name + "."}, nil
}

func newTestServer(t *testing.T, limit int) (*httptest.Server, *stubEngine) {
	t.Helper()
	st := store.NewMemory()
	eng := &stubEngine{places: []model.Place{
		{ID: "a", Name: "Neptune Oyster", Category: model.CategoryEat},
		{ID: "b", Name: "Toro", Category: model.CategoryEat},
	}}
	svc := search.New(search.Deps{
		Engine:     eng,
		Grid:       cache.NewGridCache(st),
		LastSearch: cache.NewLastSearchCache(st),
		TipsCache:  cache.NewTipsCache(st),
		Details:    cache.NewDetailsCache(st),
		Hidden:     cache.NewHiddenNames(st),
		Governor:   usage.NewGovernor(st, limit),
		TipGen:     stubTips{},
	}, search.Config{})
	br := resilience.NewBreakers(resilience.DefaultBreakerConfig())
	br.Get("google")
	srv := httptest.NewServer(NewServer(svc, br, Config{AllowedOrigins: []string{"*"}}).Handler())
	t.Cleanup(srv.Close)
	return srv, eng
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["providers"], 1)
}

func TestSearch_ThenCached(t *testing.T) {
	srv, eng := newTestServer(t, 10)
	q := map[string]any{
		"center":     map[string]float64{"latitude": 42.3601, "longitude": -71.0589},
		"categories": []string{"EAT"},
	}

	resp := post(t, srv.URL+"/v1/search", q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Boston", body["city"])
	assert.Equal(t, false, body["from_cache"])
	assert.Len(t, body["places"], 2)

	resp = post(t, srv.URL+"/v1/search", q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["from_cache"])
	assert.Len(t, eng.reqs, 1)
}

func TestSearch_Validation(t *testing.T) {
	srv, eng := newTestServer(t, 10)

	tests := []struct {
		name string
		body any
	}{
		{name: "latitude out of range", body: map[string]any{"center": map[string]float64{"latitude": 91, "longitude": 0}}},
		{name: "latitude far out of range", body: map[string]any{"center": map[string]float64{"latitude": 999, "longitude": 0}}},
		{name: "longitude out of range", body: map[string]any{"center": map[string]float64{"latitude": 0, "longitude": -181}}},
		{name: "unknown category", body: map[string]any{"center": map[string]float64{}, "categories": []string{"SHOP"}}},
		{name: "radius too large", body: map[string]any{"center": map[string]float64{}, "radius_km": 500}},
		{name: "not an object", body: []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decodeBody(t, resp)["error"])
		})
	}
	assert.Empty(t, eng.reqs)
}

func TestLoadMore_ValidatesCenter(t *testing.T) {
	srv, eng := newTestServer(t, 10)

	resp := post(t, srv.URL+"/v1/search/more", map[string]any{
		"query": map[string]any{"center": map[string]float64{"latitude": 999, "longitude": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, eng.reqs)
}

func TestSearch_QuotaExceeded(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	post(t, srv.URL+"/v1/search", map[string]any{"center": map[string]float64{"latitude": 42.36, "longitude": -71.06}})

	resp := post(t, srv.URL+"/v1/search", map[string]any{"center": map[string]float64{"latitude": 40.71, "longitude": -74.0}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "monthly search quota exceeded", decodeBody(t, resp)["error"])
}

func TestLoadMore(t *testing.T) {
	srv, eng := newTestServer(t, 10)
	resp := post(t, srv.URL+"/v1/search/more", map[string]any{
		"query": map[string]any{"center": map[string]float64{"latitude": 42.36, "longitude": -71.06}},
		"shown": []string{"Neptune Oyster"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["places"], 1)
	assert.Equal(t, false, body["can_load_more"])
	assert.Equal(t, []string{"Neptune Oyster"}, eng.reqs[0].ExcludeNames)
}

func TestLastSearch(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	resp, err := http.Get(srv.URL + "/v1/search/last")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	post(t, srv.URL+"/v1/search", map[string]any{"center": map[string]float64{"latitude": 42.36, "longitude": -71.06}})
	resp, err = http.Get(srv.URL + "/v1/search/last")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["from_cache"])
}

func TestTipsAndUsage(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	resp := post(t, srv.URL+"/v1/places/tips", map[string]any{"name": "Toro"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Sit at the bar at Toro."}, decodeBody(t, resp)["tips"])

	resp = post(t, srv.URL+"/v1/places/tips", map[string]any{"category": "EAT"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "name is required")

	u, err := http.Get(srv.URL + "/v1/usage")
	require.NoError(t, err)
	defer u.Body.Close()
	body := decodeBody(t, u)
	assert.EqualValues(t, 10, body["limit"])
	assert.EqualValues(t, 10, body["remaining"])
	assert.EqualValues(t, 1, body["place_view_count"])
}

func TestRateLimit(t *testing.T) {
	st := store.NewMemory()
	svc := search.New(search.Deps{
		Engine:     &stubEngine{},
		Grid:       cache.NewGridCache(st),
		LastSearch: cache.NewLastSearchCache(st),
		Governor:   usage.NewGovernor(st, 10),
	}, search.Config{})
	srv := httptest.NewServer(NewServer(svc, nil, Config{RequestsPerMin: 1}).Handler())
	defer srv.Close()

	first, err := http.Get(srv.URL + "/v1/usage")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/v1/usage")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusFor(usage.ErrQuotaExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
