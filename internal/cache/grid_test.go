package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

var boston = model.Coordinates{Latitude: 42.3601, Longitude: -71.0589}

// clock is a settable test clock.
type clock struct{ t time.Time }

func newClock() *clock                   { return &clock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)} }
func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func samplePlaces(names ...string) []model.Place {
	out := make([]model.Place, len(names))
	for i, n := range names {
		out[i] = model.Place{ID: fmt.Sprintf("p-%d", i), Name: n, Category: model.CategoryEat}
	}
	return out
}

func readGrid(t *testing.T, st store.Store) map[string]GridEntry {
	t.Helper()
	data, err := st.Get(context.Background(), KeyGrid)
	require.NoError(t, err)
	entries := map[string]GridEntry{}
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestGridCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := newClock()
	c := NewGridCache(st, WithNow(clk.now))

	places := samplePlaces("Neptune Oyster", "Giacomo's", "Regina Pizzeria")
	q := GridQuery{Center: boston, Category: model.CategoryEat, Query: "seafood"}
	require.NoError(t, c.Store(ctx, q, "Boston", places))

	before := readGrid(t, st)["42.36,-71.06:EAT"].SearchCount

	clk.advance(time.Minute)
	e, ok, err := c.Lookup(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, places, e.Places)
	assert.Equal(t, "Boston", e.City)
	assert.Equal(t, before+1, e.SearchCount)

	stored := readGrid(t, st)["42.36,-71.06:EAT"]
	assert.Equal(t, before+1, stored.SearchCount)
	assert.True(t, clk.now().Equal(stored.Timestamp))
}

func TestGridCache_SameCellDifferentPoint(t *testing.T) {
	ctx := context.Background()
	c := NewGridCache(store.NewMemory())
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston}, "Boston", samplePlaces("A")))

	_, ok, err := c.Lookup(ctx, GridQuery{Center: model.Coordinates{Latitude: 42.3630, Longitude: -71.0560}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGridCache_CategoryIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewGridCache(store.NewMemory())
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston, Category: model.CategoryEat}, "Boston", samplePlaces("A")))

	_, ok, err := c.Lookup(ctx, GridQuery{Center: boston, Category: model.CategoryDrink})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Lookup(ctx, GridQuery{Center: boston})
	require.NoError(t, err)
	assert.False(t, ok, "an all-category lookup must not hit a category entry")
}

func TestGridCache_QueryMismatch(t *testing.T) {
	ctx := context.Background()
	c := NewGridCache(store.NewMemory())
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston, Query: "ramen"}, "Boston", samplePlaces("A")))

	tests := []struct {
		query string
		hit   bool
	}{
		{"ramen", true},
		{"  RAMEN ", true},
		{"tacos", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, ok, err := c.Lookup(ctx, GridQuery{Center: boston, Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.hit, ok)
		})
	}
}

func TestGridCache_UnqueriedEntryServesQuery(t *testing.T) {
	ctx := context.Background()
	c := NewGridCache(store.NewMemory())
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston, Category: model.CategoryEat}, "Boston", samplePlaces("A")))

	e, ok, err := c.Lookup(ctx, GridQuery{Center: boston, Category: model.CategoryEat, Query: "pizza"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, e.SearchCount)
}

func TestGridCache_Expiry(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := newClock()
	c := NewGridCache(st, WithNow(clk.now))

	q := GridQuery{Center: boston, Category: model.CategoryExplore}
	require.NoError(t, c.Store(ctx, q, "Boston", samplePlaces("Freedom Trail")))

	clk.advance(6 * time.Hour)
	_, ok, err := c.Lookup(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, readGrid(t, st), "42.36,-71.06:EXPLORE")
}

func TestGridCache_HitRefreshesLifetime(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := NewGridCache(store.NewMemory(), WithNow(clk.now))
	q := GridQuery{Center: boston}
	require.NoError(t, c.Store(ctx, q, "Boston", samplePlaces("A")))

	clk.advance(5 * time.Hour)
	_, ok, err := c.Lookup(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)

	clk.advance(5 * time.Hour)
	_, ok, err = c.Lookup(ctx, q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGridCache_StoreIncrementsExisting(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := NewGridCache(st)
	q := GridQuery{Center: boston}
	require.NoError(t, c.Store(ctx, q, "Boston", samplePlaces("A")))
	require.NoError(t, c.Store(ctx, q, "Boston", samplePlaces("B")))

	e := readGrid(t, st)["42.36,-71.06:ALL"]
	assert.Equal(t, 2, e.SearchCount)
	assert.Equal(t, "B", e.Places[0].Name)
}

func TestGridCache_EvictsLowestSearchCount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := newClock()
	c := NewGridCache(st, WithNow(clk.now))

	cell := func(i int) GridQuery {
		return GridQuery{Center: model.Coordinates{Latitude: 40 + float64(i)*0.01, Longitude: -70}}
	}
	// 100 cells at count 2, except cell 1 which stays at 1.
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Store(ctx, cell(i), "", samplePlaces("A")))
		if i == 1 {
			continue
		}
		_, ok, err := c.Lookup(ctx, cell(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Len(t, readGrid(t, st), 100)

	clk.advance(time.Second)
	newcomer := GridQuery{Center: model.Coordinates{Latitude: 10, Longitude: 10}}
	require.NoError(t, c.Store(ctx, newcomer, "", samplePlaces("B")))

	entries := readGrid(t, st)
	assert.Len(t, entries, 100)
	assert.NotContains(t, entries, "40.01,-70.00:ALL")
	assert.Contains(t, entries, "10.00,10.00:ALL")
	assert.Contains(t, entries, "40.00,-70.00:ALL")
}

func TestGridCache_EvictionTieKeepsNewest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	clk := newClock()
	c := NewGridCache(st, WithNow(clk.now), WithCapacity(3))

	for i := 0; i < 4; i++ {
		clk.advance(time.Minute)
		q := GridQuery{Center: model.Coordinates{Latitude: float64(i), Longitude: 0}}
		require.NoError(t, c.Store(ctx, q, "", samplePlaces("A")))
	}

	entries := readGrid(t, st)
	assert.Len(t, entries, 3)
	assert.NotContains(t, entries, "0.00,0.00:ALL", "oldest of the equal-count entries goes first")
	assert.Contains(t, entries, "3.00,0.00:ALL")
}

func TestGridCache_CorruptBlobIsMissAndCleared(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, KeyGrid, []byte("{not json")))

	c := NewGridCache(st)
	_, ok, err := c.Lookup(ctx, GridQuery{Center: boston})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Get(ctx, KeyGrid)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The cache keeps working after the reset.
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston}, "Boston", samplePlaces("A")))
	_, ok, err = c.Lookup(ctx, GridQuery{Center: boston})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGridCache_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := NewGridCache(store.NewMemory(), WithNow(clk.now))
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston}, "", samplePlaces("A")))
	require.NoError(t, c.Store(ctx, GridQuery{Center: boston, Category: model.CategoryDrink}, "", samplePlaces("B")))

	s, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries)
	assert.Equal(t, 2, s.TotalSearches)
	assert.Equal(t, 1, s.ByCategory["ALL"])
	assert.Equal(t, 1, s.ByCategory[model.CategoryDrink])

	require.NoError(t, c.Clear(ctx))
	s, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Entries)
}

func TestCategoryKey(t *testing.T) {
	assert.Equal(t, model.Category(""), CategoryKey(nil))
	assert.Equal(t, model.Category(""), CategoryKey(model.Categories))
	assert.Equal(t, model.CategoryEat, CategoryKey([]model.Category{model.CategoryEat}))
	assert.Equal(t, model.Category("DRINK+EAT"), CategoryKey([]model.Category{model.CategoryEat, model.CategoryDrink, model.CategoryEat}))
	assert.Equal(t, model.Category(""), CategoryKey([]model.Category{model.CategoryUnknown}))
}
