package cache

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

func TestDetailsCache_StoreLookupExpire(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := NewDetailsCache(store.NewMemory(), WithNow(clk.now))

	d := &model.Details{ProviderID: "ChIJ123", Name: "Neptune Oyster", Address: "63 Salem St", Rating: 4.7, RatingScale: 5}
	require.NoError(t, c.Store(ctx, "ChIJ123", d))

	got, ok, err := c.Lookup(ctx, "ChIJ123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok, err = c.Lookup(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	clk.advance(24 * time.Hour)
	_, ok, err = c.Lookup(ctx, "ChIJ123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetailsCache_SweepsExpiredOnWrite(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	st := store.NewMemory()
	c := NewDetailsCache(st, WithNow(clk.now))

	require.NoError(t, c.Store(ctx, "old", &model.Details{ProviderID: "old"}))
	clk.advance(25 * time.Hour)
	require.NoError(t, c.Store(ctx, "new", &model.Details{ProviderID: "new"}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := st.Get(ctx, KeyDetails)
	require.NoError(t, err)
	var entries map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &entries))
	assert.Contains(t, entries, "new")
	assert.NotContains(t, entries, "old")
}

func TestDetailsCache_IgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := NewDetailsCache(st)
	require.NoError(t, c.Store(ctx, "", &model.Details{}))
	require.NoError(t, c.Store(ctx, "x", nil))
	_, err := st.Get(ctx, KeyDetails)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTipsCache(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := NewTipsCache(store.NewMemory(), WithNow(clk.now))

	require.NoError(t, c.Store(ctx, "Neptune Oyster", []string{"Arrive before 11:30", "Get the lobster roll hot"}))

	tips, ok, err := c.Lookup(ctx, "  NEPTUNE oyster ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, tips, 2)

	clk.advance(7 * 24 * time.Hour)
	_, ok, err = c.Lookup(ctx, "Neptune Oyster")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTipsCache_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, KeyTips, []byte(`["wrong shape"]`)))

	c := NewTipsCache(st)
	_, ok, err := c.Lookup(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = st.Get(ctx, KeyTips)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLastSearchCache(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	st := store.NewMemory()
	c := NewLastSearchCache(st, WithNow(clk.now))

	_, ok, err := c.Lookup(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, LastSearch{
		Places: samplePlaces("A", "B"),
		City:   "Boston",
		Center: boston,
		Query:  "pizza",
	}))

	clk.advance(23 * time.Hour)
	s, ok, err := c.Lookup(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Boston", s.City)
	assert.Equal(t, "pizza", s.Query)
	assert.Len(t, s.Places, 2)

	clk.advance(time.Hour)
	_, ok, err = c.Lookup(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = st.Get(ctx, KeyLastSearch)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHiddenNames(t *testing.T) {
	ctx := context.Background()
	h := NewHiddenNames(store.NewMemory())

	require.NoError(t, h.Hide(ctx, "Cheers Beacon Hill"))
	require.NoError(t, h.Hide(ctx, "  cheers beacon hill "))
	require.NoError(t, h.Hide(ctx, "Bell in Hand"))
	require.NoError(t, h.Hide(ctx, ""))

	names, err := h.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bell in Hand", "Cheers Beacon Hill"}, names)

	places := []model.Place{{Name: "Cheers Beacon Hill"}, {Name: "Union Oyster House"}, {Name: "BELL IN HAND"}}
	out, err := h.Filter(ctx, places)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Union Oyster House", out[0].Name)

	removed, err := h.Unhide(ctx, "bell in hand")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = h.Unhide(ctx, "bell in hand")
	require.NoError(t, err)
	assert.False(t, removed)

	names, err = h.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cheers Beacon Hill"}, names)
}
