package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/cache"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Name() string { return "mock" }

func (m *mockResolver) ResolveByName(ctx context.Context, name string, center model.Coordinates, radiusMeters int) (*model.Details, error) {
	args := m.Called(ctx, name, center, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Details), args.Error(1)
}

func (m *mockResolver) ResolveByID(ctx context.Context, providerID string) (*model.Details, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Details), args.Error(1)
}

func TestCachedResolver_ByIDHitsCacheSecondTime(t *testing.T) {
	ctx := context.Background()
	inner := &mockResolver{}
	inner.On("ResolveByID", mock.Anything, "id-1").Return(&model.Details{ProviderID: "id-1", Name: "A"}, nil).Once()

	r := NewCachedResolver(inner, cache.NewDetailsCache(store.NewMemory()))
	assert.Equal(t, "mock", r.Name())

	for i := 0; i < 3; i++ {
		d, err := r.ResolveByID(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "A", d.Name)
	}
	inner.AssertExpectations(t)
}

func TestCachedResolver_ByNameStoresBothKeys(t *testing.T) {
	ctx := context.Background()
	inner := &mockResolver{}
	inner.On("ResolveByName", mock.Anything, "Neptune Oyster", boston, 5000).
		Return(&model.Details{ProviderID: "ChIJ-n", Name: "Neptune Oyster"}, nil).Once()

	dc := cache.NewDetailsCache(store.NewMemory())
	r := NewCachedResolver(inner, dc)

	_, err := r.ResolveByName(ctx, "Neptune Oyster", boston, 5000)
	require.NoError(t, err)
	d, err := r.ResolveByName(ctx, " neptune oyster", boston, 5000)
	require.NoError(t, err)
	assert.Equal(t, "ChIJ-n", d.ProviderID)

	_, ok, err := dc.Lookup(ctx, "ChIJ-n")
	require.NoError(t, err)
	assert.True(t, ok)
	inner.AssertExpectations(t)
}

func TestCachedResolver_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &mockResolver{}
	inner.On("ResolveByID", mock.Anything, "x").Return(nil, ErrNotFound).Twice()

	r := NewCachedResolver(inner, cache.NewDetailsCache(store.NewMemory()))
	_, err := r.ResolveByID(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.ResolveByID(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	inner.AssertExpectations(t)
}
