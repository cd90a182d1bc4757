package tips

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/provider"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) Tips(ctx context.Context, id string, limit int) ([]string, error) {
	args := m.Called(ctx, id, limit)
	tips, _ := args.Get(0).([]string)
	return tips, args.Error(1)
}

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Write(ctx context.Context, p model.Place, count int) ([]string, error) {
	args := m.Called(ctx, p, count)
	tips, _ := args.Get(0).([]string)
	return tips, args.Error(1)
}

var fsqPlace = model.Place{Name: "Tatte", Source: provider.SourceFoursquare, ProviderID: "4b0"}

func TestGenerate_PrefersProviderTips(t *testing.T) {
	src := &mockSource{}
	src.On("Tips", mock.Anything, "4b0", 3).Return([]string{"Get the shakshuka."}, nil)
	w := &mockWriter{}

	g := NewGenerator(map[string]Source{provider.SourceFoursquare: src}, w, 0)
	tips, err := g.Generate(context.Background(), fsqPlace)
	require.NoError(t, err)
	assert.Equal(t, []string{"Get the shakshuka."}, tips)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_FallsBackToWriter(t *testing.T) {
	tests := []struct {
		name  string
		tips  []string
		err   error
		place model.Place
	}{
		{name: "no provider tips", place: fsqPlace},
		{name: "provider unavailable", err: &provider.Error{Kind: provider.ErrUnavailable, Err: errors.New("503")}, place: fsqPlace},
		{name: "other source", place: model.Place{Name: "Toro", Source: provider.SourceGoogle, ProviderID: "ChIJ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{}
			src.On("Tips", mock.Anything, mock.Anything, mock.Anything).Return(tt.tips, tt.err).Maybe()
			w := &mockWriter{}
			w.On("Write", mock.Anything, tt.place, 2).Return([]string{"Book ahead."}, nil)

			g := NewGenerator(map[string]Source{provider.SourceFoursquare: src}, w, 2)
			tips, err := g.Generate(context.Background(), tt.place)
			require.NoError(t, err)
			assert.Equal(t, []string{"Book ahead."}, tips)
		})
	}
}

func TestGenerate_FatalProviderErrorStops(t *testing.T) {
	src := &mockSource{}
	src.On("Tips", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &provider.Error{Kind: provider.ErrMisconfigured, Err: errors.New("401")})

	g := NewGenerator(map[string]Source{provider.SourceFoursquare: src}, &mockWriter{}, 3)
	_, err := g.Generate(context.Background(), fsqPlace)
	assert.ErrorIs(t, err, provider.ErrMisconfigured)
}

func TestGenerate_NoTips(t *testing.T) {
	_, err := NewGenerator(nil, nil, 3).Generate(context.Background(), fsqPlace)
	assert.ErrorIs(t, err, ErrNoTips)

	w := &mockWriter{}
	w.On("Write", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &provider.Error{Kind: provider.ErrNotFound, Err: errors.New("empty")})
	_, err = NewGenerator(nil, w, 3).Generate(context.Background(), fsqPlace)
	assert.ErrorIs(t, err, ErrNoTips)
}
