// Package tips produces short visitor tips for a place, preferring real user
// tips from the place's own provider and falling back to a language model.
package tips

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/provider"
)

// DefaultCount is the number of tips requested per place.
const DefaultCount = 3

// ErrNoTips is returned when no source produced a tip.
var ErrNoTips = eris.New("tips: none available")

// Source returns user tips for a provider place id.
type Source interface {
	Tips(ctx context.Context, providerID string, limit int) ([]string, error)
}

// Writer composes tips for a place from general knowledge.
type Writer interface {
	Write(ctx context.Context, p model.Place, count int) ([]string, error)
}

// Generator picks a tip source per place.
type Generator struct {
	sources map[string]Source
	writer  Writer
	count   int
}

// NewGenerator creates a generator. sources is keyed by place source name;
// writer may be nil.
func NewGenerator(sources map[string]Source, writer Writer, count int) *Generator {
	if count <= 0 {
		count = DefaultCount
	}
	return &Generator{sources: sources, writer: writer, count: count}
}

// Generate returns tips for p. Provider tips win when there are any; an
// upstream failure there falls through to the writer unless it is fatal.
func (g *Generator) Generate(ctx context.Context, p model.Place) ([]string, error) {
	if src, ok := g.sources[p.Source]; ok && p.ProviderID != "" {
		tips, err := src.Tips(ctx, p.ProviderID, g.count)
		switch {
		case err == nil && len(tips) > 0:
			return tips, nil
		case err != nil && provider.IsFatal(err):
			return nil, err
		case err != nil:
			zap.L().Warn("tips: provider tips failed, falling back",
				zap.String("place", p.Name),
				zap.String("source", p.Source),
				zap.Error(err),
			)
		}
	}

	if g.writer == nil {
		return nil, ErrNoTips
	}
	tips, err := g.writer.Write(ctx, p, g.count)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, ErrNoTips
	}
	if err != nil {
		return nil, eris.Wrapf(err, "tips: write for %q", p.Name)
	}
	return tips, nil
}
