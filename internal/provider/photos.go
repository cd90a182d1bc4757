package provider

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placefinder/internal/resilience"
)

// Photo aspect ratio bounds (width / height). Anything outside is a banner
// or a sliver and is dropped.
const (
	MinAspectRatio = 0.5
	MaxAspectRatio = 2.5
)

// PhotoRef is a photo known by an upstream. URL is set when the upstream
// returns it directly; otherwise PhotoSource.PhotoURL resolves Name.
type PhotoRef struct {
	Name   string
	URL    string
	Width  int
	Height int
}

// AspectOK reports whether the photo's proportions are usable. Photos with
// unknown dimensions are kept.
func (r PhotoRef) AspectOK() bool {
	if r.Width <= 0 || r.Height <= 0 {
		return true
	}
	ratio := float64(r.Width) / float64(r.Height)
	return ratio >= MinAspectRatio && ratio <= MaxAspectRatio
}

// PhotoSource lists a place's photos and resolves each to a URL.
type PhotoSource interface {
	Name() string
	ListPhotos(ctx context.Context, providerID string) ([]PhotoRef, error)
	PhotoURL(ctx context.Context, ref PhotoRef) (string, error)
}

// PhotoFetcher implements PhotoResolver over a PhotoSource. Every upstream
// call runs under the retry policy; a photo that still fails is skipped.
type PhotoFetcher struct {
	source PhotoSource
	policy resilience.RetryPolicy
}

// NewPhotoFetcher creates a fetcher using the photo retry policy.
func NewPhotoFetcher(source PhotoSource) *PhotoFetcher {
	p := resilience.PhotoRetryPolicy()
	p.OnRetry = resilience.RetryLogger(source.Name(), "photo")
	return &PhotoFetcher{source: source, policy: p}
}

// WithPolicy replaces the retry policy.
func (f *PhotoFetcher) WithPolicy(p resilience.RetryPolicy) *PhotoFetcher {
	f.policy = p
	return f
}

// Fetch implements PhotoResolver: filter by aspect ratio, order largest
// first, cap at maxCount, then resolve URLs preserving that order.
func (f *PhotoFetcher) Fetch(ctx context.Context, providerID string, maxCount int) ([]string, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	refs, err := resilience.DoVal(ctx, f.policy, func(ctx context.Context) ([]PhotoRef, error) {
		return f.source.ListPhotos(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}

	refs = selectPhotos(refs, maxCount)
	urls := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ref := range refs {
		g.Go(func() error {
			u, err := resilience.DoVal(gctx, f.policy, func(ctx context.Context) (string, error) {
				return f.source.PhotoURL(ctx, ref)
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("photo skipped",
					zap.String("provider", f.source.Name()),
					zap.String("photo", ref.Name),
					zap.Error(err),
				)
				return nil
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := urls[:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func selectPhotos(refs []PhotoRef, maxCount int) []PhotoRef {
	kept := make([]PhotoRef, 0, len(refs))
	for _, r := range refs {
		if r.AspectOK() {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Width*kept[i].Height > kept[j].Width*kept[j].Height
	})
	if len(kept) > maxCount {
		kept = kept[:maxCount]
	}
	return kept
}
