package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/store"
)

// HiddenNames is the user's set of suppressed place names. It is applied as a
// post-filter on every result.
type HiddenNames struct {
	blob
}

// NewHiddenNames creates the hidden-names set on st.
func NewHiddenNames(st store.Store) *HiddenNames {
	return &HiddenNames{blob{st: st, key: KeyHidden, name: "hidden"}}
}

func (h *HiddenNames) read(ctx context.Context) ([]string, error) {
	var names []string
	if _, err := h.load(ctx, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Hide adds name to the set. Names already present (after normalization) are
// left alone.
func (h *HiddenNames) Hide(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.read(ctx)
	if err != nil {
		return err
	}
	key := model.NormalizeName(name)
	for _, n := range names {
		if model.NormalizeName(n) == key {
			return nil
		}
	}
	names = append(names, name)
	sort.Strings(names)
	return h.save(ctx, names)
}

// Unhide removes name from the set and reports whether it was present.
func (h *HiddenNames) Unhide(ctx context.Context, name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.read(ctx)
	if err != nil {
		return false, err
	}
	key := model.NormalizeName(name)
	kept := names[:0]
	removed := false
	for _, n := range names {
		if model.NormalizeName(n) == key {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if !removed {
		return false, nil
	}
	return true, h.save(ctx, kept)
}

// List returns the hidden names, sorted.
func (h *HiddenNames) List(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.read(ctx)
}

// Filter drops hidden places, preserving order.
func (h *HiddenNames) Filter(ctx context.Context, places []model.Place) ([]model.Place, error) {
	names, err := h.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return places, nil
	}
	hidden := make(map[string]bool, len(names))
	for _, n := range names {
		hidden[model.NormalizeName(n)] = true
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if !hidden[model.NormalizeName(p.Name)] {
			out = append(out, p)
		}
	}
	return out, nil
}
