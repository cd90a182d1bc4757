package aggregate

import (
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/classify"
	"github.com/sells-group/placefinder/internal/geo"
	"github.com/sells-group/placefinder/internal/metrics"
	"github.com/sells-group/placefinder/internal/model"
)

// Rejection is the reason a candidate was dropped.
type Rejection string

const (
	RejectDuplicate  Rejection = "duplicate"
	RejectChain      Rejection = "chain"
	RejectExcluded   Rejection = "excluded"
	RejectUnverified Rejection = "unverified"
	RejectCategory   Rejection = "category"
	RejectNotVenue   Rejection = "non_hospitality"
	RejectClosed     Rejection = "closed"
	RejectNoLocation Rejection = "no_location"
	RejectDistance   Rejection = "distance"
)

// entry is a candidate moving through one attempt.
type entry struct {
	c          model.Candidate
	discovered bool // from the discovery adapter; must be resolved to count
	resolved   bool
	category   model.Category
	chain      bool
	popularity float64
}

// filterState carries the per-attempt sets the filters check against.
// accepted holds the names of candidates that passed every filter.
type filterState struct {
	accepted map[string]bool
	excluded map[string]bool
	cats     []model.Category
	center   model.Coordinates
	maxKm    float64
}

func newFilterState(req Request, maxKm float64) *filterState {
	fs := &filterState{
		accepted: make(map[string]bool),
		excluded: make(map[string]bool, len(req.ExcludeNames)),
		cats:     req.Categories,
		center:   req.Center,
		maxKm:    maxKm,
	}
	for _, n := range req.ExcludeNames {
		if k := model.NormalizeName(n); k != "" {
			fs.excluded[k] = true
		}
	}
	return fs
}

// screen applies the checks that need no upstream details: duplicate of an
// accepted name, chain, and excluded name.
func (e *Engine) screen(fs *filterState, en *entry) (Rejection, bool) {
	key := model.NormalizeName(en.c.Name)
	if key == "" || fs.accepted[key] {
		return RejectDuplicate, false
	}
	if e.chains != nil && e.chains.IsChain(en.c.Name) {
		if e.cfg.ChainPolicy == classify.ChainExclude {
			return RejectChain, false
		}
		en.chain = true
	}
	if fs.excluded[key] {
		return RejectExcluded, false
	}
	return "", true
}

// validate applies the checks that need resolved details.
func (e *Engine) validate(fs *filterState, en *entry) (Rejection, bool) {
	if en.discovered && !en.resolved && e.providers.Details != nil {
		return RejectUnverified, false
	}

	en.category = e.categorize(&en.c)
	if !en.category.Valid() {
		if e.classifier.IsNonHospitality(en.c.CategoryTags) {
			return RejectNotVenue, false
		}
		return RejectCategory, false
	}
	if len(fs.cats) > 0 && !en.category.In(fs.cats) {
		return RejectCategory, false
	}
	if en.c.Status.Closed() {
		return RejectClosed, false
	}
	if en.c.Coordinates == nil {
		return RejectNoLocation, false
	}
	if !geo.WithinKm(fs.center, *en.c.Coordinates, fs.maxKm) {
		return RejectDistance, false
	}
	return "", true
}

// categorize classifies from tags and category id, falling back to the
// adapter's guess only when there is nothing to classify.
func (e *Engine) categorize(c *model.Candidate) model.Category {
	cat := e.classifier.Classify(c.CategoryTags, c.CategoryID)
	if cat == model.CategoryUnknown && len(c.CategoryTags) == 0 && c.CategoryID == "" && c.CategoryGuess.Valid() {
		return c.CategoryGuess
	}
	return cat
}

func reject(en *entry, reason Rejection) {
	metrics.Rejections.WithLabelValues(string(reason)).Inc()
	zap.L().Debug("aggregate: candidate rejected",
		zap.String("name", en.c.Name),
		zap.String("source", en.c.Source),
		zap.String("reason", string(reason)),
	)
}
