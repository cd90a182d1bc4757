package aggregate

import (
	"math"
	"sort"

	"github.com/sells-group/placefinder/internal/model"
)

// Popularity scores a candidate as rating (0-5) times log10(reviews + 10),
// so an unrated place scores zero and review volume has diminishing weight.
func Popularity(c *model.Candidate) float64 {
	return c.NormalizedRating() * math.Log10(float64(c.ReviewCount)+10)
}

// rank orders entries by descending popularity. When the category filter is
// set and excludes EAT, a popularity gap under tieBand (relative to the larger
// score) does not reorder, so the upstream ranking survives near-ties.
// Chains flagged for deprioritizing always follow independents.
func rank(entries []*entry, cats []model.Category, tieBand float64) {
	for _, en := range entries {
		en.popularity = Popularity(&en.c)
	}

	banded := len(cats) > 0 && !model.CategoryEat.In(cats)
	if !banded {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].chain != entries[j].chain {
				return !entries[i].chain
			}
			return entries[i].popularity > entries[j].popularity
		})
		return
	}

	// The banded comparison is not transitive, so a plain insertion sort
	// keeps the outcome deterministic.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && ahead(entries[j], entries[j-1], tieBand); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// ahead reports whether a should move in front of b.
func ahead(a, b *entry, tieBand float64) bool {
	if a.chain != b.chain {
		return !a.chain
	}
	if a.popularity <= b.popularity {
		return false
	}
	return (a.popularity-b.popularity)/a.popularity >= tieBand
}
