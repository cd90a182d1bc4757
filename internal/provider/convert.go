package provider

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placefinder/internal/model"
)

// candidateFromDetails builds a candidate whose every field comes from a
// typed upstream response already parsed into details.
func candidateFromDetails(d *model.Details, source string, order int) model.Candidate {
	c := model.Candidate{
		Name:   d.Name,
		Source: source,
		Order:  order,
	}
	c.Apply(d)
	return c
}

// sameName reports whether an upstream name refers to the requested one.
// Normalized names must be equal, or one must contain the other when the
// shorter is long enough to be distinctive.
func sameName(want, got string) bool {
	w, g := model.NormalizeName(want), model.NormalizeName(got)
	if w == "" || g == "" {
		return false
	}
	if w == g {
		return true
	}
	short, long := w, g
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= 5 && strings.Contains(long, short)
}

func errNoMatch(name string) error {
	return eris.Errorf("no result matching %q", name)
}
