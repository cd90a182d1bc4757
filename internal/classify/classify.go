// Package classify maps provider category tags onto the EAT / DRINK / EXPLORE
// taxonomy and flags national chains.
package classify

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/placefinder/internal/model"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Taxonomy holds the id table and keyword lists used by a Classifier.
type Taxonomy struct {
	CategoryIDs    map[string]model.Category `yaml:"category_ids"`
	NonHospitality []string                  `yaml:"non_hospitality"`
	Food           []string                  `yaml:"food"`
	Drink          []string                  `yaml:"drink"`
	Explore        []string                  `yaml:"explore"`
}

// Classifier assigns a category to a set of raw provider tags.
type Classifier struct {
	tax Taxonomy
}

// ParseTaxonomy decodes a taxonomy document with a top-level "taxonomy" key.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var wrapper struct {
		Taxonomy Taxonomy `yaml:"taxonomy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse taxonomy")
	}
	t := &wrapper.Taxonomy
	for id, c := range t.CategoryIDs {
		if c != model.CategoryUnknown && !c.Valid() {
			return nil, eris.Errorf("classify: category id %s maps to invalid category %q", id, c)
		}
	}
	t.NonHospitality = lowerAll(t.NonHospitality)
	t.Food = lowerAll(t.Food)
	t.Drink = lowerAll(t.Drink)
	t.Explore = lowerAll(t.Explore)
	return t, nil
}

// New builds a Classifier from t.
func New(t Taxonomy) *Classifier {
	return &Classifier{tax: t}
}

var loadDefault = sync.OnceValues(func() (*Classifier, error) {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		return nil, err
	}
	return New(*t), nil
})

// Default returns the classifier built from the embedded taxonomy.
func Default() *Classifier {
	c, err := loadDefault()
	if err != nil {
		// The embedded document is covered by tests.
		panic(err)
	}
	return c
}

// Classify maps tags (primary tag first) and an optional provider category id
// onto a category. An exact id match wins. Otherwise non-hospitality tags force
// UNKNOWN unless food service is also indicated, and the first tag matching a
// drink, explore, or food keyword decides.
func (c *Classifier) Classify(tags []string, categoryID string) model.Category {
	if categoryID != "" {
		if cat, ok := c.tax.CategoryIDs[categoryID]; ok {
			return cat
		}
	}

	lower := lowerAll(tags)
	if c.nonHospitality(lower) {
		return model.CategoryUnknown
	}

	for _, tag := range lower {
		switch {
		case matches(tag, c.tax.Drink):
			return model.CategoryDrink
		case matches(tag, c.tax.Explore):
			return model.CategoryExplore
		case matches(tag, c.tax.Food):
			return model.CategoryEat
		}
	}
	return model.CategoryUnknown
}

// IsNonHospitality reports whether the tags mark a business that is not a
// place to eat, drink, or explore. Food-service tags override the denylist.
func (c *Classifier) IsNonHospitality(tags []string) bool {
	return c.nonHospitality(lowerAll(tags))
}

func (c *Classifier) nonHospitality(lower []string) bool {
	return containsAny(lower, c.tax.NonHospitality) && !containsAny(lower, c.tax.Food)
}

func containsAny(tags, keywords []string) bool {
	for _, t := range tags {
		if matches(t, keywords) {
			return true
		}
	}
	return false
}

func matches(tag string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(tag, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
