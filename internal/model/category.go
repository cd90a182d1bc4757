package model

import "strings"

// Category is the fixed app taxonomy.
type Category string

const (
	CategoryEat     Category = "EAT"
	CategoryDrink   Category = "DRINK"
	CategoryExplore Category = "EXPLORE"
	CategoryUnknown Category = "UNKNOWN"
)

// Categories lists the categories that can appear in a result.
var Categories = []Category{CategoryEat, CategoryDrink, CategoryExplore}

// ParseCategory parses a category name case-insensitively. The legacy
// "SIGHTS" and "ACTIVITIES" names fold into EXPLORE.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EAT", "FOOD", "RESTAURANT":
		return CategoryEat, true
	case "DRINK", "DRINKS", "BAR":
		return CategoryDrink, true
	case "EXPLORE", "SIGHTS", "ACTIVITIES", "ACTIVITY":
		return CategoryExplore, true
	default:
		return CategoryUnknown, false
	}
}

// In reports whether c is in cats.
func (c Category) In(cats []Category) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

// Valid reports whether c may appear in a final result.
func (c Category) Valid() bool {
	return c == CategoryEat || c == CategoryDrink || c == CategoryExplore
}
