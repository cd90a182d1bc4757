package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placefinder/internal/model"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		tags       []string
		categoryID string
		want       model.Category
	}{
		{"id table wins", []string{"Hardware Store"}, "13065", model.CategoryEat},
		{"id table unknown", []string{"Restaurant"}, "17000", model.CategoryUnknown},
		{"unmapped id falls back to tags", []string{"Cocktail Bar"}, "99999", model.CategoryDrink},
		{"bar", []string{"Bar"}, "", model.CategoryDrink},
		{"coffee shop survives shop denylist", []string{"Coffee Shop"}, "", model.CategoryDrink},
		{"brewery", []string{"Brewery"}, "", model.CategoryDrink},
		{"museum", []string{"History Museum"}, "", model.CategoryExplore},
		{"escape room", []string{"Escape Room"}, "", model.CategoryExplore},
		{"mini golf", []string{"Mini Golf Course"}, "", model.CategoryExplore},
		{"vr", []string{"VR Lounge"}, "", model.CategoryExplore},
		{"day spa", []string{"Day Spa"}, "", model.CategoryExplore},
		{"spanish is not a spa", []string{"Spanish Restaurant"}, "", model.CategoryEat},
		{"google tourist attraction", []string{"tourist_attraction", "point_of_interest"}, "", model.CategoryExplore},
		{"restaurant", []string{"Italian Restaurant"}, "", model.CategoryEat},
		{"primary tag decides", []string{"restaurant", "bar", "food"}, "", model.CategoryEat},
		{"pharmacy", []string{"Pharmacy"}, "", model.CategoryUnknown},
		{"clothing store", []string{"Clothing Store"}, "", model.CategoryUnknown},
		{"medical center", []string{"Medical Center"}, "", model.CategoryUnknown},
		{"bakery shop is food", []string{"Bakery", "Shop"}, "", model.CategoryEat},
		{"bank", []string{"Bank", "point_of_interest"}, "", model.CategoryUnknown},
		{"grocery", []string{"Grocery Store"}, "", model.CategoryUnknown},
		{"food market hybrid", []string{"Food Market"}, "", model.CategoryEat},
		{"farmers market hybrid", []string{"Farmers Market", "Shop"}, "", model.CategoryEat},
		{"parking is not a park", []string{"Parking Garage"}, "", model.CategoryUnknown},
		{"no signal", []string{"point_of_interest", "establishment"}, "", model.CategoryUnknown},
		{"empty", nil, "", model.CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.tags, tt.categoryID))
		})
	}
}

func TestIsNonHospitality(t *testing.T) {
	c := Default()
	assert.True(t, c.IsNonHospitality([]string{"Clothing Store"}))
	assert.True(t, c.IsNonHospitality([]string{"Medical Center"}))
	assert.False(t, c.IsNonHospitality([]string{"Bakery", "Shop"}))
	assert.False(t, c.IsNonHospitality([]string{"Art Gallery"}))
}

func TestParseTaxonomy_InvalidCategory(t *testing.T) {
	_, err := ParseTaxonomy([]byte("taxonomy:\n  category_ids:\n    \"1\": SHOPPING\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")
}

func TestParseTaxonomy_Custom(t *testing.T) {
	tax, err := ParseTaxonomy([]byte("taxonomy:\n  drink: [\"Kava\"]\n"))
	require.NoError(t, err)
	c := New(*tax)
	assert.Equal(t, model.CategoryDrink, c.Classify([]string{"kava lounge"}, ""))
	assert.Equal(t, model.CategoryUnknown, c.Classify([]string{"restaurant"}, ""))
}

func TestChainFilter(t *testing.T) {
	f, err := NewChainFilter("Sweetgreen")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Len(), 30)

	tests := []struct {
		name string
		want bool
	}{
		{"Starbucks Coffee", true},
		{"  STARBUCKS  ", true},
		{"McDonald's", true},
		{"Dunkin' Donuts", true},
		{"Sweetgreen Back Bay", true},
		{"Neptune Oyster", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsChain(tt.name))
		})
	}
}

func TestParseChainPolicy(t *testing.T) {
	p, err := ParseChainPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ChainExclude, p)

	p, err = ParseChainPolicy("Deprioritize")
	require.NoError(t, err)
	assert.Equal(t, ChainDeprioritize, p)

	_, err = ParseChainPolicy("ban")
	assert.Error(t, err)
}
