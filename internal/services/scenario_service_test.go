package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
)

func TestDefaultScenarios(t *testing.T) {
	scenarios := DefaultScenarios(fixtures.MustLoad())

	seen := make(map[string]bool)
	for _, s := range scenarios {
		assert.NotEmpty(t, s.Name)
		assert.NotNil(t, s.Run, s.Name)
		assert.False(t, seen[s.Name], "duplicate scenario %s", s.Name)
		seen[s.Name] = true
	}

	for _, name := range []string{
		"catalog/display",
		"cart/add",
		"cart/add-multiple",
		"filter/brand/iphone",
		"filter/brands/iphone-galaxy-pixel-oneplus",
		"filter/price/budget-phones",
		"filter/sort/price_asc",
		"filter/complex/iphone-premium-range",
		"filter/edge/no-results-scenario",
		"performance/filters/rapid-filter-changes",
		"performance/interactions",
		"login/user/locked_user",
		"login/empty-fields",
	} {
		assert.True(t, seen[name], "missing scenario %s", name)
	}
}

func TestSelectScenarios(t *testing.T) {
	all := DefaultScenarios(fixtures.MustLoad())

	tests := []struct {
		name     string
		prefixes []string
		want     int
	}{
		{name: "no prefixes keeps everything", want: len(all)},
		{name: "single brands", prefixes: []string{"filter/brand/"}, want: 4},
		{name: "brand combinations", prefixes: []string{"filter/brands/"}, want: 11},
		{name: "login and cart", prefixes: []string{"login/", "cart/"}, want: 9},
		{name: "unknown prefix", prefixes: []string{"checkout/"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SelectScenarios(all, tt.prefixes), tt.want)
		})
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Budget phones":            "budget-phones",
		"iPhone-Galaxy":            "iphone-galaxy",
		"Invalid range (min > max)": "invalid-range-min-max",
		"price_desc":               "price_desc",
		"  padded  ":               "padded",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}

func TestSortedBy(t *testing.T) {
	products := func(titles ...string) []models.Product {
		out := make([]models.Product, len(titles))
		for i, title := range titles {
			out[i] = models.Product{Title: title, Price: float64(100 * (i + 1))}
		}
		return out
	}

	tests := []struct {
		name          string
		products      []models.Product
		key           models.SortKey
		wantOK        bool
		wantCheckable bool
	}{
		{name: "ascending prices", products: products("b", "a", "c"), key: models.SortPriceAsc, wantOK: true, wantCheckable: true},
		{name: "prices not descending", products: products("b", "a", "c"), key: models.SortPriceDesc, wantOK: false, wantCheckable: true},
		{name: "names ignore case", products: products("galaxy", "iPhone", "Pixel"), key: models.SortNameAsc, wantOK: true, wantCheckable: true},
		{name: "names not descending", products: products("a", "b"), key: models.SortNameDesc, wantOK: false, wantCheckable: true},
		{name: "popularity has no data", products: products("a"), key: models.SortPopularity},
		{name: "empty listing is ordered", key: models.SortPriceAsc, wantOK: true, wantCheckable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, checkable := sortedBy(tt.products, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCheckable, checkable)
		})
	}
}
