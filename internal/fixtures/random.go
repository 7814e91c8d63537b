package fixtures

import (
	"github.com/brianvoe/gofakeit/v7"
	"github.com/testathon/shopcheck/internal/models"
)

// RandomData is one randomly drawn filter combination
type RandomData struct {
	Brands         []models.Brand
	PriceRange     models.PriceRange
	Sort           models.SortKey
	View           models.ViewMode
	ResultsPerPage int
}

// Criteria returns the verification criteria of the brand and price draw
func (d RandomData) Criteria() models.Criteria {
	return models.Criteria{
		Brands:   d.Brands,
		MinPrice: models.Bound(d.PriceRange.Min),
		MaxPrice: models.Bound(d.PriceRange.Max),
	}
}

// RandomTestData draws a filter combination. The same non-zero seed always
// yields the same draw; seed 0 draws from a random source.
func (c *Catalog) RandomTestData(seed uint64) RandomData {
	f := gofakeit.New(seed)

	brands := make([]string, len(c.Brands))
	for i, b := range c.Brands {
		brands[i] = string(b)
	}
	f.ShuffleStrings(brands)
	picked := brands[:f.IntRange(1, len(brands))]

	data := RandomData{
		Brands: make([]models.Brand, len(picked)),
		PriceRange: models.PriceRange{
			Min: float64(f.IntRange(0, 800)),
			Max: float64(f.IntRange(800, 2000)),
		},
		ResultsPerPage: f.RandomInt(c.ResultsPerPage),
	}
	for i, b := range picked {
		data.Brands[i] = models.Brand(b)
	}

	sorts := make([]string, len(c.SortTypes))
	for i, s := range c.SortTypes {
		sorts[i] = string(s.Value)
	}
	data.Sort = models.SortKey(f.RandomString(sorts))

	views := make([]string, len(c.ViewTypes))
	for i, v := range c.ViewTypes {
		views[i] = string(v)
	}
	data.View = models.ViewMode(f.RandomString(views))

	return data
}
