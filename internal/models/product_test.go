package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPriceValue(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "plain dollars", text: "$799.00", want: 799},
		{name: "thousands separator", text: "$1,099.00", want: 1099},
		{name: "empty", text: "", want: 0},
		{name: "no digits", text: "Free", want: 0},
		{name: "surrounding text", text: "Now only $449.99!", want: 449.99},
		{name: "no currency symbol", text: "599", want: 599},
		{name: "double dot keeps leading number", text: "1.2.3", want: 1.2},
		{name: "lone dot", text: "$.", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExtractPriceValue(tt.text), 0.0001)
		})
	}
}

func TestExtractBrandFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  Brand
	}{
		{"iPhone 12 Pro Max", BrandIPhone},
		{"IPHONE XR", BrandIPhone},
		{"Galaxy Note 20 Ultra", BrandGalaxy},
		{"galaxy s9", BrandGalaxy},
		{"Pixel 4", BrandPixel},
		{"OnePlus 8T", BrandOnePlus},
		{"One Plus 7", BrandOnePlus},
		{"Nokia 3310", BrandUnknown},
		{"", BrandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBrandFromTitle(tt.title))
		})
	}
}

func TestParseBrand(t *testing.T) {
	tests := []struct {
		name    string
		want    Brand
		wantErr bool
	}{
		{name: "iPhone", want: BrandIPhone},
		{name: "Apple", want: BrandIPhone},
		{name: "samsung", want: BrandGalaxy},
		{name: "Google", want: BrandPixel},
		{name: " OnePlus ", want: BrandOnePlus},
		{name: "InvalidBrand", wantErr: true},
		{name: "12345", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBrand(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsUnknownFilter(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBrands_StopsAtFirstUnknown(t *testing.T) {
	_, err := ParseBrands([]string{"iPhone", "Nokia", "Pixel"})
	require.Error(t, err)

	var unknown *UnknownFilterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Nokia", unknown.Name)
	assert.Equal(t, "brand", unknown.Kind)
}

func TestNewProduct(t *testing.T) {
	p := NewProduct(3, "Galaxy S20+", "$1,249.00", true)

	assert.Equal(t, 3, p.Index)
	assert.Equal(t, BrandGalaxy, p.Brand)
	assert.Equal(t, 1249.0, p.Price)
	assert.Equal(t, "$1,249.00", p.PriceText)
	assert.True(t, p.IsAvailable)
}

func TestProduct_Validate(t *testing.T) {
	rules := DefaultProductRules()
	tests := []struct {
		name       string
		product    Product
		rules      ProductRules
		wantIssues int
	}{
		{name: "valid", product: NewProduct(0, "Pixel 4", "$819.00", true), rules: rules, wantIssues: 0},
		{name: "empty title", product: NewProduct(0, "", "$819.00", true), rules: rules, wantIssues: 2},
		{name: "short title", product: Product{Title: "X", Brand: BrandPixel, Price: 100}, rules: rules, wantIssues: 1},
		{name: "zero price", product: NewProduct(0, "Pixel 4", "", true), rules: rules, wantIssues: 1},
		{name: "price out of range", product: NewProduct(0, "Pixel 4", "$9,999.00", true), rules: rules, wantIssues: 1},
		{name: "unknown brand", product: NewProduct(0, "Nokia 3310", "$99.00", true), rules: rules, wantIssues: 1},
		{
			name:       "stricter title rule",
			product:    NewProduct(0, "Pixel 4", "$819.00", true),
			rules:      ProductRules{MinTitleLength: 10, MinPrice: 50, MaxPrice: 5000},
			wantIssues: 1,
		},
		{
			name:       "tighter price window",
			product:    NewProduct(0, "Pixel 4", "$819.00", true),
			rules:      ProductRules{MinTitleLength: 3, MinPrice: 900, MaxPrice: 1500},
			wantIssues: 1,
		},
		{
			name:       "no upper price bound",
			product:    NewProduct(0, "Pixel 4", "$9,999.00", true),
			rules:      ProductRules{MinTitleLength: 3, MinPrice: 50},
			wantIssues: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.product.Validate(tt.rules), tt.wantIssues)
		})
	}
}

func TestProduct_HasValidTitle(t *testing.T) {
	assert.True(t, Product{Title: " Pixel "}.HasValidTitle(5))
	assert.False(t, Product{Title: "Pix"}.HasValidTitle(5))
	assert.False(t, Product{Title: "   "}.HasValidTitle(0))
}

func TestFilterHelpers(t *testing.T) {
	products := []Product{
		NewProduct(0, "iPhone 12", "$849.00", true),
		NewProduct(1, "Galaxy S9", "$599.00", true),
		NewProduct(2, "Pixel 2", "$399.00", true),
		NewProduct(3, "Galaxy S20", "$999.00", true),
	}

	assert.Len(t, FilterByBrand(products, BrandGalaxy), 2)
	assert.Len(t, FilterByBrands(products, []Brand{BrandIPhone, BrandPixel}), 2)
	assert.Len(t, FilterByPriceRange(products, 500, 900), 2)
	assert.Equal(t, map[Brand]int{BrandIPhone: 1, BrandGalaxy: 2, BrandPixel: 1}, CountByBrand(products))
	assert.Equal(t, []string{"iPhone 12", "Galaxy S9", "Pixel 2", "Galaxy S20"}, Titles(products))
}

func TestComputePriceStats(t *testing.T) {
	products := []Product{
		{Price: 400}, {Price: 100}, {Price: 300}, {Price: 200},
	}

	stats := ComputePriceStats(products)
	assert.Equal(t, 100.0, stats.Min)
	assert.Equal(t, 400.0, stats.Max)
	assert.Equal(t, 250.0, stats.Mean)
	assert.Equal(t, 300.0, stats.Median)

	assert.Equal(t, PriceStats{}, ComputePriceStats(nil))
}
