package models

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Brand is the canonical brand of a listed product
type Brand string

// Brands sold by the storefront
const (
	BrandIPhone  Brand = "iPhone"
	BrandGalaxy  Brand = "Galaxy"
	BrandPixel   Brand = "Pixel"
	BrandOnePlus Brand = "OnePlus"
	BrandUnknown Brand = "Unknown"
)

// AllBrands returns the filterable brands in display order
func AllBrands() []Brand {
	return []Brand{BrandIPhone, BrandGalaxy, BrandPixel, BrandOnePlus}
}

// ParseBrand maps a symbolic brand name, including the vendor aliases
// Apple, Samsung and Google, to its canonical Brand
func ParseBrand(name string) (Brand, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iphone", "apple":
		return BrandIPhone, nil
	case "galaxy", "samsung":
		return BrandGalaxy, nil
	case "pixel", "google":
		return BrandPixel, nil
	case "oneplus", "one plus":
		return BrandOnePlus, nil
	default:
		return "", &UnknownFilterError{Kind: "brand", Name: name}
	}
}

// ParseBrands parses every name, failing on the first unmapped one
func ParseBrands(names []string) ([]Brand, error) {
	brands := make([]Brand, 0, len(names))
	for _, name := range names {
		b, err := ParseBrand(name)
		if err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, nil
}

// String returns the display name of the brand
func (b Brand) String() string {
	return string(b)
}

// Product is one product card parsed from the current listing render.
// Index is only meaningful until the next navigation.
type Product struct {
	Index       int     `json:"index"`
	Title       string  `json:"title"`
	Brand       Brand   `json:"brand"`
	Price       float64 `json:"price"`
	PriceText   string  `json:"priceText"`
	IsAvailable bool    `json:"isAvailable"`
}

// brandKeywords is matched in order against lower-cased titles
var brandKeywords = []struct {
	keyword string
	brand   Brand
}{
	{"iphone", BrandIPhone},
	{"galaxy", BrandGalaxy},
	{"pixel", BrandPixel},
	{"oneplus", BrandOnePlus},
	{"one plus", BrandOnePlus},
}

var priceDigits = regexp.MustCompile(`[\d.]+`)

// ExtractPriceValue parses a displayed price such as "$1,099.00".
// Text without digits yields 0.
func ExtractPriceValue(priceText string) float64 {
	if priceText == "" {
		return 0
	}

	cleaned := strings.NewReplacer("$", "", ",", "").Replace(priceText)
	match := priceDigits.FindString(cleaned)
	if match == "" {
		return 0
	}

	// Keep the leading well-formed number ("1.2.3" reads as 1.2)
	if first := strings.IndexByte(match, '.'); first >= 0 {
		if second := strings.IndexByte(match[first+1:], '.'); second >= 0 {
			match = match[:first+1+second]
		}
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

// ExtractBrandFromTitle derives the brand from a product title by keyword
func ExtractBrandFromTitle(title string) Brand {
	if title == "" {
		return BrandUnknown
	}

	lower := strings.ToLower(title)
	for _, kw := range brandKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.brand
		}
	}
	return BrandUnknown
}

// NewProduct builds a record from the raw card texts
func NewProduct(index int, title, priceText string, available bool) Product {
	return Product{
		Index:       index,
		Title:       title,
		Brand:       ExtractBrandFromTitle(title),
		Price:       ExtractPriceValue(priceText),
		PriceText:   priceText,
		IsAvailable: available,
	}
}

// ProductRules bound what a scraped record may look like
type ProductRules struct {
	MinTitleLength int     `yaml:"min_title_length"`
	MinPrice       float64 `yaml:"min_price"`
	MaxPrice       float64 `yaml:"max_price"`
}

// DefaultProductRules are the bounds of the reference catalog
func DefaultProductRules() ProductRules {
	return ProductRules{MinTitleLength: 3, MinPrice: 50, MaxPrice: 5000}
}

// Validate reports data-quality issues with the record under rules
func (p Product) Validate(rules ProductRules) []string {
	var issues []string

	title := strings.TrimSpace(p.Title)
	switch {
	case title == "":
		issues = append(issues, "missing or empty title")
	case !p.HasValidTitle(rules.MinTitleLength):
		issues = append(issues, "title too short: "+strconv.Quote(title))
	}

	switch {
	case p.Price <= 0:
		issues = append(issues, "invalid price: "+strconv.FormatFloat(p.Price, 'f', -1, 64))
	case p.Price < rules.MinPrice || (rules.MaxPrice > 0 && p.Price > rules.MaxPrice):
		issues = append(issues, "price out of expected range: $"+strconv.FormatFloat(p.Price, 'f', 2, 64))
	}

	if p.Brand == "" || p.Brand == BrandUnknown {
		issues = append(issues, "brand not extracted from "+strconv.Quote(p.Title))
	}

	return issues
}

// HasValidTitle reports whether the trimmed title has at least minLength
// characters; a title is never valid when empty
func (p Product) HasValidTitle(minLength int) bool {
	n := len([]rune(strings.TrimSpace(p.Title)))
	return n > 0 && n >= minLength
}

// FilterByBrand returns the products of the given brand
func FilterByBrand(products []Product, brand Brand) []Product {
	var out []Product
	for _, p := range products {
		if strings.EqualFold(string(p.Brand), string(brand)) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByBrands returns the products matching any of the given brands
func FilterByBrands(products []Product, brands []Brand) []Product {
	var out []Product
	for _, p := range products {
		for _, b := range brands {
			if p.Brand == b {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// FilterByPriceRange returns the products priced within [min, max]
func FilterByPriceRange(products []Product, min, max float64) []Product {
	var out []Product
	for _, p := range products {
		if p.Price >= min && p.Price <= max {
			out = append(out, p)
		}
	}
	return out
}

// CountByBrand tallies products per brand
func CountByBrand(products []Product) map[Brand]int {
	counts := make(map[Brand]int)
	for _, p := range products {
		counts[p.Brand]++
	}
	return counts
}

// PriceStats summarises the price distribution of a listing
type PriceStats struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// ComputePriceStats returns the price summary; an empty listing yields zeros
func ComputePriceStats(products []Product) PriceStats {
	if len(products) == 0 {
		return PriceStats{}
	}

	prices := make([]float64, len(products))
	var sum float64
	for i, p := range products {
		prices[i] = p.Price
		sum += p.Price
	}
	sort.Float64s(prices)

	return PriceStats{
		Min:    prices[0],
		Max:    prices[len(prices)-1],
		Mean:   sum / float64(len(prices)),
		Median: prices[len(prices)/2],
	}
}

// Titles returns the product titles in listing order
func Titles(products []Product) []string {
	titles := make([]string, len(products))
	for i, p := range products {
		titles[i] = p.Title
	}
	return titles
}
