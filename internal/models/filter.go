package models

import "strings"

// SortKey identifies a listing sort order
type SortKey string

// Sort keys
const (
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortNameAsc    SortKey = "name_asc"
	SortNameDesc   SortKey = "name_desc"
	SortPopularity SortKey = "popularity"
	SortRating     SortKey = "rating"
	SortNewest     SortKey = "newest"
)

// ParseSortKey maps a symbolic sort name to a SortKey
func ParseSortKey(name string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(name))); key {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortPopularity, SortRating, SortNewest:
		return key, nil
	default:
		return "", &UnknownFilterError{Kind: "sort", Name: name}
	}
}

// ViewMode is the listing layout
type ViewMode string

// View modes
const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// ParseViewMode maps a symbolic view name to a ViewMode
func ParseViewMode(name string) (ViewMode, error) {
	switch mode := ViewMode(strings.ToLower(strings.TrimSpace(name))); mode {
	case ViewGrid, ViewList:
		return mode, nil
	default:
		return "", &UnknownFilterError{Kind: "view", Name: name}
	}
}

// Price range defaults used when the panel exposes no price inputs
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 999999
)

// PriceRange is a closed price interval
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// PriceInput is a raw, possibly invalid, pair of price field values
type PriceInput struct {
	Min         string `yaml:"min"`
	Max         string `yaml:"max"`
	Description string `yaml:"description"`
}

// FilterState is a snapshot of the filter panel read from the live DOM
type FilterState struct {
	SelectedBrands []Brand
	PriceRange     PriceRange
	Sort           string
	View           ViewMode
}

// HasBrand reports whether the brand is selected in the snapshot
func (s FilterState) HasBrand(b Brand) bool {
	for _, selected := range s.SelectedBrands {
		if selected == b {
			return true
		}
	}
	return false
}
