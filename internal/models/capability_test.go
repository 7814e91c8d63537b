package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityReport(t *testing.T) {
	report := NewCapabilityReport(
		Present(FeatureBrandFilter, "4 brand checkboxes"),
		Absent(FeatureSortDropdown, "no sort control"),
		Failed(FeaturePriceInputs, errors.New("stale element")),
		Absent(FeatureBrandFilterEffective, "listing unchanged"),
	)

	assert.True(t, report.Has(FeatureBrandFilter))
	assert.False(t, report.Has(FeatureSortDropdown))
	assert.False(t, report.Has(FeaturePriceInputs))
	assert.False(t, report.Has(FeatureViewToggle))

	assert.Equal(t, []Feature{FeatureBrandFilterEffective, FeatureSortDropdown}, report.Missing())
	assert.Equal(t, []Feature{FeaturePriceInputs}, report.Errors())

	unprobed := report.Get(FeaturePagination)
	assert.True(t, unprobed.IsAbsent())
	assert.Equal(t, "not probed", unprobed.Detail)

	report.Set(Present(FeatureSortDropdown, "select[name=sort]"))
	assert.True(t, report.Has(FeatureSortDropdown))
	assert.Len(t, report.Sorted(), 4)
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "view_toggle: present", Present(FeatureViewToggle, "").String())
	assert.Equal(t, "pagination: absent (no pager)", Absent(FeaturePagination, "no pager").String())

	failed := Failed(FeatureApplyFilters, errors.New("boom"))
	assert.True(t, failed.IsError())
	assert.EqualError(t, failed.Err, "boom")
	assert.Equal(t, "apply_filters: error (boom)", failed.String())
}

func TestParseSortKeyAndViewMode(t *testing.T) {
	key, err := ParseSortKey("PRICE_DESC")
	assert.NoError(t, err)
	assert.Equal(t, SortPriceDesc, key)

	_, err = ParseSortKey("cheapest")
	assert.True(t, IsUnknownFilter(err))

	mode, err := ParseViewMode("list")
	assert.NoError(t, err)
	assert.Equal(t, ViewList, mode)

	_, err = ParseViewMode("carousel")
	assert.EqualError(t, err, `unknown view filter: "carousel"`)
}
