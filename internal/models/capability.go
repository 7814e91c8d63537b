package models

import (
	"fmt"
	"sort"
)

// Feature names a storefront UI affordance that may or may not exist
type Feature string

// Probed features
const (
	FeatureFilterPanel          Feature = "filter_panel"
	FeatureBrandFilter          Feature = "brand_filter"
	FeatureBrandFilterEffective Feature = "brand_filter_effective"
	FeaturePriceInputs          Feature = "price_inputs"
	FeaturePriceSlider          Feature = "price_slider"
	FeatureSortDropdown         Feature = "sort_dropdown"
	FeatureViewToggle           Feature = "view_toggle"
	FeaturePagination           Feature = "pagination"
	FeatureResultsPerPage       Feature = "results_per_page"
	FeatureClearFilters         Feature = "clear_filters"
	FeatureApplyFilters         Feature = "apply_filters"
)

// Features exercised by scenarios but not probed
const (
	FeatureCatalog     Feature = "catalog"
	FeatureCart        Feature = "cart"
	FeatureLogin       Feature = "login"
	FeaturePerformance Feature = "performance"
)

// ProbedFeatures lists the filter-panel affordances the probe checks, in probe order
func ProbedFeatures() []Feature {
	return []Feature{
		FeatureFilterPanel,
		FeatureBrandFilter,
		FeaturePriceInputs,
		FeaturePriceSlider,
		FeatureSortDropdown,
		FeatureViewToggle,
		FeaturePagination,
		FeatureResultsPerPage,
		FeatureClearFilters,
		FeatureApplyFilters,
		FeatureBrandFilterEffective,
	}
}

// CapabilityStatus is the outcome of probing or exercising a feature
type CapabilityStatus string

// Capability statuses
const (
	CapabilityPresent CapabilityStatus = "present"
	CapabilityAbsent  CapabilityStatus = "absent"
	CapabilityError   CapabilityStatus = "error"
)

// Capability keeps "feature absent" and "operation failed" distinguishable
type Capability struct {
	Feature Feature
	Status  CapabilityStatus
	Detail  string
	Err     error
}

// Present reports a working feature
func Present(feature Feature, detail string) Capability {
	return Capability{Feature: feature, Status: CapabilityPresent, Detail: detail}
}

// Absent reports a feature the page does not offer
func Absent(feature Feature, detail string) Capability {
	return Capability{Feature: feature, Status: CapabilityAbsent, Detail: detail}
}

// Failed reports a feature whose operation errored
func Failed(feature Feature, err error) Capability {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Capability{Feature: feature, Status: CapabilityError, Detail: detail, Err: err}
}

// IsPresent returns true if the feature worked
func (c Capability) IsPresent() bool {
	return c.Status == CapabilityPresent
}

// IsAbsent returns true if the feature does not exist on the page
func (c Capability) IsAbsent() bool {
	return c.Status == CapabilityAbsent
}

// IsError returns true if exercising the feature failed
func (c Capability) IsError() bool {
	return c.Status == CapabilityError
}

func (c Capability) String() string {
	if c.Detail == "" {
		return fmt.Sprintf("%s: %s", c.Feature, c.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", c.Feature, c.Status, c.Detail)
}

// CapabilityReport is the typed result of the probe phase
type CapabilityReport map[Feature]Capability

// NewCapabilityReport indexes the capabilities by feature; later entries win
func NewCapabilityReport(caps ...Capability) CapabilityReport {
	report := make(CapabilityReport, len(caps))
	for _, c := range caps {
		report[c.Feature] = c
	}
	return report
}

// Set records a capability
func (r CapabilityReport) Set(c Capability) {
	r[c.Feature] = c
}

// Has reports whether the feature was probed and found working
func (r CapabilityReport) Has(feature Feature) bool {
	c, ok := r[feature]
	return ok && c.IsPresent()
}

// Get returns the capability for a feature; unprobed features read as absent
func (r CapabilityReport) Get(feature Feature) Capability {
	if c, ok := r[feature]; ok {
		return c
	}
	return Absent(feature, "not probed")
}

// Missing lists absent features in name order
func (r CapabilityReport) Missing() []Feature {
	return r.withStatus(CapabilityAbsent)
}

// Errors lists features whose probe errored in name order
func (r CapabilityReport) Errors() []Feature {
	return r.withStatus(CapabilityError)
}

// Sorted returns the capabilities ordered by feature name
func (r CapabilityReport) Sorted() []Capability {
	caps := make([]Capability, 0, len(r))
	for _, c := range r {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Feature < caps[j].Feature })
	return caps
}

func (r CapabilityReport) withStatus(status CapabilityStatus) []Feature {
	var out []Feature
	for _, c := range r.Sorted() {
		if c.Status == status {
			out = append(out, c.Feature)
		}
	}
	return out
}
