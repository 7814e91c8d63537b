package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
)

// ProbeService discovers which filter affordances a storefront offers.
// Probing never asserts; scenarios consume the report afterwards.
type ProbeService interface {
	Probe(ctx context.Context, s *Session) (models.CapabilityReport, error)
}

// ProbeServiceImpl implements ProbeService
type ProbeServiceImpl struct {
	log *zap.Logger
}

// NewProbeService creates a new probe service
func NewProbeService(log *zap.Logger) ProbeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProbeServiceImpl{log: log}
}

// presenceChecks maps each structural feature to the locators that reveal it.
// A feature is present when every listed locator matches.
var presenceChecks = []struct {
	feature models.Feature
	locs    []pages.Locator
}{
	{models.FeatureBrandFilter, []pages.Locator{pages.BrandOptions}},
	{models.FeaturePriceInputs, []pages.Locator{pages.MinPrice, pages.MaxPrice}},
	{models.FeaturePriceSlider, []pages.Locator{pages.PriceSlider}},
	{models.FeatureSortDropdown, []pages.Locator{pages.SortDropdown}},
	{models.FeatureViewToggle, []pages.Locator{pages.GridView, pages.ListView}},
	{models.FeaturePagination, []pages.Locator{pages.Pagination}},
	{models.FeatureResultsPerPage, []pages.Locator{pages.ResultsPerPage}},
	{models.FeatureClearFilters, []pages.Locator{pages.ClearFilters}},
	{models.FeatureApplyFilters, []pages.Locator{pages.ApplyFilters}},
}

// Probe opens the listing, checks every filter affordance and finally
// whether selecting a brand actually narrows the listing. The session is
// left on a freshly loaded, unfiltered listing.
func (s *ProbeServiceImpl) Probe(ctx context.Context, sess *Session) (models.CapabilityReport, error) {
	if err := sess.Listing.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	baseline, err := sess.Listing.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape baseline: %w", err)
	}

	report := models.NewCapabilityReport(sess.Filters.OpenFilterPanel(ctx))
	for _, check := range presenceChecks {
		report.Set(presence(ctx, sess.Driver, check.feature, check.locs...))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Set(s.brandFilterEffective(ctx, sess, report, baseline))

	for _, c := range report.Sorted() {
		s.log.Info("capability probed",
			zap.String("feature", string(c.Feature)),
			zap.String("status", string(c.Status)),
			zap.String("detail", c.Detail))
	}
	return report, nil
}

func presence(ctx context.Context, d driver.Driver, feature models.Feature, locs ...pages.Locator) models.Capability {
	total := 0
	for _, loc := range locs {
		elements, err := loc.ResolveAll(ctx, d)
		if err != nil {
			return models.Failed(feature, fmt.Errorf("failed to look up %s: %w", loc, err))
		}
		if len(elements) == 0 {
			return models.Absent(feature, "no "+loc.Name)
		}
		total += len(elements)
	}
	return models.Present(feature, fmt.Sprintf("%d matching elements", total))
}

// brandFilterEffective selects one brand that is neither missing from nor
// the whole of the baseline and reports whether the listing narrowed to it
func (s *ProbeServiceImpl) brandFilterEffective(ctx context.Context, sess *Session, report models.CapabilityReport, baseline []models.Product) models.Capability {
	feature := models.FeatureBrandFilterEffective
	if !report.Has(models.FeatureBrandFilter) {
		return models.Absent(feature, "no brand filter to exercise")
	}

	brand, ok := probeBrand(baseline)
	if !ok {
		return models.Absent(feature, "baseline has no brand to narrow to")
	}

	selected := sess.Filters.SelectBrandFilter(ctx, brand)
	switch {
	case selected.IsAbsent():
		return models.Absent(feature, selected.Detail)
	case selected.IsError():
		return models.Failed(feature, selected.Err)
	}

	after, err := sess.Listing.GetAllProducts(ctx)
	restoreErr := s.restore(ctx, sess, brand)
	if err != nil {
		return models.Failed(feature, fmt.Errorf("failed to scrape filtered listing: %w", err))
	}
	if restoreErr != nil {
		return models.Failed(feature, restoreErr)
	}

	want := len(models.FilterByBrand(baseline, brand))
	verification := models.VerifyProducts(after, models.Criteria{Brands: []models.Brand{brand}})
	if len(after) == want && verification.Passed {
		return models.Present(feature, fmt.Sprintf("selecting %s narrowed %d products to %d", brand, len(baseline), len(after)))
	}
	return models.Absent(feature, fmt.Sprintf("selecting %s left %d of %d products", brand, len(after), len(baseline)))
}

func (s *ProbeServiceImpl) restore(ctx context.Context, sess *Session, brand models.Brand) error {
	var errs []error
	if c := sess.Filters.DeselectBrandFilter(ctx, brand); c.IsError() {
		errs = append(errs, fmt.Errorf("failed to deselect %s: %w", brand, c.Err))
	}
	if err := sess.Listing.RefreshPage(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func probeBrand(baseline []models.Product) (models.Brand, bool) {
	counts := models.CountByBrand(baseline)
	for _, brand := range models.AllBrands() {
		if n := counts[brand]; n > 0 && n < len(baseline) {
			return brand, true
		}
	}
	return models.BrandUnknown, false
}
