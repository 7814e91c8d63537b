package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap"
)

func brandFilter(brands []models.Brand) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		baseline, err := env.baseline(ctx)
		if err != nil {
			return err
		}
		if !env.Rec.Capability(env.Session.Filters.SelectMultipleBrandFilters(ctx, brands)) {
			return nil
		}

		label := joinBrands(brands, " + ")
		selected, err := env.Session.Filters.GetSelectedBrandFilters(ctx)
		if err != nil {
			return err
		}
		env.Rec.Check(sameBrands(selected, brands), models.FeatureBrandFilter,
			"%s: checked brands read back as %s", label, joinBrands(selected, " + "))

		_, err = env.verifyListing(ctx, models.FeatureBrandFilter, baseline, models.Criteria{Brands: brands}, label)
		return err
	}
}

func priceFilter(pr fixtures.PriceRangeCase) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		baseline, err := env.baseline(ctx)
		if err != nil {
			return err
		}
		if !env.applyPrice(ctx, pr.PriceRange) {
			return nil
		}

		after, err := env.verifyListing(ctx, models.FeaturePriceInputs, baseline, models.Criteria{
			MinPrice: models.Bound(pr.Min),
			MaxPrice: models.Bound(pr.Max),
		}, pr.Description)
		if err != nil {
			return err
		}
		for brand := range models.CountByBrand(after) {
			if !slices.Contains(pr.ExpectedBrands, brand) {
				env.Log.Info("brand outside the usual range", zap.String("range", pr.Description), zap.String("brand", brand.String()))
			}
		}
		return nil
	}
}

// priceBoundaries walks the boundary windows on one session. Windows the
// page refuses are fine; windows it accepts must filter correctly.
func priceBoundaries(ctx context.Context, env *Env) error {
	baseline, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	if !env.Report.Has(models.FeaturePriceInputs) {
		env.Rec.Absent(models.FeaturePriceInputs, "no price inputs for boundary values")
		return nil
	}

	for _, bv := range env.Catalog.BoundaryValues {
		c := env.Session.Filters.SetPriceRange(ctx, bv.Min, bv.Max)
		if !env.Rec.Capability(c) {
			continue
		}
		if _, err := env.verifyListing(ctx, models.FeaturePriceInputs, baseline, models.Criteria{
			MinPrice: models.Bound(bv.Min),
			MaxPrice: models.Bound(bv.Max),
		}, bv.Description); err != nil {
			return err
		}
	}
	return nil
}

func sortFilter(st fixtures.SortType) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		baseline, err := env.baseline(ctx)
		if err != nil {
			return err
		}
		if !env.Report.Has(models.FeatureSortDropdown) {
			env.Rec.Absent(models.FeatureSortDropdown, "no sort control for %s", st.Description)
			return nil
		}
		if !env.Rec.Capability(env.Session.Filters.ApplySortFilter(ctx, st.Value)) {
			return nil
		}

		applied, err := env.Session.Filters.IsSortApplied(ctx, st.Value)
		if err != nil {
			return err
		}
		current, err := env.Session.Filters.GetCurrentSortType(ctx)
		if err != nil {
			return err
		}
		env.Rec.Check(applied, models.FeatureSortDropdown, "sort reads back as %s after choosing %s", current, st.Value)

		after, err := env.Session.Listing.GetAllProducts(ctx)
		if err != nil {
			return err
		}
		env.Rec.Check(len(after) == len(baseline), models.FeatureSortDropdown,
			"%s: %d products shown, %d before sorting", st.Description, len(after), len(baseline))
		if ok, checkable := sortedBy(after, st.Value); checkable {
			env.Rec.Check(ok, models.FeatureSortDropdown, "%s: listing order follows the sort", st.Description)
		}
		return nil
	}
}

// sortedBy reports whether products follow key. The second result is false
// for keys the listing carries no data for, such as popularity.
func sortedBy(products []models.Product, key models.SortKey) (bool, bool) {
	var inOrder func(a, b models.Product) bool
	switch key {
	case models.SortPriceAsc:
		inOrder = func(a, b models.Product) bool { return a.Price <= b.Price }
	case models.SortPriceDesc:
		inOrder = func(a, b models.Product) bool { return a.Price >= b.Price }
	case models.SortNameAsc:
		inOrder = func(a, b models.Product) bool { return strings.ToLower(a.Title) <= strings.ToLower(b.Title) }
	case models.SortNameDesc:
		inOrder = func(a, b models.Product) bool { return strings.ToLower(a.Title) >= strings.ToLower(b.Title) }
	case models.SortPopularity, models.SortRating, models.SortNewest:
		return false, false
	default:
		return false, false
	}
	for i := 1; i < len(products); i++ {
		if !inOrder(products[i-1], products[i]) {
			return false, true
		}
	}
	return true, true
}

func viewToggle(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	if !env.Report.Has(models.FeatureViewToggle) {
		env.Rec.Absent(models.FeatureViewToggle, "no grid or list buttons")
		return nil
	}

	for _, mode := range env.Catalog.ViewTypes {
		if !env.Rec.Capability(env.Session.Filters.ChangeViewType(ctx, mode)) {
			continue
		}
		current, err := env.Session.Filters.GetCurrentViewType(ctx)
		if err != nil {
			return err
		}
		env.Rec.Check(current == mode, models.FeatureViewToggle, "view reads back as %s after choosing %s", current, mode)
	}
	return nil
}

func resultsPerPage(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	if !env.Report.Has(models.FeatureResultsPerPage) {
		env.Rec.Absent(models.FeatureResultsPerPage, "no results per page control")
		return nil
	}

	for _, n := range env.Catalog.ResultsPerPage {
		if env.Rec.Capability(env.Session.Filters.ChangeResultsPerPage(ctx, n)) {
			env.Rec.Pass(models.FeatureResultsPerPage, "showing %d results per page", n)
		}
	}
	return nil
}

func filterState(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	filters := env.Session.Filters

	state, err := filters.GetCurrentFilterState(ctx)
	if err != nil {
		return err
	}
	env.Rec.Check(len(state.SelectedBrands) == 0, models.FeatureBrandFilter, "fresh listing has %d brands selected", len(state.SelectedBrands))

	if !env.Rec.Capability(filters.SelectBrandFilter(ctx, models.BrandGalaxy)) {
		return nil
	}
	state, err = filters.GetCurrentFilterState(ctx)
	if err != nil {
		return err
	}
	env.Log.Info("current filter state",
		zap.String("brands", joinBrands(state.SelectedBrands, ",")),
		zap.Float64("min", state.PriceRange.Min), zap.Float64("max", state.PriceRange.Max),
		zap.String("sort", state.Sort), zap.String("view", string(state.View)))
	env.Rec.Check(state.HasBrand(models.BrandGalaxy), models.FeatureBrandFilter, "filter state lists Galaxy after selecting it")
	return nil
}

// filterPersistence documents whether a selection survives a reload. Either
// outcome is acceptable; only the reload itself must work.
func filterPersistence(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	if !env.Rec.Capability(env.Session.Filters.SelectBrandFilter(ctx, models.BrandIPhone)) {
		return nil
	}
	before, err := env.Session.Listing.GetProductCount(ctx)
	if err != nil {
		return err
	}

	if err := env.Session.Listing.RefreshPage(ctx); err != nil {
		env.Rec.Fail(models.FeatureCatalog, "listing did not reload: %v", err)
		return nil
	}
	after, err := env.Session.Listing.GetProductCount(ctx)
	if err != nil {
		return err
	}
	selected, err := env.Session.Filters.GetSelectedBrandFilters(ctx)
	if err != nil {
		return err
	}

	kept := "dropped"
	if slices.Contains(selected, models.BrandIPhone) {
		kept = "kept"
	}
	env.Rec.Pass(models.FeatureBrandFilter, "reload %s the iPhone selection, %d products before and %d after", kept, before, after)
	return nil
}

func clearFilters(ctx context.Context, env *Env) error {
	baseline, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	filters := env.Session.Filters

	if !env.Rec.Capability(filters.SelectBrandFilter(ctx, models.BrandIPhone)) {
		return nil
	}
	filtered, err := env.Session.Listing.GetProductCount(ctx)
	if err != nil {
		return err
	}
	env.Rec.Check(filtered <= len(baseline), models.FeatureBrandFilter, "%d products with iPhone selected, %d unfiltered", filtered, len(baseline))

	// A missing clear button falls back to deselecting, which still has to work
	switch c := filters.ClearAllFilters(ctx); {
	case c.IsError():
		env.Rec.Capability(c)
		return nil
	case c.IsAbsent():
		env.Rec.Absent(c.Feature, "%s", c.Detail)
	}

	cleared, err := env.Session.Listing.GetProductCount(ctx)
	if err != nil {
		return err
	}
	env.Rec.Check(cleared == len(baseline), models.FeatureClearFilters, "%d products after clearing, %d unfiltered", cleared, len(baseline))

	selected, err := filters.GetSelectedBrandFilters(ctx)
	if err != nil {
		return err
	}
	env.Rec.Check(len(selected) == 0, models.FeatureClearFilters, "%d brands still selected after clearing", len(selected))
	return nil
}

func complexFilter(cs fixtures.ComplexScenario) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		baseline, err := env.baseline(ctx)
		if err != nil {
			return err
		}
		env.Log.Info("complex scenario", zap.String("expected", cs.ExpectedResults))

		if !applyCombination(ctx, env, cs.Brands, cs.PriceRange, cs.Sort, cs.View) {
			return nil
		}
		after, err := env.verifyListing(ctx, models.FeatureBrandFilter, baseline, cs.Criteria(), cs.Name)
		if err != nil {
			return err
		}
		if ok, checkable := sortedBy(after, cs.Sort); checkable && env.Report.Has(models.FeatureSortDropdown) {
			env.Rec.Check(ok, models.FeatureSortDropdown, "%s: listing order follows %s", cs.Name, cs.Sort)
		}
		return nil
	}
}

// applyCombination drives every offered control. Controls the probe found
// absent are recorded and skipped; a control that errors stops the scenario.
func applyCombination(ctx context.Context, env *Env, brands []models.Brand, pr models.PriceRange, sort models.SortKey, view models.ViewMode) bool {
	filters := env.Session.Filters

	if len(brands) > 0 && !env.Rec.Capability(filters.SelectMultipleBrandFilters(ctx, brands)) {
		return false
	}

	if !env.Report.Has(models.FeaturePriceInputs) {
		env.Rec.Absent(models.FeaturePriceInputs, "no price inputs for %.2f-%.2f", pr.Min, pr.Max)
		return false
	}
	if !env.Rec.Capability(filters.SetPriceRange(ctx, pr.Min, pr.Max)) {
		return false
	}

	if sort != "" {
		if env.Report.Has(models.FeatureSortDropdown) {
			if !env.Rec.Capability(filters.ApplySortFilter(ctx, sort)) {
				return false
			}
		} else {
			env.Rec.Absent(models.FeatureSortDropdown, "no sort control for %s", sort)
		}
	}
	if view != "" {
		if env.Report.Has(models.FeatureViewToggle) {
			if !env.Rec.Capability(filters.ChangeViewType(ctx, view)) {
				return false
			}
		} else {
			env.Rec.Absent(models.FeatureViewToggle, "no view toggle for %s", view)
		}
	}
	return true
}

func edgeCase(ec fixtures.EdgeCase) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		baseline, err := env.baseline(ctx)
		if err != nil {
			return err
		}
		if !applyCombination(ctx, env, ec.Brands, ec.PriceRange, "", "") {
			return nil
		}

		criteria := env.expectation(models.Criteria{
			Brands:   ec.Brands,
			MinPrice: models.Bound(ec.PriceRange.Min),
			MaxPrice: models.Bound(ec.PriceRange.Max),
		}, ec.Name)
		after, err := env.Session.Listing.GetAllProducts(ctx)
		if err != nil {
			return err
		}

		want := 0
		for _, p := range baseline {
			if criteria.Matches(p) {
				want++
			}
		}
		switch ec.ExpectedResult {
		case fixtures.EdgeNoResults:
			env.Rec.Check(len(after) == 0 && env.Session.Listing.IsNoResultsDisplayed(ctx), models.FeatureBrandFilter,
				"%s: %d products shown, no-results message expected", ec.Name, len(after))
		case fixtures.EdgeAllProducts:
			env.Rec.Check(len(after) == len(baseline), models.FeatureBrandFilter,
				"%s: %d of %d products shown", ec.Name, len(after), len(baseline))
		case fixtures.EdgeSingleProduct:
			env.Rec.Check(len(after) == 1, models.FeatureBrandFilter, "%s: %d products shown, one expected", ec.Name, len(after))
		default:
			return fmt.Errorf("edge case %q has unknown expected result %q", ec.Name, ec.ExpectedResult)
		}
		if len(after) != want {
			env.Rec.Fail(models.FeatureBrandFilter, "%s: %d products shown, the filter admits %d", ec.Name, len(after), want)
		}
		return nil
	}
}

func invalidInputs(ctx context.Context, env *Env) error {
	for _, name := range env.Catalog.InvalidInputs.Brands {
		_, err := models.ParseBrand(name)
		env.Rec.Check(models.IsUnknownFilter(err), models.FeatureBrandFilter, "brand name %q is refused when parsed", name)
	}

	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	if !env.Report.Has(models.FeaturePriceInputs) {
		env.Rec.Absent(models.FeaturePriceInputs, "no price inputs to feed invalid values")
		return nil
	}

	accepted, c := env.Session.Filters.TestInvalidFilterInputs(ctx, env.Catalog.InvalidInputs.Prices)
	if !env.Rec.Capability(c) {
		return nil
	}
	for _, msg := range accepted {
		env.Rec.Fail(models.FeaturePriceInputs, "%s", msg)
	}
	if len(accepted) == 0 {
		env.Rec.Pass(models.FeaturePriceInputs, "all %d invalid price ranges refused", len(env.Catalog.InvalidInputs.Prices))
	}
	return nil
}

func randomFilter(ctx context.Context, env *Env) error {
	baseline, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	data := env.Catalog.RandomTestData(env.Seed)
	env.Log.Info("random filter combination",
		zap.String("brands", joinBrands(data.Brands, ",")),
		zap.Float64("min", data.PriceRange.Min), zap.Float64("max", data.PriceRange.Max),
		zap.String("sort", string(data.Sort)), zap.String("view", string(data.View)),
		zap.Int("per_page", data.ResultsPerPage))

	if !applyCombination(ctx, env, data.Brands, data.PriceRange, data.Sort, data.View) {
		return nil
	}
	_, err = env.verifyListing(ctx, models.FeatureBrandFilter, baseline, data.Criteria(), "random combination")
	return err
}

func sameBrands(got, want []models.Brand) bool {
	if len(got) != len(want) {
		return false
	}
	for _, b := range want {
		if !slices.Contains(got, b) {
			return false
		}
	}
	return true
}
