package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap"
)

// Scenario is one named check. Every scenario runs on its own session and
// reads the capability report produced by the probe before it; it never
// decides on its own whether a feature exists.
type Scenario struct {
	Name string
	// ResetFilters clears the filter panel after the scenario ran
	ResetFilters bool
	Run          func(ctx context.Context, env *Env) error
}

// Env is everything a scenario runs against
type Env struct {
	Session *Session
	Report  models.CapabilityReport
	Catalog *fixtures.Catalog
	Rec     *Recorder
	Log     *zap.Logger
	// Seed drives the random filter scenario; 0 draws a fresh combination
	Seed uint64
}

// DefaultScenarios returns the full suite in a stable order
func DefaultScenarios(catalog *fixtures.Catalog) []Scenario {
	scenarios := []Scenario{
		{Name: "catalog/display", Run: catalogDisplay},
		{Name: "catalog/validity", Run: catalogValidity},
		{Name: "catalog/brands", Run: catalogBrands},
		{Name: "catalog/prices", Run: catalogPrices},
		{Name: "catalog/images", Run: catalogImages},
		{Name: "cart/add", Run: cartAdd},
		{Name: "cart/add-multiple", Run: cartAddMultiple},
		{Name: "responsive/layout", Run: responsiveLayout},
	}

	for _, brand := range catalog.Brands {
		scenarios = append(scenarios, Scenario{
			Name:         "filter/brand/" + slug(brand.String()),
			ResetFilters: true,
			Run:          brandFilter([]models.Brand{brand}),
		})
	}
	for _, combo := range catalog.BrandCombinations {
		if len(combo) < 2 {
			continue
		}
		scenarios = append(scenarios, Scenario{
			Name:         "filter/brands/" + slug(joinBrands(combo, "-")),
			ResetFilters: true,
			Run:          brandFilter(combo),
		})
	}
	for _, pr := range catalog.PriceRanges {
		scenarios = append(scenarios, Scenario{
			Name:         "filter/price/" + slug(pr.Description),
			ResetFilters: true,
			Run:          priceFilter(pr),
		})
	}
	for _, st := range catalog.SortTypes {
		scenarios = append(scenarios, Scenario{
			Name:         "filter/sort/" + slug(string(st.Value)),
			ResetFilters: true,
			Run:          sortFilter(st),
		})
	}
	for _, cs := range catalog.ComplexScenarios {
		scenarios = append(scenarios, Scenario{
			Name:         "filter/complex/" + slug(cs.Name),
			ResetFilters: true,
			Run:          complexFilter(cs),
		})
	}
	for _, ec := range catalog.EdgeCases {
		scenarios = append(scenarios, Scenario{
			Name:         "filter/edge/" + slug(ec.Name),
			ResetFilters: true,
			Run:          edgeCase(ec),
		})
	}

	scenarios = append(scenarios,
		Scenario{Name: "filter/price-boundaries", ResetFilters: true, Run: priceBoundaries},
		Scenario{Name: "filter/view", ResetFilters: true, Run: viewToggle},
		Scenario{Name: "filter/results-per-page", ResetFilters: true, Run: resultsPerPage},
		Scenario{Name: "filter/state", ResetFilters: true, Run: filterState},
		Scenario{Name: "filter/persistence", ResetFilters: true, Run: filterPersistence},
		Scenario{Name: "filter/clear", ResetFilters: true, Run: clearFilters},
		Scenario{Name: "filter/invalid-inputs", ResetFilters: true, Run: invalidInputs},
		Scenario{Name: "filter/random", ResetFilters: true, Run: randomFilter},
		Scenario{Name: "performance/page-load", Run: pageLoadPerformance},
		Scenario{Name: "performance/interactions", Run: interactionResponsiveness},
		Scenario{Name: "performance/slow-network", ResetFilters: true, Run: slowNetworkResponse},
	)
	for _, ps := range catalog.PerformanceScenarios {
		scenarios = append(scenarios, Scenario{
			Name:         "performance/filters/" + slug(ps.Name),
			ResetFilters: true,
			Run:          filterResponse(ps),
		})
	}

	for _, user := range catalog.Login.Users {
		scenarios = append(scenarios, Scenario{Name: "login/user/" + slug(user.Username), Run: loginUser(user)})
	}
	scenarios = append(scenarios,
		Scenario{Name: "login/invalid-credentials", Run: loginInvalidCredentials},
		Scenario{Name: "login/empty-fields", Run: loginEmptyFields},
	)
	return scenarios
}

// SelectScenarios keeps the scenarios whose name starts with any of the
// prefixes; no prefixes keeps everything
func SelectScenarios(scenarios []Scenario, prefixes []string) []Scenario {
	if len(prefixes) == 0 {
		return scenarios
	}
	var out []Scenario
	for _, s := range scenarios {
		for _, p := range prefixes {
			if strings.HasPrefix(s.Name, p) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// baseline opens the listing and scrapes it unfiltered
func (e *Env) baseline(ctx context.Context) ([]models.Product, error) {
	if err := e.Session.Listing.Open(ctx); err != nil {
		return nil, err
	}
	products, err := e.Session.Listing.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("baseline listing is empty")
	}
	return products, nil
}

// expectation narrows criteria to what the storefront can honour. Brand
// criteria are dropped, and recorded as absent, when the probe found that
// selecting a brand leaves the listing unchanged.
func (e *Env) expectation(criteria models.Criteria, label string) models.Criteria {
	if len(criteria.Brands) > 0 && !e.Report.Has(models.FeatureBrandFilterEffective) {
		e.Rec.Absent(models.FeatureBrandFilterEffective, "%s: brand selection does not narrow the listing, expecting brands unfiltered", label)
		criteria.Brands = nil
	}
	return criteria
}

// verifyListing scrapes the current render and checks it holds exactly the
// baseline products matching criteria
func (e *Env) verifyListing(ctx context.Context, feature models.Feature, baseline []models.Product, criteria models.Criteria, label string) ([]models.Product, error) {
	after, err := e.Session.Listing.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	criteria = e.expectation(criteria, label)
	want := 0
	for _, p := range baseline {
		if criteria.Matches(p) {
			want++
		}
	}

	v := models.VerifyProducts(after, criteria)
	if !v.Passed {
		for _, m := range v.Mismatched {
			e.Log.Info("product outside filter", zap.String("product", m.Product), zap.Strings("issues", m.Issues))
		}
	}
	e.Rec.Check(v.Passed && len(after) == want, feature,
		"%s: %d products shown, %d expected, %d outside the filter", label, len(after), want, len(v.Mismatched))
	return after, nil
}

// applyPrice sets the price inputs when the probe found them
func (e *Env) applyPrice(ctx context.Context, pr models.PriceRange) bool {
	if !e.Report.Has(models.FeaturePriceInputs) {
		e.Rec.Absent(models.FeaturePriceInputs, "no price inputs for %.2f-%.2f", pr.Min, pr.Max)
		return false
	}
	return e.Rec.Capability(e.Session.Filters.SetPriceRange(ctx, pr.Min, pr.Max))
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func joinBrands(brands []models.Brand, sep string) string {
	names := make([]string, len(brands))
	for i, b := range brands {
		names[i] = b.String()
	}
	return strings.Join(names, sep)
}
