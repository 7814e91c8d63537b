package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap"
)

// Filter panel locators
var (
	FilterPanelRoot = L("filter panel", ".filters", ".filters-available-size")
	FilterToggle    = L("filter toggle", ".filter-toggle", ".filters-toggle")
	ClearFilters    = L("clear filters button", ".clear-filters", `xpath=//button[contains(., "Clear")]`)
	ApplyFilters    = L("apply filters button", ".apply-filters", `xpath=//button[contains(., "Apply")]`)

	BrandSection = L("brand filter section", `[data-testid="brand-filter"]`, ".brand-filter", ".filter-brand", ".filters-available-size")
	BrandOptions = L("brand options",
		`[data-testid="brand-option"] input`,
		`.brand-option input[type="checkbox"]`,
		`input[type="checkbox"][name*="brand"]`,
		`.filters-available-size input[type="checkbox"]`)

	PriceSection = L("price filter section", `[data-testid="price-filter"]`, ".price-filter", ".filter-price")
	MinPrice     = L("minimum price input", `[data-testid="min-price"]`, `input[name*="min"]`, `input[placeholder*="min"]`)
	MaxPrice     = L("maximum price input", `[data-testid="max-price"]`, `input[name*="max"]`, `input[placeholder*="max"]`)
	PriceSlider  = L("price slider", `[data-testid="price-slider"]`, ".price-slider", `input[type="range"]`)
	PriceRanges  = L("price range options", `[data-testid="price-range"]`, ".price-range", `input[type="radio"][name*="price"]`)

	SortSection  = L("sort section", `[data-testid="sort"]`, ".sort", ".sorting")
	SortDropdown = L("sort dropdown", `[data-testid="sort-dropdown"]`, ".sort-dropdown", `select[name*="sort"]`)

	ViewSection = L("view section", `[data-testid="view"]`, ".view-options", ".view-toggle")
	GridView    = L("grid view button", `[data-testid="grid-view"]`, ".grid-view", `xpath=//button[contains(text(), "Grid")]`)
	ListView    = L("list view button", `[data-testid="list-view"]`, ".list-view", `xpath=//button[contains(text(), "List")]`)

	Pagination     = L("pagination", `[data-testid="pagination"]`, ".pagination", ".pager")
	ResultsPerPage = L("results per page dropdown", `[data-testid="per-page"]`, `select[name*="per_page"]`, `select[name*="limit"]`)
	NextPage       = L("next page button", `[data-testid="next-page"]`, ".next-page", `xpath=//a[contains(text(), "Next")]`)
	PrevPage       = L("previous page button", `[data-testid="prev-page"]`, ".prev-page", `xpath=//a[contains(text(), "Previous")]`)
)

// SortOption returns the dropdown option locator of a sort key
func SortOption(key models.SortKey) (Locator, error) {
	switch key {
	case models.SortPriceAsc:
		return L("price low to high", `option[value*="price_asc"]`, `xpath=//option[contains(text(), "Low to High")]`), nil
	case models.SortPriceDesc:
		return L("price high to low", `option[value*="price_desc"]`, `xpath=//option[contains(text(), "High to Low")]`), nil
	case models.SortNameAsc:
		return L("name A to Z", `option[value*="name_asc"]`, `xpath=//option[contains(text(), "A-Z")]`), nil
	case models.SortNameDesc:
		return L("name Z to A", `option[value*="name_desc"]`, `xpath=//option[contains(text(), "Z-A")]`), nil
	case models.SortPopularity, models.SortRating, models.SortNewest:
		return L(string(key), fmt.Sprintf(`option[value=%q]`, key)), nil
	default:
		return Locator{}, &models.UnknownFilterError{Kind: "sort", Name: string(key)}
	}
}

// BrandFilter returns the checkbox or label locator of a brand
func BrandFilter(brand models.Brand) (Locator, error) {
	switch brand {
	case models.BrandIPhone:
		return brandLocator("iPhone filter", "Apple", "iPhone"), nil
	case models.BrandGalaxy:
		return brandLocator("Galaxy filter", "Samsung", "Galaxy"), nil
	case models.BrandPixel:
		return brandLocator("Pixel filter", "Google", "Pixel"), nil
	case models.BrandOnePlus:
		return brandLocator("OnePlus filter", "OnePlus"), nil
	default:
		return Locator{}, &models.UnknownFilterError{Kind: "brand", Name: string(brand)}
	}
}

func brandLocator(name string, labels ...string) Locator {
	loc := Locator{Name: name}
	for _, l := range labels {
		loc.Selectors = append(loc.Selectors, fmt.Sprintf(`input[value*=%q]`, l))
	}
	for _, l := range labels {
		loc.Selectors = append(loc.Selectors, fmt.Sprintf(`xpath=//label[contains(., %q)]`, l))
	}
	return loc
}

// ViewButton returns the toggle locator of a view mode
func ViewButton(mode models.ViewMode) (Locator, error) {
	switch mode {
	case models.ViewGrid:
		return GridView, nil
	case models.ViewList:
		return ListView, nil
	default:
		return Locator{}, &models.UnknownFilterError{Kind: "view", Name: string(mode)}
	}
}

// FilterPanel is the brand, price, sort, view and pagination controls.
// Operations on optional affordances return a Capability so a missing
// control is reported as absent rather than as a failure.
type FilterPanel struct {
	*BasePage
}

// NewFilterPanel creates a FilterPanel over one driver session
func NewFilterPanel(base *BasePage) *FilterPanel {
	return &FilterPanel{BasePage: base}
}

// IsFilterPanelVisible reports whether the panel is shown
func (f *FilterPanel) IsFilterPanelVisible(ctx context.Context) bool {
	return f.IsElementDisplayed(ctx, FilterPanelRoot)
}

// OpenFilterPanel opens the panel through its toggle on mobile viewports,
// then waits for it to show
func (f *FilterPanel) OpenFilterPanel(ctx context.Context) models.Capability {
	mobile, err := f.IsMobileDevice(ctx)
	if err != nil {
		return models.Failed(models.FeatureFilterPanel, err)
	}
	if mobile && f.IsElementDisplayed(ctx, FilterToggle) {
		if err := f.SafeClick(ctx, FilterToggle, 0); err != nil {
			return models.Failed(models.FeatureFilterPanel, err)
		}
	}

	if err := f.WaitForElements(ctx, []Locator{FilterPanelRoot}, true); err != nil {
		if IsTimeout(err) {
			return models.Absent(models.FeatureFilterPanel, err.Error())
		}
		return models.Failed(models.FeatureFilterPanel, err)
	}
	return models.Present(models.FeatureFilterPanel, "")
}

// SelectBrandFilter checks the brand's filter. Selecting an already selected
// brand is a no-op.
func (f *FilterPanel) SelectBrandFilter(ctx context.Context, brand models.Brand) models.Capability {
	return f.setBrand(ctx, brand, true)
}

// DeselectBrandFilter unchecks the brand's filter
func (f *FilterPanel) DeselectBrandFilter(ctx context.Context, brand models.Brand) models.Capability {
	return f.setBrand(ctx, brand, false)
}

func (f *FilterPanel) setBrand(ctx context.Context, brand models.Brand, want bool) models.Capability {
	loc, err := BrandFilter(brand)
	if err != nil {
		return models.Failed(models.FeatureBrandFilter, err)
	}
	el, err := loc.Resolve(ctx, f.driver)
	if errors.Is(err, driver.ErrElementNotFound) {
		f.log.Info("brand filter not offered", zap.String("brand", brand.String()))
		return models.Absent(models.FeatureBrandFilter, fmt.Sprintf("no %s filter", brand))
	}
	if err != nil {
		return models.Failed(models.FeatureBrandFilter, err)
	}

	target, checkbox, err := f.brandTarget(ctx, el)
	if err != nil {
		return models.Failed(models.FeatureBrandFilter, err)
	}

	if checkbox != nil {
		checked, err := checkbox.IsSelected(ctx)
		if err != nil {
			return models.Failed(models.FeatureBrandFilter, err)
		}
		if checked == want {
			return models.Present(models.FeatureBrandFilter, fmt.Sprintf("%s already in requested state", brand))
		}
	} else if !want {
		return models.Present(models.FeatureBrandFilter, fmt.Sprintf("%s label cannot be deselected", brand))
	}

	if err := f.ClickElement(ctx, target, loc.Name); err != nil {
		return models.Failed(models.FeatureBrandFilter, err)
	}
	if err := f.WaitForFilterApplication(ctx); err != nil {
		return models.Failed(models.FeatureBrandFilter, err)
	}
	return models.Present(models.FeatureBrandFilter, "")
}

// brandTarget picks what to click for a resolved brand control and the
// checkbox whose state tracks it. Inputs hidden behind a styled label are
// clicked through the label.
func (f *FilterPanel) brandTarget(ctx context.Context, el driver.Element) (driver.Element, driver.Element, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(tag) {
	case "input":
		if shown, _ := el.IsDisplayed(ctx); !shown {
			if parent, err := el.Parent(ctx); err == nil {
				if ptag, _ := parent.TagName(ctx); strings.EqualFold(ptag, "label") {
					return parent, el, nil
				}
			}
		}
		return el, el, nil
	case "label":
		if input, err := el.Query(ctx, `input[type="checkbox"]`); err == nil {
			return el, input, nil
		}
		return el, nil, nil
	}
	return el, nil, nil
}

// SelectMultipleBrandFilters selects each brand in turn, pausing between
// selections. It returns the first capability that is not present.
func (f *FilterPanel) SelectMultipleBrandFilters(ctx context.Context, brands []models.Brand) models.Capability {
	for i, brand := range brands {
		if c := f.SelectBrandFilter(ctx, brand); !c.IsPresent() {
			return c
		}
		if i < len(brands)-1 {
			if err := sleep(ctx, f.opts.BrandSelectDelay); err != nil {
				return models.Failed(models.FeatureBrandFilter, err)
			}
		}
	}
	return models.Present(models.FeatureBrandFilter, fmt.Sprintf("%d brands selected", len(brands)))
}

// GetSelectedBrandFilters lists the checked brand options
func (f *FilterPanel) GetSelectedBrandFilters(ctx context.Context) ([]models.Brand, error) {
	options, err := BrandOptions.ResolveAll(ctx, f.driver)
	if err != nil {
		return nil, err
	}

	var brands []models.Brand
	for _, opt := range options {
		checked, err := opt.IsSelected(ctx)
		if err != nil {
			return nil, err
		}
		if !checked {
			continue
		}
		value, _, err := opt.Attribute(ctx, "value")
		if err != nil {
			return nil, err
		}
		brand, err := models.ParseBrand(value)
		if err != nil {
			f.log.Warn("selected brand option has no known brand", zap.String("value", value))
			continue
		}
		brands = append(brands, brand)
	}
	return brands, nil
}

// SetPriceRange types the bounds into the price inputs and applies them
func (f *FilterPanel) SetPriceRange(ctx context.Context, min, max float64) models.Capability {
	return f.SetRawPriceRange(ctx, models.PriceInput{
		Min: strconv.FormatFloat(min, 'f', -1, 64),
		Max: strconv.FormatFloat(max, 'f', -1, 64),
	})
}

// SetRawPriceRange types the raw strings into the price inputs and applies them
func (f *FilterPanel) SetRawPriceRange(ctx context.Context, input models.PriceInput) models.Capability {
	if !MinPrice.Exists(ctx, f.driver) || !MaxPrice.Exists(ctx, f.driver) {
		if PriceSlider.Exists(ctx, f.driver) {
			f.log.Info("price slider found, slider input is not implemented")
			return models.Absent(models.FeaturePriceInputs, "only a price slider is offered")
		}
		return models.Absent(models.FeaturePriceInputs, "no price inputs")
	}

	if err := f.TypeText(ctx, MinPrice, input.Min); err != nil {
		return models.Failed(models.FeaturePriceInputs, err)
	}
	if err := f.TypeText(ctx, MaxPrice, input.Max); err != nil {
		return models.Failed(models.FeaturePriceInputs, err)
	}
	if ApplyFilters.Exists(ctx, f.driver) {
		if c := f.ApplyFilters(ctx); c.IsError() {
			return models.Failed(models.FeaturePriceInputs, c.Err)
		}
	} else if err := f.WaitForFilterApplication(ctx); err != nil {
		return models.Failed(models.FeaturePriceInputs, err)
	}
	return models.Present(models.FeaturePriceInputs, "")
}

// ApplySortFilter picks the sort option of key. The option is found through
// its SortOption locator so storefronts whose option values differ from the
// key still match; a dropdown without such an option is tried with the raw key.
func (f *FilterPanel) ApplySortFilter(ctx context.Context, key models.SortKey) models.Capability {
	option, err := SortOption(key)
	if err != nil {
		return models.Failed(models.FeatureSortDropdown, err)
	}
	dropdown, err := SortDropdown.Resolve(ctx, f.driver)
	if errors.Is(err, driver.ErrElementNotFound) {
		f.log.Info("sort dropdown not offered")
		return models.Absent(models.FeatureSortDropdown, "no sort dropdown")
	}
	if err != nil {
		return models.Failed(models.FeatureSortDropdown, err)
	}

	value, err := optionValue(ctx, dropdown, option)
	if errors.Is(err, driver.ErrElementNotFound) {
		value = string(key)
	} else if err != nil {
		return models.Failed(models.FeatureSortDropdown, err)
	}

	if err := dropdown.Select(ctx, value); err != nil {
		if errors.Is(err, driver.ErrElementNotFound) {
			return models.Absent(models.FeatureSortDropdown, fmt.Sprintf("sort %s not offered", key))
		}
		return models.Failed(models.FeatureSortDropdown, err)
	}
	if err := f.WaitForFilterApplication(ctx); err != nil {
		return models.Failed(models.FeatureSortDropdown, err)
	}
	return models.Present(models.FeatureSortDropdown, "")
}

// optionValue resolves option inside dropdown and returns what Select needs
// to pick it: the value attribute, or the option text when there is none
func optionValue(ctx context.Context, dropdown driver.Element, option Locator) (string, error) {
	el, err := option.Resolve(ctx, dropdown)
	if err != nil {
		return "", err
	}
	if value, ok, err := el.Attribute(ctx, "value"); err != nil {
		return "", err
	} else if ok {
		return value, nil
	}
	return el.Text(ctx)
}

// IsSortApplied reports whether the option of key is the selected sort
func (f *FilterPanel) IsSortApplied(ctx context.Context, key models.SortKey) (bool, error) {
	option, err := SortOption(key)
	if err != nil {
		return false, err
	}
	dropdown, err := SortDropdown.Resolve(ctx, f.driver)
	if err != nil {
		return false, err
	}
	el, err := option.Resolve(ctx, dropdown)
	if errors.Is(err, driver.ErrElementNotFound) {
		current, err := dropdown.Value(ctx)
		return current == string(key), err
	}
	if err != nil {
		return false, err
	}
	return el.IsSelected(ctx)
}

// ChangeViewType clicks the grid or list toggle
func (f *FilterPanel) ChangeViewType(ctx context.Context, mode models.ViewMode) models.Capability {
	loc, err := ViewButton(mode)
	if err != nil {
		return models.Failed(models.FeatureViewToggle, err)
	}
	if !loc.Exists(ctx, f.driver) {
		f.log.Info("view toggle not offered", zap.String("view", string(mode)))
		return models.Absent(models.FeatureViewToggle, fmt.Sprintf("no %s view button", mode))
	}
	if err := f.SafeClick(ctx, loc, 0); err != nil {
		return models.Failed(models.FeatureViewToggle, err)
	}
	return models.Present(models.FeatureViewToggle, "")
}

// ChangeResultsPerPage picks the page size
func (f *FilterPanel) ChangeResultsPerPage(ctx context.Context, perPage int) models.Capability {
	dropdown, err := ResultsPerPage.Resolve(ctx, f.driver)
	if errors.Is(err, driver.ErrElementNotFound) {
		f.log.Info("results per page not offered")
		return models.Absent(models.FeatureResultsPerPage, "no results per page dropdown")
	}
	if err != nil {
		return models.Failed(models.FeatureResultsPerPage, err)
	}
	if err := dropdown.Select(ctx, strconv.Itoa(perPage)); err != nil {
		if errors.Is(err, driver.ErrElementNotFound) {
			return models.Absent(models.FeatureResultsPerPage, fmt.Sprintf("%d per page not offered", perPage))
		}
		return models.Failed(models.FeatureResultsPerPage, err)
	}
	if err := f.WaitForFilterApplication(ctx); err != nil {
		return models.Failed(models.FeatureResultsPerPage, err)
	}
	return models.Present(models.FeatureResultsPerPage, "")
}

// ClearAllFilters uses the clear button, or deselects every brand when there is none
func (f *FilterPanel) ClearAllFilters(ctx context.Context) models.Capability {
	if ClearFilters.Exists(ctx, f.driver) {
		if err := f.SafeClick(ctx, ClearFilters, 0); err != nil {
			return models.Failed(models.FeatureClearFilters, err)
		}
		if err := f.WaitForFilterApplication(ctx); err != nil {
			return models.Failed(models.FeatureClearFilters, err)
		}
		return models.Present(models.FeatureClearFilters, "")
	}

	selected, err := f.GetSelectedBrandFilters(ctx)
	if err != nil {
		return models.Failed(models.FeatureClearFilters, err)
	}
	for _, brand := range selected {
		if c := f.DeselectBrandFilter(ctx, brand); c.IsError() {
			return models.Failed(models.FeatureClearFilters, c.Err)
		}
	}
	return models.Absent(models.FeatureClearFilters, fmt.Sprintf("no clear button, deselected %d brands", len(selected)))
}

// ApplyFilters clicks the apply button
func (f *FilterPanel) ApplyFilters(ctx context.Context) models.Capability {
	if !ApplyFilters.Exists(ctx, f.driver) {
		return models.Absent(models.FeatureApplyFilters, "no apply button")
	}
	if err := f.SafeClick(ctx, ApplyFilters, 0); err != nil {
		return models.Failed(models.FeatureApplyFilters, err)
	}
	if err := f.WaitForFilterApplication(ctx); err != nil {
		return models.Failed(models.FeatureApplyFilters, err)
	}
	return models.Present(models.FeatureApplyFilters, "")
}

// WaitForFilterApplication waits for a spinner to come and go within the
// filter timeout, then lets the listing settle
func (f *FilterPanel) WaitForFilterApplication(ctx context.Context) error {
	if _, err := f.WaitForDisplayed(ctx, Spinner, f.opts.SpinnerAppear); err == nil {
		timeout := f.opts.FilterTimeout
		if timeout <= 0 {
			timeout = f.opts.PageLoadTimeout
		}
		if err := f.waitForElements(ctx, []Locator{Spinner}, false, timeout); err != nil {
			return err
		}
	} else if !IsTimeout(err) {
		return err
	}
	return sleep(ctx, f.opts.FilterSettle)
}

// GetCurrentFilterState reads the panel from the live DOM
func (f *FilterPanel) GetCurrentFilterState(ctx context.Context) (models.FilterState, error) {
	var state models.FilterState
	var err error

	if state.SelectedBrands, err = f.GetSelectedBrandFilters(ctx); err != nil {
		return state, err
	}
	if state.PriceRange, err = f.GetCurrentPriceRange(ctx); err != nil {
		return state, err
	}
	if state.Sort, err = f.GetCurrentSortType(ctx); err != nil {
		return state, err
	}
	if state.View, err = f.GetCurrentViewType(ctx); err != nil {
		return state, err
	}
	return state, nil
}

// GetCurrentPriceRange parses the price inputs. Missing or empty inputs read
// as the default bounds.
func (f *FilterPanel) GetCurrentPriceRange(ctx context.Context) (models.PriceRange, error) {
	r := models.PriceRange{Min: models.DefaultMinPrice, Max: models.DefaultMaxPrice}

	read := func(loc Locator, fallback float64) (float64, error) {
		raw, ok, err := f.rawValue(ctx, loc)
		if err != nil || !ok {
			return fallback, err
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if perr != nil {
			return fallback, nil
		}
		return v, nil
	}

	var err error
	if r.Min, err = read(MinPrice, r.Min); err != nil {
		return r, err
	}
	if r.Max, err = read(MaxPrice, r.Max); err != nil {
		return r, err
	}
	return r, nil
}

// rawValue reads an input's value; ok is false when the input is absent or empty
func (f *FilterPanel) rawValue(ctx context.Context, loc Locator) (string, bool, error) {
	el, err := loc.Resolve(ctx, f.driver)
	if errors.Is(err, driver.ErrElementNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	value, err := el.Value(ctx)
	if err != nil {
		return "", false, err
	}
	return value, strings.TrimSpace(value) != "", nil
}

// GetCurrentSortType returns the selected sort value or "default"
func (f *FilterPanel) GetCurrentSortType(ctx context.Context) (string, error) {
	value, ok, err := f.rawValue(ctx, SortDropdown)
	if err != nil || !ok {
		return "default", err
	}
	return value, nil
}

// GetCurrentViewType reports list when the list toggle is active, grid otherwise
func (f *FilterPanel) GetCurrentViewType(ctx context.Context) (models.ViewMode, error) {
	el, err := ListView.Resolve(ctx, f.driver)
	if errors.Is(err, driver.ErrElementNotFound) {
		return models.ViewGrid, nil
	}
	if err != nil {
		return models.ViewGrid, err
	}
	class, _, err := el.Attribute(ctx, "class")
	if err != nil {
		return models.ViewGrid, err
	}
	for _, c := range strings.Fields(class) {
		if c == "active" {
			return models.ViewList, nil
		}
	}
	return models.ViewGrid, nil
}

// MeasureFilterResponseTime times one filter interaction
func (f *FilterPanel) MeasureFilterResponseTime(ctx context.Context, action func(context.Context) models.Capability) (time.Duration, models.Capability) {
	timed, _ := MeasureResponseTime(ctx, func(ctx context.Context) (models.Capability, error) {
		return action(ctx), nil
	})
	return timed.Elapsed, timed.Result
}

// TestInvalidFilterInputs types each invalid price pair and reports the ones
// the panel kept as entered
func (f *FilterPanel) TestInvalidFilterInputs(ctx context.Context, inputs []models.PriceInput) ([]string, models.Capability) {
	var accepted []string
	for _, input := range inputs {
		c := f.SetRawPriceRange(ctx, input)
		if c.IsAbsent() {
			return nil, c
		}
		if c.IsError() {
			f.log.Info("invalid price range rejected",
				zap.String("min", input.Min), zap.String("max", input.Max), zap.Error(c.Err))
			continue
		}

		minRaw, _, err := f.rawValue(ctx, MinPrice)
		if err != nil {
			return accepted, models.Failed(models.FeaturePriceInputs, err)
		}
		maxRaw, _, err := f.rawValue(ctx, MaxPrice)
		if err != nil {
			return accepted, models.Failed(models.FeaturePriceInputs, err)
		}

		kept := strings.TrimSpace(minRaw) == input.Min && strings.TrimSpace(maxRaw) == input.Max
		switch {
		case kept && invalidPriceInput(input):
			accepted = append(accepted, fmt.Sprintf("Invalid price range accepted: %s-%s", input.Min, input.Max))
		case kept:
			f.log.Info("unusual price range accepted", zap.String("description", input.Description))
		default:
			f.log.Info("invalid price range rejected", zap.String("min", input.Min), zap.String("max", input.Max))
		}
	}
	return accepted, models.Present(models.FeaturePriceInputs, "")
}

// invalidPriceInput reports non-numeric, negative or inverted bounds
func invalidPriceInput(input models.PriceInput) bool {
	min, err := strconv.ParseFloat(strings.TrimSpace(input.Min), 64)
	if err != nil {
		return true
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(input.Max), 64)
	if err != nil {
		return true
	}
	return min < 0 || max < 0 || min > max
}
