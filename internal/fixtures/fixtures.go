// Package fixtures holds the static test data consumed by the scenarios:
// brand and price combinations, invalid inputs, expected counts, suite
// timings, login users and the 25-phone reference catalog.
package fixtures

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/testathon/shopcheck/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// PriceRangeCase is a price window and the brands expected inside it
type PriceRangeCase struct {
	models.PriceRange `yaml:",inline"`
	Description       string         `yaml:"description"`
	ExpectedBrands    []models.Brand `yaml:"expected_brands"`
}

// BoundaryCase is a price window probing the edges of validation
type BoundaryCase struct {
	models.PriceRange `yaml:",inline"`
	Description       string `yaml:"description"`
}

// InvalidInputs are values the filter panel should refuse
type InvalidInputs struct {
	Prices []models.PriceInput `yaml:"prices"`
	Brands []string            `yaml:"brands"`
}

// SortType is a sort option and its display label
type SortType struct {
	Value       models.SortKey `yaml:"value"`
	Description string         `yaml:"description"`
}

// ComplexScenario combines every filter kind
type ComplexScenario struct {
	Name            string            `yaml:"name"`
	Brands          []models.Brand    `yaml:"brands"`
	PriceRange      models.PriceRange `yaml:"price_range"`
	Sort            models.SortKey    `yaml:"sort"`
	View            models.ViewMode   `yaml:"view"`
	ExpectedResults string            `yaml:"expected_results"`
}

// Criteria returns the verification criteria the scenario implies
func (s ComplexScenario) Criteria() models.Criteria {
	return models.Criteria{
		Brands:   s.Brands,
		MinPrice: models.Bound(s.PriceRange.Min),
		MaxPrice: models.Bound(s.PriceRange.Max),
	}
}

// ActionType is one step of a performance scenario
type ActionType string

// Performance scenario steps
const (
	ActionSelectBrand   ActionType = "select_brand"
	ActionDeselectBrand ActionType = "deselect_brand"
	ActionSelectBrands  ActionType = "select_brands"
	ActionSetPriceRange ActionType = "set_price_range"
	ActionSort          ActionType = "sort"
	ActionView          ActionType = "view"
	ActionWait          ActionType = "wait"
)

// Action is a single timed filter interaction
type Action struct {
	Type       ActionType        `yaml:"type"`
	Brands     []models.Brand    `yaml:"brands"`
	PriceRange models.PriceRange `yaml:"price_range"`
	Sort       models.SortKey    `yaml:"sort"`
	View       models.ViewMode   `yaml:"view"`
	Wait       time.Duration     `yaml:"wait"`
}

// PerformanceScenario is a sequence of actions with a response-time budget
type PerformanceScenario struct {
	Name                 string        `yaml:"name"`
	Actions              []Action      `yaml:"actions"`
	ExpectedResponseTime time.Duration `yaml:"expected_response_time"`
}

// EdgeResult names the outcome an edge case expects
type EdgeResult string

// Edge case outcomes
const (
	EdgeNoResults     EdgeResult = "no_results"
	EdgeAllProducts   EdgeResult = "all_products"
	EdgeSingleProduct EdgeResult = "single_product"
)

// EdgeCase is a filter combination with an extreme expected result
type EdgeCase struct {
	Name           string            `yaml:"name"`
	Brands         []models.Brand    `yaml:"brands"`
	PriceRange     models.PriceRange `yaml:"price_range"`
	ExpectedResult EdgeResult        `yaml:"expected_result"`
	Description    string            `yaml:"description"`
}

// NetworkCondition is a named throttling profile
type NetworkCondition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// PriceBand is an inclusive price window with the number of phones in it
type PriceBand struct {
	Name  string  `yaml:"name"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Count int     `yaml:"count"`
}

// ExpectedCounts describes the reference catalog
type ExpectedCounts struct {
	Total      int                  `yaml:"total"`
	ByBrand    map[models.Brand]int `yaml:"by_brand"`
	PriceBands []PriceBand          `yaml:"price_bands"`
}

// ValidationRules constrain filter inputs and scraped products
type ValidationRules struct {
	Price struct {
		Min           float64 `yaml:"min"`
		Max           float64 `yaml:"max"`
		DecimalPlaces int     `yaml:"decimal_places"`
		Required      bool    `yaml:"required"`
	} `yaml:"price"`
	Brands struct {
		MultiSelect bool `yaml:"multi_select"`
		Required    bool `yaml:"required"`
	} `yaml:"brands"`
	Sort struct {
		Default  string `yaml:"default"`
		Required bool   `yaml:"required"`
	} `yaml:"sort"`
	Product struct {
		models.ProductRules `yaml:",inline"`
		MinValidPercent     float64 `yaml:"min_valid_percent"`
	} `yaml:"product"`
}

// SuiteConfig holds the timings and thresholds every scenario shares
type SuiteConfig struct {
	Timeout struct {
		PageLoad          time.Duration `yaml:"page_load"`
		FilterApplication time.Duration `yaml:"filter_application"`
		ElementWait       time.Duration `yaml:"element_wait"`
	} `yaml:"timeout"`
	Retry struct {
		Attempts int           `yaml:"attempts"`
		Delay    time.Duration `yaml:"delay"`
	} `yaml:"retry"`
	Performance struct {
		MaxResponseTime time.Duration `yaml:"max_response_time"`
		MaxPageLoadTime time.Duration `yaml:"max_page_load_time"`
		MinScore        int           `yaml:"min_score"`
	} `yaml:"performance"`
	Screenshots struct {
		OnFailure bool   `yaml:"on_failure"`
		OnSuccess bool   `yaml:"on_success"`
		Path      string `yaml:"path"`
	} `yaml:"screenshots"`
}

// LoginUser is a demo account; ExpectError is set for accounts that must be refused
type LoginUser struct {
	Username    string `yaml:"username"`
	ExpectError string `yaml:"expect_error"`
}

// LoginFixtures describe the sign-in page contract
type LoginFixtures struct {
	Path                    string      `yaml:"path"`
	Password                string      `yaml:"password"`
	InvalidPassword         string      `yaml:"invalid_password"`
	EmptyFieldsError        string      `yaml:"empty_fields_error"`
	InvalidCredentialsError string      `yaml:"invalid_credentials_error"`
	Users                   []LoginUser `yaml:"users"`
}

// ProductFixture is one phone of the reference catalog
type ProductFixture struct {
	Title string  `yaml:"title"`
	Price float64 `yaml:"price"`
}

// Catalog is the complete fixture set
type Catalog struct {
	Brands               []models.Brand        `yaml:"brands"`
	BrandCombinations    [][]models.Brand      `yaml:"brand_combinations"`
	PriceRanges          []PriceRangeCase      `yaml:"price_ranges"`
	BoundaryValues       []BoundaryCase        `yaml:"boundary_values"`
	InvalidInputs        InvalidInputs         `yaml:"invalid_inputs"`
	SortTypes            []SortType            `yaml:"sort_types"`
	ViewTypes            []models.ViewMode     `yaml:"view_types"`
	ResultsPerPage       []int                 `yaml:"results_per_page"`
	ComplexScenarios     []ComplexScenario     `yaml:"complex_scenarios"`
	PerformanceScenarios []PerformanceScenario `yaml:"performance_scenarios"`
	EdgeCases            []EdgeCase            `yaml:"edge_cases"`
	NetworkConditions    []NetworkCondition    `yaml:"network_conditions"`
	ExpectedCounts       ExpectedCounts        `yaml:"expected_counts"`
	ValidationRules      ValidationRules       `yaml:"validation_rules"`
	SuiteConfig          SuiteConfig           `yaml:"suite_config"`
	Login                LoginFixtures         `yaml:"login"`
	Products             []ProductFixture      `yaml:"products"`
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode fixture catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture catalog: %w", err)
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Load returns the embedded catalog, parsed once
func Load() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// MustLoad is Load for callers that treat broken embedded data as a programming error
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// validate canonicalises every symbolic name so unmapped ones fail at load time
func (c *Catalog) validate() error {
	var err error
	canon := func(brands []models.Brand) []models.Brand {
		out := make([]models.Brand, 0, len(brands))
		for _, b := range brands {
			parsed, perr := models.ParseBrand(string(b))
			if perr != nil && err == nil {
				err = perr
			}
			out = append(out, parsed)
		}
		return out
	}

	c.Brands = canon(c.Brands)
	for i := range c.BrandCombinations {
		c.BrandCombinations[i] = canon(c.BrandCombinations[i])
	}
	for i := range c.PriceRanges {
		c.PriceRanges[i].ExpectedBrands = canon(c.PriceRanges[i].ExpectedBrands)
	}
	for i := range c.ComplexScenarios {
		c.ComplexScenarios[i].Brands = canon(c.ComplexScenarios[i].Brands)
	}
	for i := range c.EdgeCases {
		c.EdgeCases[i].Brands = canon(c.EdgeCases[i].Brands)
	}
	for _, s := range c.PerformanceScenarios {
		for i := range s.Actions {
			s.Actions[i].Brands = canon(s.Actions[i].Brands)
		}
	}
	if err != nil {
		return err
	}

	for _, s := range c.SortTypes {
		if _, err := models.ParseSortKey(string(s.Value)); err != nil {
			return err
		}
	}
	for _, s := range c.ComplexScenarios {
		if _, err := models.ParseSortKey(string(s.Sort)); err != nil {
			return err
		}
		if _, err := models.ParseViewMode(string(s.View)); err != nil {
			return err
		}
	}
	for _, v := range c.ViewTypes {
		if _, err := models.ParseViewMode(string(v)); err != nil {
			return err
		}
	}

	if len(c.Products) != c.ExpectedCounts.Total {
		return fmt.Errorf("catalog lists %d products, expected counts say %d", len(c.Products), c.ExpectedCounts.Total)
	}
	return nil
}

// KnownCatalog returns the reference products as a scraped listing would read them
func (c *Catalog) KnownCatalog() []models.Product {
	products := make([]models.Product, len(c.Products))
	for i, p := range c.Products {
		products[i] = models.NewProduct(i, p.Title, FormatPrice(p.Price), true)
	}
	return products
}

// AllowedSortValues lists the sort keys of the fixture sort types
func (c *Catalog) AllowedSortValues() []models.SortKey {
	keys := make([]models.SortKey, len(c.SortTypes))
	for i, s := range c.SortTypes {
		keys[i] = s.Value
	}
	return keys
}

// User looks up a login fixture by username
func (c *Catalog) User(username string) (LoginUser, bool) {
	for _, u := range c.Login.Users {
		if u.Username == username {
			return u, true
		}
	}
	return LoginUser{}, false
}

// FormatPrice renders a price the way the storefront displays it, e.g. "$1,099.00"
func FormatPrice(price float64) string {
	whole, frac, _ := strings.Cut(strconv.FormatFloat(price, 'f', 2, 64), ".")

	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
