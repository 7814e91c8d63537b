// Package handlers serves an offline replica of the storefront. The replica
// uses the same markup and class names as the live site so page objects,
// discovery and the e2e suite can run without network access. Each page
// also exposes a driver.ClickHook that reproduces its inline script for the
// in-memory Document driver.
package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// StorefrontOptions selects which affordances the replica renders. The live
// site only offers vendor checkboxes; FilterPanel renders the full panel the
// suite is designed against. InertVendors keeps the page script but lets
// vendor checkboxes toggle without filtering, which is how the live site
// behaves.
type StorefrontOptions struct {
	FilterPanel  bool
	Vendors      bool
	Interactive  bool
	InertVendors bool
}

// LiveLike mirrors the live storefront: vendor checkboxes that do not filter
// and a working cart
func LiveLike() StorefrontOptions {
	return StorefrontOptions{Vendors: true, Interactive: true, InertVendors: true}
}

// Vendor is one brand checkbox as the site labels it
type Vendor struct {
	Value string
	Label string
}

// SortOption is one entry of the sort dropdown
type SortOption struct {
	Value models.SortKey
	Label string
}

type storefrontPage struct {
	Options      StorefrontOptions
	Vendors      []Vendor
	Sorts        []SortOption
	PerPage      []int
	VendorBrands map[string]models.Brand
	Products     []models.Product
}

// vendors are listed the way the live site names them
var vendors = []string{"Apple", "Samsung", "Google", "OnePlus"}

// StorefrontHandler handles the product listing page requests
type StorefrontHandler struct {
	template *template.Template
	page     storefrontPage
}

// NewStorefrontHandler creates a StorefrontHandler listing the catalog products
func NewStorefrontHandler(catalog *fixtures.Catalog, opts StorefrontOptions) (*StorefrontHandler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	page := storefrontPage{
		Options:      opts,
		PerPage:      catalog.ResultsPerPage,
		VendorBrands: make(map[string]models.Brand, len(vendors)),
		Products:     catalog.KnownCatalog(),
	}
	for _, v := range vendors {
		brand, err := models.ParseBrand(v)
		if err != nil {
			return nil, err
		}
		page.Vendors = append(page.Vendors, Vendor{Value: v, Label: v})
		page.VendorBrands[v] = brand
	}
	for _, s := range catalog.SortTypes {
		page.Sorts = append(page.Sorts, SortOption{Value: s.Value, Label: s.Description})
	}

	return &StorefrontHandler{
		template: tmpl,
		page:     page,
	}, nil
}

// ServeHTTP handles the GET / request
func (h *StorefrontHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.template.ExecuteTemplate(w, "storefront.html", h.page); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// HTML renders the page as it is first served
func (h *StorefrontHandler) HTML() (string, error) {
	var buf bytes.Buffer
	if err := h.template.ExecuteTemplate(&buf, "storefront.html", h.page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ClickHook reproduces the page script: brand, sort, apply and clear
// re-render the shelf, the view buttons switch layout and buy buttons
// increment the cart.
func (h *StorefrontHandler) ClickHook() driver.ClickHook {
	return func(doc *goquery.Document, target *goquery.Selection) {
		if !h.page.Options.Interactive {
			return
		}

		switch {
		case target.Is(".clear-filters"):
			doc.Find(`input[name="brand"]`).RemoveAttr("checked")
			doc.Find(`input[name="min_price"], input[name="max_price"]`).RemoveAttr("value")
			doc.Find(`select[name="sort"] option`).RemoveAttr("selected")
			h.renderShelf(doc)
		case target.Is(".grid-view, .list-view"):
			doc.Find(".grid-view, .list-view").RemoveClass("active")
			target.AddClass("active")
			layout := "grid"
			if target.Is(".list-view") {
				layout = "list"
			}
			doc.Find(".shelf-container").SetAttr("class", "shelf-container "+layout)
		case target.Is(".shelf-item__buy-btn"):
			bag := doc.Find(".bag__quantity").First()
			n, _ := strconv.Atoi(strings.TrimSpace(bag.Text()))
			bag.SetText(strconv.Itoa(n + 1))
		case target.Is(`.apply-filters, select[name="sort"], select[name="sort"] option`):
			h.renderShelf(doc)
		case target.Is(`input[name="brand"]`),
			target.Is("label") && target.Find(`input[name="brand"]`).Length() > 0:
			if !h.page.Options.InertVendors {
				h.renderShelf(doc)
			}
		}
	}
}

// renderShelf replaces the shelf with the products matching the form state
func (h *StorefrontHandler) renderShelf(doc *goquery.Document) {
	var criteria models.Criteria
	if !h.page.Options.InertVendors {
		doc.Find(`input[name="brand"][checked]`).Each(func(_ int, s *goquery.Selection) {
			if brand, ok := h.page.VendorBrands[s.AttrOr("value", "")]; ok {
				criteria.Brands = append(criteria.Brands, brand)
			}
		})
	}
	criteria.MinPrice = priceBound(doc.Find(`input[name="min_price"]`).First())
	criteria.MaxPrice = priceBound(doc.Find(`input[name="max_price"]`).First())

	var visible []models.Product
	for _, p := range h.page.Products {
		if criteria.Matches(p) {
			visible = append(visible, p)
		}
	}

	sortKey := models.SortKey(doc.Find(`select[name="sort"] option[selected]`).AttrOr("value", ""))
	sortProducts(visible, sortKey)

	var buf bytes.Buffer
	if err := h.template.ExecuteTemplate(&buf, "shelf", visible); err != nil {
		return
	}
	doc.Find(".shelf-container").SetHtml(buf.String())
}

// priceBound reads a price input, clearing values the page would refuse
func priceBound(input *goquery.Selection) *float64 {
	raw, ok := input.Attr("value")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		input.RemoveAttr("value")
		return nil
	}
	return &v
}

func sortProducts(products []models.Product, key models.SortKey) {
	var less func(a, b models.Product) bool
	switch key {
	case models.SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case models.SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case models.SortNameAsc:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case models.SortNameDesc:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}
