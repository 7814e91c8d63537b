package pages

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap"
)

// Listing page locators
var (
	ProductGrid   = L("product grid", ".shelf-container")
	ProductCards  = L("product cards", ".shelf-item")
	ProductTitle  = L("product title", ".shelf-item__title")
	ProductPrice  = L("product price", ".shelf-item__price .val", ".shelf-item__price")
	ProductImages = L("product images", ".shelf-item__thumb img", "img")
	AddToCart     = L("add to cart button", ".shelf-item__buy-btn")
	ProductsFound = L("product counter", ".products-found")
	NoResults     = L("no results message", ".no-results", ".empty-state")
	Spinner       = L("loading spinner", ".loading", ".spinner")
	CartIcon      = L("cart icon", ".float-cart", ".bag")
	CartCounter   = L("cart counter", ".bag__quantity")

	HomeLink       = L("home link", `a[href="/"]`, `a[href="#home"]`, ".logo")
	OffersLink     = L("offers link", "#offers", `xpath=//a[contains(text(), "Offers")]`)
	OrdersLink     = L("orders link", "#orders", `xpath=//a[contains(text(), "Orders")]`)
	FavouritesLink = L("favourites link", "#favourites", `xpath=//a[contains(text(), "Favourites")]`)
	SignInLink     = L("sign in link", "#signin", `xpath=//a[contains(text(), "Sign In")]`)
)

// NavigationLinks are the header links of the storefront
var NavigationLinks = []Locator{HomeLink, OffersLink, OrdersLink, FavouritesLink, SignInLink}

var firstInteger = regexp.MustCompile(`\d+`)

// Performance score deductions
const (
	maxDOMContentLoadedMillis = 2000
	maxLoadCompleteMillis     = 3000
	maxFirstContentfulMillis  = 1500
	scorePenalty              = 20
)

// ProductImage is the source and alt text of one listing image
type ProductImage struct {
	Src string
	Alt string
}

// Valid reports whether the image has a source
func (i ProductImage) Valid() bool {
	return strings.TrimSpace(i.Src) != ""
}

// PerformanceResult is a page-load measurement and its score
type PerformanceResult struct {
	Metrics PerformanceMetrics
	Score   int
}

// ListingPage is the product catalog page
type ListingPage struct {
	*BasePage
}

// NewListingPage creates a ListingPage over one driver session
func NewListingPage(base *BasePage) *ListingPage {
	return &ListingPage{BasePage: base}
}

// Open navigates to the catalog and waits for products to render
func (p *ListingPage) Open(ctx context.Context) error {
	if err := p.BasePage.Open(ctx, "/"); err != nil {
		return err
	}
	return p.WaitForProductsToLoad(ctx)
}

// WaitForProductsToLoad waits out the spinner, then for the grid to show
// cards or the no-results message
func (p *ListingPage) WaitForProductsToLoad(ctx context.Context) error {
	if _, err := p.WaitForDisplayed(ctx, Spinner, p.opts.SpinnerAppear); err == nil {
		if err := p.WaitForElements(ctx, []Locator{Spinner}, false); err != nil {
			return err
		}
	} else if !IsTimeout(err) {
		return err
	}

	if err := p.WaitForElements(ctx, []Locator{ProductGrid}, true); err != nil {
		return err
	}

	timeout := p.opts.PageLoadTimeout
	return p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "wait for products",
		Timeout: timeout,
		Msg:     fmt.Sprintf("no product cards found within %dms", timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		if ProductCards.Exists(ctx, p.driver) {
			return true, nil
		}
		return p.IsNoResultsDisplayed(ctx), nil
	})
}

// GetAllProducts parses every card of the current render. Cards that fail
// to parse are logged and skipped.
func (p *ListingPage) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	cards, err := ProductCards.ResolveAll(ctx, p.driver)
	if err != nil {
		return nil, fmt.Errorf("failed to list product cards: %w", err)
	}

	products := make([]models.Product, 0, len(cards))
	for i, card := range cards {
		product, err := p.parseCard(ctx, i, card)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.log.Warn("skipping product card", zap.Int("index", i), zap.Error(err))
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

func (p *ListingPage) parseCard(ctx context.Context, index int, card driver.Element) (models.Product, error) {
	titleEl, err := ProductTitle.Resolve(ctx, card)
	if err != nil {
		return models.Product{}, err
	}
	title, err := titleEl.Text(ctx)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to read title: %w", err)
	}

	priceText := ""
	if priceEl, err := ProductPrice.Resolve(ctx, card); err == nil {
		if priceText, err = priceEl.Text(ctx); err != nil {
			return models.Product{}, fmt.Errorf("failed to read price: %w", err)
		}
	}

	available := false
	if buy, err := AddToCart.Resolve(ctx, card); err == nil {
		available, _ = buy.IsDisplayed(ctx)
	}

	return models.NewProduct(index, strings.TrimSpace(title), strings.TrimSpace(priceText), available), nil
}

// GetProductCount counts the cards of the current render
func (p *ListingPage) GetProductCount(ctx context.Context) (int, error) {
	cards, err := ProductCards.ResolveAll(ctx, p.driver)
	if err != nil {
		return 0, err
	}
	return len(cards), nil
}

// GetDisplayedProductCount reads the first integer of the product counter,
// falling back to the card count when there is no counter
func (p *ListingPage) GetDisplayedProductCount(ctx context.Context) (int, error) {
	el, err := ProductsFound.Resolve(ctx, p.driver)
	if err != nil {
		return p.GetProductCount(ctx)
	}
	text, err := el.Text(ctx)
	if err != nil {
		return p.GetProductCount(ctx)
	}
	match := firstInteger.FindString(text)
	if match == "" {
		return 0, nil
	}
	return strconv.Atoi(match)
}

// GetProductsByBrand scrapes the listing and keeps one brand
func (p *ListingPage) GetProductsByBrand(ctx context.Context, brand models.Brand) ([]models.Product, error) {
	products, err := p.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterByBrand(products, brand), nil
}

// GetProductsInPriceRange scrapes the listing and keeps an inclusive price window
func (p *ListingPage) GetProductsInPriceRange(ctx context.Context, min, max float64) ([]models.Product, error) {
	products, err := p.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterByPriceRange(products, min, max), nil
}

// VerifyProductsMatchCriteria scrapes the listing and checks it against criteria
func (p *ListingPage) VerifyProductsMatchCriteria(ctx context.Context, criteria models.Criteria) (models.Verification, error) {
	products, err := p.GetAllProducts(ctx)
	if err != nil {
		return models.Verification{}, err
	}
	return models.VerifyProducts(products, criteria), nil
}

// AddProductToCart clicks the buy button of the card at index and waits for
// the cart counter to increase
func (p *ListingPage) AddProductToCart(ctx context.Context, index int) error {
	cards, err := ProductCards.ResolveAll(ctx, p.driver)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(cards) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(cards))
	}

	before, err := p.GetCartCount(ctx)
	if err != nil {
		return err
	}

	buy, err := AddToCart.Resolve(ctx, cards[index])
	if err != nil {
		return fmt.Errorf("product %d cannot be added to the cart: %w", index, err)
	}
	if err := buy.ScrollIntoView(ctx); err != nil {
		return err
	}
	if err := p.ClickElement(ctx, buy, AddToCart.Name); err != nil {
		return err
	}

	timeout := p.opts.CartTimeout
	return p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "wait for cart update",
		Timeout: timeout,
		Msg:     fmt.Sprintf("cart count did not increase within %dms", timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		after, err := p.GetCartCount(ctx)
		return after > before, err
	})
}

// GetCartCount reads the cart counter; a missing counter reads as zero
func (p *ListingPage) GetCartCount(ctx context.Context) (int, error) {
	el, err := CartCounter.Resolve(ctx, p.driver)
	if err != nil {
		return 0, nil
	}
	text, err := el.Text(ctx)
	if err != nil {
		return 0, err
	}
	match := firstInteger.FindString(text)
	if match == "" {
		return 0, nil
	}
	return strconv.Atoi(match)
}

// GetProductImages reads the first limit listing images; limit <= 0 reads all
func (p *ListingPage) GetProductImages(ctx context.Context, limit int) ([]ProductImage, error) {
	elements, err := ProductImages.ResolveAll(ctx, p.driver)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if limit > 0 && len(elements) > limit {
		elements = elements[:limit]
	}

	images := make([]ProductImage, 0, len(elements))
	for _, el := range elements {
		src, _, err := el.Attribute(ctx, "src")
		if err != nil {
			return nil, fmt.Errorf("failed to read image source: %w", err)
		}
		alt, _, err := el.Attribute(ctx, "alt")
		if err != nil {
			return nil, fmt.Errorf("failed to read image alt text: %w", err)
		}
		images = append(images, ProductImage{Src: src, Alt: alt})
	}
	return images, nil
}

// IsNoResultsDisplayed reports whether the empty-listing message shows
func (p *ListingPage) IsNoResultsDisplayed(ctx context.Context) bool {
	return p.IsElementDisplayed(ctx, NoResults)
}

// VerifyPageLoadPerformance captures the page timings and scores them
func (p *ListingPage) VerifyPageLoadPerformance(ctx context.Context) (PerformanceResult, error) {
	metrics, err := p.CapturePerformanceMetrics(ctx)
	if err != nil {
		return PerformanceResult{}, err
	}
	return PerformanceResult{Metrics: metrics, Score: CalculatePerformanceScore(metrics)}, nil
}

// CalculatePerformanceScore starts at 100 and deducts 20 for each slow
// timing: DOMContentLoaded over 2s, load over 3s, first contentful paint over 1.5s
func CalculatePerformanceScore(m PerformanceMetrics) int {
	score := 100
	if m.DOMContentLoaded > maxDOMContentLoadedMillis {
		score -= scorePenalty
	}
	if m.LoadComplete > maxLoadCompleteMillis {
		score -= scorePenalty
	}
	if m.FirstContentfulPaint > maxFirstContentfulMillis {
		score -= scorePenalty
	}
	return max(0, score)
}

// ScrollToBottom scrolls the window to the end and waits for lazy loading
func (p *ListingPage) ScrollToBottom(ctx context.Context) error {
	if _, err := p.driver.Execute(ctx, driver.ScriptScrollToBottom); err != nil {
		return fmt.Errorf("failed to scroll to bottom: %w", err)
	}
	return sleep(ctx, p.opts.LazyLoadSettle)
}

// RefreshPage reloads the page and waits for products to render again
func (p *ListingPage) RefreshPage(ctx context.Context) error {
	if err := p.driver.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}
	if err := p.WaitForPageLoad(ctx); err != nil {
		return err
	}
	return p.WaitForProductsToLoad(ctx)
}

// VisibleNavigationLinks returns the names of the header links currently shown
func (p *ListingPage) VisibleNavigationLinks(ctx context.Context) []string {
	var names []string
	for _, link := range NavigationLinks {
		if p.IsElementDisplayed(ctx, link) {
			names = append(names, link.Name)
		}
	}
	return names
}
