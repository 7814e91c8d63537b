package services

import (
	"context"

	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
)

// Realistic bounds for the phone catalog
const (
	minCatalogPrice      = 100
	maxCatalogPrice      = 2000
	minAveragePrice      = 500
	maxAveragePrice      = 1200
	imagesChecked        = 10
	minValidImagePercent = 80
)

func catalogDisplay(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	total := env.Catalog.ExpectedCounts.Total
	env.Rec.Check(len(products) == total, models.FeatureCatalog, "listing shows %d products, expected %d", len(products), total)

	displayed, err := env.Session.Listing.GetDisplayedProductCount(ctx)
	if err != nil {
		return err
	}
	env.Rec.Check(displayed == len(products), models.FeatureCatalog, "product counter says %d, %d cards rendered", displayed, len(products))
	return nil
}

func catalogValidity(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}

	rules := env.Catalog.ValidationRules.Product.ProductRules
	valid := 0
	for _, p := range products {
		issues := p.Validate(rules)
		if len(issues) == 0 {
			valid++
			continue
		}
		env.Log.Info("invalid product record", zap.String("title", p.Title), zap.Strings("issues", issues))
	}

	percent := float64(valid) / float64(len(products)) * 100
	minPercent := env.Catalog.ValidationRules.Product.MinValidPercent
	env.Rec.Check(percent > minPercent, models.FeatureCatalog,
		"%.1f%% of product records valid (%d of %d), need more than %.0f%%", percent, valid, len(products), minPercent)
	return nil
}

func catalogBrands(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}

	counts := models.CountByBrand(products)
	sum := 0
	for _, brand := range models.AllBrands() {
		n := counts[brand]
		sum += n
		env.Rec.Check(n > 0, models.FeatureCatalog, "%d %s products listed", n, brand)
	}
	env.Rec.Check(sum == len(products), models.FeatureCatalog,
		"brand counts add up to %d of %d products", sum, len(products))
	return nil
}

func catalogPrices(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}

	stats := models.ComputePriceStats(products)
	env.Log.Info("price distribution",
		zap.Float64("min", stats.Min), zap.Float64("max", stats.Max),
		zap.Float64("mean", stats.Mean), zap.Float64("median", stats.Median))

	env.Rec.Check(stats.Min > minCatalogPrice, models.FeatureCatalog, "cheapest phone costs $%.2f", stats.Min)
	env.Rec.Check(stats.Max < maxCatalogPrice, models.FeatureCatalog, "most expensive phone costs $%.2f", stats.Max)
	env.Rec.Check(stats.Mean > minAveragePrice && stats.Mean < maxAveragePrice, models.FeatureCatalog,
		"average price $%.2f, expected between $%d and $%d", stats.Mean, minAveragePrice, maxAveragePrice)

	for _, band := range env.Catalog.ExpectedCounts.PriceBands {
		n := len(models.FilterByPriceRange(products, band.Min, band.Max))
		env.Rec.Check(n == band.Count, models.FeatureCatalog, "%d products in price band %s, expected %d", n, band.Name, band.Count)
	}
	return nil
}

func catalogImages(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	images, err := env.Session.Listing.GetProductImages(ctx, imagesChecked)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		env.Rec.Fail(models.FeatureCatalog, "listing renders no images")
		return nil
	}

	valid := 0
	for i, img := range images {
		if img.Valid() {
			valid++
			continue
		}
		env.Log.Info("image without source", zap.Int("index", i), zap.String("alt", img.Alt))
	}
	percent := float64(valid) / float64(len(images)) * 100
	env.Rec.Check(percent > minValidImagePercent, models.FeatureCatalog,
		"%d of %d checked images have a source", valid, len(images))
	return nil
}

func cartAdd(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	listing := env.Session.Listing

	before, err := listing.GetCartCount(ctx)
	if err != nil {
		return err
	}
	if err := listing.AddProductToCart(ctx, 0); err != nil {
		env.Rec.Fail(models.FeatureCart, "adding the first product failed: %v", err)
		return nil
	}
	after, err := listing.GetCartCount(ctx)
	if err != nil {
		return err
	}

	env.Rec.Check(after == before+1, models.FeatureCart, "cart count went from %d to %d", before, after)
	env.Rec.Check(listing.IsElementDisplayed(ctx, pages.CartIcon), models.FeatureCart, "cart icon displayed")
	return nil
}

// cartItems is how many available products cartAddMultiple puts in the cart
const cartItems = 3

func cartAddMultiple(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	listing := env.Session.Listing

	var added int
	for _, p := range products {
		if added == cartItems {
			break
		}
		if !p.IsAvailable {
			continue
		}
		before, err := listing.GetCartCount(ctx)
		if err != nil {
			return err
		}
		if err := listing.AddProductToCart(ctx, p.Index); err != nil {
			env.Rec.Fail(models.FeatureCart, "adding %s failed: %v", p.Title, err)
			return nil
		}
		after, err := listing.GetCartCount(ctx)
		if err != nil {
			return err
		}
		env.Rec.Check(after == before+1, models.FeatureCart, "adding %s moved the cart from %d to %d", p.Title, before, after)
		added++
	}
	env.Rec.Check(added == cartItems, models.FeatureCart, "%d of %d products could be added", added, cartItems)
	return nil
}

func responsiveLayout(ctx context.Context, env *Env) error {
	products, err := env.baseline(ctx)
	if err != nil {
		return err
	}
	base := env.Session.Base

	mobile, err := base.IsMobileDevice(ctx)
	if err != nil {
		return err
	}
	tablet, err := base.IsTabletDevice(ctx)
	if err != nil {
		return err
	}
	if !mobile && !tablet {
		env.Rec.Pass(models.FeatureCatalog, "desktop layout shows %d products", len(products))
		return nil
	}

	total := env.Catalog.ExpectedCounts.Total
	layout := "tablet"
	if mobile {
		layout = "mobile"
	}
	env.Rec.Check(len(products) == total, models.FeatureCatalog, "%s layout shows %d products, expected %d", layout, len(products), total)
	if mobile {
		env.Rec.Capability(env.Session.Filters.OpenFilterPanel(ctx))
	}
	return nil
}
