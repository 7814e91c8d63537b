package services

import (
	"context"
	"fmt"
	"time"

	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
)

// Performance bounds beyond the fixture suite config
const (
	maxFirstContentfulPaintMillis = 3000
	slowNetworkBudget             = 5 * time.Second
	interactionBudget             = 5 * time.Second
)

func pageLoadPerformance(ctx context.Context, env *Env) error {
	perf := env.Catalog.SuiteConfig.Performance

	timed, err := pages.MeasureResponseTime(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, env.Session.Base.Open(ctx, "/")
	})
	if err != nil {
		return err
	}
	if err := env.Session.Listing.WaitForProductsToLoad(ctx); err != nil {
		return err
	}
	env.Rec.Check(timed.Elapsed < perf.MaxPageLoadTime, models.FeaturePerformance,
		"listing loaded in %dms, budget %dms", timed.Millis(), perf.MaxPageLoadTime.Milliseconds())

	result, err := env.Session.Listing.VerifyPageLoadPerformance(ctx)
	if err != nil {
		return err
	}
	env.Log.Info("page load metrics",
		zap.Float64("dom_content_loaded", result.Metrics.DOMContentLoaded),
		zap.Float64("load_complete", result.Metrics.LoadComplete),
		zap.Float64("first_paint", result.Metrics.FirstPaint),
		zap.Float64("first_contentful_paint", result.Metrics.FirstContentfulPaint))

	env.Rec.Check(result.Score > perf.MinScore, models.FeaturePerformance, "performance score %d, need more than %d", result.Score, perf.MinScore)
	env.Rec.Check(result.Metrics.FirstContentfulPaint < maxFirstContentfulPaintMillis, models.FeaturePerformance,
		"first contentful paint after %.0fms", result.Metrics.FirstContentfulPaint)

	timed, err = pages.MeasureResponseTime(ctx, func(ctx context.Context) (struct{}, error) {
		_, err := env.Session.Listing.GetAllProducts(ctx)
		return struct{}{}, err
	})
	if err != nil {
		return err
	}
	env.Rec.Check(timed.Elapsed < env.Catalog.SuiteConfig.Timeout.PageLoad, models.FeaturePerformance,
		"parsed the listing in %dms", timed.Millis())
	return nil
}

func interactionResponsiveness(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}

	scrolled, err := pages.MeasureResponseTime(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, env.Session.Listing.ScrollToBottom(ctx)
	})
	if err != nil {
		return err
	}
	env.Rec.Check(scrolled.Elapsed < interactionBudget, models.FeaturePerformance,
		"scrolled to the bottom in %dms, budget %dms", scrolled.Millis(), interactionBudget.Milliseconds())

	panel, _ := pages.MeasureResponseTime(ctx, func(ctx context.Context) (bool, error) {
		return env.Session.Filters.IsFilterPanelVisible(ctx), nil
	})
	env.Rec.Check(panel.Elapsed < interactionBudget, models.FeaturePerformance,
		"checked the filter panel in %dms, budget %dms", panel.Millis(), interactionBudget.Milliseconds())
	if env.Report.Has(models.FeatureFilterPanel) {
		env.Rec.Check(panel.Result, models.FeatureFilterPanel, "filter panel still shown after scrolling")
	} else {
		env.Rec.Absent(models.FeatureFilterPanel, "no filter panel to check after scrolling")
	}
	return nil
}

func slowNetworkResponse(ctx context.Context, env *Env) error {
	if _, err := env.baseline(ctx); err != nil {
		return err
	}
	if err := env.Session.Base.SetNetworkCondition(ctx, pages.NetworkSlow3G); err != nil {
		return err
	}

	elapsed, c := env.Session.Filters.MeasureFilterResponseTime(ctx, func(ctx context.Context) models.Capability {
		return env.Session.Filters.SelectBrandFilter(ctx, models.BrandPixel)
	})
	if !env.Rec.Capability(c) {
		return nil
	}
	env.Rec.Check(elapsed < slowNetworkBudget, models.FeaturePerformance,
		"brand filter answered in %dms on slow 3G, budget %dms", elapsed.Milliseconds(), slowNetworkBudget.Milliseconds())
	return nil
}

func filterResponse(ps fixtures.PerformanceScenario) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		if _, err := env.baseline(ctx); err != nil {
			return err
		}

		var total time.Duration
		for _, action := range ps.Actions {
			if action.Type == fixtures.ActionWait {
				if err := env.Session.Base.Pause(ctx, action.Wait); err != nil {
					return err
				}
				continue
			}

			elapsed, c := env.Session.Filters.MeasureFilterResponseTime(ctx, func(ctx context.Context) models.Capability {
				return runAction(ctx, env.Session.Filters, action)
			})
			if !env.Rec.Capability(c) {
				return nil
			}
			total += elapsed
		}

		env.Rec.Check(total < ps.ExpectedResponseTime, models.FeaturePerformance,
			"%s took %dms, budget %dms", ps.Name, total.Milliseconds(), ps.ExpectedResponseTime.Milliseconds())
		return nil
	}
}

func runAction(ctx context.Context, filters *pages.FilterPanel, action fixtures.Action) models.Capability {
	switch action.Type {
	case fixtures.ActionSelectBrand:
		return forEachBrand(action.Brands, func(b models.Brand) models.Capability { return filters.SelectBrandFilter(ctx, b) })
	case fixtures.ActionDeselectBrand:
		return forEachBrand(action.Brands, func(b models.Brand) models.Capability { return filters.DeselectBrandFilter(ctx, b) })
	case fixtures.ActionSelectBrands:
		return filters.SelectMultipleBrandFilters(ctx, action.Brands)
	case fixtures.ActionSetPriceRange:
		return filters.SetPriceRange(ctx, action.PriceRange.Min, action.PriceRange.Max)
	case fixtures.ActionSort:
		return filters.ApplySortFilter(ctx, action.Sort)
	case fixtures.ActionView:
		return filters.ChangeViewType(ctx, action.View)
	default:
		return models.Failed(models.FeaturePerformance, &models.UnknownFilterError{Kind: "action", Name: string(action.Type)})
	}
}

func forEachBrand(brands []models.Brand, op func(models.Brand) models.Capability) models.Capability {
	if len(brands) == 0 {
		return models.Failed(models.FeatureBrandFilter, fmt.Errorf("brand action without brands"))
	}
	var c models.Capability
	for _, b := range brands {
		if c = op(b); !c.IsPresent() {
			return c
		}
	}
	return c
}

func loginUser(user fixtures.LoginUser) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		login := env.Session.Login
		if err := login.Open(ctx); err != nil {
			return err
		}
		env.Rec.Check(login.IsLogoDisplayed(ctx), models.FeatureLogin, "sign-in logo displayed")

		if err := login.Login(ctx, user.Username, env.Catalog.Login.Password); err != nil {
			env.Rec.Fail(models.FeatureLogin, "could not submit credentials for %s: %v", user.Username, err)
			return nil
		}

		if user.ExpectError != "" {
			text, err := login.ErrorText(ctx)
			if err != nil {
				env.Rec.Fail(models.FeatureLogin, "%s: no error shown: %v", user.Username, err)
				return nil
			}
			env.Rec.Check(text == user.ExpectError, models.FeatureLogin, "%s refused with %q", user.Username, text)
			return nil
		}

		if err := login.WaitForLogin(ctx); err != nil {
			env.Rec.Fail(models.FeatureLogin, "%s did not log in: %v", user.Username, err)
			return nil
		}
		env.Rec.Pass(models.FeatureLogin, "%s logged in", user.Username)

		if err := login.Logout(ctx); err != nil {
			env.Rec.Fail(models.FeatureLogin, "%s could not log out: %v", user.Username, err)
			return nil
		}
		env.Rec.Check(!login.IsLoggedIn(ctx), models.FeatureLogin, "%s logged out", user.Username)
		return nil
	}
}

func loginInvalidCredentials(ctx context.Context, env *Env) error {
	fx := env.Catalog.Login
	if len(fx.Users) == 0 {
		return fmt.Errorf("no login users in fixtures")
	}
	return expectLoginError(ctx, env, fx.Users[0].Username, fx.InvalidPassword, fx.InvalidCredentialsError)
}

func loginEmptyFields(ctx context.Context, env *Env) error {
	return expectLoginError(ctx, env, "", "", env.Catalog.Login.EmptyFieldsError)
}

func expectLoginError(ctx context.Context, env *Env, username, password, want string) error {
	login := env.Session.Login
	if err := login.Open(ctx); err != nil {
		return err
	}
	if err := login.Login(ctx, username, password); err != nil {
		env.Rec.Fail(models.FeatureLogin, "could not submit credentials: %v", err)
		return nil
	}

	text, err := login.ErrorText(ctx)
	if err != nil {
		env.Rec.Fail(models.FeatureLogin, "no error shown: %v", err)
		return nil
	}
	env.Rec.Check(text == want, models.FeatureLogin, "login refused with %q, expected %q", text, want)
	env.Rec.Check(!login.IsLoggedIn(ctx), models.FeatureLogin, "still logged out after a refused login")
	return nil
}
