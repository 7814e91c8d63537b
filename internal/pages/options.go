// Package pages holds the page objects of the storefront: a base interaction
// layer shared by every page, the product listing, the filter panel and the
// sign-in page. Page objects never cache element handles; every access
// re-resolves its Locator against the live DOM.
package pages

import (
	"time"

	"github.com/testathon/shopcheck/internal/fixtures"
)

// Options are the timings and locations shared by every page object
type Options struct {
	BaseURL             string
	ScreenshotDir       string
	ScreenshotOnFailure bool
	ScreenshotOnSuccess bool

	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
	FilterTimeout   time.Duration
	PollInterval    time.Duration

	RetryAttempts int
	RetryDelay    time.Duration

	ScrollSettle     time.Duration
	LazyLoadSettle   time.Duration
	BrandSelectDelay time.Duration
	SpinnerAppear    time.Duration
	FilterSettle     time.Duration
	CartTimeout      time.Duration
}

// DefaultOptions returns the timings the suite runs with against a live site
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:             baseURL,
		ScreenshotDir:       "./screenshots",
		ScreenshotOnFailure: true,
		PageLoadTimeout:     10 * time.Second,
		ElementTimeout:      5 * time.Second,
		FilterTimeout:       5 * time.Second,
		PollInterval:        100 * time.Millisecond,
		RetryAttempts:       3,
		RetryDelay:          time.Second,
		ScrollSettle:        500 * time.Millisecond,
		LazyLoadSettle:      time.Second,
		BrandSelectDelay:    500 * time.Millisecond,
		SpinnerAppear:       2 * time.Second,
		FilterSettle:        time.Second,
		CartTimeout:         5 * time.Second,
	}
}

// WithSuite applies the fixture catalog's timeouts, retry policy and
// screenshot settings. Zero values keep the current option.
func (o Options) WithSuite(suite fixtures.SuiteConfig) Options {
	if suite.Timeout.PageLoad > 0 {
		o.PageLoadTimeout = suite.Timeout.PageLoad
	}
	if suite.Timeout.ElementWait > 0 {
		o.ElementTimeout = suite.Timeout.ElementWait
	}
	if suite.Timeout.FilterApplication > 0 {
		o.FilterTimeout = suite.Timeout.FilterApplication
	}
	if suite.Retry.Attempts > 0 {
		o.RetryAttempts = suite.Retry.Attempts
	}
	if suite.Retry.Delay > 0 {
		o.RetryDelay = suite.Retry.Delay
	}
	if suite.Screenshots.Path != "" {
		o.ScreenshotDir = suite.Screenshots.Path
	}
	o.ScreenshotOnFailure = suite.Screenshots.OnFailure
	o.ScreenshotOnSuccess = suite.Screenshots.OnSuccess
	return o
}
