package pages

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/testathon/shopcheck/internal/driver"
	"go.uber.org/zap"
)

// PerformanceMetrics are the navigation and paint timings of the current page, in ms
type PerformanceMetrics struct {
	DOMContentLoaded     float64 `json:"domContentLoaded"`
	LoadComplete         float64 `json:"loadComplete"`
	FirstPaint           float64 `json:"firstPaint"`
	FirstContentfulPaint float64 `json:"firstContentfulPaint"`
}

// Timed is the result of an action together with how long it took
type Timed[T any] struct {
	Result  T
	Elapsed time.Duration
}

// Millis returns the elapsed time in milliseconds
func (t Timed[T]) Millis() int64 {
	return t.Elapsed.Milliseconds()
}

// MeasureResponseTime runs action and records its wall-clock duration
func MeasureResponseTime[T any](ctx context.Context, action func(context.Context) (T, error)) (Timed[T], error) {
	start := time.Now()
	result, err := action(ctx)
	return Timed[T]{Result: result, Elapsed: time.Since(start)}, err
}

// Viewport breakpoints
const (
	MobileMaxWidth = 768
	TabletMaxWidth = 1024
)

// Network condition names understood by SetNetworkCondition
const (
	NetworkSlow3G  = "slow3G"
	NetworkFast3G  = "fast3G"
	NetworkOffline = "offline"
)

// networkProfiles use DevTools units: throughput in bytes per second
var networkProfiles = map[string]driver.NetworkProfile{
	NetworkSlow3G: {
		DownloadThroughput: 500 * 1024 / 8,
		UploadThroughput:   500 * 1024 / 8,
		Latency:            400 * time.Millisecond,
	},
	NetworkFast3G: {
		DownloadThroughput: 1600 * 1024 / 8,
		UploadThroughput:   750 * 1024 / 8,
		Latency:            150 * time.Millisecond,
	},
	NetworkOffline: {Offline: true},
}

// BasePage is the interaction layer every page object builds on
type BasePage struct {
	driver driver.Driver
	opts   Options
	log    *zap.Logger
}

// NewBasePage creates a BasePage over one driver session
func NewBasePage(d driver.Driver, opts Options, log *zap.Logger) *BasePage {
	if log == nil {
		log = zap.NewNop()
	}
	return &BasePage{driver: d, opts: opts, log: log}
}

// Driver returns the underlying session
func (p *BasePage) Driver() driver.Driver {
	return p.driver
}

// Options returns the page timings
func (p *BasePage) Options() Options {
	return p.opts
}

// Open navigates to a path below the base URL and waits for the load to finish
func (p *BasePage) Open(ctx context.Context, path string) error {
	url := strings.TrimRight(p.opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if err := p.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return p.WaitForPageLoad(ctx)
}

// WaitForPageLoad polls document.readyState until it reads complete
func (p *BasePage) WaitForPageLoad(ctx context.Context) error {
	timeout := p.opts.PageLoadTimeout
	return p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "page load",
		Timeout: timeout,
		Msg:     fmt.Sprintf("page did not finish loading within %dms", timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		state, err := p.driver.Execute(ctx, driver.ScriptReadyState)
		if err != nil {
			return false, err
		}
		return state == "complete", nil
	})
}

// waitUntil polls cond every PollInterval until it holds or timeout elapses.
// Condition errors count as "not yet" since the DOM may be mid re-render.
func (p *BasePage) waitUntil(ctx context.Context, timeout time.Duration, timeoutErr *TimeoutError, cond func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	interval := p.opts.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	for {
		ok, err := cond(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil && ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return timeoutErr
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// sleep pauses for d unless ctx ends first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pause waits for d, returning early with the context error when ctx ends
func (p *BasePage) Pause(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// WaitForDisplayed waits for the locator to resolve to a visible element
func (p *BasePage) WaitForDisplayed(ctx context.Context, loc Locator, timeout time.Duration) (driver.Element, error) {
	if timeout <= 0 {
		timeout = p.opts.ElementTimeout
	}
	var found driver.Element
	err := p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "wait for " + loc.Name,
		Timeout: timeout,
		Msg:     fmt.Sprintf("%s was not displayed within %dms", loc.Name, timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		el, err := loc.Resolve(ctx, p.driver)
		if err != nil {
			return false, err
		}
		shown, err := el.IsDisplayed(ctx)
		if err != nil || !shown {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// WaitForElementClickable waits for the locator to resolve to a visible,
// enabled element. A zero timeout uses the element timeout.
func (p *BasePage) WaitForElementClickable(ctx context.Context, loc Locator, timeout time.Duration) (driver.Element, error) {
	if timeout <= 0 {
		timeout = p.opts.ElementTimeout
	}
	var found driver.Element
	err := p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "wait for clickable " + loc.Name,
		Timeout: timeout,
		Msg:     fmt.Sprintf("%s was not clickable within %dms", loc.Name, timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		el, err := loc.Resolve(ctx, p.driver)
		if err != nil {
			return false, err
		}
		shown, err := el.IsDisplayed(ctx)
		if err != nil || !shown {
			return false, err
		}
		enabled, err := el.IsEnabled(ctx)
		if err != nil || !enabled {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// SafeClick waits for the element to become clickable and clicks it,
// retrying a fixed number of times with a fixed delay. A non-positive
// retries uses the configured attempt count.
func (p *BasePage) SafeClick(ctx context.Context, loc Locator, retries int) error {
	if retries <= 0 {
		retries = p.attempts()
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		el, err := p.WaitForElementClickable(ctx, loc, 0)
		if err == nil {
			err = el.Click(ctx)
		}
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		lastErr = err
		p.log.Debug("click attempt failed",
			zap.String("locator", loc.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < retries {
			if err := sleep(ctx, p.opts.RetryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("failed to click %s after %d attempts: %w", loc.Name, retries, lastErr)
}

// ClickElement clicks an already resolved element with the SafeClick retry policy
func (p *BasePage) ClickElement(ctx context.Context, el driver.Element, name string) error {
	retries := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if lastErr = el.Click(ctx); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, driver.ErrStaleElement) {
			return lastErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt < retries {
			if err := sleep(ctx, p.opts.RetryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("failed to click %s: %w", name, lastErr)
}

// attempts is the configured click attempt count, at least one
func (p *BasePage) attempts() int {
	return max(p.opts.RetryAttempts, 1)
}

// GetElementText waits for the element and returns its visible text
func (p *BasePage) GetElementText(ctx context.Context, loc Locator) (string, error) {
	el, err := p.WaitForDisplayed(ctx, loc, 0)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// TypeText clears the field and types text into it
func (p *BasePage) TypeText(ctx context.Context, loc Locator, text string) error {
	el, err := p.WaitForDisplayed(ctx, loc, 0)
	if err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s: %w", loc.Name, err)
	}
	if err := el.SetValue(ctx, text); err != nil {
		return fmt.Errorf("failed to type into %s: %w", loc.Name, err)
	}
	return nil
}

// IsElementDisplayed reports visibility; lookup failures read as hidden
func (p *BasePage) IsElementDisplayed(ctx context.Context, loc Locator) bool {
	el, err := loc.Resolve(ctx, p.driver)
	if err != nil {
		return false
	}
	shown, err := el.IsDisplayed(ctx)
	return err == nil && shown
}

// ScrollToElement scrolls the element into view and lets the page settle
func (p *BasePage) ScrollToElement(ctx context.Context, loc Locator) error {
	el, err := loc.Resolve(ctx, p.driver)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", loc.Name, err)
	}
	return sleep(ctx, p.opts.ScrollSettle)
}

// WaitForElements waits until every locator is displayed, or with
// shouldAppear false, until none is
func (p *BasePage) WaitForElements(ctx context.Context, locs []Locator, shouldAppear bool) error {
	return p.waitForElements(ctx, locs, shouldAppear, p.opts.PageLoadTimeout)
}

func (p *BasePage) waitForElements(ctx context.Context, locs []Locator, shouldAppear bool, timeout time.Duration) error {
	verb := "appear"
	if !shouldAppear {
		verb = "disappear"
	}
	return p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "wait for elements to " + verb,
		Timeout: timeout,
		Msg:     fmt.Sprintf("elements did not %s within %dms", verb, timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		for _, loc := range locs {
			if p.IsElementDisplayed(ctx, loc) != shouldAppear {
				return false, nil
			}
		}
		return true, nil
	})
}

// CapturePerformanceMetrics reads the navigation and paint timings
func (p *BasePage) CapturePerformanceMetrics(ctx context.Context) (PerformanceMetrics, error) {
	var metrics PerformanceMetrics
	result, err := p.driver.Execute(ctx, driver.ScriptPerformance)
	if err != nil {
		return metrics, fmt.Errorf("failed to capture performance metrics: %w", err)
	}
	if err := driver.Decode(result, &metrics); err != nil {
		return metrics, err
	}
	return metrics, nil
}

// IsMobileDevice reports a viewport no wider than 768px
func (p *BasePage) IsMobileDevice(ctx context.Context) (bool, error) {
	size, err := p.driver.WindowSize(ctx)
	if err != nil {
		return false, err
	}
	return size.Width <= MobileMaxWidth, nil
}

// IsTabletDevice reports a viewport wider than 768px and no wider than 1024px
func (p *BasePage) IsTabletDevice(ctx context.Context) (bool, error) {
	size, err := p.driver.WindowSize(ctx)
	if err != nil {
		return false, err
	}
	return size.Width > MobileMaxWidth && size.Width <= TabletMaxWidth, nil
}

// SetNetworkCondition applies a named throttling profile. Unknown names are ignored.
func (p *BasePage) SetNetworkCondition(ctx context.Context, name string) error {
	profile, ok := networkProfiles[name]
	if !ok {
		p.log.Debug("ignoring unknown network condition", zap.String("condition", name))
		return nil
	}
	if err := p.driver.Throttle(ctx, profile); err != nil {
		return fmt.Errorf("failed to apply network condition %s: %w", name, err)
	}
	return nil
}

// TakeScreenshot saves a screenshot below the screenshot directory and
// returns its path. An empty name gets a timestamped debug name.
func (p *BasePage) TakeScreenshot(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("debug_screenshot_%d.png", time.Now().UnixMilli())
	}
	path := filepath.Join(p.opts.ScreenshotDir, name)
	if err := p.driver.SaveScreenshot(ctx, path); err != nil {
		return "", fmt.Errorf("failed to save screenshot %s: %w", name, err)
	}
	return path, nil
}
