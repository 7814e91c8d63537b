package pages

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/handlers"
	"go.uber.org/zap/zaptest"
)

const baseURL = "http://replica.test"

func fastOptions(t *testing.T) Options {
	opts := DefaultOptions(baseURL)
	opts.ScreenshotDir = t.TempDir()
	opts.PageLoadTimeout = 200 * time.Millisecond
	opts.ElementTimeout = 100 * time.Millisecond
	opts.PollInterval = 5 * time.Millisecond
	opts.RetryDelay = time.Millisecond
	opts.ScrollSettle = 0
	opts.LazyLoadSettle = 0
	opts.BrandSelectDelay = 0
	opts.SpinnerAppear = 10 * time.Millisecond
	opts.FilterSettle = 0
	opts.CartTimeout = 100 * time.Millisecond
	return opts
}

// replica opens the offline storefront on the in-memory driver
func replica(t *testing.T, storefront handlers.StorefrontOptions) (*BasePage, *driver.Document) {
	t.Helper()
	catalog := fixtures.MustLoad()
	r, err := handlers.NewReplica(catalog, storefront)
	require.NoError(t, err)
	d, err := r.Document(catalog.Login.Path)
	require.NoError(t, err)
	return NewBasePage(d, fastOptions(t), zaptest.NewLogger(t)), d
}

func fullPanel() handlers.StorefrontOptions {
	return handlers.StorefrontOptions{FilterPanel: true, Interactive: true}
}

func fullPanelStatic() handlers.StorefrontOptions {
	return handlers.StorefrontOptions{FilterPanel: true}
}

func openListing(t *testing.T, storefront handlers.StorefrontOptions) (*ListingPage, *FilterPanel, *driver.Document) {
	t.Helper()
	base, d := replica(t, storefront)
	listing := NewListingPage(base)
	require.NoError(t, listing.Open(t.Context()))
	return listing, NewFilterPanel(base), d
}

func TestLocator_Resolve(t *testing.T) {
	ctx := context.Background()
	d := driver.NewDocument(`<html><body><div class="b">second</div><div class="a">first</div></body></html>`)
	require.NoError(t, d.Navigate(ctx, baseURL))

	tests := []struct {
		name    string
		loc     Locator
		want    string
		wantErr error
	}{
		{name: "first selector wins", loc: L("x", ".a", ".b"), want: "first"},
		{name: "falls through to later selector", loc: L("x", ".missing", ".b"), want: "second"},
		{name: "unsupported selector is skipped", loc: L("x", `xpath=//div[`, ".a"), want: "first"},
		{name: "nothing matches", loc: L("x", ".missing"), wantErr: driver.ErrElementNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := tt.loc.Resolve(ctx, d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			text, err := el.Text(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestBasePage_WaitForElements(t *testing.T) {
	base, d := replica(t, fullPanel())
	ctx := t.Context()
	require.NoError(t, d.Navigate(ctx, baseURL+"/"))

	assert.NoError(t, base.WaitForElements(ctx, []Locator{ProductGrid, CartIcon}, true))
	assert.NoError(t, base.WaitForElements(ctx, []Locator{Spinner}, false))

	err := base.WaitForElements(ctx, []Locator{Spinner}, true)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "elements did not appear within 200ms", err.Error())
}

func TestBasePage_SafeClickRetries(t *testing.T) {
	base, d := replica(t, fullPanel())
	ctx := t.Context()
	require.NoError(t, d.Navigate(ctx, baseURL+"/"))

	err := base.SafeClick(ctx, L("ghost", ".ghost"), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.True(t, IsTimeout(err))

	assert.NoError(t, base.SafeClick(ctx, ListView, 0))
}

func TestBasePage_ClickWithoutConfiguredRetries(t *testing.T) {
	// GIVEN options that configure no retries
	base, d := replica(t, fullPanel())
	ctx := t.Context()
	require.NoError(t, d.Navigate(ctx, baseURL+"/"))
	base.opts.RetryAttempts = 0

	// WHEN clicking, THEN a single attempt is still made
	require.NoError(t, base.SafeClick(ctx, ListView, 0))
	el, err := ListView.Resolve(ctx, d)
	require.NoError(t, err)
	require.NoError(t, base.ClickElement(ctx, el, ListView.Name))

	err = base.SafeClick(ctx, L("ghost", ".ghost"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.NotContains(t, err.Error(), "%!w")
}

func TestBasePage_Pause(t *testing.T) {
	base, _ := replica(t, fullPanel())

	assert.NoError(t, base.Pause(t.Context(), time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, base.Pause(ctx, time.Hour), context.Canceled)
}

func TestOptions_WithSuite(t *testing.T) {
	var suite fixtures.SuiteConfig
	suite.Timeout.FilterApplication = 3 * time.Second
	suite.Retry.Attempts = 2

	opts := DefaultOptions(baseURL).WithSuite(suite)

	assert.Equal(t, 3*time.Second, opts.FilterTimeout)
	assert.Equal(t, 2, opts.RetryAttempts)
	assert.Equal(t, 10*time.Second, opts.PageLoadTimeout, "zero values keep the default")
	assert.Equal(t, time.Second, opts.RetryDelay)
	assert.False(t, opts.ScreenshotOnFailure)

	catalog := fixtures.MustLoad()
	opts = DefaultOptions(baseURL).WithSuite(catalog.SuiteConfig)
	assert.True(t, opts.ScreenshotOnFailure)
	assert.Equal(t, catalog.SuiteConfig.Timeout.ElementWait, opts.ElementTimeout)
}

func TestBasePage_Devices(t *testing.T) {
	base, d := replica(t, fullPanel())
	ctx := t.Context()

	tests := []struct {
		width      int
		wantMobile bool
		wantTablet bool
	}{
		{width: 375, wantMobile: true},
		{width: 768, wantMobile: true},
		{width: 769, wantTablet: true},
		{width: 1024, wantTablet: true},
		{width: 1366},
	}

	for _, tt := range tests {
		d.SetWindowSize(driver.Size{Width: tt.width, Height: 800})
		mobile, err := base.IsMobileDevice(ctx)
		require.NoError(t, err)
		tablet, err := base.IsTabletDevice(ctx)
		require.NoError(t, err)
		assert.Equalf(t, tt.wantMobile, mobile, "mobile at %d", tt.width)
		assert.Equalf(t, tt.wantTablet, tablet, "tablet at %d", tt.width)
	}
}

func TestBasePage_SetNetworkCondition(t *testing.T) {
	base, d := replica(t, fullPanel())
	ctx := t.Context()

	require.NoError(t, base.SetNetworkCondition(ctx, "carrier-pigeon"))
	_, applied := d.Profile()
	assert.False(t, applied, "unknown conditions are ignored")

	require.NoError(t, base.SetNetworkCondition(ctx, NetworkSlow3G))
	profile, applied := d.Profile()
	require.True(t, applied)
	assert.Equal(t, 400*time.Millisecond, profile.Latency)
	assert.InDelta(t, 64000, profile.DownloadThroughput, 0.1)

	require.NoError(t, base.SetNetworkCondition(ctx, NetworkOffline))
	profile, _ = d.Profile()
	assert.True(t, profile.Offline)
}

func TestBasePage_TakeScreenshot(t *testing.T) {
	base, d := replica(t, fullPanel())
	ctx := t.Context()
	require.NoError(t, d.Navigate(ctx, baseURL+"/"))

	path, err := base.TakeScreenshot(ctx, "listing.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base.Options().ScreenshotDir, "listing.png"), path)
	assert.FileExists(t, path)

	path, err = base.TakeScreenshot(ctx, "")
	require.NoError(t, err)
	assert.Regexp(t, `debug_screenshot_\d+\.png$`, path)
}

func TestMeasureResponseTime(t *testing.T) {
	timed, err := MeasureResponseTime(context.Background(), func(context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", timed.Result)
	assert.GreaterOrEqual(t, timed.Millis(), int64(5))

	boom := errors.New("boom")
	_, err = MeasureResponseTime(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestCalculatePerformanceScore(t *testing.T) {
	tests := []struct {
		name    string
		metrics PerformanceMetrics
		want    int
	}{
		{name: "fast page", metrics: PerformanceMetrics{DOMContentLoaded: 100, LoadComplete: 200, FirstContentfulPaint: 300}, want: 100},
		{name: "slow DOMContentLoaded", metrics: PerformanceMetrics{DOMContentLoaded: 2001}, want: 80},
		{name: "boundary values do not deduct", metrics: PerformanceMetrics{DOMContentLoaded: 2000, LoadComplete: 3000, FirstContentfulPaint: 1500}, want: 100},
		{name: "everything slow", metrics: PerformanceMetrics{DOMContentLoaded: 5000, LoadComplete: 5000, FirstContentfulPaint: 5000}, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePerformanceScore(tt.metrics))
		})
	}
}
