//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/handlers"
)

var (
	pw      *playwright.Playwright
	browser playwright.Browser
)

// TestMain sets up and tears down the Playwright browser for all tests
func TestMain(m *testing.M) {
	var err error

	// Start Playwright (browsers already installed via: go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium)
	pw, err = playwright.Run()
	if err != nil {
		panic(err)
	}

	// Launch browser in headless mode
	browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		panic(err)
	}

	code := m.Run()

	browser.Close()
	pw.Stop()
	os.Exit(code)
}

// sharedBrowser opens every session in a fresh context of the test browser
type sharedBrowser struct{}

func (sharedBrowser) NewSession(ctx context.Context) (driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return driver.NewPlaywright(bctx, page), nil
}

// Close leaves the browser to TestMain
func (sharedBrowser) Close() error {
	return nil
}

// serveReplica serves the replica storefront over HTTP for the test's lifetime
func serveReplica(t *testing.T, opts handlers.StorefrontOptions) (string, *fixtures.Catalog) {
	t.Helper()

	catalog := fixtures.MustLoad()
	replica, err := handlers.NewReplica(catalog, opts)
	if err != nil {
		t.Fatalf("Failed to build replica: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", replica.Storefront)
	mux.Handle(catalog.Login.Path, replica.SignIn)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL, catalog
}
