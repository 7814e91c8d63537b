package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/handlers"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap/zaptest"
)

const baseURL = "http://replica.test"

func fastOptions(t *testing.T) pages.Options {
	opts := pages.DefaultOptions(baseURL)
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

func fullPanel() handlers.StorefrontOptions {
	return handlers.StorefrontOptions{FilterPanel: true, Interactive: true}
}

// replicaLauncher hands every session its own in-memory replica
func replicaLauncher(t *testing.T, storefront handlers.StorefrontOptions) driver.Launcher {
	t.Helper()
	catalog := fixtures.MustLoad()
	replica, err := handlers.NewReplica(catalog, storefront)
	require.NoError(t, err)

	return replica.Launcher(catalog.Login.Path)
}

func newSession(t *testing.T, storefront handlers.StorefrontOptions) *Session {
	t.Helper()
	d, err := replicaLauncher(t, storefront).NewSession(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewSession(d, fastOptions(t), fixtures.MustLoad().Login.Path, zaptest.NewLogger(t))
}
