//go:build e2e

package driver

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

func browserContexts(t *testing.T, l *RodLauncher) int {
	t.Helper()
	res, err := proto.TargetGetBrowserContexts{}.Call(l.browser)
	require.NoError(t, err)
	return len(res.BrowserContextIDs)
}

func TestRodLauncher_SessionCloseDisposesContext(t *testing.T) {
	// GIVEN a running Chrome
	l, err := NewRodLauncher(t.Context(), LaunchOptions{Headless: true})
	require.NoError(t, err)
	defer l.Close()
	before := browserContexts(t, l)

	// WHEN sessions are opened and closed
	for range 3 {
		d, err := l.NewSession(t.Context())
		require.NoError(t, err)
		require.NoError(t, d.Close())
	}

	// THEN no incognito context outlives its session
	require.Equal(t, before, browserContexts(t, l))
}
