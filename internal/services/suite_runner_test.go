package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/handlers"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func newRunner(t *testing.T, launcher driver.Launcher) (*SuiteRunner, SuiteDependencies) {
	t.Helper()
	catalog := fixtures.MustLoad()
	deps := SuiteDependencies{
		Launcher:   launcher,
		DriverName: "document",
		Options:    fastOptions(t),
		LoginPath:  catalog.Login.Path,
		Catalog:    catalog,
		Probe:      NewProbeService(zaptest.NewLogger(t)),
		Runs:       NewRunService(NewMemoryRunRepository()),
		Log:        zaptest.NewLogger(t),
		Workers:    4,
		Seed:       42,
	}
	return NewSuiteRunner(deps), deps
}

func TestSuiteRunner_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name       string
		storefront handlers.StorefrontOptions
		prefixes   []string
		wantStatus models.RunStatus
		wantAbsent bool
	}{
		{
			name:       "full replica passes",
			storefront: fullPanel(),
			prefixes:   []string{"catalog/display", "cart/", "filter/brand/", "filter/sort/price"},
			wantStatus: models.RunStatusPassed,
			wantAbsent: true,
		},
		{
			name:       "inert vendor filter passes with absences",
			storefront: handlers.LiveLike(),
			prefixes:   []string{"filter/brand/", "filter/sort/"},
			wantStatus: models.RunStatusPassed,
			wantAbsent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, deps := newRunner(t, replicaLauncher(t, tt.storefront))
			scenarios := SelectScenarios(DefaultScenarios(deps.Catalog), tt.prefixes)
			require.NotEmpty(t, scenarios)

			run, results, err := runner.Run(t.Context(), scenarios)
			require.NoError(t, err)

			require.Len(t, results, len(scenarios)+1)
			assert.Equal(t, probeScenario, results[0].Scenario)
			for i, sc := range scenarios {
				assert.Equal(t, sc.Name, results[i+1].Scenario, "results keep scenario order")
				assert.False(t, results[i+1].Failed(), "%s: %+v", sc.Name, results[i+1].Findings)
			}

			assert.Equal(t, tt.wantStatus, run.Status)
			counts := run.CountByKind()
			assert.Zero(t, counts[models.FindingFail])
			assert.Zero(t, counts[models.FindingError])
			assert.Equal(t, tt.wantAbsent, counts[models.FindingAbsent] > 0)

			stored, err := deps.Runs.Get(run.ID)
			require.NoError(t, err)
			assert.Len(t, stored.Findings, len(run.Findings))
		})
	}
}

func TestSuiteRunner_FailureScreenshot(t *testing.T) {
	runner, deps := newRunner(t, replicaLauncher(t, handlers.StorefrontOptions{FilterPanel: true}))
	scenarios := SelectScenarios(DefaultScenarios(deps.Catalog), []string{"cart/"})

	run, results, err := runner.Run(t.Context(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.Len(t, results, 3)
	for _, res := range results[1:] {
		assert.True(t, res.Failed(), res.Scenario)
	}

	for _, name := range []string{"failure_cart_add.png", "failure_cart_add-multiple.png"} {
		_, err = os.Stat(filepath.Join(deps.Options.ScreenshotDir, name))
		assert.NoError(t, err, name)
	}
}

func TestSuiteRunner_ScreenshotSettings(t *testing.T) {
	tests := []struct {
		name      string
		onFailure bool
		onSuccess bool
		want      []string
	}{
		{name: "failure only", onFailure: true, want: nil},
		{name: "success too", onFailure: true, onSuccess: true, want: []string{"success_catalog_display.png"}},
		{name: "never", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a passing scenario and the screenshot settings
			runner, deps := newRunner(t, replicaLauncher(t, fullPanel()))
			deps.Options.ScreenshotOnFailure = tt.onFailure
			deps.Options.ScreenshotOnSuccess = tt.onSuccess
			runner = NewSuiteRunner(deps)

			// WHEN
			run, _, err := runner.Run(t.Context(), SelectScenarios(DefaultScenarios(deps.Catalog), []string{"catalog/display"}))

			// THEN
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusPassed, run.Status)
			entries, err := os.ReadDir(deps.Options.ScreenshotDir)
			require.NoError(t, err)
			var got []string
			for _, e := range entries {
				got = append(got, e.Name())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuiteRunner_CartAndInteractionScenarios(t *testing.T) {
	tests := []struct {
		name       string
		storefront handlers.StorefrontOptions
	}{
		{name: "full replica", storefront: fullPanel()},
		{name: "live-like replica", storefront: handlers.LiveLike()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			runner, deps := newRunner(t, replicaLauncher(t, tt.storefront))
			scenarios := SelectScenarios(DefaultScenarios(deps.Catalog), []string{"cart/add-multiple", "performance/interactions"})
			require.Len(t, scenarios, 2)

			// WHEN
			run, results, err := runner.Run(t.Context(), scenarios)

			// THEN every add moves the cart by one and the interactions stay in budget
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusPassed, run.Status, "%+v", results)

			var cartMessages []string
			for _, f := range results[1].Findings {
				cartMessages = append(cartMessages, f.Message)
			}
			assert.Contains(t, cartMessages, "adding iPhone 12 moved the cart from 0 to 1")
			assert.Contains(t, cartMessages, "3 of 3 products could be added")
			assert.Len(t, cartMessages, 4)

			var interactions []string
			for _, f := range results[2].Findings {
				assert.Equal(t, models.FindingPass, f.Kind, f.Message)
				interactions = append(interactions, f.Message)
			}
			assert.Contains(t, interactions, "filter panel still shown after scrolling")
		})
	}
}

func TestSuiteRunner_ProbeSessionFails(t *testing.T) {
	launcher := driver.LauncherFunc(func(context.Context) (driver.Driver, error) {
		return nil, errors.New("browser crashed")
	})
	runner, deps := newRunner(t, launcher)

	run, results, err := runner.Run(t.Context(), DefaultScenarios(deps.Catalog))
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.Len(t, results, 1)
	require.Len(t, results[0].Findings, 1)
	assert.Equal(t, models.FindingError, results[0].Findings[0].Kind)
	assert.Contains(t, results[0].Findings[0].Message, "browser crashed")
}

func TestSuiteRunner_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner, deps := newRunner(t, replicaLauncher(t, fullPanel()))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	run, _, err := runner.Run(ctx, DefaultScenarios(deps.Catalog))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, run.Status)
}
