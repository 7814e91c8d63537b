package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// probeScenario names the findings recorded by the probe phase
const probeScenario = "probe"

// SuiteDependencies holds everything a SuiteRunner needs
type SuiteDependencies struct {
	Launcher   driver.Launcher
	DriverName string
	Options    pages.Options
	LoginPath  string
	Catalog    *fixtures.Catalog
	Probe      ProbeService
	Runs       RunService
	Log        *zap.Logger
	// Workers bounds the scenarios running at once; values below 1 mean 1
	Workers int
	// Seed is handed to the random filter scenario
	Seed uint64
}

// ScenarioResult is the outcome of one scenario
type ScenarioResult struct {
	Scenario string
	Findings []models.Finding
}

// Failed reports whether the scenario recorded a fail or error finding
func (r ScenarioResult) Failed() bool {
	for _, f := range r.Findings {
		if f.Kind == models.FindingFail || f.Kind == models.FindingError {
			return true
		}
	}
	return false
}

// SuiteRunner probes the storefront once, then fans the scenarios out
// over independent driver sessions
type SuiteRunner struct {
	deps SuiteDependencies
	log  *zap.Logger
}

// NewSuiteRunner creates a runner
func NewSuiteRunner(deps SuiteDependencies) *SuiteRunner {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	return &SuiteRunner{deps: deps, log: log}
}

// Probe runs the capability probe on a session of its own
func (r *SuiteRunner) Probe(ctx context.Context) (models.CapabilityReport, error) {
	d, err := r.deps.Launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start probe session: %w", err)
	}
	sess := NewSession(d, r.deps.Options, r.deps.LoginPath, r.log.Named("probe"))
	defer r.closeSession(sess)

	return r.deps.Probe.Probe(ctx, sess)
}

// Run probes the storefront, runs every scenario and records the findings
// in scenario order. The returned run is finished; it is cancelled when ctx
// ends before the scenarios do.
func (r *SuiteRunner) Run(ctx context.Context, scenarios []Scenario) (*models.Run, []ScenarioResult, error) {
	run, err := r.deps.Runs.Start(r.deps.Options.BaseURL, r.deps.DriverName)
	if err != nil {
		return nil, nil, err
	}

	report, err := r.Probe(ctx)
	if err != nil {
		rec := NewRecorder(probeScenario, r.log)
		rec.Error(models.FeatureFilterPanel, err)
		return r.finish(ctx, run, []ScenarioResult{{Scenario: probeScenario, Findings: rec.Findings()}})
	}

	results := make([]ScenarioResult, len(scenarios)+1)
	results[0] = ScenarioResult{Scenario: probeScenario, Findings: reportFindings(report, r.log)}

	g := new(errgroup.Group)
	g.SetLimit(r.deps.Workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i+1] = ScenarioResult{Scenario: sc.Name}
				return nil
			}
			results[i+1] = r.runScenario(ctx, sc, report)
			return nil
		})
	}
	_ = g.Wait()

	return r.finish(ctx, run, results)
}

func (r *SuiteRunner) finish(ctx context.Context, run *models.Run, results []ScenarioResult) (*models.Run, []ScenarioResult, error) {
	var errs []error
	for _, res := range results {
		if err := r.deps.Runs.Record(run, res.Findings...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.deps.Runs.Finish(run, ctx.Err() != nil); err != nil {
		errs = append(errs, err)
	}
	return run, results, errors.Join(errs...)
}

// runScenario owns one session from launch to close. Failures to launch,
// scenario errors and cleanup problems all end up as findings.
func (r *SuiteRunner) runScenario(ctx context.Context, sc Scenario, report models.CapabilityReport) ScenarioResult {
	log := r.log.With(zap.String("scenario", sc.Name))
	rec := NewRecorder(sc.Name, r.log)

	d, err := r.deps.Launcher.NewSession(ctx)
	if err != nil {
		rec.Error("", fmt.Errorf("failed to start session: %w", err))
		return ScenarioResult{Scenario: sc.Name, Findings: rec.Findings()}
	}
	sess := NewSession(d, r.deps.Options, r.deps.LoginPath, log)
	defer r.closeSession(sess)

	env := &Env{
		Session: sess,
		Report:  report,
		Catalog: r.deps.Catalog,
		Rec:     rec,
		Log:     log,
		Seed:    r.deps.Seed,
	}
	if err := sc.Run(ctx, env); err != nil {
		rec.Error("", err)
	}

	failed := rec.Failed()
	opts := sess.Base.Options()
	if ctx.Err() == nil && ((failed && opts.ScreenshotOnFailure) || (!failed && opts.ScreenshotOnSuccess)) {
		name := screenshotName(sc.Name, failed)
		if path, err := sess.Base.TakeScreenshot(ctx, name); err != nil {
			rec.Error("", fmt.Errorf("failed to capture screenshot: %w", err))
		} else {
			log.Info("screenshot saved", zap.String("path", path), zap.Bool("failed", failed))
		}
	}
	if sc.ResetFilters && ctx.Err() == nil && report.Has(models.FeatureFilterPanel) {
		if c := sess.Filters.ClearAllFilters(ctx); c.IsError() {
			rec.Error(models.FeatureClearFilters, fmt.Errorf("cleanup: %w", c.Err))
		}
	}

	return ScenarioResult{Scenario: sc.Name, Findings: rec.Findings()}
}

func (r *SuiteRunner) closeSession(sess *Session) {
	if err := sess.Close(); err != nil {
		r.log.Warn("failed to close driver session", zap.Error(err))
	}
}

// reportFindings turns the capability report into probe findings. Probe
// errors are kept as errors so a broken probe fails the run.
func reportFindings(report models.CapabilityReport, log *zap.Logger) []models.Finding {
	rec := NewRecorder(probeScenario, log)
	for _, c := range report.Sorted() {
		switch c.Status {
		case models.CapabilityPresent:
			rec.Pass(c.Feature, "%s present", c.Feature)
		default:
			rec.Capability(c)
		}
	}
	return rec.Findings()
}

func screenshotName(scenario string, failed bool) string {
	prefix := "success_"
	if failed {
		prefix = "failure_"
	}
	return prefix + strings.ReplaceAll(scenario, "/", "_") + ".png"
}
