package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/testathon/shopcheck/internal/discovery"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/services"
)

// ErrSuiteFailed is returned when a run recorded a fail or error finding
var ErrSuiteFailed = errors.New("suite failed")

// SuiteRunner is the part of services.SuiteRunner the commands drive
type SuiteRunner interface {
	Probe(ctx context.Context) (models.CapabilityReport, error)
	Run(ctx context.Context, scenarios []services.Scenario) (*models.Run, []services.ScenarioResult, error)
}

// RunSuite runs the scenarios, prints the results and maps the run status
// to the command's error
func RunSuite(ctx context.Context, runner SuiteRunner, scenarios []services.Scenario, out io.Writer) error {
	if len(scenarios) == 0 {
		return errors.New("no scenarios selected")
	}

	run, results, err := runner.Run(ctx, scenarios)
	if run == nil {
		return err
	}
	fmt.Fprintln(out, RenderResults(results))
	fmt.Fprintln(out, RenderRunSummary(run))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}

	switch run.Status {
	case models.RunStatusCancelled:
		return fmt.Errorf("run %s cancelled: %w", run.ID, context.Cause(ctx))
	case models.RunStatusFailed:
		return fmt.Errorf("%w: run %s", ErrSuiteFailed, run.ID)
	}
	return nil
}

// RunProbe prints the capability report; probe errors on single features
// are part of the report, not a command failure
func RunProbe(ctx context.Context, runner SuiteRunner, out io.Writer) error {
	report, err := runner.Probe(ctx)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	fmt.Fprintln(out, RenderCapabilities(report))
	return nil
}

// RunDiscover runs a browser discovery pass on a fresh session
func RunDiscover(ctx context.Context, launcher driver.Launcher, discoverer *discovery.Discoverer, out io.Writer) error {
	d, err := launcher.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to start discovery session: %w", err)
	}
	defer d.Close()

	report, err := discoverer.Discover(ctx, d, "/")
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	fmt.Fprintln(out, RenderDiscovery(report))
	return nil
}

// RunStaticDiscover fetches url without a browser and prints what it found
func RunStaticDiscover(ctx context.Context, discoverer *discovery.StaticDiscoverer, url string, out io.Writer) error {
	report, err := discoverer.Discover(ctx, url)
	if err != nil {
		return fmt.Errorf("static discovery failed: %w", err)
	}
	fmt.Fprintln(out, RenderDiscovery(report))
	return nil
}

// RunStaticDiscoverReplica serves the replica on a loopback port for the
// duration of one static discovery pass
func RunStaticDiscoverReplica(ctx context.Context, discoverer *discovery.StaticDiscoverer, deps ServerDependencies, out io.Writer) error {
	deps.ServerConfig.Port = "0"
	listener, server, err := StartServer(deps)
	if err != nil {
		return fmt.Errorf("failed to serve replica: %w", err)
	}
	defer listener.Close()
	defer server.Close()

	url := fmt.Sprintf("http://127.0.0.1:%d/", listener.Addr().(*net.TCPAddr).Port)
	return RunStaticDiscover(ctx, discoverer, url, out)
}

// RunHistory prints the most recent runs, or one run's findings when id is set
func RunHistory(runs services.RunService, id string, limit int, out io.Writer) error {
	if id != "" {
		run, err := runs.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, RenderRunSummary(run))
		fmt.Fprintln(out, RenderResults(groupFindings(run.Findings)))
		return nil
	}

	list, err := runs.History(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, RenderHistory(list))
	return nil
}

// groupFindings rebuilds per-scenario results from findings stored in order
func groupFindings(findings []models.Finding) []services.ScenarioResult {
	var results []services.ScenarioResult
	index := make(map[string]int)
	for _, f := range findings {
		i, ok := index[f.Scenario]
		if !ok {
			i = len(results)
			index[f.Scenario] = i
			results = append(results, services.ScenarioResult{Scenario: f.Scenario})
		}
		results[i].Findings = append(results[i].Findings, f)
	}
	return results
}
