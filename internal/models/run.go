package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents valid suite run states
type RunStatus string

// Run statuses
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPassed    RunStatus = "passed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// FindingKind classifies a single observation made by a scenario
type FindingKind string

// Finding kinds
const (
	FindingPass   FindingKind = "pass"
	FindingFail   FindingKind = "fail"
	FindingAbsent FindingKind = "absent"
	FindingError  FindingKind = "error"
)

// Valid reports whether k is a known finding kind
func (k FindingKind) Valid() bool {
	switch k {
	case FindingPass, FindingFail, FindingAbsent, FindingError:
		return true
	}
	return false
}

// Run is one execution of the suite against a storefront
type Run struct {
	ID         string
	Status     RunStatus
	BaseURL    string
	Driver     string
	StartedAt  time.Time
	FinishedAt time.Time
	Findings   []Finding
}

// Finding is one observation recorded by a scenario
type Finding struct {
	ID        string
	RunID     string
	Scenario  string
	Kind      FindingKind
	Feature   Feature
	Message   string
	CreatedAt time.Time
}

// NewRun starts a new run
func NewRun(baseURL, driverName string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		BaseURL:   baseURL,
		Driver:    driverName,
		StartedAt: time.Now(),
	}
}

// NewFinding creates a finding with validation
func NewFinding(scenario string, kind FindingKind, feature Feature, message string) (Finding, error) {
	if scenario == "" {
		return Finding{}, ErrEmptyScenario
	}
	if !kind.Valid() {
		return Finding{}, fmt.Errorf("%w: %q", ErrInvalidFindingKind, kind)
	}

	return Finding{
		ID:        uuid.New().String(),
		Scenario:  scenario,
		Kind:      kind,
		Feature:   feature,
		Message:   message,
		CreatedAt: time.Now(),
	}, nil
}

// AddFinding attaches a finding to a running run
func (r *Run) AddFinding(f Finding) error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: cannot add findings to %s run", ErrRunAlreadyFinished, r.Status)
	}
	f.RunID = r.ID
	r.Findings = append(r.Findings, f)
	return nil
}

// Finish moves a running run to a terminal status
func (r *Run) Finish(status RunStatus) error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: cannot finish %s run", ErrInvalidStatusTransition, r.Status)
	}
	switch status {
	case RunStatusPassed, RunStatusFailed, RunStatusCancelled:
	default:
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidStatusTransition, status)
	}

	r.Status = status
	r.FinishedAt = time.Now()
	return nil
}

// Conclude finishes the run as passed or failed based on its findings
func (r *Run) Conclude() error {
	if r.HasFailures() {
		return r.Finish(RunStatusFailed)
	}
	return r.Finish(RunStatusPassed)
}

// IsRunning returns true if the run has not finished
func (r *Run) IsRunning() bool {
	return r.Status == RunStatusRunning
}

// HasFailures returns true if any finding failed or errored
func (r *Run) HasFailures() bool {
	for _, f := range r.Findings {
		if f.Kind == FindingFail || f.Kind == FindingError {
			return true
		}
	}
	return false
}

// CountByKind tallies the run's findings per kind
func (r *Run) CountByKind() map[FindingKind]int {
	counts := make(map[FindingKind]int)
	for _, f := range r.Findings {
		counts[f.Kind]++
	}
	return counts
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
