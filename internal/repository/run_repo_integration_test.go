//go:build integration

package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/repository/testutil"
)

func newFinding(t *testing.T, run *models.Run, scenario string, kind models.FindingKind) models.Finding {
	t.Helper()
	f, err := models.NewFinding(scenario, kind, models.FeatureBrandFilter, scenario+" observed")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}
	f.RunID = run.ID
	return f
}

func TestRunRepository_CreateAndGet_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepositoryWithDB(testDB.DB)
	run := models.NewRun("https://testathon.live", "playwright")

	if err := repo.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	scenarios := []string{"probe", "filter/brand/iphone", "filter/brand/galaxy"}
	for _, s := range scenarios {
		if err := repo.AddFinding(newFinding(t, run, s, models.FindingPass)); err != nil {
			t.Fatalf("AddFinding() error = %v", err)
		}
	}

	retrieved, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if retrieved.Status != models.RunStatusRunning {
		t.Errorf("Status mismatch: got %v, want %v", retrieved.Status, models.RunStatusRunning)
	}
	if !retrieved.FinishedAt.IsZero() {
		t.Errorf("FinishedAt should be zero for a running run, got %v", retrieved.FinishedAt)
	}
	if len(retrieved.Findings) != len(scenarios) {
		t.Fatalf("Expected %d findings, got %d", len(scenarios), len(retrieved.Findings))
	}
	for i, f := range retrieved.Findings {
		if f.Scenario != scenarios[i] {
			t.Errorf("Finding %d scenario: got %s, want %s", i, f.Scenario, scenarios[i])
		}
		if f.Feature != models.FeatureBrandFilter {
			t.Errorf("Finding %d feature: got %s", i, f.Feature)
		}
	}
}

func TestRunRepository_FinishRun_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepositoryWithDB(testDB.DB)
	run := models.NewRun("https://testathon.live", "rod")
	if err := repo.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := run.Finish(models.RunStatusFailed); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if err := repo.FinishRun(run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	retrieved, err := repo.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if retrieved.Status != models.RunStatusFailed {
		t.Errorf("Status mismatch: got %v, want %v", retrieved.Status, models.RunStatusFailed)
	}
	if retrieved.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set")
	}

	missing := models.NewRun("https://testathon.live", "rod")
	_ = missing.Finish(models.RunStatusPassed)
	if err := repo.FinishRun(missing); !errors.Is(err, models.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestRunRepository_GetRun_NotFound_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepositoryWithDB(testDB.DB)
	if _, err := repo.GetRun(models.NewRun("x", "y").ID); !errors.Is(err, models.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestRunRepository_ListRuns_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepositoryWithDB(testDB.DB)
	var ids []string
	for i := range 3 {
		run := models.NewRun("https://testathon.live", "rod")
		run.StartedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := repo.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := repo.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}

	all, err := repo.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(all))
	}
}
