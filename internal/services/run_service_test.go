package services

import (
	"errors"
	"testing"
	"time"

	"github.com/testathon/shopcheck/internal/models"
)

// MockRunRepository is a mock implementation of RunRepository for testing
type MockRunRepository struct {
	CreateRunFunc  func(*models.Run) error
	AddFindingFunc func(models.Finding) error
	FinishRunFunc  func(*models.Run) error
	GetRunFunc     func(string) (*models.Run, error)
	ListRunsFunc   func(int) ([]*models.Run, error)
}

func (m *MockRunRepository) CreateRun(run *models.Run) error {
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(run)
	}
	return nil
}

func (m *MockRunRepository) AddFinding(finding models.Finding) error {
	if m.AddFindingFunc != nil {
		return m.AddFindingFunc(finding)
	}
	return nil
}

func (m *MockRunRepository) FinishRun(run *models.Run) error {
	if m.FinishRunFunc != nil {
		return m.FinishRunFunc(run)
	}
	return nil
}

func (m *MockRunRepository) GetRun(id string) (*models.Run, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(id)
	}
	return &models.Run{ID: id}, nil
}

func (m *MockRunRepository) ListRuns(limit int) ([]*models.Run, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(limit)
	}
	return nil, nil
}

func mustFinding(t *testing.T, kind models.FindingKind) models.Finding {
	t.Helper()
	f, err := models.NewFinding("catalog/display", kind, models.FeatureCatalog, "listing shows 25 products")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}
	return f
}

func TestRunService_Start(t *testing.T) {
	tests := []struct {
		name      string
		mockError error
		wantErr   bool
	}{
		{
			name:    "successful start",
			wantErr: false,
		},
		{
			name:      "repository error",
			mockError: errors.New("database error"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRunRepository{
				CreateRunFunc: func(run *models.Run) error {
					if tt.mockError != nil {
						return tt.mockError
					}
					if run.ID == "" {
						t.Error("Run ID should not be empty")
					}
					if run.Status != models.RunStatusRunning {
						t.Errorf("Expected status %s, got %s", models.RunStatusRunning, run.Status)
					}
					if run.BaseURL != "https://testathon.live" {
						t.Errorf("Expected base URL https://testathon.live, got %s", run.BaseURL)
					}
					return nil
				},
			}

			service := NewRunService(mockRepo)
			run, err := service.Start("https://testathon.live", "playwright")

			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && run.Driver != "playwright" {
				t.Errorf("Expected driver playwright, got %s", run.Driver)
			}
		})
	}
}

func TestRunService_Record(t *testing.T) {
	t.Run("stamps the run id on every finding", func(t *testing.T) {
		var recorded []models.Finding
		mockRepo := &MockRunRepository{
			AddFindingFunc: func(f models.Finding) error {
				recorded = append(recorded, f)
				return nil
			},
		}
		service := NewRunService(mockRepo)
		run := models.NewRun("https://testathon.live", "rod")

		err := service.Record(run, mustFinding(t, models.FindingPass), mustFinding(t, models.FindingAbsent))
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if len(recorded) != 2 {
			t.Fatalf("Expected 2 recorded findings, got %d", len(recorded))
		}
		for _, f := range recorded {
			if f.RunID != run.ID {
				t.Errorf("Expected run ID %s, got %s", run.ID, f.RunID)
			}
		}
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := &MockRunRepository{
			AddFindingFunc: func(models.Finding) error { return errors.New("database error") },
		}
		service := NewRunService(mockRepo)
		run := models.NewRun("https://testathon.live", "rod")

		if err := service.Record(run, mustFinding(t, models.FindingPass)); err == nil {
			t.Error("Expected error, got nil")
		}
	})

	t.Run("finished run rejects findings", func(t *testing.T) {
		service := NewRunService(&MockRunRepository{
			AddFindingFunc: func(models.Finding) error {
				t.Error("repository should not be called for a finished run")
				return nil
			},
		})
		run := models.NewRun("https://testathon.live", "rod")
		if err := run.Finish(models.RunStatusPassed); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		err := service.Record(run, mustFinding(t, models.FindingPass))
		if !errors.Is(err, models.ErrRunAlreadyFinished) {
			t.Errorf("Expected ErrRunAlreadyFinished, got %v", err)
		}
	})
}

func TestRunService_Finish(t *testing.T) {
	tests := []struct {
		name       string
		findings   []models.FindingKind
		cancelled  bool
		wantStatus models.RunStatus
	}{
		{name: "passes and absences pass", findings: []models.FindingKind{models.FindingPass, models.FindingAbsent}, wantStatus: models.RunStatusPassed},
		{name: "a failure fails the run", findings: []models.FindingKind{models.FindingPass, models.FindingFail}, wantStatus: models.RunStatusFailed},
		{name: "an error fails the run", findings: []models.FindingKind{models.FindingError}, wantStatus: models.RunStatusFailed},
		{name: "cancellation wins", findings: []models.FindingKind{models.FindingFail}, cancelled: true, wantStatus: models.RunStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var finished *models.Run
			service := NewRunService(&MockRunRepository{
				FinishRunFunc: func(run *models.Run) error {
					finished = run
					return nil
				},
			})
			run := models.NewRun("https://testathon.live", "rod")
			for _, kind := range tt.findings {
				if err := service.Record(run, mustFinding(t, kind)); err != nil {
					t.Fatalf("Record() error = %v", err)
				}
			}

			if err := service.Finish(run, tt.cancelled); err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if finished == nil || finished.Status != tt.wantStatus {
				t.Errorf("Expected persisted status %s, got %+v", tt.wantStatus, finished)
			}
			if run.FinishedAt.IsZero() {
				t.Error("FinishedAt should be set")
			}
		})
	}
}

func TestRunService_Get(t *testing.T) {
	service := NewRunService(&MockRunRepository{
		GetRunFunc: func(string) (*models.Run, error) { return nil, models.ErrRunNotFound },
	})

	_, err := service.Get("missing")
	if !errors.Is(err, models.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryRunRepository(t *testing.T) {
	repo := NewMemoryRunRepository()
	service := NewRunService(repo)

	older, err := service.Start("https://testathon.live", "rod")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	older.StartedAt = older.StartedAt.Add(-time.Minute)
	if err := repo.CreateRun(older); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	newer, err := service.Start("https://testathon.live", "playwright")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := service.Record(newer, mustFinding(t, models.FindingPass), mustFinding(t, models.FindingFail)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := service.Finish(newer, false); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := service.Get(newer.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.RunStatusFailed {
		t.Errorf("Expected status %s, got %s", models.RunStatusFailed, got.Status)
	}
	if len(got.Findings) != 2 {
		t.Errorf("Expected 2 findings, got %d", len(got.Findings))
	}

	history, err := service.History(1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != newer.ID {
		t.Errorf("Expected newest run %s first, got %+v", newer.ID, history)
	}

	if err := repo.AddFinding(models.Finding{RunID: "missing"}); !errors.Is(err, models.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}
