package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/testathon/shopcheck/internal/models"
)

// RunRepository defines the interface for run persistence
type RunRepository interface {
	CreateRun(run *models.Run) error
	AddFinding(finding models.Finding) error
	FinishRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]*models.Run, error)
}

// RunService tracks suite runs and their findings
type RunService interface {
	Start(baseURL, driverName string) (*models.Run, error)
	Record(run *models.Run, findings ...models.Finding) error
	Finish(run *models.Run, cancelled bool) error
	Get(id string) (*models.Run, error)
	History(limit int) ([]*models.Run, error)
}

// RunServiceImpl implements RunService
type RunServiceImpl struct {
	runRepo RunRepository
}

// NewRunService creates a new run service
func NewRunService(runRepo RunRepository) RunService {
	return &RunServiceImpl{
		runRepo: runRepo,
	}
}

// Start creates and persists a running run
func (s *RunServiceImpl) Start(baseURL, driverName string) (*models.Run, error) {
	run := models.NewRun(baseURL, driverName)
	if err := s.runRepo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// Record attaches findings to the run and persists them in order
func (s *RunServiceImpl) Record(run *models.Run, findings ...models.Finding) error {
	for _, f := range findings {
		if err := run.AddFinding(f); err != nil {
			return err
		}
		if err := s.runRepo.AddFinding(run.Findings[len(run.Findings)-1]); err != nil {
			return fmt.Errorf("failed to record finding: %w", err)
		}
	}
	return nil
}

// Finish concludes the run from its findings, or cancels it
func (s *RunServiceImpl) Finish(run *models.Run, cancelled bool) error {
	var err error
	if cancelled {
		err = run.Finish(models.RunStatusCancelled)
	} else {
		err = run.Conclude()
	}
	if err != nil {
		return err
	}

	if err := s.runRepo.FinishRun(run); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Get retrieves a run with its findings
func (s *RunServiceImpl) Get(id string) (*models.Run, error) {
	run, err := s.runRepo.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// History lists the most recent runs, newest first
func (s *RunServiceImpl) History(limit int) ([]*models.Run, error) {
	runs, err := s.runRepo.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// MemoryRunRepository keeps runs in process memory. It backs the suite when
// no database is configured.
type MemoryRunRepository struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

// NewMemoryRunRepository creates an empty in-memory repository
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*models.Run)}
}

func (m *MemoryRunRepository) CreateRun(run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	stored.Findings = nil
	m.runs[run.ID] = &stored
	return nil
}

func (m *MemoryRunRepository) AddFinding(finding models.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[finding.RunID]
	if !ok {
		return models.ErrRunNotFound
	}
	run.Findings = append(run.Findings, finding)
	return nil
}

func (m *MemoryRunRepository) FinishRun(run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.runs[run.ID]
	if !ok {
		return models.ErrRunNotFound
	}
	stored.Status = run.Status
	stored.FinishedAt = run.FinishedAt
	return nil
}

func (m *MemoryRunRepository) GetRun(id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}
	cp := *run
	cp.Findings = append([]models.Finding(nil), run.Findings...)
	return &cp, nil
}

func (m *MemoryRunRepository) ListRuns(limit int) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]*models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		cp.Findings = nil
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
