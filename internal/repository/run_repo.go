package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/testathon/shopcheck/internal/database"
	"github.com/testathon/shopcheck/internal/models"
)

// RunRepository handles database operations for suite runs and findings
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{
		db: database.DB,
	}
}

// NewRunRepositoryWithDB creates a new run repository with a specific database connection
func NewRunRepositoryWithDB(db *sql.DB) *RunRepository {
	return &RunRepository{
		db: db,
	}
}

// CreateRun inserts a running run
func (r *RunRepository) CreateRun(run *models.Run) error {
	query := `
		INSERT INTO runs (id, status, base_url, driver, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(query, run.ID, run.Status, run.BaseURL, run.Driver, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// AddFinding appends a finding to its run
func (r *RunRepository) AddFinding(finding models.Finding) error {
	query := `
		INSERT INTO findings (id, run_id, scenario, kind, feature, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(query,
		finding.ID,
		finding.RunID,
		finding.Scenario,
		finding.Kind,
		finding.Feature,
		finding.Message,
		finding.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add finding: %w", err)
	}
	return nil
}

// FinishRun stores the terminal status of a run
func (r *RunRepository) FinishRun(run *models.Run) error {
	query := `
		UPDATE runs
		SET status = $1, finished_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, run.Status, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run with its findings in recording order
func (r *RunRepository) GetRun(id string) (*models.Run, error) {
	query := `
		SELECT id, status, base_url, driver, started_at, finished_at
		FROM runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	findings, err := r.findings(id)
	if err != nil {
		return nil, err
	}
	run.Findings = findings
	return run, nil
}

// ListRuns returns the most recent runs without their findings, newest first
func (r *RunRepository) ListRuns(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, status, base_url, driver, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) findings(runID string) ([]models.Finding, error) {
	query := `
		SELECT id, run_id, scenario, kind, feature, message, created_at
		FROM findings
		WHERE run_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.RunID, &f.Scenario, &f.Kind, &f.Feature, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	return findings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	run := &models.Run{}
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Status, &run.BaseURL, &run.Driver, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	run.FinishedAt = finished.Time
	return run, nil
}
