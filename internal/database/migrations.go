package database

import (
	"database/sql"
	"fmt"
)

// Schema creates the tables that hold suite runs and their findings
const Schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		status VARCHAR(20) NOT NULL,
		base_url TEXT NOT NULL,
		driver VARCHAR(50) NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS findings (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq SERIAL,
		scenario VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		feature VARCHAR(50) NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run_id ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_kind ON findings(kind);
	`

// RunMigrations creates the necessary database tables
func RunMigrations() error {
	if DB == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return Migrate(DB)
}

// Migrate applies the schema to db
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create run tables: %w", err)
	}
	return nil
}
