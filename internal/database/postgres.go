package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/testathon/shopcheck/internal/config"
	_ "github.com/lib/pq"
)

// DB is the run history database opened by Connect
var DB *sql.DB

// pingTimeout bounds the reachability check made when a database is opened
const pingTimeout = 5 * time.Second

// Connect opens the run history database described by the POSTGRES_*
// environment and stores it in DB
func Connect() error {
	pgConfig, err := config.LoadPostgresConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load postgres config: %w", err)
	}

	db, err := Open(pgConfig)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to Postgres and checks the server answers
func Open(pgConfig *config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", pgConfig.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s on %s: %w", pgConfig.Database, pgConfig.Host, err)
	}

	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}
