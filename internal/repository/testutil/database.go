// Package testutil provisions throwaway Postgres schemas for integration tests
package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/testathon/shopcheck/internal/config"
	"github.com/testathon/shopcheck/internal/database"
)

// TestDatabase is a migrated schema that only one test uses
type TestDatabase struct {
	DB         *sql.DB
	SchemaName string
}

// integrationDefaults fill in a local Postgres when POSTGRES_* is unset
var integrationDefaults = map[string]string{
	"POSTGRES_USER":     "postgres",
	"POSTGRES_PASSWORD": "postgres",
	"POSTGRES_DB":       "postgres",
	"POSTGRES_HOSTNAME": "localhost",
}

func getenv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return integrationDefaults[key]
}

// SetupTestDatabase creates a schema named after a fresh UUID, points a
// connection pool at it and applies the run schema. The schema is dropped
// when the test finishes.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	pgConfig, err := config.LoadPostgresConfig(getenv)
	if err != nil {
		t.Fatalf("Failed to load postgres config: %v", err)
	}

	admin, err := database.Open(pgConfig)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	schema := "shopcheck_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Logf("Warning: failed to drop test schema %s: %v", schema, err)
		}
	})

	scoped := *pgConfig
	scoped.SearchPath = schema
	db, err := database.Open(&scoped)
	if err != nil {
		t.Fatalf("Failed to connect to test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDatabase{DB: db, SchemaName: schema}
}
