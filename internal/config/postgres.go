package config

import "fmt"

// postgresRequired lists the variables a run database needs, in the order
// they are reported when missing
var postgresRequired = []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOSTNAME"}

// PostgresConfig locates the database that stores run history
type PostgresConfig struct {
	User     string
	Password string
	Database string
	Host     string
	Port     int
	SSLMode  string
	// SearchPath scopes every connection to one schema; tests use it to
	// isolate their tables
	SearchPath string
}

// LoadPostgresConfig reads POSTGRES_* variables. POSTGRES_PORT defaults to
// 5432 and POSTGRES_SSLMODE to disable.
func LoadPostgresConfig(getenv func(string) string) (*PostgresConfig, error) {
	for _, key := range postgresRequired {
		if getenv(key) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}

	port, err := parsePositive(getenv, "POSTGRES_PORT", 5432)
	if err != nil {
		return nil, err
	}

	return &PostgresConfig{
		User:     getenv("POSTGRES_USER"),
		Password: getenv("POSTGRES_PASSWORD"),
		Database: getenv("POSTGRES_DB"),
		Host:     getenv("POSTGRES_HOSTNAME"),
		Port:     port,
		SSLMode:  valueOr(getenv("POSTGRES_SSLMODE"), "disable"),
	}, nil
}

// PostgresConfigured reports whether any required Postgres variable is set.
// Runs are kept in memory when none is.
func PostgresConfigured(getenv func(string) string) bool {
	for _, key := range postgresRequired {
		if getenv(key) != "" {
			return true
		}
	}
	return false
}

// ConnectionString returns a lib/pq keyword/value connection string
func (c *PostgresConfig) ConnectionString() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	if c.SearchPath != "" {
		dsn += " search_path=" + c.SearchPath
	}
	return dsn
}
