package config

import "fmt"

// Replica storefront modes
const (
	ReplicaFull     = "full"
	ReplicaLiveLike = "live"
)

// ServerConfig holds configuration for the replica storefront server
type ServerConfig struct {
	Port string
	// Mode is ReplicaFull for a working filter panel or ReplicaLiveLike for
	// vendor checkboxes that leave the listing unchanged
	Mode string
}

// LoadServerConfig loads server configuration from environment variables
func LoadServerConfig(getenv func(string) string) (ServerConfig, error) {
	config := ServerConfig{
		Port: valueOr(getenv("PORT"), "8080"),
		Mode: valueOr(getenv("REPLICA_MODE"), ReplicaFull),
	}

	switch config.Mode {
	case ReplicaFull, ReplicaLiveLike:
	default:
		return ServerConfig{}, fmt.Errorf("REPLICA_MODE must be %s or %s, got %q", ReplicaFull, ReplicaLiveLike, config.Mode)
	}
	return config, nil
}
