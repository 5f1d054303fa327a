package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// State backend constants
const (
	StateBackendMemory   = "memory"
	StateBackendFile     = "file"
	StateBackendPostgres = "postgres"
	StateBackendVault    = "vault"
)

// Seal backend constants
const (
	SealBackendNone = "none"
	SealBackendKMS  = "kms"
)

// Config holds infrastructure-level configuration for the keyring daemon.
// The account/request data itself lives in the host-managed state blob.
type Config struct {
	// State persistence
	StateBackend  string
	StateFilePath string
	PostgresDSN   string
	VaultAddress  string
	VaultToken    string
	VaultKVMount  string
	VaultKVPath   string

	// State blob sealing
	SealBackend string
	KMSKeyID    string
	KMSRegion   string

	// Engine behavior
	UniqueNames bool

	// Origin -> allowed RPC methods. Empty means the built-in default table.
	AllowedOrigins map[string][]string

	// Server
	Port int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		StateBackend:  getEnv("STATE_BACKEND", StateBackendFile),
		StateFilePath: getEnv("STATE_FILE_PATH", "keyring-state.json"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		VaultAddress:  getEnv("VAULT_ADDR", ""),
		VaultToken:    getEnv("VAULT_TOKEN", ""),
		VaultKVMount:  getEnv("VAULT_KV_MOUNT", "secret"),
		VaultKVPath:   getEnv("VAULT_KV_PATH", "keyring/state"),
		SealBackend:   getEnv("SEAL_BACKEND", SealBackendNone),
		KMSKeyID:      getEnv("KMS_KEY_ID", ""),
		KMSRegion:     getEnv("KMS_REGION", ""),
		UniqueNames:   getEnvBool("KEYRING_UNIQUE_NAMES", true),
		Port:          getEnvInt("PORT", 8080),
	}

	if raw := os.Getenv("ALLOWED_ORIGINS_JSON"); raw != "" {
		origins := make(map[string][]string)
		if err := json.Unmarshal([]byte(raw), &origins); err != nil {
			return nil, fmt.Errorf("invalid ALLOWED_ORIGINS_JSON: %w", err)
		}
		cfg.AllowedOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.StateBackend {
	case StateBackendMemory:
	case StateBackendFile:
		if c.StateFilePath == "" {
			return fmt.Errorf("STATE_FILE_PATH is required when STATE_BACKEND is 'file'")
		}
	case StateBackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STATE_BACKEND is 'postgres'")
		}
	case StateBackendVault:
		if c.VaultAddress == "" || c.VaultToken == "" {
			return fmt.Errorf("VAULT_ADDR and VAULT_TOKEN are required when STATE_BACKEND is 'vault'")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be 'memory', 'file', 'postgres' or 'vault', got: %s", c.StateBackend)
	}

	switch c.SealBackend {
	case SealBackendNone:
	case SealBackendKMS:
		if c.KMSKeyID == "" {
			return fmt.Errorf("KMS_KEY_ID is required when SEAL_BACKEND is 'kms'")
		}
	default:
		return fmt.Errorf("SEAL_BACKEND must be 'none' or 'kms', got: %s", c.SealBackend)
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}
