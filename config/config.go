// Package config loads runtime configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvAPIKey        = "LLM_API_KEY"
	EnvAccessControl = "FUNDLENS_ACCESS_CONTROL"
	EnvDataDir       = "FUNDLENS_DATA_DIR"
)

// DefaultDataDir is used when FUNDLENS_DATA_DIR is unset
const DefaultDataDir = "data"

// Config holds runtime settings
type Config struct {
	// APIKey authenticates against the LLM provider. Empty means offline
	// mode: engines fall back to deterministic embedding and canned answers.
	APIKey string

	// AccessControl enables query-time permission enforcement
	AccessControl bool

	// DataDir is where sample documents and databases live
	DataDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; a missing file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIKey:        os.Getenv(EnvAPIKey),
		AccessControl: boolEnv(EnvAccessControl, false),
		DataDir:       stringEnv(EnvDataDir, DefaultDataDir),
	}
}

// RequireAPIKey returns an error when no API key is configured
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("%s is not set", EnvAPIKey)
	}
	return nil
}

// Offline reports whether the module should avoid live LLM calls
func (c *Config) Offline() bool { return c.APIKey == "" }

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
