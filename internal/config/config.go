// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the grader configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Target
	StoreURL string `json:"store_url,omitempty"` // Store to grade

	// Behavior
	APIKey          string `json:"api_key,omitempty"`          // Gemini API key
	UseBrowser      bool   `json:"use_browser,omitempty"`      // Use headless browser for JS-only storefronts
	Verbose         bool   `json:"verbose,omitempty"`          // Print detailed debug information
	MonthlyVisitors int    `json:"monthly_visitors,omitempty"` // Traffic assumption for the revenue model
	SkipCache       bool   `json:"skip_cache,omitempty"`       // Force a fresh grade even when a cached report exists

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Server
	ListenAddr string `json:"listen_addr,omitempty"` // HTTP listen address for serve mode
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills a Config from environment variables. File and flag values
// take precedence; this only covers the secrets that should not live in a
// config file.
func FromEnv() Config {
	return Config{
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MonthlyVisitors < 0 {
		return fmt.Errorf("config error: 'monthly_visitors' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.StoreURL == "" {
		result.StoreURL = defaults.StoreURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}

	// Int fields: use default if zero
	if result.MonthlyVisitors == 0 {
		result.MonthlyVisitors = defaults.MonthlyVisitors
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
