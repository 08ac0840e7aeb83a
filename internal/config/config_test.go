package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"store_url": "https://example-store.com",
		"monthly_visitors": 25000,
		"listen_addr": ":9090",
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://example-store.com", cfg.StoreURL)
	assert.Equal(t, 25000, cfg.MonthlyVisitors)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_NegativeVisitors(t *testing.T) {
	cfg := &Config{
		MonthlyVisitors: -1,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "monthly_visitors")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		StoreURL:        "https://example-store.com",
		MonthlyVisitors: 25000,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		APIKey:          "default-key",
		DatabaseURL:     "postgres://localhost/grader",
		ListenAddr:      ":8080",
		MonthlyVisitors: 10000,
	}

	partial := Config{
		StoreURL: "https://example-store.com",
		APIKey:   "custom-key",
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "https://example-store.com", merged.StoreURL)
	assert.Equal(t, "custom-key", merged.APIKey)

	// Default values should fill in empty fields
	assert.Equal(t, "postgres://localhost/grader", merged.DatabaseURL)
	assert.Equal(t, ":8080", merged.ListenAddr)
	assert.Equal(t, 10000, merged.MonthlyVisitors)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		StoreURL: "https://example-store.com",
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "https://example-store.com", merged.StoreURL)
}
