package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears an environment variable for the duration of the test,
// restoring the original value afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestNewJWTConfig_DefaultExpiration(t *testing.T) {
	t.Setenv("GRADER_JWT_SECRET", "test-secret-key")
	unsetEnv(t, "GRADER_JWT_EXPIRATION_HOURS")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should default to 24 hours")
}

func TestNewJWTConfig_CustomExpiration(t *testing.T) {
	tests := []struct {
		name          string
		expiration    string
		expectedHours int
	}{
		{"twelve hours", "12", 12},
		{"two days", "48", 48},
		{"minimum one hour", "1", 1},
		{"one week", "168", 168},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GRADER_JWT_SECRET", "test-secret-key")
			t.Setenv("GRADER_JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHours, cfg.ExpirationHours)
		})
	}
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	unsetEnv(t, "GRADER_JWT_SECRET")
	unsetEnv(t, "GRADER_JWT_EXPIRATION_HOURS")

	cfg, err := NewJWTConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "GRADER_JWT_SECRET")
}

func TestNewJWTConfig_InvalidExpiration(t *testing.T) {
	tests := []struct {
		name       string
		expiration string
	}{
		{"non-numeric", "invalid"},
		{"zero", "0"},
		{"negative", "-1"},
		{"float", "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GRADER_JWT_SECRET", "test-secret-key")
			t.Setenv("GRADER_JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "GRADER_JWT_EXPIRATION_HOURS")
		})
	}
}
