// JWT settings for the admin API, read from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds the signing secret and token lifetime for admin tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig reads GRADER_JWT_SECRET (required) and
// GRADER_JWT_EXPIRATION_HOURS (default: 24) from the environment.
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("GRADER_JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("GRADER_JWT_SECRET is required but not set")
	}

	expirationStr := os.Getenv("GRADER_JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24"
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid GRADER_JWT_EXPIRATION_HOURS: %v", err)
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("GRADER_JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("GRADER_JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
