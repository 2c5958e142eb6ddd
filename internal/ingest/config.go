// Package ingest reads promotional email from Gmail, extracts promotions from
// each message with a language model and stores them for a user.
package ingest

import (
	"fmt"
	"time"

	"github.com/coupn-app/coupn/internal/common"
)

// Config holds the configuration for Gmail ingestion.
type Config struct {
	ClientID      string
	ClientSecret  string
	TokenFile     string
	Query         string
	MaxResults    int64
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Query:         "category:promotions",
		MaxResults:    3,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("gmail client ID and secret are required: %w", common.ErrMissingConfig)
	}

	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive: %w", common.ErrInvalidConfig)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative: %w", common.ErrInvalidConfig)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative: %w", common.ErrInvalidConfig)
	}

	return nil
}
