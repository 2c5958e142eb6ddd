// Package config provides configuration utilities for the application.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/ingest"
)

// LoadGmailConfig loads Gmail ingestion configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or COUPN_ env vars)
// 2. Direct environment variables (GOOGLE_CLIENT_*)
// 3. Default values
func LoadGmailConfig() (*ingest.Config, error) {
	config := ingest.DefaultConfig()

	if v := viper.GetString("gmail.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("gmail.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("gmail.token_file"); v != "" {
		config.TokenFile = ExpandPath(v)
	}
	if v := viper.GetString("gmail.query"); v != "" {
		config.Query = v
	}
	if v := viper.GetInt64("gmail.max_results"); v != 0 {
		config.MaxResults = v
	}

	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
