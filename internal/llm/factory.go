package llm

import (
	"fmt"
	"strings"

	"github.com/coupn-app/coupn/internal/common"
)

// Default endpoints and models per provider.
const (
	CerebrasBaseURL = "https://api.cerebras.ai"
	OpenAIBaseURL   = "https://api.openai.com"

	DefaultRelevanceModel = "llama3.3-70b"
	DefaultChatModel      = "gpt-4o-mini"
)

// NewClient creates a chat completion client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	cfg, err := withProviderDefaults(cfg)
	if err != nil {
		return nil, err
	}
	return newOpenAIClient(cfg), nil
}

// NewAudioClient creates a transcription and speech client. Only providers
// with audio endpoints are accepted.
func NewAudioClient(cfg Config) (AudioClient, error) {
	cfg, err := withProviderDefaults(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != "openai" {
		return nil, fmt.Errorf("%w: provider %s has no audio endpoints", common.ErrInvalidConfig, cfg.Provider)
	}
	return newOpenAIClient(cfg), nil
}

func withProviderDefaults(cfg Config) (Config, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch cfg.Provider {
	case "cerebras":
		if cfg.BaseURL == "" {
			cfg.BaseURL = CerebrasBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = DefaultRelevanceModel
		}
	case "openai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = OpenAIBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = DefaultChatModel
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
	return cfg, nil
}
