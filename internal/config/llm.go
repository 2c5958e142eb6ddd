package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/llm"
)

// LoadRelevanceConfig loads the relevance oracle's provider settings. The API
// key falls back to CEREBRAS_API_KEY, or OPENAI_API_KEY for the openai
// provider. A missing key is not an error here; calls fail with a
// configuration error instead.
func LoadRelevanceConfig() llm.Config {
	cfg := llm.Config{
		Provider:    viper.GetString("relevance.provider"),
		BaseURL:     viper.GetString("relevance.base_url"),
		APIKey:      viper.GetString("relevance.api_key"),
		Model:       viper.GetString("relevance.model"),
		Temperature: optionalFloat("relevance.temperature"),
		Timeout:     viper.GetDuration("relevance.timeout"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	if cfg.APIKey == "" {
		if cfg.Provider == "openai" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		} else {
			cfg.APIKey = os.Getenv("CEREBRAS_API_KEY")
		}
	}
	return cfg
}

// LoadChatConfig loads the chat and audio provider settings. The API key
// falls back to OPENAI_API_KEY.
func LoadChatConfig() llm.Config {
	cfg := llm.Config{
		Provider:           "openai",
		BaseURL:            viper.GetString("chat.base_url"),
		APIKey:             viper.GetString("chat.api_key"),
		Model:              viper.GetString("chat.model"),
		Temperature:        optionalFloat("chat.temperature"),
		MaxTokens:          viper.GetInt("chat.max_tokens"),
		Timeout:            viper.GetDuration("chat.timeout"),
		RateLimit:          viper.GetInt("llm.rate_limit"),
		TranscriptionModel: viper.GetString("audio.transcription_model"),
		SpeechModel:        viper.GetString("audio.speech_model"),
		Voice:              viper.GetString("audio.voice"),
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

// ServerBaseURL returns the remote server URL used by --remote clients,
// falling back to COUPN_BASE_URL.
func ServerBaseURL() string {
	if v := viper.GetString("server.base_url"); v != "" {
		return v
	}
	return os.Getenv("COUPN_BASE_URL")
}

func optionalFloat(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}
