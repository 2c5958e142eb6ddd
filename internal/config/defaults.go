package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/llm"
)

// SetDefaults registers default values for every configuration key.
func SetDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.file", "~/.local/share/coupn/coupn.log")

	viper.SetDefault("database.path", "~/.local/share/coupn/coupn.db")
	viper.SetDefault("user.id", "default")

	viper.SetDefault("relevance.provider", "cerebras")
	viper.SetDefault("relevance.model", llm.DefaultRelevanceModel)
	viper.SetDefault("relevance.temperature", 0.4)
	viper.SetDefault("relevance.timeout", llm.DefaultOracleTimeout)
	viper.SetDefault("relevance.strict", false)

	viper.SetDefault("chat.model", llm.DefaultChatModel)
	viper.SetDefault("chat.temperature", 0.3)
	viper.SetDefault("chat.max_tokens", 150)
	viper.SetDefault("chat.timeout", 60*time.Second)

	viper.SetDefault("audio.transcription_model", "whisper-1")
	viper.SetDefault("audio.speech_model", "tts-1")
	viper.SetDefault("audio.voice", "alloy")

	viper.SetDefault("llm.rate_limit", 600)

	viper.SetDefault("server.addr", ":3000")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("search.matcher", "oracle")

	viper.SetDefault("dashboard.theme", "default")

	viper.SetDefault("voice.record_command", "sox -q -d -t wav -")
	viper.SetDefault("voice.play_command", "play -q")

	viper.SetDefault("gmail.token_file", "~/.config/coupn/gmail-token.json")
	viper.SetDefault("gmail.query", "category:promotions")
	viper.SetDefault("gmail.max_results", 3)
}

// DatabasePath returns the expanded database path.
func DatabasePath() string {
	return ExpandPath(viper.GetString("database.path"))
}

// LogFilePath returns the expanded log file path.
func LogFilePath() string {
	return ExpandPath(viper.GetString("logging.file"))
}

// UserID returns the configured user.
func UserID() string {
	return viper.GetString("user.id")
}

// ExpandPath resolves $VAR references and a leading ~ in a configured path.
// SQLite's ":memory:" name is returned unchanged.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
