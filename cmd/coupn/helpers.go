package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/api"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	"github.com/coupn-app/coupn/internal/storage"
	"github.com/coupn-app/coupn/internal/voice"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// providers are the search and voice collaborators, backed either by the
// configured LLM providers or by a remote coupn server.
type providers struct {
	matcher     search.Matcher
	responder   voice.Responder
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	// audio is set only for local providers; the server needs it.
	audio llm.AudioClient
}

// newProviders builds providers from configuration. A missing API key is not
// an error here; the affected call reports it when made.
func newProviders(observer llm.Observer) (*providers, error) {
	relevanceCfg := config.LoadRelevanceConfig()
	relevanceCfg.Observer = observer
	chatCfg := config.LoadChatConfig()
	chatCfg.Observer = observer

	var matcher search.Matcher
	switch name := viper.GetString("search.matcher"); name {
	case "keyword":
		matcher = search.NewKeywordMatcher()
	case "oracle", "":
		client, err := llm.NewClient(relevanceCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create relevance client: %w", err)
		}
		matcher = llm.NewRelevanceOracle(client,
			llm.WithOracleTimeout(relevanceCfg.Timeout),
			llm.WithStrictValidation(viper.GetBool("relevance.strict")),
			llm.WithOracleLogger(slog.Default()),
		)
	default:
		return nil, fmt.Errorf("unknown search matcher: %s", name)
	}

	chat, err := llm.NewClient(chatCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	audio, err := llm.NewAudioClient(chatCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio client: %w", err)
	}

	return &providers{
		matcher:     matcher,
		responder:   llm.NewSummarizer(matcher, chat, slog.Default()),
		transcriber: audio,
		synthesizer: audio,
		audio:       audio,
	}, nil
}

// remoteProviders routes search and voice calls through a coupn server.
func remoteProviders(userID string) (*providers, error) {
	baseURL := config.ServerBaseURL()
	if baseURL == "" {
		return nil, fmt.Errorf("no server configured: set server.base_url or COUPN_BASE_URL")
	}

	client := api.NewClient(baseURL, userID, nil)
	return &providers{
		matcher:     client,
		responder:   client,
		transcriber: client,
		synthesizer: client,
	}, nil
}

// loadPromotions reads the user's promotions from the server when remote,
// otherwise from the local database.
func loadPromotions(ctx context.Context, remote bool, userID string) ([]model.Promotion, error) {
	if remote {
		promotions, err := api.NewClient(config.ServerBaseURL(), userID, nil).ListPromotions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list promotions: %w", err)
		}
		return promotions, nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	promotions, err := store.ListPromotions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return promotions, nil
}

func loadProviders(remote bool, userID string) (*providers, error) {
	if remote {
		return remoteProviders(userID)
	}
	return newProviders(nil)
}

// renderPromotions writes promotions as a table.
func renderPromotions(w io.Writer, promotions []model.Promotion) {
	rows := make([][]string, 0, len(promotions))
	for _, p := range promotions {
		expires := ""
		if !p.ExpirationDate.IsZero() {
			expires = p.ExpirationDate.String()
		}
		rows = append(rows, []string{p.Company, string(p.Category), p.Message, p.Code, expires})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("COMPANY", "CATEGORY", "OFFER", "CODE", "EXPIRES").
		Rows(rows...)

	_, _ = fmt.Fprintln(w, t.Render())
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
