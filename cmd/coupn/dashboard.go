package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/storage"
	"github.com/coupn-app/coupn/internal/tui"
	"github.com/coupn-app/coupn/internal/tui/themes"
	"github.com/coupn-app/coupn/internal/voice"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Browse and search your promotions",
		Long: `Open the promotion dashboard.

Type / to search in plain language, v to ask a question out loud, and ?
for every other key. With --remote, search and voice go through a coupn
server instead of calling the providers directly.`,
		RunE: runDashboard,
	}

	cmd.Flags().Bool("remote", false, "Use the coupn server for search and voice")
	cmd.Flags().String("theme", "", "Color theme (default, catppuccin-mocha)")
	_ = viper.BindPFlag("dashboard.theme", cmd.Flags().Lookup("theme"))

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	remote, _ := cmd.Flags().GetBool("remote")
	userID := config.UserID()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	p, err := loadProviders(remote, userID)
	if err != nil {
		return err
	}

	return runUI(cmd, store, app.NewState(userID), p)
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Open the dashboard with sample promotions",
		Long: `Open the dashboard over a throwaway in-memory database seeded with
sample promotions. Without a relevance API key, search falls back to
keyword matching.`,
		RunE: runDemo,
	}
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		return fmt.Errorf("failed to open demo database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := store.UpsertPromotions(ctx, app.DemoUser, app.SamplePromotions()); err != nil {
		return fmt.Errorf("failed to seed demo promotions: %w", err)
	}

	if config.LoadRelevanceConfig().APIKey == "" {
		viper.Set("search.matcher", "keyword")
	}

	p, err := newProviders(nil)
	if err != nil {
		return err
	}

	return runUI(cmd, store, app.NewState(app.DemoUser), p)
}

// runUI runs the dashboard with logs redirected to the log file.
func runUI(cmd *cobra.Command, store tui.PromotionStore, state *app.State, p *providers) error {
	restore, err := logToFile()
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer restore()

	pipeline := voice.NewPipeline(voice.Config{
		Recorder:    voice.CommandRecorder{Command: viper.GetString("voice.record_command")},
		Transcriber: p.transcriber,
		Responder:   p.responder,
		Synthesizer: p.synthesizer,
		Player:      voice.CommandPlayer{Command: viper.GetString("voice.play_command")},
		Source:      state,
		Logger:      slog.Default(),
	})

	return tui.Run(cmd.Context(),
		tui.WithStore(store),
		tui.WithState(state),
		tui.WithMatcher(p.matcher),
		tui.WithVoice(pipeline),
		tui.WithLogger(slog.Default()),
		tui.WithTheme(themes.GetTheme(viper.GetString("dashboard.theme"))),
	)
}
