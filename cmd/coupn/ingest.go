package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/ingest"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/service"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import promotions from your Gmail inbox",
		Long: `Read the newest promotional emails from Gmail, extract the offers in
each one, and save them.

Run 'coupn auth gmail' first to connect your account.`,
		RunE: runIngest,
	}

	cmd.Flags().Int64("max", 0, "Maximum number of messages to read (default from config)")
	cmd.Flags().String("query", "", "Gmail search query (default from config)")

	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	gmailCfg, err := config.LoadGmailConfig()
	if err != nil {
		return fmt.Errorf("failed to load gmail config: %w", err)
	}
	if limit, _ := cmd.Flags().GetInt64("max"); limit > 0 {
		gmailCfg.MaxResults = limit
	}
	if query, _ := cmd.Flags().GetString("query"); query != "" {
		gmailCfg.Query = query
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	ingester, err := newIngester(ctx, *gmailCfg, store, nil, ingest.WithProgress(os.Stderr))
	if err != nil {
		return err
	}

	slog.Info("📬 Importing promotions", "query", gmailCfg.Query, "max", gmailCfg.MaxResults)

	stats, err := ingester.Run(ctx, config.UserID())
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	logStats(stats)
	return nil
}

// newIngester connects to Gmail with the saved token and builds an ingester
// that extracts with the chat provider.
func newIngester(ctx context.Context, cfg ingest.Config, store service.PromotionStore, observer llm.Observer, opts ...ingest.Option) (*ingest.Ingester, error) {
	ts, err := ingest.TokenSource(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail token (run 'coupn auth gmail'): %w", err)
	}

	mailbox, err := ingest.NewGmailMailbox(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gmail: %w", err)
	}

	chatCfg := config.LoadChatConfig()
	chatCfg.Observer = observer
	client, err := llm.NewClient(chatCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}

	opts = append([]ingest.Option{ingest.WithLogger(slog.Default())}, opts...)
	return ingest.NewIngester(mailbox, ingest.NewExtractor(client, slog.Default()), store, cfg, opts...), nil
}

func logStats(stats ingest.Stats) {
	slog.Info("✅ Import complete",
		"messages", stats.Messages,
		"promotions", stats.Extracted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond))
}
