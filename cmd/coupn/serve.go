package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/api"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/ingest"
	"github.com/coupn-app/coupn/internal/metrics"
	"github.com/coupn-app/coupn/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the search, chat, transcription, speech and promotion endpoints.

Prometheus metrics are exposed on /metrics. With --ingest-every the server
also imports new promotions from Gmail on a schedule.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	cmd.Flags().Duration("ingest-every", 0, "Import from Gmail at this interval (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	addr := viper.GetString("server.addr")
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
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

	m := metrics.New()
	if err := m.RegisterStore(store); err != nil {
		return fmt.Errorf("failed to register store metrics: %w", err)
	}

	p, err := newProviders(m)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Options{
		Matcher:        p.matcher,
		Responder:      p.responder,
		Audio:          p.audio,
		Store:          store,
		Metrics:        m,
		Logger:         slog.Default(),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
	})

	if every, _ := cmd.Flags().GetDuration("ingest-every"); every > 0 {
		done, err := startIngestLoop(ctx, every, store, m)
		if err != nil {
			return err
		}
		// Storage closes only after the loop has stopped.
		defer func() {
			cancel()
			<-done
		}()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🚀 Server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// ingestRunner is the part of *ingest.Ingester the scheduled loop needs.
type ingestRunner interface {
	Run(ctx context.Context, userID string) (ingest.Stats, error)
}

// startIngestLoop imports promotions for the configured user every interval
// until ctx is done. The returned channel closes once the loop has exited.
func startIngestLoop(ctx context.Context, every time.Duration, store service.PromotionStore, m *metrics.Metrics) (<-chan struct{}, error) {
	gmailCfg, err := config.LoadGmailConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail config: %w", err)
	}

	ingester, err := newIngester(ctx, *gmailCfg, store, m, ingest.WithCounter(m))
	if err != nil {
		return nil, err
	}

	return goIngestLoop(ctx, every, ingester, config.UserID()), nil
}

func goIngestLoop(ctx context.Context, every time.Duration, runner ingestRunner, userID string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runIngestLoop(ctx, every, runner, userID)
	}()
	return done
}

// runIngestLoop runs immediately, then on every tick. A failed run is logged
// and retried on the next tick.
func runIngestLoop(ctx context.Context, every time.Duration, runner ingestRunner, userID string) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		stats, err := runner.Run(ctx, userID)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			slog.Error("scheduled ingestion failed", "error", err)
		default:
			logStats(stats)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
