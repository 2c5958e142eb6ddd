package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/service"
)

// PromotionExtractor extracts promotions from message text.
type PromotionExtractor interface {
	ExtractPromotions(ctx context.Context, text string) ([]model.Promotion, error)
}

// IngestCounter records how many promotions a run stored.
type IngestCounter interface {
	AddIngested(n int)
}

// Stats summarizes one ingestion run.
type Stats struct {
	Duration  time.Duration
	Messages  int
	Skipped   int
	Failed    int
	Extracted int
}

// Ingester fetches promotional email, extracts promotions and stores them.
type Ingester struct {
	mailbox   Mailbox
	extractor PromotionExtractor
	store     service.PromotionStore
	counter   IngestCounter
	logger    *slog.Logger
	progress  io.Writer
	cfg       Config
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) { i.logger = logger }
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(i *Ingester) { i.progress = w }
}

// WithCounter reports stored promotion counts to c.
func WithCounter(c IngestCounter) Option {
	return func(i *Ingester) { i.counter = c }
}

// NewIngester creates an ingester.
func NewIngester(mailbox Mailbox, extractor PromotionExtractor, store service.PromotionStore, cfg Config, opts ...Option) *Ingester {
	i := &Ingester{
		mailbox:   mailbox,
		extractor: extractor,
		store:     store,
		cfg:       cfg,
		logger:    slog.Default(),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run ingests the newest matching messages for userID. A message that cannot
// be read or extracted is logged and counted; it does not stop the run.
func (i *Ingester) Run(ctx context.Context, userID string) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	var ids []string
	err := common.WithRetry(ctx, i.retryOptions(), func(ctx context.Context) error {
		var listErr error
		ids, listErr = i.mailbox.ListMessageIDs(ctx, i.cfg.Query, i.cfg.MaxResults)
		return listErr
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list messages: %w", err)
	}
	stats.Messages = len(ids)
	i.logger.Info("Fetched promotional messages", "count", len(ids), "query", i.cfg.Query)

	bar := i.newProgressBar(len(ids))
	var collected []model.Promotion

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		promotions, err := i.processMessage(ctx, id)
		switch {
		case errors.Is(err, common.ErrNotAPromotion), errors.Is(err, ErrNoBody):
			stats.Skipped++
			i.logger.Debug("Skipping message", "id", id, "reason", err)
		case err != nil:
			stats.Failed++
			i.logger.Error("Failed to process message", "id", id, "error", err)
		default:
			collected = append(collected, promotions...)
		}

		if err := bar.Add(1); err != nil {
			i.logger.Warn("Failed to update progress bar", "error", err)
		}
	}

	if err := i.store.UpsertPromotions(ctx, userID, collected); err != nil {
		return stats, fmt.Errorf("failed to store promotions: %w", err)
	}
	stats.Extracted = len(collected)
	stats.Duration = time.Since(start)

	if i.counter != nil {
		i.counter.AddIngested(len(collected))
	}
	i.logger.Info("Ingestion complete",
		"user", userID,
		"messages", stats.Messages,
		"promotions", stats.Extracted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration)

	return stats, nil
}

func (i *Ingester) processMessage(ctx context.Context, id string) ([]model.Promotion, error) {
	opts := i.retryOptions()

	var text string
	err := common.WithRetry(ctx, opts, func(ctx context.Context) error {
		msg, err := i.mailbox.GetMessage(ctx, id)
		if err != nil {
			return err
		}
		text, err = MessageText(msg)
		return common.Permanent(err)
	})
	if err != nil {
		return nil, err
	}

	var promotions []model.Promotion
	err = common.WithRetry(ctx, opts, func(ctx context.Context) error {
		var extractErr error
		promotions, extractErr = i.extractor.ExtractPromotions(ctx, text)
		if extractErr != nil && !llm.IsRetryable(extractErr) {
			return common.Permanent(extractErr)
		}
		return extractErr
	})
	return promotions, err
}

func (i *Ingester) retryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  i.cfg.RetryAttempts,
		InitialDelay: i.cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

func (i *Ingester) newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(i.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reading promotions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(i.progress)
		}),
	)
}
