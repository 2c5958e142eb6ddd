package tui

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	"github.com/coupn-app/coupn/internal/tui/themes"
	"github.com/coupn-app/coupn/internal/voice"
)

// PromotionStore is the persistence the dashboard reads from and deletes
// through.
type PromotionStore interface {
	ListPromotions(ctx context.Context, userID string) ([]model.Promotion, error)
	DeletePromotion(ctx context.Context, userID string, key model.PromotionKey) error
}

// Clipboard receives copied codes.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Config holds TUI configuration.
type Config struct {
	Theme     themes.Theme
	Store     PromotionStore
	State     *app.State
	Matcher   search.Matcher
	Voice     *voice.Pipeline
	Clipboard Clipboard
	Logger    *slog.Logger
	Today     func() model.Date
	// IngestHint is shown when the user asks for more promotions.
	IngestHint string
	Width      int
	Height     int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:      themes.Default,
		Clipboard:  systemClipboard{},
		Today:      model.Today,
		IngestHint: "Run `coupn ingest` to import promotions from your inbox",
		Width:      80,
		Height:     24,
	}
}

// WithStore sets the promotion store.
func WithStore(store PromotionStore) Option {
	return func(c *Config) {
		c.Store = store
	}
}

// WithState sets the shared application state.
func WithState(state *app.State) Option {
	return func(c *Config) {
		c.State = state
	}
}

// WithMatcher sets the relevance matcher behind the search input.
func WithMatcher(matcher search.Matcher) Option {
	return func(c *Config) {
		c.Matcher = matcher
	}
}

// WithVoice enables the voice control.
func WithVoice(pipeline *voice.Pipeline) Option {
	return func(c *Config) {
		c.Voice = pipeline
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(cb Clipboard) Option {
	return func(c *Config) {
		c.Clipboard = cb
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithClock sets the function that decides which promotions are expired.
func WithClock(today func() model.Date) Option {
	return func(c *Config) {
		c.Today = today
	}
}

// WithIngestHint sets the text shown for the "add more promotions" action.
func WithIngestHint(hint string) Option {
	return func(c *Config) {
		c.IngestHint = hint
	}
}
