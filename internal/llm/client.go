package llm

import (
	"context"
	"net/http"
	"time"
)

// Client defines the interface for chat completion providers.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Transcriber converts recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer converts text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}

// AudioClient is a provider offering both speech directions.
type AudioClient interface {
	Transcriber
	Synthesizer
}

// Observer receives the outcome of every outbound provider call.
type Observer interface {
	ObserveCall(provider, op string, elapsed time.Duration, err error)
}

// CompletionRequest is a single system+user chat exchange. A nil Temperature
// or zero MaxTokens falls back to the client's configured default.
type CompletionRequest struct {
	System      string
	User        string
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a machine-parseable JSON object.
	JSON bool
}

// Speech is synthesized audio as returned by the provider.
type Speech struct {
	ContentType string
	Audio       []byte
}

// Config holds provider connection settings.
type Config struct {
	HTTPClient         *http.Client
	Observer           Observer
	Provider           string
	BaseURL            string
	APIKey             string
	Model              string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	Timeout            time.Duration
	RateLimit          int
	// Temperature is nil when unset; 0 is a valid setting.
	Temperature *float64
	MaxTokens   int
}

// Temperature returns a pointer to v for Config and CompletionRequest.
func Temperature(v float64) *float64 {
	return &v
}
