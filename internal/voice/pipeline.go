// Package voice runs the record, transcribe, answer, speak interaction.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

// State is the pipeline's lifecycle state.
type State int

// Pipeline states.
const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return "idle"
	}
}

// Transition errors.
var (
	ErrBusy         = errors.New("voice pipeline is busy")
	ErrNotRecording = errors.New("not recording")
	ErrNoAudio      = errors.New("no audio captured")
)

// Recorder acquires the audio input.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// Capture is one acquired recording session.
type Capture interface {
	// Stop finalizes the recording and returns the captured audio.
	Stop() ([]byte, error)
	// Close releases the audio input. It is safe to call after Stop.
	Close() error
}

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Responder answers a question over a promotion list.
type Responder interface {
	Answer(ctx context.Context, message string, promotions []model.Promotion) (string, error)
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (llm.Speech, error)
}

// Player plays synthesized speech.
type Player interface {
	Play(ctx context.Context, speech llm.Speech) error
}

// PromotionSource provides the full promotion list the answer is drawn from.
type PromotionSource interface {
	Promotions() []model.Promotion
}

// Config wires the pipeline's collaborators.
type Config struct {
	Recorder    Recorder
	Transcriber Transcriber
	Responder   Responder
	Synthesizer Synthesizer
	Player      Player
	Source      PromotionSource
	Logger      *slog.Logger
	// Filename is sent with the audio so the transcriber knows its format.
	Filename string
}

// Pipeline sequences one voice interaction at a time.
type Pipeline struct {
	cfg        Config
	capture    Capture
	message    string
	transcript string
	answer     string
	state      State
	mu         sync.Mutex
}

// NewPipeline creates an idle pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Filename == "" {
		cfg.Filename = "audio.wav"
	}
	return &Pipeline{cfg: cfg}
}

// Start acquires the audio input and begins recording. On failure the
// pipeline stays Idle and Message reports the problem.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, p.state)
	}

	capture, err := p.cfg.Recorder.Start(ctx)
	if err != nil {
		p.cfg.Logger.Error("Failed to start recording", "error", err)
		p.message = "Could not access the microphone"
		return common.NewUserError(p.message, err)
	}

	p.capture = capture
	p.state = Recording
	p.message = ""
	p.transcript = ""
	p.answer = ""
	return nil
}

// Stop finalizes the recording and moves to Processing. The audio input is
// released whether or not the capture succeeded.
func (p *Pipeline) Stop() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Recording {
		return nil, ErrNotRecording
	}

	capture := p.capture
	p.capture = nil

	audio, err := capture.Stop()
	if closeErr := capture.Close(); closeErr != nil {
		p.cfg.Logger.Warn("Failed to release audio input", "error", closeErr)
	}

	if err == nil && len(audio) == 0 {
		err = ErrNoAudio
	}
	if err != nil {
		p.cfg.Logger.Error("Failed to finish recording", "error", err)
		p.state = Idle
		p.message = "Recording failed"
		return nil, common.NewUserError(p.message, err)
	}

	p.state = Processing
	return audio, nil
}

// Process runs transcription, answering, synthesis and playback in order.
// Any failure stops the remaining steps. The pipeline always ends Idle.
func (p *Pipeline) Process(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	if p.state != Processing {
		p.mu.Unlock()
		return fmt.Errorf("%w: cannot process while %s", ErrBusy, p.state)
	}
	p.mu.Unlock()

	err := p.process(ctx, audio)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	if err != nil {
		p.message = common.UserMessage(err, "Voice request failed")
		p.cfg.Logger.Error("Voice request failed", "error", err)
		return err
	}
	p.message = ""
	return nil
}

// StopAndProcess is Stop followed by Process.
func (p *Pipeline) StopAndProcess(ctx context.Context) error {
	audio, err := p.Stop()
	if err != nil {
		return err
	}
	return p.Process(ctx, audio)
}

func (p *Pipeline) process(ctx context.Context, audio []byte) error {
	text, err := p.cfg.Transcriber.Transcribe(ctx, audio, p.cfg.Filename)
	if err != nil {
		return common.NewUserError("Could not understand the recording", err)
	}
	p.setTranscript(text)

	var promotions []model.Promotion
	if p.cfg.Source != nil {
		promotions = p.cfg.Source.Promotions()
	}

	answer, err := p.cfg.Responder.Answer(ctx, text, promotions)
	if err != nil {
		return common.NewUserError("Could not find an answer", err)
	}
	p.setAnswer(answer)

	speech, err := p.cfg.Synthesizer.Synthesize(ctx, answer)
	if err != nil {
		return common.NewUserError("Could not generate speech", err)
	}

	if err := p.cfg.Player.Play(ctx, speech); err != nil {
		return common.NewUserError("Could not play the answer", err)
	}

	p.cfg.Logger.Info("Voice request answered",
		"transcript", text,
		"promotions", len(promotions))
	return nil
}

func (p *Pipeline) setTranscript(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transcript = text
}

func (p *Pipeline) setAnswer(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = text
}

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Message returns the user-visible error from the last interaction, if any.
func (p *Pipeline) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

// Transcript returns the recognized text of the last interaction.
func (p *Pipeline) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transcript
}

// Answer returns the answer text of the last interaction.
func (p *Pipeline) Answer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer
}
