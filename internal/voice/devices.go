package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
)

// Default external audio commands. Recording writes WAV to stdout; playback
// receives a file path as its last argument.
const (
	DefaultRecordCommand = "sox -q -d -t wav -"
	DefaultPlayCommand   = "play -q"

	stopGrace = 3 * time.Second
)

// CommandRecorder records by running an external program that streams audio
// to stdout until interrupted.
type CommandRecorder struct {
	Command string
}

// Start launches the recording program.
func (r CommandRecorder) Start(_ context.Context) (Capture, error) {
	args := strings.Fields(r.Command)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no record command", common.ErrMissingConfig)
	}

	// Not bound to ctx: the recording outlives the call that starts it.
	cmd := exec.Command(args[0], args[1:]...) // #nosec G204
	capture := &commandCapture{cmd: cmd, done: make(chan error, 1)}
	cmd.Stdout = &capture.buf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
	}
	go func() { capture.done <- cmd.Wait() }()

	return capture, nil
}

type commandCapture struct {
	cmd     *exec.Cmd
	done    chan error
	buf     bytes.Buffer
	once    sync.Once
	waitErr error
	stopped bool
}

func (c *commandCapture) Stop() ([]byte, error) {
	if c.stopped {
		return nil, ErrNotRecording
	}
	c.stopped = true

	if err := c.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return nil, fmt.Errorf("failed to interrupt recorder: %w", err)
	}
	if err := c.wait(); err != nil {
		var exitErr *exec.ExitError
		// Interrupted recorders commonly exit non-zero after flushing output.
		if !errors.As(err, &exitErr) || c.buf.Len() == 0 {
			return nil, fmt.Errorf("recorder failed: %w", err)
		}
	}
	return c.buf.Bytes(), nil
}

func (c *commandCapture) Close() error {
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = c.wait()
	return nil
}

func (c *commandCapture) wait() error {
	c.once.Do(func() {
		select {
		case err := <-c.done:
			c.waitErr = err
		case <-time.After(stopGrace):
			_ = c.cmd.Process.Kill()
			c.waitErr = <-c.done
		}
	})
	return c.waitErr
}

// CommandPlayer plays audio by writing it to a temporary file and running an
// external program on it.
type CommandPlayer struct {
	Command string
}

// Play runs the playback program and waits for it to finish.
func (p CommandPlayer) Play(ctx context.Context, speech llm.Speech) error {
	args := strings.Fields(p.Command)
	if len(args) == 0 {
		return fmt.Errorf("%w: no play command", common.ErrMissingConfig)
	}

	f, err := os.CreateTemp("", "coupn-speech-*"+extensionFor(speech.ContentType))
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(speech.Audio); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	args = append(args, f.Name())
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) // #nosec G204
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("player failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FileRecorder "records" by reading a prepared audio file.
type FileRecorder struct {
	Path string
}

// Start opens the audio file.
func (r FileRecorder) Start(context.Context) (Capture, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	return &fileCapture{f: f}, nil
}

type fileCapture struct {
	f *os.File
}

func (c *fileCapture) Stop() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(c.f); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *fileCapture) Close() error {
	return c.f.Close()
}

// FilePlayer saves speech to a file instead of playing it.
type FilePlayer struct {
	Path string
}

// Play writes the audio to Path.
func (p FilePlayer) Play(_ context.Context, speech llm.Speech) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(p.Path, speech.Audio, 0600); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return ".wav"
	case strings.Contains(contentType, "ogg"), strings.Contains(contentType, "opus"):
		return ".ogg"
	case strings.Contains(contentType, "flac"):
		return ".flac"
	default:
		return ".mp3"
	}
}
