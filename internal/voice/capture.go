// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// DefaultMaxDuration is the automatic stop window.
const DefaultMaxDuration = 5 * time.Second

// Alert texts shown for failed captures.
const (
	MicrophoneErrorText = "Could not access microphone. Please check permissions."
	ProcessErrorText    = "Failed to process speech. Please try again."
	AuthErrorText       = "Authentication failed. Please sign in again."
	NoSpeechText        = "No speech detected. Please try again."
)

// AlertText maps a capture error to the message shown to the user.
func AlertText(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return MicrophoneErrorText
	case errors.Is(err, api.ErrUnauthorized):
		return AuthErrorText
	case errors.Is(err, ErrNoSpeech):
		return NoSpeechText
	default:
		return ProcessErrorText
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is the capture phase.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of one capture.
type Result struct {
	// Text is the normalized transcription on success.
	Text string

	Err error

	// Auto is set when the capture ended by timeout.
	Auto bool
}

// Transcriber uploads a clip for speech-to-text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error)
}

// CaptureOptions configures a Capture.
type CaptureOptions struct {
	Constraints Constraints
	MaxDuration time.Duration
	Logger      *log.Logger
}

// =============================================================================
// CAPTURE
// =============================================================================

// Capture runs the idle -> recording -> transcribing -> idle cycle.
type Capture struct {
	mu          sync.Mutex
	state       State
	recorder    Recorder
	transcriber Transcriber
	constraints Constraints
	maxDuration time.Duration
	logger      *log.Logger

	recording Recording
	timer     *time.Timer
	ctx       context.Context
	cancel    context.CancelFunc
	gen       uint64

	results chan Result
}

// NewCapture creates an idle capture.
func NewCapture(rec Recorder, tr Transcriber, opts CaptureOptions) *Capture {
	if opts.Constraints == (Constraints{}) {
		opts.Constraints = DefaultConstraints()
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Capture{
		recorder:    rec,
		transcriber: tr,
		constraints: opts.Constraints,
		maxDuration: opts.MaxDuration,
		logger:      opts.Logger.WithPrefix("capture"),
		results:     make(chan Result, 4),
	}
}

// Results delivers one Result per capture that reached Stop.
func (c *Capture) Results() <-chan Result {
	return c.results
}

// State returns the current phase.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MaxDuration returns the automatic stop window.
func (c *Capture) MaxDuration() time.Duration {
	return c.maxDuration
}

// Start opens the microphone and schedules the automatic stop. On failure
// the capture stays idle.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateRecording
	c.gen++
	gen := c.gen
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	c.mu.Unlock()

	rec, err := c.recorder.Start(runCtx, c.constraints)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Cancelled while opening.
		if rec != nil {
			go rec.Stop()
		}
		return context.Canceled
	}
	if err != nil {
		c.state = StateIdle
		c.cancel()
		c.logger.Warn("microphone unavailable", "err", err)
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return err
	}
	c.recording = rec
	c.timer = time.AfterFunc(c.maxDuration, func() { c.stop(gen, true) })
	return nil
}

// Stop ends the recording manually and starts transcription.
func (c *Capture) Stop() error {
	c.mu.Lock()
	gen := c.gen
	state := c.state
	c.mu.Unlock()
	if state != StateRecording {
		return ErrNotRecording
	}
	if !c.stop(gen, false) {
		return ErrNotRecording
	}
	return nil
}

// Toggle starts when idle and stops when recording.
func (c *Capture) Toggle(ctx context.Context) error {
	switch c.State() {
	case StateIdle:
		return c.Start(ctx)
	case StateRecording:
		return c.Stop()
	default:
		return ErrBusy
	}
}

// stop moves recording -> transcribing for generation gen.
func (c *Capture) stop(gen uint64, auto bool) bool {
	c.mu.Lock()
	if c.gen != gen || c.state != StateRecording || c.recording == nil {
		c.mu.Unlock()
		return false
	}
	c.state = StateTranscribing
	rec := c.recording
	c.recording = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ctx := c.ctx
	c.mu.Unlock()

	go c.transcribe(ctx, gen, rec, auto)
	return true
}

// transcribe releases the microphone, uploads the clip and publishes the
// result unless the capture was cancelled meanwhile.
func (c *Capture) transcribe(ctx context.Context, gen uint64, rec Recording, auto bool) {
	res := Result{Auto: auto}

	clip, err := rec.Stop()
	if err == nil {
		var text string
		text, err = c.transcriber.Transcribe(ctx, clip.Data, clip.Filename, clip.ContentType)
		if err == nil {
			if api.IsNoSpeech(text) {
				err = ErrNoSpeech
			} else {
				res.Text = util.NormalizeText(text)
			}
		}
	}
	res.Err = err

	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.state = StateIdle
		c.cancel()
	}
	c.mu.Unlock()

	if !current {
		return
	}
	if err != nil {
		c.logger.Warn("transcription failed", "err", err)
	}
	select {
	case c.results <- res:
	default:
		c.logger.Warn("dropping capture result, consumer not reading")
	}
}

// Cancel aborts any recording or transcription without producing a result.
func (c *Capture) Cancel() {
	c.mu.Lock()
	rec := c.recording
	c.recording = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.state = StateIdle
	c.mu.Unlock()

	if rec != nil {
		// Release the microphone; the clip is discarded.
		go rec.Stop()
	}
}
