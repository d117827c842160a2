// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/medibot-tui/internal/api"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeRecorder struct {
	startErr    error
	constraints Constraints
	stopped     atomic.Int32
	released    chan struct{}
}

func (f *fakeRecorder) Start(ctx context.Context, c Constraints) (Recording, error) {
	f.constraints = c
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &fakeRecording{rec: f}, nil
}

type fakeRecording struct {
	rec *fakeRecorder
}

func (r *fakeRecording) Stop() (Clip, error) {
	r.rec.stopped.Add(1)
	if r.rec.released != nil {
		close(r.rec.released)
	}
	return Clip{Data: []byte("OPUS"), Filename: ClipFilename, ContentType: ClipContentType}, nil
}

type fakeTranscriber struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	gotData []byte

	// micReleased must be closed before Transcribe runs.
	micReleased chan struct{}
	block       chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error) {
	if f.micReleased != nil {
		select {
		case <-f.micReleased:
		default:
			return "", errors.New("microphone still open during upload")
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotData = audio
	return f.text, f.err
}

func waitResult(t *testing.T, c *Capture) Result {
	t.Helper()
	select {
	case res := <-c.Results():
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("no capture result")
		return Result{}
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestCapture_ManualStop(t *testing.T) {
	released := make(chan struct{})
	rec := &fakeRecorder{released: released}
	tr := &fakeTranscriber{text: "hello", micReleased: released}
	c := NewCapture(rec, tr, CaptureOptions{MaxDuration: time.Minute})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StateRecording, c.State())
	assert.Equal(t, DefaultConstraints(), rec.constraints)
	assert.ErrorIs(t, c.Start(context.Background()), ErrBusy)

	require.NoError(t, c.Stop())
	res := waitResult(t, c)
	require.NoError(t, res.Err)
	assert.Equal(t, "hello", res.Text)
	assert.False(t, res.Auto)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []byte("OPUS"), tr.gotData)
}

func TestCapture_AutoStop(t *testing.T) {
	rec := &fakeRecorder{}
	tr := &fakeTranscriber{text: "auto"}
	c := NewCapture(rec, tr, CaptureOptions{MaxDuration: 30 * time.Millisecond})

	require.NoError(t, c.Start(context.Background()))
	res := waitResult(t, c)
	assert.True(t, res.Auto)
	assert.Equal(t, "auto", res.Text)
	assert.ErrorIs(t, c.Stop(), ErrNotRecording)
	assert.Equal(t, int32(1), rec.stopped.Load())
}

func TestCapture_PermissionDenied(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("device busy")}
	c := NewCapture(rec, &fakeTranscriber{}, CaptureOptions{})

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, MicrophoneErrorText, AlertText(err))
	assert.Equal(t, StateIdle, c.State())
}

func TestCapture_NoSpeech(t *testing.T) {
	for _, text := range []string{"", "No speech detected"} {
		c := NewCapture(&fakeRecorder{}, &fakeTranscriber{text: text}, CaptureOptions{MaxDuration: time.Minute})
		require.NoError(t, c.Start(context.Background()))
		require.NoError(t, c.Stop())
		res := waitResult(t, c)
		assert.ErrorIs(t, res.Err, ErrNoSpeech)
		assert.Empty(t, res.Text)
	}
}

func TestCapture_Unauthorized(t *testing.T) {
	tr := &fakeTranscriber{err: &api.Error{Status: 401}}
	c := NewCapture(&fakeRecorder{}, tr, CaptureOptions{MaxDuration: time.Minute})
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop())
	res := waitResult(t, c)
	assert.ErrorIs(t, res.Err, api.ErrUnauthorized)
	assert.Equal(t, AuthErrorText, AlertText(res.Err))
}

func TestCapture_CancelDropsResult(t *testing.T) {
	tr := &fakeTranscriber{text: "late", block: make(chan struct{})}
	c := NewCapture(&fakeRecorder{}, tr, CaptureOptions{MaxDuration: time.Minute})
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop())
	assert.Equal(t, StateTranscribing, c.State())

	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
	select {
	case res := <-c.Results():
		t.Fatalf("unexpected result after cancel: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCapture_CancelWhileRecordingReleasesMic(t *testing.T) {
	released := make(chan struct{})
	c := NewCapture(&fakeRecorder{released: released}, &fakeTranscriber{}, CaptureOptions{MaxDuration: time.Minute})
	require.NoError(t, c.Start(context.Background()))
	c.Cancel()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("microphone not released")
	}
	require.NoError(t, c.Start(context.Background()))
}

func TestCapture_Toggle(t *testing.T) {
	c := NewCapture(&fakeRecorder{}, &fakeTranscriber{text: "t"}, CaptureOptions{MaxDuration: time.Minute})
	require.NoError(t, c.Toggle(context.Background()))
	require.NoError(t, c.Toggle(context.Background()))
	assert.Equal(t, "t", waitResult(t, c).Text)
}

func TestExecRecorder_Args(t *testing.T) {
	r := NewExecRecorder(nil, nil)
	args := r.Args(DefaultConstraints())
	assert.Equal(t, "ffmpeg", args[0])
	assert.Contains(t, args, "16000")
	assert.Contains(t, args, "1")
	assert.Contains(t, args, "highpass=f=100,afftdn")
	assert.Equal(t, "anull", FilterChain(Constraints{Channels: 1, SampleRate: 8000}))
}
