// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
)

// Audio format produced by recorders.
const (
	ClipFilename    = "recording.webm"
	ClipContentType = "audio/webm;codecs=opus"
)

var (
	// ErrPermissionDenied is returned when the microphone cannot be opened.
	ErrPermissionDenied = errors.New("microphone access denied")

	// ErrBusy is returned by Start when a capture is already running.
	ErrBusy = errors.New("recording already in progress")

	// ErrNotRecording is returned by Stop outside the recording state.
	ErrNotRecording = errors.New("not recording")

	// ErrNoSpeech is returned for empty transcriptions.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrEmptyClip is returned when the recorder produced no audio.
	ErrEmptyClip = errors.New("no audio captured")
)

// Constraints are the capture parameters requested from the microphone.
type Constraints struct {
	Channels         int
	SampleRate       int
	EchoCancel       bool
	NoiseSuppression bool
}

// DefaultConstraints is mono 16 kHz with echo cancellation and noise
// suppression.
func DefaultConstraints() Constraints {
	return Constraints{
		Channels:         1,
		SampleRate:       16000,
		EchoCancel:       true,
		NoiseSuppression: true,
	}
}

// Clip is one finished recording.
type Clip struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Recorder opens the microphone.
type Recorder interface {
	Start(ctx context.Context, c Constraints) (Recording, error)
}

// Recording is an open microphone stream. Stop releases the microphone and
// returns the assembled clip.
type Recording interface {
	Stop() (Clip, error)
}
