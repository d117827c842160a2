// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRecorder_MissingBinary(t *testing.T) {
	r := NewExecRecorder([]string{"medibot-no-such-recorder-binary"}, nil)
	_, err := r.Start(context.Background(), DefaultConstraints())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestExecRecorder_ImmediateExit(t *testing.T) {
	r := NewExecRecorder([]string{"sh", "-c", "echo no device >&2; exit 1"}, nil)
	_, err := r.Start(context.Background(), DefaultConstraints())
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "no device")
}

func TestExecRecorder_StopCollectsStdout(t *testing.T) {
	r := NewExecRecorder([]string{"sh", "-c", "printf OPUS; trap 'exit 0' INT; while :; do sleep 0.05; done"}, nil)
	rec, err := r.Start(context.Background(), DefaultConstraints())
	require.NoError(t, err)
	clip, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "OPUS", string(clip.Data))
	assert.Equal(t, ClipContentType, clip.ContentType)
}
