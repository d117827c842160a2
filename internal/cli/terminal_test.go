// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestColorProfile(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	assert.Equal(t, termenv.Ascii, colorProfile(env(nil), false))
	assert.Equal(t, termenv.Ascii, colorProfile(env(map[string]string{"NO_COLOR": "1"}), true))
	assert.Equal(t, termenv.Ascii, colorProfile(env(map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}), true))
}

func TestTerminalDetection_Buffer(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))
	assert.Equal(t, fallbackWidth, terminalWidth(&buf))
}
