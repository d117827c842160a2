// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// StatusBar is the bottom line of the chat view.
type StatusBar struct {
	Email            string
	DetectedLanguage string
	Voice            voice.State
	RecordingFor     time.Duration
	RecordingMax     time.Duration
	Pending          int
	Width            int
}

// View renders the bar. Shortcut hints are dropped first when space runs
// out.
func (s StatusBar) View(theme *styles.Theme) string {
	var left []string
	switch s.Voice {
	case voice.StateRecording:
		rec := styles.StatusIndicators.Recording
		if s.RecordingMax > 0 {
			rec += fmt.Sprintf(" %ds/%ds", int(s.RecordingFor.Seconds()), int(s.RecordingMax.Seconds()))
		}
		left = append(left, theme.Recording.Render(rec))
	case voice.StateTranscribing:
		left = append(left, theme.Typing.Render("transcribing..."))
	}
	if s.DetectedLanguage != "" {
		left = append(left, theme.StatusItem.Render("lang: "+model.LanguageName(s.DetectedLanguage)))
	}
	if s.Pending > 0 {
		left = append(left, theme.StatusItem.Render(fmt.Sprintf("waiting: %d", s.Pending)))
	}
	if s.Email != "" {
		left = append(left, theme.Muted.Render(s.Email))
	}

	hints := []string{
		theme.ShortcutKey.Render("enter") + theme.ShortcutDesc.Render(" send"),
		theme.ShortcutKey.Render("ctrl+r") + theme.ShortcutDesc.Render(" record"),
		theme.ShortcutKey.Render("ctrl+a") + theme.ShortcutDesc.Render(" attach"),
		theme.ShortcutKey.Render("tab") + theme.ShortcutDesc.Render(" focus"),
		theme.ShortcutKey.Render("esc") + theme.ShortcutDesc.Render(" home"),
	}

	leftStr := strings.Join(left, "  ")
	inner := s.Width - 2
	for len(hints) > 0 {
		right := strings.Join(hints, "  ")
		if inner <= 0 || lipgloss.Width(leftStr)+lipgloss.Width(right)+2 <= inner {
			gap := inner - lipgloss.Width(leftStr) - lipgloss.Width(right)
			if gap < 2 {
				gap = 2
			}
			return theme.StatusBar.Width(max(s.Width, 0)).Render(leftStr + strings.Repeat(" ", gap) + right)
		}
		hints = hints[:len(hints)-1]
	}
	return theme.StatusBar.Width(max(s.Width, 0)).Render(leftStr)
}
