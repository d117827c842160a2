// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(colorProfile(os.Getenv, isTerminal(os.Stdout)))
}

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Styles shared by the plain command output.
var (
	TitleStyle   = fg(styles.Teal).Bold(true)
	LabelStyle   = fg(styles.TextMuted).Width(18)
	ValueStyle   = fg(styles.TextPrimary)
	SuccessStyle = fg(styles.Emerald).Bold(true)
	ErrorStyle   = fg(styles.Rose).Bold(true)
	WarningStyle = fg(styles.Amber)
	DimStyle     = fg(styles.TextMuted)

	// PromptStyle is the chat prompt.
	PromptStyle    = fg(styles.Teal).Bold(true)
	UserLabelStyle = fg(styles.Sky).Bold(true)
	BotLabelStyle  = fg(styles.Violet).Bold(true)
)

// RenderSeparator renders a horizontal rule, 60 columns unless width is set.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return DimStyle.Render(strings.Repeat("-", w))
}

// RenderStatus renders a bracketed status indicator.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success":
		return SuccessStyle.Render(styles.StatusIndicators.Success)
	case "error", "fail":
		return ErrorStyle.Render(styles.StatusIndicators.Error)
	case "warning", "warn":
		return WarningStyle.Render(styles.StatusIndicators.Warning)
	default:
		return DimStyle.Render(styles.StatusIndicators.Info)
	}
}

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
