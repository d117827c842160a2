// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// AppName is the brand shown in the header.
const AppName = "medibot"

// Header is the title bar: brand on the left, context on the right.
type Header struct {
	Title string
	Right string
	Width int
}

// View renders the header across Width.
func (h Header) View(theme *styles.Theme) string {
	left := theme.HeaderTitle.Render(AppName)
	if h.Title != "" {
		left += theme.HeaderSubtitle.Render("  " + h.Title)
	}
	right := theme.HeaderSubtitle.Render(h.Right)

	inner := h.Width - 2
	if inner <= 0 {
		return left
	}
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		left = theme.HeaderTitle.Render(util.TruncateWidth(AppName+"  "+h.Title, inner-lipgloss.Width(right)-1))
		gap = inner - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
	}
	return theme.Header.Width(h.Width).Render(left + strings.Repeat(" ", gap) + right)
}
