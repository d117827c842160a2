// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/ui/components"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

const tagline = "Your medical assistant, in the terminal."

// homeView renders the landing screen. email is empty when signed out.
func homeView(theme *styles.Theme, width, height int, email, notice string) string {
	title := theme.HeaderTitle.Render("Dr MAMA · " + components.AppName)
	sub := theme.HeaderSubtitle.Render(tagline)

	hint := func(k, desc string) string {
		return theme.ShortcutKey.Render(k) + theme.ShortcutDesc.Render(" "+desc)
	}
	keys := lipgloss.JoinVertical(lipgloss.Left,
		hint("s", "sign in"),
		hint("u", "sign up"),
		hint("c", "chat"),
		hint("q", "quit"),
	)

	rows := []string{title, sub, ""}
	if email != "" {
		rows = append(rows, theme.Muted.Render("Signed in as "+email), "")
	}
	rows = append(rows, keys)
	if notice != "" {
		rows = append(rows, "", theme.FormError.Render(notice))
	}

	box := theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
