// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the medibot TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values, so one palette serves light
and dark terminals:

	Teal    - brand, headers, focus
	Sky     - user messages, info
	Violet  - selections
	Emerald - success
	Amber   - warnings and confirmations
	Rose    - errors and the recording indicator

Status text always carries an ASCII marker (StatusIndicators) besides color.

# Theme System (theme.go)

NewTheme takes the configured theme name ("dark" or "light"), pins Lip Gloss
to that background and records the terminal color profile from termenv:

	theme := styles.NewTheme(cfg.UI.Theme)
	title := theme.HeaderTitle.Render("medibot")

The theme also names the matching glamour and chroma styles used for bot
replies.
*/
package styles
