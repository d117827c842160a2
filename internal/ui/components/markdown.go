// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

// Renderer turns message content into terminal text. With Markdown enabled
// it uses glamour; otherwise it word-wraps prose and highlights fenced code
// with chroma.
type Renderer struct {
	theme    *styles.Theme
	markdown bool
	width    int
	glam     *glamour.TermRenderer
}

// NewRenderer creates a renderer for the theme.
func NewRenderer(theme *styles.Theme, markdown bool) *Renderer {
	return &Renderer{theme: theme, markdown: markdown, width: 80}
}

// Markdown reports whether glamour rendering is enabled.
func (r *Renderer) Markdown() bool {
	return r.markdown
}

// SetWidth sets the wrap width. The glamour renderer is rebuilt lazily.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width != r.width {
		r.width = width
		r.glam = nil
	}
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render renders content. Glamour failures fall back to the plain path.
func (r *Renderer) Render(content string) string {
	if r.markdown {
		if out, err := r.renderMarkdown(content); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return r.RenderPlain(content)
}

// RenderPlain wraps prose to the width and highlights fenced code.
func (r *Renderer) RenderPlain(content string) string {
	if !strings.Contains(content, "```") {
		return wordwrap.String(content, r.width)
	}
	return HighlightFences(content, r.width, r.theme)
}

func (r *Renderer) renderMarkdown(content string) (string, error) {
	if r.glam == nil {
		g, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.theme.GlamourStyle()),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return "", err
		}
		r.glam = g
	}
	return r.glam.Render(content)
}
