// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// HighlightCode applies chroma highlighting for language, guessing the
// language when it is empty. The input is returned unchanged on failure.
func HighlightCode(code, language string, theme *styles.Theme) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(theme.ChromaStyle())
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get(theme.ChromaFormatter())
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// HighlightFences replaces fenced code blocks in text with highlighted,
// boxed versions and leaves prose untouched. An unterminated fence is
// rendered up to the end of the text.
func HighlightFences(text string, width int, theme *styles.Theme) string {
	lines := strings.Split(text, "\n")
	var out []string
	var code []string
	var language string
	inFence := false

	flush := func() {
		out = append(out, renderCodeBox(strings.Join(code, "\n"), language, width, theme))
		code = code[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flush()
				inFence = false
				continue
			}
			inFence = true
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		out = append(out, wordwrap.String(line, width))
	}
	if inFence {
		flush()
	}
	return strings.Join(out, "\n")
}

func renderCodeBox(code, language string, width int, theme *styles.Theme) string {
	body := HighlightCode(code, language, theme)
	if language != "" {
		badge := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Bold(true).
			Render(language)
		body = badge + "\n" + body
	}
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1)
	if width > 8 {
		box = box.MaxWidth(width)
	}
	return box.Render(body)
}
