// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// RenderMessage renders one transcript entry: a label line followed by the
// bubble. User messages are right-aligned within width.
func RenderMessage(r *Renderer, theme *styles.Theme, msg model.Message, width int) string {
	bubbleWidth := width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	label := msg.Sender.DisplayName()
	if msg.IsError {
		label = "Error"
	}
	header := theme.SenderLabel.Render(label)
	if !msg.Timestamp.IsZero() {
		header += " " + theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	var body string
	switch {
	case msg.IsError:
		body = theme.ErrorBubble.Render(styles.StatusIndicators.Error + " " + msg.Content)
	case msg.Sender == model.SenderUser:
		r.SetWidth(bubbleWidth - 4)
		body = theme.UserBubble.Render(strings.TrimRight(r.RenderPlain(msg.Content)+renderFiles(theme, msg.Files), "\n"))
	default:
		r.SetWidth(bubbleWidth - 4)
		body = theme.BotBubble.Render(r.Render(msg.Content))
	}

	block := lipgloss.JoinVertical(lipgloss.Left, header, body)
	if msg.Sender == model.SenderUser && !msg.IsError {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}
	return block
}

// RenderTranscript renders messages separated by blank lines.
func RenderTranscript(r *Renderer, theme *styles.Theme, msgs []model.Message, width int) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, RenderMessage(r, theme, m, width))
	}
	return strings.Join(parts, "\n\n")
}

func renderFiles(theme *styles.Theme, files []model.Attachment) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, f := range files {
		line := fmt.Sprintf("+ %s (%s)", f.Name, attach.HumanSize(f.Size))
		if f.IsImage() && f.Width > 0 {
			line += fmt.Sprintf(" %dx%d", f.Width, f.Height)
		}
		b.WriteString("\n" + theme.FileListItem.Render(line))
	}
	return b.String()
}
