// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/ui/components"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/util"
)

const (
	headerHeight    = 2
	statusBarHeight = 1
	inputHeight     = 5 // textarea plus its border
	promptHeight    = 1
)

// sidebarVisible reports whether the layout has room for the sidebar.
func (m Model) sidebarVisible() bool {
	return m.deps.Theme.Layout() != styles.LayoutNarrow
}

// mainWidth returns the width of the transcript column.
func (m Model) mainWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= m.sidebar.Width
	}
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes the viewport and inputs from the window and the optional
// rows currently shown.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	w := m.mainWidth()
	m.input.SetWidth(w - 4)
	m.path.Width = w - len(m.path.Prompt) - 2

	used := headerHeight + statusBarHeight + inputHeight
	if m.tray.Len() > 0 {
		used += 2
	}
	if m.typing.Active() {
		used++
	}
	if m.mode != modeNormal {
		used += promptHeight
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		used += lipgloss.Height(components.RenderToastStack(toasts, w))
	}

	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.sidebar.Height = m.height - headerHeight - statusBarHeight

	if w != m.renderedWidth {
		m.renderedWidth = w
		m.rendered = make(map[string]string)
		m.viewport.SetContent(m.renderTranscript())
	}
}

// renderTranscript renders the snapshot messages, reusing earlier
// renderings of the same message at the same width.
func (m *Model) renderTranscript() string {
	w := m.viewport.Width
	if w <= 0 {
		w = 80
	}
	parts := make([]string, 0, len(m.snapshot.Messages))
	for _, msg := range m.snapshot.Messages {
		out, ok := m.rendered[msg.ID]
		if !ok {
			out = components.RenderMessage(m.renderer, m.deps.Theme, msg, w)
			m.rendered[msg.ID] = out
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n\n")
}

// View renders the chat view.
func (m Model) View() string {
	theme := m.deps.Theme
	w := m.mainWidth()

	title := ""
	if conv, ok := m.snapshot.Current(); ok {
		title = util.SingleLine(conv.DisplayTitle())
	}
	header := components.Header{Title: title, Right: m.email, Width: m.width}.View(theme)

	rows := []string{m.viewport.View()}
	if m.typing.Active() {
		rows = append(rows, m.typing.View(theme))
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		rows = append(rows, components.RenderToastStack(toasts, w))
	}
	if tray := components.RenderTray(theme, m.tray.Items(), m.traySelection(), w); tray != "" {
		rows = append(rows, tray)
	}

	switch m.mode {
	case modeConfirmDelete:
		rows = append(rows, theme.Confirm.Render(
			"Delete \""+util.TruncateWidth(util.SingleLine(m.pendingDel.DisplayTitle()), 40)+"\"? (y/n)"))
	case modeAttachPrompt:
		rows = append(rows, m.path.View())
	}

	box := theme.InputContainer
	if m.focus == focusInput && m.mode == modeNormal {
		box = theme.InputFocused
	}
	rows = append(rows, box.Width(w-2).Render(m.input.View()))

	main := lipgloss.JoinVertical(lipgloss.Left, rows...)
	body := main
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(theme), main)
	}

	var recFor time.Duration
	if !m.recordStart.IsZero() {
		recFor = time.Since(m.recordStart)
	}
	var maxDur time.Duration
	if m.deps.Capture != nil {
		maxDur = m.deps.Capture.MaxDuration()
	}
	status := components.StatusBar{
		DetectedLanguage: m.snapshot.DetectedLanguage,
		Voice:            m.voiceState,
		RecordingFor:     recFor,
		RecordingMax:     maxDur,
		Pending:          m.snapshot.Pending,
		Width:            m.width,
	}.View(theme)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m Model) traySelection() int {
	if m.focus != focusTray {
		return -1
	}
	return m.traySel
}
