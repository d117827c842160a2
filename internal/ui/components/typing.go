// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

// TypingIndicator shows that a reply is on its way.
type TypingIndicator struct {
	spinner   spinner.Model
	active    bool
	startTime time.Time
}

// NewTypingIndicator creates an inactive indicator with ASCII frames.
func NewTypingIndicator(theme *styles.Theme) TypingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	s.Style = theme.Spinner
	return TypingIndicator{spinner: s}
}

// Start activates the indicator. It returns the tick command only when the
// indicator was idle so ticks never multiply.
func (t *TypingIndicator) Start() tea.Cmd {
	if t.active {
		return nil
	}
	t.active = true
	t.startTime = time.Now()
	return t.spinner.Tick
}

// Stop deactivates the indicator.
func (t *TypingIndicator) Stop() {
	t.active = false
}

// Active reports whether the indicator is running.
func (t *TypingIndicator) Active() bool {
	return t.active
}

// Update advances the animation.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders "Dr MAMA is typing..." with the elapsed seconds.
func (t TypingIndicator) View(theme *styles.Theme) string {
	if !t.active {
		return ""
	}
	secs := int(time.Since(t.startTime).Seconds())
	text := "Dr MAMA is typing"
	if secs > 0 {
		text += fmt.Sprintf(" (%ds)", secs)
	}
	return theme.Typing.Render(text) + t.spinner.View()
}
