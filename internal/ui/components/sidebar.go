// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// DefaultSidebarWidth is the sidebar width in wide layouts.
const DefaultSidebarWidth = 28

// Sidebar lists conversations. Cursor is the keyboard selection; CurrentID
// is the conversation shown in the transcript.
type Sidebar struct {
	Items     []model.Conversation
	Cursor    int
	CurrentID int64
	Width     int
	Height    int
	Focused   bool
}

// NewSidebar creates an empty sidebar.
func NewSidebar() *Sidebar {
	return &Sidebar{Width: DefaultSidebarWidth}
}

// SetItems replaces the list and keeps the cursor on the same conversation
// when it still exists, otherwise on the current one.
func (s *Sidebar) SetItems(items []model.Conversation, currentID int64) {
	var keep int64
	if sel, ok := s.Selected(); ok {
		keep = sel.ID
	}
	s.Items = items
	s.CurrentID = currentID
	s.Cursor = 0
	for i, c := range items {
		if c.ID == keep {
			s.Cursor = i
			return
		}
	}
	for i, c := range items {
		if c.ID == currentID {
			s.Cursor = i
			return
		}
	}
}

// Move shifts the cursor by delta, clamped to the list.
func (s *Sidebar) Move(delta int) {
	if len(s.Items) == 0 {
		s.Cursor = 0
		return
	}
	s.Cursor += delta
	if s.Cursor < 0 {
		s.Cursor = 0
	}
	if s.Cursor >= len(s.Items) {
		s.Cursor = len(s.Items) - 1
	}
}

// Selected returns the conversation under the cursor.
func (s *Sidebar) Selected() (model.Conversation, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Items) {
		return model.Conversation{}, false
	}
	return s.Items[s.Cursor], true
}

// View renders the list, scrolled so the cursor stays visible.
func (s *Sidebar) View(theme *styles.Theme) string {
	inner := s.Width - 2
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(theme.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")

	if len(s.Items) == 0 {
		b.WriteString(theme.Muted.Render("(none)"))
	}

	visible := s.Height - 4
	if visible < 1 {
		visible = len(s.Items)
	}
	start := 0
	if s.Cursor >= visible {
		start = s.Cursor - visible + 1
	}
	end := start + visible
	if end > len(s.Items) {
		end = len(s.Items)
	}

	for i := start; i < end; i++ {
		c := s.Items[i]
		marker := "  "
		if c.ID == s.CurrentID {
			marker = "> "
		}
		line := util.PadRight(util.TruncateWidth(marker+util.SingleLine(c.DisplayTitle()), inner), inner)

		style := theme.SidebarItem
		if c.ID == s.CurrentID {
			style = theme.SidebarCurrent
		}
		if i == s.Cursor && s.Focused {
			style = theme.SidebarSelected
		}
		b.WriteString(style.Render(line))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	hint := theme.ShortcutKey.Render("n") + theme.ShortcutDesc.Render(" new  ") +
		theme.ShortcutKey.Render("d") + theme.ShortcutDesc.Render(" delete")

	// The right border takes one column.
	box := theme.Sidebar.Width(s.Width - 1)
	if s.Height > 0 {
		box = box.Height(s.Height)
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, b.String(), "", hint))
}
