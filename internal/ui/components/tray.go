// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// RenderTray renders pending attachments on one line. selected < 0 means
// no item is highlighted. Returns "" for an empty tray.
func RenderTray(theme *styles.Theme, items []*attach.Attachment, selected, width int) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items)+1)
	parts = append(parts, theme.InputLabel.Render(fmt.Sprintf("Attached (%d):", len(items))))
	for i, a := range items {
		label := util.TruncateWidth(a.Name, 24) + " " + attach.HumanSize(a.Size)
		if a.Preview != "" {
			label = "[img] " + label
		}
		style := theme.TrayItem
		if i == selected {
			style = theme.TraySelected
		}
		parts = append(parts, style.Render(label))
	}
	line := strings.Join(parts, " ")
	hint := theme.ShortcutDesc.Render("  tab to select, x to remove")
	if util.StringWidth(line)+util.StringWidth(hint) <= width {
		line += hint
	}
	return theme.Tray.Width(width).Render(line)
}
