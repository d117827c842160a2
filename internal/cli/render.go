// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/ui/components"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

// printer writes transcript text. On a terminal bot replies go through
// the same Markdown renderer as the chat view; redirected output stays
// plain so it can be piped.
type printer struct {
	styled   bool
	width    int
	renderer *components.Renderer
}

func (e *env) printer() *printer {
	p := &printer{styled: isTerminal(e.out), width: terminalWidth(e.out)}
	if p.styled {
		p.renderer = components.NewRenderer(styles.NewTheme(e.cfg.UI.Theme), e.cfg.UI.Markdown)
		p.renderer.SetWidth(p.width - 2)
	}
	return p
}

// reply prints a bot answer.
func (p *printer) reply(w io.Writer, text string) {
	if !p.styled {
		fmt.Fprintln(w, strings.TrimRight(text, "\n"))
		return
	}
	fmt.Fprintln(w, strings.TrimRight(p.renderer.Render(text), "\n"))
}

// message prints a labelled transcript entry.
func (p *printer) message(w io.Writer, msg model.Message) {
	label := msg.Sender.DisplayName()
	style := BotLabelStyle
	switch {
	case msg.IsError:
		label, style = "Error", ErrorStyle
	case msg.Sender == model.SenderUser:
		style = UserLabelStyle
	}
	header := style.Render(label)
	if !msg.Timestamp.IsZero() {
		header += " " + DimStyle.Render(msg.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, header)

	if msg.Sender == model.SenderBot && !msg.IsError {
		p.reply(w, msg.Content)
	} else {
		fmt.Fprintln(w, wordwrap.String(msg.Content, p.width-2))
	}
	for _, f := range msg.Files {
		fmt.Fprintln(w, DimStyle.Render("  + "+f.Name))
	}
}

// transcript prints messages separated by blank lines.
func (p *printer) transcript(w io.Writer, msgs []model.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		p.message(w, m)
	}
}
