// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medibot-tui/internal/ui/styles"
)

const (
	fieldEmail = iota
	fieldPassword
)

// authForm is the sign-in or sign-up form: email and masked password,
// an inline error line and a submitting state.
type authForm struct {
	kind       Route
	email      textinput.Model
	password   textinput.Model
	focus      int
	err        string
	submitting bool
}

func newAuthForm(kind Route) authForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.Width = 36

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128
	password.Width = 36

	f := authForm{kind: kind, email: email, password: password}
	f.setFocus(fieldEmail)
	return f
}

func (f *authForm) title() string {
	if f.kind == RouteSignUp {
		return "Create an account"
	}
	return "Sign in"
}

func (f *authForm) setFocus(i int) tea.Cmd {
	f.focus = i
	if i == fieldEmail {
		f.password.Blur()
		return f.email.Focus()
	}
	f.email.Blur()
	return f.password.Focus()
}

// reset clears the inputs and state, keeping notice as the error line.
func (f *authForm) reset(notice string) tea.Cmd {
	f.email.Reset()
	f.password.Reset()
	f.submitting = false
	f.err = notice
	return f.setFocus(fieldEmail)
}

// values returns the entered credentials.
func (f *authForm) values() (string, string) {
	return f.email.Value(), f.password.Value()
}

// update handles a key for the focused field. submit is true when the user
// asked to submit.
func (f *authForm) update(msg tea.Msg) (cmd tea.Cmd, submit bool) {
	if f.submitting {
		return nil, false
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "shift+tab", "down", "up":
			return f.setFocus((f.focus + 1) % 2), false
		case "enter":
			if f.focus == fieldEmail {
				return f.setFocus(fieldPassword), false
			}
			return nil, true
		}
	}
	if f.focus == fieldEmail {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd, false
}

func (f *authForm) view(theme *styles.Theme, width, height int) string {
	field := func(label string, in textinput.Model, focused bool) string {
		box := theme.InputContainer
		if focused {
			box = theme.InputFocused
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.InputLabel.Render(label),
			box.Width(40).Render(in.View()),
		)
	}

	button := theme.Button.Render(f.title())
	if f.focus == fieldPassword {
		button = theme.ButtonActive.Render(f.title())
	}
	if f.submitting {
		button = theme.Typing.Render("Please wait...")
	}

	other := "ctrl+s sign up instead"
	if f.kind == RouteSignUp {
		other = "ctrl+s sign in instead"
	}

	rows := []string{
		theme.HeaderTitle.Render(f.title()),
		"",
		field("Email", f.email, f.focus == fieldEmail),
		field("Password", f.password, f.focus == fieldPassword),
		"",
		button,
	}
	if f.err != "" {
		rows = append(rows, "", theme.FormError.Render(styles.StatusIndicators.Error+" "+f.err))
	}
	rows = append(rows, "", theme.ShortcutDesc.Render("enter submit  tab switch field  "+other+"  esc back"))

	box := theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
