// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the set of lipgloss styles the chat screen draws with, resolved
// once for the terminal's background and color profile.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Window size, kept current by the chat model.
	Width  int
	Height int

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Transcript.
	UserBubble   lipgloss.Style
	BotBubble    lipgloss.Style
	ErrorBubble  lipgloss.Style
	SenderLabel  lipgloss.Style
	Timestamp    lipgloss.Style
	FileListItem lipgloss.Style

	// Conversation list.
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarCurrent  lipgloss.Style

	// Composer and the auth forms.
	InputContainer lipgloss.Style
	InputFocused   lipgloss.Style
	InputLabel     lipgloss.Style
	FormBox        lipgloss.Style
	FormError      lipgloss.Style
	Button         lipgloss.Style
	ButtonActive   lipgloss.Style

	StatusBar    lipgloss.Style
	StatusItem   lipgloss.Style
	Recording    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	Typing       lipgloss.Style

	// Pending attachments.
	Tray         lipgloss.Style
	TrayItem     lipgloss.Style
	TraySelected lipgloss.Style

	Muted   lipgloss.Style
	Confirm lipgloss.Style
}

// NewTheme creates a theme for the named background ("dark" or "light").
// Any other name falls back to terminal detection.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// ChromaStyle names the chroma style used for fenced code.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

// ChromaFormatter names the chroma terminal formatter for the color profile.
func (t *Theme) ChromaFormatter() string {
	switch t.ColorProfile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.Ascii:
		return "noop"
	default:
		return "terminal"
	}
}

func (t *Theme) initStyles() {
	t.initChrome()
	t.initTranscript()
	t.initSidebar()
	t.initForms()
	t.initTray()
}

// fg is a plain foreground style.
func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// box is a rounded, padded border in the given color.
func box(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// rule is a single normal-border edge in the overlay color.
func rule() lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay)
}

func (t *Theme) initChrome() {
	t.Header = rule().BorderBottom(true).Background(SurfaceDim).Padding(0, 1)
	t.HeaderTitle = fg(Teal).Bold(true)
	t.HeaderSubtitle = fg(TextSecondary).Italic(true)

	t.StatusBar = fg(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusItem = fg(TextSecondary)
	t.Recording = fg(Rose).Bold(true)
	t.ShortcutKey = fg(Teal).Bold(true)
	t.ShortcutDesc = fg(TextMuted)
	t.Spinner = fg(Teal)
	t.Typing = fg(TextMuted).Italic(true)

	t.Muted = fg(TextMuted)
	t.Confirm = fg(Amber).Bold(true)
}

func (t *Theme) initTranscript() {
	t.UserBubble = box(UserBubbleBorder).Foreground(UserBubbleFg)
	t.BotBubble = box(BotBubbleBorder).Foreground(BotBubbleFg)
	t.ErrorBubble = fg(ErrorBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ErrorBubbleBorder).
		PaddingLeft(1)
	t.SenderLabel = fg(TextSecondary).Bold(true)
	t.Timestamp = fg(TextMuted)
	t.FileListItem = fg(TextSecondary).Italic(true)
}

func (t *Theme) initSidebar() {
	t.Sidebar = rule().BorderRight(true).PaddingRight(1)
	t.SidebarTitle = fg(Teal).Bold(true).MarginBottom(1)
	t.SidebarItem = fg(TextSecondary)
	t.SidebarSelected = fg(TextPrimary).Background(SelectionBg)
	t.SidebarCurrent = fg(Teal).Bold(true)
}

func (t *Theme) initForms() {
	t.InputContainer = box(Overlay)
	t.InputFocused = box(Teal)
	t.InputLabel = fg(TextSecondary).Bold(true)
	t.FormBox = box(Teal).Padding(1, 3)
	t.FormError = fg(Rose).Bold(true)
	t.Button = fg(TextSecondary).Padding(0, 2)
	t.ButtonActive = fg(TextInverse).Background(Teal).Bold(true).Padding(0, 2)
}

func (t *Theme) initTray() {
	t.Tray = rule().BorderTop(true)
	t.TrayItem = fg(TextSecondary).Padding(0, 1)
	t.TraySelected = fg(TextPrimary).Background(SelectionBg).Padding(0, 1)
}

// SetSize records the window size used by Layout.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Layout picks the layout for the current width.
func (t *Theme) Layout() LayoutMode {
	switch {
	case t.Width < narrowWidth:
		return LayoutNarrow
	case t.Width < wideWidth:
		return LayoutMedium
	default:
		return LayoutWide
	}
}

// LayoutMode is a responsive width class.
type LayoutMode int

const (
	narrowWidth = 60
	wideWidth   = 100
)

// Layout modes. The sidebar is hidden in LayoutNarrow.
const (
	LayoutNarrow LayoutMode = iota
	LayoutMedium
	LayoutWide
)
