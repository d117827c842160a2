// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/export"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/ui/components"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// MaxInputLength matches the backend's query length limit.
const MaxInputLength = 10000

// Speaker turns text into audio. *api.Client satisfies it.
type Speaker interface {
	TextToSpeech(ctx context.Context, text, language string) ([]byte, error)
}

// Deps are the collaborators of the chat view.
type Deps struct {
	Conversations *conversation.Manager

	// Capture is nil when recording is unavailable.
	Capture *voice.Capture

	// Speaker is nil when text-to-speech is unavailable.
	Speaker Speaker

	Theme    *styles.Theme
	Markdown bool

	// Language is the text-to-speech language used before the backend has
	// detected one.
	Language string

	// OutputDir receives exports and speech clips.
	OutputDir string

	Logger *log.Logger
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
	focusTray
)

type mode int

const (
	modeNormal mode = iota
	modeConfirmDelete
	modeAttachPrompt
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat view.
type Model struct {
	ctx  context.Context
	deps Deps
	keys KeyMap

	width  int
	height int

	sidebar  *components.Sidebar
	viewport viewport.Model
	input    textarea.Model
	path     textinput.Model
	typing   components.TypingIndicator
	toasts   *components.ToastManager
	renderer *components.Renderer
	tray     *attach.Tray

	traySel      int
	focus        focusArea
	mode         mode
	pendingDel   model.Conversation
	snapshot     conversation.Snapshot
	email        string
	recordStart  time.Time
	voiceState   voice.State
	toastTicking bool

	rendered      map[string]string
	renderedWidth int
}

// New creates the chat view. ctx bounds every operation it starts.
func New(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	deps.Logger = deps.Logger.WithPrefix("chat")
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme("dark")
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = MaxInputLength
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "path to file"
	ti.Prompt = "Attach: "

	return Model{
		ctx:      ctx,
		deps:     deps,
		keys:     DefaultKeyMap(),
		sidebar:  components.NewSidebar(),
		viewport: viewport.New(80, 20),
		input:    ta,
		path:     ti,
		typing:   components.NewTypingIndicator(deps.Theme),
		toasts:   components.NewToastManager(),
		renderer: components.NewRenderer(deps.Theme, deps.Markdown),
		tray:     &attach.Tray{},
		rendered: make(map[string]string),
	}
}

// Init starts the voice result waiter.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, WaitVoice(m.deps.Capture))
}

// Enter is called when the view becomes visible. It loads the list.
func (m Model) Enter(email string) (Model, tea.Cmd) {
	m.email = email
	m.mode = modeNormal
	m.focus = focusInput
	m.input.Focus()
	m.refresh()
	return m, loadCmd(m.ctx, m.deps.Conversations)
}

// Leave is called when the view is navigated away from. In-flight requests
// and any recording are cancelled, and composer state is discarded.
func (m Model) Leave() Model {
	m.deps.Conversations.CancelAll()
	if m.deps.Capture != nil {
		m.deps.Capture.Cancel()
	}
	m.voiceState = voice.StateIdle
	m.typing.Stop()
	m.tray.Clear()
	m.traySel = 0
	m.input.Reset()
	m.path.Reset()
	m.mode = modeNormal
	m.toasts.Clear()
	return m
}

// Toasts exposes the toast manager so the parent can report errors that
// happen around navigation.
func (m Model) Toasts() *components.ToastManager {
	return m.toasts
}

// InputValue returns the composer text.
func (m Model) InputValue() string {
	return m.input.Value()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.deps.Theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.layout()
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case OpDoneMsg:
		cmds = append(cmds, m.handleOpDone(msg))

	case SendDoneMsg:
		cmds = append(cmds, m.handleSendDone(msg))

	case VoiceToggledMsg:
		cmds = append(cmds, m.handleVoiceToggled(msg))

	case VoiceResultMsg:
		cmds = append(cmds, m.handleVoiceResult(msg), WaitVoice(m.deps.Capture))

	case recordTickMsg:
		if m.deps.Capture != nil && m.deps.Capture.State() == voice.StateRecording {
			cmds = append(cmds, recordTickCmd())
		}
		if m.deps.Capture != nil {
			m.voiceState = m.deps.Capture.State()
		}

	case AttachDoneMsg:
		if msg.Err != nil {
			m.deps.Logger.Warn("attach failed", "err", msg.Err)
			cmds = append(cmds, m.toast(components.ToastKindError, "Could not attach file: "+msg.Err.Error()))
			break
		}
		if err := m.tray.Add(msg.Attachment); err != nil {
			_ = msg.Attachment.Release()
			cmds = append(cmds, m.toast(components.ToastKindError, err.Error()))
			break
		}
		cmds = append(cmds, m.toast(components.ToastKindSuccess, "Attached "+msg.Attachment.Name))

	case ExportDoneMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.toast(components.ToastKindError, "Export failed: "+msg.Err.Error()))
		} else {
			cmds = append(cmds, m.toast(components.ToastKindSuccess, "Exported to "+msg.Path))
		}

	case SpeakDoneMsg:
		switch {
		case msg.Err != nil && errors.Is(msg.Err, api.ErrUnauthorized):
			return m, func() tea.Msg { return SignInRequiredMsg{Reason: voice.AuthErrorText} }
		case msg.Err != nil:
			m.deps.Logger.Warn("text to speech failed", "err", msg.Err)
			cmds = append(cmds, m.toast(components.ToastKindError, "Text to speech failed."))
		default:
			cmds = append(cmds, m.toast(components.ToastKindSuccess, "Saved audio to "+msg.Path))
		}

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			cmds = append(cmds, components.ToastTickCmd())
		} else {
			m.toastTicking = false
		}

	default:
		var cmd tea.Cmd
		m.typing, cmd = m.typing.Update(msg)
		cmds = append(cmds, cmd)
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.layout()
	return m, tea.Batch(cmds...)
}

// handleKey routes a key by mode, then by focus.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeConfirmDelete:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.mode = modeNormal
			return removeCmd(m.ctx, m.deps.Conversations, m.pendingDel.ID)
		case key.Matches(msg, m.keys.Decline):
			m.mode = modeNormal
		}
		return nil

	case modeAttachPrompt:
		switch msg.Type {
		case tea.KeyEsc:
			m.mode = modeNormal
			m.path.Blur()
			m.path.Reset()
			m.input.Focus()
			return nil
		case tea.KeyEnter:
			p := strings.TrimSpace(m.path.Value())
			m.mode = modeNormal
			m.path.Blur()
			m.path.Reset()
			m.input.Focus()
			if p == "" {
				return nil
			}
			return attachCmd(p)
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return cmd
	}

	// Global keys.
	switch {
	case key.Matches(msg, m.keys.Home):
		return func() tea.Msg { return HomeRequestedMsg{} }
	case key.Matches(msg, m.keys.Record):
		return m.toggleRecord()
	case key.Matches(msg, m.keys.Attach):
		m.mode = modeAttachPrompt
		m.input.Blur()
		return m.path.Focus()
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus()
		return nil
	case key.Matches(msg, m.keys.DismissMsg):
		m.toasts.Dismiss()
		return nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusTray:
		return m.handleTrayKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.sidebar.Move(1)
	case key.Matches(msg, m.keys.New):
		return createCmd(m.ctx, m.deps.Conversations)
	case key.Matches(msg, m.keys.Delete):
		if c, ok := m.sidebar.Selected(); ok {
			m.pendingDel = c
			m.mode = modeConfirmDelete
		}
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.sidebar.Selected(); ok && c.ID != m.snapshot.CurrentID {
			return selectCmd(m.ctx, m.deps.Conversations, c.ID)
		}
	}
	return nil
}

func (m *Model) handleTrayKey(msg tea.KeyMsg) tea.Cmd {
	n := m.tray.Len()
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.traySel > 0 {
			m.traySel--
		}
	case key.Matches(msg, m.keys.Right):
		if m.traySel < n-1 {
			m.traySel++
		}
	case key.Matches(msg, m.keys.Remove):
		if err := m.tray.Remove(m.traySel); err != nil {
			m.deps.Logger.Warn("remove attachment", "err", err)
		}
		if m.traySel >= m.tray.Len() && m.traySel > 0 {
			m.traySel--
		}
		if m.tray.Len() == 0 {
			m.setFocus(focusInput)
		}
	}
	return nil
}

func (m *Model) cycleFocus() {
	next := m.focus
	for i := 0; i < 3; i++ {
		next = (next + 1) % 3
		if next == focusSidebar && !m.sidebarVisible() {
			continue
		}
		if next == focusTray && m.tray.Len() == 0 {
			continue
		}
		break
	}
	m.setFocus(next)
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.sidebar.Focused = f == focusSidebar
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// submit sends the composer content or runs a slash command.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if cmd, ok := parseSlash(text); ok {
		m.input.Reset()
		return m.runSlash(cmd)
	}
	if strings.TrimSpace(text) == "" && m.tray.Len() == 0 {
		return nil
	}

	staged, err := m.deps.Conversations.Stage(text, m.tray.Drain())
	m.traySel = 0
	if err != nil {
		return nil
	}
	m.input.Reset()
	m.refresh()
	m.viewport.GotoBottom()
	return tea.Batch(m.typing.Start(), deliverCmd(m.ctx, m.deps.Conversations, staged))
}

func (m *Model) runSlash(c slashCommand) tea.Cmd {
	switch c.Name {
	case "new":
		return createCmd(m.ctx, m.deps.Conversations)
	case "home":
		return func() tea.Msg { return HomeRequestedMsg{} }
	case "logout", "signout":
		return func() tea.Msg { return SignOutRequestedMsg{} }
	case "export":
		format, dir := "markdown", m.deps.OutputDir
		if len(c.Args) > 0 {
			format = c.Args[0]
		}
		if len(c.Args) > 1 {
			dir = c.Args[1]
		}
		return exportCmd(m.document(), format, dir, m.deps.Theme.GlamourStyle())
	case "speak":
		if m.deps.Speaker == nil {
			return m.toast(components.ToastKindWarning, "Text to speech is not available.")
		}
		reply, ok := lastReply(m.snapshot.Messages)
		if !ok {
			return m.toast(components.ToastKindWarning, "No reply to speak yet.")
		}
		lang := m.snapshot.DetectedLanguage
		if lang == "" {
			lang = m.deps.Language
		}
		return speakCmd(m.ctx, m.deps.Speaker, reply.Content, lang, m.deps.OutputDir)
	case "help":
		return m.toast(components.ToastKindStatus, commandHelp)
	default:
		return m.toast(components.ToastKindWarning, "Unknown command /"+c.Name+". Try /help.")
	}
}

func (m *Model) document() export.Document {
	conv, _ := m.snapshot.Current()
	return export.Document{
		Conversation:     conv,
		Messages:         m.snapshot.Messages,
		DetectedLanguage: m.snapshot.DetectedLanguage,
		Email:            m.email,
		ExportedAt:       time.Now(),
	}
}

func (m *Model) toggleRecord() tea.Cmd {
	if m.deps.Capture == nil {
		return m.toast(components.ToastKindWarning, "Recording is not configured.")
	}
	return toggleRecordCmd(m.ctx, m.deps.Capture)
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

// failure turns an operation error into a command: nil for stale results,
// a sign-in request for 401, a toast otherwise.
func (m *Model) failure(op string, err error) tea.Cmd {
	if errors.Is(err, conversation.ErrStale) || api.IsCanceled(err) {
		return nil
	}
	text, signIn := conversation.ErrorText(err)
	if signIn {
		return func() tea.Msg { return SignInRequiredMsg{Reason: text} }
	}
	m.deps.Logger.Warn("operation failed", "op", op, "err", err)
	if detail := api.DetailOf(err); detail != "" && api.StatusOf(err) < 500 {
		text = detail
	}
	return m.toast(components.ToastKindError, text)
}

func (m *Model) handleOpDone(msg OpDoneMsg) tea.Cmd {
	m.refresh()
	if msg.Err != nil {
		return m.failure(msg.Op.String(), msg.Err)
	}
	if msg.Op == OpSelect || msg.Op == OpCreate || msg.Op == OpRemove {
		m.viewport.GotoBottom()
	}
	return nil
}

func (m *Model) handleSendDone(msg SendDoneMsg) tea.Cmd {
	m.refresh()
	if m.snapshot.Pending == 0 {
		m.typing.Stop()
	}
	r := msg.Result
	if r.Stale() {
		return nil
	}
	m.viewport.GotoBottom()
	if r.SignInRequired {
		return func() tea.Msg { return SignInRequiredMsg{Reason: r.Reply.Content} }
	}
	if r.Err != nil {
		m.deps.Logger.Warn("send failed", "err", r.Err)
	}
	return nil
}

func (m *Model) handleVoiceToggled(msg VoiceToggledMsg) tea.Cmd {
	m.voiceState = msg.State
	if msg.Err != nil {
		if errors.Is(msg.Err, context.Canceled) {
			return nil
		}
		return m.toast(components.ToastKindError, voice.AlertText(msg.Err))
	}
	if msg.State == voice.StateRecording {
		m.recordStart = time.Now()
		return recordTickCmd()
	}
	return nil
}

// handleVoiceResult puts a transcription into the composer without sending.
func (m *Model) handleVoiceResult(msg VoiceResultMsg) tea.Cmd {
	m.voiceState = voice.StateIdle
	if m.deps.Capture != nil {
		m.voiceState = m.deps.Capture.State()
	}
	r := msg.Result
	if r.Err != nil {
		if errors.Is(r.Err, api.ErrUnauthorized) {
			return func() tea.Msg { return SignInRequiredMsg{Reason: voice.AuthErrorText} }
		}
		return m.toast(components.ToastKindError, voice.AlertText(r.Err))
	}
	m.input.SetValue(r.Text)
	m.setFocus(focusInput)
	return nil
}

func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

// =============================================================================
// STATE SYNC
// =============================================================================

// refresh copies the manager state into the view.
func (m *Model) refresh() {
	m.snapshot = m.deps.Conversations.Snapshot()
	m.sidebar.SetItems(m.snapshot.Conversations, m.snapshot.CurrentID)
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
