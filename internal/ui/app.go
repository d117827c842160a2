// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/session"
	"github.com/jeranaias/medibot-tui/internal/ui/chat"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// authTimeout bounds one form submission or sign-out.
const authTimeout = 30 * time.Second

// SignedOutExternallyText is shown when another process ended the session.
const SignedOutExternallyText = "You were signed out."

// Options configures the app.
type Options struct {
	Session       *session.Manager
	Auth          *auth.Service
	Conversations *conversation.Manager

	// Capture is nil when recording is unavailable.
	Capture *voice.Capture

	// Speaker is nil when text-to-speech is unavailable.
	Speaker chat.Speaker

	Theme     string
	Markdown  bool
	Language  string
	OutputDir string

	// Watch follows session changes made by other processes.
	Watch bool

	// Start is the first route requested; it passes the guard.
	Start Route

	Logger *log.Logger
}

// App is the root bubbletea model.
type App struct {
	ctx     context.Context
	opts    Options
	theme   *styles.Theme
	logger  *log.Logger
	route   Route
	width   int
	height  int
	notice  string
	signIn  authForm
	signUp  authForm
	chat    chat.Model
	changes <-chan session.Changed
}

// New creates the app. ctx bounds every background operation; cancel it
// after the program exits.
func New(ctx context.Context, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	theme := styles.NewTheme(opts.Theme)
	a := &App{
		ctx:    ctx,
		opts:   opts,
		theme:  theme,
		logger: opts.Logger.WithPrefix("ui"),
		route:  RouteHome,
		signIn: newAuthForm(RouteSignIn),
		signUp: newAuthForm(RouteSignUp),
	}
	a.chat = chat.New(ctx, chat.Deps{
		Conversations: opts.Conversations,
		Capture:       opts.Capture,
		Speaker:       opts.Speaker,
		Theme:         theme,
		Markdown:      opts.Markdown,
		Language:      opts.Language,
		OutputDir:     opts.OutputDir,
		Logger:        opts.Logger,
	})
	return a
}

// Route returns the visible route.
func (a *App) Route() Route {
	return a.route
}

// Run starts the program on the alternate screen and blocks until exit.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the chat voice waiter, the session watcher and the first
// navigation.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.chat.Init()}
	if a.opts.Watch {
		ch, err := a.opts.Session.Watch(a.ctx)
		if err != nil {
			a.logger.Warn("session watch unavailable", "err", err)
		} else {
			a.changes = ch
			cmds = append(cmds, waitSessionChange(ch))
		}
	}
	start := a.opts.Start
	cmds = append(cmds, func() tea.Msg { return NavigateMsg{Route: start} })
	return tea.Batch(cmds...)
}

func waitSessionChange(ch <-chan session.Changed) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		return sessionChangedMsg{Changed: c, ok: ok}
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Navigate shows route. Chat requires the session cookie, otherwise the
// sign-in view is shown. Leaving chat cancels its work.
func (a *App) Navigate(route Route) tea.Cmd {
	if route == RouteChat && !a.opts.Session.HasCookie() {
		a.logger.Debug("guard redirected to sign in")
		route = RouteSignIn
	}
	if a.route == RouteChat && route != RouteChat {
		a.chat = a.chat.Leave()
	}
	prev := a.route
	a.route = route

	switch route {
	case RouteChat:
		if prev == RouteChat {
			return nil
		}
		a.notice = ""
		email := a.opts.Session.Get(a.ctx).Email
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Enter(email)
		return cmd
	case RouteSignIn:
		if prev != RouteSignIn {
			return a.signIn.reset(a.takeNotice())
		}
	case RouteSignUp:
		if prev != RouteSignUp {
			return a.signUp.reset(a.takeNotice())
		}
	}
	return nil
}

// takeNotice returns and clears the pending notice.
func (a *App) takeNotice() string {
	n := a.notice
	a.notice = ""
	return n
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if a.route == RouteChat {
				a.chat = a.chat.Leave()
			}
			return a, tea.Quit
		}
		return a, a.handleKey(msg)

	case NavigateMsg:
		return a, a.Navigate(msg.Route)

	case authDoneMsg:
		return a, a.handleAuthDone(msg)

	case signedOutMsg:
		if msg.Err != nil {
			a.logger.Warn("sign out incomplete", "err", msg.Err)
		}
		a.opts.Conversations.Reset()
		return a, a.Navigate(RouteHome)

	case sessionChangedMsg:
		if !msg.ok {
			return a, nil
		}
		cmd := waitSessionChange(a.changes)
		if a.route == RouteChat && !msg.Changed.Session.HasCookie {
			a.opts.Conversations.Reset()
			a.notice = SignedOutExternallyText
			return a, tea.Batch(cmd, a.Navigate(RouteSignIn))
		}
		return a, cmd

	case chat.HomeRequestedMsg:
		return a, a.Navigate(RouteHome)

	case chat.SignOutRequestedMsg:
		return a, a.signOutCmd()

	case chat.SignInRequiredMsg:
		// A 401 from any endpoint ends the session; the conversation
		// manager may already have cleared it.
		if err := a.opts.Session.Clear(a.ctx); err != nil {
			a.logger.Warn("clear rejected session", "err", err)
		}
		a.opts.Conversations.Reset()
		a.notice = msg.Reason
		return a, a.Navigate(RouteSignIn)
	}

	// Everything else belongs to the chat view: results, ticks, blinks.
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	if a.route == RouteSignIn || a.route == RouteSignUp {
		form := a.form()
		fc, _ := form.update(msg)
		cmd = tea.Batch(cmd, fc)
	}
	return a, cmd
}

func (a *App) form() *authForm {
	if a.route == RouteSignUp {
		return &a.signUp
	}
	return &a.signIn
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch a.route {
	case RouteHome:
		switch msg.String() {
		case "s":
			return a.Navigate(RouteSignIn)
		case "u":
			return a.Navigate(RouteSignUp)
		case "c", "enter":
			return a.Navigate(RouteChat)
		case "q":
			return tea.Quit
		}
		return nil

	case RouteSignIn, RouteSignUp:
		form := a.form()
		switch msg.String() {
		case "esc":
			if !form.submitting {
				return a.Navigate(RouteHome)
			}
			return nil
		case "ctrl+s":
			if form.submitting {
				return nil
			}
			if a.route == RouteSignIn {
				return a.Navigate(RouteSignUp)
			}
			return a.Navigate(RouteSignIn)
		}
		cmd, submit := form.update(msg)
		if submit {
			return a.submit(form)
		}
		return cmd

	case RouteChat:
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return cmd
	}
	return nil
}

// submit runs the form's flow in the background.
func (a *App) submit(form *authForm) tea.Cmd {
	form.submitting = true
	form.err = ""
	email, password := form.values()
	kind := form.kind
	svc := a.opts.Auth
	ctx := a.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, authTimeout)
		defer cancel()
		var user *api.User
		var err error
		if kind == RouteSignUp {
			user, err = svc.SignUp(ctx, email, password)
		} else {
			user, err = svc.SignIn(ctx, email, password)
		}
		return authDoneMsg{Kind: kind, User: user, Err: err}
	}
}

func (a *App) handleAuthDone(msg authDoneMsg) tea.Cmd {
	form := &a.signIn
	if msg.Kind == RouteSignUp {
		form = &a.signUp
	}
	form.submitting = false
	if msg.Err != nil {
		form.err = formErrorText(msg.Err)
		form.password.Reset()
		return nil
	}
	a.logger.Info("signed in", "route", msg.Kind.String())
	form.password.Reset()
	if a.route != msg.Kind {
		return nil
	}
	return a.Navigate(RouteChat)
}

// formErrorText is the inline error for a failed submission: the server
// detail when present.
func formErrorText(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingField):
		return err.Error()
	case errors.Is(err, api.ErrNetwork):
		return conversation.ConnectionErrorText
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.IsServerError() {
			return conversation.ServerErrorText
		}
	}
	return err.Error()
}

func (a *App) signOutCmd() tea.Cmd {
	svc := a.opts.Auth
	ctx := a.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, authTimeout)
		defer cancel()
		return signedOutMsg{Err: svc.SignOut(ctx)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the visible route.
func (a *App) View() string {
	switch a.route {
	case RouteSignIn:
		return a.signIn.view(a.theme, a.width, a.height)
	case RouteSignUp:
		return a.signUp.view(a.theme, a.width, a.height)
	case RouteChat:
		return a.chat.View()
	default:
		email := ""
		if a.opts.Session.HasCookie() {
			email = a.opts.Session.Get(a.ctx).Email
		}
		return homeView(a.theme, a.width, a.height, email, a.notice)
	}
}
