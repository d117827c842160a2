// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/session"
	"github.com/jeranaias/medibot-tui/internal/storage"
	"github.com/jeranaias/medibot-tui/internal/ui/chat"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

var backendURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}

// =============================================================================
// FAKES
// =============================================================================

type fakeAuth struct {
	jar      *session.PersistentJar
	loginErr error
	logouts  int
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*api.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.jar.SetCookies(backendURL, []*http.Cookie{{Name: session.DefaultCookieName, Value: "tok", Path: "/"}})
	return &api.User{UserID: 7, Email: email}, nil
}

func (f *fakeAuth) Signup(ctx context.Context, email, password string) (*api.SignupResponse, error) {
	return &api.SignupResponse{Email: email}, nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logouts++
	return nil
}

type fakeChats struct {
	mu     sync.Mutex
	lists  int
	convs  []model.Conversation
	status int
}

func (f *fakeChats) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.status != 0 {
		return nil, &api.Error{Status: f.status, Path: "/conversations"}
	}
	return append([]model.Conversation(nil), f.convs...), nil
}

func (f *fakeChats) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := model.Conversation{ID: int64(len(f.convs) + 1), Title: model.DefaultConversationTitle}
	f.convs = append([]model.Conversation{c}, f.convs...)
	return &c, nil
}

func (f *fakeChats) ConversationMessages(ctx context.Context, id int64) ([]model.ServerMessage, error) {
	return nil, nil
}

func (f *fakeChats) DeleteConversation(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeChats) Query(ctx context.Context, message string, id int64) (*api.QueryResponse, error) {
	return &api.QueryResponse{Response: "ok", DetectedLanguage: "en"}, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	app   *App
	sess  *session.Manager
	auth  *fakeAuth
	chats *fakeChats
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)

	st, err := storage.Open(filepath.Join(t.TempDir(), "ui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sess, err := session.NewManager(ctx, st, session.Config{CookieURL: backendURL, Logger: logger})
	require.NoError(t, err)

	h := &harness{sess: sess, auth: &fakeAuth{jar: sess.Jar()}, chats: &fakeChats{}}
	h.app = New(ctx, Options{
		Session:       sess,
		Auth:          auth.NewService(h.auth, sess, logger),
		Conversations: conversation.NewManager(h.chats, sess, conversation.Options{Logger: logger}),
		Theme:         "dark",
		Language:      "en",
		OutputDir:     t.TempDir(),
		Logger:        logger,
	})
	h.app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// exec runs cmd and returns the messages it produced. Commands that do not
// finish promptly are dropped.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, exec(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// routed reports whether msg changes state worth feeding back.
func routed(msg tea.Msg) bool {
	switch msg.(type) {
	case NavigateMsg, authDoneMsg, signedOutMsg,
		chat.HomeRequestedMsg, chat.SignOutRequestedMsg, chat.SignInRequiredMsg,
		chat.OpDoneMsg, chat.SendDoneMsg:
		return true
	}
	return false
}

func (h *harness) settle(cmd tea.Cmd) {
	queue := exec(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if !routed(msg) {
			continue
		}
		_, next := h.app.Update(msg)
		queue = append(queue, exec(next)...)
	}
}

func (h *harness) send(msg tea.Msg) {
	_, cmd := h.app.Update(msg)
	h.settle(cmd)
}

func (h *harness) key(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.send(NavigateMsg{Route: RouteSignIn})
	h.typeText("pat@example.com")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.typeText("secret")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
}

// =============================================================================
// TESTS
// =============================================================================

func TestParseRoute(t *testing.T) {
	assert.Equal(t, RouteSignIn, ParseRoute("login"))
	assert.Equal(t, RouteSignUp, ParseRoute("signup"))
	assert.Equal(t, RouteChat, ParseRoute("chat"))
	assert.Equal(t, RouteHome, ParseRoute("bogus"))
	assert.Equal(t, "signin", RouteSignIn.String())
}

func TestGuard_RedirectsWithoutCookie(t *testing.T) {
	h := newHarness(t)
	h.send(NavigateMsg{Route: RouteChat})

	assert.Equal(t, RouteSignIn, h.app.Route())
	assert.Zero(t, h.chats.lists)
	assert.Contains(t, h.app.View(), "Sign in")
}

func TestGuard_CookieAdmitsWithoutRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.sess.Jar().SetCookies(backendURL, []*http.Cookie{{Name: session.DefaultCookieName, Value: "x", Path: "/"}})

	cmd := h.app.Navigate(RouteChat)
	assert.Equal(t, RouteChat, h.app.Route())
	assert.Zero(t, h.auth.logouts)
	h.settle(cmd)
	assert.Equal(t, 1, h.chats.lists)
}

func TestHomeKeys(t *testing.T) {
	h := newHarness(t)
	h.key("u")
	assert.Equal(t, RouteSignUp, h.app.Route())
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, RouteHome, h.app.Route())
	h.key("c")
	assert.Equal(t, RouteSignIn, h.app.Route())
	h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, RouteSignUp, h.app.Route())
}

func TestSignIn_SuccessEntersChat(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	require.Equal(t, RouteChat, h.app.Route())
	assert.Equal(t, "pat@example.com", h.sess.Get(context.Background()).Email)
	assert.Equal(t, 1, h.chats.lists)
	assert.Contains(t, h.app.View(), model.DefaultConversationTitle)
}

func TestSignIn_ErrorShownInline(t *testing.T) {
	h := newHarness(t)
	h.auth.loginErr = &api.Error{Status: 401, Detail: "Invalid credentials", Path: "/auth/login"}
	h.signIn(t)

	assert.Equal(t, RouteSignIn, h.app.Route())
	assert.Contains(t, h.app.View(), "Invalid credentials")
	assert.False(t, h.sess.HasCookie())
}

func TestSignIn_MissingFieldShownInline(t *testing.T) {
	h := newHarness(t)
	h.send(NavigateMsg{Route: RouteSignIn})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, RouteSignIn, h.app.Route())
	assert.Contains(t, h.app.View(), "email is required")
}

func TestSignInRequired_ReturnsToSignIn(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	require.Equal(t, RouteChat, h.app.Route())

	h.send(chat.SignInRequiredMsg{Reason: "Session expired."})
	assert.Equal(t, RouteSignIn, h.app.Route())
	assert.False(t, h.sess.HasCookie())
	assert.Contains(t, h.app.View(), "Session expired.")
	assert.Empty(t, h.app.opts.Conversations.Snapshot().Conversations)
}

func TestUnauthorizedVoiceAndSpeech_ClearSession(t *testing.T) {
	rejected := &api.Error{Status: http.StatusUnauthorized, Path: "/speech"}
	for name, msg := range map[string]tea.Msg{
		"transcription": chat.VoiceResultMsg{Result: voice.Result{Err: rejected}},
		"speech":        chat.SpeakDoneMsg{Err: rejected},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.signIn(t)
			require.Equal(t, RouteChat, h.app.Route())

			h.send(msg)
			assert.Equal(t, RouteSignIn, h.app.Route())
			assert.False(t, h.sess.HasCookie())
			assert.Empty(t, h.sess.Get(context.Background()).Email)

			h.send(NavigateMsg{Route: RouteChat})
			assert.Equal(t, RouteSignIn, h.app.Route())
		})
	}
}

func TestFormErrorText(t *testing.T) {
	assert.Equal(t, "Invalid credentials", formErrorText(&api.Error{Status: 401, Detail: "Invalid credentials"}))
	assert.Equal(t, "Email taken", formErrorText(&api.Error{Status: 500, Detail: "Email taken"}))
	assert.Equal(t, conversation.ServerErrorText, formErrorText(&api.Error{Status: 502}))
	assert.Equal(t, "HTTP error! status: 404", formErrorText(&api.Error{Status: 404}))
	assert.Equal(t, conversation.ConnectionErrorText, formErrorText(api.ErrNetwork))
}

func TestSignOut_ClearsSessionAndGoesHome(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	require.True(t, h.sess.HasCookie())

	h.send(chat.SignOutRequestedMsg{})
	assert.Equal(t, RouteHome, h.app.Route())
	assert.Equal(t, 1, h.auth.logouts)
	assert.False(t, h.sess.HasCookie())

	h.send(NavigateMsg{Route: RouteChat})
	assert.Equal(t, RouteSignIn, h.app.Route())
}

func TestLeavingChatCancelsWork(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	require.Equal(t, RouteChat, h.app.Route())

	h.send(chat.HomeRequestedMsg{})
	assert.Equal(t, RouteHome, h.app.Route())
	assert.Zero(t, h.app.opts.Conversations.InFlight())
	assert.Contains(t, h.app.View(), "pat@example.com")
}

func TestSessionChange_SignedOutElsewhere(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	require.Equal(t, RouteChat, h.app.Route())

	require.NoError(t, h.sess.Clear(context.Background()))
	h.send(sessionChangedMsg{Changed: session.Changed{Session: h.sess.Get(context.Background())}, ok: true})
	assert.Equal(t, RouteSignIn, h.app.Route())
	assert.Contains(t, h.app.View(), SignedOutExternallyText)
}
