// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/logging"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/server"
	"github.com/jeranaias/medibot-tui/internal/session"
	"github.com/jeranaias/medibot-tui/internal/storage"
)

type stack struct {
	srv   *server.Server
	url   string
	dbDir string
}

type client struct {
	api   *api.Client
	sess  *session.Manager
	auth  *auth.Service
	convs *conversation.Manager
	store *storage.Store
}

func newStack(t *testing.T, cfg server.Config) *stack {
	t.Helper()
	cfg.BcryptCost = bcrypt.MinCost
	srv := server.New(cfg, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &stack{srv: srv, url: ts.URL, dbDir: t.TempDir()}
}

// connect opens a client over the shared database, as a second medibot
// process would.
func (s *stack) connect(t *testing.T) *client {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()

	st, err := storage.Open(filepath.Join(s.dbDir, "medibot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	probe := api.New(api.Options{BaseURL: s.url})
	sess, err := session.NewManager(ctx, st, session.Config{CookieURL: probe.BaseCookieURL(), Logger: logger})
	require.NoError(t, err)

	c := api.New(api.Options{BaseURL: s.url, Jar: sess.Jar(), RequestsPerSecond: 100, Logger: logger})
	return &client{
		api:   c,
		sess:  sess,
		auth:  auth.NewService(c, sess, logger),
		convs: conversation.NewManager(c, sess, conversation.Options{Logger: logger}),
		store: st,
	}
}

func TestEndToEnd_SignUpChatSignOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s := newStack(t, server.Config{})
	c := s.connect(t)

	user, err := c.auth.SignUp(ctx, " mama@clinic.in ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "mama@clinic.in", user.Email)
	assert.True(t, c.sess.Get(ctx).Authenticated())

	// A new account has no conversations, so List creates one.
	require.NoError(t, c.convs.List(ctx))
	snap := c.convs.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.NotZero(t, snap.CurrentID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, model.SenderBot, snap.Messages[0].Sender)

	res := c.convs.Send(ctx, "मुझे पीठ दर्द है", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "hi", res.DetectedLanguage)
	assert.Contains(t, res.Reply.Content, "general guidance")

	snap = c.convs.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, model.SenderUser, snap.Messages[1].Sender)
	assert.Equal(t, "मुझे पीठ दर्द है", snap.Conversations[0].Title)

	// Reloading the conversation yields the same transcript from the server.
	require.NoError(t, c.convs.Select(ctx, snap.CurrentID))
	assert.Len(t, c.convs.Snapshot().Messages, 3)

	hist, err := c.api.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "मुझे पीठ दर्द है", hist[0].Message)

	require.NoError(t, c.auth.SignOut(ctx))
	assert.False(t, c.sess.Get(ctx).Authenticated())

	_, err = c.api.ListConversations(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestEndToEnd_SessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, server.Config{})

	first := s.connect(t)
	_, err := first.auth.SignUp(ctx, "a@x.io", "pw")
	require.NoError(t, err)
	_, err = first.convs.Create(ctx, "Diet")
	require.NoError(t, err)

	second := s.connect(t)
	sess := second.sess.Get(ctx)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "a@x.io", sess.Email)

	require.NoError(t, second.convs.List(ctx))
	snap := second.convs.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, "Diet", snap.Conversations[0].Title)
}

func TestEndToEnd_ExpiredSessionRedirects(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, server.Config{SessionTimeout: time.Nanosecond})
	c := s.connect(t)

	_, err := c.auth.SignUp(ctx, "a@x.io", "pw")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	res := c.convs.Send(ctx, "hello", nil)
	require.Error(t, res.Err)
	assert.True(t, res.SignInRequired)
	assert.Equal(t, conversation.SessionExpiredText, res.Reply.Content)
	assert.False(t, c.sess.HasCookie())
}

func TestEndToEnd_DeleteCurrentCreatesFresh(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, server.Config{})
	c := s.connect(t)
	_, err := c.auth.SignUp(ctx, "a@x.io", "pw")
	require.NoError(t, err)

	require.NoError(t, c.convs.List(ctx))
	old := c.convs.CurrentID()
	require.NoError(t, c.convs.Remove(ctx, old))

	snap := c.convs.Snapshot()
	assert.NotEqual(t, old, snap.CurrentID)
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, model.DefaultConversationTitle, snap.Conversations[0].Title)
}

func TestEndToEnd_SignInErrorsSurfaceDetail(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, server.Config{})
	c := s.connect(t)

	_, err := c.auth.SignIn(ctx, "ghost@x.io", "pw")
	require.Error(t, err)
	assert.Equal(t, "Username not valid. Please signup first", err.Error())
	assert.False(t, c.sess.HasCookie())

	_, err = c.auth.SignUp(ctx, "a@x.io", "pw")
	require.NoError(t, err)
	_, err = c.auth.SignUp(ctx, "a@x.io", "pw")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestEndToEnd_Speech(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, server.Config{Transcription: "is yoga safe"})
	c := s.connect(t)
	_, err := c.auth.SignUp(ctx, "a@x.io", "pw")
	require.NoError(t, err)

	text, err := c.api.Transcribe(ctx, []byte("webm-bytes"), api.DefaultAudioFilename, api.DefaultAudioContentType)
	require.NoError(t, err)
	assert.Equal(t, "is yoga safe", text)

	audio, err := c.api.TextToSpeech(ctx, "rest and hydrate", "mr")
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(audio[:3]))

	langs, err := c.api.SupportedLanguages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 10)
	assert.Equal(t, "bn", langs[0].Code)
}
