// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/session"
	"github.com/jeranaias/medibot-tui/internal/storage"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// env carries flags, configuration and lazily opened services for one
// command invocation.
type env struct {
	configPath string
	baseURL    string
	debug      bool
	jsonOut    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	logger  *log.Logger
	closers []io.Closer

	store  *storage.Store
	sess   *session.Manager
	client *api.Client
}

// connect opens local storage, the session and the API client.
func (e *env) connect(ctx context.Context) error {
	if e.client != nil {
		return nil
	}
	st, err := storage.Open(e.cfg.Session.DatabasePath())
	if err != nil {
		return fmt.Errorf("open local storage: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, st)

	b := e.cfg.Backend
	probe := api.New(api.Options{BaseURL: b.BaseURL, AuthURL: b.ResolvedAuthURL()})
	sess, err := session.NewManager(ctx, st, session.Config{
		CookieName: e.cfg.Session.CookieName,
		CookieURL:  probe.AuthCookieURL(),
		Logger:     e.logger,
	})
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	e.sess = sess
	e.client = api.New(api.Options{
		BaseURL:           b.BaseURL,
		AuthURL:           b.ResolvedAuthURL(),
		Timeout:           b.Timeout(),
		RequestsPerSecond: b.RequestsPerSecond,
		MaxResponseBytes:  b.MaxResponseBytes,
		Jar:               sess.Jar(),
		Logger:            e.logger,
	})
	return nil
}

// signedIn connects and requires the session cookie, as the chat guard does.
func (e *env) signedIn(ctx context.Context) error {
	if err := e.connect(ctx); err != nil {
		return err
	}
	if !e.sess.HasCookie() {
		return ErrNotSignedIn
	}
	return nil
}

// dropSession clears the stored session after the backend rejected it.
func (e *env) dropSession(ctx context.Context) {
	if e.sess == nil {
		return
	}
	if err := e.sess.Clear(ctx); err != nil && e.logger != nil {
		e.logger.Warn("clear rejected session", "err", err)
	}
}

func (e *env) auth() *auth.Service {
	return auth.NewService(e.client, e.sess, e.logger)
}

func (e *env) conversations() *conversation.Manager {
	return conversation.NewManager(e.client, e.sess, conversation.Options{
		Greeting: e.cfg.UI.Greeting,
		Logger:   e.logger,
	})
}

func (e *env) capture() *voice.Capture {
	v := e.cfg.Voice
	rec := voice.NewExecRecorder(v.Command, e.logger)
	return voice.NewCapture(rec, e.client, voice.CaptureOptions{
		Constraints: voice.Constraints{
			Channels:         v.Channels,
			SampleRate:       v.SampleRate,
			EchoCancel:       v.EchoCancel,
			NoiseSuppression: v.NoiseSuppression,
		},
		MaxDuration: v.MaxDuration(),
		Logger:      e.logger,
	})
}

// close releases everything opened for the invocation, newest first.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && e.logger != nil {
			e.logger.Warn("close failed", "err", err)
		}
	}
	e.closers = nil
}
