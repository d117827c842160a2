// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/storage"
)

// DefaultCookieName is the readable cookie checked by the guard.
const DefaultCookieName = "session_id"

// =============================================================================
// SESSION SNAPSHOT
// =============================================================================

// Session is a snapshot of the client-held identifiers.
type Session struct {
	UserID    int64
	Email     string
	HasCookie bool
}

// Authenticated reports whether the guard would admit this session. Only the
// cookie counts; the stored email may legitimately diverge from it.
func (s Session) Authenticated() bool {
	return s.HasCookie
}

// User is the identity handed to Establish after sign-in.
type User struct {
	UserID int64
	Email  string
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Config configures a Manager.
type Config struct {
	// CookieName is the non-authoritative cookie looked up by HasCookie.
	CookieName string

	// CookieURL is the backend URL the cookie is scoped to.
	CookieURL *url.URL

	Logger *log.Logger
}

// Manager is the session context object shared by every view.
type Manager struct {
	mu         sync.Mutex
	store      *storage.Store
	jar        *PersistentJar
	cookieName string
	cookieURL  *url.URL
	logger     *log.Logger

	onClear []func()
}

// NewManager creates a manager over store, replaying persisted cookies.
func NewManager(ctx context.Context, store *storage.Store, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store cannot be nil")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookieURL == nil {
		cfg.CookieURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	logger := cfg.Logger.WithPrefix("session")

	jar, err := NewPersistentJar(ctx, store, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:      store,
		jar:        jar,
		cookieName: cfg.CookieName,
		cookieURL:  cfg.CookieURL,
		logger:     logger,
	}, nil
}

// Jar returns the cookie jar to hand to the API client.
func (m *Manager) Jar() *PersistentJar {
	return m.jar
}

// Store returns the underlying local store.
func (m *Manager) Store() *storage.Store {
	return m.store
}

// HasCookie reports whether the readable session cookie is present for the
// backend URL. No expiry check beyond the jar and no server round trip.
func (m *Manager) HasCookie() bool {
	for _, c := range m.jar.Cookies(m.cookieURL) {
		if c.Name == m.cookieName && strings.TrimSpace(c.Value) != "" {
			return true
		}
	}
	return false
}

// Get returns the current session snapshot. Storage errors are logged and
// yield empty identifiers.
func (m *Manager) Get(ctx context.Context) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Session{HasCookie: m.HasCookie()}
	if email, err := m.store.Get(ctx, storage.KeyEmail); err == nil {
		s.Email = email
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn("failed to read email", "err", err)
	}
	if id, err := m.store.GetInt64(ctx, storage.KeyUserID); err == nil {
		s.UserID = id
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn("failed to read user id", "err", err)
	}
	return s
}

// Establish mirrors the signed-in user into local storage. Cookies were
// already placed in the jar by the login response.
func (m *Manager) Establish(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A cookie that only lives in memory would be lost on the next reload
	// or restart, so the sign-in fails instead.
	if err := m.jar.PersistErr(); err != nil {
		if rerr := m.jar.Reset(ctx); rerr != nil {
			m.logger.Warn("drop unsaved cookies", "err", rerr)
		}
		return fmt.Errorf("save session cookie: %w", err)
	}

	if err := m.store.SetInt64(ctx, storage.KeyUserID, u.UserID); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyEmail, u.Email); err != nil {
		return err
	}
	m.logger.Info("session established", "user_id", u.UserID)
	return nil
}

// Clear removes the client-held identifiers and every cookie.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	err := errors.Join(
		m.store.Remove(ctx, storage.KeyUserID, storage.KeyEmail),
		m.jar.Reset(ctx),
	)
	hooks := append([]func(){}, m.onClear...)
	m.mu.Unlock()

	m.logger.Info("session cleared")
	for _, fn := range hooks {
		fn()
	}
	return err
}

// OnClear registers fn to run after every Clear.
func (m *Manager) OnClear(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = append(m.onClear, fn)
}

// Reload re-reads cookies from storage after an external change.
func (m *Manager) Reload(ctx context.Context) error {
	return m.jar.Reload(ctx)
}
