// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/medibot-tui/internal/storage"
)

var backendURL = &url.URL{Scheme: "http", Host: "localhost:8002", Path: "/"}

func openStore(t *testing.T, path string) *storage.Store {
	t.Helper()
	st, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newManager(t *testing.T, st *storage.Store) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), st, Config{CookieURL: backendURL})
	require.NoError(t, err)
	return m
}

func login(m *Manager) {
	// Cookies set by the auth host on another port are visible to the
	// backend host; the jar ignores ports.
	m.Jar().SetCookies(&url.URL{Scheme: "http", Host: "localhost:8000", Path: "/api/login"}, []*http.Cookie{
		{Name: "session_id", Value: "tok", Path: "/"},
		{Name: "user", Value: `{"user_id": 7}`, Path: "/", HttpOnly: true},
	})
}

func TestManager_NoCookie(t *testing.T) {
	m := newManager(t, openStore(t, filepath.Join(t.TempDir(), "m.db")))
	s := m.Get(context.Background())
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Email)
}

func TestManager_EstablishAndClear(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, openStore(t, filepath.Join(t.TempDir(), "m.db")))

	login(m)
	require.NoError(t, m.Establish(ctx, User{UserID: 7, Email: "a@b.c"}))

	s := m.Get(ctx)
	assert.True(t, s.Authenticated())
	assert.Equal(t, int64(7), s.UserID)
	assert.Equal(t, "a@b.c", s.Email)

	var hooked bool
	m.OnClear(func() { hooked = true })
	require.NoError(t, m.Clear(ctx))
	s = m.Get(ctx)
	assert.False(t, s.HasCookie)
	assert.Zero(t, s.UserID)
	assert.Empty(t, s.Email)
	assert.True(t, hooked)
}

func TestManager_CookieOnlyStillAdmits(t *testing.T) {
	// Email and cookie may diverge; only the cookie drives the guard.
	m := newManager(t, openStore(t, filepath.Join(t.TempDir(), "m.db")))
	login(m)
	s := m.Get(context.Background())
	assert.True(t, s.Authenticated())
	assert.Empty(t, s.Email)
}

func TestManager_EmptyCookieValue(t *testing.T) {
	m := newManager(t, openStore(t, filepath.Join(t.TempDir(), "m.db")))
	m.Jar().SetCookies(backendURL, []*http.Cookie{{Name: "session_id", Value: "", Path: "/"}})
	assert.False(t, m.HasCookie())
}

func TestPersistentJar_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	st := openStore(t, path)
	m := newManager(t, st)
	login(m)
	require.NoError(t, st.Close())

	m2 := newManager(t, openStore(t, path))
	assert.True(t, m2.HasCookie())

	var names []string
	for _, c := range m2.Jar().Cookies(backendURL) {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"session_id", "user"}, names)
}

func TestPersistentJar_ServerDeletesCookie(t *testing.T) {
	m := newManager(t, openStore(t, filepath.Join(t.TempDir(), "m.db")))
	login(m)
	m.Jar().SetCookies(backendURL, []*http.Cookie{{Name: "session_id", Path: "/", MaxAge: -1}})
	assert.False(t, m.HasCookie())
	require.NoError(t, m.Reload(context.Background()))
	assert.False(t, m.HasCookie())
}

func TestManager_WatchSeesExternalLogout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "m.db")
	tui := newManager(t, openStore(t, path))
	login(tui)
	require.True(t, tui.HasCookie())

	events, err := tui.Watch(ctx)
	require.NoError(t, err)

	// A second process signs out.
	other := newManager(t, openStore(t, path))
	require.NoError(t, other.Clear(ctx))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if !ev.Session.HasCookie {
				assert.False(t, tui.HasCookie())
				return
			}
		case <-deadline:
			t.Fatal("no change event after external logout")
		}
	}
}

// flakyCookies fails cookie writes while failSaves is set.
type flakyCookies struct {
	*storage.Store
	failSaves bool
}

func (f *flakyCookies) SaveCookies(ctx context.Context, host string, cookies []*http.Cookie) error {
	if f.failSaves {
		return errors.New("disk full")
	}
	return f.Store.SaveCookies(ctx, host, cookies)
}

func TestPersistentJar_ReloadKeepsUnsavedCookies(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyCookies{Store: openStore(t, filepath.Join(t.TempDir(), "m.db")), failSaves: true}
	jar, err := NewPersistentJar(ctx, flaky, nil)
	require.NoError(t, err)

	tok := []*http.Cookie{{Name: "session_id", Value: "tok", Path: "/"}}
	jar.SetCookies(backendURL, tok)
	require.Error(t, jar.PersistErr())

	require.NoError(t, jar.Reload(ctx))
	assert.Len(t, jar.Cookies(backendURL), 1)

	flaky.failSaves = false
	jar.SetCookies(backendURL, tok)
	require.NoError(t, jar.PersistErr())
	require.NoError(t, jar.Reload(ctx))
	assert.Len(t, jar.Cookies(backendURL), 1)
}

func TestManager_EstablishFailsWhenCookieUnsaved(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, filepath.Join(t.TempDir(), "m.db"))
	m := newManager(t, st)
	jar, err := NewPersistentJar(ctx, &flakyCookies{Store: st, failSaves: true}, nil)
	require.NoError(t, err)
	m.jar = jar

	login(m)
	require.True(t, m.HasCookie())

	err = m.Establish(ctx, User{UserID: 7, Email: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, m.HasCookie())
	assert.Empty(t, m.Get(ctx).Email)
}
