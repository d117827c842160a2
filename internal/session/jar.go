// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/storage"
)

// persistTimeout bounds a cookie write triggered from SetCookies.
const persistTimeout = 5 * time.Second

// CookieStore is the persistence behind a PersistentJar. *storage.Store
// implements it.
type CookieStore interface {
	LoadCookies(ctx context.Context) ([]storage.HostCookie, error)
	SaveCookies(ctx context.Context, host string, cookies []*http.Cookie) error
	ClearCookies(ctx context.Context) error
}

// PersistentJar is an http.CookieJar that mirrors every cookie it receives
// into storage and replays stored cookies when loaded.
type PersistentJar struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar
	store  CookieStore
	logger *log.Logger

	// persistErr is the last failed write; nil once a write succeeds.
	persistErr error
}

// NewPersistentJar creates a jar and replays the cookies held in store.
func NewPersistentJar(ctx context.Context, store CookieStore, logger *log.Logger) (*PersistentJar, error) {
	if logger == nil {
		logger = log.Default()
	}
	j := &PersistentJar{store: store, logger: logger}
	if err := j.Reload(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// Reload discards the in-memory cookies and replays storage. While a local
// write is unpersisted storage is behind memory, so the jar is kept.
func (j *PersistentJar) Reload(ctx context.Context) error {
	if err := j.PersistErr(); err != nil {
		j.logger.Warn("kept unsaved cookies over storage", "err", err)
		return nil
	}
	fresh, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	stored, err := j.store.LoadCookies(ctx)
	if err != nil {
		return err
	}
	for _, hc := range stored {
		scheme := "http"
		if hc.Cookie.Secure {
			scheme = "https"
		}
		fresh.SetCookies(&url.URL{Scheme: scheme, Host: hc.Host, Path: "/"}, []*http.Cookie{hc.Cookie})
	}

	j.mu.Lock()
	j.jar = fresh
	j.mu.Unlock()
	return nil
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	jar := j.jar
	j.mu.RUnlock()
	jar.SetCookies(u, cookies)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := j.store.SaveCookies(ctx, u.Hostname(), cookies)
	if err != nil {
		j.logger.Warn("failed to persist cookies", "host", u.Hostname(), "err", err)
	}
	j.mu.Lock()
	j.persistErr = err
	j.mu.Unlock()
}

// PersistErr returns the error of the last cookie write, if it failed.
func (j *PersistentJar) PersistErr() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.persistErr
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset drops every cookie from memory and storage.
func (j *PersistentJar) Reset(ctx context.Context) error {
	fresh, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = fresh
	j.persistErr = nil
	j.mu.Unlock()
	return j.store.ClearCookies(ctx)
}
