// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events one SQLite commit produces.
const watchDebounce = 250 * time.Millisecond

// Changed is emitted after the session storage changed on disk.
type Changed struct {
	Session Session
}

// Watch watches the storage directory and emits a Changed event, carrying
// the reloaded session, whenever the database files change. The channel is
// closed when ctx is done.
func (m *Manager) Watch(ctx context.Context) (<-chan Changed, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dbPath := m.store.Path()
	if err := w.Add(filepath.Dir(dbPath)); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan Changed, 1)
	base := filepath.Base(dbPath)

	go func() {
		defer close(out)
		defer w.Close()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("session watcher panic", "panic", r)
			}
		}()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(ev.Name), base) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.logger.Warn("session watcher error", "err", err)

			case <-fire:
				fire = nil
				if err := m.Reload(ctx); err != nil {
					m.logger.Warn("failed to reload session", "err", err)
					continue
				}
				select {
				case out <- Changed{Session: m.Get(ctx)}:
				default:
					// Drop when the consumer has not read the last event
				}
			}
		}
	}()
	return out, nil
}
