// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"sync"
)

// MaxTrayItems bounds the number of pending attachments.
const MaxTrayItems = 10

// Tray holds attachments for the message being composed.
type Tray struct {
	mu    sync.Mutex
	items []*Attachment
}

// Add appends an attachment.
func (t *Tray) Add(a *Attachment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a.Released() {
		return ErrReleased
	}
	if len(t.items) >= MaxTrayItems {
		return fmt.Errorf("at most %d attachments per message", MaxTrayItems)
	}
	t.items = append(t.items, a)
	return nil
}

// Remove releases and drops the attachment at index i.
func (t *Tray) Remove(i int) error {
	t.mu.Lock()
	if i < 0 || i >= len(t.items) {
		t.mu.Unlock()
		return fmt.Errorf("no attachment at index %d", i)
	}
	a := t.items[i]
	t.items = append(t.items[:i], t.items[i+1:]...)
	t.mu.Unlock()
	return a.Release()
}

// Drain returns the metadata of every attachment and releases them all.
// The tray is empty afterwards.
func (t *Tray) Drain() []Info {
	t.mu.Lock()
	items := t.items
	t.items = nil
	t.mu.Unlock()

	if len(items) == 0 {
		return nil
	}
	infos := make([]Info, 0, len(items))
	for _, a := range items {
		infos = append(infos, a.Info)
		_ = a.Release()
	}
	return infos
}

// Clear releases everything without returning metadata.
func (t *Tray) Clear() {
	t.Drain()
}

// Len returns the number of pending attachments.
func (t *Tray) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Items returns a snapshot of the pending attachments.
func (t *Tray) Items() []*Attachment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Attachment, len(t.items))
	copy(out, t.items)
	return out
}
