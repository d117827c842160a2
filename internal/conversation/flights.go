// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"sync"
)

// =============================================================================
// IN-FLIGHT REQUEST TRACKING
// =============================================================================

// flight identifies one registered operation.
type flight struct {
	id  uint64
	gen uint64
}

// flights holds the cancel funcs of every in-flight operation.
type flights struct {
	mu      sync.Mutex
	gen     uint64
	next    uint64
	cancels map[uint64]context.CancelFunc
}

func newFlights() *flights {
	return &flights{cancels: make(map[uint64]context.CancelFunc)}
}

// begin derives a cancellable context from parent and registers it.
func (f *flights) begin(parent context.Context) (context.Context, flight) {
	ctx, cancel := context.WithCancel(parent)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	fl := flight{id: f.next, gen: f.gen}
	f.cancels[fl.id] = cancel
	return ctx, fl
}

// end releases the context of fl.
func (f *flights) end(fl flight) {
	f.mu.Lock()
	cancel := f.cancels[fl.id]
	delete(f.cancels, fl.id)
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// live reports whether fl belongs to the current generation.
func (f *flights) live(fl flight) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fl.gen == f.gen
}

// cancelAll aborts every registered operation and starts a new generation.
func (f *flights) cancelAll() int {
	f.mu.Lock()
	cancels := f.cancels
	f.cancels = make(map[uint64]context.CancelFunc)
	f.gen++
	f.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// count returns the number of in-flight operations.
func (f *flights) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancels)
}
