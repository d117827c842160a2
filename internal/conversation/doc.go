// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation mirrors the server-side conversation list and the
// current transcript for the chat view.
//
// The Manager never reconciles incrementally: after a mutation it reloads
// from the server. Sends are optimistic; the user message stays in the
// transcript even when delivery fails, followed by a locally generated
// error message.
//
// # Cancellation
//
// Every network operation runs under a context registered with the Manager.
// CancelAll aborts them all and bumps a generation counter; a result that
// completes under an older generation is dropped with ErrStale and never
// touches state.
//
// # Usage
//
//	m := conversation.NewManager(client, sess, conversation.Options{})
//	err := m.List(ctx)
//	staged, err := m.Stage("I have a cough", nil)
//	res := m.Deliver(ctx, staged)
package conversation
