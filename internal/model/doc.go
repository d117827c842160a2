// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: one entry of the chat transcript (user or bot)
//   - Transcript: append-only ordered message sequence held by the chat view
//   - Conversation: server-owned conversation summary (id, title, created_at)
//   - ServerMessage: transcript entry as returned by the backend
//   - Attachment: metadata of a file attached to a user message
//
// # Usage
//
//	t := model.NewTranscript(model.DefaultGreeting)
//	t.Append(model.NewUserMessage("I have a headache", nil))
//	t.Append(model.NewBotMessage("How long has it lasted?"))
package model
