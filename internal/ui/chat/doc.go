// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view: conversation sidebar, transcript
// viewport, composer with attachment tray, voice recording and slash
// commands.
//
// The view never touches the network directly. Every operation runs as a
// tea.Cmd against the conversation manager and comes back as a typed
// message carrying either its value or Err. Results of operations that
// were cancelled on navigation are dropped.
//
// The view asks its parent for navigation with HomeRequestedMsg,
// SignOutRequestedMsg and SignInRequiredMsg.
package chat
