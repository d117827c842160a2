// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the medibot terminal interface: one bubbletea program
// routing between the home, sign-in, sign-up and chat views.
//
// Navigation to chat passes the session guard: without the readable
// session cookie the sign-in view is shown instead. The cookie is only a
// local signal; the first request the backend rejects with 401 clears the
// session and routes back to sign-in. Leaving the chat view cancels its
// in-flight requests and any recording.
package ui
