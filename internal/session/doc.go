// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the single source of truth for the signed-in user.
//
// The Manager combines the identifiers mirrored in local storage (user_id,
// email) with the cookie jar issued by the backend. The presence of the
// readable session cookie is only a local heuristic; the backend remains the
// authority and a 401 from any call clears the session.
//
// # Key Types
//
//   - Manager: Get, Establish, Clear, HasCookie
//   - Session: snapshot of the current identifiers
//   - PersistentJar: http.CookieJar persisted to storage
//
// # Watching
//
// Watch reports changes made by another medibot process (for example
// "medibot logout" while the TUI is open) so the UI can re-check the guard.
package session
