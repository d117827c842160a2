// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the presentational pieces shared by the
// medibot views: header, message rendering, sidebar, attachment tray,
// status bar, typing indicator and toasts. Components hold no network
// state; views own them and feed them data.
package components
