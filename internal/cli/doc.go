// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the medibot command tree.
//
// Running medibot without a command starts the terminal UI. The other
// commands work against the same local session, so signing in with
// "medibot login" signs in the UI too:
//
//	medibot login --email pat@example.com
//	medibot ask "Is it safe to exercise in the third trimester?"
//	medibot conversations list
//	medibot chat
//
// Commands that print data accept --json for machine-readable output.
// Failures map to the exit codes in errors.go.
package cli
