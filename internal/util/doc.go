// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across medibot.
//
// # Key Functions
//
// Text:
//   - TruncateWidth: display-width aware truncation (CJK, emoji)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - NormalizeText: NFC normalization and whitespace trimming of user text
//   - SingleLine: collapse newlines for list rendering
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 24)
//	text := util.NormalizeText(input)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
