// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files.
//
// # Formats
//
//   - Markdown (.md): front matter, headings per speaker, attachment lists
//   - JSON (.json): the complete Document for re-import or tooling
//   - HTML (.html): a standalone page with light or dark styling
//
// # Usage
//
//	doc := export.Document{Conversation: conv, Messages: snap.Messages}
//	path, err := export.ExportToFile(doc, export.NewMarkdownExporter(nil), nil)
//
// Files are written atomically with 0600 permissions since transcripts can
// contain health details.
package export
