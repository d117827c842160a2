// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach manages files attached to a pending chat message.
//
// An Attachment exists only while the message is being composed. Image files
// get a thumbnail written to a private temp directory; that file is the
// preview reference and is deleted by Release. A Tray holds the pending
// attachments and releases all of them when drained on send.
package attach
