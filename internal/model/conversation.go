// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// DefaultConversationTitle is used when a conversation is created without one.
const DefaultConversationTitle = "New Chat"

// timestampLayouts are the created_at formats the backend emits.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// =============================================================================
// CONVERSATION SUMMARY
// =============================================================================

// Conversation is the server-owned conversation summary. The client only
// holds a read-through copy that is replaced on every list reload.
type Conversation struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id,omitempty"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Created parses CreatedAt. The zero time is returned for unknown formats.
func (c Conversation) Created() time.Time {
	raw := strings.TrimSpace(c.CreatedAt)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DisplayTitle returns the title, falling back to the default.
func (c Conversation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return DefaultConversationTitle
	}
	return c.Title
}

// =============================================================================
// SERVER MESSAGE
// =============================================================================

// ServerMessage is a transcript entry as stored by the backend.
type ServerMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// ToMessage converts the server entry to a transcript message, mapping the
// role field to a sender tag.
func (s ServerMessage) ToMessage() Message {
	msg := NewMessage(SenderFromRole(s.Role), s.Content)
	c := Conversation{CreatedAt: s.CreatedAt}
	if t := c.Created(); !t.IsZero() {
		msg.Timestamp = t
	}
	return msg
}
