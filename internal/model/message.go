// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGreeting is the first bot message of every transcript.
const DefaultGreeting = "Hello!! I'm Dr MAMA, your medical assistant. How can I help you?"

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Dr MAMA"
	default:
		return string(s)
	}
}

// SenderFromRole maps a backend role field to a sender tag. Only "user"
// maps to the user; assistant, system and unknown roles are shown as bot.
func SenderFromRole(role string) Sender {
	if role == string(SenderUser) {
		return SenderUser
	}
	return SenderBot
}

// =============================================================================
// ATTACHMENT METADATA
// =============================================================================

// Attachment describes a file attached to a user message. Width and Height
// are zero for non-image files.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// IsImage reports whether the attachment has an image MIME type.
func (a Attachment) IsImage() bool {
	return len(a.MimeType) >= 6 && a.MimeType[:6] == "image/"
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry. Messages are created on send or on
// transcript reload and never mutated afterwards.
type Message struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Sender    Sender       `json:"sender"`
	Files     []Attachment `json:"files,omitempty"`
	Timestamp time.Time    `json:"timestamp"`

	// IsError marks locally generated error replies.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(sender Sender, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message carrying optional attachments.
func NewUserMessage(content string, files []Attachment) Message {
	msg := NewMessage(SenderUser, content)
	if len(files) > 0 {
		msg.Files = append([]Attachment(nil), files...)
	}
	return msg
}

// NewBotMessage creates a bot reply.
func NewBotMessage(content string) Message {
	return NewMessage(SenderBot, content)
}

// NewErrorMessage creates a locally generated bot message describing a
// failed request.
func NewErrorMessage(content string) Message {
	msg := NewMessage(SenderBot, content)
	msg.IsError = true
	return msg
}

// NewGreeting creates the greeting message shown at the top of a transcript.
func NewGreeting(text string) Message {
	if text == "" {
		text = DefaultGreeting
	}
	return NewBotMessage(text)
}

// Preview returns a truncated preview of the message content.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has neither text nor files.
func (m Message) IsEmpty() bool {
	return m.Content == "" && len(m.Files) == 0
}
