// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SENDER TESTS
// =============================================================================

func TestSenderFromRole(t *testing.T) {
	tests := []struct {
		role string
		want Sender
	}{
		{"user", SenderUser},
		{"assistant", SenderBot},
		{"system", SenderBot},
		{"", SenderBot},
		{"USER", SenderBot},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			assert.Equal(t, tc.want, SenderFromRole(tc.role))
		})
	}
}

func TestSender_DisplayName(t *testing.T) {
	assert.Equal(t, "You", SenderUser.DisplayName())
	assert.Equal(t, "Dr MAMA", SenderBot.DisplayName())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage_CopiesFiles(t *testing.T) {
	files := []Attachment{{Name: "scan.png", MimeType: "image/png", Size: 10}}
	msg := NewUserMessage("see attached", files)
	files[0].Name = "changed"

	require.Len(t, msg.Files, 1)
	assert.Equal(t, "scan.png", msg.Files[0].Name)
	assert.Equal(t, SenderUser, msg.Sender)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewBotMessage("a")
	b := NewBotMessage("a")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("Server error. Please try again later.")
	assert.True(t, msg.IsError)
	assert.Equal(t, SenderBot, msg.Sender)
}

func TestNewGreeting_Default(t *testing.T) {
	assert.Equal(t, DefaultGreeting, NewGreeting("").Content)
	assert.Equal(t, "hi", NewGreeting("hi").Content)
}

func TestMessage_Preview(t *testing.T) {
	msg := NewBotMessage("héllo world")
	assert.Equal(t, "héllo world", msg.Preview(20))
	assert.Equal(t, "hé...", msg.Preview(5))
	assert.Equal(t, "hé", msg.Preview(2))
}

func TestMessage_IsEmpty(t *testing.T) {
	assert.True(t, Message{}.IsEmpty())
	assert.False(t, Message{Files: []Attachment{{Name: "a"}}}.IsEmpty())
}

func TestAttachment_IsImage(t *testing.T) {
	assert.True(t, Attachment{MimeType: "image/jpeg"}.IsImage())
	assert.False(t, Attachment{MimeType: "application/pdf"}.IsImage())
	assert.False(t, Attachment{}.IsImage())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_Created(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantDay int
		zero    bool
	}{
		{"sqlite", "2024-03-05 10:11:12", 5, false},
		{"rfc3339", "2024-03-06T10:11:12Z", 6, false},
		{"iso without zone", "2024-03-07T10:11:12", 7, false},
		{"garbage", "yesterday", 0, true},
		{"empty", "", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Conversation{CreatedAt: tc.raw}.Created()
			if tc.zero {
				assert.True(t, got.IsZero())
				return
			}
			assert.Equal(t, tc.wantDay, got.Day())
		})
	}
}

func TestConversation_DisplayTitle(t *testing.T) {
	assert.Equal(t, DefaultConversationTitle, Conversation{Title: "  "}.DisplayTitle())
	assert.Equal(t, "Fever", Conversation{Title: "Fever"}.DisplayTitle())
}

func TestServerMessage_ToMessage(t *testing.T) {
	sm := ServerMessage{ID: 3, ConversationID: 9, Role: "assistant", Content: "Rest.", CreatedAt: "2024-01-02 03:04:05"}
	msg := sm.ToMessage()
	assert.Equal(t, SenderBot, msg.Sender)
	assert.Equal(t, "Rest.", msg.Content)
	assert.Equal(t, 2024, msg.Timestamp.Year())
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_StartsWithGreeting(t *testing.T) {
	tr := NewTranscript("")
	require.Equal(t, 1, tr.Len())
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, DefaultGreeting, last.Content)
}

func TestTranscript_AppendOrder(t *testing.T) {
	tr := NewTranscript("")
	tr.Append(NewUserMessage("one", nil))
	tr.Append(NewBotMessage("two"))

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "two", msgs[2].Content)
}

func TestTranscript_MessagesIsCopy(t *testing.T) {
	tr := NewTranscript("")
	msgs := tr.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, DefaultGreeting, tr.Messages()[0].Content)
}

func TestTranscript_Replace(t *testing.T) {
	tr := NewTranscript("")
	tr.Append(NewUserMessage("stale", nil))
	tr.Replace("", []Message{NewUserMessage("a", nil), NewBotMessage("b")})

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, DefaultGreeting, msgs[0].Content)
	assert.Equal(t, "a", msgs[1].Content)
}

func TestTranscript_LastFromSkipsErrors(t *testing.T) {
	tr := NewTranscript("")
	tr.Append(NewBotMessage("real"))
	tr.Append(NewErrorMessage("boom"))

	msg, ok := tr.LastFrom(SenderBot)
	require.True(t, ok)
	assert.Equal(t, "real", msg.Content)

	_, ok = tr.LastFrom(SenderUser)
	assert.False(t, ok)
}

func TestTranscript_PruneKeepsGreeting(t *testing.T) {
	tr := NewTranscript("")
	for i := 0; i < MaxMessages+10; i++ {
		tr.Append(NewUserMessage(fmt.Sprintf("m%d", i), nil))
	}
	msgs := tr.Messages()
	require.Len(t, msgs, MaxMessages)
	assert.Equal(t, DefaultGreeting, msgs[0].Content)
	assert.Equal(t, fmt.Sprintf("m%d", MaxMessages+9), msgs[len(msgs)-1].Content)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Hindi", LanguageName("hi"))
	assert.Equal(t, "Tamil", LanguageName(" TA "))
	assert.Equal(t, "xx", LanguageName("xx"))
	assert.Len(t, LanguageNames, 10)
}
