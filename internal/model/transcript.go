// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// MaxMessages bounds the transcript held in memory. When exceeded the
// oldest non-greeting messages are dropped.
const MaxMessages = 1000

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered, append-only message sequence of the chat view.
// It is not safe for concurrent use; owners serialize access.
type Transcript struct {
	messages []Message
}

// NewTranscript creates a transcript holding only the greeting.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{}
	t.Reset(greeting)
	return t
}

// Append adds a message at the end.
func (t *Transcript) Append(msg Message) {
	t.messages = append(t.messages, msg)
	t.prune()
}

// Reset replaces the transcript with a single greeting message.
func (t *Transcript) Reset(greeting string) {
	t.messages = []Message{NewGreeting(greeting)}
}

// Replace resets the transcript to the greeting followed by msgs.
func (t *Transcript) Replace(greeting string, msgs []Message) {
	t.messages = make([]Message, 0, len(msgs)+1)
	t.messages = append(t.messages, NewGreeting(greeting))
	t.messages = append(t.messages, msgs...)
	t.prune()
}

// Messages returns a copy of the messages in order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastFrom returns the most recent message from the given sender.
func (t *Transcript) LastFrom(sender Sender) (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Sender == sender && !t.messages[i].IsError {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// prune keeps the greeting and the newest MaxMessages-1 messages.
func (t *Transcript) prune() {
	if len(t.messages) <= MaxMessages {
		return
	}
	excess := len(t.messages) - MaxMessages
	kept := make([]Message, 0, MaxMessages)
	kept = append(kept, t.messages[0])
	kept = append(kept, t.messages[1+excess:]...)
	t.messages = kept
}
