// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// =============================================================================
// NAVIGATION REQUESTS (handled by the parent)
// =============================================================================

// HomeRequestedMsg asks the parent to show the home view.
type HomeRequestedMsg struct{}

// SignOutRequestedMsg asks the parent to sign out.
type SignOutRequestedMsg struct{}

// SignInRequiredMsg reports that the backend rejected the session. The
// parent clears it and shows sign in.
type SignInRequiredMsg struct {
	Reason string
}

// =============================================================================
// CONVERSATION RESULTS
// =============================================================================

// OpKind names a conversation operation.
type OpKind int

const (
	OpLoad OpKind = iota
	OpCreate
	OpSelect
	OpRemove
)

// String returns the operation name used in logs.
func (k OpKind) String() string {
	switch k {
	case OpLoad:
		return "load"
	case OpCreate:
		return "create"
	case OpSelect:
		return "select"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// OpDoneMsg reports a finished list/create/select/remove.
type OpDoneMsg struct {
	Op  OpKind
	Err error
}

// SendDoneMsg carries the outcome of one delivered message.
type SendDoneMsg struct {
	Result conversation.Result
}

// =============================================================================
// VOICE, ATTACHMENTS, FILES
// =============================================================================

// VoiceToggledMsg reports the capture state after a record toggle.
type VoiceToggledMsg struct {
	State voice.State
	Err   error
}

// VoiceResultMsg carries one finished capture.
type VoiceResultMsg struct {
	Result voice.Result
}

// recordTickMsg refreshes the recording timer.
type recordTickMsg struct {
	Time time.Time
}

// AttachDoneMsg carries an opened attachment.
type AttachDoneMsg struct {
	Attachment *attach.Attachment
	Err        error
}

// ExportDoneMsg reports a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// SpeakDoneMsg reports a saved text-to-speech clip.
type SpeakDoneMsg struct {
	Path string
	Err  error
}
