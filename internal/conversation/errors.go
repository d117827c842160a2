// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"

	"github.com/jeranaias/medibot-tui/internal/api"
)

// Error messages appended to the transcript when a send fails.
const (
	ConnectionErrorText = "Connection error. Please check if the server is running."
	ServerErrorText     = "Server error. Please try again later."
	SessionExpiredText  = "Your session has expired. Please sign in again."
	GenericErrorText    = "Error: Unable to fetch response. Please try again."
)

var (
	// ErrNoConversation is returned when an operation needs a conversation
	// that is not in the local list.
	ErrNoConversation = errors.New("no such conversation")

	// ErrStale is returned when a result arrived after CancelAll.
	ErrStale = errors.New("result discarded after cancellation")

	// ErrDeclined is returned when the delete confirmation said no.
	ErrDeclined = errors.New("deletion not confirmed")

	// ErrEmptyMessage is returned for a send with no text and no files.
	ErrEmptyMessage = errors.New("message is empty")
)

// ErrorText maps a delivery error to the transcript text shown in its
// place, and whether the user must sign in again.
func ErrorText(err error) (text string, signIn bool) {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return SessionExpiredText, true
	case errors.Is(err, api.ErrNetwork):
		return ConnectionErrorText, false
	case api.StatusOf(err) >= 500:
		return ServerErrorText, false
	default:
		return GenericErrorText, false
	}
}
