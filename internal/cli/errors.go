// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid arguments.
	ExitUsageError = 2
	// ExitConfigError indicates an unreadable or invalid config.
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected session.
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached.
	ExitNetworkError = 5
	// ExitNotFoundError indicates a missing conversation or key.
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out.
	ExitTimeoutError = 8
)

// ErrNotSignedIn is returned by commands that need a session when the
// session cookie is absent.
var ErrNotSignedIn = errors.New(`not signed in; run "medibot login" first`)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError is a bad argument.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError wraps configuration and startup failures.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// =============================================================================
// DISPLAY
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	var (
		verr *ValidationError
		nerr *NotFoundError
		cerr *ConfigError
		terr *TTYRequiredError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cerr):
		return ExitConfigError
	case errors.Is(err, ErrNotSignedIn), errors.Is(err, api.ErrUnauthorized), errors.Is(err, voice.ErrPermissionDenied):
		return ExitAuthError
	case errors.Is(err, api.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &nerr), errors.Is(err, conversation.ErrNoConversation), api.StatusOf(err) == 404:
		return ExitNotFoundError
	case errors.As(err, &verr), errors.As(err, &terr), errors.Is(err, auth.ErrMissingField), errors.Is(err, conversation.ErrEmptyMessage):
		return ExitUsageError
	default:
		return ExitGeneralError
	}
}

// message is the user-facing text for err: the server detail when the
// backend sent one.
func message(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		if d := api.DetailOf(err); d != "" {
			return d
		}
		return `session expired; run "medibot login" again`
	case errors.Is(err, api.ErrNetwork):
		return conversation.ConnectionErrorText
	case errors.Is(err, voice.ErrPermissionDenied), errors.Is(err, voice.ErrNoSpeech):
		return voice.AlertText(err)
	}
	if d := api.DetailOf(err); d != "" {
		return d
	}
	return err.Error()
}

// DisplayError prints err as a JSON error response on stdout in JSON mode,
// otherwise as text on stderr.
func DisplayError(stdout, stderr io.Writer, err error, jsonMode bool) {
	if jsonMode {
		_ = NewJSONErrorResponse(message(err), ExitCode(err)).Print(stdout)
		return
	}
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("Error:"), message(err))
}
