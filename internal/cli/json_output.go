// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope for --json output.
type JSONResponse struct {
	Success bool `json:"success"`

	// Data holds the command-specific payload.
	Data any `json:"data"`

	Error     *string `json:"error"`
	ExitCode  int     `json:"exit_code,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(msg string, code int) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		ExitCode:  code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Print writes the indented response to w.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// WhoAmIData is the whoami payload.
type WhoAmIData struct {
	SignedIn bool   `json:"signed_in"`
	Email    string `json:"email,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	BaseURL  string `json:"base_url"`
}

// AskData is the ask payload.
type AskData struct {
	ConversationID   int64  `json:"conversation_id"`
	Response         string `json:"response"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}

// PathData reports a written file.
type PathData struct {
	Path string `json:"path"`
}

// TextData carries a transcription.
type TextData struct {
	Text string `json:"text"`
}
