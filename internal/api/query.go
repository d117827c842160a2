// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"
)

// FallbackReply is shown when a successful query carries no text.
const FallbackReply = "I received your message but couldn't generate a proper response."

type queryRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

// QueryResponse is the RAG endpoint reply.
type QueryResponse struct {
	Response         string `json:"response"`
	Message          string `json:"message,omitempty"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}

// Text returns the reply text, falling back to message and then to
// FallbackReply.
func (q *QueryResponse) Text() string {
	if q == nil {
		return FallbackReply
	}
	if s := strings.TrimSpace(q.Response); s != "" {
		return q.Response
	}
	if s := strings.TrimSpace(q.Message); s != "" {
		return q.Message
	}
	return FallbackReply
}

// Query submits a chat message to a conversation.
func (c *Client) Query(ctx context.Context, message string, conversationID int64) (*QueryResponse, error) {
	r, err := jsonRequest(http.MethodPost, c.baseURL, "/rag/query_rag/", queryRequest{
		Message:        message,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, err
	}
	var resp QueryResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryEntry is one message/response pair from the history endpoint.
type HistoryEntry struct {
	Message   string `json:"message"`
	Response  string `json:"response"`
	CreatedAt string `json:"created_at"`
}

type historyRequest struct {
	NumMessages int `json:"num_messages"`
}

type historyResponse struct {
	History []HistoryEntry `json:"history"`
}

// History returns the user's last n exchanges across all conversations,
// oldest first.
func (c *Client) History(ctx context.Context, n int) ([]HistoryEntry, error) {
	r, err := jsonRequest(http.MethodPost, c.baseURL, "/history/get_history/", historyRequest{NumMessages: n})
	if err != nil {
		return nil, err
	}
	var resp historyResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}
