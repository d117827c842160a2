// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/medibot-tui/internal/model"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

type listConversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
}

type messagesResponse struct {
	Messages []model.ServerMessage `json:"messages"`
}

// ListConversations returns the user's conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	r, err := jsonRequest(http.MethodGet, c.baseURL, "/api/conversations/list", nil)
	if err != nil {
		return nil, err
	}
	var resp listConversationsResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// CreateConversation creates a conversation. An empty title becomes
// model.DefaultConversationTitle.
func (c *Client) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultConversationTitle
	}
	r, err := jsonRequest(http.MethodPost, c.baseURL, "/api/conversations/create", createConversationRequest{Title: title})
	if err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := c.doJSON(ctx, r, &conv); err != nil {
		return nil, err
	}
	if conv.ID == 0 {
		return nil, fmt.Errorf("%w: created conversation has no id", ErrMalformedResponse)
	}
	return &conv, nil
}

// ConversationMessages returns the stored transcript of a conversation.
func (c *Client) ConversationMessages(ctx context.Context, id int64) ([]model.ServerMessage, error) {
	r, err := jsonRequest(http.MethodGet, c.baseURL, fmt.Sprintf("/api/conversations/%d/messages", id), nil)
	if err != nil {
		return nil, err
	}
	var resp messagesResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	r, err := jsonRequest(http.MethodDelete, c.baseURL, fmt.Sprintf("/api/conversations/%d", id), nil)
	if err != nil {
		return err
	}
	var resp messageResponse
	return c.doJSON(ctx, r, &resp)
}
