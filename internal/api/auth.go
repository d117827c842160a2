// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// Credentials is the login and signup request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the signed-in user returned by login.
type User struct {
	Message string `json:"message,omitempty"`
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
}

// SignupResponse is returned by signup.
type SignupResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// messageResponse is the generic {"message": ...} body.
type messageResponse struct {
	Message string `json:"message"`
}

// Login authenticates and lets the backend set the session cookies in the jar.
// A 404 means the user does not exist, a 401 a wrong password; both carry
// the server detail.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	r, err := jsonRequest(http.MethodPost, c.authURL, "/api/login", Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.doJSON(ctx, r, &user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		user.Email = email
	}
	return &user, nil
}

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password string) (*SignupResponse, error) {
	r, err := jsonRequest(http.MethodPost, c.authURL, "/api/signup", Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var resp SignupResponse
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the server session.
func (c *Client) Logout(ctx context.Context) error {
	r, err := jsonRequest(http.MethodPost, c.authURL, "/api/logout", nil)
	if err != nil {
		return err
	}
	var resp messageResponse
	return c.doJSON(ctx, r, &resp)
}
