// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements the sign-in, sign-up and sign-out flows.
//
// Required-field presence is the only client-side validation. Server
// rejections are returned as *api.Error whose message is the backend detail,
// ready to show inline under the form.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/session"
)

// MissingFieldError reports an empty required form field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Is lets errors.Is(err, ErrMissingField) match any field.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// ErrMissingField matches every MissingFieldError.
var ErrMissingField = errors.New("required field missing")

// Backend is the subset of the API client used by auth.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.User, error)
	Signup(ctx context.Context, email, password string) (*api.SignupResponse, error)
	Logout(ctx context.Context) error
}

// Service runs the authentication flows against the backend and records the
// result in the session.
type Service struct {
	backend Backend
	session *session.Manager
	logger  *log.Logger
}

// NewService creates an auth service.
func NewService(backend Backend, sess *session.Manager, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{backend: backend, session: sess, logger: logger.WithPrefix("auth")}
}

// validate trims the email and checks both fields are present.
func validate(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", &MissingFieldError{Field: "email"}
	}
	if password == "" {
		return "", &MissingFieldError{Field: "password"}
	}
	return email, nil
}

// SignIn authenticates and establishes the session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*api.User, error) {
	email, err := validate(email, password)
	if err != nil {
		return nil, err
	}
	user, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign in failed", "status", api.StatusOf(err), "err", err)
		return nil, err
	}
	if err := s.session.Establish(ctx, session.User{UserID: user.UserID, Email: user.Email}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return user, nil
}

// SignUp registers the account and then signs in with the same credentials,
// so the caller can proceed straight to chat.
func (s *Service) SignUp(ctx context.Context, email, password string) (*api.User, error) {
	email, err := validate(email, password)
	if err != nil {
		return nil, err
	}
	if _, err := s.backend.Signup(ctx, email, password); err != nil {
		s.logger.Warn("sign up failed", "status", api.StatusOf(err), "err", err)
		return nil, err
	}
	return s.SignIn(ctx, email, password)
}

// SignOut invalidates the server session and always clears local state.
// Backend failures are logged, not returned.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", "err", err)
	}
	return s.session.Clear(ctx)
}
