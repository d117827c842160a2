// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by any 401 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork wraps transport failures (connection refused, DNS, timeouts).
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse wraps bodies that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrResponseTooLarge is returned when a body exceeds the size limit.
	ErrResponseTooLarge = errors.New("response too large")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Detail string
	Path   string
}

// Error implements the error interface. The server detail is returned
// verbatim so forms can show it inline.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// Is reports whether target is ErrUnauthorized and this is a 401.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// IsServerError reports whether the status is 5xx.
func (e *Error) IsServerError() bool {
	return e.Status >= 500
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf returns the server detail carried by err, or err.Error().
func DetailOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
