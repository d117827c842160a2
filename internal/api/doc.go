// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the medibot backend.
//
// Every backend endpoint is a single request with no retries. Requests carry
// the session cookie jar, are paced by a token bucket, and have their
// response bodies size limited.
//
// # Error Handling
//
// Non-2xx responses become *Error carrying the server's detail message. A 401
// matches ErrUnauthorized via errors.Is. Transport failures wrap ErrNetwork
// and undecodable bodies wrap ErrMalformedResponse.
//
// # Usage
//
//	c := api.New(api.Options{BaseURL: "http://localhost:8002", Jar: jar})
//	user, err := c.Login(ctx, email, password)
//	resp, err := c.Query(ctx, "I have a fever", convID)
//	fmt.Println(resp.Text())
package api
