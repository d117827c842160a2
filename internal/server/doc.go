// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local development backend for medibot.
//
// It serves the same HTTP surface the client talks to, backed by an
// in-memory store, so the TUI and CLI can be exercised without the real
// retrieval service.
//
// # Endpoints
//
//   - POST   /api/signup                          - Register an account
//   - POST   /api/login                           - Sign in, sets session_id and user cookies
//   - POST   /api/logout                          - Invalidate the session
//   - GET    /api/conversations/list              - List conversations, newest first
//   - POST   /api/conversations/create            - Create a conversation
//   - GET    /api/conversations/:id/messages      - Stored transcript
//   - DELETE /api/conversations/:id               - Delete a conversation
//   - POST   /rag/query_rag/                      - Answer a question
//   - POST   /history/get_history/                - Recent question/answer pairs
//   - POST   /api/speech/record/                  - Transcribe an audio clip
//   - POST   /tts/text-to-speech/                 - Synthesize speech
//   - GET    /tts/supported-languages/            - Speech languages
//   - GET    /health                              - Health check
//
// # Usage
//
//	srv := server.New(server.Config{Addr: ":8002"}, logger)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
