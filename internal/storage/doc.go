// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local persistent state of medibot.
//
// It is the terminal counterpart of browser local storage and the cookie
// store: a small SQLite database holding string key/value pairs (user_id,
// email) and the cookies issued by the backend.
//
// # Usage
//
//	st, err := storage.Open(filepath.Join(dataDir, "medibot.db"))
//	err = st.Set(ctx, storage.KeyEmail, "a@b.c")
//	email, err := st.Get(ctx, storage.KeyEmail)
//
// # Storage Location
//
// The database lives in ~/.medibot/medibot.db unless the data directory is
// overridden in config.
package storage
