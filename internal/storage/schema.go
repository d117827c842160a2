// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations.
	SchemaVersion = 1
)

// Schema is applied on every open.
const Schema = `
-- Local storage equivalent: string keys to string values
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL -- Unix timestamp
) WITHOUT ROWID;

-- Cookies issued by the backend, replayed into the jar on start
CREATE TABLE IF NOT EXISTS cookies (
    host TEXT NOT NULL,
    name TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '/',
    value TEXT NOT NULL,
    expires INTEGER,            -- Unix timestamp, NULL for session cookies
    http_only INTEGER NOT NULL DEFAULT 0,
    secure INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (host, name, path)
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_cookies_host ON cookies(host);
`
