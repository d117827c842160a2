// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// HostCookie is a stored cookie together with the host that set it.
type HostCookie struct {
	Host   string
	Cookie *http.Cookie
}

// SaveCookies upserts cookies for host. A cookie with MaxAge < 0 or an
// expiry in the past is deleted instead.
func (s *Store) SaveCookies(ctx context.Context, host string, cookies []*http.Cookie) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?`,
				host, c.Name, path); err != nil {
				return fmt.Errorf("%w: delete cookie: %v", ErrDatabaseError, err)
			}
			continue
		}

		var expires sql.NullInt64
		switch {
		case c.MaxAge > 0:
			expires = sql.NullInt64{Int64: now.Add(time.Duration(c.MaxAge) * time.Second).Unix(), Valid: true}
		case !c.Expires.IsZero():
			expires = sql.NullInt64{Int64: c.Expires.Unix(), Valid: true}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cookies (host, name, path, value, expires, http_only, secure)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(host, name, path) DO UPDATE SET
			   value = excluded.value, expires = excluded.expires,
			   http_only = excluded.http_only, secure = excluded.secure`,
			host, c.Name, path, c.Value, expires, c.HttpOnly, c.Secure); err != nil {
			return fmt.Errorf("%w: save cookie: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadCookies returns every unexpired stored cookie. Expired rows are
// purged first.
func (s *Store) LoadCookies(ctx context.Context) ([]HostCookie, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	if _, err := db.ExecContext(ctx,
		`DELETE FROM cookies WHERE expires IS NOT NULL AND expires <= ?`, now); err != nil {
		return nil, fmt.Errorf("%w: purge cookies: %v", ErrDatabaseError, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT host, name, path, value, expires, http_only, secure FROM cookies ORDER BY host, name`)
	if err != nil {
		return nil, fmt.Errorf("%w: load cookies: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []HostCookie
	for rows.Next() {
		var (
			hc       HostCookie
			c        http.Cookie
			expires  sql.NullInt64
			httpOnly bool
			secure   bool
		)
		if err := rows.Scan(&hc.Host, &c.Name, &c.Path, &c.Value, &expires, &httpOnly, &secure); err != nil {
			return nil, fmt.Errorf("%w: scan cookie: %v", ErrDatabaseError, err)
		}
		if expires.Valid {
			c.Expires = time.Unix(expires.Int64, 0)
		}
		c.HttpOnly = httpOnly
		c.Secure = secure
		hc.Cookie = &c
		out = append(out, hc)
	}
	return out, rows.Err()
}

// ClearCookies deletes every stored cookie.
func (s *Store) ClearCookies(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM cookies`); err != nil {
		return fmt.Errorf("%w: clear cookies: %v", ErrDatabaseError, err)
	}
	return nil
}
