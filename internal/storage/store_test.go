// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "sub", "medibot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =============================================================================
// KEY/VALUE TESTS
// =============================================================================

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_, err := st.Get(ctx, KeyEmail)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Set(ctx, KeyEmail, "a@b.c"))
	require.NoError(t, st.Set(ctx, KeyEmail, "d@e.f"))
	got, err := st.Get(ctx, KeyEmail)
	require.NoError(t, err)
	assert.Equal(t, "d@e.f", got)

	require.NoError(t, st.SetInt64(ctx, KeyUserID, 42))
	id, err := st.GetInt64(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyEmail, KeyUserID}, keys)

	require.NoError(t, st.Remove(ctx, KeyUserID, KeyEmail, "missing"))
	keys, err = st.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, "fallback", st.GetDefault(ctx, KeyEmail, "fallback"))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "medibot.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, KeyEmail, "a@b.c"))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Get(ctx, KeyEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", got)
}

func TestStore_Closed(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	_, err := st.Get(context.Background(), KeyEmail)
	assert.ErrorIs(t, err, ErrClosed)
}

// =============================================================================
// COOKIE TESTS
// =============================================================================

func TestStore_Cookies(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	err := st.SaveCookies(ctx, "localhost", []*http.Cookie{
		{Name: "session_id", Value: "abc"},
		{Name: "user", Value: "7", HttpOnly: true, MaxAge: 3600},
		{Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)},
	})
	require.NoError(t, err)

	cookies, err := st.LoadCookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "session_id", cookies[0].Cookie.Name)
	assert.Equal(t, "/", cookies[0].Cookie.Path)
	assert.True(t, cookies[0].Cookie.Expires.IsZero())
	assert.Equal(t, "user", cookies[1].Cookie.Name)
	assert.True(t, cookies[1].Cookie.HttpOnly)
	assert.True(t, cookies[1].Cookie.Expires.After(time.Now()))

	// Deletion via MaxAge < 0, as a server logout does.
	require.NoError(t, st.SaveCookies(ctx, "localhost", []*http.Cookie{{Name: "session_id", MaxAge: -1}}))
	cookies, err = st.LoadCookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 1)

	require.NoError(t, st.ClearCookies(ctx))
	cookies, err = st.LoadCookies(ctx)
	require.NoError(t, err)
	assert.Empty(t, cookies)
}
