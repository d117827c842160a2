// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return New(Options{BaseURL: srv.URL, Jar: jar, RequestsPerSecond: 1000}), srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin_SetsCookiesAndReturnsUser(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		var body Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body.Email)
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "tok", Path: "/"})
		writeJSON(w, 200, map[string]any{"message": "ok", "user_id": 7, "email": "a@b.c"})
	}))

	user, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UserID)

	cookies := c.Jar().Cookies(c.BaseCookieURL())
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestLogin_DetailSurfaced(t *testing.T) {
	tests := []struct {
		status int
		detail string
		unauth bool
	}{
		{404, "Username not valid. Please signup first", false},
		{401, "Password doesn't match", true},
	}
	for _, tc := range tests {
		t.Run(tc.detail, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"detail": tc.detail})
			}))
			_, err := c.Login(context.Background(), "a@b.c", "pw")
			require.Error(t, err)
			assert.Equal(t, tc.detail, err.Error())
			assert.Equal(t, tc.status, StatusOf(err))
			assert.Equal(t, tc.unauth, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestError_NoDetail(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	_, err := c.ListConversations(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "HTTP error! status: 502", err.Error())
}

func TestError_ValidationDetailList(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, map[string]any{"detail": []map[string]string{{"msg": "value is not a valid email address"}}})
	}))
	_, err := c.Signup(context.Background(), "bad", "pw")
	assert.EqualError(t, err, "value is not a valid email address")
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversations_RoundTrip(t *testing.T) {
	var deleted atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/conversations/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"conversations": []map[string]any{
			{"id": 2, "title": "Fever", "created_at": "2024-01-02 00:00:00"},
			{"id": 1, "title": "New Chat", "created_at": "2024-01-01 00:00:00"},
		}})
	})
	mux.HandleFunc("/api/conversations/create", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "New Chat", body["title"])
		writeJSON(w, 200, map[string]any{"id": 3, "user_id": 7, "title": body["title"], "created_at": "2024-01-03 00:00:00"})
	})
	mux.HandleFunc("/api/conversations/2/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"messages": []map[string]any{
			{"id": 1, "conversation_id": 2, "role": "user", "content": "hot"},
			{"id": 2, "conversation_id": 2, "role": "assistant", "content": "drink water"},
		}})
	})
	mux.HandleFunc("/api/conversations/2", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted.Store(2)
		writeJSON(w, 200, map[string]string{"message": "Conversation deleted successfully"})
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	convs, err := c.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "Fever", convs[0].Title)

	conv, err := c.CreateConversation(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), conv.ID)

	msgs, err := c.ConversationMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[1].Role)

	require.NoError(t, c.DeleteConversation(ctx, 2))
	assert.Equal(t, int64(2), deleted.Load())
}

func TestMalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	}))
	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

// =============================================================================
// QUERY
// =============================================================================

func TestQuery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])
		assert.EqualValues(t, 4, body["conversation_id"])
		writeJSON(w, 200, map[string]string{"response": "X", "detected_language": "en"})
	}))
	resp, err := c.Query(context.Background(), "hello", 4)
	require.NoError(t, err)
	assert.Equal(t, "X", resp.Text())
	assert.Equal(t, "en", resp.DetectedLanguage)
}

func TestQueryResponse_TextFallback(t *testing.T) {
	assert.Equal(t, "m", (&QueryResponse{Message: "m"}).Text())
	assert.Equal(t, FallbackReply, (&QueryResponse{Response: "  "}).Text())
	var nilResp *QueryResponse
	assert.Equal(t, FallbackReply, nilResp.Text())
}

func TestQuery_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]string{"detail": "User not authenticated. Please login."})
	}))
	_, err := c.Query(context.Background(), "hi", 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.Query(context.Background(), "hi", 1)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCanceledContext(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Query(ctx, "hi", 1)
	assert.True(t, IsCanceled(err))
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("a", 64))
	}))
	defer srv.Close()
	c := New(Options{BaseURL: srv.URL, MaxResponseBytes: 16})
	_, err := c.TextToSpeech(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

// =============================================================================
// SPEECH
// =============================================================================

func TestTranscribe_Multipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/speech/record/", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "OPUS", string(data))
		assert.Equal(t, DefaultAudioFilename, hdr.Filename)
		assert.Equal(t, DefaultAudioContentType, hdr.Header.Get("Content-Type"))
		writeJSON(w, 200, map[string]string{"transcription": "hello"})
	}))
	text, err := c.Transcribe(context.Background(), []byte("OPUS"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestIsNoSpeech(t *testing.T) {
	assert.True(t, IsNoSpeech(""))
	assert.True(t, IsNoSpeech(" No speech detected "))
	assert.False(t, IsNoSpeech("hello"))
}

func TestSupportedLanguages_Sorted(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"supported_languages": []string{"mr", "en", "xx"},
			"language_names":      map[string]string{"en": "English", "mr": "Marathi"},
		})
	}))
	langs, err := c.SupportedLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Language{{"en", "English"}, {"mr", "Marathi"}, {"xx", "xx"}}, langs)
}
