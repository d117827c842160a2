// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/jeranaias/medibot-tui/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) validate() string {
	if _, err := mail.ParseAddress(strings.TrimSpace(c.Email)); err != nil {
		return "value is not a valid email address"
	}
	if c.Password == "" {
		return "password is required"
	}
	return ""
}

// ============================================================================
// AUTH HANDLERS
// ============================================================================

func (s *Server) handleSignup(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return detail(c, http.StatusUnprocessableEntity, msg)
	}
	if err := s.store.Signup(req.Email, req.Password); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return detail(c, http.StatusBadRequest, err.Error())
		}
		s.logger.Error("signup failed", "err", err)
		return detail(c, http.StatusInternalServerError, "Failed to sign up")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Sign up successful",
		"email":   strings.TrimSpace(req.Email),
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return detail(c, http.StatusUnprocessableEntity, msg)
	}
	sessionID, uid, err := s.store.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrUnknownUser):
		return detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBadPassword):
		return detail(c, http.StatusUnauthorized, err.Error())
	case err != nil:
		s.logger.Error("login failed", "err", err)
		return detail(c, http.StatusInternalServerError, "Failed to sign in")
	}

	email := strings.TrimSpace(req.Email)
	info, _ := json.Marshal(map[string]any{"user_id": uid, "email": email})
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     UserCookie,
		Value:    url.QueryEscape(string(info)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user_id": uid,
		"email":   email,
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	if sc, err := c.Cookie(SessionCookie); err == nil {
		s.store.Logout(sc.Value)
	}
	for _, name := range []string{SessionCookie, UserCookie} {
		c.SetCookie(&http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

func (s *Server) handleListConversations(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"conversations": s.store.Conversations(userID(c)),
	})
}

func (s *Server) handleCreateConversation(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return detail(c, http.StatusUnprocessableEntity, "invalid request body")
		}
	}
	return c.JSON(http.StatusOK, s.store.CreateConversation(userID(c), req.Title))
}

func conversationID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleConversationMessages(c echo.Context) error {
	id, ok := conversationID(c)
	if !ok {
		return detail(c, http.StatusUnprocessableEntity, "invalid conversation id")
	}
	msgs, err := s.store.Messages(userID(c), id)
	if err != nil {
		return detail(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleDeleteConversation(c echo.Context) error {
	id, ok := conversationID(c)
	if !ok {
		return detail(c, http.StatusUnprocessableEntity, "invalid conversation id")
	}
	if err := s.store.DeleteConversation(userID(c), id); err != nil {
		return detail(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

// ============================================================================
// QUERY HANDLERS
// ============================================================================

func (s *Server) handleQuery(c echo.Context) error {
	var req struct {
		Message        string `json:"message"`
		ConversationID int64  `json:"conversation_id"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return detail(c, http.StatusUnprocessableEntity, "message is required")
	}
	if utf8.RuneCountInString(req.Message) > MaxQueryLength {
		return detail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("message exceeds %d characters", MaxQueryLength))
	}
	s.queries.Add(1)

	reply, lang := s.cfg.Reply(req.Message)
	if err := s.store.RecordExchange(userID(c), req.ConversationID, req.Message, reply); err != nil {
		return detail(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"response":          reply,
		"detected_language": lang,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	var req struct {
		NumMessages int `json:"num_messages"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid request body")
	}
	if req.NumMessages <= 0 {
		return detail(c, http.StatusBadRequest, "num_messages must be a positive integer")
	}
	rows := s.store.History(userID(c), req.NumMessages)
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]string{
			"message":    r.message,
			"response":   r.response,
			"created_at": r.createdAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"history": out})
}

// ============================================================================
// SPEECH HANDLERS
// ============================================================================

// noSpeech is the transcription returned for silence.
const noSpeech = "No speech detected"

func (s *Server) handleTranscribe(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, http.StatusUnprocessableEntity, "file is required")
	}
	if fh.Size > MaxAudioSize {
		return detail(c, http.StatusRequestEntityTooLarge, "audio file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return detail(c, http.StatusInternalServerError, "Failed to read audio")
	}
	defer f.Close()
	n, err := io.Copy(io.Discard, f)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "Failed to read audio")
	}
	s.transcripts.Add(1)

	text := s.cfg.Transcription
	if n == 0 || strings.TrimSpace(text) == "" {
		text = noSpeech
	}
	return c.JSON(http.StatusOK, map[string]string{"transcription": text})
}

func (s *Server) handleSupportedLanguages(c echo.Context) error {
	codes := make([]string, 0, len(model.LanguageNames))
	for code := range model.LanguageNames {
		codes = append(codes, code)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"supported_languages": codes,
		"language_names":      model.LanguageNames,
	})
}

func (s *Server) handleTextToSpeech(c echo.Context) error {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return detail(c, http.StatusUnprocessableEntity, "text is required")
	}
	lang := req.Language
	if _, ok := model.LanguageNames[lang]; !ok {
		lang = "en"
	}
	sum := sha256.Sum256([]byte(req.Text + lang))
	name := fmt.Sprintf("tts_%x.mp3", sum[:8])
	c.Response().Header().Set("Content-Disposition", "inline; filename="+name)
	return c.Blob(http.StatusOK, "audio/mpeg", synthesize(req.Text))
}

// synthesize returns a placeholder MP3 stream: an ID3 tag followed by
// silent MPEG frames, one per word.
func synthesize(text string) []byte {
	tag := []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x64
	out := append([]byte{}, tag...)
	words := len(strings.Fields(text))
	for i := 0; i < words; i++ {
		out = append(out, frame...)
	}
	return out
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(c echo.Context) error {
	st := s.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(st.StartTime).Seconds()),
		"requests":       st.TotalRequests,
	})
}

// ============================================================================
// REPLIES
// ============================================================================

// scriptLanguages maps a Unicode script to the language reported for it.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	lang  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Malayalam, "ml"},
	{unicode.Gujarati, "gu"},
	{unicode.Bengali, "bn"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Kannada, "kn"},
}

// DetectLanguage returns the language of the dominant non-Latin script in
// text, or "en".
func DetectLanguage(text string) string {
	counts := make(map[string]int)
	for _, r := range text {
		for _, sl := range scriptLanguages {
			if unicode.Is(sl.table, r) {
				counts[sl.lang]++
				break
			}
		}
	}
	best, bestN := "en", 0
	for _, sl := range scriptLanguages {
		if n := counts[sl.lang]; n > bestN {
			best, bestN = sl.lang, n
		}
	}
	return best
}

// CannedReply answers with general maternal-care guidance.
func CannedReply(message string) (string, string) {
	lang := DetectLanguage(message)
	q := strings.TrimSpace(message)
	reply := "**About your question:** " + q + "\n\n" +
		"- Keep your regular antenatal appointments.\n" +
		"- Eat iron-rich food and stay hydrated.\n" +
		"- Contact your doctor right away if you notice bleeding, severe headache or reduced movement.\n\n" +
		"_This is general guidance, not a diagnosis._"
	return reply, lang
}
