// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/medibot-tui/internal/model"
)

// DefaultSessionTimeout expires idle sessions.
const DefaultSessionTimeout = 24 * time.Hour

// timeLayout matches the backend's created_at rendering.
const timeLayout = "2006-01-02 15:04:05"

var (
	// ErrEmailTaken is returned by Signup for an existing email.
	ErrEmailTaken = errors.New("Email already registered")

	// ErrUnknownUser is returned by Login for an unregistered email.
	ErrUnknownUser = errors.New("Username not valid. Please signup first")

	// ErrBadPassword is returned by Login on a hash mismatch.
	ErrBadPassword = errors.New("Password doesn't match")

	// ErrNoConversation covers both missing and foreign conversations.
	ErrNoConversation = errors.New("Conversation not found or access denied")
)

type user struct {
	id     int64
	email  string
	pwHash []byte
}

type session struct {
	userID       int64
	email        string
	lastActivity time.Time
}

type historyRow struct {
	userID    int64
	message   string
	response  string
	createdAt time.Time
}

// Store is the in-memory backing store for the development backend.
type Store struct {
	mu sync.Mutex

	users     map[string]*user
	sessions  map[string]*session
	convs     map[int64]*model.Conversation
	messages  map[int64][]model.ServerMessage
	history   []historyRow
	nextUser  int64
	nextConv  int64
	nextMsg   int64
	timeout   time.Duration
	bcryptCst int
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*user),
		sessions:  make(map[string]*session),
		convs:     make(map[int64]*model.Conversation),
		messages:  make(map[int64][]model.ServerMessage),
		timeout:   DefaultSessionTimeout,
		bcryptCst: bcrypt.DefaultCost,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers email with a bcrypt hash of password.
func (s *Store) Signup(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCst)
	if err != nil {
		return err
	}
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return ErrEmailTaken
	}
	s.nextUser++
	s.users[key] = &user{id: s.nextUser, email: strings.TrimSpace(email), pwHash: hash}
	return nil
}

// Login verifies credentials and opens a session. Earlier sessions of the
// same user are invalidated.
func (s *Store) Login(email, password string) (sessionID string, userID int64, err error) {
	s.mu.Lock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.Unlock()
	if !ok {
		return "", 0, ErrUnknownUser
	}
	if bcrypt.CompareHashAndPassword(u.pwHash, []byte(password)) != nil {
		return "", 0, ErrBadPassword
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", 0, err
	}
	sessionID = base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.userID == u.id {
			delete(s.sessions, id)
		}
	}
	s.sessions[sessionID] = &session{userID: u.id, email: u.email, lastActivity: s.now()}
	return sessionID, u.id, nil
}

// Lookup resolves a live session, refreshing its activity time.
func (s *Store) Lookup(sessionID string) (userID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, false
	}
	now := s.now()
	if now.Sub(sess.lastActivity) > s.timeout {
		delete(s.sessions, sessionID)
		return 0, false
	}
	sess.lastActivity = now
	return sess.userID, true
}

// Logout drops a session. Unknown ids are ignored.
func (s *Store) Logout(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// CreateConversation adds a conversation for userID.
func (s *Store) CreateConversation(userID int64, title string) model.Conversation {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultConversationTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextConv++
	c := &model.Conversation{
		ID:        s.nextConv,
		UserID:    userID,
		Title:     title,
		CreatedAt: s.now().Format(timeLayout),
	}
	s.convs[c.ID] = c
	return *c
}

// Conversations lists userID's conversations, newest first.
func (s *Store) Conversations(userID int64) []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0)
	for _, c := range s.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ownedLocked returns the conversation when userID owns it.
func (s *Store) ownedLocked(userID, convID int64) (*model.Conversation, error) {
	c, ok := s.convs[convID]
	if !ok || c.UserID != userID {
		return nil, ErrNoConversation
	}
	return c, nil
}

// Messages returns a conversation's transcript in order.
func (s *Store) Messages(userID, convID int64) ([]model.ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedLocked(userID, convID); err != nil {
		return nil, err
	}
	return append([]model.ServerMessage{}, s.messages[convID]...), nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(userID, convID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedLocked(userID, convID); err != nil {
		return err
	}
	delete(s.convs, convID)
	delete(s.messages, convID)
	return nil
}

// RecordExchange appends a question and answer to the user's history and,
// when convID is set, to that conversation. A conversation still titled
// "New Chat" takes its title from the first question.
func (s *Store) RecordExchange(userID, convID int64, message, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if convID != 0 {
		c, err := s.ownedLocked(userID, convID)
		if err != nil {
			return err
		}
		if c.Title == model.DefaultConversationTitle && len(s.messages[convID]) == 0 {
			c.Title = titleFrom(message)
		}
		for _, m := range []struct{ role, content string }{{"user", message}, {"assistant", response}} {
			s.nextMsg++
			s.messages[convID] = append(s.messages[convID], model.ServerMessage{
				ID:             s.nextMsg,
				ConversationID: convID,
				Role:           m.role,
				Content:        m.content,
				CreatedAt:      now.Format(timeLayout),
			})
		}
	}
	s.history = append(s.history, historyRow{userID: userID, message: message, response: response, createdAt: now})
	return nil
}

// History returns up to n of userID's most recent exchanges, oldest first.
func (s *Store) History(userID int64, n int) []historyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []historyRow
	for i := len(s.history) - 1; i >= 0 && len(rows) < n; i-- {
		if s.history[i].userID == userID {
			rows = append(rows, s.history[i])
		}
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

func titleFrom(message string) string {
	fields := strings.Fields(message)
	if len(fields) > 6 {
		fields = append(fields[:6], "...")
	}
	if len(fields) == 0 {
		return model.DefaultConversationTitle
	}
	return strings.Join(fields, " ")
}
