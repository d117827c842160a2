// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// clearTimeout bounds the session clear that follows a 401.
const clearTimeout = 5 * time.Second

// Backend is the subset of the API client the manager needs.
type Backend interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	ConversationMessages(ctx context.Context, id int64) ([]model.ServerMessage, error)
	DeleteConversation(ctx context.Context, id int64) error
	Query(ctx context.Context, message string, conversationID int64) (*api.QueryResponse, error)
}

// Session is cleared when the backend answers 401.
type Session interface {
	Clear(ctx context.Context) error
}

// Options configures a Manager.
type Options struct {
	// Greeting heads every transcript. Empty means model.DefaultGreeting.
	Greeting string

	// Confirm is consulted before a delete. Nil means always confirm.
	Confirm func(model.Conversation) bool

	Logger *log.Logger
}

// =============================================================================
// SNAPSHOT AND RESULT TYPES
// =============================================================================

// Snapshot is a consistent copy of the manager state for rendering.
type Snapshot struct {
	Conversations    []model.Conversation
	CurrentID        int64
	Messages         []model.Message
	DetectedLanguage string

	// Pending is the number of sends awaiting a reply.
	Pending int
}

// Current returns the current conversation summary.
func (s Snapshot) Current() (model.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == s.CurrentID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// Staged is a user message already in the transcript awaiting delivery.
type Staged struct {
	Message        model.Message
	ConversationID int64
}

// Result is the outcome of delivering a staged message.
type Result struct {
	// Reply is the appended bot or error message.
	Reply model.Message

	DetectedLanguage string

	// SignInRequired is set after a 401; the session has been cleared.
	SignInRequired bool

	// Err is the delivery error, or ErrStale when the result was dropped.
	Err error
}

// Stale reports whether the result was discarded after cancellation.
func (r Result) Stale() bool {
	return errors.Is(r.Err, ErrStale)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the conversation state of the chat view. Safe for concurrent
// use; state is mutated only after a network call returns.
type Manager struct {
	mu               sync.Mutex
	backend          Backend
	session          Session
	logger           *log.Logger
	greeting         string
	confirm          func(model.Conversation) bool
	conversations    []model.Conversation
	currentID        int64
	transcript       *model.Transcript
	detectedLanguage string
	pending          int

	flights *flights
}

// NewManager creates a manager with an empty list and a greeting transcript.
func NewManager(backend Backend, sess Session, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Manager{
		backend:    backend,
		session:    sess,
		logger:     opts.Logger.WithPrefix("conversation"),
		greeting:   opts.Greeting,
		confirm:    opts.Confirm,
		transcript: model.NewTranscript(opts.Greeting),
		flights:    newFlights(),
	}
}

// SetConfirm replaces the delete confirmation hook.
func (m *Manager) SetConfirm(fn func(model.Conversation) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirm = fn
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	convs := make([]model.Conversation, len(m.conversations))
	copy(convs, m.conversations)
	return Snapshot{
		Conversations:    convs,
		CurrentID:        m.currentID,
		Messages:         m.transcript.Messages(),
		DetectedLanguage: m.detectedLanguage,
		Pending:          m.pending,
	}
}

// CurrentID returns the current conversation id, 0 when none.
func (m *Manager) CurrentID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// InFlight returns the number of registered network operations.
func (m *Manager) InFlight() int {
	return m.flights.count()
}

// CancelAll aborts every in-flight operation. Their results are dropped.
func (m *Manager) CancelAll() {
	n := m.flights.cancelAll()
	m.mu.Lock()
	m.pending = 0
	m.mu.Unlock()
	if n > 0 {
		m.logger.Debug("cancelled in-flight requests", "count", n)
	}
}

// Reset cancels everything and forgets all state, as on sign-out.
func (m *Manager) Reset() {
	m.CancelAll()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = nil
	m.currentID = 0
	m.detectedLanguage = ""
	m.transcript.Reset(m.greeting)
}

// unauthorized clears the session after a 401. Other errors pass through.
func (m *Manager) unauthorized(err error) error {
	if err == nil || !errors.Is(err, api.ErrUnauthorized) || m.session == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	if clearErr := m.session.Clear(ctx); clearErr != nil {
		m.logger.Warn("failed to clear session after 401", "err", clearErr)
	}
	return err
}

// finish converts a completed call into the error the caller sees: ErrStale
// for superseded flights, the (401-handled) call error otherwise.
func (m *Manager) finish(fl flight, err error) error {
	if !m.flights.live(fl) {
		return ErrStale
	}
	if err != nil {
		if api.IsCanceled(err) {
			return err
		}
		m.logger.Warn("request failed", "status", api.StatusOf(err), "err", err)
		return m.unauthorized(err)
	}
	return nil
}

// =============================================================================
// LIST / CREATE / SELECT / REMOVE
// =============================================================================

// List reloads the conversation list. An empty list triggers Create; a
// current conversation that vanished is replaced by the newest one.
func (m *Manager) List(ctx context.Context) error {
	fctx, fl := m.flights.begin(ctx)
	convs, err := m.backend.ListConversations(fctx)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		return err
	}

	m.mu.Lock()
	m.conversations = convs
	current := m.currentID
	m.mu.Unlock()

	if len(convs) == 0 {
		_, err := m.Create(ctx, "")
		return err
	}
	for _, c := range convs {
		if c.ID == current {
			return nil
		}
	}
	return m.Select(ctx, convs[0].ID)
}

// refresh reloads the list without the empty/select follow-ups.
func (m *Manager) refresh(ctx context.Context) {
	fctx, fl := m.flights.begin(ctx)
	convs, err := m.backend.ListConversations(fctx)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		if !errors.Is(err, ErrStale) {
			m.logger.Warn("list refresh failed", "err", err)
		}
		return
	}
	m.mu.Lock()
	m.conversations = convs
	m.mu.Unlock()
}

// Create creates a conversation, prepends it, makes it current and resets
// the transcript to the greeting.
func (m *Manager) Create(ctx context.Context, title string) (model.Conversation, error) {
	fctx, fl := m.flights.begin(ctx)
	conv, err := m.backend.CreateConversation(fctx, title)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		return model.Conversation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = append([]model.Conversation{*conv}, m.conversations...)
	m.currentID = conv.ID
	m.detectedLanguage = ""
	m.transcript.Reset(m.greeting)
	return *conv, nil
}

// Select loads a conversation transcript: the greeting followed by the
// server messages mapped by role.
func (m *Manager) Select(ctx context.Context, id int64) error {
	fctx, fl := m.flights.begin(ctx)
	serverMsgs, err := m.backend.ConversationMessages(fctx, id)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		return err
	}

	msgs := make([]model.Message, 0, len(serverMsgs))
	for _, sm := range serverMsgs {
		msgs = append(msgs, sm.ToMessage())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentID = id
	m.detectedLanguage = ""
	m.transcript.Replace(m.greeting, msgs)
	return nil
}

// Remove deletes a conversation after confirmation. Removing the current
// conversation creates a new one.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	var target *model.Conversation
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			c := m.conversations[i]
			target = &c
			break
		}
	}
	confirm := m.confirm
	m.mu.Unlock()

	if target == nil {
		return ErrNoConversation
	}
	if confirm != nil && !confirm(*target) {
		return ErrDeclined
	}

	fctx, fl := m.flights.begin(ctx)
	err := m.backend.DeleteConversation(fctx, id)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		return err
	}

	m.mu.Lock()
	kept := m.conversations[:0:0]
	for _, c := range m.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	m.conversations = kept
	wasCurrent := m.currentID == id
	if wasCurrent {
		m.currentID = 0
	}
	m.mu.Unlock()

	if wasCurrent {
		_, err := m.Create(ctx, "")
		return err
	}
	return nil
}

// =============================================================================
// SEND
// =============================================================================

// Stage appends the optimistic user message and returns it for delivery.
func (m *Manager) Stage(text string, files []model.Attachment) (Staged, error) {
	text = util.NormalizeText(text)
	if text == "" && len(files) == 0 {
		return Staged{}, ErrEmptyMessage
	}
	msg := model.NewUserMessage(text, files)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript.Append(msg)
	m.pending++
	return Staged{Message: msg, ConversationID: m.currentID}, nil
}

// Deliver posts a staged message. On success the bot reply is appended and
// the list refreshed; on failure an error message is appended instead. The
// user message is never removed.
func (m *Manager) Deliver(ctx context.Context, s Staged) Result {
	convID := s.ConversationID
	if convID == 0 {
		conv, err := m.Create(ctx, "")
		if err != nil {
			return m.failed(err)
		}
		// Create reset the transcript; put the staged message back.
		m.mu.Lock()
		m.transcript.Append(s.Message)
		m.mu.Unlock()
		convID = conv.ID
	}

	qctx, fl := m.flights.begin(ctx)
	resp, err := m.backend.Query(qctx, s.Message.Content, convID)
	m.flights.end(fl)
	if err := m.finish(fl, err); err != nil {
		return m.failed(err)
	}

	reply := model.NewBotMessage(resp.Text())
	m.mu.Lock()
	m.transcript.Append(reply)
	m.detectedLanguage = resp.DetectedLanguage
	m.decPending()
	m.mu.Unlock()

	// Picks up server-computed titles.
	m.refresh(ctx)

	return Result{Reply: reply, DetectedLanguage: resp.DetectedLanguage}
}

// failed appends the error message for err unless the result is stale.
func (m *Manager) failed(err error) Result {
	if errors.Is(err, ErrStale) {
		return Result{Err: ErrStale}
	}
	if api.IsCanceled(err) {
		m.mu.Lock()
		m.decPending()
		m.mu.Unlock()
		return Result{Err: ErrStale}
	}
	text, signIn := ErrorText(err)
	reply := model.NewErrorMessage(text)

	m.mu.Lock()
	m.transcript.Append(reply)
	m.decPending()
	m.mu.Unlock()

	return Result{Reply: reply, SignInRequired: signIn, Err: err}
}

func (m *Manager) decPending() {
	if m.pending > 0 {
		m.pending--
	}
}

// Send stages and delivers text in one call.
func (m *Manager) Send(ctx context.Context, text string, files []model.Attachment) Result {
	staged, err := m.Stage(text, files)
	if err != nil {
		return Result{Err: err}
	}
	return m.Deliver(ctx, staged)
}
