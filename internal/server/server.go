// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the backend's default port.
	DefaultAddr = "127.0.0.1:8002"

	// SessionCookie is the readable session cookie.
	SessionCookie = "session_id"

	// UserCookie carries {"user_id","email"} and is httpOnly.
	UserCookie = "user"

	// MaxRequestBodySize bounds JSON bodies.
	MaxRequestBodySize = "1M"

	// MaxAudioSize bounds speech uploads.
	MaxAudioSize = 25 << 20

	speechPath = "/api/speech/record/"

	// MaxQueryLength is the maximum question length in runes.
	MaxQueryLength = 10000
)

// ============================================================================
// CONFIG
// ============================================================================

// Replier produces an answer and the detected language for a question.
type Replier func(message string) (reply, language string)

// Config configures the development backend.
type Config struct {
	// Addr is the listen address. Empty uses DefaultAddr.
	Addr string

	// Transcription is returned for every non-empty audio upload. Empty
	// makes uploads report that no speech was detected.
	Transcription string

	// Reply answers questions. Nil uses CannedReply.
	Reply Replier

	// RateLimit is requests per minute per client. Zero disables it.
	RateLimit int

	// SessionTimeout overrides DefaultSessionTimeout.
	SessionTimeout time.Duration

	// BcryptCost overrides bcrypt.DefaultCost. Tests lower it.
	BcryptCost int
}

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts handled requests.
type Stats struct {
	TotalRequests int64     `json:"total_requests"`
	Queries       int64     `json:"queries"`
	Transcripts   int64     `json:"transcripts"`
	StartTime     time.Time `json:"start_time"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the development backend.
type Server struct {
	cfg    Config
	echo   *echo.Echo
	store  *Store
	logger *log.Logger

	requests    atomic.Int64
	queries     atomic.Int64
	transcripts atomic.Int64
	started     time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server with routes and middleware installed.
func New(cfg Config, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Reply == nil {
		cfg.Reply = CannedReply
	}
	if logger == nil {
		logger = log.Default()
	}

	store := NewStore()
	if cfg.SessionTimeout > 0 {
		store.timeout = cfg.SessionTimeout
	}
	if cfg.BcryptCost > 0 {
		store.bcryptCst = cfg.BcryptCost
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = detailErrorHandler

	s := &Server{
		cfg:     cfg,
		echo:    e,
		store:   store,
		logger:  logger.WithPrefix("devserver"),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Store exposes the backing store.
func (s *Server) Store() *Store { return s.store }

// Handler returns the HTTP handler, for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Stats returns request counters.
func (s *Server) Stats() Stats {
	return Stats{
		TotalRequests: s.requests.Load(),
		Queries:       s.queries.Load(),
		Transcripts:   s.transcripts.Load(),
		StartTime:     s.started,
	}
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	e := s.echo
	e.Use(middleware.Recover())
	e.Use(s.countRequests)
	e.Use(RequestLogger(s.logger))
	e.Use(SecurityHeaders())
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit:   MaxRequestBodySize,
		Skipper: func(c echo.Context) bool { return c.Path() == speechPath },
	}))
	if s.cfg.RateLimit > 0 {
		e.Use(RateLimit(NewRateLimiter(s.cfg.RateLimit, time.Minute)))
	}

	e.GET("/health", s.handleHealth)

	e.POST("/api/signup", s.handleSignup)
	e.POST("/api/login", s.handleLogin)
	e.POST("/api/logout", s.handleLogout)

	authed := e.Group("", RequireUser(s.store))
	authed.GET("/api/conversations/list", s.handleListConversations)
	authed.POST("/api/conversations/create", s.handleCreateConversation)
	authed.GET("/api/conversations/:id/messages", s.handleConversationMessages)
	authed.DELETE("/api/conversations/:id", s.handleDeleteConversation)
	authed.POST("/rag/query_rag/", s.handleQuery)
	authed.POST("/history/get_history/", s.handleHistory)
	authed.POST(speechPath, s.handleTranscribe, middleware.BodyLimit("26M"))

	e.POST("/tts/text-to-speech/", s.handleTextToSpeech)
	e.GET("/tts/supported-languages/", s.handleSupportedLanguages)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Listen binds the configured address. Start serves on it.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

// Start serves until Shutdown. It binds first when Listen was not called.
func (s *Server) Start() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}
	s.echo.Listener = ln
	s.logger.Info("listening", "addr", ln.Addr().String())
	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// detail writes a FastAPI-style {"detail": msg} error body.
func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

// detailErrorHandler renders echo errors in the backend's error shape.
func detailErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}
	_ = detail(c, status, msg)
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.requests.Add(1)
		return next(c)
	}
}
