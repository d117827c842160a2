// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// userKey is the echo context key holding the authenticated user id.
const userKey = "medibot.user_id"

// ============================================================================
// Authentication
// ============================================================================

// RequireUser resolves the session cookie to a user and rejects the request
// with 401 otherwise. The user cookie is accepted as a fallback identity only
// when it agrees with the session.
func RequireUser(store *Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sc, err := c.Cookie(SessionCookie)
			if err != nil || sc.Value == "" {
				return detail(c, http.StatusUnauthorized, "User not authenticated. Please login.")
			}
			userID, ok := store.Lookup(sc.Value)
			if !ok {
				return detail(c, http.StatusUnauthorized, "User not authenticated. Please login.")
			}
			if uc, err := c.Cookie(UserCookie); err == nil {
				var info struct {
					UserID int64 `json:"user_id"`
				}
				raw, _ := url.QueryUnescape(uc.Value)
				if json.Unmarshal([]byte(raw), &info) == nil && info.UserID != 0 && info.UserID != userID {
					return detail(c, http.StatusUnauthorized, "Invalid user cookie.")
				}
			}
			c.Set(userKey, userID)
			return next(c)
		}
	}
}

// userID returns the id set by RequireUser.
func userID(c echo.Context) int64 {
	id, _ := c.Get(userKey).(int64)
	return id
}

// ============================================================================
// Rate Limiter
// ============================================================================

// RateLimiter implements a sliding window rate limiter per client IP.
type RateLimiter struct {
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow records a request from ip and reports whether it is within limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)
	valid := rl.requests[ip][:0]
	for _, ts := range rl.requests[ip] {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= rl.limit {
		rl.requests[ip] = valid
		return false
	}
	rl.requests[ip] = append(valid, now)
	return true
}

// Remaining returns the requests left in the current window for ip.
func (rl *RateLimiter) Remaining(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	windowStart := time.Now().Add(-rl.window)
	count := 0
	for _, ts := range rl.requests[ip] {
		if ts.After(windowStart) {
			count++
		}
	}
	if remaining := rl.limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// RateLimit rejects clients over the limit with 429.
func RateLimit(limiter *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.limit))
			if !limiter.Allow(ip) {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", fmt.Sprintf("%d", int(limiter.window.Seconds())))
				return detail(c, http.StatusTooManyRequests, "Too Many Requests")
			}
			h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(ip)))
			return next(c)
		}
	}
}

// ============================================================================
// Request Logging
// ============================================================================

// RequestLogger logs one line per request at debug level.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Debug("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return nil
		}
	}
}

// ============================================================================
// Security Headers
// ============================================================================

// SecurityHeaders sets the standard hardening headers.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}
