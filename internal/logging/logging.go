// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process logger.
//
// The TUI owns the terminal, so records go to a rotating file under the data
// directory unless --debug sends them to stderr. Secrets are redacted before
// anything reaches the sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultMaxSize is the size at which the log file rotates.
const DefaultMaxSize = 5 * 1024 * 1024

// Options controls Setup.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// File is the log path. Ignored when Stderr is set.
	File string

	// Stderr writes to standard error instead of File.
	Stderr bool

	// MaxSize overrides DefaultMaxSize. Zero disables rotation.
	MaxSize int64
}

// =============================================================================
// REDACTION
// =============================================================================

var secretPatterns = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)("?password"?\s*[=:]\s*)("[^"]*"|\S+)`), `${1}[REDACTED]`},
	{regexp.MustCompile(`(?i)(session_id=)[^;\s"]+`), `${1}[REDACTED]`},
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`), "Bearer [REDACTED]"},
}

// Redact masks passwords and session cookies.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.pattern.ReplaceAllString(s, p.replace)
	}
	return s
}

// =============================================================================
// ROTATING FILE
// =============================================================================

// RotatingFile is an append-only 0600 file that rotates at maxSize.
type RotatingFile struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	size    int64
	maxSize int64
}

// OpenFile opens or creates path for appending.
func OpenFile(path string, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &RotatingFile{path: path, file: f, size: size, maxSize: maxSize}, nil
}

// Path returns the active file path.
func (r *RotatingFile) Path() string { return r.path }

// Write redacts p and appends it, rotating first when full.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.maxSize > 0 && r.size+int64(len(p)) > r.maxSize && r.size > 0 {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write([]byte(Redact(string(p))))
	r.size += int64(n)
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// rotateLocked renames the current file with a timestamp suffix.
func (r *RotatingFile) rotateLocked() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close log for rotation: %w", err)
	}
	ext := filepath.Ext(r.path)
	rotated := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(r.path, ext), time.Now().Format("20060102_150405.000"), ext)
	if err := os.Rename(r.path, rotated); err != nil {
		r.file, _ = os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		return fmt.Errorf("failed to rotate log: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		r.file = nil
		return fmt.Errorf("failed to create new log after rotation: %w", err)
	}
	r.file = f
	r.size = 0
	return nil
}

// Close closes the file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// =============================================================================
// SETUP
// =============================================================================

// ParseLevel maps a config level to a log.Level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// New builds a logger over w.
func New(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "medibot",
	})
}

// Setup builds the process logger, installs it as the log package default
// and returns a closer for the sink.
func Setup(opts Options) (*log.Logger, io.Closer, error) {
	if opts.Stderr || opts.File == "" {
		logger := New(os.Stderr, opts.Level)
		log.SetDefault(logger)
		return logger, io.NopCloser(nil), nil
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	f, err := OpenFile(opts.File, maxSize)
	if err != nil {
		return nil, nil, err
	}
	logger := New(f, opts.Level)
	logger.SetFormatter(log.LogfmtFormatter)
	log.SetDefault(logger)
	return logger, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
