// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/util"
)

// ErrEmpty is returned for a document with nothing to export.
var ErrEmpty = errors.New("conversation has no messages")

// Document is an exportable conversation.
type Document struct {
	Conversation     model.Conversation `json:"conversation"`
	Messages         []model.Message    `json:"messages"`
	DetectedLanguage string             `json:"detected_language,omitempty"`
	Email            string             `json:"email,omitempty"`
	ExportedAt       time.Time          `json:"exported_at"`
}

// Title returns the conversation title.
func (d Document) Title() string {
	return d.Conversation.DisplayTitle()
}

// validate checks the document has content.
func (d Document) validate() error {
	for _, m := range d.Messages {
		if !m.IsEmpty() {
			return nil
		}
	}
	return ErrEmpty
}

// Exporter converts a Document to a file format.
type Exporter interface {
	// Export renders the document.
	Export(doc Document) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the rendered output.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds the front matter and session section.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"markdown", "json", "html"}
}

// ExportToFile renders doc and writes it under opts.OutputDir. It returns the
// written path.
func ExportToFile(doc Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if doc.ExportedAt.IsZero() {
		doc.ExportedAt = time.Now()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := Filename(doc, exporter.FileExtension())
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("exported but could not open file: %w", err)
		}
	}
	return outputPath, nil
}

// Filename builds medibot_<title>_<timestamp><ext>.
func Filename(doc Document, ext string) string {
	at := doc.ExportedAt
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("medibot_%s_%s%s", sanitizeFilename(doc.Title()), at.Format("20060102_150405"), ext)
}

// sanitizeFilename makes s safe as a file name on Windows and Unix. Path
// and shell metacharacters become '-', whitespace becomes '_'.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 0x20 && !unicode.IsSpace(r), r == 0x7f:
			return '-'
		case unicode.IsSpace(r):
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "conversation"
	}
	return s
}

// openCommand returns the command that opens path with the desktop's
// default application.
func openCommand(goos, path string) ([]string, error) {
	switch goos {
	case "windows":
		// The empty quoted argument is the window title start expects.
		return []string{"cmd", "/c", "start", `""`, path}, nil
	case "darwin":
		return []string{"open", path}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", path}, nil
	}
	return nil, fmt.Errorf("no opener for %s", goos)
}

// openFile starts the opener and reaps it in the background.
func openFile(path string) error {
	args, err := openCommand(runtime.GOOS, path)
	if err != nil {
		return err
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// speakerLabel names the sender of m.
func speakerLabel(m model.Message) string {
	if m.IsError {
		return "Error"
	}
	return m.Sender.DisplayName()
}
