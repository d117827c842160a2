// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/medibot-tui/internal/model"
)

// Info is the metadata recorded on the sent message.
type Info = model.Attachment

const (
	// MaxFileSize is the largest file accepted as an attachment.
	MaxFileSize = 25 * 1024 * 1024

	// ThumbnailSize bounds the longest side of an image preview.
	ThumbnailSize = 256
)

var (
	// ErrTooLarge is returned for files above MaxFileSize.
	ErrTooLarge = errors.New("attachment exceeds maximum size")

	// ErrNotRegular is returned for directories and special files.
	ErrNotRegular = errors.New("attachment is not a regular file")

	// ErrReleased is returned when using an attachment after Release.
	ErrReleased = errors.New("attachment already released")
)

// =============================================================================
// ATTACHMENT
// =============================================================================

// Attachment is a file pending send.
type Attachment struct {
	Info

	// Path is the source file on disk.
	Path string

	// Preview is the thumbnail path for images, empty otherwise. It is
	// cleared by Release.
	Preview string

	mu       sync.Mutex
	released bool
}

// Open inspects path and builds an attachment. Images are decoded once to
// record dimensions and write the preview thumbnail.
func Open(path string) (*Attachment, error) {
	path = expandHome(path)
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	if !st.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	if st.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, st.Size())
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect mime type: %w", err)
	}

	a := &Attachment{
		Info: Info{
			Name:     filepath.Base(path),
			MimeType: mt.String(),
			Size:     st.Size(),
		},
		Path: path,
	}

	if a.IsImage() {
		if err := a.makePreview(); err != nil {
			// Undecodable images are still attachable, just without a preview.
			a.Preview = ""
		}
	}
	return a, nil
}

func (a *Attachment) makePreview() error {
	img, err := imaging.Open(a.Path, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	b := img.Bounds()
	a.Width, a.Height = b.Dx(), b.Dy()

	dir, err := os.MkdirTemp("", "medibot-preview-")
	if err != nil {
		return err
	}
	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)
	out := filepath.Join(dir, "preview.png")
	if err := imaging.Save(thumb, out); err != nil {
		os.RemoveAll(dir)
		return err
	}
	a.Preview = out
	return nil
}

// Released reports whether Release has been called.
func (a *Attachment) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Release deletes the preview and invalidates it. Safe to call more than once.
func (a *Attachment) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	if a.Preview == "" {
		return nil
	}
	dir := filepath.Dir(a.Preview)
	a.Preview = ""
	return os.RemoveAll(dir)
}

// Label returns a short display label such as "scan.png (image/png, 12 KB)".
func (a *Attachment) Label() string {
	return fmt.Sprintf("%s (%s, %s)", a.Name, a.MimeType, HumanSize(a.Size))
}

// HumanSize formats a byte count in binary units.
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
