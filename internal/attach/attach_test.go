// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, A: 255})
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestOpen_ImageGetsPreview(t *testing.T) {
	path := writePNG(t, t.TempDir(), 800, 400)

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", a.Name)
	assert.Equal(t, "image/png", a.MimeType)
	assert.Equal(t, 800, a.Width)
	assert.Equal(t, 400, a.Height)
	require.NotEmpty(t, a.Preview)

	thumb, err := imaging.Open(a.Preview)
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), ThumbnailSize)
	assert.Equal(t, image.Rect(0, 0, ThumbnailSize, ThumbnailSize/2), thumb.Bounds())

	preview := a.Preview
	require.NoError(t, a.Release())
	assert.Empty(t, a.Preview)
	assert.True(t, a.Released())
	_, err = os.Stat(preview)
	assert.True(t, os.IsNotExist(err))

	// Second release is a no-op.
	assert.NoError(t, a.Release())
}

func TestOpen_TextHasNoPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("blood pressure 120/80\n"), 0o600))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Contains(t, a.MimeType, "text/plain")
	assert.Empty(t, a.Preview)
	assert.False(t, a.IsImage())
}

func TestOpen_Directory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTray_DrainReleasesAll(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(writePNG(t, dir, 10, 10))
	require.NoError(t, err)

	var tray Tray
	require.NoError(t, tray.Add(a))
	assert.Equal(t, 1, tray.Len())

	infos := tray.Drain()
	require.Len(t, infos, 1)
	assert.Equal(t, "scan.png", infos[0].Name)
	assert.True(t, a.Released())
	assert.Equal(t, 0, tray.Len())
	assert.Nil(t, tray.Drain())
}

func TestTray_RemoveAndBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	var tray Tray
	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, tray.Add(a))

	assert.Error(t, tray.Remove(3))
	require.NoError(t, tray.Remove(0))
	assert.True(t, a.Released())
	assert.ErrorIs(t, tray.Add(a), ErrReleased)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "12 B", HumanSize(12))
	assert.Equal(t, "2.0 KiB", HumanSize(2048))
	assert.Equal(t, "1.5 MiB", HumanSize(1536*1024))
}
