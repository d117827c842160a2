// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:8002", cfg.Backend.BaseURL)
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.Equal(t, 5, cfg.Voice.MaxSeconds)
	assert.Equal(t, cfg.Backend.BaseURL, cfg.Backend.ResolvedAuthURL())
}

func TestLoadFromPath_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Backend, cfg.Backend)
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.toml", `
[backend]
base_url = "http://medibot.local:8002/"
auth_url = "http://medibot.local:8000"

[voice]
max_seconds = 8
command = ["arecord", "-q", "-"]
`)
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://medibot.local:8002", cfg.Backend.BaseURL)
	assert.Equal(t, "http://medibot.local:8000", cfg.Backend.ResolvedAuthURL())
	assert.Equal(t, 30, cfg.Backend.TimeoutSecs)
	assert.Equal(t, 8, cfg.Voice.MaxSeconds)
	assert.Equal(t, []string{"arecord", "-q", "-"}, cfg.Voice.Command)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.toml", "[backend]\nbase_uri = \"http://x\"\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_uri")
}

func TestLoadFromPath_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.toml", "[backend]\nbase_url = \"ftp://x\"\n[voice]\nsample_rate = 11025\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"backend.base_url", "voice.sample_rate"}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDIBOT_BASE_URL", " http://env.local:9000 ")
	t.Setenv("MEDIBOT_TIMEOUT", "12")
	t.Setenv("MEDIBOT_LOG_LEVEL", "DEBUG")
	t.Setenv("MEDIBOT_RECORD_COMMAND", "arecord -f cd -")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())
	assert.Equal(t, "http://env.local:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 12, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"arecord", "-f", "cd", "-"}, cfg.Voice.Command)
	assert.Equal(t, "en", cfg.UI.Language)
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDIBOT_TIMEOUT", "soon")
	assert.Error(t, Default().ApplyEnvOverrides())
}

func TestApplyEnvOverrides_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "MEDIBOT_LANGUAGE=mr\n")
	t.Setenv("MEDIBOT_LANGUAGE", "")
	os.Unsetenv("MEDIBOT_LANGUAGE")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())
	assert.Equal(t, "mr", cfg.UI.Language)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Voice.Command = []string{"rec", "-"}
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, "light", loaded.UI.Theme)
	assert.Equal(t, []string{"rec", "-"}, loaded.Voice.Command)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("backend.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8002", v)

	require.NoError(t, cfg.Set("voice.max_seconds", "9"))
	assert.Equal(t, 9, cfg.Voice.MaxSeconds)

	require.NoError(t, cfg.Set("backend.requests_per_second", "2.5"))
	assert.Equal(t, 2.5, cfg.Backend.RequestsPerSecond)

	require.NoError(t, cfg.Set("ui.markdown", "no"))
	assert.False(t, cfg.UI.Markdown)

	require.NoError(t, cfg.Set("voice.command", "sox -d -t wav -"))
	assert.Equal(t, []string{"sox", "-d", "-t", "wav", "-"}, cfg.Voice.Command)

	require.NoError(t, cfg.Set("session.cookie-name", "sid"))
	assert.Equal(t, "sid", cfg.Session.CookieName)

	_, err = cfg.Get("backend.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("voice.max_seconds", "lots"))
	assert.Error(t, cfg.Set("backend.base_url.x", "y"))
}

func TestGetAllKeysResolve(t *testing.T) {
	cfg := Default()
	keys := GetAllKeys()
	require.Len(t, keys, 21)
	assert.Equal(t, "version", keys[0])
	assert.Equal(t, "backend.base_url", keys[1])
	assert.Equal(t, "log.file", keys[len(keys)-1])
	for _, key := range keys {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestSetRejectsSectionsAndBadBools(t *testing.T) {
	cfg := Default()
	_, err := cfg.Get("voice")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("ui.markdown", "maybe"))
	require.NoError(t, cfg.Set("ui.markdown", "on"))
	assert.True(t, cfg.UI.Markdown)
}

func TestLogPath(t *testing.T) {
	cfg := Default()
	cfg.Session.DataDir = "/tmp/medibot"
	assert.Equal(t, filepath.Join("/tmp/medibot", "medibot.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join("/tmp/medibot", "medibot.db"), cfg.Session.DatabasePath())
	cfg.Log.File = "/var/log/m.log"
	assert.Equal(t, "/var/log/m.log", cfg.LogPath())
}
