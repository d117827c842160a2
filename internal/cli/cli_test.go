// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/auth"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/logging"
	"github.com/jeranaias/medibot-tui/internal/server"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

const testEmail = "pat@example.com"

// harness runs commands against a dev backend with an isolated config and
// data directory.
type harness struct {
	t       *testing.T
	srv     *server.Server
	dir     string
	cfgPath string
	url     string
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T, extra string) *harness {
	t.Helper()
	srv := server.New(server.Config{BcryptCost: bcrypt.MinCost, Transcription: "is walking safe"}, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`[backend]
base_url = %q
requests_per_second = 100

[session]
data_dir = %q

[log]
file = %q
%s`, ts.URL, filepath.Join(dir, "data"), filepath.Join(dir, "medibot.log"), extra)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &harness{t: t, srv: srv, dir: dir, cfgPath: path, url: ts.URL}
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	argv := append([]string{"--config", h.cfgPath}, args...)
	code := Execute(context.Background(), argv, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) ok(stdin string, args ...string) string {
	h.t.Helper()
	r := h.run(stdin, args...)
	require.Equal(h.t, ExitSuccess, r.code, "medibot %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), r.stdout, r.stderr)
	return r.stdout
}

func (h *harness) signup() {
	h.t.Helper()
	out := h.ok("secret123\n", "signup", "--email", testEmail)
	require.Contains(h.t, out, "Signed in as "+testEmail)
}

func decode(t *testing.T, out string, data any) JSONResponse {
	t.Helper()
	resp := JSONResponse{Data: data}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config", &ConfigError{Err: assert.AnError}, ExitConfigError},
		{"not signed in", ErrNotSignedIn, ExitAuthError},
		{"unauthorized", fmt.Errorf("query: %w", api.ErrUnauthorized), ExitAuthError},
		{"microphone", voice.ErrPermissionDenied, ExitAuthError},
		{"network", fmt.Errorf("send: %w", api.ErrNetwork), ExitNetworkError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"not found", &NotFoundError{Resource: "conversation", ID: "3"}, ExitNotFoundError},
		{"no conversation", conversation.ErrNoConversation, ExitNotFoundError},
		{"validation", &ValidationError{Field: "n", Reason: "bad"}, ExitUsageError},
		{"missing field", auth.ErrMissingField, ExitUsageError},
		{"empty message", conversation.ErrEmptyMessage, ExitUsageError},
		{"other", assert.AnError, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := parseID(bad)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, bad)
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	DisplayError(&out, &errOut, ErrNotSignedIn, true)

	assert.Empty(t, errOut.String())
	resp := decode(t, out.String(), nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "not signed in")
	assert.Equal(t, ExitAuthError, resp.ExitCode)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	assert.Contains(t, h.ok("", "version"), "medibot "+Version)

	var data VersionData
	resp := decode(t, h.ok("", "--json", "version"), &data)
	assert.True(t, resp.Success)
	assert.Equal(t, Version, data.Version)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t, "")

	assert.Equal(t, h.cfgPath, strings.TrimSpace(h.ok("", "config", "path")))
	assert.Equal(t, h.url, strings.TrimSpace(h.ok("", "config", "get", "backend.base_url")))
	assert.Contains(t, h.ok("", "config", "keys"), "ui.theme")

	assert.Contains(t, h.ok("", "config", "set", "ui.theme", "light"), "ui.theme = light")
	assert.Equal(t, "light", strings.TrimSpace(h.ok("", "config", "get", "ui.theme")))

	r := h.run("", "config", "set", "no.such.key", "x")
	assert.Equal(t, ExitNotFoundError, r.code)

	r = h.run("", "config", "get", "no.such.key")
	assert.Equal(t, ExitNotFoundError, r.code)
}

func TestBadConfigExits(t *testing.T) {
	h := newHarness(t, "")
	t.Setenv("HOME", h.dir)
	require.NoError(t, os.WriteFile(h.cfgPath, []byte("[backend\n"), 0o600))

	r := h.run("", "whoami")
	assert.Equal(t, ExitConfigError, r.code)

	// config commands still work so the file can be repaired
	assert.Equal(t, h.cfgPath, strings.TrimSpace(h.ok("", "config", "path")))
}

func TestWhoAmI_NotSignedIn(t *testing.T) {
	h := newHarness(t, "")
	r := h.run("", "whoami")
	assert.Equal(t, ExitAuthError, r.code)
	assert.Contains(t, r.stderr, "not signed in")
}

func TestSignupLoginLogout(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	out := h.ok("", "whoami")
	assert.Contains(t, out, testEmail)
	assert.Contains(t, out, h.url)

	assert.Contains(t, h.ok("", "logout"), "Signed out")
	assert.Equal(t, ExitAuthError, h.run("", "whoami").code)

	// email prompted from stdin
	r := h.run(testEmail+"\nsecret123\n", "login")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Signed in as "+testEmail)
	assert.Contains(t, r.stderr, "Email: ")

	var who WhoAmIData
	decode(t, h.ok("", "--json", "whoami"), &who)
	assert.True(t, who.SignedIn)
	assert.Equal(t, testEmail, who.Email)
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t, "")
	h.signup()
	h.ok("", "logout")

	r := h.run("wrong\n", "login", "--email", testEmail)
	assert.Equal(t, ExitAuthError, r.code)
	assert.Equal(t, ExitAuthError, h.run("", "whoami").code)

	r = h.run("\n", "login", "--email", testEmail)
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.stderr, "password is required")
}

func TestLogin_WrongPasswordKeepsSession(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	assert.Equal(t, ExitAuthError, h.run("wrong\n", "login", "--email", testEmail).code)
	assert.Contains(t, h.ok("", "whoami"), testEmail)
}

func TestRejectedSession_ClearedLocally(t *testing.T) {
	for _, args := range [][]string{
		{"history"},
		{"ask", "Is walking safe?"},
		{"conversations", "list"},
	} {
		t.Run(args[0], func(t *testing.T) {
			h := newHarness(t, "")
			h.signup()
			// Signing in elsewhere ends this client's server session.
			_, _, err := h.srv.Store().Login(testEmail, "secret123")
			require.NoError(t, err)

			r := h.run("", args...)
			assert.Equal(t, ExitAuthError, r.code, r.stderr)

			r = h.run("", "whoami")
			assert.Equal(t, ExitAuthError, r.code)
			assert.Contains(t, r.stderr, "not signed in")
		})
	}
}

func TestConversationsLifecycle(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	assert.Contains(t, h.ok("", "conversations", "list"), "No conversations yet.")
	assert.Contains(t, h.ok("", "conversations", "create", "Knee pain"), "Created conversation 1 (Knee pain)")
	assert.Contains(t, h.ok("", "conversations", "ls"), "Knee pain")

	out := h.ok("", "ask", "--conversation", "1", "Is walking safe?")
	assert.Contains(t, out, "About your question")

	show := h.ok("", "conversations", "show", "1")
	assert.Contains(t, show, "Knee pain")
	assert.Contains(t, show, "Is walking safe?")

	var path PathData
	decode(t, h.ok("", "--json", "conversations", "export", "1", "--format", "json", "--output", h.dir), &path)
	assert.FileExists(t, path.Path)
	assert.Equal(t, h.dir, filepath.Dir(path.Path))

	r := h.run("", "conversations", "export", "1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, r.code)

	r = h.run("", "conversations", "delete", "1")
	assert.Equal(t, ExitUsageError, r.code, "redirected input needs --yes")

	assert.Contains(t, h.ok("", "conversations", "delete", "1", "--yes"), "Deleted conversation 1")
	assert.Equal(t, ExitNotFoundError, h.run("", "conversations", "show", "1").code)
	assert.Equal(t, ExitUsageError, h.run("", "conversations", "show", "abc").code)
}

func TestAsk(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, ExitAuthError, h.run("", "ask", "hello").code)

	h.signup()

	// question from stdin opens a new conversation
	var data AskData
	resp := decode(t, h.ok("Can I take ibuprofen?\n", "--json", "ask", "-"), &data)
	assert.True(t, resp.Success)
	assert.Positive(t, data.ConversationID)
	assert.Contains(t, data.Response, "Can I take ibuprofen?")

	assert.NotEqual(t, ExitSuccess, h.run("", "ask", "--new", "--conversation", "1", "hi").code)
	assert.Equal(t, ExitNotFoundError, h.run("", "ask", "--conversation", "99", "hi").code)
	assert.Equal(t, ExitUsageError, h.run("   \n", "ask").code)
}

func TestHistoryAndLanguages(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	assert.Contains(t, h.ok("", "history"), "No history yet.")
	h.ok("", "ask", "Is walking safe?")
	out := h.ok("", "history", "5")
	assert.Contains(t, out, "Is walking safe?")
	assert.Equal(t, ExitUsageError, h.run("", "history", "0").code)

	langs := h.ok("", "languages")
	assert.Contains(t, langs, "hi")
	assert.Contains(t, langs, "Hindi")
}

func TestSpeak(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	path := filepath.Join(h.dir, "out", "answer.mp3")
	assert.Contains(t, h.ok("", "speak", "--output", path, "Drink water"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Equal(t, ExitUsageError, h.run("", "speak", " ").code)
}

func TestRecord_MissingRecorder(t *testing.T) {
	h := newHarness(t, "\n[voice]\ncommand = [\"/nonexistent/medibot-recorder\"]\n")
	h.signup()

	r := h.run("", "record")
	assert.Equal(t, ExitAuthError, r.code)
	assert.Contains(t, r.stderr, voice.AlertText(voice.ErrPermissionDenied))
}

func TestRecord_Transcribes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	h := newHarness(t, "\n[voice]\ncommand = [\"sh\", \"-c\", \"printf webm; exec sleep 10\"]\nmax_seconds = 1\n")
	h.signup()

	out := h.ok("", "record")
	assert.Equal(t, "is walking safe", strings.TrimSpace(out))

	out = h.ok("", "record", "--ask")
	assert.Contains(t, out, "is walking safe")
	assert.Contains(t, out, "About your question")
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_PlainInput(t *testing.T) {
	h := newHarness(t, "")
	h.signup()

	script := strings.Join([]string{
		"How are you?",
		"/new",
		"/list",
		"/open 2",
		"/delete 1",
		"y",
		"/open 9",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n") + "\n"
	out := h.ok(script, "chat")

	assert.Contains(t, out, "Type /help for commands")
	assert.Contains(t, out, "About your question")
	assert.Contains(t, out, "Started")
	assert.Contains(t, out, " 1. ")
	assert.Contains(t, out, " 2. ")
	assert.Contains(t, out, "How are you?")
	assert.Contains(t, out, "Deleted")
	assert.Contains(t, out, "must be between 1 and")
	assert.Contains(t, out, "unknown command /bogus")
	assert.NotContains(t, out, "never sent")

	var convs []map[string]any
	decode(t, h.ok("", "--json", "conversations", "list"), &convs)
	assert.Len(t, convs, 1)
}

func TestChat_NotSignedIn(t *testing.T) {
	h := newHarness(t, "")
	r := h.run("hello\n", "chat")
	assert.Equal(t, ExitAuthError, r.code)
}

// =============================================================================
// SETUP
// =============================================================================

func TestSetup_WritesAnswers(t *testing.T) {
	h := newHarness(t, "")

	r := h.run("\nhi\nlight\n", "setup")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stderr, "Backend URL ["+h.url+"]: ")
	assert.Contains(t, r.stdout, "Wrote "+h.cfgPath)
	assert.Contains(t, r.stdout, h.url)

	assert.Equal(t, h.url, strings.TrimSpace(h.ok("", "config", "get", "backend.base_url")))
	assert.Equal(t, "hi", strings.TrimSpace(h.ok("", "config", "get", "ui.language")))
	assert.Equal(t, "light", strings.TrimSpace(h.ok("", "config", "get", "ui.theme")))

	r = h.run("\n\nsepia\n", "setup")
	assert.Equal(t, ExitUsageError, r.code)
	assert.Equal(t, "light", strings.TrimSpace(h.ok("", "config", "get", "ui.theme")))
}

func TestSetup_Check(t *testing.T) {
	h := newHarness(t, "")

	var data SetupData
	decode(t, h.ok("", "--json", "setup", "--check"), &data)
	assert.False(t, data.Written)
	require.Len(t, data.Checks, 4)
	assert.Equal(t, "Backend", data.Checks[1].Name)
	assert.Equal(t, checkPass, data.Checks[1].Status)
	assert.NotEqual(t, checkFail, data.Checks[3].Status)

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()
	r := h.run("", "--base-url", deadURL, "setup", "--check")
	assert.Equal(t, ExitGeneralError, r.code)
	assert.Contains(t, r.stdout, "medibot setup --base-url")
}

func TestCheckDisk_MissingDir(t *testing.T) {
	c := checkDisk(filepath.Join(t.TempDir(), "not", "yet", "created"))
	assert.Contains(t, []string{checkPass, checkWarn}, c.Status)
	assert.Contains(t, c.Message, "free in")
}
