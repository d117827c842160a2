// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// lineReader reads answers from stdin. It is shared so buffered input is
// not lost between prompts.
type lineReader struct {
	in  io.Reader
	buf *bufio.Reader
}

func (e *env) reader() *lineReader {
	return &lineReader{in: e.in, buf: bufio.NewReader(e.in)}
}

// line prints prompt to w and reads one trimmed line.
func (r *lineReader) line(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	s, err := r.buf.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// password reads a secret without echo on a terminal, or a plain line
// from redirected input.
func (r *lineReader) password(w io.Writer, prompt string) (string, error) {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	s, err := r.buf.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// confirm asks a yes/no question. yes skips the prompt; JSON mode and
// redirected input require it.
func (e *env) confirm(question string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if e.jsonOut || !isTerminal(e.in) {
		return false, &ValidationError{Field: "confirmation", Reason: "pass --yes to confirm non-interactively"}
	}
	answer, err := e.reader().line(e.errOut, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// output prints data as JSON in JSON mode, otherwise runs text.
func (e *env) output(data any, text func(w io.Writer)) error {
	if e.jsonOut {
		return NewJSONResponse(data).Print(e.out)
	}
	text(e.out)
	return nil
}

// parseID parses a positive conversation ID.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "conversation id", Value: s, Reason: "must be a positive integer", Example: "medibot conversations show 12"}
	}
	return id, nil
}

// formatTime renders a server timestamp, or "-" when unknown.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatDuration formats an uptime for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
