// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/medibot-tui/internal/attach"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/export"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/util"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// loadCmd reloads the list. When the current conversation survives, its
// transcript is reloaded from the server so local-only entries are dropped.
func loadCmd(ctx context.Context, conv *conversation.Manager) tea.Cmd {
	return func() tea.Msg {
		before := conv.CurrentID()
		err := conv.List(ctx)
		if err == nil && before != 0 && conv.CurrentID() == before {
			err = conv.Select(ctx, before)
		}
		return OpDoneMsg{Op: OpLoad, Err: err}
	}
}

func createCmd(ctx context.Context, conv *conversation.Manager) tea.Cmd {
	return func() tea.Msg {
		_, err := conv.Create(ctx, "")
		return OpDoneMsg{Op: OpCreate, Err: err}
	}
}

func selectCmd(ctx context.Context, conv *conversation.Manager, id int64) tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: OpSelect, Err: conv.Select(ctx, id)}
	}
}

func removeCmd(ctx context.Context, conv *conversation.Manager, id int64) tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: OpRemove, Err: conv.Remove(ctx, id)}
	}
}

func deliverCmd(ctx context.Context, conv *conversation.Manager, staged conversation.Staged) tea.Cmd {
	return func() tea.Msg {
		return SendDoneMsg{Result: conv.Deliver(ctx, staged)}
	}
}

func toggleRecordCmd(ctx context.Context, capture *voice.Capture) tea.Cmd {
	return func() tea.Msg {
		err := capture.Toggle(ctx)
		return VoiceToggledMsg{State: capture.State(), Err: err}
	}
}

// WaitVoice waits for the next capture result. The view re-issues it after
// every result, so exactly one waiter exists per capture.
func WaitVoice(capture *voice.Capture) tea.Cmd {
	if capture == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-capture.Results()
		if !ok {
			return nil
		}
		return VoiceResultMsg{Result: r}
	}
}

func recordTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return recordTickMsg{Time: t}
	})
}

func attachCmd(path string) tea.Cmd {
	return func() tea.Msg {
		a, err := attach.Open(path)
		return AttachDoneMsg{Attachment: a, Err: err}
	}
}

func exportCmd(doc export.Document, format, dir, theme string) tea.Cmd {
	return func() tea.Msg {
		opts := export.DefaultOptions()
		if dir != "" {
			opts.OutputDir = dir
		}
		opts.Theme = theme
		exp, err := export.ForFormat(format, opts)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.ExportToFile(doc, exp, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func speakCmd(ctx context.Context, speaker Speaker, text, lang, dir string) tea.Cmd {
	return func() tea.Msg {
		audio, err := speaker.TextToSpeech(ctx, text, lang)
		if err != nil {
			return SpeakDoneMsg{Err: err}
		}
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, fmt.Sprintf("medibot_tts_%s.mp3", time.Now().Format("20060102_150405")))
		if err := util.AtomicWriteFile(path, audio, 0o600); err != nil {
			return SpeakDoneMsg{Err: err}
		}
		return SpeakDoneMsg{Path: path}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand is a parsed "/name args..." input.
type slashCommand struct {
	Name string
	Args []string
}

// parseSlash parses input starting with "/". Input that only starts with a
// slash followed by a space or nothing is not a command.
func parseSlash(input string) (slashCommand, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) < 2 || input[1] == ' ' {
		return slashCommand{}, false
	}
	fields := strings.Fields(input[1:])
	return slashCommand{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// commandHelp lists the slash commands for /help.
const commandHelp = "/new  /export [md|json|html] [dir]  /speak  /logout  /home  /help"

// lastReply returns the newest non-error bot message after the greeting.
func lastReply(msgs []model.Message) (model.Message, bool) {
	for i := len(msgs) - 1; i > 0; i-- {
		m := msgs[i]
		if m.Sender == model.SenderBot && !m.IsError {
			return m, true
		}
	}
	return model.Message{}, false
}
