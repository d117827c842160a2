// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

const (
	chatPrompt      = "medibot> "
	chatHistoryFile = "chat_history"
)

const chatHelp = `Commands:
  /new         start a new conversation
  /list        list conversations
  /open N      open conversation N from /list
  /delete N    delete conversation N from /list
  /show        print the current transcript
  /record      record a question (stops automatically)
  /help        show this help
  /quit        leave the chat
Anything else is sent as a question. Ctrl+C cancels a pending reply.`

func newChatCmd(e *env) *cobra.Command {
	var convID int64
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in a line-based session",
		Long: `Chat in a line-based session with input history. Use the full-screen
interface (medibot with no command) for attachments and the sidebar.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.signedIn(ctx); err != nil {
				return err
			}
			r := &repl{e: e, mgr: e.conversations(), capture: e.capture(), p: e.printer(), out: e.out}
			if err := openConversation(ctx, r.mgr, convID, false); err != nil {
				return err
			}
			r.banner()
			if isTerminal(e.in) {
				return r.runLiner(ctx)
			}
			return r.runPlain(ctx, e.in)
		},
	}
	cmd.Flags().Int64VarP(&convID, "conversation", "c", 0, "conversation ID to continue")
	return cmd
}

// =============================================================================
// REPL
// =============================================================================

// repl is the chat session state shared by the liner and plain loops.
type repl struct {
	e       *env
	mgr     *conversation.Manager
	capture *voice.Capture
	p       *printer
	out     io.Writer

	// ask reads a yes/no answer; set by the loop in use.
	ask func(question string) bool

	// suggest prefills the next prompt, e.g. with a transcription.
	suggest string
}

func (r *repl) banner() {
	title := "new conversation"
	if c, ok := r.mgr.Snapshot().Current(); ok {
		title = c.DisplayTitle()
	}
	fmt.Fprintln(r.out, TitleStyle.Render("Dr MAMA")+" "+DimStyle.Render("· "+title))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, /quit to leave."))
}

// runLiner reads lines with editing and history.
func (r *repl) runLiner(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(config.ExpandHome(r.e.cfg.Session.DataDir), chatHistoryFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.OpenFile(histPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			r.e.logger.Warn("save chat history failed", "err", err)
			return
		}
		defer f.Close()
		_, _ = line.WriteHistory(f)
	}()

	r.ask = func(question string) bool {
		answer, err := line.Prompt(question + " [y/N]: ")
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	for {
		var input string
		var err error
		if r.suggest != "" {
			input, err = line.PromptWithSuggestion(chatPrompt, r.suggest, -1)
			r.suggest = ""
		} else {
			input, err = line.Prompt(chatPrompt)
		}
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal.
			fmt.Fprintln(r.out)
			return nil
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		quit, err := r.handle(ctx, input)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// runPlain reads lines from redirected input.
func (r *repl) runPlain(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	r.ask = func(question string) bool {
		fmt.Fprint(r.out, question+" [y/N]: ")
		if !sc.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(sc.Text()))
		return answer == "y" || answer == "yes"
	}
	for sc.Scan() {
		quit, err := r.handle(ctx, sc.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

// handle runs one input line. Only a lost session ends the loop with an
// error; other failures are printed and the session continues.
func (r *repl) handle(ctx context.Context, input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true, nil
	}
	if !strings.HasPrefix(input, "/") {
		return false, r.send(ctx, input)
	}

	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, chatHelp)
		return false, nil
	case "/new":
		err = r.newConversation(ctx)
	case "/list", "/ls":
		err = r.list(ctx)
	case "/open":
		err = r.open(ctx, args)
	case "/delete", "/rm":
		err = r.remove(ctx, args)
	case "/show":
		r.p.transcript(r.out, r.mgr.Snapshot().Messages)
	case "/record":
		err = r.record(ctx)
	default:
		fmt.Fprintf(r.out, "%s unknown command %s (try /help)\n", RenderStatus("warn"), fields[0])
	}
	return false, r.report(err)
}

// report prints err and continues, except after a 401 where the session
// is gone and the loop must end.
func (r *repl) report(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", RenderStatus("error"), message(err))
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res := r.mgr.Send(sctx, text, nil)
	switch {
	case res.Stale():
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
		return nil
	case res.SignInRequired:
		return res.Err
	case res.Err != nil:
		if res.Reply.IsError {
			fmt.Fprintf(r.out, "%s %s\n", RenderStatus("error"), res.Reply.Content)
			return nil
		}
		return r.report(res.Err)
	}
	r.p.reply(r.out, res.Reply.Content)
	printLanguage(r.out, res.DetectedLanguage)
	return nil
}

func (r *repl) newConversation(ctx context.Context) error {
	conv, err := r.mgr.Create(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s Started %s\n", RenderStatus("ok"), conv.DisplayTitle())
	return nil
}

func (r *repl) list(ctx context.Context) error {
	if err := r.mgr.List(ctx); err != nil {
		return err
	}
	snap := r.mgr.Snapshot()
	for i, c := range snap.Conversations {
		marker := " "
		if c.ID == snap.CurrentID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s\n", marker, i+1, c.DisplayTitle())
	}
	return nil
}

// pick resolves a 1-based index from the last list.
func (r *repl) pick(args []string) (int64, string, error) {
	if len(args) != 1 {
		return 0, "", &ValidationError{Field: "index", Reason: "give the number shown by /list", Example: "/open 2"}
	}
	convs := r.mgr.Snapshot().Conversations
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(convs) {
		return 0, "", &ValidationError{Field: "index", Value: args[0], Reason: fmt.Sprintf("must be between 1 and %d", len(convs))}
	}
	c := convs[n-1]
	return c.ID, c.DisplayTitle(), nil
}

func (r *repl) open(ctx context.Context, args []string) error {
	id, title, err := r.pick(args)
	if err != nil {
		return err
	}
	if err := r.mgr.Select(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(r.out, TitleStyle.Render(title))
	r.p.transcript(r.out, r.mgr.Snapshot().Messages)
	return nil
}

func (r *repl) remove(ctx context.Context, args []string) error {
	id, title, err := r.pick(args)
	if err != nil {
		return err
	}
	if !r.ask(fmt.Sprintf("Delete %q?", title)) {
		fmt.Fprintln(r.out, DimStyle.Render("Cancelled."))
		return nil
	}
	if err := r.mgr.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s Deleted %s\n", RenderStatus("ok"), title)
	return nil
}

// record captures one clip, which stops on its own after the maximum
// duration, and offers the transcription as the next input.
func (r *repl) record(ctx context.Context) error {
	if err := r.capture.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s Recording for %s...\n", ErrorStyle.Render(voiceIndicator), r.capture.MaxDuration())
	res, err := waitResult(ctx, r.capture)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	r.suggest = res.Text
	fmt.Fprintf(r.out, "%s %s\n", DimStyle.Render("Heard:"), res.Text)
	return nil
}
