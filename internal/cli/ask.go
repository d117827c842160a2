// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/conversation"
	"github.com/jeranaias/medibot-tui/internal/model"
)

func newAskCmd(e *env) *cobra.Command {
	var (
		convID  int64
		newConv bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Long: `Ask one question in the newest conversation, a chosen one, or a new one.
With no arguments, or "-", the question is read from standard input.`,
		Example: `  medibot ask "What should I eat in the first trimester?"
  medibot ask --new "Is mild swelling normal?"
  echo "Which vaccines are safe?" | medibot ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if question == "" || question == "-" {
				b, err := io.ReadAll(e.in)
				if err != nil {
					return err
				}
				question = string(b)
			}
			if strings.TrimSpace(question) == "" {
				return &ValidationError{Field: "question", Reason: "must not be empty", Example: `medibot ask "Is mild swelling normal?"`}
			}
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}

			mgr := e.conversations()
			if err := openConversation(cmd.Context(), mgr, convID, newConv); err != nil {
				return err
			}
			res := mgr.Send(cmd.Context(), question, nil)
			if res.Err != nil {
				return res.Err
			}

			data := AskData{ConversationID: mgr.CurrentID(), Response: res.Reply.Content, DetectedLanguage: res.DetectedLanguage}
			return e.output(data, func(w io.Writer) {
				e.printer().reply(w, res.Reply.Content)
				printLanguage(w, res.DetectedLanguage)
			})
		},
	}
	cmd.Flags().Int64VarP(&convID, "conversation", "c", 0, "conversation ID to continue")
	cmd.Flags().BoolVarP(&newConv, "new", "n", false, "start a new conversation")
	cmd.MarkFlagsMutuallyExclusive("conversation", "new")
	return cmd
}

// openConversation makes id current, creates one, or falls back to the
// newest conversation as the chat view does on entry.
func openConversation(ctx context.Context, mgr *conversation.Manager, id int64, create bool) error {
	switch {
	case create:
		_, err := mgr.Create(ctx, "")
		return err
	case id > 0:
		if err := mgr.List(ctx); err != nil {
			return err
		}
		for _, c := range mgr.Snapshot().Conversations {
			if c.ID == id {
				return mgr.Select(ctx, id)
			}
		}
		return &NotFoundError{Resource: "conversation", ID: fmt.Sprint(id)}
	default:
		return mgr.List(ctx)
	}
}

// printLanguage notes a reply language other than English.
func printLanguage(w io.Writer, code string) {
	if code == "" || strings.EqualFold(code, "en") {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("language: "+model.LanguageName(code)))
}
