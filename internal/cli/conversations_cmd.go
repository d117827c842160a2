// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/export"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/util"
)

const titleColumnWidth = 40

func newConversationsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "List, create, show, delete and export conversations",
	}
	cmd.AddCommand(
		newConvListCmd(e),
		newConvCreateCmd(e),
		newConvShowCmd(e),
		newConvDeleteCmd(e),
		newConvExportCmd(e),
	)
	return cmd
}

func newConvListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			convs, err := e.client.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			return e.output(convs, func(w io.Writer) {
				if len(convs) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
					return
				}
				fmt.Fprintf(w, "%-6s %-*s %s\n", "ID", titleColumnWidth, "TITLE", "CREATED")
				for _, c := range convs {
					title := util.TruncateWidth(util.SingleLine(c.DisplayTitle()), titleColumnWidth)
					fmt.Fprintf(w, "%-6d %s %s\n", c.ID, util.PadRight(title, titleColumnWidth), formatTime(c.Created()))
				}
			})
		},
	}
}

func newConvCreateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "create [title]",
		Short: "Create a conversation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			conv, err := e.client.CreateConversation(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return e.output(conv, func(w io.Writer) {
				fmt.Fprintf(w, "%s Created conversation %d (%s)\n", RenderStatus("ok"), conv.ID, conv.DisplayTitle())
			})
		},
	}
}

// findConversation returns the summary for id from the server list.
func (e *env) findConversation(ctx context.Context, id int64) (model.Conversation, error) {
	convs, err := e.client.ListConversations(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Conversation{}, &NotFoundError{Resource: "conversation", ID: strconv.FormatInt(id, 10)}
}

// loadMessages fetches a conversation transcript as display messages.
func (e *env) loadMessages(ctx context.Context, id int64) ([]model.Message, error) {
	server, err := e.client.ConversationMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs := make([]model.Message, 0, len(server))
	for _, sm := range server {
		msgs = append(msgs, sm.ToMessage())
	}
	return msgs, nil
}

func newConvShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			conv, err := e.findConversation(cmd.Context(), id)
			if err != nil {
				return err
			}
			msgs, err := e.loadMessages(cmd.Context(), id)
			if err != nil {
				return err
			}
			doc := export.Document{Conversation: conv, Messages: msgs}
			return e.output(doc, func(w io.Writer) {
				fmt.Fprintln(w, TitleStyle.Render(conv.DisplayTitle()))
				fmt.Fprintln(w, RenderSeparator())
				if len(msgs) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No messages yet."))
					return
				}
				e.printer().transcript(w, msgs)
			})
		},
	}
}

func newConvDeleteCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			conv, err := e.findConversation(cmd.Context(), id)
			if err != nil {
				return err
			}
			ok, err := e.confirm(fmt.Sprintf("Delete %q?", conv.DisplayTitle()), yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(e.errOut, DimStyle.Render("Cancelled."))
				return nil
			}
			if err := e.client.DeleteConversation(cmd.Context(), id); err != nil {
				return err
			}
			return e.output(conv, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted conversation %d\n", RenderStatus("ok"), id)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newConvExportCmd(e *env) *cobra.Command {
	var (
		format string
		dir    string
		open   bool
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation to Markdown, JSON or HTML",
		Example: `  medibot conversations export 12
  medibot conversations export 12 --format html --output ~/Documents`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.OutputDir = config.ExpandHome(dir)
			opts.OpenAfterExport = open
			opts.Theme = e.cfg.UI.Theme
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return &ValidationError{Field: "format", Value: format, Reason: "must be one of " + strings.Join(export.Formats(), ", ")}
			}
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			conv, err := e.findConversation(cmd.Context(), id)
			if err != nil {
				return err
			}
			msgs, err := e.loadMessages(cmd.Context(), id)
			if err != nil {
				return err
			}
			doc := export.Document{
				Conversation: conv,
				Messages:     msgs,
				Email:        e.sess.Get(cmd.Context()).Email,
				ExportedAt:   time.Now(),
			}
			path, err := export.ExportToFile(doc, exporter, opts)
			if err != nil {
				return err
			}
			return e.output(PathData{Path: path}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Exported to %s\n", RenderStatus("ok"), path)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown, json or html")
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&open, "open", false, "open the file afterwards")
	return cmd
}
