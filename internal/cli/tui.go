// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/ui"
)

// runTUI starts the full-screen interface.
func runTUI(cmd *cobra.Command, e *env) error {
	if !isTerminal(e.in) || !isTerminal(e.out) {
		return &TTYRequiredError{Operation: "start the chat interface"}
	}
	ctx := cmd.Context()
	if err := e.connect(ctx); err != nil {
		return err
	}
	start, _ := cmd.Flags().GetString("start")

	outDir, err := os.Getwd()
	if err != nil {
		outDir = config.ExpandHome(e.cfg.Session.DataDir)
	}
	app := ui.New(ctx, ui.Options{
		Session:       e.sess,
		Auth:          e.auth(),
		Conversations: e.conversations(),
		Capture:       e.capture(),
		Speaker:       e.client,
		Theme:         e.cfg.UI.Theme,
		Markdown:      e.cfg.UI.Markdown,
		Language:      e.cfg.UI.Language,
		OutputDir:     outDir,
		Watch:         e.cfg.Session.Watch,
		Start:         ui.ParseRoute(start),
		Logger:        e.logger,
	})
	e.logger.Info("tui started", "start", start)
	return app.Run()
}
