// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/server"
)

// shutdownTimeout bounds the graceful devserver shutdown.
const shutdownTimeout = 5 * time.Second

func newDevServerCmd(e *env) *cobra.Command {
	var cfg server.Config
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long: `Run an in-memory implementation of the backend API. Accounts and
conversations live only as long as the process. Replies are canned
guidance in the question's script, and uploads transcribe to --transcription.`,
		Example: `  medibot devserver --addr 127.0.0.1:8002
  medibot --base-url http://127.0.0.1:8002 signup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			srv := server.New(cfg, e.logger)
			addr, err := srv.Listen()
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s devserver listening on http://%s (Ctrl+C to stop)\n", RenderStatus("ok"), addr)

			done := make(chan error, 1)
			go func() { done <- srv.Start() }()

			select {
			case err := <-done:
				return err
			case <-sigCtx.Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			st := srv.Stats()
			fmt.Fprintf(e.out, "%s stopped after %s: %d requests, %d queries, %d transcriptions\n",
				RenderStatus("info"), formatDuration(time.Since(st.StartTime)), st.TotalRequests, st.Queries, st.Transcripts)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	f.StringVar(&cfg.Transcription, "transcription", "How much water should I drink?", "text returned for every audio upload")
	f.IntVar(&cfg.RateLimit, "rate-limit", 0, "requests per minute per client, 0 disables")
	f.DurationVar(&cfg.SessionTimeout, "session-timeout", 0, "session lifetime (default 24h)")
	return cmd
}
