// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "medibot",
		Short: "Terminal client for the Dr MAMA maternal health assistant",
		Long: `medibot talks to the Dr MAMA backend from the terminal.

Without a command it starts the full-screen chat interface. The commands
below share its session, so "medibot login" signs the interface in too.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}
	root.Flags().String("start", "home", "first view: home, signin, signup or chat")

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default ~/.medibot/config.toml)")
	pf.StringVar(&e.baseURL, "base-url", "", "backend URL, overrides the config file")
	pf.BoolVar(&e.debug, "debug", false, "log at debug level to stderr")
	pf.BoolVar(&e.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newLoginCmd(e),
		newSignupCmd(e),
		newLogoutCmd(e),
		newWhoAmICmd(e),
		newConversationsCmd(e),
		newAskCmd(e),
		newChatCmd(e),
		newRecordCmd(e),
		newSpeakCmd(e),
		newLanguagesCmd(e),
		newHistoryCmd(e),
		newConfigCmd(e),
		newSetupCmd(e),
		newDevServerCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs the command tree with ctx and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{}
	defer e.close()
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, api.ErrUnauthorized) && !isCredentialCommand(cmd) {
		e.dropSession(context.WithoutCancel(ctx))
	}
	DisplayError(stdout, stderr, err, e.jsonOut)
	return ExitCode(err)
}

// isCredentialCommand reports whether a 401 from cmd means rejected
// credentials rather than an expired session.
func isCredentialCommand(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	switch cmd.Name() {
	case "login", "signup":
		return true
	}
	return false
}

// load reads the configuration and sets up logging. The config commands
// run even when the file is invalid so it can be repaired.
func (e *env) load(cmd *cobra.Command) error {
	e.out = cmd.OutOrStdout()
	e.errOut = cmd.ErrOrStderr()
	e.in = cmd.InOrStdin()

	path := e.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return &ConfigError{Err: err}
		}
		path = p
	}
	e.configPath = path

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		if !isConfigCommand(cmd) {
			return &ConfigError{Err: err}
		}
		cfg = config.Default()
	}
	if e.baseURL != "" {
		cfg.Backend.BaseURL = e.baseURL
		if verr := cfg.Validate(); verr != nil {
			return &ConfigError{Err: verr}
		}
	}
	e.cfg = cfg

	level := cfg.Log.Level
	if e.debug {
		level = "debug"
	}
	if err := os.MkdirAll(config.ExpandHome(cfg.Session.DataDir), 0o700); err != nil {
		return &ConfigError{Err: fmt.Errorf("create data dir: %w", err)}
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:  level,
		File:   cfg.LogPath(),
		Stderr: e.debug,
	})
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("open log: %w", err)}
	}
	e.logger = logger
	e.closers = append(e.closers, closer)
	e.logger.Debug("command started", "command", cmd.CommandPath(), "config", path)
	return nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "setup" {
			return true
		}
	}
	return false
}
