// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/config"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
		Long: `Show and edit ~/.medibot/config.toml. Keys use dot notation, for example
backend.base_url or ui.theme. "show" and "get" report the effective values
including MEDIBOT_* environment overrides; "set" edits only the file.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.output(e.cfg, func(w io.Writer) {
					if err := toml.NewEncoder(w).Encode(e.cfg); err != nil {
						fmt.Fprintln(e.errOut, err)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := e.cfg.Get(args[0])
				if err != nil {
					return &NotFoundError{Resource: "config key", ID: args[0]}
				}
				return e.output(map[string]any{args[0]: v}, func(w io.Writer) {
					if list, ok := v.([]string); ok {
						fmt.Fprintln(w, strings.Join(list, " "))
						return
					}
					fmt.Fprintln(w, v)
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting in the config file",
			Example: `  medibot config set backend.base_url https://medibot.example.org
  medibot config set voice.command arecord -q -f S16_LE -r {rate} -c {channels} -t wav -`,
			Args: cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(e, args[0], strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.output(PathData{Path: e.configPath}, func(w io.Writer) {
					fmt.Fprintln(w, e.configPath)
				})
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the setting keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				keys := config.GetAllKeys()
				return e.output(keys, func(w io.Writer) {
					for _, k := range keys {
						fmt.Fprintln(w, k)
					}
				})
			},
		},
	)
	return cmd
}

// setConfig edits the file alone so environment overrides are not
// written back.
func setConfig(e *env, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(e.configPath); err == nil {
		if err := config.LoadTOML(cfg, e.configPath); err != nil {
			return &ConfigError{Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Err: err}
	}

	if _, err := cfg.Get(key); err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: key, Value: value, Reason: err.Error()}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Field: key, Value: value, Reason: err.Error()}
	}
	if err := config.SaveTOML(cfg, e.configPath); err != nil {
		return err
	}
	e.logger.Info("config updated", "key", key)
	return e.output(map[string]string{key: value}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s = %s\n", RenderStatus("ok"), key, value)
	})
}
