// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/model"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

const (
	// minFreeSpace is the free space below which setup warns.
	minFreeSpace = 50 * 1024 * 1024

	setupProbeTimeout = 5 * time.Second
)

// Check statuses.
const (
	checkPass = "ok"
	checkWarn = "warn"
	checkFail = "fail"
)

// SetupCheck is one row of the setup report.
type SetupCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// SetupData is the setup payload.
type SetupData struct {
	ConfigPath string       `json:"config_path"`
	Written    bool         `json:"written"`
	Checks     []SetupCheck `json:"checks"`
}

// errChecksFailed is returned by setup --check when a check fails.
var errChecksFailed = errors.New("setup checks failed")

func newSetupCmd(e *env) *cobra.Command {
	var (
		checkOnly bool
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Check this machine and write the config file",
		Long: `Check the platform, the backend, the recorder and free disk space, then
ask for the backend URL, speech language and theme and write them to the
config file. Empty answers keep the current value.`,
		Example: `  medibot setup
  medibot setup --base-url https://drmama.example.org --yes
  medibot setup --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fileConfig(e.configPath)
			if err != nil {
				return err
			}
			if e.baseURL != "" {
				cfg.Backend.BaseURL = e.baseURL
			}

			if !checkOnly && !yes && !e.jsonOut {
				if err := askSetup(e, cfg); err != nil {
					return err
				}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return &ValidationError{Field: "config", Reason: err.Error()}
			}

			data := SetupData{ConfigPath: e.configPath, Checks: runSetupChecks(cmd.Context(), cfg)}
			if !checkOnly {
				if err := config.SaveTOML(cfg, e.configPath); err != nil {
					return &ConfigError{Err: err}
				}
				data.Written = true
				e.logger.Info("config written by setup", "path", e.configPath)
			}

			if err := e.output(data, func(w io.Writer) { printSetup(w, data) }); err != nil {
				return err
			}
			if checkOnly {
				for _, c := range data.Checks {
					if c.Status == checkFail {
						return errChecksFailed
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "run the checks without writing the config")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "keep current values without prompting")
	return cmd
}

// fileConfig loads path over the defaults, ignoring environment overrides.
func fileConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, &ConfigError{Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// askSetup prompts for the values a new install usually changes. End of
// input keeps the remaining values.
func askSetup(e *env, cfg *config.Config) error {
	r := e.reader()
	prompts := []struct {
		key, label string
		current    string
	}{
		{"backend.base_url", "Backend URL", cfg.Backend.BaseURL},
		{"ui.language", "Speech language", cfg.UI.Language},
		{"ui.theme", "Theme (dark/light)", cfg.UI.Theme},
	}
	for _, p := range prompts {
		answer, err := r.line(e.errOut, fmt.Sprintf("%s [%s]: ", p.label, p.current))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if answer == "" {
			continue
		}
		if err := cfg.Set(p.key, answer); err != nil {
			return &ValidationError{Field: p.key, Value: answer, Reason: err.Error()}
		}
	}
	return nil
}

func runSetupChecks(ctx context.Context, cfg *config.Config) []SetupCheck {
	return []SetupCheck{
		{Name: "Platform", Status: checkPass, Message: runtime.GOOS + "/" + runtime.GOARCH},
		checkBackend(ctx, cfg),
		checkRecorder(cfg),
		checkDisk(config.ExpandHome(cfg.Session.DataDir)),
	}
}

// checkBackend calls the public languages endpoint, which also confirms
// the configured speech language.
func checkBackend(ctx context.Context, cfg *config.Config) SetupCheck {
	c := SetupCheck{Name: "Backend"}
	ctx, cancel := context.WithTimeout(ctx, setupProbeTimeout)
	defer cancel()

	client := api.New(api.Options{BaseURL: cfg.Backend.BaseURL, Timeout: setupProbeTimeout})
	langs, err := client.SupportedLanguages(ctx)
	if err != nil {
		c.Status = checkFail
		c.Message = fmt.Sprintf("%s: %s", cfg.Backend.BaseURL, message(err))
		c.Fix = "medibot setup --base-url <url>"
		return c
	}
	c.Status = checkPass
	c.Message = fmt.Sprintf("%s (%d languages)", cfg.Backend.BaseURL, len(langs))
	for _, l := range langs {
		if strings.EqualFold(l.Code, cfg.UI.Language) {
			return c
		}
	}
	c.Status = checkWarn
	c.Message = fmt.Sprintf("%s does not offer %s", cfg.Backend.BaseURL, model.LanguageName(cfg.UI.Language))
	c.Fix = "medibot languages"
	return c
}

func checkRecorder(cfg *config.Config) SetupCheck {
	c := SetupCheck{Name: "Recorder"}
	args := voice.NewExecRecorder(cfg.Voice.Command, nil).Args(voice.DefaultConstraints())
	path, err := exec.LookPath(args[0])
	if err != nil {
		c.Status = checkWarn
		c.Message = args[0] + " not found, voice input is unavailable"
		c.Fix = "install ffmpeg or set voice.command"
		return c
	}
	c.Status = checkPass
	c.Message = path
	return c
}

// checkDisk measures the nearest existing ancestor of dir, which may not
// exist before the first run.
func checkDisk(dir string) SetupCheck {
	c := SetupCheck{Name: "Disk space"}
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	free, err := freeDiskSpace(dir)
	switch {
	case err != nil:
		c.Status = checkWarn
		c.Message = "unknown: " + err.Error()
	case free < minFreeSpace:
		c.Status = checkWarn
		c.Message = fmt.Sprintf("%s free in %s", humanize.Bytes(free), dir)
		c.Fix = "free some space for the session database and logs"
	default:
		c.Status = checkPass
		c.Message = fmt.Sprintf("%s free in %s", humanize.Bytes(free), dir)
	}
	return c
}

func printSetup(w io.Writer, data SetupData) {
	fmt.Fprintln(w, TitleStyle.Render("medibot setup"))
	fmt.Fprintln(w, RenderSeparator())
	for _, c := range data.Checks {
		fmt.Fprintf(w, "%s %s%s\n", RenderStatus(c.Status), RenderLabel(c.Name), c.Message)
		if c.Fix != "" {
			fmt.Fprintln(w, DimStyle.Render("    -> "+c.Fix))
		}
	}
	fmt.Fprintln(w)
	if data.Written {
		fmt.Fprintf(w, "%s Wrote %s\n", RenderStatus("ok"), data.ConfigPath)
		fmt.Fprintln(w, DimStyle.Render(`Next: "medibot signup" or "medibot login".`))
	}
}
