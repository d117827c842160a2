// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotEnvFile is loaded from the working directory when present.
const DotEnvFile = ".env"

// envOverrides are the MEDIBOT_* variables. Nil means unset.
type envOverrides struct {
	BaseURL       *string  `env:"MEDIBOT_BASE_URL"`
	AuthURL       *string  `env:"MEDIBOT_AUTH_URL"`
	Timeout       *int     `env:"MEDIBOT_TIMEOUT"`
	DataDir       *string  `env:"MEDIBOT_DATA_DIR"`
	LogLevel      *string  `env:"MEDIBOT_LOG_LEVEL"`
	RecordCommand []string `env:"MEDIBOT_RECORD_COMMAND" envSeparator:" "`
	Language      *string  `env:"MEDIBOT_LANGUAGE"`
}

// LoadDotEnv loads .env without overriding variables already set.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DotEnvFile}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides loads .env and applies MEDIBOT_* variables.
func (c *Config) ApplyEnvOverrides() error {
	if err := LoadDotEnv(); err != nil {
		return err
	}
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	if o.BaseURL != nil {
		c.Backend.BaseURL = strings.TrimSpace(*o.BaseURL)
	}
	if o.AuthURL != nil {
		c.Backend.AuthURL = strings.TrimSpace(*o.AuthURL)
	}
	if o.Timeout != nil {
		c.Backend.TimeoutSecs = *o.Timeout
	}
	if o.DataDir != nil {
		c.Session.DataDir = *o.DataDir
	}
	if o.LogLevel != nil {
		c.Log.Level = strings.ToLower(*o.LogLevel)
	}
	if len(o.RecordCommand) > 0 {
		c.Voice.Command = o.RecordCommand
	}
	if o.Language != nil {
		c.UI.Language = *o.Language
	}
	return nil
}
