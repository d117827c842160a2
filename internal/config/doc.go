// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for medibot.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command line flags (--base-url, --debug)
//   - Environment variables (MEDIBOT_*), including a .env file in the
//     working directory
//   - ~/.medibot/config.toml (or the file passed with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Backend.Timeout()
//
// Keys use dot notation for get/set:
//
//	v, err := cfg.Get("backend.base_url")
//	err = cfg.Set("voice.max_seconds", "8")
package config
