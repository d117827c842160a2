// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/medibot-tui/internal/util"
)

// CurrentVersion is the config file format version.
const CurrentVersion = "1"

// Config is the complete medibot configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" json:"backend"`
	Session SessionConfig `toml:"session" json:"session"`
	Voice   VoiceConfig   `toml:"voice" json:"voice"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// BackendConfig locates the backend service.
type BackendConfig struct {
	// BaseURL serves conversations, query, speech and tts.
	BaseURL string `toml:"base_url" json:"base_url"`

	// AuthURL serves login, signup and logout. Empty means BaseURL.
	AuthURL string `toml:"auth_url" json:"auth_url"`

	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	MaxResponseBytes  int64   `toml:"max_response_bytes" json:"max_response_bytes"`
}

// Timeout returns the request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// ResolvedAuthURL returns AuthURL, or BaseURL when unset.
func (b BackendConfig) ResolvedAuthURL() string {
	if b.AuthURL == "" {
		return b.BaseURL
	}
	return b.AuthURL
}

// SessionConfig controls local session state.
type SessionConfig struct {
	// CookieName is the readable cookie the route guard checks.
	CookieName string `toml:"cookie_name" json:"cookie_name"`

	// DataDir holds the local database and log file.
	DataDir string `toml:"data_dir" json:"data_dir"`

	// Watch reacts to sign-out from another medibot process.
	Watch bool `toml:"watch" json:"watch"`
}

// DatabasePath returns the SQLite path inside DataDir.
func (s SessionConfig) DatabasePath() string {
	return filepath.Join(ExpandHome(s.DataDir), "medibot.db")
}

// VoiceConfig controls microphone capture.
type VoiceConfig struct {
	// Command is the capture argv; empty uses ffmpeg.
	Command []string `toml:"command" json:"command"`

	MaxSeconds       int  `toml:"max_seconds" json:"max_seconds"`
	SampleRate       int  `toml:"sample_rate" json:"sample_rate"`
	Channels         int  `toml:"channels" json:"channels"`
	EchoCancel       bool `toml:"echo_cancel" json:"echo_cancel"`
	NoiseSuppression bool `toml:"noise_suppression" json:"noise_suppression"`
}

// MaxDuration returns the automatic stop window.
func (v VoiceConfig) MaxDuration() time.Duration {
	return time.Duration(v.MaxSeconds) * time.Second
}

// UIConfig controls presentation.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
	Greeting string `toml:"greeting" json:"greeting"`

	// Language is the text-to-speech language code.
	Language string `toml:"language" json:"language"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`

	// File is the log path; empty means <data_dir>/medibot.log.
	File string `toml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			BaseURL:           "http://localhost:8002",
			TimeoutSecs:       30,
			RequestsPerSecond: 5,
			MaxResponseBytes:  10 * 1024 * 1024,
		},
		Session: SessionConfig{
			CookieName: "session_id",
			DataDir:    "~/.medibot",
			Watch:      true,
		},
		Voice: VoiceConfig{
			MaxSeconds:       5,
			SampleRate:       16000,
			Channels:         1,
			EchoCancel:       true,
			NoiseSuppression: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			Language: "en",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the medibot configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".medibot"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// LogPath returns the resolved log file path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return ExpandHome(c.Log.File)
	}
	return filepath.Join(ExpandHome(c.Session.DataDir), "medibot.log")
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads ~/.medibot/config.toml, applies environment overrides and
// validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit config file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, statErr
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Unknown keys are rejected.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Save writes cfg to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# medibot configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validThemes      = map[string]bool{"dark": true, "light": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validSampleRates = map[int]bool{8000: true, 16000: true, 24000: true, 48000: true}
)

// validateURL checks an absolute http(s) URL.
func validateURL(field, raw string, errs *ValidateErrors) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", raw)})
	}
}

// Validate checks every setting and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validateURL("backend.base_url", c.Backend.BaseURL, &errs)
	if c.Backend.AuthURL != "" {
		validateURL("backend.auth_url", c.Backend.AuthURL, &errs)
	}
	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "must be between 1 and 600"})
	}
	if c.Backend.RequestsPerSecond <= 0 || c.Backend.RequestsPerSecond > 100 {
		errs = append(errs, ValidationError{Field: "backend.requests_per_second", Message: "must be greater than 0 and at most 100"})
	}
	if c.Backend.MaxResponseBytes < 1024 {
		errs = append(errs, ValidationError{Field: "backend.max_response_bytes", Message: "must be at least 1024"})
	}

	if c.Session.CookieName == "" || strings.ContainsAny(c.Session.CookieName, " ;=,\t") {
		errs = append(errs, ValidationError{Field: "session.cookie_name", Message: fmt.Sprintf("invalid cookie name '%s'", c.Session.CookieName)})
	}
	if strings.TrimSpace(c.Session.DataDir) == "" {
		errs = append(errs, ValidationError{Field: "session.data_dir", Message: "must not be empty"})
	}

	if c.Voice.MaxSeconds < 1 || c.Voice.MaxSeconds > 60 {
		errs = append(errs, ValidationError{Field: "voice.max_seconds", Message: "must be between 1 and 60"})
	}
	if !validSampleRates[c.Voice.SampleRate] {
		errs = append(errs, ValidationError{Field: "voice.sample_rate", Message: fmt.Sprintf("unsupported rate %d, must be one of 8000, 16000, 24000, 48000", c.Voice.SampleRate)})
	}
	if c.Voice.Channels < 1 || c.Voice.Channels > 2 {
		errs = append(errs, ValidationError{Field: "voice.channels", Message: "must be 1 or 2"})
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme)})
	}
	if l := strings.TrimSpace(c.UI.Language); l == "" || len(l) > 8 {
		errs = append(errs, ValidationError{Field: "ui.language", Message: "must be a language code such as 'en'"})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = def.Backend.BaseURL
	}
	c.Backend.BaseURL = strings.TrimSuffix(c.Backend.BaseURL, "/")
	c.Backend.AuthURL = strings.TrimSuffix(c.Backend.AuthURL, "/")
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = def.Backend.RequestsPerSecond
	}
	if c.Backend.MaxResponseBytes == 0 {
		c.Backend.MaxResponseBytes = def.Backend.MaxResponseBytes
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.Session.DataDir == "" {
		c.Session.DataDir = def.Session.DataDir
	}
	if c.Voice.MaxSeconds == 0 {
		c.Voice.MaxSeconds = def.Voice.MaxSeconds
	}
	if c.Voice.SampleRate == 0 {
		c.Voice.SampleRate = def.Voice.SampleRate
	}
	if c.Voice.Channels == 0 {
		c.Voice.Channels = def.Voice.Channels
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.Language == "" {
		c.UI.Language = def.UI.Language
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Get returns the value at a dotted key such as "backend.base_url".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the field at key. Lists are split on whitespace;
// booleans also accept yes/no and on/off.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	return parseInto(field, value)
}

// lookup walks the struct by toml tag. Dashes in key match underscores.
func (c *Config) lookup(key string) (reflect.Value, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	parts := strings.Split(key, ".")
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%s is not a section", strings.Join(parts[:i], "."))
		}
		idx := fieldByTag(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%s is a section, not a key", key)
	}
	return v, nil
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

func fieldByTag(t reflect.Type, name string) int {
	for i := range t.NumField() {
		if tomlName(t.Field(i)) == name {
			return i
		}
	}
	return -1
}

func parseInto(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", value)
		}
		field.SetFloat(f)
	case reflect.Bool:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "t", "true", "yes", "on":
			field.SetBool(true)
		case "0", "f", "false", "no", "off":
			field.SetBool(false)
		default:
			return fmt.Errorf("not a boolean: %q", value)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		field.Set(reflect.ValueOf(strings.Fields(value)))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// GetAllKeys lists every settable key in file order.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := range t.NumField() {
			f := t.Field(i)
			name := tomlName(f)
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}
