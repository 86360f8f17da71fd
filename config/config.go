// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads compositor settings from an optional YAML file and
// the environment variables wlroots-based compositors understand:
//
//	WLR_BACKENDS          comma-separated backend kinds for AUTO
//	WLR_RENDERER          renderer name, e.g. "software" or "gpu"
//	WLR_TTY               VT device for the session
//	WLR_HEADLESS_OUTPUTS  outputs created by a headless backend
//	WAYLAND_DISPLAY       parent Wayland display (nested backend)
//	DISPLAY               parent X11 display (nested backend)
//	XDG_RUNTIME_DIR       directory holding Wayland sockets
//
// Other keys can be set through COMPOSITOR_* variables, e.g.
// COMPOSITOR_LOG_LEVEL=debug.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gogpu/compositor/backend"
)

// Config is the complete compositor configuration.
type Config struct {
	// Strategy is "auto" or "headless".
	Strategy string `mapstructure:"strategy"`

	// Renderer forces a renderer implementation. Empty picks the best
	// available one.
	Renderer string `mapstructure:"renderer"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	// Backend is passed to backend.New.
	Backend backend.AutoConfig `mapstructure:"backend"`
}

// envBindings maps configuration keys to the conventional variables.
var envBindings = map[string]string{
	"backend.backends":         "WLR_BACKENDS",
	"renderer":                 "WLR_RENDERER",
	"backend.session.tty":      "WLR_TTY",
	"backend.headless_outputs": "WLR_HEADLESS_OUTPUTS",
	"backend.wayland_display":  "WAYLAND_DISPLAY",
	"backend.x11_display":      "DISPLAY",
	"backend.runtime_dir":      "XDG_RUNTIME_DIR",
}

// EnvPrefix prefixes the variables of keys without a conventional name.
const EnvPrefix = "COMPOSITOR"

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Strategy: backend.StrategyAuto.String(),
		LogLevel: "info",
		Backend: backend.AutoConfig{
			X11SocketDir: backend.DefaultX11SocketDir,
			SysRoot:      backend.DefaultSysRoot,
			DevRoot:      backend.DefaultDevRoot,
		},
	}
}

// SetDefaults registers the defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("strategy", defaults.Strategy)
	v.SetDefault("renderer", defaults.Renderer)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("backend.x11_socket_dir", defaults.Backend.X11SocketDir)
	v.SetDefault("backend.sys_root", defaults.Backend.SysRoot)
	v.SetDefault("backend.dev_root", defaults.Backend.DevRoot)
	v.SetDefault("backend.headless_outputs", 0)
	v.SetDefault("backend.session.tty", "")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New returns a viper instance with defaults and environment bindings. If
// file is non-empty it is used as the config file; otherwise config.yaml is
// searched for in Dir() and the working directory.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}
	return v
}

// Read reads the config file of v. A missing file is not an error unless it
// was named explicitly.
func Read(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Backend.Backends = splitKinds(cfg.Backend.Backends)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile is New, Read and Load in one call.
func LoadFile(file string) (*Config, error) {
	v := New(file)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Load(v)
}

// splitKinds trims the kind list and splits entries that still contain
// commas, which happens when the list comes from a YAML string.
func splitKinds(in []string) []string {
	var out []string
	for _, s := range in {
		for _, k := range strings.Split(s, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// Validate checks the values that can be checked without probing hardware.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.StrategyValue(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Backend.HeadlessOutputs < 0 {
		errs = append(errs, fmt.Errorf("config: headless_outputs must not be negative, got %d", c.Backend.HeadlessOutputs))
	}
	return errors.Join(errs...)
}

// StrategyValue parses Strategy.
func (c *Config) StrategyValue() (backend.Strategy, error) {
	return backend.ParseStrategy(c.Strategy)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// Dir returns the directory searched for config.yaml.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "compositor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".compositor"
	}
	return filepath.Join(home, ".config", "compositor")
}
