// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for fusebridge
// commands.
//
// Configuration is loaded from a single file specified by:
//   - FUSEBRIDGE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Environment
// variables do not override config values; the only expansion
// performed is ${HOME} and similar path variables for portability.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for fusebridge.
type Config struct {
	// Driver configures how the native bridge library is obtained.
	Driver DriverConfig `yaml:"driver"`

	// Mount configures the mount argument vector and supervision.
	Mount MountConfig `yaml:"mount"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// DriverConfig configures the native bridge library.
type DriverConfig struct {
	// Library is the path to a prebuilt bridge shared object. Empty
	// means compile the embedded bridge source at startup.
	Library string `yaml:"library"`

	// Compiler overrides the C compiler used for the embedded
	// source. Empty falls back to $CC, then "cc".
	Compiler string `yaml:"compiler"`

	// CFlags overrides the compiler flags. Empty falls back to
	// $CFLAGS, then "-O2".
	CFlags string `yaml:"cflags"`

	// ConstantsTable is the path to a YAML name-to-value table for
	// errno and mode constants, as produced by compiler-based
	// discovery. Empty means use the host table.
	ConstantsTable string `yaml:"constants_table"`
}

// MountConfig configures mounting and supervision.
type MountConfig struct {
	// Options are extra mount options, each passed as a separate
	// "-o" argument to the event loop.
	Options []string `yaml:"options"`

	// Foreground keeps the event loop in the current process
	// instead of a supervised child. Intended for debugging; a
	// callback crash then takes the whole command down.
	Foreground bool `yaml:"foreground"`

	// PollInterval is the supervisor's liveness poll cadence, in
	// time.ParseDuration syntax. Default "500ms".
	PollInterval string `yaml:"poll_interval"`
}

// PollIntervalDuration parses the poll interval. Zero means unset;
// callers apply their own default. Assumes Validate has passed.
func (m MountConfig) PollIntervalDuration() time.Duration {
	if m.PollInterval == "" {
		return 0
	}
	interval, err := time.ParseDuration(m.PollInterval)
	if err != nil {
		return 0
	}
	return interval
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level"`
}

// Default returns the default configuration. These defaults ensure
// all fields have sensible zero-values before a file is merged in.
func Default() *Config {
	return &Config{
		Mount: MountConfig{
			PollInterval: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the FUSEBRIDGE_CONFIG environment
// variable. Fails when the variable is not set; use LoadFile with an
// explicit path instead, or Default when no file is wanted.
func Load() (*Config, error) {
	path := os.Getenv("FUSEBRIDGE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("FUSEBRIDGE_CONFIG environment variable not set; " +
			"set it to the path of your fusebridge.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging
// over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-valued fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Driver.Library = expandVars(c.Driver.Library, vars)
	c.Driver.ConstantsTable = expandVars(c.Driver.ConstantsTable, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Driver.Library != "" {
		if _, err := os.Stat(c.Driver.Library); err != nil {
			errs = append(errs, fmt.Errorf("driver.library: %w", err))
		}
	}
	if c.Driver.ConstantsTable != "" {
		if _, err := os.Stat(c.Driver.ConstantsTable); err != nil {
			errs = append(errs, fmt.Errorf("driver.constants_table: %w", err))
		}
	}
	if c.Mount.PollInterval != "" {
		if interval, err := time.ParseDuration(c.Mount.PollInterval); err != nil {
			errs = append(errs, fmt.Errorf("mount.poll_interval: %w", err))
		} else if interval <= 0 {
			errs = append(errs, fmt.Errorf("mount.poll_interval must be positive, got %s", c.Mount.PollInterval))
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", c.Logging.Level))
	}

	for _, option := range c.Mount.Options {
		if option == "" {
			errs = append(errs, fmt.Errorf("mount.options must not contain empty entries"))
		}
	}

	return errors.Join(errs...)
}
