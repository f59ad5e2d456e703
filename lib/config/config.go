// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration for the fspotfs binary.
//
// Configuration comes from an optional single YAML file passed via
// --config, with command-line flags overriding individual values.
// There is no automatic discovery and no environment-variable
// overrides; the only path expansion performed is the default
// database/mountpoint resolution against HOME and XDG_CONFIG_HOME.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fspotDBFile is the catalog location relative to the XDG config
// directory, matching where F-Spot writes it.
const fspotDBFile = "f-spot/photos.db"

// Config holds everything the binary needs to mount a catalog.
type Config struct {
	// Database is the path to the F-Spot SQLite database. When empty,
	// DefaultDatabasePath is used. A relative path is resolved against
	// HOME.
	Database string `yaml:"database"`

	// Mountpoint is where the filesystem is mounted. When empty,
	// ~/.photos is used.
	Mountpoint string `yaml:"mountpoint"`

	// Repeated shows a photo under every tag it is assigned to
	// instead of only the most specific one.
	Repeated bool `yaml:"repeated"`

	// SchemaVersion is the F-Spot database schema version expected at
	// startup. A mismatch aborts the mount.
	SchemaVersion float64 `yaml:"schema_version"`

	// AllowOther permits other users to access the mount.
	AllowOther bool `yaml:"allow_other"`

	// PoolSize is the SQLite connection pool size. Zero picks a
	// default based on CPU count.
	PoolSize int `yaml:"pool_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SchemaVersion: 17.1,
		LogLevel:      "info",
	}
}

// Load reads a YAML configuration file, layered over Default. Unknown
// keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.SchemaVersion <= 0 {
		return fmt.Errorf("config: schema_version must be positive, got %g", c.SchemaVersion)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("config: pool_size must not be negative, got %d", c.PoolSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a configured log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", name)
	}
}

// DefaultDatabasePath resolves the F-Spot database location the way
// F-Spot itself does: $XDG_CONFIG_HOME/f-spot/photos.db, falling back
// to ~/.config/f-spot/photos.db.
func DefaultDatabasePath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, fspotDBFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", fspotDBFile), nil
}

// DefaultMountpoint returns ~/.photos.
func DefaultMountpoint() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".photos"), nil
}

// ResolveDatabase fills in and normalizes the database path: empty
// uses the default location, relative paths resolve against HOME.
func (c *Config) ResolveDatabase() error {
	if c.Database == "" {
		resolved, err := DefaultDatabasePath()
		if err != nil {
			return err
		}
		c.Database = resolved
		return nil
	}
	if !filepath.IsAbs(c.Database) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: resolving home directory: %w", err)
		}
		c.Database = filepath.Join(home, c.Database)
	}
	return nil
}

// ResolveMountpoint fills in the default mountpoint when unset.
func (c *Config) ResolveMountpoint() error {
	if c.Mountpoint != "" {
		return nil
	}
	resolved, err := DefaultMountpoint()
	if err != nil {
		return err
	}
	c.Mountpoint = resolved
	return nil
}
