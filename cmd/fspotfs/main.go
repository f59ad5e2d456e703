// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

// Command fspotfs mounts an F-Spot photo catalog as a read-only FUSE
// filesystem: tags become directories, photos become symbolic links
// to the image files on disk.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/fspotfs/fspotfs/lib/catalog"
	"github.com/fspotfs/fspotfs/lib/clock"
	"github.com/fspotfs/fspotfs/lib/config"
	fspotfuse "github.com/fspotfs/fspotfs/lib/fuse"
	"github.com/fspotfs/fspotfs/lib/photodb"
	"github.com/fspotfs/fspotfs/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		databasePath  = pflag.String("db", "", "path to the F-Spot sqlite database (default: $XDG_CONFIG_HOME/f-spot/photos.db)")
		mountpoint    = pflag.StringP("mount", "m", "", "mountpoint path (default: ~/.photos)")
		repeated      = pflag.BoolP("repeated", "r", false, "show re-tagged images in the same family tree")
		schemaVersion = pflag.Float64("db-version", 17.1, "F-Spot database schema version to expect")
		allowOther    = pflag.Bool("allow-other", false, "allow other users to access the mount")
		configPath    = pflag.String("config", "", "path to a YAML configuration file")
		logLevel      = pflag.String("log-level", "info", "log level (debug, info, warn, error)")
		showVersion   = pflag.Bool("version", false, "print version information and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("fspotfs " + version.Full())
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags override file values, but only when actually given.
	if pflag.CommandLine.Changed("db") {
		cfg.Database = *databasePath
	}
	if pflag.CommandLine.Changed("mount") {
		cfg.Mountpoint = *mountpoint
	}
	if pflag.CommandLine.Changed("repeated") {
		cfg.Repeated = *repeated
	}
	if pflag.CommandLine.Changed("db-version") {
		cfg.SchemaVersion = *schemaVersion
	}
	if pflag.CommandLine.Changed("allow-other") {
		cfg.AllowOther = *allowOther
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ResolveDatabase(); err != nil {
		return err
	}
	if err := cfg.ResolveMountpoint(); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Database); err != nil {
		return fmt.Errorf("database %s: %w", cfg.Database, err)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := photodb.Open(photodb.Config{
		Path:     cfg.Database,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	// The schema check gates everything else: the query set is only
	// valid against the version it was written for.
	if err := db.CheckSchemaVersion(ctx, cfg.SchemaVersion); err != nil {
		return err
	}

	cat, err := catalog.New(catalog.Config{
		DB:       db,
		Repeated: cfg.Repeated,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server, err := fspotfuse.Mount(fspotfuse.Options{
		Mountpoint: cfg.Mountpoint,
		Catalog:    cat,
		Clock:      clock.Real(),
		AllowOther: cfg.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	// The server can end two ways: a signal (we unmount), or an
	// external fusermount -u (Wait returns on its own).
	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed", "error", err)
		}
		<-done
	case <-done:
		logger.Info("filesystem unmounted externally")
	}

	logger.Info("session ended", "cached_results", cat.CacheSize())
	return nil
}
