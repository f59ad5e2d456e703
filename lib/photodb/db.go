// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package photodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned by lookup methods when no row matches.
var ErrNotFound = errors.New("photodb: not found")

// Config holds the parameters for opening a photo catalog. Path is
// required; all other fields have sensible defaults.
type Config struct {
	// Path is the filesystem path to the F-Spot SQLite database. The
	// file must already exist; it is never created or modified.
	Path string

	// PoolSize is the number of connections in the pool. If zero or
	// negative, defaults to max(runtime.NumCPU(), 4). The workload is
	// read-only, so extra connections only help when the FUSE
	// transport dispatches operations concurrently.
	PoolSize int

	// Logger receives operational messages (pool open/close). If nil,
	// a no-op logger is used.
	Logger *slog.Logger
}

// DB is a read-only connection pool over an F-Spot catalog.
//
// DB is safe for concurrent use. Each query method borrows a pooled
// connection for the duration of one statement.
type DB struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open creates a read-only connection pool over the database at
// cfg.Path. All connections are initialized lazily on first use. The
// caller must call Close when the catalog is no longer needed.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("photodb: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		Flags:       sqlite.OpenReadOnly,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("photodb: opening %s: %w", cfg.Path, err)
	}

	logger.Info("photo catalog opened",
		"path", cfg.Path,
		"pool_size", poolSize,
	)

	return &DB{
		pool:   pool,
		logger: logger,
		path:   cfg.Path,
	}, nil
}

// Close closes all connections in the pool. Blocks until all borrowed
// connections are returned.
func (d *DB) Close() error {
	if err := d.pool.Close(); err != nil {
		d.logger.Error("photo catalog close error",
			"path", d.path,
			"error", err,
		)
		return fmt.Errorf("photodb: closing %s: %w", d.path, err)
	}
	d.logger.Info("photo catalog closed", "path", d.path)
	return nil
}

// prepareConnection applies read-only pragmas. Runs once per pooled
// connection, on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA query_only=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-8192",
		"PRAGMA mmap_size=268435456",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("photodb: %s: %w", pragma, err)
		}
	}
	return nil
}

// queryStrings runs a query whose first column is TEXT and collects
// every row.
func (d *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("photodb: take connection: %w", err)
	}
	defer d.pool.Put(conn)

	var out []string
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("photodb: query: %w", err)
	}
	return out, nil
}

// queryInt64s runs a query whose first column is INTEGER and collects
// every row.
func (d *DB) queryInt64s(ctx context.Context, query string, args ...any) ([]int64, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("photodb: take connection: %w", err)
	}
	defer d.pool.Put(conn)

	var out []int64
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, stmt.ColumnInt64(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("photodb: query: %w", err)
	}
	return out, nil
}
