// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/fspotfs/fspotfs/lib/photodb"
)

// ErrNotFound is returned when a name does not resolve to a tag or a
// photo. It aliases the photodb sentinel so callers can match either
// layer with errors.Is.
var ErrNotFound = photodb.ErrNotFound

// Config holds the parameters for constructing a Catalog.
type Config struct {
	// DB is the photo database. Required. The Catalog must only be
	// constructed after DB.CheckSchemaVersion has passed.
	DB *photodb.DB

	// Repeated disables hierarchy deduplication: a photo assigned to
	// several tags along one branch appears under every one of them.
	Repeated bool

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Catalog resolves the tag hierarchy and photo sets of one F-Spot
// database. All cross-call state lives in the shared memo; the Catalog
// itself is safe for concurrent use.
type Catalog struct {
	db       *photodb.DB
	repeated bool
	logger   *slog.Logger
	memo     *memo
}

// New creates a Catalog. The memo starts empty and fills as the
// filesystem is traversed.
func New(cfg Config) (*Catalog, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("catalog: DB is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Catalog{
		db:       cfg.DB,
		repeated: cfg.Repeated,
		logger:   logger,
		memo:     newMemo(),
	}, nil
}

// Repeated reports whether hierarchy deduplication is disabled.
func (c *Catalog) Repeated() bool {
	return c.repeated
}

// TagID resolves a tag name to its id. Returns ErrNotFound when no
// tag has that name.
func (c *Catalog) TagID(ctx context.Context, name string) (int64, error) {
	return memoized(ctx, c.memo, memoKey{op: opTagID, name: name}, func(ctx context.Context) (int64, error) {
		return c.db.TagIDByName(ctx, name)
	})
}

// TagNames returns the names of every tag in the catalog. The result
// is the shared memoized slice: callers must not modify it.
func (c *Catalog) TagNames(ctx context.Context) ([]string, error) {
	return memoized(ctx, c.memo, memoKey{op: opTagNames}, func(ctx context.Context) ([]string, error) {
		return c.db.TagNames(ctx)
	})
}

// ChildNames returns the names of the direct children of parentID, in
// database order; sorting is a listing-time concern. Parent id 0
// selects the top-level tags. The result is the shared memoized
// slice: callers must not modify it.
func (c *Catalog) ChildNames(ctx context.Context, parentID int64) ([]string, error) {
	return memoized(ctx, c.memo, memoKey{op: opChildNames, id: parentID}, func(ctx context.Context) ([]string, error) {
		return c.db.ChildTagNames(ctx, parentID)
	})
}

// Descendants returns every tag id transitively below tagID, excluding
// tagID itself, sorted ascending. Only the final closure is memoized,
// not per-level sub-results.
//
// The walk keeps a visited set so that a database malformed into a
// cycle terminates instead of recursing forever; seeding the set with
// the root is what keeps the root itself out of the closure.
func (c *Catalog) Descendants(ctx context.Context, tagID int64) ([]int64, error) {
	return memoized(ctx, c.memo, memoKey{op: opDescendants, id: tagID}, func(ctx context.Context) ([]int64, error) {
		visited := map[int64]bool{tagID: true}
		var closure []int64

		stack := []int64{tagID}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			children, err := c.db.ChildTagIDs(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("catalog: descendants of tag %d: %w", tagID, err)
			}
			for _, child := range children {
				if visited[child] {
					c.logger.Warn("tag hierarchy contains a cycle",
						"root", tagID,
						"revisited", child,
					)
					continue
				}
				visited[child] = true
				closure = append(closure, child)
				stack = append(stack, child)
			}
		}

		sort.Slice(closure, func(i, j int) bool { return closure[i] < closure[j] })
		return closure, nil
	})
}

// Photos returns the photo filenames visible at a tag. A nil tagID
// denotes the root and returns every photo in the catalog.
//
// For a real tag the default policy shows each photo only at its most
// specific level: photos also assigned to a tag in the descendant
// closure are subtracted. Repeated mode skips the subtraction.
// The result is the shared memoized slice: callers must not modify it.
func (c *Catalog) Photos(ctx context.Context, tagID *int64) ([]string, error) {
	if tagID == nil {
		return memoized(ctx, c.memo, memoKey{op: opAllPhotos}, func(ctx context.Context) ([]string, error) {
			return c.db.AllPhotoNames(ctx)
		})
	}

	id := *tagID
	return memoized(ctx, c.memo, memoKey{op: opTagPhotos, id: id}, func(ctx context.Context) ([]string, error) {
		if c.repeated {
			return c.db.PhotoNamesForTag(ctx, id)
		}
		descendants, err := c.Descendants(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(descendants) == 0 {
			return c.db.PhotoNamesForTag(ctx, id)
		}
		return c.db.PhotoNamesForTagExcluding(ctx, id, descendants)
	})
}

// CacheSize reports the number of memoized results, for diagnostics.
func (c *Catalog) CacheSize() int {
	return c.memo.len()
}
