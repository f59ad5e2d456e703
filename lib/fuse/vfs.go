// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"slices"
	"sort"
	"time"

	"github.com/fspotfs/fspotfs/lib/catalog"
	"github.com/fspotfs/fspotfs/lib/clock"
)

// Kind classifies what a virtual path denotes.
type Kind uint8

const (
	// KindRoot is the filesystem root, always a directory.
	KindRoot Kind = iota
	// KindDirectory is a tag directory.
	KindDirectory
	// KindFile is a photo symlink entry.
	KindFile
)

// Entry is the result of classifying a virtual path. For a directory,
// TagID and TagName identify the tag. For a file, they identify the
// parent directory's tag; both are zero-valued for a file at the root,
// where the photo set is the whole catalog.
type Entry struct {
	Kind    Kind
	TagID   int64
	TagName string
	Name    string // file basename, empty for directories
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string
	Kind Kind // KindDirectory or KindFile
}

// Attr holds the synthesized attributes of a virtual entry. Atime,
// mtime and ctime all carry the same mount-time value.
type Attr struct {
	Kind  Kind
	Nlink uint32
	Size  int64
	Time  time.Time
}

// FS is the virtual-filesystem adapter over a catalog. It holds no
// mutable state of its own; all memoization lives in the catalog, so
// FS is safe for concurrent use.
type FS struct {
	catalog   *catalog.Catalog
	logger    *slog.Logger
	mountTime time.Time
}

// NewFS creates the adapter. The clock is read once, here: the
// resulting timestamp is reused for every attribute of the session.
func NewFS(cat *catalog.Catalog, clk clock.Clock, logger *slog.Logger) (*FS, error) {
	if cat == nil {
		return nil, fmt.Errorf("fuse: catalog is required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FS{
		catalog:   cat,
		logger:    logger,
		mountTime: clk.Now(),
	}, nil
}

// MountTime returns the timestamp applied to every entry.
func (v *FS) MountTime() time.Time {
	return v.mountTime
}

// Classify resolves a virtual path to Root, Directory, or File, or
// returns catalog.ErrNotFound.
//
// Any basename matching a tag name anywhere in the hierarchy resolves
// as that tag's directory, independent of the path leading to it;
// only listings are hierarchical. This keeps classification a pure
// function of (basename, parent basename) and makes tags shadow
// same-named files.
func (v *FS) Classify(ctx context.Context, virtualPath string) (Entry, error) {
	cleaned := cleanPath(virtualPath)
	if cleaned == "/" {
		return Entry{Kind: KindRoot}, nil
	}

	base := path.Base(cleaned)

	tagNames, err := v.catalog.TagNames(ctx)
	if err != nil {
		return Entry{}, err
	}
	if slices.Contains(tagNames, base) {
		id, err := v.catalog.TagID(ctx, base)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Kind: KindDirectory, TagID: id, TagName: base}, nil
	}

	// Not a tag: a file, if the parent directory's photo set has it.
	parent := path.Dir(cleaned)
	var parentTag *int64
	var parentName string
	if parent != "/" {
		parentName = path.Base(parent)
		id, err := v.catalog.TagID(ctx, parentName)
		if err != nil {
			return Entry{}, err
		}
		parentTag = &id
	}

	photos, err := v.catalog.Photos(ctx, parentTag)
	if err != nil {
		return Entry{}, err
	}
	if slices.Contains(photos, base) {
		entry := Entry{Kind: KindFile, TagName: parentName, Name: base}
		if parentTag != nil {
			entry.TagID = *parentTag
		}
		return entry, nil
	}

	return Entry{}, fmt.Errorf("fuse: %s: %w", cleaned, catalog.ErrNotFound)
}

// ListDirectory returns the fully materialized listing of a directory
// path: "." and "..", then child tag names sorted lexicographically,
// then photo filenames sorted lexicographically. A photo whose name
// collides with a sibling tag is suppressed (tags shadow files), and
// duplicate filenames appear once. The root lists the top-level tags
// and every photo in the catalog.
func (v *FS) ListDirectory(ctx context.Context, virtualPath string) ([]DirEntry, error) {
	entry, err := v.Classify(ctx, virtualPath)
	if err != nil {
		return nil, err
	}

	var parentID int64
	var photoTag *int64
	switch entry.Kind {
	case KindRoot:
		// Top-level tags have category_id 0.
	case KindDirectory:
		parentID = entry.TagID
		photoTag = &entry.TagID
	default:
		return nil, fmt.Errorf("fuse: %s is not a directory: %w", virtualPath, catalog.ErrNotFound)
	}

	childNames, err := v.catalog.ChildNames(ctx, parentID)
	if err != nil {
		return nil, err
	}
	photos, err := v.catalog.Photos(ctx, photoTag)
	if err != nil {
		return nil, err
	}

	tags := slices.Clone(childNames)
	sort.Strings(tags)

	shadowed := make(map[string]bool, len(tags))
	for _, name := range tags {
		shadowed[name] = true
	}

	var files []string
	for _, name := range photos {
		if shadowed[name] {
			continue
		}
		shadowed[name] = true
		files = append(files, name)
	}
	sort.Strings(files)

	entries := make([]DirEntry, 0, len(tags)+len(files)+2)
	entries = append(entries,
		DirEntry{Name: ".", Kind: KindDirectory},
		DirEntry{Name: "..", Kind: KindDirectory},
	)
	for _, name := range tags {
		entries = append(entries, DirEntry{Name: name, Kind: KindDirectory})
	}
	for _, name := range files {
		entries = append(entries, DirEntry{Name: name, Kind: KindFile})
	}
	return entries, nil
}

// Inspect returns the synthesized attributes of a virtual path.
// Directories are fixed-shape; photo entries report the size of the
// resolved on-disk file, 0 when the target cannot be resolved or
// stat'ed.
func (v *FS) Inspect(ctx context.Context, virtualPath string) (Attr, error) {
	entry, err := v.Classify(ctx, virtualPath)
	if err != nil {
		return Attr{}, err
	}

	switch entry.Kind {
	case KindRoot, KindDirectory:
		return Attr{Kind: entry.Kind, Nlink: 2, Time: v.mountTime}, nil
	default:
		attr := Attr{Kind: KindFile, Nlink: 1, Time: v.mountTime}
		target, err := v.catalog.LinkTarget(ctx, entry.TagName, entry.Name)
		if err != nil {
			// Classified as present but the location row is gone or
			// malformed: degrade to size 0 instead of failing the
			// whole operation.
			v.logger.Warn("photo entry has no resolvable location",
				"tag", entry.TagName,
				"file", entry.Name,
				"error", err,
			)
			return attr, nil
		}
		if info, err := os.Stat(target); err == nil {
			attr.Size = info.Size()
		}
		return attr, nil
	}
}

// ResolveLink returns the symlink target for a photo entry path.
// Returns catalog.ErrNotFound when the path does not classify as a
// file.
func (v *FS) ResolveLink(ctx context.Context, virtualPath string) (string, error) {
	entry, err := v.Classify(ctx, virtualPath)
	if err != nil {
		return "", err
	}
	if entry.Kind != KindFile {
		return "", fmt.Errorf("fuse: %s is not a photo entry: %w", virtualPath, catalog.ErrNotFound)
	}
	return v.catalog.LinkTarget(ctx, entry.TagName, entry.Name)
}

// CheckAccess reports whether a virtual path resolves to an existing
// entry. The mount is read-only, so existence is the whole permission
// model; write access is denied at the transport layer.
func (v *FS) CheckAccess(ctx context.Context, virtualPath string) error {
	_, err := v.Classify(ctx, virtualPath)
	return err
}

// cleanPath normalizes a virtual path to a rooted, slash-separated
// form with no trailing slash.
func cleanPath(virtualPath string) string {
	if virtualPath == "" {
		return "/"
	}
	if virtualPath[0] != '/' {
		virtualPath = "/" + virtualPath
	}
	return path.Clean(virtualPath)
}
