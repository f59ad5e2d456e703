// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse exposes an F-Spot tag catalog as a read-only FUSE
// filesystem: tags are directories, photos are symbolic links to the
// on-disk image files.
//
// The package has two layers. [FS] is the virtual-filesystem adapter:
// pure path operations (Classify, ListDirectory, Inspect, ResolveLink,
// CheckAccess) over a catalog, testable without a kernel mount.
// [Mount] binds an FS to the kernel through go-fuse; the node types
// are thin and delegate every operation to the FS by full virtual
// path.
//
// # Path classification
//
// A virtual path resolves to one of four states: the root, a tag
// directory, a photo file, or nothing. A basename matching any tag
// name anywhere in the hierarchy classifies as that tag's directory;
// otherwise a basename present in the photo set of the parent
// directory's tag classifies as a file. Tags shadow files when a tag
// name and a photo filename coincide at one level.
//
// # Attributes
//
// The schema has no per-entity timestamps, so every entry carries a
// single mount-time value. Photo entries report the size of the
// resolved on-disk file, degrading to 0 when the link target is
// missing.
//
// # Write path
//
// Not implemented. The mount is read-only; Access denies any write
// mask and no mutation node interfaces are registered.
package fuse
