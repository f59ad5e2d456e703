// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the tag-hierarchy resolution engine at
// the core of fspotfs.
//
// A [Catalog] answers four questions about an F-Spot photo database:
//
//   - name resolution: which tag id does a path segment denote
//     ([Catalog.TagID], [Catalog.TagNames], [Catalog.ChildNames])
//   - descendant closure: which tags sit transitively below a tag
//     ([Catalog.Descendants])
//   - photo visibility: which photo filenames appear under a tag,
//     after deduplicating photos that are also assigned to a more
//     specific descendant tag ([Catalog.Photos])
//   - link targets: where on disk a photo entry points
//     ([Catalog.LinkTarget])
//
// Every answer is memoized for the lifetime of the process. The
// backing database is read-only for the duration of a mounted session,
// so cached results cannot go stale; the cache is rebuilt on restart.
// The memo is safe for concurrent use: the FUSE transport may dispatch
// operations from multiple goroutines.
//
// # Deduplication
//
// By default a photo assigned to both a tag and one of that tag's
// descendants is shown only at the most specific level: Photos
// subtracts from a tag's direct assignments every photo assigned to
// any tag in the descendant closure. Repeated mode disables the
// subtraction, showing a photo at every tag it carries.
package catalog
