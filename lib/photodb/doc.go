// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package photodb provides read-only access to an F-Spot photo
// catalog (a SQLite database).
//
// The package wraps a fixed-size connection pool with pragmas tuned
// for a read-only workload (query_only, in-memory temp store, mmap).
// Individual connections are not safe for concurrent use; callers go
// through the query methods on [DB], which borrow and return pooled
// connections per call. There is no cross-call transaction state —
// every query is an independent read.
//
// The schema this package depends on is the F-Spot one:
//
//	meta(name, data)                — schema version record
//	tags(id, name, category_id)    — category_id 0 marks a top-level tag
//	photos(id, base_uri, filename) — base_uri is a file:// URI
//	photo_tags(photo_id, tag_id)   — many-to-many tag assignments
//
// [DB.CheckSchemaVersion] must pass before the rest of the system is
// constructed; a mismatch is a fatal startup condition, not a
// steady-state error.
package photodb
