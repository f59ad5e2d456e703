// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package photodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	querySchemaVersion = `SELECT data FROM meta
		WHERE name = 'F-Spot Database Version' LIMIT 1`

	// Duplicate tag names resolve to the lowest id so that
	// classification and listing agree on one winner.
	queryTagIDByName = `SELECT id FROM tags WHERE name = ?
		ORDER BY id LIMIT 1`

	queryTagNames = `SELECT name FROM tags`

	queryChildTagNames = `SELECT name FROM tags WHERE category_id = ?`

	queryChildTagIDs = `SELECT id FROM tags WHERE category_id = ?`

	queryAllPhotoNames = `SELECT filename FROM photos`

	queryPhotoNamesForTag = `SELECT p.filename
		FROM photo_tags pt
		JOIN photos p ON p.id = pt.photo_id
		WHERE pt.tag_id = ?`

	queryPhotoLocation = `SELECT p.base_uri, p.filename
		FROM photo_tags pt
		JOIN photos p ON p.id = pt.photo_id
		WHERE pt.tag_id = ? AND p.filename = ?
		LIMIT 1`

	queryPhotoLocationByName = `SELECT base_uri, filename FROM photos
		WHERE filename = ? LIMIT 1`
)

// SchemaVersion returns the catalog's schema version from the meta
// table. Returns ErrNotFound when the version record is absent.
func (d *DB) SchemaVersion(ctx context.Context) (float64, error) {
	rows, err := d.queryStrings(ctx, querySchemaVersion)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("photodb: schema version record: %w", ErrNotFound)
	}
	version, err := strconv.ParseFloat(rows[0], 64)
	if err != nil {
		return 0, fmt.Errorf("photodb: parsing schema version %q: %w", rows[0], err)
	}
	return version, nil
}

// SchemaMismatchError reports a schema version other than the one the
// queries in this package were written against.
type SchemaMismatchError struct {
	Found    float64
	Expected float64
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("photodb: database schema version %g, expected %g", e.Found, e.Expected)
}

// CheckSchemaVersion verifies the catalog's schema version against the
// expected one. Called once at startup; a failure is fatal and the
// rest of the system must not be constructed.
func (d *DB) CheckSchemaVersion(ctx context.Context, expected float64) error {
	found, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if found != expected {
		return &SchemaMismatchError{Found: found, Expected: expected}
	}
	return nil
}

// TagIDByName returns the id of the tag with the given name. Returns
// ErrNotFound when no tag has that name.
func (d *DB) TagIDByName(ctx context.Context, name string) (int64, error) {
	ids, err := d.queryInt64s(ctx, queryTagIDByName, name)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("photodb: tag %q: %w", name, ErrNotFound)
	}
	return ids[0], nil
}

// TagNames returns the names of every tag in the catalog, in no
// particular order.
func (d *DB) TagNames(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, queryTagNames)
}

// ChildTagNames returns the names of the direct children of parentID.
// Parent id 0 selects the top-level tags.
func (d *DB) ChildTagNames(ctx context.Context, parentID int64) ([]string, error) {
	return d.queryStrings(ctx, queryChildTagNames, parentID)
}

// ChildTagIDs returns the ids of the direct children of parentID.
func (d *DB) ChildTagIDs(ctx context.Context, parentID int64) ([]int64, error) {
	return d.queryInt64s(ctx, queryChildTagIDs, parentID)
}

// AllPhotoNames returns the filename of every photo in the catalog.
func (d *DB) AllPhotoNames(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, queryAllPhotoNames)
}

// PhotoNamesForTag returns the filenames of photos directly assigned
// to tagID.
func (d *DB) PhotoNamesForTag(ctx context.Context, tagID int64) ([]string, error) {
	return d.queryStrings(ctx, queryPhotoNamesForTag, tagID)
}

// PhotoNamesForTagExcluding returns the filenames of photos directly
// assigned to tagID, minus any photo that is also assigned to one of
// the excluded tags. The excluded set must be non-empty.
func (d *DB) PhotoNamesForTagExcluding(ctx context.Context, tagID int64, excluded []int64) ([]string, error) {
	if len(excluded) == 0 {
		return nil, fmt.Errorf("photodb: empty exclusion set for tag %d", tagID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(excluded)), ", ")
	query := `SELECT p.filename
		FROM photo_tags pt
		JOIN photos p ON p.id = pt.photo_id
		WHERE pt.tag_id = ? AND pt.photo_id NOT IN (
			SELECT DISTINCT pt2.photo_id FROM photo_tags pt2
			WHERE pt2.tag_id IN (` + placeholders + `))`

	args := make([]any, 0, len(excluded)+1)
	args = append(args, tagID)
	for _, id := range excluded {
		args = append(args, id)
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("photodb: take connection: %w", err)
	}
	defer d.pool.Put(conn)

	var out []string
	// Transient: the statement shape varies with the exclusion set
	// size, so it is not worth caching in the connection.
	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("photodb: photos for tag %d excluding descendants: %w", tagID, err)
	}
	return out, nil
}

// PhotoLocation returns the (base URI, filename) pair for the photo
// assigned to tagID with the given filename. Returns ErrNotFound when
// no such assignment exists.
func (d *DB) PhotoLocation(ctx context.Context, tagID int64, filename string) (baseURI, name string, err error) {
	return d.queryLocation(ctx, queryPhotoLocation, tagID, filename)
}

// PhotoLocationByName returns the (base URI, filename) pair for the
// photo with the given filename regardless of tag assignment. Used for
// photos listed at the root, which may carry no tag at all.
func (d *DB) PhotoLocationByName(ctx context.Context, filename string) (baseURI, name string, err error) {
	return d.queryLocation(ctx, queryPhotoLocationByName, filename)
}

func (d *DB) queryLocation(ctx context.Context, query string, args ...any) (baseURI, name string, err error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return "", "", fmt.Errorf("photodb: take connection: %w", err)
	}
	defer d.pool.Put(conn)

	found := false
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			baseURI = stmt.ColumnText(0)
			name = stmt.ColumnText(1)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("photodb: photo location: %w", err)
	}
	if !found {
		return "", "", fmt.Errorf("photodb: photo location %v: %w", args, ErrNotFound)
	}
	return baseURI, name, nil
}
