// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// LinkTarget resolves the absolute on-disk path a photo entry's
// symbolic link should point to. An empty tagName denotes a photo
// listed at the root, which is looked up by filename alone.
//
// F-Spot stores photo locations as a file:// base URI plus a bare
// filename, both possibly percent-encoded. The scheme prefix is
// stripped and the joined path decoded; if decoding fails the encoded
// path is returned as-is rather than failing the lookup.
//
// Returns ErrNotFound when no matching photo (or tag assignment)
// exists.
func (c *Catalog) LinkTarget(ctx context.Context, tagName, filename string) (string, error) {
	var tagID int64
	if tagName != "" {
		id, err := c.TagID(ctx, tagName)
		if err != nil {
			return "", err
		}
		tagID = id
	}

	return memoized(ctx, c.memo, memoKey{op: opLink, id: tagID, name: filename}, func(ctx context.Context) (string, error) {
		var baseURI, name string
		var err error
		if tagID == 0 {
			baseURI, name, err = c.db.PhotoLocationByName(ctx, filename)
		} else {
			baseURI, name, err = c.db.PhotoLocation(ctx, tagID, filename)
		}
		if err != nil {
			return "", err
		}
		return linkTarget(baseURI, name), nil
	})
}

// linkTarget joins a file:// base URI with a filename and
// percent-decodes the result.
func linkTarget(baseURI, filename string) string {
	directory := strings.TrimPrefix(baseURI, "file://")
	joined := path.Join(directory, filename)
	if decoded, err := url.PathUnescape(joined); err == nil {
		return decoded
	}
	return joined
}
