// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/fspotfs/fspotfs/lib/catalog"
	"github.com/fspotfs/fspotfs/lib/clock"
	"github.com/fspotfs/fspotfs/lib/photodb"
)

// testMountTime is the fixed fake-clock instant used by every test.
var testMountTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testSchema = `
	CREATE TABLE meta (id INTEGER PRIMARY KEY, name TEXT, data TEXT);
	CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT, category_id INTEGER);
	CREATE TABLE photos (id INTEGER PRIMARY KEY, base_uri TEXT, filename TEXT);
	CREATE TABLE photo_tags (photo_id INTEGER, tag_id INTEGER);
	INSERT INTO meta (name, data) VALUES ('F-Spot Database Version', '17.1');
`

// newFixtureFS builds a catalog from the given fixture script and
// wraps it in an adapter with a fake clock.
func newFixtureFS(t *testing.T, fixture string, repeated bool) *FS {
	t.Helper()

	path := filepath.Join(t.TempDir(), "photos.db")
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		t.Fatalf("OpenConn: %v", err)
	}
	if err := sqlitex.ExecuteScript(conn, testSchema+fixture, nil); err != nil {
		conn.Close()
		t.Fatalf("ExecuteScript: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("closing fixture connection: %v", err)
	}

	db, err := photodb.Open(photodb.Config{Path: path, PoolSize: 2})
	if err != nil {
		t.Fatalf("photodb.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	cat, err := catalog.New(catalog.Config{DB: db, Repeated: repeated})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	vfs, err := NewFS(cat, clock.Fake(testMountTime), nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return vfs
}

// newScenarioFS builds the Vacation/Beach scenario with real image
// files on disk: img1.jpg exists, ghost.jpg points nowhere, solo.jpg
// is untagged. Returns the adapter and the directory holding the
// images.
func newScenarioFS(t *testing.T, repeated bool) (*FS, string) {
	t.Helper()

	picsDir := t.TempDir()
	for _, name := range []string{"img1.jpg", "solo.jpg"} {
		if err := os.WriteFile(filepath.Join(picsDir, name), []byte("image-bytes"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	fixture := fmt.Sprintf(`
		INSERT INTO tags VALUES (1, 'Vacation', 0);
		INSERT INTO tags VALUES (2, 'Beach', 1);
		INSERT INTO photos VALUES (10, 'file://%[1]s', 'img1.jpg');
		INSERT INTO photos VALUES (11, 'file://%[1]s', 'solo.jpg');
		INSERT INTO photos VALUES (12, 'file:///nowhere', 'ghost.jpg');
		INSERT INTO photo_tags VALUES (10, 2);
		INSERT INTO photo_tags VALUES (12, 2);
	`, picsDir)

	return newFixtureFS(t, fixture, repeated), picsDir
}

func TestClassify(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	tests := []struct {
		path    string
		kind    Kind
		tagName string
		name    string
	}{
		{path: "/", kind: KindRoot},
		{path: "/Vacation", kind: KindDirectory, tagName: "Vacation"},
		{path: "/Vacation/Beach", kind: KindDirectory, tagName: "Beach"},
		// Classification is by basename against the global tag set:
		// a tag resolves as a directory under any prefix.
		{path: "/Beach", kind: KindDirectory, tagName: "Beach"},
		{path: "/Vacation/Beach/img1.jpg", kind: KindFile, tagName: "Beach", name: "img1.jpg"},
		{path: "/solo.jpg", kind: KindFile, name: "solo.jpg"},
	}
	for _, tt := range tests {
		entry, err := vfs.Classify(ctx, tt.path)
		if err != nil {
			t.Errorf("Classify(%q): %v", tt.path, err)
			continue
		}
		if entry.Kind != tt.kind || entry.TagName != tt.tagName || entry.Name != tt.name {
			t.Errorf("Classify(%q) = %+v, want kind=%d tag=%q name=%q",
				tt.path, entry, tt.kind, tt.tagName, tt.name)
		}
	}
}

func TestClassifyNotFound(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	for _, path := range []string{
		"/Nope",
		"/Vacation/Missing.jpg",
		// img1 is only visible under Beach, not directly at Vacation.
		"/Vacation/img1.jpg",
	} {
		if _, err := vfs.Classify(ctx, path); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Classify(%q): want ErrNotFound, got %v", path, err)
		}
	}
}

func TestListDirectory(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	tests := []struct {
		path string
		want []DirEntry
	}{
		{
			path: "/",
			want: []DirEntry{
				{Name: ".", Kind: KindDirectory},
				{Name: "..", Kind: KindDirectory},
				{Name: "Vacation", Kind: KindDirectory},
				{Name: "ghost.jpg", Kind: KindFile},
				{Name: "img1.jpg", Kind: KindFile},
				{Name: "solo.jpg", Kind: KindFile},
			},
		},
		{
			path: "/Vacation",
			want: []DirEntry{
				{Name: ".", Kind: KindDirectory},
				{Name: "..", Kind: KindDirectory},
				{Name: "Beach", Kind: KindDirectory},
			},
		},
		{
			path: "/Vacation/Beach",
			want: []DirEntry{
				{Name: ".", Kind: KindDirectory},
				{Name: "..", Kind: KindDirectory},
				{Name: "ghost.jpg", Kind: KindFile},
				{Name: "img1.jpg", Kind: KindFile},
			},
		},
	}
	for _, tt := range tests {
		got, err := vfs.ListDirectory(ctx, tt.path)
		if err != nil {
			t.Errorf("ListDirectory(%q): %v", tt.path, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ListDirectory(%q) = %v, want %v", tt.path, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ListDirectory(%q)[%d] = %+v, want %+v", tt.path, i, got[i], tt.want[i])
			}
		}
	}
}

func TestListDirectoryTagsShadowFiles(t *testing.T) {
	vfs := newFixtureFS(t, `
		INSERT INTO tags VALUES (1, 'Vacation', 0);
		INSERT INTO tags VALUES (2, 'Beach', 1);
		INSERT INTO photos VALUES (10, 'file:///pics', 'Beach');
		INSERT INTO photo_tags VALUES (10, 1);
	`, false)
	ctx := context.Background()

	entries, err := vfs.ListDirectory(ctx, "/Vacation")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}

	var beachCount int
	for _, entry := range entries {
		if entry.Name == "Beach" {
			beachCount++
			if entry.Kind != KindDirectory {
				t.Errorf("Beach listed as %d, want directory", entry.Kind)
			}
		}
	}
	if beachCount != 1 {
		t.Fatalf("Beach appears %d times, want exactly once", beachCount)
	}
}

func TestListDirectoryOnFile(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	if _, err := vfs.ListDirectory(ctx, "/Vacation/Beach/img1.jpg"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestEveryListedFileResolves(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	var walk func(dir string)
	walk = func(dir string) {
		entries, err := vfs.ListDirectory(ctx, dir)
		if err != nil {
			t.Fatalf("ListDirectory(%q): %v", dir, err)
		}
		for _, entry := range entries {
			if entry.Name == "." || entry.Name == ".." {
				continue
			}
			full := filepath.Join(dir, entry.Name)
			switch entry.Kind {
			case KindDirectory:
				walk(full)
			case KindFile:
				if _, err := vfs.ResolveLink(ctx, full); err != nil {
					t.Errorf("ResolveLink(%q): %v", full, err)
				}
			}
		}
	}
	walk("/")
}

func TestInspectDirectory(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	for _, path := range []string{"/", "/Vacation", "/Vacation/Beach"} {
		attr, err := vfs.Inspect(ctx, path)
		if err != nil {
			t.Fatalf("Inspect(%q): %v", path, err)
		}
		if attr.Kind == KindFile {
			t.Errorf("Inspect(%q) classified as file", path)
		}
		if attr.Nlink != 2 {
			t.Errorf("Inspect(%q).Nlink = %d, want 2", path, attr.Nlink)
		}
		if !attr.Time.Equal(testMountTime) {
			t.Errorf("Inspect(%q).Time = %v, want mount time", path, attr.Time)
		}
	}
}

func TestInspectFileSize(t *testing.T) {
	vfs, picsDir := newScenarioFS(t, false)
	ctx := context.Background()

	info, err := os.Stat(filepath.Join(picsDir, "img1.jpg"))
	if err != nil {
		t.Fatalf("Stat fixture: %v", err)
	}

	attr, err := vfs.Inspect(ctx, "/Vacation/Beach/img1.jpg")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if attr.Kind != KindFile {
		t.Fatalf("kind = %d, want file", attr.Kind)
	}
	if attr.Size != info.Size() {
		t.Fatalf("size = %d, want %d", attr.Size, info.Size())
	}
	if !attr.Time.Equal(testMountTime) {
		t.Fatalf("time = %v, want mount time", attr.Time)
	}
}

func TestInspectMissingTargetDegradesToZeroSize(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	attr, err := vfs.Inspect(ctx, "/Vacation/Beach/ghost.jpg")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if attr.Kind != KindFile || attr.Size != 0 {
		t.Fatalf("attr = %+v, want file with size 0", attr)
	}
}

func TestInspectNotFound(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	if _, err := vfs.Inspect(ctx, "/Vacation/Missing.jpg"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResolveLink(t *testing.T) {
	vfs, picsDir := newScenarioFS(t, false)
	ctx := context.Background()

	target, err := vfs.ResolveLink(ctx, "/Vacation/Beach/img1.jpg")
	if err != nil {
		t.Fatalf("ResolveLink: %v", err)
	}
	if want := filepath.Join(picsDir, "img1.jpg"); target != want {
		t.Fatalf("target = %q, want %q", target, want)
	}

	// Directories have no link target.
	if _, err := vfs.ResolveLink(ctx, "/Vacation"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want ErrNotFound for directory, got %v", err)
	}
}

func TestCheckAccess(t *testing.T) {
	vfs, _ := newScenarioFS(t, false)
	ctx := context.Background()

	for _, path := range []string{"/", "/Vacation", "/Vacation/Beach/img1.jpg"} {
		if err := vfs.CheckAccess(ctx, path); err != nil {
			t.Errorf("CheckAccess(%q): %v", path, err)
		}
	}
	if err := vfs.CheckAccess(ctx, "/Vacation/Missing.jpg"); err == nil {
		t.Error("CheckAccess on a missing entry should fail")
	}
}

func TestRepeatedModeListsPhotoAtEveryTag(t *testing.T) {
	picsFixture := `
		INSERT INTO tags VALUES (1, 'Vacation', 0);
		INSERT INTO tags VALUES (2, 'Beach', 1);
		INSERT INTO photos VALUES (10, 'file:///pics', 'img1.jpg');
		INSERT INTO photo_tags VALUES (10, 1);
		INSERT INTO photo_tags VALUES (10, 2);
	`

	deduped := newFixtureFS(t, picsFixture, false)
	repeated := newFixtureFS(t, picsFixture, true)
	ctx := context.Background()

	if _, err := deduped.Classify(ctx, "/Vacation/img1.jpg"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("deduped: img1 should be hidden at Vacation, got %v", err)
	}
	if _, err := repeated.Classify(ctx, "/Vacation/img1.jpg"); err != nil {
		t.Fatalf("repeated: img1 should be visible at Vacation: %v", err)
	}
	if _, err := repeated.Classify(ctx, "/Vacation/Beach/img1.jpg"); err != nil {
		t.Fatalf("repeated: img1 should be visible at Beach: %v", err)
	}
}
