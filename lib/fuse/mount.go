// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/fspotfs/fspotfs/lib/catalog"
	"github.com/fspotfs/fspotfs/lib/clock"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if it does not exist.
	Mountpoint string

	// Catalog resolves tags, photo sets, and link targets. Required.
	Catalog *catalog.Catalog

	// Clock supplies the mount timestamp applied to every entry. If
	// nil, the system clock is used.
	Clock clock.Clock

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Mount mounts the photo filesystem at the configured mountpoint. The
// caller must call Unmount on the returned Server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("fuse: mountpoint is required")
	}

	vfs, err := NewFS(options.Catalog, options.Clock, options.Logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("fuse: creating mountpoint %s: %w", options.Mountpoint, err)
	}

	// The catalog is immutable for the session, so generous kernel
	// caching of entries and attributes is safe.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, &dirNode{vfs: vfs}, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "fspotfs",
			Name:       "fspot",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fuse: mounting at %s: %w", options.Mountpoint, err)
	}

	vfs.logger.Info("photo filesystem mounted",
		"mountpoint", options.Mountpoint,
		"repeated", options.Catalog.Repeated(),
	)
	return server, nil
}

// writeMask is the W_OK bit of an access(2) mode mask.
const writeMask = 0x2

// dirNode is a tag directory (the root included; the root is the tag
// hierarchy's top level). Nodes carry no state beyond the adapter:
// every operation resolves the node's full virtual path and delegates.
type dirNode struct {
	gofuse.Inode
	vfs *FS
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)
var _ gofuse.NodeAccesser = (*dirNode)(nil)

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := path.Join(nodePath(&n.Inode), name)

	attr, err := n.vfs.Inspect(ctx, childPath)
	if err != nil {
		return nil, syscall.ENOENT
	}
	fillAttr(&out.Attr, attr)

	switch attr.Kind {
	case KindFile:
		child := n.NewInode(ctx, &linkNode{vfs: n.vfs}, gofuse.StableAttr{Mode: syscall.S_IFLNK})
		return child, 0
	default:
		child := n.NewInode(ctx, &dirNode{vfs: n.vfs}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
		return child, 0
	}
}

func (n *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	listing, err := n.vfs.ListDirectory(ctx, nodePath(&n.Inode))
	if err != nil {
		return nil, syscall.ENOENT
	}

	entries := make([]fuse.DirEntry, 0, len(listing))
	for _, entry := range listing {
		mode := uint32(syscall.S_IFDIR)
		if entry.Kind == KindFile {
			mode = syscall.S_IFLNK
		}
		entries = append(entries, fuse.DirEntry{Name: entry.Name, Mode: mode})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.vfs.Inspect(ctx, nodePath(&n.Inode))
	if err != nil {
		return syscall.ENOENT
	}
	fillAttr(&out.Attr, attr)
	return 0
}

func (n *dirNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	return checkAccess(ctx, n.vfs, nodePath(&n.Inode), mask)
}

// linkNode is a photo entry: a symlink to the image file on disk.
type linkNode struct {
	gofuse.Inode
	vfs *FS
}

var _ gofuse.InodeEmbedder = (*linkNode)(nil)
var _ gofuse.NodeReadlinker = (*linkNode)(nil)
var _ gofuse.NodeGetattrer = (*linkNode)(nil)
var _ gofuse.NodeAccesser = (*linkNode)(nil)

func (n *linkNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.vfs.ResolveLink(ctx, nodePath(&n.Inode))
	if err != nil {
		return nil, syscall.ENOENT
	}
	return []byte(target), 0
}

func (n *linkNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.vfs.Inspect(ctx, nodePath(&n.Inode))
	if err != nil {
		return syscall.ENOENT
	}
	fillAttr(&out.Attr, attr)
	return 0
}

func (n *linkNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	return checkAccess(ctx, n.vfs, nodePath(&n.Inode), mask)
}

func checkAccess(ctx context.Context, vfs *FS, virtualPath string, mask uint32) syscall.Errno {
	if mask&writeMask != 0 {
		return syscall.EROFS
	}
	if err := vfs.CheckAccess(ctx, virtualPath); err != nil {
		return syscall.EACCES
	}
	return 0
}

// nodePath returns the node's full virtual path, rooted at "/".
func nodePath(inode *gofuse.Inode) string {
	p := inode.Path(nil)
	if p == "" {
		return "/"
	}
	return "/" + p
}

func fillAttr(out *fuse.Attr, attr Attr) {
	switch attr.Kind {
	case KindFile:
		out.Mode = syscall.S_IFLNK | 0o644
	default:
		out.Mode = syscall.S_IFDIR | 0o755
	}
	out.Nlink = attr.Nlink
	out.Size = uint64(attr.Size)
	t := attr.Time
	out.SetTimes(&t, &t, &t)
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
