// Copyright 2026 The chrootfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chrootfs implements the chroot filesystem personality: it maps
// guest-visible POSIX filesystem operations onto host-backed PAL streams,
// while maintaining an in-memory dentry/inode cache.
//
// Dentries form a cached tree, each materialized dentry owns an inode,
// and each open handle owns a live PAL capability. There is exactly one
// PAL handle class, so the dentry/inode/handle model here stays small.
package chrootfs

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// FileType is the inode type, packed into the file-type (S_IFMT) bits of
// a stat mode the same way Linux does (S_IFREG, S_IFDIR, S_IFCHR). FileType(0) is
// reserved as the "keep the mount's own scheme" sentinel used by
// uriFor — no real S_IFxxx constant is ever zero, so the sentinel never
// collides with a legitimate type.
type FileType uint32

const (
	TypeKeep FileType = 0
	TypeReg  FileType = unix.S_IFREG
	TypeDir  FileType = unix.S_IFDIR
	TypeChr  FileType = unix.S_IFCHR
)

// Mount binds a guest-visible path prefix to a PAL URI prefix. Mount
// identity is stable for the mount's lifetime.
type Mount struct {
	// URI is "file:<root>" or "dev:<root>"; root may be empty, meaning
	// the current directory (translated to "." by the URI translator).
	URI string
	PAL pal.PAL
}

// Inode is the cached metadata object associated with at most one dentry
// via materialization, and with any number of open handles.
//
// size is protected by mu; it is only meaningful when Type == TypeReg.
// perm is protected by mu as well: the inode lock protects both size
// and perm.
type Inode struct {
	Type  FileType
	Mount *Mount

	mu   sync.Mutex
	perm uint32 // 9-bit guest-visible mode
	size int64  // REG only; always 0 for DIR/CHR
}

// NewInode creates an inode with the given type, permission, and size.
// size must be 0 unless typ == TypeReg.
func NewInode(mount *Mount, typ FileType, perm uint32, size int64) *Inode {
	return &Inode{Type: typ, Mount: mount, perm: perm & 0o777, size: size}
}

func (i *Inode) Perm() uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.perm
}

func (i *Inode) SetPerm(perm uint32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.perm = perm & 0o777
}

func (i *Inode) Size() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.size
}

// Lock/Unlock expose the inode's lock directly for call sites that need
// to hold it across more than one field access (write, truncate, chmod)
// without re-entering through the accessor methods above.
func (i *Inode) Lock()   { i.mu.Lock() }
func (i *Inode) Unlock() { i.mu.Unlock() }

// sizeLocked and setSizeLocked assume i.mu is held.
func (i *Inode) sizeLocked() int64        { return i.size }
func (i *Inode) setSizeLocked(size int64) { i.size = size }
func (i *Inode) permLocked() uint32       { return i.perm }
func (i *Inode) setPermLocked(perm uint32) { i.perm = perm & 0o777 }

// Dentry is a node in the directory cache tree.
//
// All dentry-tree mutations and dentry->inode linking are guarded by the
// package-level dcache lock (see lock.go), not by a per-dentry mutex —
// there is a single global lock for the whole tree.
type Dentry struct {
	Parent   *Dentry // non-owning; nil for a mount root
	Name     string
	Mount    *Mount
	Inode    *Inode // nil until lookup materializes it
	children map[string]*Dentry
}

// NewRootDentry creates the (unnamed) root dentry of a mount.
func NewRootDentry(mount *Mount) *Dentry {
	return &Dentry{Mount: mount}
}

// Child returns the named child dentry, creating a negative (inode-less)
// one if it doesn't exist yet. Callers must hold the dcache lock.
func (d *Dentry) Child(name string) *Dentry {
	if d.children == nil {
		d.children = make(map[string]*Dentry)
	}
	if c, ok := d.children[name]; ok && c != nil {
		return c
	}
	c := &Dentry{Parent: d, Name: name, Mount: d.Mount}
	d.children[name] = c
	return c
}

// ForEachChild invokes fn for every cached child that has an inode
// materialized. Callers must hold the dcache lock.
func (d *Dentry) ForEachChild(fn func(*Dentry) error) error {
	for _, c := range d.children {
		if c == nil || c.Inode == nil {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Handle is an open-file object carrying position and a live PAL
// capability.
//
// pos and palHandle are protected by mu.
type Handle struct {
	Dentry *Dentry
	Inode  *Inode
	// URI is the exact URI used to open; preserved verbatim so the
	// handle can be reopened after checkpoint restore.
	URI   string
	Flags int

	mu        sync.Mutex
	pos       int64
	palHandle pal.Handle // nil after checkout, until checkin reopens it
}

func (h *Handle) Pos() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}
