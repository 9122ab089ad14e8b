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

package chrootfs

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// NewMount validates and constructs a Mount (the fs-ops "mount" entry).
// uri must use the "file:" or "dev:" scheme; "dir:" is reserved for the
// URI translator's own internal use and is never a valid mount URI.
func NewMount(uri string, backend pal.PAL) (*Mount, error) {
	if !strings.HasPrefix(uri, schemeFile) && !strings.HasPrefix(uri, schemeDev) {
		return nil, pal.ErrInvalidArg
	}
	return &Mount{URI: uri, PAL: backend}, nil
}

// FSOps is the file-ops table: operations that act on an already-open
// handle.
type FSOps struct {
	Flush    func(ctx context.Context, h *Handle) error
	Read     func(ctx context.Context, h *Handle, buf []byte) (int, error)
	Write    func(ctx context.Context, h *Handle, buf []byte) (int, error)
	Mmap     func(ctx context.Context, h *Handle, size int64, prot, flags uint32, off int64) ([]byte, error)
	Seek     func(h *Handle, offset int64, whence int) (int64, error)
	Hstat    func(h *Handle) Stat
	Truncate func(ctx context.Context, h *Handle, size int64) error
	Poll     func(h *Handle, want PollMask) (PollMask, error)
	Checkout func(ctx context.Context, h *Handle) error
	Checkin  func(ctx context.Context, h *Handle) error
}

// DOps is the dentry-ops table: operations that act on a path in the
// namespace, independent of any open handle.
type DOps struct {
	Open    func(ctx context.Context, hdl *Handle, dent *Dentry, flags int) error
	Lookup  func(ctx context.Context, dent *Dentry) error
	Creat   func(ctx context.Context, hdl *Handle, dent *Dentry, flags int, perm uint32) error
	Mkdir   func(ctx context.Context, dent *Dentry, perm uint32) error
	Stat    func(dent *Dentry) Stat
	Readdir func(ctx context.Context, dent *Dentry, cb func(name string) error) error
	Unlink  func(ctx context.Context, dent *Dentry) error
	Rename  func(ctx context.Context, oldDent, newDent *Dentry) error
	Chmod   func(ctx context.Context, dent *Dentry, perm uint32) error
}

// Descriptor is the filesystem descriptor: a name plus the two
// operation tables.
type Descriptor struct {
	Name  string
	FSOps FSOps
	DOps  DOps
}

// New builds the "chroot" filesystem descriptor. log may be nil, in
// which case the warnings normally emitted on a host FIFO lookup or a
// failed checkpoint-restore reopen are simply dropped.
//
// Readdir is wired to HostReaddir (the on-disk listing), not the cached
// generic Readdir helper — that one backs the directory-ops fallback a
// directory file description uses once it already has a listing, which
// this package leaves to callers since it isn't part of the dentry-ops
// contract.
func New(log logrus.FieldLogger) Descriptor {
	return Descriptor{
		Name: "chroot",
		FSOps: FSOps{
			Flush:    Flush,
			Read:     Read,
			Write:    Write,
			Mmap:     Mmap,
			Seek:     Seek,
			Hstat:    Hstat,
			Truncate: Truncate,
			Poll:     Poll,
			Checkout: func(ctx context.Context, h *Handle) error { return Checkout(ctx, h) },
			Checkin:  func(ctx context.Context, h *Handle) error { return Checkin(ctx, log, h) },
		},
		DOps: DOps{
			Open:    Open,
			Lookup:  func(ctx context.Context, dent *Dentry) error { return Lookup(ctx, log, dent) },
			Creat:   Creat,
			Mkdir:   Mkdir,
			Stat:    StatDentry,
			Readdir: HostReaddir,
			Unlink:  Unlink,
			Rename:  Rename,
			Chmod:   Chmod,
		},
	}
}
