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

// Package localpal is a concrete PAL backed directly by host syscalls.
//
// It resolves a namespace of typed stream URIs ("file:", "dir:", "dev:")
// straight onto the host filesystem, with no wire protocol in between:
// every operation maps directly onto host syscalls, on a host path or
// an open host file descriptor.
package localpal

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// PAL resolves "file:", "dir:", "dev:" URIs directly onto host paths.
//
// Namespace-mutating operations (unlink, rename, chmod) are guarded by a
// host-level advisory lock, because the host is explicitly untrusted and
// may be shared with other processes this library OS doesn't control.
// The lock is best-effort: it only excludes other holders of the same
// lock file, not arbitrary host activity.
type PAL struct {
	lock *flock.Flock
}

// Open creates a PAL instance that guards its namespace mutations with an
// flock at lockPath. lockPath is typically a dotfile next to the mount
// root; it is created if absent.
func Open(lockPath string) (*PAL, error) {
	return &PAL{lock: flock.New(lockPath)}, nil
}

func hostPath(uri string) string {
	if i := strings.IndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// AttributesQuery implements pal.PAL.
func (p *PAL) AttributesQuery(ctx context.Context, uri string) (pal.StreamAttr, error) {
	path := hostPath(uri)
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return pal.StreamAttr{}, fmt.Errorf("stat %s: %w", uri, err)
	}
	attr := pal.StreamAttr{
		ShareFlags: uint32(st.Mode) & 0o777,
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		attr.HandleType = pal.TypeFile
		attr.PendingSize = st.Size
	case unix.S_IFDIR:
		attr.HandleType = pal.TypeDir
	case unix.S_IFCHR:
		attr.HandleType = pal.TypeDev
	case unix.S_IFIFO:
		attr.HandleType = pal.TypePipe
	default:
		return pal.StreamAttr{}, fmt.Errorf("localpal: unsupported host file type for %s", uri)
	}
	return attr, nil
}

// Open implements pal.PAL.
func (p *PAL) Open(ctx context.Context, uri string, access pal.AccessMode, shareFlags uint32, create pal.CreateDisposition, options pal.Options) (pal.Handle, error) {
	path := hostPath(uri)

	flags := accessToFlags(access)
	switch create {
	case pal.CreateIfNotExists:
		flags |= unix.O_CREAT
	case pal.CreateMustNotExist:
		flags |= unix.O_CREAT | unix.O_EXCL
	case pal.CreateNever:
	}
	if options&pal.OptAppend != 0 {
		flags |= unix.O_APPEND
	}
	if options&pal.OptNonblock != 0 {
		flags |= unix.O_NONBLOCK
	}
	if options&pal.OptCloexec != 0 {
		flags |= unix.O_CLOEXEC
	}
	if options&pal.OptTruncate != 0 {
		flags |= unix.O_TRUNC
	}

	fd, err := unix.Open(path, flags, shareFlags&0o777)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fstat %s: %w", uri, err)
	}

	return &handle{fd: fd, uri: uri, isDir: st.Mode&unix.S_IFMT == unix.S_IFDIR, lock: p.lock}, nil
}

func accessToFlags(access pal.AccessMode) int {
	switch access {
	case pal.AccessWRONLY:
		return unix.O_WRONLY
	case pal.AccessRDWR:
		return unix.O_RDWR
	default:
		return unix.O_RDONLY
	}
}

// handle is an open host file descriptor.
type handle struct {
	fd    int
	uri   string
	isDir bool
	lock  *flock.Flock
}

// ReadAt reads from the stream. For a directory handle this reproduces
// the PAL's own abstraction over getdents(2): successive calls (always
// at off == 0, by convention of the one caller that reads directories)
// advance an internal cursor and return a buffer of NUL-terminated
// names, with a trailing '/' on subdirectory names. A directory fd
// cannot be read with pread(2) on Linux, so it needs this separate path.
func (h *handle) ReadAt(ctx context.Context, buf []byte, off int64) (int, error) {
	if h.isDir {
		return h.readdirChunk(buf)
	}
	n, err := unix.Pread(h.fd, buf, off)
	if err != nil {
		return n, fmt.Errorf("pread %s: %w", h.uri, err)
	}
	return n, nil
}

func (h *handle) readdirChunk(buf []byte) (int, error) {
	raw := make([]byte, 32*1024)
	n, err := unix.Getdents(h.fd, raw)
	if err != nil {
		return 0, fmt.Errorf("getdents %s: %w", h.uri, err)
	}
	if n == 0 {
		return 0, nil
	}

	var names []string
	_, _, names = unix.ParseDirent(raw[:n], -1, names)

	var out []byte
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		var st unix.Stat_t
		if err := unix.Fstatat(h.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			// Entry may have been removed concurrently; skip it
			// rather than failing the whole listing.
			continue
		}
		out = append(out, name...)
		if st.Mode&unix.S_IFMT == unix.S_IFDIR {
			out = append(out, '/')
		}
		out = append(out, 0)
	}
	if len(out) > len(buf) {
		return 0, fmt.Errorf("localpal: readdir chunk too large for caller buffer (%d > %d)", len(out), len(buf))
	}
	copy(buf, out)
	return len(out), nil
}

func (h *handle) WriteAt(ctx context.Context, buf []byte, off int64) (int, error) {
	n, err := unix.Pwrite(h.fd, buf, off)
	if err != nil {
		return n, fmt.Errorf("pwrite %s: %w", h.uri, err)
	}
	return n, nil
}

func (h *handle) Flush(ctx context.Context) error {
	if err := unix.Fsync(h.fd); err != nil {
		return fmt.Errorf("fsync %s: %w", h.uri, err)
	}
	return nil
}

func (h *handle) SetLength(ctx context.Context, size int64) error {
	if err := unix.Ftruncate(h.fd, size); err != nil {
		return fmt.Errorf("ftruncate %s: %w", h.uri, err)
	}
	return nil
}

func (h *handle) Map(ctx context.Context, size int64, prot, flags uint32, off int64) ([]byte, error) {
	b, err := unix.Mmap(h.fd, off, int(size), int(prot), int(flags))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", h.uri, err)
	}
	return b, nil
}

func (h *handle) Delete(ctx context.Context) error {
	path := hostPath(h.uri)
	if err := h.withLock(func() error {
		if h.isDir {
			return unix.Rmdir(path)
		}
		err := unix.Unlink(path)
		if err == unix.EISDIR {
			return unix.Rmdir(path)
		}
		return err
	}); err != nil {
		return fmt.Errorf("delete %s: %w", h.uri, err)
	}
	return nil
}

func (h *handle) ChangeName(ctx context.Context, newURI string) error {
	oldPath := hostPath(h.uri)
	newPath := hostPath(newURI)
	if err := h.withLock(func() error {
		return unix.Rename(oldPath, newPath)
	}); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", h.uri, newURI, err)
	}
	h.uri = newURI
	return nil
}

func (h *handle) SetAttributes(ctx context.Context, attr pal.StreamAttr) error {
	if err := h.withLock(func() error {
		return unix.Fchmod(h.fd, attr.ShareFlags&0o777)
	}); err != nil {
		return fmt.Errorf("chmod %s: %w", h.uri, err)
	}
	return nil
}

func (h *handle) Close(ctx context.Context) error {
	return unix.Close(h.fd)
}

func (h *handle) withLock(fn func() error) error {
	if h.lock == nil {
		return fn()
	}
	if err := h.lock.Lock(); err != nil {
		return fmt.Errorf("acquire host lock: %w", err)
	}
	defer h.lock.Unlock()
	return fn()
}
