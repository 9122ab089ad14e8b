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

// Package pal defines the downward interface consumed by the chroot
// filesystem personality: a namespace of typed stream URIs, and the
// handful of operations the personality needs to perform on them.
//
// The PAL itself is an external collaborator (not implemented here).
// See package localpal for a concrete, host-syscall-backed instance.
package pal

import (
	"context"

	"golang.org/x/sys/unix"
)

// HandleType is the type of object a URI resolves to, as reported by the
// PAL. It is distinct from the personality's own inode type: the PAL also
// knows about PIPE, which the personality refuses to materialize.
type HandleType int

const (
	// TypeFile is a regular, seekable, host-backed file.
	TypeFile HandleType = iota
	// TypeDir is a directory.
	TypeDir
	// TypeDev is a character device.
	TypeDev
	// TypePipe is a host-level named pipe (FIFO). The personality does
	// not support these; only pipes created by the library OS itself
	// are usable, and those never go through this PAL path.
	TypePipe
)

func (t HandleType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	case TypeDev:
		return "dev"
	case TypePipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// StreamAttr is the result of an attribute query against a URI, or the
// desired attributes to set on a handle.
type StreamAttr struct {
	HandleType HandleType
	// ShareFlags holds the host-visible permission bits (9-bit mode).
	ShareFlags uint32
	// PendingSize is the file's size in bytes; meaningful only when
	// HandleType == TypeFile.
	PendingSize int64
}

// AccessMode mirrors the PAL's notion of requested access.
type AccessMode int

const (
	AccessRDONLY AccessMode = iota
	AccessWRONLY
	AccessRDWR
)

// CreateDisposition mirrors the PAL's create_mode parameter to StreamOpen.
type CreateDisposition int

const (
	// CreateNever fails if the stream does not already exist.
	CreateNever CreateDisposition = iota
	// CreateIfNotExists creates the stream if absent, opens it otherwise.
	CreateIfNotExists
	// CreateMustNotExist creates the stream, failing if it already
	// exists (the O_CREAT|O_EXCL case).
	CreateMustNotExist
)

// Options is a bitmask of stream options that don't affect access or
// creation semantics (e.g. O_APPEND, O_NONBLOCK, O_CLOEXEC passed through
// from the guest's open(2) flags).
type Options uint32

// Handle is a single open PAL stream.
//
// Every method takes a context because every PAL call is a blocking
// syscall from the personality's point of view.
type Handle interface {
	ReadAt(ctx context.Context, buf []byte, off int64) (int, error)
	WriteAt(ctx context.Context, buf []byte, off int64) (int, error)
	Flush(ctx context.Context) error
	SetLength(ctx context.Context, size int64) error
	// Map returns a memory-mapped view of the stream. prot and flags are
	// POSIX mmap(2) bits; MAP_ANONYMOUS is rejected by the personality
	// before this is ever called.
	Map(ctx context.Context, size int64, prot, flags uint32, off int64) ([]byte, error)
	// Delete removes the underlying stream entirely (PAL_DELETE_ALL).
	Delete(ctx context.Context) error
	ChangeName(ctx context.Context, newURI string) error
	SetAttributes(ctx context.Context, attr StreamAttr) error
	Close(ctx context.Context) error
}

// PAL is the namespace-level interface: attribute queries (used by
// lookup, which doesn't yet have a handle) and stream opens.
type PAL interface {
	AttributesQuery(ctx context.Context, uri string) (StreamAttr, error)
	Open(ctx context.Context, uri string, access AccessMode, shareFlags uint32, create CreateDisposition, options Options) (Handle, error)
}

// Errno kinds synthesized by the personality itself, rather than passed
// through 1:1 from a PAL failure. Expressed directly as unix.Errno so
// callers don't need a separate translation step.
const (
	ErrInvalidArg  = unix.EINVAL
	ErrOutOfMemory = unix.ENOMEM
	ErrTooBig      = unix.EFBIG
	ErrOverflow    = unix.EOVERFLOW
	ErrPermission  = unix.EACCES
)
