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
	"math"

	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// ssizeMax mirrors SSIZE_MAX on a 64-bit host.
const ssizeMax = math.MaxInt64

// Read implements the file-ops "read" entry.
func Read(ctx context.Context, h *Handle, buf []byte) (int, error) {
	if len(buf) > ssizeMax {
		return 0, pal.ErrTooBig
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	pos := h.pos
	if h.Inode.Type == TypeReg {
		if _, ok := addOverflow(pos, int64(len(buf))); !ok {
			return 0, pal.ErrTooBig
		}
	}

	n, err := h.palHandle.ReadAt(ctx, buf, pos)
	if err != nil {
		return 0, err
	}
	if h.Inode.Type == TypeReg {
		h.pos += int64(n)
	}
	return n, nil
}

// Write implements the file-ops "write" entry.
//
// Lock order is inode then handle, the same order Seek, Poll and
// Truncate use when they take both locks.
func Write(ctx context.Context, h *Handle, buf []byte) (int, error) {
	if len(buf) > ssizeMax {
		return 0, pal.ErrTooBig
	}

	h.Inode.Lock()
	defer h.Inode.Unlock()
	h.mu.Lock()
	defer h.mu.Unlock()

	pos := h.pos
	if h.Inode.Type == TypeReg {
		if _, ok := addOverflow(pos, int64(len(buf))); !ok {
			return 0, pal.ErrTooBig
		}
	}

	// The original assertion here reads "count <= actual_count" rather
	// than "actual_count <= count" (see DESIGN.md, open question on the
	// write-side bound check). We assert the direction that can't be
	// violated by a well-behaved PAL: a short write returns fewer bytes
	// than requested, never more.
	n, err := h.palHandle.WriteAt(ctx, buf, pos)
	if err != nil {
		return 0, err
	}
	if n > len(buf) {
		panic("chrootfs: Write: PAL reported writing more bytes than requested")
	}
	if h.Inode.Type == TypeReg {
		pos += int64(n)
		h.pos = pos
		if pos > h.Inode.sizeLocked() {
			h.Inode.setSizeLocked(pos)
		}
	}
	return n, nil
}

// Mmap implements the file-ops "mmap" entry. MAP_ANONYMOUS is rejected:
// it's meaningless for a file-backed map.
func Mmap(ctx context.Context, h *Handle, size int64, prot, flags uint32, off int64) ([]byte, error) {
	if flags&unix.MAP_ANONYMOUS != 0 {
		return nil, pal.ErrInvalidArg
	}
	h.mu.Lock()
	palHdl := h.palHandle
	h.mu.Unlock()
	return palHdl.Map(ctx, size, prot, flags, off)
}

// Truncate implements the file-ops "truncate" entry.
func Truncate(ctx context.Context, h *Handle, size int64) error {
	h.Inode.Lock()
	defer h.Inode.Unlock()

	h.mu.Lock()
	palHdl := h.palHandle
	h.mu.Unlock()

	if err := palHdl.SetLength(ctx, size); err != nil {
		return err
	}
	h.Inode.setSizeLocked(size)
	return nil
}

// Flush implements the file-ops "flush" entry: a thin pass-through.
func Flush(ctx context.Context, h *Handle) error {
	h.mu.Lock()
	palHdl := h.palHandle
	h.mu.Unlock()
	return palHdl.Flush(ctx)
}
