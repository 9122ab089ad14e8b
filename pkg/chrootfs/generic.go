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
	"hash/fnv"
	"io"

	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// Stat is the subset of struct stat the personality can fill without
// consulting the host.
type Stat struct {
	Mode  uint32 // type | perm
	Size  int64
	Nlink uint32
	Dev   uint64
}

// PollMask is a bitmask of FS_POLL_RD / FS_POLL_WR.
type PollMask uint32

const (
	PollRead  PollMask = 1 << 0
	PollWrite PollMask = 1 << 1
)

// GenericSeek implements the seek arithmetic shared by every handle
// type. whence uses the io.Seek* constants.
func GenericSeek(pos, size, offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		var ok bool
		newPos, ok = addOverflow(pos, offset)
		if !ok {
			return 0, pal.ErrOverflow
		}
	case io.SeekEnd:
		var ok bool
		newPos, ok = addOverflow(size, offset)
		if !ok {
			return 0, pal.ErrOverflow
		}
	default:
		return 0, pal.ErrInvalidArg
	}
	if newPos < 0 {
		return 0, pal.ErrInvalidArg
	}
	return newPos, nil
}

// addOverflow adds a and b, reporting whether the result overflowed
// int64 (the Go equivalent of __builtin_add_overflow).
func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// Seek implements the file-ops "seek" entry: it locks inode then
// handle, reads the current position and size, applies GenericSeek,
// and stores the result back into the handle.
func Seek(h *Handle, offset int64, whence int) (int64, error) {
	h.Inode.Lock()
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.Inode.Unlock()

	size := h.Inode.sizeLocked()
	newPos, err := GenericSeek(h.pos, size, offset, whence)
	if err != nil {
		return 0, err
	}
	h.pos = newPos
	return newPos, nil
}

// Hstat fills a Stat from a handle's inode (file-ops "hstat").
func Hstat(h *Handle) Stat {
	return istat(h.Inode)
}

// StatDentry fills a Stat from a dentry's inode (dentry-ops "stat"). The dentry
// must already have a materialized inode; callers must hold the dcache
// lock.
func StatDentry(d *Dentry) Stat {
	return istat(d.Inode)
}

func istat(inode *Inode) Stat {
	inode.mu.Lock()
	defer inode.mu.Unlock()

	nlink := uint32(1)
	if inode.Type == TypeDir {
		nlink = 2
	}
	var dev uint64
	if inode.Mount != nil && inode.Mount.URI != "" {
		dev = hashURI(inode.Mount.URI)
	}
	return Stat{
		Mode:  uint32(inode.Type) | inode.permLocked(),
		Size:  inode.sizeLocked(),
		Nlink: nlink,
		Dev:   dev,
	}
}

func hashURI(uri string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uri))
	return h.Sum64()
}

// Poll implements the file-ops "poll" entry.
//
// Quirk carried forward as-is: a regular file is reported not-readable
// once pos reaches size, which is not what POSIX poll(2) says about EOF
// (EOF is readable; the read simply returns 0). Fixing this would change
// observable behavior for callers relying on it, so it stays. TODO:
// verify against real guest poll(2) semantics before changing.
func Poll(h *Handle, want PollMask) (PollMask, error) {
	h.Inode.Lock()
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.Inode.Unlock()

	if h.Inode.Type != TypeReg {
		return 0, unix.EAGAIN
	}

	var ready PollMask
	if want&PollWrite != 0 {
		ready |= PollWrite
	}
	if want&PollRead != 0 && h.pos < h.Inode.sizeLocked() {
		ready |= PollRead
	}
	return ready, nil
}

// Readdir iterates dent's cached children, invoking cb for every one
// that has a materialized inode. The on-disk listing itself is the
// personality's own responsibility (readdir.go), not this helper.
// Callers must hold the dcache lock.
func Readdir(dent *Dentry, cb func(name string) error) error {
	return dent.ForEachChild(func(c *Dentry) error {
		return cb(c.Name)
	})
}
