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
	"bytes"
	"context"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// readdirBufSize is the size of the buffer used to read a directory
// listing from the PAL. HostReaddir allocates it once and never grows
// it, so each chunk the PAL returns must fit in this many bytes.
const readdirBufSize = 64 * 1024

// HostReaddir implements the dentry-ops "readdir" entry:
// it opens a temporary read-only PAL handle for dent's directory and
// reads the on-disk listing in NUL-terminated-name chunks, invoking cb
// once per entry.
func HostReaddir(ctx context.Context, dent *Dentry, cb func(name string) error) error {
	uri, err := uriFor(dent, TypeDir)
	if err != nil {
		return err
	}

	palHdl, err := dent.Mount.PAL.Open(ctx, uri, pal.AccessRDONLY, 0, pal.CreateNever, 0)
	if err != nil {
		return err
	}
	defer palHdl.Close(ctx)

	buf := make([]byte, readdirBufSize)
	for {
		n, err := palHdl.ReadAt(ctx, buf, 0)
		if err != nil {
			return err
		}
		if n == 0 {
			// End of directory listing.
			return nil
		}

		chunk := buf[:n]
		if chunk[len(chunk)-1] != 0 {
			panic("chrootfs: HostReaddir: non-empty chunk not NUL-terminated")
		}

		start := 0
		for start < len(chunk)-1 {
			end := start + bytes.IndexByte(chunk[start:], 0)
			if end == start {
				panic("chrootfs: HostReaddir: empty name returned by PAL")
			}
			name := chunk[start:end]
			// By PAL convention, a trailing '/' marks a
			// subdirectory; the personality hides that
			// distinction from callers.
			if name[len(name)-1] == '/' {
				name = name[:len(name)-1]
			}
			if err := cb(string(name)); err != nil {
				return err
			}
			start = end + 1
		}
	}
}
