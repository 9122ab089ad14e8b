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

	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// hostReadBit is forced into every host-side permission set PAL is asked
// to use. PAL needs a readable handle to perform unlink/chmod/rename
// probes on its own; denying itself read access would break those paths.
//
// The guest's view of perm is unaffected: this only changes what other,
// later openers of the same path see on the host. This is an
// intentional asymmetry, not an oversight.
const hostReadBit = 0o400

func hostPerm(perm uint32) uint32 {
	return perm | hostReadBit
}

// doOpen is the single internal routine shared by open, creat, and
// mkdir.
//
// If hdl is non-nil, ownership of the opened PAL handle and its URI
// transfers into hdl on success; otherwise the PAL handle is closed
// immediately (used by mkdir, which never binds a guest handle).
func doOpen(ctx context.Context, hdl *Handle, dent *Dentry, typ FileType, flags int, perm uint32) error {
	uri, err := uriFor(dent, typ)
	if err != nil {
		return err
	}

	access := pal.OpenFlagsToAccess(flags)
	create := pal.OpenFlagsToCreate(flags)
	options := pal.OpenFlagsToOptions(flags)

	palHdl, err := dent.Mount.PAL.Open(ctx, uri, access, hostPerm(perm), create, options)
	if err != nil {
		return err
	}

	if hdl != nil {
		hdl.URI = uri
		hdl.Dentry = dent
		hdl.Flags = flags
		hdl.mu.Lock()
		hdl.pos = 0
		hdl.palHandle = palHdl
		hdl.mu.Unlock()
		return nil
	}

	palHdl.Close(ctx)
	return nil
}

// Open implements the dentry-ops "open" entry: dent must already have a
// materialized inode, and is opened using its existing type. Callers
// must hold the dcache lock.
func Open(ctx context.Context, hdl *Handle, dent *Dentry, flags int) error {
	if dent.Inode == nil {
		panic("chrootfs: Open called on a dentry with no inode")
	}
	if err := doOpen(ctx, hdl, dent, dent.Inode.Type, flags, 0); err != nil {
		return err
	}
	hdl.Inode = dent.Inode
	return nil
}

// Creat implements the dentry-ops "creat" entry: dent must not already
// have an inode. On success dent.Inode is set and hdl is bound. Callers
// must hold the dcache lock.
func Creat(ctx context.Context, hdl *Handle, dent *Dentry, flags int, perm uint32) error {
	if dent.Inode != nil {
		panic("chrootfs: Creat called on an already-materialized dentry")
	}

	flags |= unix.O_CREAT | unix.O_EXCL
	if err := doOpen(ctx, hdl, dent, TypeReg, flags, perm); err != nil {
		return err
	}

	dent.Inode = NewInode(dent.Mount, TypeReg, perm, 0)
	hdl.Inode = dent.Inode
	return nil
}

// Mkdir implements the dentry-ops "mkdir" entry. Callers must hold the
// dcache lock.
func Mkdir(ctx context.Context, dent *Dentry, perm uint32) error {
	if dent.Inode != nil {
		panic("chrootfs: Mkdir called on an already-materialized dentry")
	}

	if err := doOpen(ctx, nil, dent, TypeDir, unix.O_CREAT|unix.O_EXCL, perm); err != nil {
		return err
	}

	dent.Inode = NewInode(dent.Mount, TypeDir, perm, 0)
	return nil
}
