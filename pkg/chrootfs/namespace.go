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

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// tempOpen opens a temporary read-only PAL handle for dent, used by the
// namespace mutations below, all of which need a live handle to operate
// on a stream they don't want to keep open afterwards.
func tempOpen(ctx context.Context, dent *Dentry, typ FileType) (pal.Handle, error) {
	uri, err := uriFor(dent, typ)
	if err != nil {
		return nil, err
	}
	return dent.Mount.PAL.Open(ctx, uri, pal.AccessRDONLY, 0, pal.CreateNever, 0)
}

// Unlink implements the dentry-ops "unlink" entry. The
// inode object itself survives detachment: any handle still holding a
// reference to it remains usable. Callers must hold the dcache lock.
func Unlink(ctx context.Context, dent *Dentry) error {
	if dent.Inode == nil {
		panic("chrootfs: Unlink called on a dentry with no inode")
	}

	palHdl, err := tempOpen(ctx, dent, dent.Inode.Type)
	if err != nil {
		return err
	}
	defer palHdl.Close(ctx)

	if err := palHdl.Delete(ctx); err != nil {
		return err
	}

	if dent.Parent != nil && dent.Parent.children != nil {
		delete(dent.Parent.children, dent.Name)
	}
	dent.Inode = nil
	return nil
}

// Rename implements the dentry-ops "rename" entry. Not
// atomic against a concurrent unlink of the destination — rename is only
// linearizable with respect to old's own inode lock, which this
// operation doesn't even take, since only the PAL's rename is involved.
// Callers must hold the dcache lock.
func Rename(ctx context.Context, oldDent, newDent *Dentry) error {
	if oldDent.Inode == nil {
		panic("chrootfs: Rename called with no inode on the source dentry")
	}

	newURI, err := uriFor(newDent, oldDent.Inode.Type)
	if err != nil {
		return err
	}

	palHdl, err := tempOpen(ctx, oldDent, oldDent.Inode.Type)
	if err != nil {
		return err
	}
	defer palHdl.Close(ctx)

	if err := palHdl.ChangeName(ctx, newURI); err != nil {
		return err
	}

	inode := oldDent.Inode
	oldDent.Inode = nil
	if oldDent.Parent != nil && oldDent.Parent.children != nil {
		delete(oldDent.Parent.children, oldDent.Name)
	}
	newDent.Inode = inode
	if newDent.Parent != nil {
		if newDent.Parent.children == nil {
			newDent.Parent.children = make(map[string]*Dentry)
		}
		newDent.Parent.children[newDent.Name] = newDent
	}
	return nil
}

// Chmod implements the dentry-ops "chmod" entry. Callers
// must hold the dcache lock.
func Chmod(ctx context.Context, dent *Dentry, perm uint32) error {
	if dent.Inode == nil {
		panic("chrootfs: Chmod called on a dentry with no inode")
	}

	dent.Inode.Lock()
	defer dent.Inode.Unlock()

	palHdl, err := tempOpen(ctx, dent, dent.Inode.Type)
	if err != nil {
		return err
	}
	defer palHdl.Close(ctx)

	if err := palHdl.SetAttributes(ctx, pal.StreamAttr{ShareFlags: hostPerm(perm)}); err != nil {
		return err
	}

	dent.Inode.setPermLocked(perm)
	return nil
}
