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
	"testing"

	"golang.org/x/sys/unix"
)

func TestUnlinkDetachesButHandleSurvives(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/a.txt", 0o644, []byte("keep me"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	dent := root.Child("a.txt")
	hdl := openForTest(t, fp, mount, dent, unix.O_RDONLY)

	if err := Unlink(context.Background(), dent); err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}
	if dent.Inode != nil {
		t.Error("Unlink() left dent.Inode non-nil")
	}
	if _, ok := root.children["a.txt"]; ok {
		t.Error("Unlink() left the dentry attached to its parent's children map")
	}

	buf := make([]byte, 7)
	n, err := Read(context.Background(), hdl, buf)
	if err != nil {
		t.Fatalf("Read() through a still-open unlinked handle: error = %v", err)
	}
	if n != 7 {
		t.Errorf("Read() through a still-open unlinked handle: n = %d, want 7", n)
	}
}

func TestUnlinkPanicsWithoutInode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Unlink() on a negative dentry: want panic, got none")
		}
	}()
	fp := newFakePAL()
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	_ = Unlink(context.Background(), root.Child("missing"))
}

func TestRenameMovesChildrenMapEntry(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/old.txt", 0o644, []byte("data"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	oldDent := root.Child("old.txt")
	newDent := root.Child("new.txt")

	if err := Lookup(context.Background(), nil, oldDent); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if err := Rename(context.Background(), oldDent, newDent); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if oldDent.Inode != nil {
		t.Error("Rename() left oldDent.Inode non-nil")
	}
	if newDent.Inode == nil {
		t.Fatal("Rename() left newDent.Inode nil")
	}
	if _, ok := root.children["old.txt"]; ok {
		t.Error("Rename() left the old name in the parent's children map")
	}
	if got := root.children["new.txt"]; got != newDent {
		t.Error("Rename() did not register newDent under the new name")
	}

	if _, err := fp.AttributesQuery(context.Background(), "file:/srv/old.txt"); err == nil {
		t.Error("Rename() left the old host path resolvable")
	}
	if _, err := fp.AttributesQuery(context.Background(), "file:/srv/new.txt"); err != nil {
		t.Errorf("Rename() did not create the new host path: %v", err)
	}
}

func TestRenamePanicsWithoutSourceInode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Rename() with no source inode: want panic, got none")
		}
	}()
	fp := newFakePAL()
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	_ = Rename(context.Background(), root.Child("missing"), root.Child("new"))
}

func TestChmod(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/a.txt", 0o644, []byte("x"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	dent := root.Child("a.txt")
	if err := Lookup(context.Background(), nil, dent); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if err := Chmod(context.Background(), dent, 0o600); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	if got := dent.Inode.Perm(); got != 0o600 {
		t.Errorf("Inode.Perm() after Chmod() = %#o, want 0600", got)
	}

	attr, err := fp.AttributesQuery(context.Background(), "file:/srv/a.txt")
	if err != nil {
		t.Fatalf("AttributesQuery() error = %v", err)
	}
	if attr.ShareFlags != hostPerm(0o600) {
		t.Errorf("host ShareFlags after Chmod() = %#o, want %#o", attr.ShareFlags, hostPerm(0o600))
	}
}
