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

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func TestCheckoutCheckinRoundTrip(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/a.txt", 0o644, []byte("persist"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	dent := root.Child("a.txt")
	hdl := openForTest(t, fp, mount, dent, unix.O_RDWR)

	if err := Checkout(context.Background(), hdl); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if hdl.palHandle != nil {
		t.Fatal("Checkout() left palHandle non-nil")
	}

	log := logrus.New()
	if err := Checkin(context.Background(), log, hdl); err != nil {
		t.Fatalf("Checkin() error = %v", err)
	}
	if hdl.palHandle == nil {
		t.Fatal("Checkin() did not reopen palHandle")
	}

	buf := make([]byte, 7)
	n, err := Read(context.Background(), hdl, buf)
	if err != nil {
		t.Fatalf("Read() after Checkin() error = %v", err)
	}
	if n != 7 {
		t.Errorf("Read() after Checkin() n = %d, want 7", n)
	}
}

func TestCheckoutSkipsDetachedInode(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/a.txt", 0o644, []byte("x"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	dent := root.Child("a.txt")
	hdl := openForTest(t, fp, mount, dent, unix.O_RDONLY)

	// Simulate the dentry having been replaced (e.g. by a rename) out
	// from under the handle: Checkout must leave palHandle alone.
	dent.Inode = NewInode(mount, TypeReg, 0o644, 0)

	if err := Checkout(context.Background(), hdl); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if hdl.palHandle == nil {
		t.Error("Checkout() dropped palHandle for a dentry pointing at a different inode")
	}
}

func TestCheckinNoopIfAlreadyOpen(t *testing.T) {
	fp := newFakePAL()
	fp.putFile("/srv/a.txt", 0o644, []byte("x"))
	mount := &Mount{URI: "file:/srv", PAL: fp}
	root := NewRootDentry(mount)
	dent := root.Child("a.txt")
	hdl := openForTest(t, fp, mount, dent, unix.O_RDONLY)

	original := hdl.palHandle
	if err := Checkin(context.Background(), nil, hdl); err != nil {
		t.Fatalf("Checkin() error = %v", err)
	}
	if hdl.palHandle != original {
		t.Error("Checkin() replaced an already-open palHandle")
	}
}
