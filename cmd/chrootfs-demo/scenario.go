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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/chrootfs"
	"github.com/themoonshotfactory/chrootfs/pkg/pal/localpal"
)

// scenarioCmd runs a sequence of end-to-end filesystem scenarios against
// a scratch directory, to demonstrate the personality working against a
// real host filesystem rather than just in unit tests.
type scenarioCmd struct {
	log  logrus.FieldLogger
	root string
}

func (*scenarioCmd) Name() string     { return "scenario" }
func (*scenarioCmd) Synopsis() string { return "run the end-to-end chroot personality scenarios" }
func (*scenarioCmd) Usage() string {
	return "scenario -root <dir>\n  Exercise create/write/stat, rename, unlink-with-open-handle,\n  chmod, and checkpoint round-trip against <dir>.\n"
}

func (c *scenarioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", "", "scratch host directory to mount (must exist and be empty)")
}

func (c *scenarioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.root == "" {
		fmt.Fprintln(os.Stderr, "scenario: -root is required")
		return subcommands.ExitUsageError
	}

	backend, err := localpal.Open(c.root + "/.chrootfs.lock")
	if err != nil {
		fmt.Fprintln(os.Stderr, "scenario:", err)
		return subcommands.ExitFailure
	}
	mount, err := chrootfs.NewMount("file:"+c.root, backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scenario:", err)
		return subcommands.ExitFailure
	}
	fs := chrootfs.New(c.log)

	chrootfs.LockDcache()
	defer chrootfs.UnlockDcache()

	root := chrootfs.NewRootDentry(mount)
	root.Inode = chrootfs.NewInode(mount, chrootfs.TypeDir, 0o755, 0)

	// 1. Create, write, stat.
	a := root.Child("a")
	var hdl chrootfs.Handle
	if err := fs.DOps.Creat(ctx, &hdl, a, unix.O_WRONLY, 0o600); err != nil {
		return fail(err)
	}
	n, err := fs.FSOps.Write(ctx, &hdl, []byte("hello"))
	if err != nil {
		return fail(err)
	}
	c.log.Infof("wrote %d bytes to /a", n)
	st := fs.DOps.Stat(a)
	c.log.Infof("stat /a: mode=%#o size=%d nlink=%d", st.Mode, st.Size, st.Nlink)

	// 2. Seek past end then write.
	if _, err := fs.FSOps.Seek(&hdl, 10, io.SeekStart); err != nil {
		return fail(err)
	}
	if _, err := fs.FSOps.Write(ctx, &hdl, []byte("x")); err != nil {
		return fail(err)
	}
	c.log.Infof("size after seek+write: %d", a.Inode.Size())
	fs.FSOps.Flush(ctx, &hdl)

	// 3. Rename /a to /b.
	b := root.Child("b")
	if err := fs.DOps.Rename(ctx, a, b); err != nil {
		return fail(err)
	}
	c.log.Infof("renamed /a -> /b, /b size=%d", b.Inode.Size())

	// 4. Unlink with open handle.
	if err := fs.DOps.Unlink(ctx, b); err != nil {
		return fail(err)
	}
	readBuf := make([]byte, 5)
	if _, err := fs.FSOps.Seek(&hdl, 0, io.SeekStart); err != nil {
		return fail(err)
	}
	rn, err := fs.FSOps.Read(ctx, &hdl, readBuf)
	if err != nil {
		return fail(err)
	}
	c.log.Infof("read %d bytes from unlinked-but-open handle: %q", rn, readBuf[:rn])

	// 5. Chmod (on a fresh file, since /b is gone).
	d := root.Child("d")
	var dHdl chrootfs.Handle
	if err := fs.DOps.Creat(ctx, &dHdl, d, unix.O_WRONLY, 0o600); err != nil {
		return fail(err)
	}
	if err := fs.DOps.Chmod(ctx, d, 0o400); err != nil {
		return fail(err)
	}
	c.log.Infof("chmod /d to 0400, inode now reports perm=%#o", d.Inode.Perm())

	// 6. Checkpoint round-trip.
	if err := fs.FSOps.Checkout(ctx, &dHdl); err != nil {
		return fail(err)
	}
	if err := fs.FSOps.Checkin(ctx, &dHdl); err != nil {
		return fail(err)
	}
	c.log.Info("checkpoint round-trip succeeded")

	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "scenario:", err)
	return subcommands.ExitFailure
}
