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
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/themoonshotfactory/chrootfs/pkg/chrootfs"
	"github.com/themoonshotfactory/chrootfs/pkg/pal/localpal"
)

// statCmd looks up and stats a single path under a mount root, without
// running the full scenario sequence.
type statCmd struct {
	log      logrus.FieldLogger
	root     string
	relative string
}

func (*statCmd) Name() string     { return "stat" }
func (*statCmd) Synopsis() string { return "look up and stat a single path under a mount root" }
func (*statCmd) Usage() string    { return "stat -root <dir> -path <rel>\n" }

func (c *statCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", "", "host directory backing the mount")
	f.StringVar(&c.relative, "path", "", "path relative to the mount root")
}

func (c *statCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.root == "" {
		fmt.Fprintln(os.Stderr, "stat: -root is required")
		return subcommands.ExitUsageError
	}

	backend, err := localpal.Open(c.root + "/.chrootfs.lock")
	if err != nil {
		return fail(err)
	}
	mount, err := chrootfs.NewMount("file:"+c.root, backend)
	if err != nil {
		return fail(err)
	}
	fs := chrootfs.New(c.log)

	chrootfs.LockDcache()
	defer chrootfs.UnlockDcache()

	dent := chrootfs.NewRootDentry(mount)
	for _, name := range splitPath(c.relative) {
		dent = dent.Child(name)
	}
	if err := fs.DOps.Lookup(ctx, dent); err != nil {
		return fail(err)
	}
	st := fs.DOps.Stat(dent)
	fmt.Printf("mode=%#o size=%d nlink=%d dev=%#x\n", st.Mode, st.Size, st.Nlink, st.Dev)
	return subcommands.ExitSuccess
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
