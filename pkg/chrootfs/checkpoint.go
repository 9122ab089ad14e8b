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

	"github.com/sirupsen/logrus"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// Checkout prepares hdl to be sent to a restoring process. It operates on the copy of hdl being serialized for checkpoint,
// not the live handle, so it does not take hdl's own lock — the caller
// is expected to be holding the dcache lock for the whole checkpointing
// process instead.
//
// If the dentry still points at the same inode this handle was opened
// against (i.e. it wasn't renamed or replaced out from under us) and the
// PAL still reports the URI as resolvable, the PAL handle is dropped:
// the restoring process will reopen it in Checkin. Some PAL handle
// classes can't be serialized at all, so this "drop and reopen" is the
// opportunistic default; the only case it can't recover is a stream
// that both can't be serialized and has been deleted from the host
// before the restoring process gets to reopen it.
func Checkout(ctx context.Context, hdl *Handle) error {
	sameInode := hdl.Dentry.Inode == hdl.Inode
	if sameInode {
		if _, err := hdl.Dentry.Mount.PAL.AttributesQuery(ctx, hdl.URI); err == nil {
			hdl.palHandle = nil
		}
	}
	return nil
}

// Checkin reopens hdl's PAL handle after checkpoint restore, if Checkout
// dropped it. It does not take hdl's lock either: the
// handle is still being initialized at this point, before any other
// thread in the restoring process can observe it.
func Checkin(ctx context.Context, log logrus.FieldLogger, hdl *Handle) error {
	if hdl.palHandle != nil {
		return nil
	}

	access := pal.OpenFlagsToAccess(hdl.Flags)
	options := pal.OpenFlagsToOptions(hdl.Flags)
	palHdl, err := hdl.Dentry.Mount.PAL.Open(ctx, hdl.URI, access, 0, pal.CreateNever, options)
	if err != nil {
		if log != nil {
			log.WithFields(logrus.Fields{"uri": hdl.URI, "flags": hdl.Flags}).Warn("failed to reopen handle after checkpoint restore")
		}
		return err
	}
	hdl.palHandle = palHdl
	return nil
}
