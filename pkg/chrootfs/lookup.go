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

// Lookup materializes dent's inode by probing the host.
//
// dent must not already have an inode. Callers must hold the dcache
// lock. On success, dent.Inode is set; on PERMISSION_DENIED (a host
// FIFO), no inode is attached.
func Lookup(ctx context.Context, log logrus.FieldLogger, dent *Dentry) error {
	if dent.Inode != nil {
		panic("chrootfs: Lookup called on an already-materialized dentry")
	}

	// We don't yet know the file type, so we can't build a URI with the
	// right scheme. Probe with the mount's own scheme instead: in
	// almost all cases "file:" would resolve fine even for a directory
	// or device, but the PAL also recognizes "dev:tty", which does not
	// open under "file:tty".
	uri, err := uriFor(dent, TypeKeep)
	if err != nil {
		return err
	}

	attr, err := dent.Mount.PAL.AttributesQuery(ctx, uri)
	if err != nil {
		return err
	}

	var typ FileType
	switch attr.HandleType {
	case pal.TypeFile:
		typ = TypeReg
	case pal.TypeDir:
		typ = TypeDir
	case pal.TypeDev:
		typ = TypeChr
	case pal.TypePipe:
		if log != nil {
			log.WithField("uri", uri).Warn("trying to access a host-level FIFO; only named pipes created by this library OS are supported")
		}
		return pal.ErrPermission
	default:
		if log != nil {
			log.WithField("handle_type", attr.HandleType).Error("unexpected handle type returned by PAL")
		}
		panic("chrootfs: Lookup: unreachable PAL handle type")
	}

	size := int64(0)
	if typ == TypeReg {
		size = attr.PendingSize
	}
	dent.Inode = NewInode(dent.Mount, typ, attr.ShareFlags, size)
	return nil
}
