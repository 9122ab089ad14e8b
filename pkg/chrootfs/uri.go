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
	"strings"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

const (
	schemeFile = "file:"
	schemeDir  = "dir:"
	schemeDev  = "dev:"
)

// relPath computes d's path relative to its mount root: the sequence of
// ancestor names from (but not including) the mount root down to d,
// joined by "/". The mount root itself has an empty relative path.
func relPath(d *Dentry) string {
	if d.Parent == nil {
		return ""
	}
	var parts []string
	for cur := d; cur.Parent != nil; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}
	// parts was built leaf-to-root; reverse it in place.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// uriFor computes the PAL URI for a dentry under the given requested
// file type.
//
// typ selects the scheme prefix: TypeReg -> "file:", TypeDir -> "dir:",
// TypeChr -> "dev:", TypeKeep -> the mount's own scheme. Lookup uses
// TypeKeep because it doesn't yet know the file's type, and the PAL
// recognizes "dev:tty" in a way "file:tty" would not resolve the same.
func uriFor(d *Dentry, typ FileType) (string, error) {
	mountURI := d.Mount.URI
	colon := strings.IndexByte(mountURI, ':')
	if colon < 0 {
		return "", pal.ErrInvalidArg
	}
	root := mountURI[colon+1:]

	var prefix string
	switch typ {
	case TypeReg:
		prefix = schemeFile
	case TypeDir:
		prefix = schemeDir
	case TypeChr:
		prefix = schemeDev
	case TypeKeep:
		prefix = mountURI[:colon+1]
	default:
		panic("chrootfs: uriFor: unreachable file type")
	}

	if root == "" {
		root = "."
	}

	rel := relPath(d)

	var b strings.Builder
	b.Grow(len(prefix) + len(root) + 1 + len(rel))
	b.WriteString(prefix)
	b.WriteString(root)
	if rel != "" {
		b.WriteByte('/')
		b.WriteString(rel)
	}
	return b.String(), nil
}
