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

package pal

import "golang.org/x/sys/unix"

// OpenFlagsToAccess translates guest open(2) flags into the access mode
// the PAL needs for StreamOpen.
func OpenFlagsToAccess(flags int) AccessMode {
	switch flags & unix.O_ACCMODE {
	case unix.O_WRONLY:
		return AccessWRONLY
	case unix.O_RDWR:
		return AccessRDWR
	default:
		return AccessRDONLY
	}
}

// OpenFlagsToCreate translates guest open(2) flags into a create
// disposition.
func OpenFlagsToCreate(flags int) CreateDisposition {
	if flags&unix.O_CREAT == 0 {
		return CreateNever
	}
	if flags&unix.O_EXCL != 0 {
		return CreateMustNotExist
	}
	return CreateIfNotExists
}

// OpenFlagsToOptions extracts the flags that affect neither access nor
// creation, but are otherwise meaningful to the PAL (append, non-block,
// close-on-exec, truncate-on-open).
func OpenFlagsToOptions(flags int) Options {
	var opts Options
	if flags&unix.O_APPEND != 0 {
		opts |= OptAppend
	}
	if flags&unix.O_NONBLOCK != 0 {
		opts |= OptNonblock
	}
	if flags&unix.O_CLOEXEC != 0 {
		opts |= OptCloexec
	}
	if flags&unix.O_TRUNC != 0 {
		opts |= OptTruncate
	}
	return opts
}

const (
	OptAppend Options = 1 << iota
	OptNonblock
	OptCloexec
	OptTruncate
)
