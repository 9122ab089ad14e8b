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

import "sync"

// dcacheLock is the global lock protecting the dentry tree and
// dentry->inode linking across every mount. The functions below the
// syscall-dispatch boundary that walk or mutate the tree do not acquire
// it and do not check that it is held; they rely on the caller holding
// it.
//
// Lock order: dcache -> inode -> handle. No path acquires two inode
// locks simultaneously.
var dcacheLock sync.Mutex

// LockDcache and UnlockDcache are exported so a syscall-dispatch layer
// can bracket a personality operation the way the dentry-cache lock is
// held around lookup/open/creat/mkdir/unlink/rename/chmod/checkout.
func LockDcache()   { dcacheLock.Lock() }
func UnlockDcache() { dcacheLock.Unlock() }
