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
	"bytes"
	"context"
	"path"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/themoonshotfactory/chrootfs/pkg/pal"
)

// fakePAL is an in-memory PAL used by this package's unit tests. It
// keeps the tests fast and independent of the real filesystem; localpal
// is exercised separately by its own package's tests against a real
// host directory.
type fakePAL struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
}

type fakeStream struct {
	typ  pal.HandleType
	perm uint32
	data []byte
}

func newFakePAL() *fakePAL {
	return &fakePAL{streams: make(map[string]*fakeStream)}
}

func fakeStripScheme(uri string) string {
	if i := strings.IndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// putDir and putFile seed the fake host namespace before a test runs.
func (p *fakePAL) putDir(uriPath string, perm uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams[uriPath] = &fakeStream{typ: pal.TypeDir, perm: perm}
}

func (p *fakePAL) putFile(uriPath string, perm uint32, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams[uriPath] = &fakeStream{typ: pal.TypeFile, perm: perm, data: append([]byte(nil), data...)}
}

func (p *fakePAL) putPipe(uriPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams[uriPath] = &fakeStream{typ: pal.TypePipe}
}

func (p *fakePAL) AttributesQuery(ctx context.Context, uri string) (pal.StreamAttr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.streams[fakeStripScheme(uri)]
	if !ok {
		return pal.StreamAttr{}, unix.ENOENT
	}
	attr := pal.StreamAttr{HandleType: s.typ, ShareFlags: s.perm}
	if s.typ == pal.TypeFile {
		attr.PendingSize = int64(len(s.data))
	}
	return attr, nil
}

func (p *fakePAL) Open(ctx context.Context, uri string, access pal.AccessMode, shareFlags uint32, create pal.CreateDisposition, options pal.Options) (pal.Handle, error) {
	key := fakeStripScheme(uri)
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.streams[key]
	switch create {
	case pal.CreateMustNotExist:
		if ok {
			return nil, unix.EEXIST
		}
		s = &fakeStream{typ: typeFromURI(uri), perm: shareFlags}
		p.streams[key] = s
	case pal.CreateIfNotExists:
		if !ok {
			s = &fakeStream{typ: typeFromURI(uri), perm: shareFlags}
			p.streams[key] = s
		}
	case pal.CreateNever:
		if !ok {
			return nil, unix.ENOENT
		}
	}
	return &fakeHandle{pal: p, key: key, stream: s}, nil
}

func typeFromURI(uri string) pal.HandleType {
	switch {
	case strings.HasPrefix(uri, "dir:"):
		return pal.TypeDir
	case strings.HasPrefix(uri, "dev:"):
		return pal.TypeDev
	default:
		return pal.TypeFile
	}
}

type fakeHandle struct {
	pal    *fakePAL
	key    string
	stream *fakeStream

	dirOnce    bool
	dirEntries []byte
}

func (h *fakeHandle) ReadAt(ctx context.Context, buf []byte, off int64) (int, error) {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()

	if h.stream.typ == pal.TypeDir {
		if !h.dirOnce {
			h.dirOnce = true
			h.dirEntries = h.pal.listChildrenLocked(h.key)
		}
		n := copy(buf, h.dirEntries)
		h.dirEntries = h.dirEntries[n:]
		return n, nil
	}

	if off >= int64(len(h.stream.data)) {
		return 0, nil
	}
	n := copy(buf, h.stream.data[off:])
	return n, nil
}

// listChildrenLocked builds a NUL-separated listing of direct children
// of dirKey, trailing-slashing directory names, the same shape localpal
// produces from getdents(2).
func (p *fakePAL) listChildrenLocked(dirKey string) []byte {
	var buf bytes.Buffer
	for k, s := range p.streams {
		if k == dirKey {
			continue
		}
		parent, name := path.Split(strings.TrimSuffix(k, "/"))
		parent = strings.TrimSuffix(parent, "/")
		if parent != strings.TrimSuffix(dirKey, "/") {
			continue
		}
		buf.WriteString(name)
		if s.typ == pal.TypeDir {
			buf.WriteByte('/')
		}
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func (h *fakeHandle) WriteAt(ctx context.Context, buf []byte, off int64) (int, error) {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	end := off + int64(len(buf))
	if end > int64(len(h.stream.data)) {
		grown := make([]byte, end)
		copy(grown, h.stream.data)
		h.stream.data = grown
	}
	copy(h.stream.data[off:end], buf)
	return len(buf), nil
}

func (h *fakeHandle) Flush(ctx context.Context) error { return nil }

func (h *fakeHandle) SetLength(ctx context.Context, size int64) error {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	data := make([]byte, size)
	copy(data, h.stream.data)
	h.stream.data = data
	return nil
}

func (h *fakeHandle) Map(ctx context.Context, size int64, prot, flags uint32, off int64) ([]byte, error) {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	end := off + size
	if end > int64(len(h.stream.data)) {
		end = int64(len(h.stream.data))
	}
	return append([]byte(nil), h.stream.data[off:end]...), nil
}

func (h *fakeHandle) Delete(ctx context.Context) error {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	delete(h.pal.streams, h.key)
	return nil
}

func (h *fakeHandle) ChangeName(ctx context.Context, newURI string) error {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	newKey := fakeStripScheme(newURI)
	delete(h.pal.streams, h.key)
	h.pal.streams[newKey] = h.stream
	h.key = newKey
	return nil
}

func (h *fakeHandle) SetAttributes(ctx context.Context, attr pal.StreamAttr) error {
	h.pal.mu.Lock()
	defer h.pal.mu.Unlock()
	h.stream.perm = attr.ShareFlags
	return nil
}

func (h *fakeHandle) Close(ctx context.Context) error { return nil }
