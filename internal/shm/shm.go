// Copyright 2025 The Ringload Authors
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

// Package shm creates, maps, and tears down the per-request named
// shared-memory objects that carry a loaded file's bytes from the loader
// process to a worker process.
//
// Every request's object lives at a name derived from the owning worker ID
// and slot index, not from the requested path: salting the name this way
// (the spec's own re-architecture note) makes two in-flight requests for
// the same path impossible to collide on, at the cost of no longer being
// able to recognize a stale object left behind by a crashed prior run of
// the same slot — which the O_CREAT|O_RDWR-without-O_EXCL open below still
// tolerates, since ftruncate always resizes it to the current request.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Dir is where Linux backs POSIX shared-memory objects with tmpfs files.
// Using it directly avoids needing a cgo binding for shm_open(3); opening a
// path under it has identical semantics on Linux.
const Dir = "/dev/shm"

// Name derives the shared-memory object name for one slot of one worker
// queue. It is independent of the request path, so naming collisions
// between concurrent requests (even for the same path, even across
// workers) cannot happen.
func Name(workerID, index int32) string {
	return fmt.Sprintf("/ringload_w%d_s%d", workerID, index)
}

// QueueName returns the shared-memory object name backing a worker queue's
// own arena (its header, free/ready/completed list heads, and slot array) —
// distinct from the per-request objects Name produces, and mapped once per
// worker at attach time rather than once per request.
func QueueName(workerID int32) string {
	return fmt.Sprintf("/ringload_w%d_queue", workerID)
}

// path returns the filesystem path backing the named shared-memory object.
func path(name string) string {
	return filepath.Join(Dir, name)
}

// Mapping is a process-local handle on a mapped shared-memory object: a
// descriptor and a pointer, neither of which means anything outside the
// process that obtained them.
type Mapping struct {
	fd   int
	data []byte
}

// Create opens (creating if necessary) the named object for read/write,
// resizes it to size bytes, and maps it PROT_WRITE|PROT_READ, MAP_SHARED.
// This is the loader-side path, run by the reader just before it submits a
// read into the mapping.
func Create(name string, size int64) (*Mapping, error) {
	fd, err := unix.Open(path(name), unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate %s to %d: %w", name, size, err)
	}
	data, err := mmap(fd, size)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Mapping{fd: fd, data: data}, nil
}

// Open opens an existing named object for read/write and maps it
// PROT_WRITE, MAP_SHARED, length = size. This is the worker-side path, run
// by try_get.
func Open(name string, size int64) (*Mapping, error) {
	fd, err := unix.Open(path(name), unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	data, err := mmap(fd, size)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Mapping{fd: fd, data: data}, nil
}

func mmap(fd int, size int64) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap fd %d (%d bytes): %w", fd, size, err)
	}
	return data, nil
}

// Data returns the mapped region.
func (m *Mapping) Data() []byte { return m.data }

// Close unmaps and closes the mapping, but does not unlink the backing
// object; callers decide separately whether to unlink (see Unlink).
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		if e := unix.Munmap(m.data); e != nil {
			err = fmt.Errorf("shm: munmap: %w", e)
		}
		m.data = nil
	}
	if m.fd >= 0 {
		if e := unix.Close(m.fd); e != nil && err == nil {
			err = fmt.Errorf("shm: close: %w", e)
		}
		m.fd = -1
	}
	return err
}

// Unlink removes the named object. A worker calls this on release; it
// tolerates the object already being gone.
func Unlink(name string) error {
	if err := unix.Unlink(path(name)); err != nil && err != unix.ENOENT {
		return fmt.Errorf("shm: unlink %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named object is currently present. Used only
// by tests; production code never needs to probe for existence.
func Exists(name string) bool {
	_, err := os.Stat(path(name))
	return err == nil
}
