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

// Package entry is the worker-facing view of one request/response slot:
// the accessors spec.md §6 lists ("path", "size", "data-view") plus the
// process-local shared-memory mapping a worker holds between try_get and
// release. The shared fields themselves live in arena.Slot; nothing with
// process-local meaning (file descriptors, mapped pointers) is stored
// there, per the arena-plus-index redesign in spec.md §9.
package entry

import (
	"github.com/ringload/ringload/internal/arena"
	"github.com/ringload/ringload/internal/shm"
)

// Entry is a worker process's handle on one completed request, returned by
// try_get and consumed by release. It is only ever valid in the process
// that obtained it from try_get: the Mapping field is a process-local
// descriptor/pointer pair, not something a second process could reuse.
type Entry struct {
	Arena    *arena.Arena
	WorkerID int32
	Index    int32
	Mapping  *shm.Mapping
}

// Path returns the entry's stored path, without the NUL padding.
func (e *Entry) Path() []byte {
	return e.Arena.Slot(e.Index).PathBytes()
}

// Size returns the entry's rounded-up byte length — also the length of the
// worker-side mapping once try_get has populated it.
func (e *Entry) Size() uint64 {
	return e.Arena.Slot(e.Index).Size
}

// LBA returns the physical block address hint recorded by the reader, or 0
// if none was available.
func (e *Entry) LBA() uint64 {
	return e.Arena.Slot(e.Index).LBA
}

// Data returns the worker-side view of the loaded bytes: a slice over the
// shared-memory mapping, length equal to Size(). Valid only between
// try_get and release.
func (e *Entry) Data() []byte {
	if e.Mapping == nil {
		return nil
	}
	return e.Mapping.Data()
}

// ShmName returns the shared-memory object name for this entry's slot,
// salted by worker ID and slot index (spec.md §9's redesign note), not
// derived from the request path.
func (e *Entry) ShmName() string {
	return shm.Name(e.WorkerID, e.Index)
}
