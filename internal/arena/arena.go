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

// Package arena defines the shared-memory layout of a worker queue.
//
// A worker queue is mapped independently by the loader process and by the
// owning worker process; the two mappings virtually never share the same
// base address, so the layout below never stores a pointer. Every
// cross-entry link is an index into Slots, resolved against whichever
// process's own mapping happens to be doing the resolving. This is the
// arena-plus-index representation the original pointer-linked design
// should have used from the start (see the spec's re-architecture notes on
// intrusive pointer lists across process boundaries).
package arena

import (
	"fmt"
	"unsafe"
)

// MaxPathLen bounds a request path, matching the wire contract used by
// try_request.
const MaxPathLen = 128

// NoLink is the sentinel stored in Slot.Prev/Slot.Next and Header's list
// heads to mean "no entry" / "empty list".
const NoLink int32 = -1

// Header sits at the start of the mapped region. Every field is a plain
// fixed-width integer so the struct can be reinterpreted directly over
// mmap'd bytes in any process that maps the same shared-memory object.
type Header struct {
	Capacity      int32
	WorkerID      int32
	FreeHead      int32
	FreeLock      int32
	ReadyHead     int32
	ReadyLock     int32
	CompletedHead int32
	CompletedLock int32
}

// Slot is one request/response entry, as laid out in shared memory. It
// carries only the fields that the loader and the owning worker must agree
// on; file descriptors and mapped data pointers are process-local and are
// tracked separately (see internal/shm), since a descriptor number or a
// virtual address from one process means nothing in another.
type Slot struct {
	PathLen uint16
	_       [6]byte
	Path    [MaxPathLen]byte
	Size    uint64
	LBA     uint64
	Prev    int32
	Next    int32
}

var (
	headerSize = int(unsafe.Sizeof(Header{}))
	slotSize   = int(unsafe.Sizeof(Slot{}))
)

// Size returns the number of bytes a queue with the given capacity occupies,
// header included. Callers size (and ftruncate) the backing shared-memory
// object with this before mapping it.
func Size(capacity int) int64 {
	return int64(headerSize + capacity*slotSize)
}

// Arena is a typed view over a byte slice obtained by mmap-ing a worker
// queue's shared-memory object. Two Arena values in two different
// processes, both backed by mappings of the same object, observe each
// other's writes to Header and Slots (but never share a virtual address).
type Arena struct {
	data   []byte
	header *Header
	slots  []Slot
}

// New interprets data (the full mmap'd region, of length Size(capacity)) as
// an Arena. If initialize is true, the header and every slot are zeroed and
// the free list is populated with every slot, in index order; this must
// happen exactly once, by whichever process creates the shared-memory
// object.
func New(data []byte, capacity int, initialize bool) (*Arena, error) {
	want := Size(capacity)
	if int64(len(data)) < want {
		return nil, fmt.Errorf("arena: mapped region is %d bytes, need %d for capacity %d", len(data), want, capacity)
	}

	a := &Arena{
		data:   data,
		header: (*Header)(unsafe.Pointer(&data[0])),
		slots:  unsafe.Slice((*Slot)(unsafe.Pointer(&data[headerSize])), capacity),
	}

	if initialize {
		a.initialize(capacity)
	}
	return a, nil
}

func (a *Arena) initialize(capacity int) {
	*a.header = Header{
		Capacity:      int32(capacity),
		FreeHead:      NoLink,
		ReadyHead:     NoLink,
		CompletedHead: NoLink,
	}
	for i := range a.slots {
		a.slots[i] = Slot{Prev: NoLink, Next: NoLink}
	}
	// Build the initial free list: every slot, in order, as a circular
	// doubly linked list (tail.Next = head; head.Prev = tail).
	for i := range a.slots {
		prev := int32(i - 1)
		next := int32(i + 1)
		if i == 0 {
			prev = int32(capacity - 1)
		}
		if i == capacity-1 {
			next = 0
		}
		a.slots[i].Prev = prev
		a.slots[i].Next = next
	}
	if capacity > 0 {
		a.header.FreeHead = 0
	}
}

// Header returns the arena's fixed-layout header.
func (a *Arena) Header() *Header { return a.header }

// Slot returns a pointer to the slot at index i. Valid for 0 <= i <
// Capacity().
func (a *Arena) Slot(i int32) *Slot { return &a.slots[i] }

// Capacity returns the number of slots in the arena.
func (a *Arena) Capacity() int32 { return a.header.Capacity }

// SetPath copies path into the slot, truncated to MaxPathLen and
// NUL-terminated in storage, per the try_request contract.
func (s *Slot) SetPath(path []byte) {
	n := len(path)
	if n > MaxPathLen-1 {
		n = MaxPathLen - 1
	}
	copy(s.Path[:], path[:n])
	s.Path[n] = 0
	s.PathLen = uint16(n)
}

// PathBytes returns the stored path without its NUL terminator.
func (s *Slot) PathBytes() []byte {
	return s.Path[:s.PathLen]
}
