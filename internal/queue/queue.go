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

// Package queue implements the three FIFO lists (free, ready, completed)
// that make up a worker queue, as circular doubly linked lists of slot
// indices inside a shared-memory arena. Each list has its own spinlock;
// push and pop are O(1) and touch no syscall while the lock is held.
package queue

import (
	"sync/atomic"

	"github.com/ringload/ringload/internal/arena"
	"github.com/ringload/ringload/internal/spinlock"
)

// List identifies one of a worker queue's three FIFO lists.
type List int

const (
	Free List = iota
	Ready
	Completed
)

func (l List) String() string {
	switch l {
	case Free:
		return "free"
	case Ready:
		return "ready"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

func headAndLock(h *arena.Header, l List) (*int32, *int32) {
	switch l {
	case Free:
		return &h.FreeHead, &h.FreeLock
	case Ready:
		return &h.ReadyHead, &h.ReadyLock
	case Completed:
		return &h.CompletedHead, &h.CompletedLock
	default:
		panic("queue: unknown list")
	}
}

// Push puts slot index onto the tail of list l. O(1); the caller must not
// already have index linked into any list.
func Push(a *arena.Arena, l List, index int32) {
	headPtr, lockPtr := headAndLock(a.Header(), l)
	lk := spinlock.New(lockPtr)
	lk.Lock()
	defer lk.Unlock()

	s := a.Slot(index)
	head := atomic.LoadInt32(headPtr)
	if head == arena.NoLink {
		s.Prev = index
		s.Next = index
		atomic.StoreInt32(headPtr, index)
		return
	}

	tail := a.Slot(head).Prev
	s.Prev = tail
	s.Next = head
	a.Slot(tail).Next = index
	a.Slot(head).Prev = index
}

// Pop removes and returns the slot index at the head of list l. O(1).
// Returns false if the list was empty.
func Pop(a *arena.Arena, l List) (int32, bool) {
	headPtr, lockPtr := headAndLock(a.Header(), l)
	lk := spinlock.New(lockPtr)
	lk.Lock()
	defer lk.Unlock()

	head := atomic.LoadInt32(headPtr)
	if head == arena.NoLink {
		return arena.NoLink, false
	}

	s := a.Slot(head)
	if s.Next == head {
		atomic.StoreInt32(headPtr, arena.NoLink)
	} else {
		newHead, tail := s.Next, s.Prev
		a.Slot(newHead).Prev = tail
		a.Slot(tail).Next = newHead
		atomic.StoreInt32(headPtr, newHead)
	}
	s.Prev, s.Next = arena.NoLink, arena.NoLink
	return head, true
}

// IsEmptyHint does a racy, lock-free read of list l's head. It is only ever
// used to decide whether a lock-guarded Pop is worth attempting (see
// try_get in the worker interface); a false negative or positive here is
// harmless, since the subsequent Pop is authoritative.
func IsEmptyHint(a *arena.Arena, l List) bool {
	headPtr, _ := headAndLock(a.Header(), l)
	return atomic.LoadInt32(headPtr) == arena.NoLink
}

// Len walks list l under its lock and returns its length. O(n); intended
// for metrics and tests, never for the hot path.
func Len(a *arena.Arena, l List) int {
	headPtr, lockPtr := headAndLock(a.Header(), l)
	lk := spinlock.New(lockPtr)
	lk.Lock()
	defer lk.Unlock()

	head := atomic.LoadInt32(headPtr)
	if head == arena.NoLink {
		return 0
	}
	n := 1
	for cur := a.Slot(head).Next; cur != head; cur = a.Slot(cur).Next {
		n++
	}
	return n
}
