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

// Package worker is the worker-facing library surface from spec.md §4.2
// and §6: try_request, try_get, release. Every operation here is
// non-blocking, touches only this worker's own queue, and is safe to call
// from a single goroutine (the spec documents the interface as
// thread-compatible with one caller, not thread-safe for concurrent
// callers).
package worker

import (
	"github.com/ringload/ringload/internal/arena"
	"github.com/ringload/ringload/internal/entry"
	"github.com/ringload/ringload/internal/logger"
	"github.com/ringload/ringload/internal/queue"
	"github.com/ringload/ringload/internal/shm"
)

// Queue is a worker process's handle on its own worker queue: the arena
// mapping plus the worker ID that salts this queue's shared-memory object
// names.
type Queue struct {
	Arena *arena.Arena
	ID    int32
}

// Open wraps an already-mapped arena as a worker's queue handle. The
// worker obtains the arena by mapping the shared-memory object the loader
// created for it at init (out of band, by path or fd inherited at fork —
// left to the process supervisor; this package only operates once mapped).
func Open(a *arena.Arena, workerID int32) *Queue {
	return &Queue{Arena: a, ID: workerID}
}

// TryRequest pops one entry from free, stores path (truncated to
// arena.MaxPathLen, NUL-terminated), and pushes it onto ready. Returns
// false if free was empty — the caller should retry later, per spec.md §7's
// Queue-full policy.
func TryRequest(q *Queue, path []byte) bool {
	idx, ok := queue.Pop(q.Arena, queue.Free)
	if !ok {
		return false
	}
	q.Arena.Slot(idx).SetPath(path)
	queue.Push(q.Arena, queue.Ready, idx)
	return true
}

// TryGet does a racy empty check on completed; if apparently non-empty, it
// pops under lock and, only if that pop actually returned an entry (the
// §9 null-pop race guard), maps the entry's shared-memory object
// read/write on the worker side. Returns (nil, false) if nothing was
// ready or the pop raced and lost.
func TryGet(q *Queue) (*entry.Entry, bool) {
	if queue.IsEmptyHint(q.Arena, queue.Completed) {
		return nil, false
	}
	idx, ok := queue.Pop(q.Arena, queue.Completed)
	if !ok {
		return nil, false
	}

	slot := q.Arena.Slot(idx)
	name := shm.Name(q.ID, idx)
	mapping, err := shm.Open(name, int64(slot.Size))
	if err != nil {
		logger.Errorf("worker %d: try_get: map entry %d (%s): %v", q.ID, idx, name, err)
		// The entry is fully loaded but we can't hand it to the caller;
		// returning it to free (rather than back to completed) avoids a
		// poisoned entry spinning try_get forever on the same failure.
		queue.Push(q.Arena, queue.Free, idx)
		return nil, false
	}

	return &entry.Entry{Arena: q.Arena, WorkerID: q.ID, Index: idx, Mapping: mapping}, true
}

// Release unlinks the entry's shared-memory object, closes the worker-side
// descriptor, unmaps the worker-side pointer, and pushes the entry back
// onto its owning worker's free list. It has no return value: partial
// worker-side teardown failures (§7/§9) are logged, never surfaced,
// because the entry must return to free regardless to keep the cycle
// discipline in spec.md §3 intact.
func Release(e *entry.Entry) {
	name := e.ShmName()
	if e.Mapping != nil {
		if err := e.Mapping.Close(); err != nil {
			logger.Warnf("worker %d: release entry %d: unmap %s: %v", e.WorkerID, e.Index, name, err)
		}
	}
	if err := shm.Unlink(name); err != nil {
		logger.Warnf("worker %d: release entry %d: unlink %s: %v", e.WorkerID, e.Index, name, err)
	}
	queue.Push(e.Arena, queue.Free, e.Index)
}
