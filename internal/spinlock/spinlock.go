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

// Package spinlock implements a process-shared test-and-set lock over a
// single word of shared memory.
//
// Critical sections guarded by a Lock must be O(1) and must never make a
// syscall: the atomic instructions underneath work across process
// boundaries (cache coherency, not virtual-address equality, is what makes
// shared memory shared), but a thread or process descheduled while holding
// the lock stalls every other locker for the rest of its quantum.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

const (
	unlocked int32 = 0
	locked   int32 = 1

	spinAttempts = 1024
)

// Lock is a process-shared spinlock backed by a *int32 living in
// shared memory. The zero value of the underlying word is unlocked.
type Lock struct {
	word *int32
}

// New wraps word, a pointer into shared memory, as a Lock. Every process
// that maps the containing region and wants to synchronize on it should
// construct its own Lock from its own pointer to the same offset.
func New(word *int32) *Lock {
	return &Lock{word: word}
}

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock() bool {
	return atomic.CompareAndSwapInt32(l.word, unlocked, locked)
}

// Lock blocks until the lock is acquired. It spins briefly, then calls
// runtime.Gosched between attempts; contention is expected to last microseconds
// (one worker and one loader thread touching a single list), so there is no
// sleeping backoff tier.
func (l *Lock) Lock() {
	for i := 0; ; i++ {
		if l.TryLock() {
			return
		}
		if i < spinAttempts {
			continue
		}
		runtime.Gosched()
	}
}

// Unlock releases the lock. The caller must hold it.
func (l *Lock) Unlock() {
	atomic.StoreInt32(l.word, unlocked)
}
