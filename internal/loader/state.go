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

// Package loader is the loader-process half of the system: the shared
// state both the reader and responder threads touch (spec.md §2's "Loader
// State"), and the two thread bodies themselves.
package loader

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ringload/ringload/cfg"
	"github.com/ringload/ringload/internal/arena"
	"github.com/ringload/ringload/internal/logger"
	"github.com/ringload/ringload/internal/reorder"
	"github.com/ringload/ringload/internal/ring"
	"github.com/ringload/ringload/internal/shm"
)

// ringDepth is the kernel submission/completion ring's queue depth. It
// bounds how many reads can be in flight across all worker queues at once,
// independent of any single queue's queue_depth.
const ringDepth = 256

// loaderSlot is the loader process's process-local bookkeeping for one
// arena slot: the open file descriptor while I/O is in flight, and the
// loader-side shared-memory mapping, which spec.md §4.7 permits reusing
// across requests on the same slot to elide a munmap/mmap pair.
type loaderSlot struct {
	fd      int
	mapping *shm.Mapping
	mapped  bool
}

// State is the process-wide structure spec.md §2 calls "Loader State": the
// array of worker queues, the kernel ring handle, and the optional reorder
// staging buffer.
type State struct {
	// Dependencies.
	Config cfg.Config

	// Constant data.
	// RunID identifies one Init call's run in the logs (and in the LBA
	// pattern dump); every Init draws a fresh one, so it does not survive a
	// restart. It has no protocol meaning, only operational.
	RunID string

	// Mutable state.
	queueMappings []*shm.Mapping
	Queues        []*arena.Arena
	local         [][]loaderSlot

	Ring  *ring.Ring
	Batch *reorder.Batch

	consecutiveCompletionErrors int
}

// Init creates the kernel ring and one shared-memory-backed arena per
// worker queue, per spec.md §6's init(state, queue_depth, max_file_size,
// n_workers, dispatch_n[, max_idle_iters, open_flags]). It is the only
// place in the loader that creates (as opposed to opens) the queue arenas;
// workers attach to them afterward via internal/worker.Open.
func Init(c cfg.Config) (*State, error) {
	r, err := ring.New(ringDepth)
	if err != nil {
		return nil, fmt.Errorf("loader: init: %w", err)
	}

	s := &State{
		Config: c,
		RunID:  uuid.NewString(),
		Ring:   r,
	}

	if cfg.IsReorderEnabled(&c) {
		s.Batch = reorder.New(c.Reorder.DispatchN, c.Reorder.MaxIdleIters, c.Workers.NWorkers)
		if c.Debug.LBAPatternFile != "" {
			s.Batch.Viz = reorder.NewVisualizer(s.RunID)
		}
	}

	for i := 0; i < c.Workers.NWorkers; i++ {
		name := shm.QueueName(int32(i))
		size := arena.Size(c.Workers.QueueDepth)
		mapping, err := shm.Create(name, size)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("loader: init: create queue %d: %w", i, err)
		}
		ar, err := arena.New(mapping.Data(), c.Workers.QueueDepth, true)
		if err != nil {
			_ = mapping.Close()
			s.Close()
			return nil, fmt.Errorf("loader: init: arena %d: %w", i, err)
		}
		ar.Header().WorkerID = int32(i)

		s.queueMappings = append(s.queueMappings, mapping)
		s.Queues = append(s.Queues, ar)
		s.local = append(s.local, make([]loaderSlot, c.Workers.QueueDepth))
	}

	logger.Infof("loader: initialized run=%s workers=%d queue_depth=%d reorder=%t", s.RunID, c.Workers.NWorkers, c.Workers.QueueDepth, cfg.IsReorderEnabled(&c))
	return s, nil
}

// Close tears down the ring and every worker queue mapping. It does not
// unlink the queue shared-memory objects — workers may still be attaching
// to them during a graceful shutdown race, and per-request objects are
// unlinked individually by their owning worker's Release.
func (s *State) Close() error {
	var firstErr error
	if s.Ring != nil {
		if err := s.Ring.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for i, m := range s.queueMappings {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("loader: close queue %d: %w", i, err)
		}
	}
	return firstErr
}

func encodeUserData(workerID, index int32) uint64 {
	return uint64(uint32(workerID))<<32 | uint64(uint32(index))
}

func decodeUserData(u uint64) (workerID, index int32) {
	return int32(u >> 32), int32(uint32(u))
}
