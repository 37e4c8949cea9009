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

package loader

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ringload/ringload/internal/logger"
	"github.com/ringload/ringload/internal/metrics"
	"github.com/ringload/ringload/internal/queue"
	"github.com/ringload/ringload/internal/reorder"
	"github.com/ringload/ringload/internal/shm"
)

// ErrFileTooLarge is returned internally when a request's rounded-up size
// exceeds the configured max-file-size. SPEC_FULL.md §12 resolves spec.md
// §9's open question by treating this exactly like any other setup
// failure: diagnostic, requeue to ready.
var ErrFileTooLarge = fmt.Errorf("ringload: rounded file size exceeds max-file-size")

// Reader is the loader's reader thread (spec.md §4.3): it round-robins
// worker queues, drains ready entries, and either submits them directly or
// stages them for reorder batching.
type Reader struct {
	state *State
	next  int // round-robin cursor over state.Queues
}

// NewReader returns a reader bound to state.
func NewReader(state *State) *Reader {
	return &Reader{state: state}
}

// Run drives the reader loop until ctx is cancelled. Each pass visits every
// worker queue once, round-robin, per spec.md §5's starvation bound.
func (r *Reader) Run(ctx context.Context) error {
	n := len(r.state.Queues)
	if n == 0 {
		return fmt.Errorf("loader: reader: no worker queues configured")
	}
	for {
		if ctx.Err() != nil {
			return r.drainAndSubmit()
		}
		r.visit(ctx, r.next)
		r.next = (r.next + 1) % n
	}
}

// visit services one round-robin turn on worker i.
func (r *Reader) visit(ctx context.Context, i int) {
	ar := r.state.Queues[i]
	idx, ok := queue.Pop(ar, queue.Ready)
	if !ok {
		if r.state.Batch != nil && r.state.Batch.NoteIdle() {
			if err := r.drainAndSubmit(); err != nil {
				logger.Errorf("loader: reader: idle-drain submit: %v", err)
			}
		}
		return
	}

	workerID := int32(i)
	if err := r.setup(workerID, idx); err != nil {
		logger.Warnf("loader: reader: worker %d entry %d: %v", workerID, idx, err)
		queue.Push(ar, queue.Ready, idx)
		return
	}

	if r.state.Batch != nil {
		slot := ar.Slot(idx)
		r.state.Batch.Stage(reorder.Ref{WorkerID: workerID, Index: idx}, slot.LBA, int64(slot.Size))
		if r.state.Batch.Full() {
			if err := r.drainAndSubmit(); err != nil {
				logger.Errorf("loader: reader: dispatch_n submit: %v", err)
			}
		}
		return
	}

	if err := r.mapAndSubmit(workerID, idx); err != nil {
		logger.Warnf("loader: reader: worker %d entry %d: %v", workerID, idx, err)
		r.abandon(workerID, idx)
		queue.Push(ar, queue.Ready, idx)
		return
	}
	if _, err := r.state.Ring.Submit(); err != nil {
		logger.Errorf("loader: reader: submit: %v", err)
	}
}

// setup performs spec.md §4.3 steps 3–6: open, discard a stale mapping,
// query size, and take the extent hint. It leaves the slot's Size and LBA
// populated and the file descriptor stashed in the loader's local table,
// ready for either immediate or deferred (reorder) shm mapping.
func (r *Reader) setup(workerID, idx int32) error {
	ar := r.state.Queues[workerID]
	slot := ar.Slot(idx)
	local := &r.state.local[workerID][idx]

	fd, err := unix.Open(string(slot.PathBytes()), unix.O_RDONLY|int(r.state.Config.IO.OpenFlags), 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", slot.PathBytes(), err)
	}

	if local.mapped {
		_ = local.mapping.Close()
		local.mapping = nil
		local.mapped = false
	}

	size, err := querySize(fd)
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("query size: %w", err)
	}
	rounded := roundUp4K(size)
	if rounded > r.state.Config.IO.MaxFileSize {
		_ = unix.Close(fd)
		return fmt.Errorf("%w (%d > %d)", ErrFileTooLarge, rounded, r.state.Config.IO.MaxFileSize)
	}
	slot.Size = uint64(rounded)

	if lba, ok := firstExtentLBA(fd); ok {
		slot.LBA = lba
	} else {
		slot.LBA = 0
	}

	local.fd = fd
	return nil
}

// mapAndSubmit performs spec.md §4.3 steps 7–8: create and map the
// per-request shared-memory object, then prepare the kernel read. Does not
// itself call Submit; callers batch that.
func (r *Reader) mapAndSubmit(workerID, idx int32) error {
	ar := r.state.Queues[workerID]
	slot := ar.Slot(idx)
	local := &r.state.local[workerID][idx]

	name := shm.Name(workerID, idx)
	mapping, err := shm.Create(name, int64(slot.Size))
	if err != nil {
		_ = unix.Close(local.fd)
		return fmt.Errorf("create %s: %w", name, err)
	}
	local.mapping = mapping
	local.mapped = true

	userData := encodeUserData(workerID, idx)
	if !r.state.Ring.PrepareRead(local.fd, mapping.Data(), 0, userData) {
		_ = unix.Close(local.fd)
		_ = mapping.Close()
		_ = shm.Unlink(name)
		local.mapped = false
		local.mapping = nil
		return fmt.Errorf("submission ring full")
	}
	return nil
}

// abandon undoes setup's side effects (an open fd, possibly a stale
// mapping) when the entry is being requeued rather than submitted. This
// closes the rationale for SPEC_FULL.md §12's fd-leak resolution.
func (r *Reader) abandon(workerID, idx int32) {
	local := &r.state.local[workerID][idx]
	if local.fd > 0 {
		_ = unix.Close(local.fd)
		local.fd = 0
	}
	if local.mapped {
		_ = local.mapping.Close()
		_ = shm.Unlink(shm.Name(workerID, idx))
		local.mapping = nil
		local.mapped = false
	}
}

// drainAndSubmit flushes the reorder batch, if any, mapping and preparing
// each staged entry in sorted order before issuing a single submit
// syscall for the whole batch.
func (r *Reader) drainAndSubmit() error {
	if r.state.Batch == nil {
		return nil
	}
	refs := r.state.Batch.Drain()
	if len(refs) == 0 {
		return nil
	}
	metrics.ReorderBatch(context.Background(), len(refs))
	if err := r.state.Batch.DumpVizAndReset(r.state.Config.Debug.LBAPatternFile); err != nil {
		logger.Warnf("loader: reader: dump lba pattern: %v", err)
	}

	for _, ref := range refs {
		if err := r.mapAndSubmit(ref.WorkerID, ref.Index); err != nil {
			logger.Warnf("loader: reader: reorder flush worker %d entry %d: %v", ref.WorkerID, ref.Index, err)
			r.abandon(ref.WorkerID, ref.Index)
			queue.Push(r.state.Queues[ref.WorkerID], queue.Ready, ref.Index)
		}
	}
	_, err := r.state.Ring.Submit()
	return err
}
