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

// Package reorder implements the optional I/O reorder batching path from
// spec.md §4.6: the reader stages ready entries here instead of submitting
// them immediately, and the batch is flushed — sorted ascending by
// physical block address — once it reaches a trigger size or the reader
// has gone idle for long enough.
package reorder

import "github.com/ringload/ringload/internal/sortutil"

// Ref identifies one staged entry: which worker queue it belongs to and
// which slot within that queue.
type Ref struct {
	WorkerID int32
	Index    int32
}

// Batch accumulates staged (lba, ref) pairs until Stage or NoteIdle reports
// a trigger has fired; Drain then hands back every staged ref sorted
// ascending by lba and resets the batch for the next round.
type Batch struct {
	dispatchN     int
	idleThreshold int // max_idle_iters * n_workers
	items         []sortutil.Item
	idleIters     int

	// Viz, if set, records each staged entry's physical span in the order
	// it is staged, so the batch's access pattern as it stood before the
	// sort Drain performs can be rendered. Diagnostic only.
	Viz *Visualizer
}

// New creates an empty batch. dispatchN is the staged-count trigger;
// maxIdleIters and nWorkers combine into the idle-drain trigger
// (max_idle_iters × n_workers ready-pops with nothing to add).
func New(dispatchN, maxIdleIters, nWorkers int) *Batch {
	return &Batch{
		dispatchN:     dispatchN,
		idleThreshold: maxIdleIters * nWorkers,
	}
}

// Stage adds one entry to the batch and resets the idle counter — staging
// something is progress, not idleness. size is the entry's rounded read
// length, used only by Viz to render the batch's access pattern.
func (b *Batch) Stage(ref Ref, lba uint64, size int64) {
	b.items = append(b.items, sortutil.Item{Key: lba, Data: ref})
	b.idleIters = 0
	if b.Viz != nil {
		b.Viz.AcceptLBA(int64(lba)*b.Viz.scaleUnit, size)
	}
}

// NoteIdle records one reader iteration that found nothing to stage.
// Reports whether the idle-drain threshold has now been reached; the
// caller should Drain if so and if the batch is non-empty.
func (b *Batch) NoteIdle() bool {
	b.idleIters++
	return b.idleIters >= b.idleThreshold && len(b.items) > 0
}

// Full reports whether the batch has reached its dispatch-triggering size.
func (b *Batch) Full() bool {
	return b.dispatchN > 0 && len(b.items) >= b.dispatchN
}

// Len reports how many entries are currently staged.
func (b *Batch) Len() int {
	return len(b.items)
}

// Drain sorts every staged entry ascending by lba, returns the refs in
// that order, and empties the batch.
func (b *Batch) Drain() []Ref {
	if len(b.items) == 0 {
		return nil
	}
	sortutil.SortByKey(b.items)
	out := make([]Ref, len(b.items))
	for i, it := range b.items {
		out[i] = it.Data.(Ref)
	}
	b.items = b.items[:0]
	b.idleIters = 0
	return out
}

// DumpVizAndReset renders Viz's recorded dispatch-order access pattern to
// path and resets it for the next batch. A no-op if Viz is unset.
func (b *Batch) DumpVizAndReset(path string) error {
	if b.Viz == nil {
		return nil
	}
	defer b.Viz.Reset()
	if path == "" {
		return nil
	}
	return b.Viz.DumpGraphToFile(path)
}
