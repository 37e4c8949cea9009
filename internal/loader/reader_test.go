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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringload/ringload/cfg"
	"github.com/ringload/ringload/internal/queue"
)

func writeTestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reader-test-file")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestSetup_PopulatesSizeRoundedUpAndOpensFD(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	path := writeTestFile(t, "hello")
	slot := s.Queues[0].Slot(0)
	slot.SetPath([]byte(path))

	require.NoError(t, r.setup(0, 0))
	assert.Equal(t, uint64(4096), slot.Size) // rounded up from 5 bytes.
	assert.NotZero(t, s.local[0][0].fd)
}

func TestSetup_OversizedFileReturnsErrFileTooLarge(t *testing.T) {
	s := newTestState(t, func(c *cfg.Config) { c.IO.MaxFileSize = 10 })
	r := NewReader(s)

	path := writeTestFile(t, "this file is definitely longer than ten bytes")
	slot := s.Queues[0].Slot(0)
	slot.SetPath([]byte(path))

	err := r.setup(0, 0)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSetup_NonexistentPathReturnsError(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	slot := s.Queues[0].Slot(0)
	slot.SetPath([]byte("/nonexistent/path/does/not/exist"))

	assert.Error(t, r.setup(0, 0))
}

func TestMapAndSubmit_PreparesReadOnRing(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	path := writeTestFile(t, "payload")
	slot := s.Queues[0].Slot(0)
	slot.SetPath([]byte(path))
	require.NoError(t, r.setup(0, 0))

	require.NoError(t, r.mapAndSubmit(0, 0))
	assert.True(t, s.local[0][0].mapped)

	n, err := s.Ring.Submit()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAbandon_ClosesFDAndUnlinksMapping(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	path := writeTestFile(t, "payload")
	slot := s.Queues[0].Slot(0)
	slot.SetPath([]byte(path))
	require.NoError(t, r.setup(0, 0))
	require.NoError(t, r.mapAndSubmit(0, 0))

	r.abandon(0, 0)

	assert.Zero(t, s.local[0][0].fd)
	assert.False(t, s.local[0][0].mapped)
}

func TestVisit_DirectPath_MovesReadyEntryOntoTheRing(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)
	path := writeTestFile(t, "payload")
	s.Queues[0].Slot(idx).SetPath([]byte(path))
	queue.Push(s.Queues[0], queue.Ready, idx)

	r.visit(context.Background(), 0)

	assert.Equal(t, 0, queue.Len(s.Queues[0], queue.Ready))
	assert.True(t, s.local[0][idx].mapped)
}

func TestVisit_SetupFailure_RequeuesToReady(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)
	s.Queues[0].Slot(idx).SetPath([]byte("/nonexistent/path"))
	queue.Push(s.Queues[0], queue.Ready, idx)

	r.visit(context.Background(), 0)

	assert.Equal(t, 1, queue.Len(s.Queues[0], queue.Ready))
}

func TestVisit_WithReorderEnabled_StagesInsteadOfSubmittingImmediately(t *testing.T) {
	s := newTestState(t, func(c *cfg.Config) {
		c.Reorder.Enabled = true
		c.Reorder.DispatchN = 10
		c.Reorder.MaxIdleIters = 100
	})
	r := NewReader(s)

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)
	path := writeTestFile(t, "payload")
	s.Queues[0].Slot(idx).SetPath([]byte(path))
	queue.Push(s.Queues[0], queue.Ready, idx)

	r.visit(context.Background(), 0)

	assert.Equal(t, 1, s.Batch.Len())
	assert.False(t, s.local[0][idx].mapped) // mapping deferred until drain.
}

func TestVisit_WithReorderEnabled_FullBatchTriggersDrainAndSubmit(t *testing.T) {
	s := newTestState(t, func(c *cfg.Config) {
		c.Reorder.Enabled = true
		c.Reorder.DispatchN = 2
		c.Reorder.MaxIdleIters = 100
	})
	r := NewReader(s)

	for _, workerID := range []int{0, 1} {
		idx, ok := queue.Pop(s.Queues[workerID], queue.Free)
		require.True(t, ok)
		path := writeTestFile(t, "payload")
		s.Queues[workerID].Slot(idx).SetPath([]byte(path))
		queue.Push(s.Queues[workerID], queue.Ready, idx)
	}

	r.visit(context.Background(), 0)
	r.visit(context.Background(), 1)

	assert.Equal(t, 0, s.Batch.Len())
}

func TestDrainAndSubmit_NoBatchIsANoop(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)
	assert.NoError(t, r.drainAndSubmit())
}
