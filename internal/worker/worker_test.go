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

package worker

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringload/ringload/internal/arena"
	"github.com/ringload/ringload/internal/queue"
	"github.com/ringload/ringload/internal/shm"
)

func newTestQueue(t *testing.T, capacity int, workerID int32) *Queue {
	t.Helper()
	data := make([]byte, arena.Size(capacity))
	a, err := arena.New(data, capacity, true)
	require.NoError(t, err)
	return Open(a, workerID)
}

func TestTryRequest_PopsFreeAndPushesReady(t *testing.T) {
	q := newTestQueue(t, 2, 0)

	ok := TryRequest(q, []byte("/data/a.bin"))

	require.True(t, ok)
	assert.Equal(t, 1, queue.Len(q.Arena, queue.Ready))
	assert.Equal(t, 1, queue.Len(q.Arena, queue.Free))
}

func TestTryRequest_FailsWhenFreeExhausted(t *testing.T) {
	q := newTestQueue(t, 1, 0)
	require.True(t, TryRequest(q, []byte("/a")))

	ok := TryRequest(q, []byte("/b"))

	assert.False(t, ok)
}

func TestTryGet_EmptyCompleted_ReturnsFalse(t *testing.T) {
	q := newTestQueue(t, 2, 0)

	e, ok := TryGet(q)

	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestTryGet_MapsCompletedEntryAndReturnsHandle(t *testing.T) {
	if _, err := os.Stat(shm.Dir); err != nil {
		t.Skipf("worker: %s not available in this environment: %v", shm.Dir, err)
	}

	q := newTestQueue(t, 2, 42)
	idx, ok := queue.Pop(q.Arena, queue.Free)
	require.True(t, ok)

	slot := q.Arena.Slot(idx)
	slot.SetPath([]byte("/data/a.bin"))
	slot.Size = 4096

	name := shm.Name(q.ID, idx)
	mapping, err := shm.Create(name, int64(slot.Size))
	require.NoError(t, err)
	copy(mapping.Data(), []byte("payload"))
	require.NoError(t, mapping.Close())
	defer shm.Unlink(name)

	queue.Push(q.Arena, queue.Completed, idx)

	e, ok := TryGet(q)
	require.True(t, ok)
	require.NotNil(t, e)
	assert.Equal(t, "/data/a.bin", string(e.Path()))
	assert.Equal(t, []byte("payload"), e.Data()[:len("payload")])

	Release(e)

	assert.False(t, shm.Exists(name))
	assert.Equal(t, 2, queue.Len(q.Arena, queue.Free))
}

func TestTryGet_MissingShmObject_ReturnsFalseAndRequeuesToFree(t *testing.T) {
	if _, err := os.Stat(shm.Dir); err != nil {
		t.Skipf("worker: %s not available in this environment: %v", shm.Dir, err)
	}

	q := newTestQueue(t, 2, 43)
	idx, ok := queue.Pop(q.Arena, queue.Free)
	require.True(t, ok)
	q.Arena.Slot(idx).Size = 4096
	queue.Push(q.Arena, queue.Completed, idx)

	e, ok := TryGet(q)

	assert.False(t, ok)
	assert.Nil(t, e)
	assert.Equal(t, 2, queue.Len(q.Arena, queue.Free))
}
