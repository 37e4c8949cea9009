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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringload/ringload/internal/queue"
	"github.com/ringload/ringload/internal/ring"
)

func TestHandle_SuccessfulCompletion_PushesToCompletedAndResetsErrorCount(t *testing.T) {
	s := newTestState(t, nil)
	resp := NewResponder(s)
	s.consecutiveCompletionErrors = 5

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)

	err := resp.handle(ring.CQE{UserData: encodeUserData(0, idx), Res: 4096})
	require.NoError(t, err)

	assert.Equal(t, 1, queue.Len(s.Queues[0], queue.Completed))
	assert.Equal(t, 0, s.consecutiveCompletionErrors)
}

func TestHandle_FailedCompletion_IncrementsErrorCountAndLeavesEntryOffEveryList(t *testing.T) {
	s := newTestState(t, nil)
	resp := NewResponder(s)

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)

	err := resp.handle(ring.CQE{UserData: encodeUserData(0, idx), Res: -5})
	require.NoError(t, err)

	assert.Equal(t, 1, s.consecutiveCompletionErrors)
	assert.Equal(t, 0, queue.Len(s.Queues[0], queue.Completed))
	assert.Equal(t, 0, queue.Len(s.Queues[0], queue.Ready))
}

func TestHandle_AbortsAfterMaxConsecutiveCompletionErrors(t *testing.T) {
	s := newTestState(t, nil)
	resp := NewResponder(s)
	s.consecutiveCompletionErrors = maxConsecutiveCompletionErrors - 1

	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)

	err := resp.handle(ring.CQE{UserData: encodeUserData(0, idx), Res: -5})
	assert.Error(t, err)
}

func TestHandle_ClosesOpenFDBeforeRouting(t *testing.T) {
	s := newTestState(t, nil)
	r := NewReader(s)
	resp := NewResponder(s)

	path := writeTestFile(t, "payload")
	idx, ok := queue.Pop(s.Queues[0], queue.Free)
	require.True(t, ok)
	s.Queues[0].Slot(idx).SetPath([]byte(path))
	require.NoError(t, r.setup(0, idx))
	require.NotZero(t, s.local[0][idx].fd)

	require.NoError(t, resp.handle(ring.CQE{UserData: encodeUserData(0, idx), Res: 4096}))

	assert.Zero(t, s.local[0][idx].fd)
}

func TestStart_ReturnsWhenContextCancelled(t *testing.T) {
	s := newTestState(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Start(ctx, s)
	assert.NoError(t, err)
}
