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

package sortutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(items []Item) []uint64 {
	out := make([]uint64, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func isSortedAscending(keys []uint64) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			return false
		}
	}
	return true
}

func TestSortByKey_Empty(t *testing.T) {
	var items []Item
	SortByKey(items)
	assert.Empty(t, items)
}

func TestSortByKey_SingleElement(t *testing.T) {
	items := []Item{{Key: 42, Data: "x"}}
	SortByKey(items)
	assert.Equal(t, uint64(42), items[0].Key)
}

func TestSortByKey_BelowInsertionThreshold(t *testing.T) {
	items := []Item{
		{Key: 5, Data: "e"},
		{Key: 1, Data: "a"},
		{Key: 3, Data: "c"},
		{Key: 2, Data: "b"},
		{Key: 4, Data: "d"},
	}

	SortByKey(items)

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, keys(items))
	assert.Equal(t, "a", items[0].Data)
	assert.Equal(t, "e", items[4].Data)
}

func TestSortByKey_AboveInsertionThreshold_UsesMergeSort(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	items := make([]Item, 200)
	for i := range items {
		items[i] = Item{Key: uint64(r.Intn(1000)), Data: i}
	}

	SortByKey(items)

	assert.True(t, isSortedAscending(keys(items)))
	assert.Len(t, items, 200)
}

func TestSortByKey_PreservesPayload(t *testing.T) {
	items := []Item{
		{Key: 30, Data: "third"},
		{Key: 10, Data: "first"},
		{Key: 20, Data: "second"},
	}

	SortByKey(items)

	assert.Equal(t, "first", items[0].Data)
	assert.Equal(t, "second", items[1].Data)
	assert.Equal(t, "third", items[2].Data)
}

func TestSortByKey_AlreadySorted(t *testing.T) {
	items := make([]Item, 20)
	for i := range items {
		items[i] = Item{Key: uint64(i)}
	}

	SortByKey(items)

	assert.True(t, isSortedAscending(keys(items)))
}
