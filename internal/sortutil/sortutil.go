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

// Package sortutil provides the sort-by-key contract the reorder batcher
// needs: sort a small, bounded batch of (key, payload) pairs ascending by
// key. The spec treats this as an external collaborator specified only by
// its contract ("insertion sort for n < 16, merge sort otherwise; callers
// must not depend on algorithmic specifics"); this package is the
// conforming implementation, not a port of any particular library.
package sortutil

// Item is one element to sort: Key is the sort key (a physical block
// address, for the reorder batcher), Data is an opaque payload carried
// along for the ride.
type Item struct {
	Key  uint64
	Data any
}

// insertionThreshold is the crossover point below which insertion sort
// beats merge sort's setup cost for this element size.
const insertionThreshold = 16

// SortByKey sorts items ascending by Key in place. Stability is not part of
// the contract; both the insertion and the merge path happen to keep items
// with equal keys in their input order.
func SortByKey(items []Item) {
	if len(items) < insertionThreshold {
		insertionSort(items)
		return
	}
	buf := make([]Item, len(items))
	mergeSort(items, buf)
}

func insertionSort(items []Item) {
	for i := 1; i < len(items); i++ {
		v := items[i]
		j := i - 1
		for j >= 0 && items[j].Key > v.Key {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = v
	}
}

func mergeSort(items, buf []Item) {
	n := len(items)
	if n < 2 {
		return
	}
	if n < insertionThreshold {
		insertionSort(items)
		return
	}
	mid := n / 2
	mergeSort(items[:mid], buf[:mid])
	mergeSort(items[mid:], buf[mid:])
	merge(items, buf[:n])
}

func merge(items, buf []Item) {
	mid := len(items) / 2
	left, right := items[:mid], items[mid:]
	copy(buf[:len(left)], left)
	l, r, i := 0, 0, 0
	lbuf := buf[:len(left)]
	for l < len(lbuf) && r < len(right) {
		if lbuf[l].Key <= right[r].Key {
			items[i] = lbuf[l]
			l++
		} else {
			items[i] = right[r]
			r++
		}
		i++
	}
	for l < len(lbuf) {
		items[i] = lbuf[l]
		l++
		i++
	}
	for r < len(right) {
		items[i] = right[r]
		r++
		i++
	}
}
