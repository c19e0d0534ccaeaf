// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package kdtree

import (
	"container/heap"
	"slices"
)

// Compile time check to ensure boundedHeap satisfies the heap interface.
var _ heap.Interface = (*boundedHeap)(nil)

type candidate struct {
	index int
	dist2 float64
}

// before orders candidates by distance, then by insertion index.
func (c candidate) before(o candidate) bool {
	if c.dist2 != o.dist2 {
		return c.dist2 < o.dist2
	}
	return c.index < o.index
}

// boundedHeap keeps the k best candidates seen so far. The root is the worst
// retained candidate so it can be evicted in O(log k).
type boundedHeap struct {
	limit int
	items []candidate
}

func newBoundedHeap(limit int) *boundedHeap {
	return &boundedHeap{limit: limit, items: make([]candidate, 0, limit)}
}

func (h *boundedHeap) Len() int           { return len(h.items) }
func (h *boundedHeap) Less(i, j int) bool { return h.items[j].before(h.items[i]) }
func (h *boundedHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap) Push(x any) {
	h.items = append(h.items, x.(candidate))
}

func (h *boundedHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

func (h *boundedHeap) full() bool { return len(h.items) >= h.limit }

// worst returns the squared distance of the worst retained candidate.
func (h *boundedHeap) worst() float64 { return h.items[0].dist2 }

// offer adds a candidate if it beats the current worst.
func (h *boundedHeap) offer(index int, dist2 float64) {
	c := candidate{index: index, dist2: dist2}
	if !h.full() {
		heap.Push(h, c)
		return
	}
	if c.before(h.items[0]) {
		h.items[0] = c
		heap.Fix(h, 0)
	}
}

// sorted returns the retained candidates, best first.
func (h *boundedHeap) sorted() []candidate {
	out := slices.Clone(h.items)
	slices.SortFunc(out, func(a, b candidate) int {
		if a.before(b) {
			return -1
		}
		if b.before(a) {
			return 1
		}
		return 0
	})
	return out
}
