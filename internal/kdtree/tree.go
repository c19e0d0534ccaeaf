// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package kdtree implements an immutable k-d tree over fixed-length embeddings
// keyed by track id, answering k-nearest-neighbor queries by Euclidean distance.
//
// The tree is built once. Every node splits on the dimension with the largest
// spread among its points, at the median, so both children receive half of the
// points and the tree is balanced. Nodes holding at most LeafSize points are
// leaves and are scanned linearly at query time.
//
// Ties between equally distant points are broken by insertion order, so a
// query against a fixed tree always returns the same sequence.
package kdtree

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultLeafSize is the leaf capacity used when none is configured.
const DefaultLeafSize = 7

var (
	// ErrEmpty is returned when building a tree without points.
	ErrEmpty = errors.New("kdtree: no points to index")

	// ErrInvalidK is returned for k < 1.
	ErrInvalidK = errors.New("kdtree: k must be at least 1")

	// ErrInsufficientNeighbors is returned when fewer than k candidates exist.
	ErrInsufficientNeighbors = errors.New("kdtree: not enough indexed points for k neighbors")

	// ErrUnknownID is returned when looking up an id that is not indexed.
	ErrUnknownID = errors.New("kdtree: unknown id")
)

// Neighbor is a query result.
type Neighbor struct {
	ID       string
	Index    int
	Distance float64
}

// node is a subtree over perm[Lo:Hi]. Leaves have Left == -1.
type node struct {
	Lo, Hi   int
	SplitDim int
	SplitVal float64
	Left     int
	Right    int
}

func (n *node) leaf() bool { return n.Left < 0 }

// Tree is a read-only k-d tree. It is safe for concurrent queries.
type Tree struct {
	ids      []string
	points   [][]float64
	byID     map[string]int
	dim      int
	leafSize int

	// perm orders point indices so that every node covers a contiguous range.
	perm  []int
	nodes []node
}

// Build indexes points, where points[i] is the embedding of ids[i].
// leafSize < 1 selects DefaultLeafSize.
func Build(ids []string, points [][]float64, leafSize int) (*Tree, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}
	if len(ids) != len(points) {
		return nil, fmt.Errorf("kdtree: %d ids for %d points", len(ids), len(points))
	}
	if leafSize < 1 {
		leafSize = DefaultLeafSize
	}

	dim := len(points[0])
	if dim == 0 {
		return nil, fmt.Errorf("kdtree: points have no dimensions")
	}

	t := &Tree{
		ids:      slices.Clone(ids),
		points:   make([][]float64, len(points)),
		byID:     make(map[string]int, len(ids)),
		dim:      dim,
		leafSize: leafSize,
		perm:     make([]int, len(points)),
	}
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("kdtree: point %d has %d dimensions, want %d", i, len(p), dim)
		}
		if _, dup := t.byID[ids[i]]; dup {
			return nil, fmt.Errorf("kdtree: duplicate id %q", ids[i])
		}
		t.byID[ids[i]] = i
		t.points[i] = slices.Clone(p)
		t.perm[i] = i
	}

	t.nodes = make([]node, 0, 2*len(points)/leafSize+1)
	t.build(0, len(points))
	return t, nil
}

// build appends the subtree over perm[lo:hi] and returns its node index.
func (t *Tree) build(lo, hi int) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{Lo: lo, Hi: hi, Left: -1, Right: -1})

	if hi-lo <= t.leafSize {
		return idx
	}

	splitDim := t.widestDim(lo, hi)
	part := t.perm[lo:hi]
	slices.SortFunc(part, func(a, b int) int {
		va, vb := t.points[a][splitDim], t.points[b][splitDim]
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return a - b
	})

	mid := lo + (hi-lo)/2
	left := t.build(lo, mid)
	right := t.build(mid, hi)

	n := &t.nodes[idx]
	n.SplitDim = splitDim
	n.SplitVal = t.points[t.perm[mid]][splitDim]
	n.Left = left
	n.Right = right
	return idx
}

// widestDim returns the dimension with the largest value range in perm[lo:hi].
func (t *Tree) widestDim(lo, hi int) int {
	best, bestSpread := 0, -1.0
	for d := 0; d < t.dim; d++ {
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, i := range t.perm[lo:hi] {
			v := t.points[i][d]
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
		if spread := maxV - minV; spread > bestSpread {
			best, bestSpread = d, spread
		}
	}
	return best
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return len(t.points) }

// Dim returns the embedding length.
func (t *Tree) Dim() int { return t.dim }

// LeafSize returns the leaf capacity the tree was built with.
func (t *Tree) LeafSize() int { return t.leafSize }

// IDs returns the indexed ids in insertion order.
func (t *Tree) IDs() []string { return slices.Clone(t.ids) }

// Point returns a copy of the embedding stored for id.
func (t *Tree) Point(id string) ([]float64, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(t.points[i]), true
}

// Contains reports whether id is indexed.
func (t *Tree) Contains(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// Query returns the k points nearest to point, closest first.
func (t *Tree) Query(point []float64, k int) ([]Neighbor, error) {
	return t.query(point, k, -1)
}

// QueryExcluding returns the k points nearest to point, skipping excludeID.
// It is used to find the neighbors of an indexed point without returning the
// point itself, even when other points share its exact embedding.
func (t *Tree) QueryExcluding(point []float64, k int, excludeID string) ([]Neighbor, error) {
	skip := -1
	if i, ok := t.byID[excludeID]; ok {
		skip = i
	}
	return t.query(point, k, skip)
}

// NeighborsOf returns the k nearest neighbors of an indexed id, excluding itself.
func (t *Tree) NeighborsOf(id string, k int) ([]Neighbor, error) {
	i, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	return t.query(t.points[i], k, i)
}

func (t *Tree) query(point []float64, k, skip int) ([]Neighbor, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(point) != t.dim {
		return nil, fmt.Errorf("kdtree: query has %d dimensions, want %d", len(point), t.dim)
	}
	available := t.Len()
	if skip >= 0 {
		available--
	}
	if k > available {
		return nil, fmt.Errorf("%w: k=%d, candidates=%d", ErrInsufficientNeighbors, k, available)
	}

	h := newBoundedHeap(k)
	t.search(0, point, skip, h)

	items := h.sorted()
	out := make([]Neighbor, len(items))
	for i, it := range items {
		out[i] = Neighbor{
			ID:       t.ids[it.index],
			Index:    it.index,
			Distance: math.Sqrt(it.dist2),
		}
	}
	return out, nil
}

func (t *Tree) search(ni int, point []float64, skip int, h *boundedHeap) {
	n := &t.nodes[ni]
	if n.leaf() {
		for _, i := range t.perm[n.Lo:n.Hi] {
			if i == skip {
				continue
			}
			h.offer(i, squaredDistance(point, t.points[i]))
		}
		return
	}

	diff := point[n.SplitDim] - n.SplitVal
	near, far := n.Left, n.Right
	if diff >= 0 {
		near, far = n.Right, n.Left
	}

	t.search(near, point, skip, h)

	// Equal distance still has to be visited: the far side may hold a tie
	// with a lower insertion index.
	if !h.full() || diff*diff <= h.worst() {
		t.search(far, point, skip, h)
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
