// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package kdtree

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// snapshot is the gob wire form of a Tree.
type snapshot struct {
	IDs      []string
	Points   [][]float64
	LeafSize int
	Perm     []int
	Nodes    []node
}

// GobEncode implements gob.GobEncoder.
func (t *Tree) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		IDs:      t.ids,
		Points:   t.points,
		LeafSize: t.leafSize,
		Perm:     t.perm,
		Nodes:    t.nodes,
	})
	if err != nil {
		return nil, fmt.Errorf("kdtree: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. The decoded structure is checked before
// it replaces the receiver.
func (t *Tree) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("kdtree: decode: %w", err)
	}
	if len(s.Points) == 0 || len(s.IDs) != len(s.Points) || len(s.Perm) != len(s.Points) || len(s.Nodes) == 0 {
		return fmt.Errorf("kdtree: decode: inconsistent tree (%d ids, %d points, %d nodes)",
			len(s.IDs), len(s.Points), len(s.Nodes))
	}

	dim := len(s.Points[0])
	byID := make(map[string]int, len(s.IDs))
	for i, p := range s.Points {
		if len(p) != dim {
			return fmt.Errorf("kdtree: decode: point %d has %d dimensions, want %d", i, len(p), dim)
		}
		byID[s.IDs[i]] = i
	}
	if len(byID) != len(s.IDs) {
		return fmt.Errorf("kdtree: decode: duplicate ids")
	}
	placed := make([]bool, len(s.Points))
	for _, i := range s.Perm {
		if i < 0 || i >= len(s.Points) || placed[i] {
			return fmt.Errorf("kdtree: decode: point index %d out of range or repeated", i)
		}
		placed[i] = true
	}
	if err := checkNodes(s.Nodes, len(s.Perm), dim); err != nil {
		return fmt.Errorf("kdtree: decode: %w", err)
	}

	*t = Tree{
		ids:      s.IDs,
		points:   s.Points,
		byID:     byID,
		dim:      dim,
		leafSize: s.LeafSize,
		perm:     s.Perm,
		nodes:    s.Nodes,
	}
	return nil
}

// checkNodes verifies the layout build produces: the root covers every point,
// children come after their parent, and an internal node's range is split
// exactly between its two children. Any decoded tree that passes can be
// searched without leaving the node slice or revisiting a node.
func checkNodes(nodes []node, n, dim int) error {
	if root := nodes[0]; root.Lo != 0 || root.Hi != n {
		return fmt.Errorf("root covers [%d,%d), want [0,%d)", root.Lo, root.Hi, n)
	}
	for i, nd := range nodes {
		if nd.Lo < 0 || nd.Hi > n || nd.Lo > nd.Hi {
			return fmt.Errorf("node %d has range [%d,%d)", i, nd.Lo, nd.Hi)
		}
		if nd.Left == -1 && nd.Right == -1 {
			continue
		}
		if nd.Left <= i || nd.Left >= len(nodes) || nd.Right <= i || nd.Right >= len(nodes) {
			return fmt.Errorf("node %d has children %d and %d", i, nd.Left, nd.Right)
		}
		if nd.SplitDim < 0 || nd.SplitDim >= dim {
			return fmt.Errorf("node %d splits on dimension %d", i, nd.SplitDim)
		}
		l, r := nodes[nd.Left], nodes[nd.Right]
		if l.Lo != nd.Lo || l.Hi != r.Lo || r.Hi != nd.Hi {
			return fmt.Errorf("node %d range [%d,%d) is not split by its children", i, nd.Lo, nd.Hi)
		}
	}
	return nil
}
