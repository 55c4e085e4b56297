package bvh

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports a node array whose links are out of range,
	// not post-ordered, or that leaves nodes unreachable.
	ErrMalformed = errors.New("bvh: malformed node array")
	// ErrCoverage reports leaves that do not partition the primitive array.
	ErrCoverage = errors.New("bvh: leaves do not partition primitives")
	// ErrContainment reports a node whose bounds do not contain its content.
	ErrContainment = errors.New("bvh: bounds containment violated")
)

// Stats summarizes the shape of a built tree.
type Stats struct {
	Triangles int
	Nodes     int
	Leaves    int
	Depth     int
	MinLeaf   int
	MaxLeaf   int
	AvgLeaf   float64
	// SAHCost is the expected cost of a random ray under the builder's
	// cost model, relative to the root's surface area.
	SAHCost float64
}

// Validate checks the structural invariants of the tree: links point at
// earlier nodes, every node is reachable from the root, leaf ranges
// partition the primitive array exactly once, and every node's bounds
// contain its children's bounds and its leaf primitives' bounds.
func (t *Tree) Validate() error {
	if t.Empty() {
		if t != nil && len(t.Primitives) > 0 {
			return fmt.Errorf("%w: %d primitives but no root", ErrCoverage, len(t.Primitives))
		}
		return nil
	}

	n := int32(len(t.Nodes))
	if t.Root >= n {
		return fmt.Errorf("%w: root %d of %d nodes", ErrMalformed, t.Root, n)
	}

	covered := make([]int, len(t.Primitives))
	visited := make([]bool, n)
	stack := []int32{t.Root}

	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[ni] {
			return fmt.Errorf("%w: node %d reached twice", ErrMalformed, ni)
		}
		visited[ni] = true
		node := &t.Nodes[ni]

		if node.Leaf {
			end := int(node.Start) + int(node.Count)
			if node.Start < 0 || node.Count < 0 || end > len(t.Primitives) {
				return fmt.Errorf("%w: leaf %d range [%d, %d) outside %d primitives",
					ErrMalformed, ni, node.Start, end, len(t.Primitives))
			}
			for i := int(node.Start); i < end; i++ {
				covered[i]++
				if !node.Bounds.Contains(t.Primitives[i].Bounds) {
					return fmt.Errorf("%w: leaf %d does not contain primitive %d", ErrContainment, ni, i)
				}
			}
			continue
		}

		for _, c := range [2]int32{node.Left, node.Right} {
			if c < 0 || c >= ni {
				return fmt.Errorf("%w: node %d has child %d", ErrMalformed, ni, c)
			}
			if !node.Bounds.Contains(t.Nodes[c].Bounds) {
				return fmt.Errorf("%w: node %d does not contain child %d", ErrContainment, ni, c)
			}
			stack = append(stack, c)
		}
	}

	for i, c := range covered {
		if c != 1 {
			return fmt.Errorf("%w: primitive %d covered %d times", ErrCoverage, i, c)
		}
	}
	for i, v := range visited {
		if !v {
			return fmt.Errorf("%w: node %d unreachable", ErrMalformed, i)
		}
	}
	return nil
}

// Stats walks the tree and reports its shape. The tree is assumed valid.
func (t *Tree) Stats() Stats {
	s := Stats{Triangles: t.TriangleCount()}
	if t.Empty() {
		return s
	}
	s.Nodes = len(t.Nodes)
	s.MinLeaf = len(t.Primitives)

	rootArea := t.Nodes[t.Root].Bounds.SurfaceArea()

	type entry struct {
		node  int32
		depth int
	}
	stack := []entry{{t.Root, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &t.Nodes[e.node]
		s.Depth = max(s.Depth, e.depth)

		var ratio float64
		if rootArea > 0 {
			ratio = node.Bounds.SurfaceArea() / rootArea
		} else if e.node == t.Root {
			ratio = 1
		}

		if node.Leaf {
			s.Leaves++
			c := int(node.Count)
			s.MinLeaf = min(s.MinLeaf, c)
			s.MaxLeaf = max(s.MaxLeaf, c)
			s.SAHCost += ratio * IntersectCost * float64(c)
			continue
		}
		s.SAHCost += ratio * TraversalCost
		stack = append(stack,
			entry{node.Left, e.depth + 1},
			entry{node.Right, e.depth + 1},
		)
	}

	if s.Leaves > 0 {
		s.AvgLeaf = float64(s.Triangles) / float64(s.Leaves)
	}
	return s
}
