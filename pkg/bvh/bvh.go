// Package bvh implements a per-mesh triangle bounding volume hierarchy.
//
// A Tree is built once from a vertex buffer and an optional index buffer
// using a binned surface area heuristic, and is read-only afterwards: any
// number of goroutines may raycast against it concurrently. A changed mesh
// needs a new Tree.
//
// Nodes and primitives live in flat arrays and reference each other by
// index. Nodes are appended in post-order, so the root is not node 0; its
// index is returned by the builder and is -1 for an empty tree.
package bvh

import (
	"github.com/taigrr/meshray/pkg/log"
	"github.com/taigrr/meshray/pkg/math3d"
)

var logger = log.New("bvh")

// Node is one element of the flat node array.
//
// A leaf covers Primitives[Start : Start+Count]. An internal node references
// its children by index; Start and Count are kept on internal nodes too and
// describe the whole subtree's range.
type Node struct {
	Bounds AABB
	Leaf   bool
	Start  int32
	Count  int32
	Left   int32
	Right  int32
}

// Tree bundles the three outputs of a build.
type Tree struct {
	Primitives []Primitive
	Nodes      []Node
	Root       int32
}

// New extracts the triangles of the mesh and builds a tree over them.
// The vertex and index slices are only read during the call.
func New(vertices []math3d.Vec3, indices []uint32) *Tree {
	prims, nodes, root := Build(vertices, indices)
	return &Tree{Primitives: prims, Nodes: nodes, Root: root}
}

// FromPrimitives builds a tree over prims, taking ownership of the slice.
func FromPrimitives(prims []Primitive) *Tree {
	prims, nodes, root := BuildPrimitives(prims)
	return &Tree{Primitives: prims, Nodes: nodes, Root: root}
}

// Empty reports whether the tree has no root.
func (t *Tree) Empty() bool {
	return t == nil || t.Root < 0 || len(t.Nodes) == 0
}

// TriangleCount returns the number of primitives in the tree.
func (t *Tree) TriangleCount() int {
	if t == nil {
		return 0
	}
	return len(t.Primitives)
}

// Bounds returns the root bounds, or the empty box for an empty tree.
func (t *Tree) Bounds() AABB {
	if t.Empty() {
		return EmptyAABB()
	}
	return t.Nodes[t.Root].Bounds
}
