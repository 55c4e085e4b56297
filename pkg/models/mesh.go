// Package models provides mesh loading and the per-mesh triangle index used
// for picking and ray-cast previews.
package models

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/taigrr/meshray/pkg/bvh"
	"github.com/taigrr/meshray/pkg/log"
	"github.com/taigrr/meshray/pkg/math3d"
)

var logger = log.New("models")

// Mesh is an indexed triangle mesh in model space.
//
// The BVH over its triangles is built on first use and cached. Code that
// edits Vertices or Faces directly must call Invalidate afterwards, and
// CalculateBounds as well if it relies on Bounds before the BVH exists;
// Transform does both itself.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3

	// mu serializes builds; readers load tree without it.
	mu   sync.Mutex
	tree atomic.Pointer[bvh.Tree]
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face is a triangle given by three indices into Mesh.Vertices.
type Face struct {
	V [3]int
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Bounds returns the bounding box as an AABB. Once the BVH is built this is
// its root box, which always matches the indexed triangles; before that it
// is the box from the last CalculateBounds. A mesh without vertices has the
// empty box.
func (m *Mesh) Bounds() bvh.AABB {
	if tree := m.tree.Load(); tree != nil {
		return tree.Bounds()
	}
	if len(m.Vertices) == 0 {
		return bvh.EmptyAABB()
	}
	return bvh.NewAABB(m.BoundsMin, m.BoundsMax)
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		// Not normalized: larger faces weigh more.
		normal := v1.Sub(v0).Cross(v2.Sub(v0))
		for _, vi := range f.V {
			m.Vertices[vi].Normal = m.Vertices[vi].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.Len() > 0.001 {
			return true
		}
	}
	return false
}

// Transform applies a transformation matrix to all vertices and drops the
// cached BVH.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulVec3(m.Vertices[i].Position)
		// Rotation part only; non-uniform scale skews normals slightly.
		m.Vertices[i].Normal = mat.MulVec3Dir(m.Vertices[i].Normal).Normalize()
	}
	m.CalculateBounds()
	m.Invalidate()
}

// Clone creates a deep copy of the mesh. The copy builds its own BVH.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	return clone
}

// Positions returns the vertex positions in vertex order.
func (m *Mesh) Positions() []math3d.Vec3 {
	out := make([]math3d.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Indices returns the faces flattened into a triangle index buffer.
func (m *Mesh) Indices() []uint32 {
	out := make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		out = append(out, uint32(f.V[0]), uint32(f.V[1]), uint32(f.V[2]))
	}
	return out
}

// BVH returns the triangle BVH of the mesh, building it on first call.
// It is safe for concurrent use; once built, callers never take the lock.
func (m *Mesh) BVH() *bvh.Tree {
	if tree := m.tree.Load(); tree != nil {
		return tree
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tree := m.tree.Load(); tree != nil {
		return tree
	}

	start := time.Now()
	prims := bvh.ExtractPrimitives(m.Positions(), m.Indices())
	if dropped := len(m.Faces) - len(prims); dropped > 0 {
		logger.Warningf("mesh %q: %d of %d faces left out of the BVH", m.Name, dropped, len(m.Faces))
	}
	tree := bvh.FromPrimitives(prims)
	m.tree.Store(tree)
	logger.Infof("mesh %q: built BVH over %d triangles in %s", m.Name, tree.TriangleCount(), time.Since(start))
	return tree
}

// HasBVH reports whether a BVH is currently cached.
func (m *Mesh) HasBVH() bool {
	return m.tree.Load() != nil
}

// Invalidate drops the cached BVH.
func (m *Mesh) Invalidate() {
	m.mu.Lock()
	m.tree.Store(nil)
	m.mu.Unlock()
}

// ShadingNormal interpolates the vertex normals of the triangle with the
// given vertex indices at barycentric (u, v). It falls back to the face
// normal when the mesh has no usable vertex normals there.
func (m *Mesh) ShadingNormal(indices [3]uint32, u, v float64) math3d.Vec3 {
	n0 := m.Vertices[indices[0]].Normal
	n1 := m.Vertices[indices[1]].Normal
	n2 := m.Vertices[indices[2]].Normal

	n := n0.Scale(1 - u - v).Add(n1.Scale(u)).Add(n2.Scale(v))
	if n.LenSq() > 1e-12 {
		return n.Normalize()
	}

	p0 := m.Vertices[indices[0]].Position
	p1 := m.Vertices[indices[1]].Position
	p2 := m.Vertices[indices[2]].Position
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}
