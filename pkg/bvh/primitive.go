package bvh

import (
	"math"

	"github.com/taigrr/meshray/pkg/math3d"
)

// determinantEpsilon rejects rays parallel to a triangle and triangles with
// near-zero area.
const determinantEpsilon = 1e-8

// Primitive is one triangle of the indexed mesh, carrying everything the
// builder and the raycaster need so that neither touches the vertex buffer.
//
// The builder reorders primitives; Indices always names the triangle's
// original vertices and is the only stable way to map a hit back to the mesh.
type Primitive struct {
	Bounds  AABB
	Center  math3d.Vec3
	Indices [3]uint32

	// Precomputed for intersection: V0 and the edges V1-V0, V2-V0.
	V0 math3d.Vec3
	E0 math3d.Vec3
	E1 math3d.Vec3
}

// NewPrimitive builds the primitive for the triangle (p0, p1, p2) whose
// vertices live at indices i0, i1, i2 of the source mesh.
func NewPrimitive(p0, p1, p2 math3d.Vec3, i0, i1, i2 uint32) Primitive {
	return Primitive{
		Bounds:  AABB{Min: p0.Min(p1).Min(p2), Max: p0.Max(p1).Max(p2)},
		Center:  p0.Add(p1).Add(p2).Div(3),
		Indices: [3]uint32{i0, i1, i2},
		V0:      p0,
		E0:      p1.Sub(p0),
		E1:      p2.Sub(p0),
	}
}

// Vertices reconstructs the triangle's three positions.
func (p *Primitive) Vertices() (v0, v1, v2 math3d.Vec3) {
	return p.V0, p.V0.Add(p.E0), p.V0.Add(p.E1)
}

// Normal returns the unnormalized geometric normal E0 × E1.
func (p *Primitive) Normal() math3d.Vec3 {
	return p.E0.Cross(p.E1)
}

// Area returns the triangle's area.
func (p *Primitive) Area() float64 {
	return 0.5 * p.Normal().Len()
}

// ExtractPrimitives converts a vertex buffer and an optional index buffer
// into one primitive per triangle.
//
// With indices, triangle i is (indices[3i], indices[3i+1], indices[3i+2]);
// without, consecutive vertex triples form triangles. Trailing entries that
// do not complete a triangle are ignored. Triangles referencing a vertex
// outside the buffer are skipped. The result is nil when no triangle is
// formed.
func ExtractPrimitives(vertices []math3d.Vec3, indices []uint32) []Primitive {
	if len(indices) == 0 {
		count := len(vertices) / 3
		if count == 0 {
			return nil
		}

		prims := make([]Primitive, 0, count)
		for i := 0; i+2 < len(vertices); i += 3 {
			prims = append(prims, NewPrimitive(
				vertices[i], vertices[i+1], vertices[i+2],
				uint32(i), uint32(i+1), uint32(i+2),
			))
		}
		return prims
	}

	count := len(indices) / 3
	if count == 0 {
		return nil
	}

	prims := make([]Primitive, 0, count)
	skipped := 0
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		n := uint32(len(vertices))
		if i0 >= n || i1 >= n || i2 >= n {
			skipped++
			continue
		}
		prims = append(prims, NewPrimitive(vertices[i0], vertices[i1], vertices[i2], i0, i1, i2))
	}

	if skipped > 0 {
		logger.Warningf("skipped %d of %d triangles with out-of-range vertex indices", skipped, count)
	}
	if len(prims) == 0 {
		return nil
	}
	return prims
}

// intersect is the Möller–Trumbore test on the precomputed edges, without
// back-face culling. It accepts hits with 0 < t < maxT and returns t and the
// barycentric coordinates of the hit relative to V1 and V2.
func (p *Primitive) intersect(q *rayQuery, maxT float64) (t, u, v float64, ok bool) {
	pvec := q.dir.Cross(p.E1)
	det := p.E0.Dot(pvec)
	if math.Abs(det) < determinantEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	tvec := q.origin.Sub(p.V0)
	u = tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	qvec := tvec.Cross(p.E0)
	v = q.dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = p.E1.Dot(qvec) * invDet
	if t <= 0 || t >= maxT {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// Intersect tests r against the triangle alone and returns the hit distance.
func (p *Primitive) Intersect(r Ray) (float64, bool) {
	q := newRayQuery(r)
	t, _, _, ok := p.intersect(&q, math.Inf(1))
	return t, ok
}
