package bvh

import (
	"math"

	"github.com/taigrr/meshray/pkg/math3d"
)

// AABB represents an axis-aligned bounding box.
//
// The empty box has Min = +Inf and Max = -Inf on every axis, which makes it
// the identity element for Union and ExpandPoint.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max math3d.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns the empty box used to start an accumulation.
func EmptyAABB() AABB {
	return AABB{
		Min: math3d.Splat3(math.Inf(1)),
		Max: math3d.Splat3(math.Inf(-1)),
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// ExpandPoint returns the smallest box containing b and p.
func (b AABB) ExpandPoint(p math3d.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the center of the AABB.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the total area of the six faces. A box with a zero or
// negative extent on any axis has surface area 0.
func (b AABB) SurfaceArea() float64 {
	d := b.Size()
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return 0
	}
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

// ContainsPoint returns true if the point is inside the AABB.
func (b AABB) ContainsPoint(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Contains reports whether o lies entirely inside b. The empty box is
// contained in every box.
func (b AABB) Contains(o AABB) bool {
	if o.IsEmpty() {
		return true
	}
	return b.ContainsPoint(o.Min) && b.ContainsPoint(o.Max)
}

// Transform returns an AABB that bounds the original AABB after
// transformation by m, computed from the eight transformed corners.
func (b AABB) Transform(m math3d.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}

	out := EmptyAABB()
	for i := range 8 {
		corner := b.Min
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		out = out.ExpandPoint(m.MulVec3(corner))
	}
	return out
}

// IntersectRay runs the slab test against r. It returns the entry distance
// along the ray (0 when the origin is inside the box) and whether the ray
// touches the box in front of its origin.
func (b AABB) IntersectRay(r Ray) (float64, bool) {
	q := newRayQuery(r)
	return q.intersectBox(&b)
}

// intersectBox is the slab test used by traversal; it relies on the
// precomputed inverse direction in q.
func (q *rayQuery) intersectBox(b *AABB) (float64, bool) {
	if b.IsEmpty() {
		return 0, false
	}

	tNear := math.Inf(-1)
	tFar := math.Inf(1)

	if !slab(q.origin.X, q.dir.X, q.invDir.X, b.Min.X, b.Max.X, &tNear, &tFar) ||
		!slab(q.origin.Y, q.dir.Y, q.invDir.Y, b.Min.Y, b.Max.Y, &tNear, &tFar) ||
		!slab(q.origin.Z, q.dir.Z, q.invDir.Z, b.Min.Z, b.Max.Z, &tNear, &tFar) {
		return 0, false
	}

	if tFar < 0 || tNear > tFar {
		return 0, false
	}
	return math.Max(tNear, 0), true
}

// slab narrows [tNear, tFar] to the ray interval inside [lo, hi] on one axis.
// A direction component of zero never divides: the ray is parallel to the
// slab and is inside it or not.
func slab(origin, dir, invDir, lo, hi float64, tNear, tFar *float64) bool {
	if dir == 0 {
		return origin >= lo && origin <= hi
	}

	t1 := (lo - origin) * invDir
	t2 := (hi - origin) * invDir
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > *tNear {
		*tNear = t1
	}
	if t2 < *tFar {
		*tFar = t2
	}
	return *tNear <= *tFar
}
