package bvh

import "github.com/taigrr/meshray/pkg/math3d"

// Ray is a half-line Origin + t*Direction, t > 0.
//
// Distances reported by the raycaster are values of t, so they are in units
// of Direction's length. Callers that want metric distances pass a unit
// direction.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
}

// NewRay creates a ray. The direction is used as given.
func NewRay(origin, direction math3d.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t.
func (r Ray) At(t float64) math3d.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Transform maps the ray through m: the origin as a point and the direction
// as a vector. The direction is not renormalized, so a parameter t names the
// same point before and after an affine transform.
func (r Ray) Transform(m math3d.Mat4) Ray {
	return Ray{
		Origin:    m.MulVec3(r.Origin),
		Direction: m.MulVec3Dir(r.Direction),
	}
}

// rayQuery carries per-ray values that traversal reuses for every box test.
type rayQuery struct {
	origin math3d.Vec3
	dir    math3d.Vec3
	invDir math3d.Vec3
}

func newRayQuery(r Ray) rayQuery {
	return rayQuery{
		origin: r.Origin,
		dir:    r.Direction,
		invDir: math3d.V3(1/r.Direction.X, 1/r.Direction.Y, 1/r.Direction.Z),
	}
}
