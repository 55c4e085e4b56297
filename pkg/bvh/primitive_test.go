package bvh

import (
	"math"
	"testing"

	"github.com/taigrr/meshray/pkg/math3d"
)

func TestNewPrimitive(t *testing.T) {
	p := NewPrimitive(math3d.V3(0, 0, 0), math3d.V3(3, 0, 0), math3d.V3(0, 3, 3), 4, 5, 6)

	if p.Center != math3d.V3(1, 1, 1) {
		t.Errorf("Center = %v, want (1, 1, 1)", p.Center)
	}
	if p.Bounds != NewAABB(math3d.Zero3(), math3d.V3(3, 3, 3)) {
		t.Errorf("Bounds = %v", p.Bounds)
	}
	if p.Indices != [3]uint32{4, 5, 6} {
		t.Errorf("Indices = %v", p.Indices)
	}

	v0, v1, v2 := p.Vertices()
	if v0 != math3d.V3(0, 0, 0) || v1 != math3d.V3(3, 0, 0) || v2 != math3d.V3(0, 3, 3) {
		t.Errorf("Vertices() = %v %v %v", v0, v1, v2)
	}
}

func TestExtractPrimitives(t *testing.T) {
	verts := []math3d.Vec3{
		math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0),
		math3d.V3(1, 1, 0), math3d.V3(2, 0, 0),
	}

	tests := []struct {
		name    string
		verts   []math3d.Vec3
		indices []uint32
		want    [][3]uint32
	}{
		{"indexed", verts, []uint32{0, 1, 2, 1, 3, 2}, [][3]uint32{{0, 1, 2}, {1, 3, 2}}},
		{"indexed trailing ignored", verts, []uint32{0, 1, 2, 3, 4}, [][3]uint32{{0, 1, 2}}},
		{"non-indexed", verts[:3], nil, [][3]uint32{{0, 1, 2}}},
		{"non-indexed trailing ignored", verts, nil, [][3]uint32{{0, 1, 2}}},
		{"out of range skipped", verts, []uint32{0, 1, 9, 2, 3, 4}, [][3]uint32{{2, 3, 4}}},
		{"no vertices", nil, nil, nil},
		{"too few indices", verts, []uint32{0, 1}, nil},
		{"all out of range", verts[:2], []uint32{0, 1, 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := ExtractPrimitives(tt.verts, tt.indices)
			if len(prims) != len(tt.want) {
				t.Fatalf("got %d primitives, want %d", len(prims), len(tt.want))
			}
			if tt.want == nil && prims != nil {
				t.Error("expected nil slice for zero triangles")
			}
			for i, p := range prims {
				if p.Indices != tt.want[i] {
					t.Errorf("primitive %d indices = %v, want %v", i, p.Indices, tt.want[i])
				}
				v0, v1, v2 := p.Vertices()
				if v0 != tt.verts[p.Indices[0]] || v1 != tt.verts[p.Indices[1]] || v2 != tt.verts[p.Indices[2]] {
					t.Errorf("primitive %d vertices do not match the buffer", i)
				}
			}
		})
	}
}

func TestPrimitiveIntersect(t *testing.T) {
	tri := NewPrimitive(math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), 0, 1, 2)

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		want float64
	}{
		{"front", NewRay(math3d.V3(0.2, 0.2, -1), math3d.V3(0, 0, 1)), true, 1},
		{"back face", NewRay(math3d.V3(0.2, 0.2, 2), math3d.V3(0, 0, -1)), true, 2},
		{"outside edge", NewRay(math3d.V3(0.8, 0.8, -1), math3d.V3(0, 0, 1)), false, 0},
		{"behind origin", NewRay(math3d.V3(0.2, 0.2, 1), math3d.V3(0, 0, 1)), false, 0},
		{"parallel", NewRay(math3d.V3(-1, 0.2, 0), math3d.V3(1, 0, 0)), false, 0},
		{"origin on plane", NewRay(math3d.V3(0.2, 0.2, 0), math3d.V3(0, 0, 1)), false, 0},
		{"scaled direction", NewRay(math3d.V3(0.2, 0.2, -1), math3d.V3(0, 0, 4)), true, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tri.Intersect(tt.ray)
			if ok != tt.hit {
				t.Fatalf("Intersect() hit = %v, want %v", ok, tt.hit)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Intersect() t = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrimitiveIntersectDegenerate(t *testing.T) {
	// Collinear vertices give det = 0 for every ray.
	line := NewPrimitive(math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(2, 0, 0), 0, 1, 2)
	if _, ok := line.Intersect(NewRay(math3d.V3(0.5, 0, -1), math3d.V3(0, 0, 1))); ok {
		t.Error("degenerate triangle should never be hit")
	}
	if line.Area() != 0 {
		t.Errorf("Area() = %v, want 0", line.Area())
	}
}
