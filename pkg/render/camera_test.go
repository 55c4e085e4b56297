package render

import (
	"math"
	"testing"

	"github.com/taigrr/meshray/pkg/math3d"
)

func TestCameraLookAt(t *testing.T) {
	tests := []struct {
		name    string
		pos     math3d.Vec3
		forward math3d.Vec3
	}{
		{"from +z", math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)},
		{"from +x", math3d.V3(5, 0, 0), math3d.V3(-1, 0, 0)},
		{"from -z", math3d.V3(0, 0, -5), math3d.V3(0, 0, 1)},
		{"from above", math3d.V3(0, 5, 5), math3d.V3(0, -1, -1).Normalize()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			c.SetPosition(tt.pos)
			c.LookAt(math3d.Zero3())
			if got := c.Forward(); !got.ApproxEqual(tt.forward, 1e-9) {
				t.Errorf("Forward() = %v, want %v", got, tt.forward)
			}
		})
	}
}

func TestCameraBasisOrthonormal(t *testing.T) {
	c := NewCamera()
	c.Orbit(0.4, 1.1)

	f, r, u := c.Forward(), c.Right(), c.Up()
	for _, v := range []math3d.Vec3{f, r, u} {
		if math.Abs(v.Len()-1) > 1e-9 {
			t.Errorf("basis vector %v is not unit length", v)
		}
	}
	if math.Abs(f.Dot(r)) > 1e-9 || math.Abs(f.Dot(u)) > 1e-9 || math.Abs(r.Dot(u)) > 1e-9 {
		t.Errorf("basis not orthogonal: f=%v r=%v u=%v", f, r, u)
	}
}

func TestCameraOrbitClampsPitch(t *testing.T) {
	c := NewCamera()
	c.Orbit(10, 0)
	if c.Pitch >= math.Pi/2 {
		t.Errorf("Pitch = %v, want below pi/2", c.Pitch)
	}
	c.Orbit(-20, 0)
	if c.Pitch <= -math.Pi/2 {
		t.Errorf("Pitch = %v, want above -pi/2", c.Pitch)
	}
}

func TestCameraScreenRay(t *testing.T) {
	c := NewCamera()
	c.SetAspectRatio(2)
	c.SetFOV(math.Pi / 2)

	center := c.ScreenRayAt(50, 25, 100, 50)
	if !center.Direction.ApproxEqual(math3d.V3(0, 0, -1), 1e-12) {
		t.Errorf("center direction = %v, want (0, 0, -1)", center.Direction)
	}
	if center.Origin != c.Position {
		t.Errorf("origin = %v, want camera position", center.Origin)
	}

	// With a 90° vertical FOV the top edge is 45° up; aspect 2 puts the
	// left edge at x = -2 on the z = -1 plane.
	corner := c.ScreenRayAt(0, 0, 100, 50)
	want := math3d.V3(-2, 1, -1).Normalize()
	if !corner.Direction.ApproxEqual(want, 1e-12) {
		t.Errorf("corner direction = %v, want %v", corner.Direction, want)
	}

	pixel := c.ScreenRay(0, 0, 100, 50)
	if math.Abs(pixel.Direction.Len()-1) > 1e-12 {
		t.Errorf("pixel ray not unit length: %v", pixel.Direction)
	}
	if pixel.Direction.X >= 0 || pixel.Direction.Y <= 0 {
		t.Errorf("top-left pixel ray = %v, want up and left", pixel.Direction)
	}
}

func TestCameraMoveForward(t *testing.T) {
	c := NewCamera()
	c.MoveForward(2)
	if !c.Position.ApproxEqual(math3d.V3(0, 0, 3), 1e-12) {
		t.Errorf("Position = %v, want (0, 0, 3)", c.Position)
	}
}
