package render

import (
	"math"

	"github.com/taigrr/meshray/pkg/bvh"
	"github.com/taigrr/meshray/pkg/math3d"
)

// Camera is a pinhole camera that generates primary rays.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation (Euler angles in radians)
	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)

	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
}

// NewCamera creates a new camera with default settings.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 0, 5),
		FOV:         math.Pi / 3, // 60 degrees
		AspectRatio: 16.0 / 9.0,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
}

// SetFOV sets the field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(
		math.Cos(c.Yaw),
		0,
		-math.Sin(c.Yaw),
	)
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.Position = c.Position.Add(c.Forward().Scale(distance))
}

// Orbit rotates the camera by the given angles (in radians).
func (c *Camera) Orbit(deltaPitch, deltaYaw float64) {
	c.Pitch += deltaPitch
	c.Yaw += deltaYaw

	// Clamp pitch to avoid gimbal lock issues
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()

	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
}

// ScreenRay returns the unit-direction ray through the center of pixel
// (x, y) of a width×height image. Pixel (0, 0) is the top-left corner.
func (c *Camera) ScreenRay(x, y, width, height int) bvh.Ray {
	return c.ScreenRayAt(float64(x)+0.5, float64(y)+0.5, width, height)
}

// ScreenRayAt is ScreenRay for a continuous image position.
func (c *Camera) ScreenRayAt(x, y float64, width, height int) bvh.Ray {
	ndcX := 2*x/float64(width) - 1
	ndcY := 1 - 2*y/float64(height) // Y is flipped

	tanHalf := math.Tan(c.FOV / 2)
	dir := c.Forward().
		Add(c.Right().Scale(ndcX * tanHalf * c.AspectRatio)).
		Add(c.Up().Scale(ndcY * tanHalf))

	return bvh.NewRay(c.Position, dir.Normalize())
}
