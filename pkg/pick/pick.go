// Package pick finds the nearest mesh instance under a world-space ray.
//
// Each instance places a mesh in the world with an affine transform. A pick
// first rejects instances whose world bounds the ray misses or that lie
// beyond the nearest hit so far, then raycasts the instance's BVH in model
// space.
package pick

import (
	"math"
	"slices"

	"github.com/taigrr/meshray/pkg/bvh"
	"github.com/taigrr/meshray/pkg/log"
	"github.com/taigrr/meshray/pkg/math3d"
	"github.com/taigrr/meshray/pkg/models"
)

var logger = log.New("pick")

// Strategy selects how an instance's triangles are tested.
type Strategy int

const (
	// StrategyBVH raycasts the mesh's cached BVH.
	StrategyBVH Strategy = iota
	// StrategyBruteForce tests every triangle; used to cross-check the BVH.
	StrategyBruteForce
)

func (s Strategy) String() string {
	switch s {
	case StrategyBVH:
		return "bvh"
	case StrategyBruteForce:
		return "brute-force"
	default:
		return "unknown"
	}
}

// Instance is a mesh placed in the world.
type Instance struct {
	Name      string
	Mesh      *models.Mesh
	Transform math3d.Mat4
	// Disabled instances are never picked.
	Disabled bool
}

// NewInstance places mesh at transform.
func NewInstance(name string, mesh *models.Mesh, transform math3d.Mat4) *Instance {
	return &Instance{Name: name, Mesh: mesh, Transform: transform}
}

// WorldBounds returns the mesh bounds transformed into world space.
func (i *Instance) WorldBounds() bvh.AABB {
	if i.Mesh == nil {
		return bvh.EmptyAABB()
	}
	return i.Mesh.Bounds().Transform(i.Transform)
}

// Result is the nearest hit of a pick.
type Result struct {
	Instance *Instance
	// Hit is in model space; its Distance equals Distance because the model
	// ray keeps the world ray's parameterization.
	Hit bvh.Hit
	// Point is the hit position in world space.
	Point    math3d.Vec3
	Distance float64
}

// Picker holds the set of pickable instances. It is not safe for concurrent
// modification; concurrent Pick calls are fine.
type Picker struct {
	Strategy  Strategy
	instances []*Instance
}

// New creates a picker over the given instances.
func New(instances ...*Instance) *Picker {
	return &Picker{instances: slices.Clone(instances)}
}

// Add appends an instance.
func (p *Picker) Add(inst *Instance) {
	p.instances = append(p.instances, inst)
}

// Remove drops the named instances and reports how many were removed.
func (p *Picker) Remove(name string) int {
	before := len(p.instances)
	p.instances = slices.DeleteFunc(p.instances, func(inst *Instance) bool {
		return inst.Name == name
	})
	return before - len(p.instances)
}

// Instances returns the instances in insertion order.
func (p *Picker) Instances() []*Instance {
	return p.instances
}

// Pick returns the nearest instance hit by ray. Distances are in units of
// the ray's direction length.
func (p *Picker) Pick(ray bvh.Ray) (Result, bool) {
	var best Result
	closest := math.Inf(1)
	found := false

	for _, inst := range p.instances {
		hit, ok := p.intersect(inst, ray, closest)
		if !ok {
			continue
		}
		closest = hit.Distance
		best = Result{
			Instance: inst,
			Hit:      hit,
			Point:    ray.At(hit.Distance),
			Distance: hit.Distance,
		}
		found = true
	}

	if found {
		logger.Debugf("picked %q at %.4f", best.Instance.Name, best.Distance)
	}
	return best, found
}

// PickAll returns the nearest hit of every instance under the ray, nearest
// first.
func (p *Picker) PickAll(ray bvh.Ray) []Result {
	var results []Result
	for _, inst := range p.instances {
		hit, ok := p.intersect(inst, ray, math.Inf(1))
		if !ok {
			continue
		}
		results = append(results, Result{
			Instance: inst,
			Hit:      hit,
			Point:    ray.At(hit.Distance),
			Distance: hit.Distance,
		})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return results
}

// intersect tests one instance, accepting only hits nearer than maxDistance.
func (p *Picker) intersect(inst *Instance, ray bvh.Ray, maxDistance float64) (bvh.Hit, bool) {
	if inst == nil || inst.Disabled || inst.Mesh == nil || inst.Mesh.TriangleCount() == 0 {
		return bvh.Hit{}, false
	}

	// The BVH strategy builds the tree first so the broad phase uses its
	// root box rather than bounds the caller may not have computed.
	var tree *bvh.Tree
	if p.Strategy != StrategyBruteForce {
		tree = inst.Mesh.BVH()
	}

	tBox, ok := inst.WorldBounds().IntersectRay(ray)
	if !ok || tBox > maxDistance {
		return bvh.Hit{}, false
	}

	inv, ok := inst.Transform.TryInverse()
	if !ok {
		logger.Warningf("instance %q has a singular transform; skipping", inst.Name)
		return bvh.Hit{}, false
	}
	modelRay := ray.Transform(inv)

	switch p.Strategy {
	case StrategyBruteForce:
		prims := bvh.ExtractPrimitives(inst.Mesh.Positions(), inst.Mesh.Indices())
		return bvh.BruteForceHit(modelRay, maxDistance, prims)
	default:
		return tree.RaycastHit(modelRay, maxDistance)
	}
}
