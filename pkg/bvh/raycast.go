package bvh

import (
	"github.com/taigrr/meshray/pkg/math3d"
)

// stackInline is the traversal stack size that needs no heap allocation.
// Trees deeper than this grow the stack instead of dropping nodes.
const stackInline = 64

// Hit describes the nearest intersection found by a raycast.
type Hit struct {
	Distance float64
	Point    math3d.Vec3

	// Primitive is the index into Tree.Primitives (the reordered array).
	Primitive int32
	// Indices are the triangle's original vertex indices.
	Indices [3]uint32
	// U and V are barycentric weights of the second and third vertex.
	U, V float64
}

// TraceStats counts the work done by one raycast.
type TraceStats struct {
	NodesVisited  int
	BoxTests      int
	TriangleTests int
	MaxStack      int
}

// Raycast finds the nearest triangle hit along ray.
//
// maxDistance is in/out: on entry it bounds the search, and when a closer
// hit is found it is lowered to that hit's distance. Raycast reports whether
// such a hit was found; otherwise maxDistance is left untouched. An empty
// tree (root < 0 or no nodes) never hits.
func Raycast(ray Ray, maxDistance *float64, prims []Primitive, nodes []Node, root int32) bool {
	q := newRayQuery(ray)
	return traverse(&q, maxDistance, prims, nodes, root, nil, nil)
}

// RaycastStats is Raycast that also reports how much of the tree was touched.
func RaycastStats(ray Ray, maxDistance *float64, prims []Primitive, nodes []Node, root int32) (bool, TraceStats) {
	var stats TraceStats
	q := newRayQuery(ray)
	hit := traverse(&q, maxDistance, prims, nodes, root, nil, &stats)
	return hit, stats
}

// Raycast is the package-level Raycast over the tree's arrays.
func (t *Tree) Raycast(ray Ray, maxDistance *float64) bool {
	if t == nil {
		return false
	}
	return Raycast(ray, maxDistance, t.Primitives, t.Nodes, t.Root)
}

// RaycastHit returns the nearest hit closer than maxDistance.
func (t *Tree) RaycastHit(ray Ray, maxDistance float64) (Hit, bool) {
	var hit Hit
	if t == nil {
		return hit, false
	}

	q := newRayQuery(ray)
	if !traverse(&q, &maxDistance, t.Primitives, t.Nodes, t.Root, &hit, nil) {
		return Hit{}, false
	}
	hit.Point = ray.At(hit.Distance)
	return hit, true
}

func traverse(q *rayQuery, maxDistance *float64, prims []Primitive, nodes []Node, root int32, hit *Hit, stats *TraceStats) bool {
	if root < 0 || len(nodes) == 0 || int(root) >= len(nodes) {
		return false
	}
	if stats == nil {
		stats = &TraceStats{}
	}

	var inline [stackInline]int32
	stack := append(inline[:0], root)

	closest := *maxDistance
	found := false

	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &nodes[ni]
		stats.NodesVisited++

		stats.BoxTests++
		tEntry, ok := q.intersectBox(&node.Bounds)
		if !ok || tEntry > closest {
			continue
		}

		if node.Leaf {
			for i := node.Start; i < node.Start+node.Count; i++ {
				p := &prims[i]

				stats.BoxTests++
				if tBox, ok := q.intersectBox(&p.Bounds); !ok || tBox > closest {
					continue
				}

				stats.TriangleTests++
				t, u, v, ok := p.intersect(q, closest)
				if !ok {
					continue
				}
				closest = t
				found = true
				if hit != nil {
					*hit = Hit{Distance: t, Primitive: i, Indices: p.Indices, U: u, V: v}
				}
			}
			continue
		}

		stats.BoxTests += 2
		tL, hasL := q.intersectBox(&nodes[node.Left].Bounds)
		tR, hasR := q.intersectBox(&nodes[node.Right].Bounds)
		hasL = hasL && tL <= closest
		hasR = hasR && tR <= closest

		// The nearer child goes on top so it is visited first.
		switch {
		case hasL && hasR:
			if tL < tR {
				stack = append(stack, node.Right, node.Left)
			} else {
				stack = append(stack, node.Left, node.Right)
			}
		case hasL:
			stack = append(stack, node.Left)
		case hasR:
			stack = append(stack, node.Right)
		}

		if len(stack) > stats.MaxStack {
			stats.MaxStack = len(stack)
		}
	}

	if found {
		*maxDistance = closest
	}
	return found
}

// BruteForce tests every primitive and keeps the nearest hit. It has the same
// in/out contract as Raycast and serves as the reference and fallback.
func BruteForce(ray Ray, maxDistance *float64, prims []Primitive) bool {
	q := newRayQuery(ray)
	return bruteForce(&q, maxDistance, prims, nil)
}

// BruteForceHit is RaycastHit without a tree. Hit.Primitive indexes prims.
func BruteForceHit(ray Ray, maxDistance float64, prims []Primitive) (Hit, bool) {
	var hit Hit
	q := newRayQuery(ray)
	if !bruteForce(&q, &maxDistance, prims, &hit) {
		return Hit{}, false
	}
	hit.Point = ray.At(hit.Distance)
	return hit, true
}

func bruteForce(q *rayQuery, maxDistance *float64, prims []Primitive, hit *Hit) bool {
	closest := *maxDistance
	found := false
	for i := range prims {
		t, u, v, ok := prims[i].intersect(q, closest)
		if !ok {
			continue
		}
		closest = t
		found = true
		if hit != nil {
			*hit = Hit{Distance: t, Primitive: int32(i), Indices: prims[i].Indices, U: u, V: v}
		}
	}
	if found {
		*maxDistance = closest
	}
	return found
}
