package bvh

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/taigrr/meshray/pkg/math3d"
)

const (
	// MaxLeafSize is the primitive count at or below which a range always
	// becomes a leaf.
	MaxLeafSize = 8

	// NumBins is the number of SAH bins along the split axis.
	NumBins = 16

	// TraversalCost (Ct) and IntersectCost (Ci) weigh the SAH split cost
	// Ct + Ci * (SA(L)/SA(N) * |L| + SA(R)/SA(N) * |R|).
	TraversalCost = 1.0
	IntersectCost = 1.0

	// MaxDepth caps recursion. A range reaching it becomes a leaf even when
	// it holds more than MaxLeafSize primitives.
	MaxDepth = 64
)

// Build extracts primitives from the mesh buffers and builds a tree over
// them. It returns the reordered primitives, the node array and the root
// index (-1 when the mesh has no triangles).
func Build(vertices []math3d.Vec3, indices []uint32) ([]Primitive, []Node, int32) {
	return BuildPrimitives(ExtractPrimitives(vertices, indices))
}

// BuildPrimitives builds a tree over prims. The slice is permuted in place
// and returned; callers must not keep using the original order. The result
// is deterministic for a given input order.
func BuildPrimitives(prims []Primitive) ([]Primitive, []Node, int32) {
	if len(prims) == 0 {
		return prims, nil, -1
	}

	b := &builder{
		prims:   prims,
		nodes:   make([]Node, 0, max(1, 4*len(prims)/MaxLeafSize)),
		scratch: make([]Primitive, 0, len(prims)),
	}

	start := time.Now()
	root := b.build(0, int32(len(prims)), 0)
	logger.Debugf(
		"built %d triangles in %s: nodes %d, leaves %d, max depth %d, median splits %d, depth-capped leaves %d",
		len(prims), time.Since(start), len(b.nodes), b.stats.leaves,
		b.stats.maxDepth, b.stats.medianSplits, b.stats.depthCapped,
	)

	return b.prims, b.nodes, root
}

type buildStats struct {
	leaves       int
	maxDepth     int
	medianSplits int
	depthCapped  int
}

// builder is the arena a single build writes into.
type builder struct {
	prims   []Primitive
	nodes   []Node
	scratch []Primitive
	stats   buildStats
}

type bin struct {
	bounds AABB
	count  int
}

// build turns prims[start : start+count] into a subtree and returns the index
// of its root node. Children are appended before their parent.
func (b *builder) build(start, count int32, depth int) int32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	items := b.prims[start : start+count]
	nodeBounds := EmptyAABB()
	centroidBounds := EmptyAABB()
	for i := range items {
		nodeBounds = nodeBounds.Union(items[i].Bounds)
		centroidBounds = centroidBounds.ExpandPoint(items[i].Center)
	}

	if count <= MaxLeafSize {
		return b.leaf(nodeBounds, start, count)
	}
	if depth >= MaxDepth {
		b.stats.depthCapped++
		return b.leaf(nodeBounds, start, count)
	}

	extent := centroidBounds.Size()
	axis := extent.MaxAxis()

	// All centroids coincide on the widest axis: no split can separate them.
	if extent.Axis(axis) <= 0 {
		return b.leaf(nodeBounds, start, count)
	}

	leftCount, ok := b.split(items, nodeBounds, centroidBounds, axis)
	if !ok {
		return b.leaf(nodeBounds, start, count)
	}

	left := b.build(start, leftCount, depth+1)
	right := b.build(start+leftCount, count-leftCount, depth+1)

	return b.push(Node{
		Bounds: nodeBounds,
		Start:  start,
		Count:  count,
		Left:   left,
		Right:  right,
	})
}

// split partitions items along axis and returns the size of the left half.
// It reports false when SAH finds no split with both sides non-empty.
func (b *builder) split(items []Primitive, nodeBounds, centroidBounds AABB, axis int) (int32, bool) {
	nodeArea := nodeBounds.SurfaceArea()
	if nodeArea <= 0 {
		// Planar range: every SAH ratio would be 0/0.
		// A NaN cost never wins, so a plain SAH build would emit one leaf here.
		return b.medianSplit(items, axis), true
	}

	lo := centroidBounds.Min.Axis(axis)
	rcpExtent := 1 / (centroidBounds.Max.Axis(axis) - lo)
	binOf := func(c math3d.Vec3) int {
		t := (c.Axis(axis) - lo) * rcpExtent
		return min(max(int(math.Floor(t*NumBins)), 0), NumBins-1)
	}

	var bins [NumBins]bin
	for i := range bins {
		bins[i].bounds = EmptyAABB()
	}
	for i := range items {
		bi := binOf(items[i].Center)
		bins[bi].bounds = bins[bi].bounds.Union(items[i].Bounds)
		bins[bi].count++
	}

	// Candidate s splits between bin s and bin s+1.
	var (
		leftBounds  [NumBins - 1]AABB
		rightBounds [NumBins - 1]AABB
		leftCount   [NumBins - 1]int
		rightCount  [NumBins - 1]int
	)

	acc, n := EmptyAABB(), 0
	for s := 0; s < NumBins-1; s++ {
		acc = acc.Union(bins[s].bounds)
		n += bins[s].count
		leftBounds[s], leftCount[s] = acc, n
	}

	acc, n = EmptyAABB(), 0
	for s := NumBins - 1; s > 0; s-- {
		acc = acc.Union(bins[s].bounds)
		n += bins[s].count
		rightBounds[s-1], rightCount[s-1] = acc, n
	}

	bestCost := math.Inf(1)
	bestSplit := -1
	for s := 0; s < NumBins-1; s++ {
		if leftCount[s] == 0 || rightCount[s] == 0 {
			continue
		}
		pL := leftBounds[s].SurfaceArea() / nodeArea
		pR := rightBounds[s].SurfaceArea() / nodeArea
		cost := TraversalCost + IntersectCost*(pL*float64(leftCount[s])+pR*float64(rightCount[s]))
		if cost < bestCost {
			bestCost = cost
			bestSplit = s
		}
	}

	if bestSplit < 0 {
		return 0, false
	}

	mid := b.stablePartition(items, func(p *Primitive) bool {
		return binOf(p.Center) <= bestSplit
	})
	if mid == 0 || mid == len(items) {
		return b.medianSplit(items, axis), true
	}
	return int32(mid), true
}

// stablePartition moves the items satisfying pred to the front, keeping the
// relative order within both groups, and returns the size of the front group.
func (b *builder) stablePartition(items []Primitive, pred func(*Primitive) bool) int {
	b.scratch = b.scratch[:0]
	n := 0
	for i := range items {
		if pred(&items[i]) {
			items[n] = items[i]
			n++
		} else {
			b.scratch = append(b.scratch, items[i])
		}
	}
	copy(items[n:], b.scratch)
	return n
}

// medianSplit orders items by centroid along axis so that the first half
// (len/2 items) holds the smallest centroids, and returns len/2.
func (b *builder) medianSplit(items []Primitive, axis int) int32 {
	b.stats.medianSplits++
	slices.SortStableFunc(items, func(x, y Primitive) int {
		return cmp.Compare(x.Center.Axis(axis), y.Center.Axis(axis))
	})
	return int32(len(items) / 2)
}

func (b *builder) leaf(bounds AABB, start, count int32) int32 {
	b.stats.leaves++
	return b.push(Node{
		Bounds: bounds,
		Leaf:   true,
		Start:  start,
		Count:  count,
		Left:   -1,
		Right:  -1,
	})
}

func (b *builder) push(n Node) int32 {
	b.nodes = append(b.nodes, n)
	return int32(len(b.nodes) - 1)
}
