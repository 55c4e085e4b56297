package bvh

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/taigrr/meshray/pkg/math3d"
)

// unitCube returns a cube centered at the origin with half-extent 0.5,
// as 8 vertices and 12 indexed triangles.
func unitCube() ([]math3d.Vec3, []uint32) {
	verts := []math3d.Vec3{
		math3d.V3(-0.5, -0.5, -0.5), math3d.V3(0.5, -0.5, -0.5),
		math3d.V3(0.5, 0.5, -0.5), math3d.V3(-0.5, 0.5, -0.5),
		math3d.V3(-0.5, -0.5, 0.5), math3d.V3(0.5, -0.5, 0.5),
		math3d.V3(0.5, 0.5, 0.5), math3d.V3(-0.5, 0.5, 0.5),
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2, // -Z
		4, 5, 6, 4, 6, 7, // +Z
		0, 4, 7, 0, 7, 3, // -X
		1, 2, 6, 1, 6, 5, // +X
		0, 1, 5, 0, 5, 4, // -Y
		3, 7, 6, 3, 6, 2, // +Y
	}
	return verts, indices
}

// triangleSoup returns n random triangles with centers in [-10, 10]^3 and
// edges up to 1 long on each axis.
func triangleSoup(rng *rand.Rand, n int) []math3d.Vec3 {
	coord := func(scale float64) float64 { return (rng.Float64()*2 - 1) * scale }
	verts := make([]math3d.Vec3, 0, 3*n)
	for range n {
		c := math3d.V3(coord(10), coord(10), coord(10))
		for range 3 {
			verts = append(verts, c.Add(math3d.V3(coord(1), coord(1), coord(1))))
		}
	}
	return verts
}

// staircase returns n small non-planar triangles whose x positions double
// each step, which makes every SAH split peel off only a few triangles.
func staircase(n int) []math3d.Vec3 {
	verts := make([]math3d.Vec3, 0, 3*n)
	for i := range n {
		x := math.Ldexp(1, i)
		verts = append(verts, math3d.V3(x, 0, 0), math3d.V3(x+1, 0, 1), math3d.V3(x, 1, 0))
	}
	return verts
}

func mustValidate(t *testing.T, tree *Tree) {
	t.Helper()
	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	prims, nodes, root := Build(nil, nil)
	if root != -1 || len(nodes) != 0 || len(prims) != 0 {
		t.Errorf("Build(nil) = %d prims, %d nodes, root %d; want empty with root -1", len(prims), len(nodes), root)
	}

	tree := New([]math3d.Vec3{math3d.Zero3(), math3d.V3(1, 0, 0)}, nil)
	if !tree.Empty() {
		t.Error("two vertices should build an empty tree")
	}
	if !tree.Bounds().IsEmpty() {
		t.Error("empty tree should have empty bounds")
	}
	mustValidate(t, tree)
}

func TestBuildSmallMeshIsOneLeaf(t *testing.T) {
	verts := []math3d.Vec3{
		math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0),
		math3d.V3(0, 0, 1), math3d.V3(1, 0, 1), math3d.V3(0, 1, 1),
	}
	tree := New(verts, nil)

	if len(tree.Nodes) != 1 || tree.Root != 0 {
		t.Fatalf("got %d nodes with root %d, want a single root leaf", len(tree.Nodes), tree.Root)
	}
	root := tree.Nodes[tree.Root]
	if !root.Leaf || root.Start != 0 || root.Count != 2 {
		t.Errorf("root = %+v, want leaf over [0, 2)", root)
	}
	if root.Left != -1 || root.Right != -1 {
		t.Errorf("leaf children = %d, %d, want -1", root.Left, root.Right)
	}
	mustValidate(t, tree)
}

func TestBuildInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	cubeVerts, cubeIndices := unitCube()

	tests := []struct {
		name    string
		verts   []math3d.Vec3
		indices []uint32
	}{
		{"cube", cubeVerts, cubeIndices},
		{"soup 9", triangleSoup(rng, 9), nil},
		{"soup 100", triangleSoup(rng, 100), nil},
		{"soup 2000", triangleSoup(rng, 2000), nil},
		{"staircase", staircase(200), nil},
		{"plane", planeGrid(12), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := New(tt.verts, tt.indices)
			mustValidate(t, tree)

			stats := tree.Stats()
			if stats.Triangles != tree.TriangleCount() || stats.Nodes != len(tree.Nodes) {
				t.Errorf("Stats() = %+v does not match tree", stats)
			}
			if stats.Nodes != 2*stats.Leaves-1 {
				t.Errorf("binary tree with %d leaves has %d nodes", stats.Leaves, stats.Nodes)
			}
			if stats.Depth > MaxDepth {
				t.Errorf("depth %d exceeds MaxDepth %d", stats.Depth, MaxDepth)
			}
			if int(tree.Root) != len(tree.Nodes)-1 {
				t.Errorf("root %d is not the last node of %d", tree.Root, len(tree.Nodes))
			}
		})
	}
}

// planeGrid returns 2*n*n triangles tiling the z = 0 plane.
func planeGrid(n int) []math3d.Vec3 {
	verts := make([]math3d.Vec3, 0, 6*n*n)
	for i := range n {
		for j := range n {
			x, y := float64(i), float64(j)
			verts = append(verts,
				math3d.V3(x, y, 0), math3d.V3(x+1, y, 0), math3d.V3(x+1, y+1, 0),
				math3d.V3(x, y, 0), math3d.V3(x+1, y+1, 0), math3d.V3(x, y+1, 0),
			)
		}
	}
	return verts
}

func TestBuildPlanarMeshSplits(t *testing.T) {
	tree := New(planeGrid(8), nil)
	mustValidate(t, tree)

	stats := tree.Stats()
	if stats.Leaves < 2*8*8/MaxLeafSize {
		t.Errorf("planar mesh built %d leaves, want at least %d", stats.Leaves, 2*8*8/MaxLeafSize)
	}
	if stats.MaxLeaf > MaxLeafSize {
		t.Errorf("planar mesh has a leaf of %d triangles", stats.MaxLeaf)
	}
}

func TestBuildCoincidentCentroidsMakeLeaf(t *testing.T) {
	var verts []math3d.Vec3
	for range 20 {
		verts = append(verts, math3d.V3(0, 0, 0), math3d.V3(1, 0, 1), math3d.V3(0, 1, 0))
	}
	tree := New(verts, nil)
	mustValidate(t, tree)

	if len(tree.Nodes) != 1 {
		t.Fatalf("got %d nodes, want one leaf", len(tree.Nodes))
	}
	if root := tree.Nodes[tree.Root]; !root.Leaf || root.Count != 20 {
		t.Errorf("root = %+v, want leaf of 20", root)
	}
}

func TestBuildDepthCap(t *testing.T) {
	tree := New(staircase(500), nil)
	mustValidate(t, tree)

	stats := tree.Stats()
	if stats.Depth != MaxDepth {
		t.Errorf("Depth = %d, want capped at %d", stats.Depth, MaxDepth)
	}
	if stats.MaxLeaf <= MaxLeafSize {
		t.Errorf("MaxLeaf = %d, want an oversized leaf at the cap", stats.MaxLeaf)
	}
}

func TestBuildSplitsWidestAxisFirst(t *testing.T) {
	// A 4x4 grid in XY: centroid extents tie on X and Y, so X wins.
	var verts []math3d.Vec3
	for i := range 4 {
		for j := range 4 {
			x, y := float64(10*i), float64(10*j)
			verts = append(verts, math3d.V3(x, y, 0), math3d.V3(x+1, y, 0), math3d.V3(x, y, 1))
		}
	}
	tree := New(verts, nil)
	mustValidate(t, tree)

	root := tree.Nodes[tree.Root]
	if root.Leaf {
		t.Fatal("16 triangles should not fit in one leaf")
	}
	left, right := tree.Nodes[root.Left].Bounds, tree.Nodes[root.Right].Bounds
	if left.Max.X >= right.Min.X {
		t.Errorf("children overlap in X: left %v, right %v", left, right)
	}
	if left.Min.Y != 0 || left.Max.Y != 30 {
		t.Errorf("left child Y range = [%v, %v], want the full [0, 30]", left.Min.Y, left.Max.Y)
	}
}

func TestBuildPartitionKeepsInputOrder(t *testing.T) {
	// Soup triangles are consecutive triples, so input order is ascending
	// Indices[0]; every SAH partition must keep it on both sides.
	tree := New(triangleSoup(rand.New(rand.NewPCG(17, 3)), 400), nil)
	mustValidate(t, tree)

	leaves := 0
	for _, n := range tree.Nodes {
		if !n.Leaf {
			continue
		}
		leaves++
		prims := tree.Primitives[n.Start : n.Start+n.Count]
		for i := 1; i < len(prims); i++ {
			if prims[i-1].Indices[0] >= prims[i].Indices[0] {
				t.Fatalf("leaf [%d, %d) out of input order at %d: %d before %d",
					n.Start, n.Start+n.Count, i, prims[i-1].Indices[0], prims[i].Indices[0])
			}
		}
	}
	if leaves < 2 {
		t.Fatalf("got %d leaves, want a split tree", leaves)
	}
}

func TestBuildEqualCostPicksLowestSplit(t *testing.T) {
	// Three clusters of four triangles at x = 0, 5 and 10, mirror-symmetric
	// about x = 5.5. Splitting after the first cluster and before the last
	// cost exactly the same; the lower split must win.
	var verts []math3d.Vec3
	for _, x := range []float64{0, 5, 10} {
		for range 4 {
			verts = append(verts, math3d.V3(x, 0, 0), math3d.V3(x+1, 1, 0), math3d.V3(x, 0, 1))
		}
	}
	tree := New(verts, nil)
	mustValidate(t, tree)

	root := tree.Nodes[tree.Root]
	if root.Leaf {
		t.Fatal("12 triangles should not fit in one leaf")
	}
	left := tree.Nodes[root.Left]
	if left.Count != 4 || left.Bounds.Max.X != 1 {
		t.Errorf("left child holds %d triangles up to x=%v; want the 4 of the first cluster", left.Count, left.Bounds.Max.X)
	}
	if right := tree.Nodes[root.Right]; right.Count != 8 {
		t.Errorf("right child holds %d triangles, want 8", right.Count)
	}
}

func TestFromPrimitivesMatchesNew(t *testing.T) {
	verts, indices := unitCube()
	want := New(verts, indices)
	got := FromPrimitives(ExtractPrimitives(verts, indices))

	if got.Root != want.Root || !slices.Equal(got.Nodes, want.Nodes) || !slices.Equal(got.Primitives, want.Primitives) {
		t.Error("FromPrimitives and New built different trees")
	}
	if FromPrimitives(nil).Root != -1 {
		t.Error("FromPrimitives(nil) should be empty")
	}
}

func TestBuildDeterministic(t *testing.T) {
	verts := triangleSoup(rand.New(rand.NewPCG(3, 5)), 500)

	a := New(verts, nil)
	b := New(verts, nil)

	if a.Root != b.Root || !slices.Equal(a.Nodes, b.Nodes) || !slices.Equal(a.Primitives, b.Primitives) {
		t.Error("two builds from the same input differ")
	}
}

func TestBuildKeepsOriginalIndices(t *testing.T) {
	verts := triangleSoup(rand.New(rand.NewPCG(9, 9)), 64)
	tree := New(verts, nil)

	seen := make(map[uint32]bool)
	for _, p := range tree.Primitives {
		i := p.Indices[0]
		if i%3 != 0 || p.Indices[1] != i+1 || p.Indices[2] != i+2 {
			t.Fatalf("primitive indices %v are not a consecutive triple", p.Indices)
		}
		if p.V0 != verts[i] {
			t.Fatalf("primitive %v lost its vertex", p.Indices)
		}
		seen[i] = true
	}
	if len(seen) != 64 {
		t.Errorf("saw %d distinct triangles, want 64", len(seen))
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	verts := triangleSoup(rand.New(rand.NewPCG(1, 1)), 50)

	tests := []struct {
		name    string
		corrupt func(*Tree)
		want    error
	}{
		{"shrunk leaf", func(tr *Tree) {
			for i := range tr.Nodes {
				if tr.Nodes[i].Leaf {
					tr.Nodes[i].Count--
					return
				}
			}
		}, ErrCoverage},
		{"shrunk root bounds", func(tr *Tree) {
			tr.Nodes[tr.Root].Bounds.Max.X -= 5
		}, ErrContainment},
		{"child after parent", func(tr *Tree) {
			tr.Nodes[0].Left = tr.Root
			tr.Nodes[0].Leaf = false
		}, ErrMalformed},
		{"root out of range", func(tr *Tree) {
			tr.Root = int32(len(tr.Nodes))
		}, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := New(verts, nil)
			tt.corrupt(tree)
			if err := tree.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkBuild(b *testing.B) {
	verts := triangleSoup(rand.New(rand.NewPCG(1, 2)), 10000)
	for b.Loop() {
		New(verts, nil)
	}
}
