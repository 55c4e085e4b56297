package math3d

import (
	"math"
	"testing"
)

func TestVec3Axis(t *testing.T) {
	v := V3(1, 2, 3)
	for i, want := range []float64{1, 2, 3} {
		if got := v.Axis(i); got != want {
			t.Errorf("Axis(%d) = %v, want %v", i, got, want)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("Axis(3) should panic")
		}
	}()
	_ = v.Axis(3)
}

func TestVec3MaxAxis(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		want int
	}{
		{"x largest", V3(3, 1, 2), 0},
		{"y largest", V3(1, 3, 2), 1},
		{"z largest", V3(1, 2, 3), 2},
		{"x ties y", V3(2, 2, 1), 0},
		{"x ties z", V3(2, 1, 2), 0},
		{"y ties z", V3(1, 2, 2), 1},
		{"all equal", V3(0, 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.MaxAxis(); got != tt.want {
				t.Errorf("MaxAxis(%v) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

func TestVec3MinMax(t *testing.T) {
	a := V3(1, 5, -2)
	b := V3(3, -1, 0)

	if got := a.Min(b); got != V3(1, -1, -2) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != V3(3, 5, 0) {
		t.Errorf("Max = %v", got)
	}

	inf := Splat3(math.Inf(1))
	if got := inf.Min(a); got != a {
		t.Errorf("+Inf should be identity for Min, got %v", got)
	}
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := Translate(V3(1, -2, 3)).Mul(RotateY(0.7)).Mul(Scale(V3(2, 3, 0.5)))
	inv, ok := m.TryInverse()
	if !ok {
		t.Fatal("expected invertible matrix")
	}

	p := V3(0.25, -4, 9)
	back := inv.MulVec3(m.MulVec3(p))
	if !back.ApproxEqual(p, 1e-9) {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}

func TestMat4TryInverseSingular(t *testing.T) {
	m := Scale(V3(1, 0, 1))
	if _, ok := m.TryInverse(); ok {
		t.Error("zero scale should not be invertible")
	}
	if inv, _ := m.TryInverse(); inv != (Mat4{}) {
		t.Errorf("singular inverse = %v, want the zero matrix", inv)
	}
}

func TestMulVec3DirIgnoresTranslation(t *testing.T) {
	m := Translate(V3(10, 20, 30))
	d := V3(0, 0, 1)
	if got := m.MulVec3Dir(d); got != d {
		t.Errorf("MulVec3Dir = %v, want %v", got, d)
	}
}
