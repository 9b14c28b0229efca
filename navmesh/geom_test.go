package navmesh

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

func TestTriArea2DSign(t *testing.T) {
	a := d3.NewVec3XYZ(0, 0, 0)
	b := d3.NewVec3XYZ(0, 0, 2)
	c := d3.NewVec3XYZ(2, 0, 2)

	if area := TriArea2D(a, b, c); area <= 0 {
		t.Errorf("counter-clockwise triangle area = %f, want > 0", area)
	}
	if area := TriArea2D(a, c, b); area >= 0 {
		t.Errorf("clockwise triangle area = %f, want < 0", area)
	}
	if area := TriArea2D(a, b, b); area != 0 {
		t.Errorf("degenerate triangle area = %f, want 0", area)
	}
}

func TestVEqual(t *testing.T) {
	a := d3.NewVec3XYZ(1, 2, 3)
	b := d3.NewVec3XYZ(1, 2, 3.00001)
	c := d3.NewVec3XYZ(1, 2, 3.1)

	if !VEqual(a, a) {
		t.Error("a point must equal itself")
	}
	if !VEqual(a, b) {
		t.Error("points within threshold should be equal")
	}
	if VEqual(a, c) {
		t.Error("points past threshold should differ")
	}
}

func TestPointInPolygon(t *testing.T) {
	// Unit square in the xz plane.
	verts := []float32{
		0, 0, 0,
		0, 0, 1,
		1, 0, 1,
		1, 0, 0,
	}

	tests := []struct {
		pt   d3.Vec3
		want bool
	}{
		{d3.NewVec3XYZ(0.5, 0, 0.5), true},
		{d3.NewVec3XYZ(0.1, 5, 0.9), true}, // y is ignored
		{d3.NewVec3XYZ(1.5, 0, 0.5), false},
		{d3.NewVec3XYZ(-0.1, 0, 0.5), false},
		{d3.NewVec3XYZ(0.5, 0, 1.5), false},
	}
	for _, tt := range tests {
		if got := PointInPolygon(tt.pt, verts, 4); got != tt.want {
			t.Errorf("PointInPolygon(%v) = %t, want %t", tt.pt, got, tt.want)
		}
	}
}

func TestDistancePtSegSqr2D(t *testing.T) {
	p := d3.NewVec3XYZ(0, 0, 0)
	q := d3.NewVec3XYZ(4, 0, 0)

	distSqr, tseg := DistancePtSegSqr2D(d3.NewVec3XYZ(2, 0, 3), p, q)
	if !math32.Approx(distSqr, 9) {
		t.Errorf("distSqr = %f, want 9", distSqr)
	}
	if !math32.Approx(tseg, 0.5) {
		t.Errorf("t = %f, want 0.5", tseg)
	}

	// Beyond the segment end the parameter clamps.
	distSqr, tseg = DistancePtSegSqr2D(d3.NewVec3XYZ(6, 0, 0), p, q)
	if !math32.Approx(distSqr, 4) {
		t.Errorf("distSqr past end = %f, want 4", distSqr)
	}
	if tseg != 1 {
		t.Errorf("t past end = %f, want 1", tseg)
	}
}

func TestIntersectSegmentPoly2D(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		0, 0, 2,
		2, 0, 2,
		2, 0, 0,
	}

	// Segment crossing the square left to right.
	hit, tmin, tmax, segMin, segMax := IntersectSegmentPoly2D(
		d3.NewVec3XYZ(-1, 0, 1), d3.NewVec3XYZ(3, 0, 1), verts, 4)
	if !hit {
		t.Fatal("crossing segment should hit")
	}
	if !math32.Approx(tmin, 0.25) || !math32.Approx(tmax, 0.75) {
		t.Errorf("(tmin,tmax) = (%f,%f), want (0.25,0.75)", tmin, tmax)
	}
	if segMin == -1 || segMax == -1 {
		t.Errorf("crossing segment should report entry and exit edges, got (%d,%d)", segMin, segMax)
	}

	// Segment fully inside: no entry/exit edge.
	hit, _, _, segMin, segMax = IntersectSegmentPoly2D(
		d3.NewVec3XYZ(0.5, 0, 1), d3.NewVec3XYZ(1.5, 0, 1), verts, 4)
	if !hit {
		t.Fatal("interior segment should hit")
	}
	if segMin != -1 || segMax != -1 {
		t.Errorf("interior segment edges = (%d,%d), want (-1,-1)", segMin, segMax)
	}

	// Segment entirely outside.
	hit, _, _, _, _ = IntersectSegmentPoly2D(
		d3.NewVec3XYZ(5, 0, 5), d3.NewVec3XYZ(6, 0, 5), verts, 4)
	if hit {
		t.Error("outside segment should miss")
	}
}

func TestClosestPtPointTriangle(t *testing.T) {
	a := d3.NewVec3XYZ(0, 0, 0)
	b := d3.NewVec3XYZ(4, 0, 0)
	c := d3.NewVec3XYZ(0, 0, 4)

	tests := []struct {
		name string
		p    d3.Vec3
		want d3.Vec3
	}{
		{"inside", d3.NewVec3XYZ(1, 0, 1), d3.NewVec3XYZ(1, 0, 1)},
		{"vertex A", d3.NewVec3XYZ(-1, 0, -1), a},
		{"vertex B", d3.NewVec3XYZ(6, 0, -1), b},
		{"vertex C", d3.NewVec3XYZ(-1, 0, 6), c},
		{"edge AB", d3.NewVec3XYZ(2, 0, -2), d3.NewVec3XYZ(2, 0, 0)},
		{"edge AC", d3.NewVec3XYZ(-2, 0, 2), d3.NewVec3XYZ(0, 0, 2)},
		{"edge BC", d3.NewVec3XYZ(3, 0, 3), d3.NewVec3XYZ(2, 0, 2)},
	}
	for _, tt := range tests {
		closest := d3.NewVec3()
		ClosestPtPointTriangle(closest, tt.p, a, b, c)
		if !closest.Approx(tt.want) {
			t.Errorf("%s: closest = %v, want %v", tt.name, closest, tt.want)
		}
	}

	// Face region on a tilted triangle: the closest point lies on the
	// triangle's plane (8x - 16y = 0 for this one).
	bLift := d3.NewVec3XYZ(4, 2, 0)
	closest := d3.NewVec3()
	ClosestPtPointTriangle(closest, d3.NewVec3XYZ(1, 3, 1), a, bLift, c)
	if plane := 8*closest[0] - 16*closest[1]; math32.Abs(plane) > 1e-3 {
		t.Errorf("closest point %v is off the triangle plane by %f", closest, plane)
	}
}

func TestOverlapPolyPoly2D(t *testing.T) {
	sq := func(x, z float32) []float32 {
		return []float32{
			x, 0, z,
			x, 0, z + 2,
			x + 2, 0, z + 2,
			x + 2, 0, z,
		}
	}

	if !OverlapPolyPoly2D(sq(0, 0), 4, sq(1, 1), 4) {
		t.Error("overlapping squares should overlap")
	}
	if OverlapPolyPoly2D(sq(0, 0), 4, sq(5, 5), 4) {
		t.Error("distant squares should not overlap")
	}
}

func TestOverlapSlabs(t *testing.T) {
	// Identical flat slabs overlap.
	amin, amax := [2]float32{0, 0}, [2]float32{4, 0}
	if !overlapSlabs(amin, amax, amin, amax, 0.01, 0.5) {
		t.Error("identical slabs should overlap")
	}

	// Vertically distant slabs do not.
	bmin, bmax := [2]float32{0, 5}, [2]float32{4, 5}
	if overlapSlabs(amin, amax, bmin, bmax, 0.01, 0.5) {
		t.Error("slabs 5 units apart in y should not overlap with climb 0.5")
	}

	// Slabs crossing in y always overlap.
	cmin, cmax := [2]float32{0, -3}, [2]float32{4, 3}
	if !overlapSlabs(amin, amax, cmin, cmax, 0.01, 0.5) {
		t.Error("slabs crossing in y should overlap")
	}

	// Disjoint horizontal extents never overlap.
	dmin, dmax := [2]float32{6, 0}, [2]float32{8, 0}
	if overlapSlabs(amin, amax, dmin, dmax, 0.01, 0.5) {
		t.Error("horizontally disjoint slabs should not overlap")
	}
}

func TestOppositeTile(t *testing.T) {
	for side := uint8(0); side < 8; side++ {
		opp := oppositeTile(side)
		if oppositeTile(opp) != side {
			t.Errorf("oppositeTile is not an involution for side %d", side)
		}
	}
	if oppositeTile(0) != 4 || oppositeTile(2) != 6 {
		t.Error("orthogonal sides must map to their facing side")
	}
}
