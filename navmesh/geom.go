package navmesh

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Geometry kernel: small, pure, allocation-free functions on 3D points
// and 2D (x,z) polygon footprints.

const eps2D = 1e-6

// vequalThreshold is the squared-distance tolerance below which two points
// are considered equal.
const vequalThreshold = float32(1.0 / 16384.0 * 1.0 / 16384.0)

// VEqual reports whether a and b are within vequalThreshold of each other.
func VEqual(a, b d3.Vec3) bool {
	return a.DistSqr(b) < vequalThreshold
}

// TriArea2D returns twice the signed area of triangle (a,b,c) projected to
// the x,z plane. Positive when a,b,c are in counter-clockwise order.
func TriArea2D(a, b, c d3.Vec3) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

// OverlapQuantBounds reports whether two quantized (uint16) AABBs overlap.
func OverlapQuantBounds(amin, amax, bmin, bmax [3]uint16) bool {
	overlap := true
	for i := 0; i < 3; i++ {
		if amin[i] > bmax[i] || amax[i] < bmin[i] {
			overlap = false
		}
	}
	return overlap
}

// OverlapBounds reports whether two float32 AABBs overlap.
func OverlapBounds(amin, amax, bmin, bmax d3.Vec3) bool {
	overlap := true
	for i := 0; i < 3; i++ {
		if amin[i] > bmax[i] || amax[i] < bmin[i] {
			overlap = false
		}
	}
	return overlap
}

// IntersectSegSeg2D intersects two 2D (x,z) segments (ap,aq) and (bp,bq).
// Returns false when the segments are parallel; otherwise true and the
// parameters s (along a) and t (along b) of the crossing point of the two
// supporting lines, which may lie outside [0,1].
func IntersectSegSeg2D(ap, aq, bp, bq d3.Vec3) (hit bool, s, t float32) {
	u := aq.Sub(ap)
	v := bq.Sub(bp)
	w := ap.Sub(bp)
	d := u[0]*v[2] - u[2]*v[0]
	if math32.Abs(d) < eps2D {
		return false, 0, 0
	}
	s = (v[0]*w[2] - v[2]*w[0]) / d
	t = (u[0]*w[2] - u[2]*w[0]) / d
	return true, s, t
}

// DistancePtSegSqr2D returns the squared 2D distance from pt to segment
// (p,q), and t, the parameter of the closest point on the segment.
func DistancePtSegSqr2D(pt, p, q d3.Vec3) (distSqr, t float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// PointInPolygon reports whether pt lies inside the 2D footprint of the
// polygon described by verts (nverts vertices, flat x,y,z array), via the
// standard ray-crossing test.
func PointInPolygon(pt d3.Vec3, verts []float32, nverts int) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3 : i*3+3]
		vj := verts[j*3 : j*3+3]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// DistancePtPolyEdgesSqr tests pt against the 2D footprint of a polygon and
// also fills edgeDistSqr/edgeT with, for every edge, the squared distance
// from pt to that edge and its parameter.
func DistancePtPolyEdgesSqr(pt d3.Vec3, verts []float32, nverts int, edgeDistSqr, edgeT []float32) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3 : i*3+3]
		vj := verts[j*3 : j*3+3]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		edgeDistSqr[j], edgeT[j] = DistancePtSegSqr2D(pt, vj, vi)
	}
	return c
}

// ClosestPtPointTriangle writes to closest the point on triangle (a,b,c)
// nearest to p, via barycentric classification of p into one of the
// triangle's seven Voronoi regions.
func ClosestPtPointTriangle(closest, p, a, b, c d3.Vec3) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		// vertex region A
		closest.Assign(a)
		return
	}

	bp := p.Sub(b)
	d3v := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3v >= 0 && d4 <= d3v {
		// vertex region B
		closest.Assign(b)
		return
	}

	vc := d1*d4 - d3v*d2
	if vc <= 0 && d1 >= 0 && d3v <= 0 {
		// edge region AB
		v := d1 / (d1 - d3v)
		closest.Assign(a.SAdd(ab, v))
		return
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		// vertex region C
		closest.Assign(c)
		return
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		// edge region AC
		w := d2 / (d2 - d6)
		closest.Assign(a.SAdd(ac, w))
		return
	}

	va := d3v*d6 - d5*d4
	if va <= 0 && (d4-d3v) >= 0 && (d5-d6) >= 0 {
		// edge region BC
		w := (d4 - d3v) / ((d4 - d3v) + (d5 - d6))
		closest.Assign(b.SAdd(c.Sub(b), w))
		return
	}

	// inside face region
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	closest.Assign(a.SAdd(ab, v).SAdd(ac, w))
}

// ClosestHeightPointTriangle returns the height (y) of the point on
// triangle (a,b,c) above (x,_,z) of p, via barycentric coordinates. ok
// is false if p's 2D projection is outside the triangle.
func ClosestHeightPointTriangle(p, a, b, c d3.Vec3) (h float32, ok bool) {
	const eps = 1e-4

	v0 := c.Sub(a)
	v1 := b.Sub(a)
	v2 := p.Sub(a)

	dot00 := v0.Dot2D(v0)
	dot01 := v0.Dot2D(v1)
	dot02 := v0.Dot2D(v2)
	dot11 := v1.Dot2D(v1)
	dot12 := v1.Dot2D(v2)

	invDenom := dot00*dot11 - dot01*dot01
	if math32.Abs(invDenom) < eps {
		return 0, false
	}
	invDenom = 1 / invDenom
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	if u >= -eps && v >= -eps && (u+v) <= 1+eps {
		h = a[1] + v0[1]*u + v1[1]*v
		return h, true
	}
	return 0, false
}

// projectPoly projects the 2D footprint of poly onto axis and returns its
// [min,max] range.
func projectPoly(axis d3.Vec3, poly []float32, npoly int) (rmin, rmax float32) {
	rmin = axis.Dot2D(d3.NewVec3XYZ(poly[0], poly[1], poly[2]))
	rmax = rmin
	for i := 1; i < npoly; i++ {
		d := axis.Dot2D(d3.NewVec3XYZ(poly[i*3], poly[i*3+1], poly[i*3+2]))
		if d < rmin {
			rmin = d
		}
		if d > rmax {
			rmax = d
		}
	}
	return
}

func overlapRange(amin, amax, bmin, bmax, eps float32) bool {
	return !((amin+eps) > bmax || (amax-eps) < bmin)
}

// OverlapPolyPoly2D reports whether the 2D footprints of two convex
// polygons overlap, via the separating-axis theorem.
func OverlapPolyPoly2D(polya []float32, npolya int, polyb []float32, npolyb int) bool {
	const eps = 1e-4
	for i, j := 0, npolya-1; i < npolya; j, i = i, i+1 {
		va := d3.NewVec3XYZ(polya[j*3], polya[j*3+1], polya[j*3+2])
		vb := d3.NewVec3XYZ(polya[i*3], polya[i*3+1], polya[i*3+2])
		n := d3.NewVec3XYZ(vb[2]-va[2], 0, -(vb[0] - va[0]))
		amin, amax := projectPoly(n, polya, npolya)
		bmin, bmax := projectPoly(n, polyb, npolyb)
		if !overlapRange(amin, amax, bmin, bmax, eps) {
			return false
		}
	}
	for i, j := 0, npolyb-1; i < npolyb; j, i = i, i+1 {
		va := d3.NewVec3XYZ(polyb[j*3], polyb[j*3+1], polyb[j*3+2])
		vb := d3.NewVec3XYZ(polyb[i*3], polyb[i*3+1], polyb[i*3+2])
		n := d3.NewVec3XYZ(vb[2]-va[2], 0, -(vb[0] - va[0]))
		amin, amax := projectPoly(n, polya, npolya)
		bmin, bmax := projectPoly(n, polyb, npolyb)
		if !overlapRange(amin, amax, bmin, bmax, eps) {
			return false
		}
	}
	return true
}

// IntersectSegmentPoly2D intersects segment (p0,p1) against the 2D
// footprint of a convex polygon (verts, nverts). Returns whether the
// segment touches the polygon at all, the entry/exit parameters tmin/tmax,
// and the edge indices at which the segment entered/exited.
func IntersectSegmentPoly2D(p0, p1 d3.Vec3, verts []float32, nverts int) (hit bool, tmin, tmax float32, segMin, segMax int) {
	const eps = 1e-8
	tmin = 0
	tmax = 1
	segMin = -1
	segMax = -1

	dir := p1.Sub(p0)

	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := d3.NewVec3XYZ(verts[i*3], verts[i*3+1], verts[i*3+2])
		vj := d3.NewVec3XYZ(verts[j*3], verts[j*3+1], verts[j*3+2])
		edge := vi.Sub(vj)
		diff := p0.Sub(vj)
		n := edge[2]*diff[0] - edge[0]*diff[2]
		d := -(edge[2]*dir[0] - edge[0]*dir[2])
		if math32.Abs(d) < eps {
			if n < 0 {
				return false, 0, 0, -1, -1
			}
			continue
		}
		t := n / d
		if d < 0 {
			if t > tmin {
				tmin = t
				segMin = j
			}
		} else {
			if t < tmax {
				tmax = t
				segMax = j
			}
		}
		if tmin > tmax {
			return false, 0, 0, -1, -1
		}
	}
	return true, tmin, tmax, segMin, segMax
}

// oppositeTile returns the tile-boundary side opposite to side.
func oppositeTile(side uint8) uint8 {
	return (side + 4) & 0x7
}

// calcSlabEndPoints projects a polygon edge (va,vb) onto the axis running
// along a tile boundary: the z axis for side 0/4, the x axis for side 2/6.
// Used by the link builder to match colinear edges across a tile boundary.
func calcSlabEndPoints(va, vb d3.Vec3, side uint8) (bmin, bmax [2]float32) {
	if side == 0 || side == 4 {
		if va[2] < vb[2] {
			bmin[0] = va[2]
			bmin[1] = va[1]
			bmax[0] = vb[2]
			bmax[1] = vb[1]
		} else {
			bmin[0] = vb[2]
			bmin[1] = vb[1]
			bmax[0] = va[2]
			bmax[1] = va[1]
		}
	} else if side == 2 || side == 6 {
		if va[0] < vb[0] {
			bmin[0] = va[0]
			bmin[1] = va[1]
			bmax[0] = vb[0]
			bmax[1] = vb[1]
		} else {
			bmin[0] = vb[0]
			bmin[1] = vb[1]
			bmax[0] = va[0]
			bmax[1] = va[1]
		}
	}
	return
}

func slabCoord(v d3.Vec3, side uint8) float32 {
	if side == 0 || side == 4 {
		return v[0]
	}
	return v[2]
}

// overlapSlabs reports whether two projected edge slabs overlap within px
// horizontally and py*2 vertically. Slabs that cross in y always overlap.
func overlapSlabs(amin, amax, bmin, bmax [2]float32, px, py float32) bool {
	minx := math32.Max(amin[0]+px, bmin[0]+px)
	maxx := math32.Min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}

	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy

	if dmin*dmax < 0 {
		return true
	}

	thr := (py * 2) * (py * 2)
	if dmin*dmin <= thr || dmax*dmax <= thr {
		return true
	}
	return false
}
