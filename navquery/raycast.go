package navquery

import (
	"math"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// RaycastUseCosts asks Raycast to accumulate the traversal cost of the
// polygons crossed into RaycastHit.PathCost.
const RaycastUseCosts int32 = 0x01

// RaycastHit is the result of a walkability raycast.
type RaycastHit struct {
	// T is the hit parameter along the segment: 0 when the start lies on
	// the wall that was hit, math.MaxFloat32 when no wall was hit and the
	// path is a clear corridor to the end position.
	T float32

	// HitNormal is the normal of the wall that was hit; undefined when no
	// wall was hit.
	HitNormal d3.Vec3

	// HitEdgeIndex is the edge of the final polygon where the wall was
	// hit.
	HitEdgeIndex int

	// Path holds the visited polygons, PathCount of them.
	Path      []navmesh.PolyRef
	PathCount int

	// PathCost is the accumulated traversal cost, filled only with
	// RaycastUseCosts.
	PathCost float32
}

// Raycast casts a walkability ray along the navmesh surface from startPos
// inside startRef toward endPos, marching the polygon graph in 2D (the
// y-value of endPos is ignored). path, when non-nil, receives the visited
// polygons. prevRef, when non-zero, is the polygon the agent came from and
// feeds cost calculation only.
//
// Off-mesh connections are never entered: the ray stops at their edge as
// if it were a wall. Meant for quick, short-distance checks; over long
// distances overlapping geometry on different levels makes the 2D march
// unreliable.
func (q *NavMeshQuery) Raycast(
	startRef navmesh.PolyRef,
	startPos, endPos d3.Vec3,
	filter *QueryFilter,
	options int32,
	prevRef navmesh.PolyRef,
	path []navmesh.PolyRef) (hit RaycastHit, st navmesh.Status) {

	if !q.nav.IsValidPolyRef(startRef) || filter == nil {
		return hit, navmesh.Failure | navmesh.InvalidParam
	}
	if prevRef != 0 && !q.nav.IsValidPolyRef(prevRef) {
		return hit, navmesh.Failure | navmesh.InvalidParam
	}

	var (
		verts [navmesh.VertsPerPolygon*3 + 3]float32
		n     int
	)

	hit.Path = path
	hit.HitNormal = d3.NewVec3()
	hit.HitEdgeIndex = -1

	curPos := d3.NewVec3From(startPos)
	lastPos := d3.NewVec3()
	dir := endPos.Sub(startPos)

	st = navmesh.Success

	// Input was validated, internal refs resolve without checks.
	curRef := startRef
	tile, poly := q.nav.TileAndPolyByRefUnsafe(curRef)
	prevTile, prevPoly := tile, poly
	nextTile, nextPoly := tile, poly
	if prevRef != 0 {
		prevTile, prevPoly = q.nav.TileAndPolyByRefUnsafe(prevRef)
	}

	for curRef != 0 {
		nv := 0
		for i := 0; i < int(poly.VertCount); i++ {
			copy(verts[nv*3:nv*3+3], tile.Verts[poly.Verts[i]*3:poly.Verts[i]*3+3])
			nv++
		}

		ok, _, tmax, _, segMax := navmesh.IntersectSegmentPoly2D(startPos, endPos, verts[:], nv)
		if !ok {
			// The segment never touches the current polygon: keep the
			// previous t and report what was visited.
			hit.PathCount = n
			return hit, st
		}

		hit.HitEdgeIndex = segMax

		if tmax > hit.T {
			hit.T = tmax
		}

		if n < len(path) {
			path[n] = curRef
			n++
		} else if path != nil {
			st |= navmesh.BufferTooSmall
		}

		// The segment ends inside the current polygon.
		if segMax == -1 {
			hit.T = math.MaxFloat32
			hit.PathCount = n
			if options&RaycastUseCosts != 0 {
				hit.PathCost += filter.Cost(curPos, endPos,
					prevRef, prevTile, prevPoly,
					curRef, tile, poly,
					curRef, tile, poly)
			}
			return hit, st
		}

		// Follow the link crossing the exit edge.
		var nextRef navmesh.PolyRef
		for i := poly.FirstLink; i != navmesh.NullLink; i = tile.Links[i].Next {
			link := &tile.Links[i]
			if int(link.Edge) != segMax {
				continue
			}

			nextTile, nextPoly = q.nav.TileAndPolyByRefUnsafe(link.Ref)

			if nextPoly.Type() == navmesh.PolyTypeOffMeshConnection {
				continue
			}
			if !filter.PassFilter(link.Ref, nextTile, nextPoly) {
				continue
			}

			// In-tile link: crossing accepted as-is.
			if link.Side == 0xff {
				nextRef = link.Ref
				break
			}

			// Tile-boundary link covering the whole edge.
			if link.BMin == 0 && link.BMax == 255 {
				nextRef = link.Ref
				break
			}

			// Partial coverage: the crossing point must lie inside the
			// link's sub-range of the edge.
			v0 := poly.Verts[link.Edge]
			v1 := poly.Verts[(link.Edge+1)%poly.VertCount]
			left := tile.Verts[v0*3 : v0*3+3]
			right := tile.Verts[v1*3 : v1*3+3]

			const s = float32(1.0 / 255.0)
			if link.Side == 0 || link.Side == 4 {
				lmin := left[2] + (right[2]-left[2])*(float32(link.BMin)*s)
				lmax := left[2] + (right[2]-left[2])*(float32(link.BMax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}
				z := startPos[2] + (endPos[2]-startPos[2])*tmax
				if z >= lmin && z <= lmax {
					nextRef = link.Ref
					break
				}
			} else if link.Side == 2 || link.Side == 6 {
				lmin := left[0] + (right[0]-left[0])*(float32(link.BMin)*s)
				lmax := left[0] + (right[0]-left[0])*(float32(link.BMax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}
				x := startPos[0] + (endPos[0]-startPos[0])*tmax
				if x >= lmin && x <= lmax {
					nextRef = link.Ref
					break
				}
			}
		}

		if options&RaycastUseCosts != 0 {
			// Move the cost sample point to the exit edge, correcting the
			// height (the march itself is 2D).
			lastPos.Assign(curPos)
			d3.Vec3Mad(curPos, startPos, dir, hit.T)
			e1 := d3.Vec3(verts[segMax*3 : segMax*3+3])
			e2 := d3.Vec3(verts[((segMax+1)%nv)*3 : ((segMax+1)%nv)*3+3])
			eDir := e2.Sub(e1)
			diff := curPos.Sub(e1)
			var s float32
			if math32.Sqr(eDir[0]) > math32.Sqr(eDir[2]) {
				s = diff[0] / eDir[0]
			} else {
				s = diff[2] / eDir[2]
			}
			curPos[1] = e1[1] + eDir[1]*s

			hit.PathCost += filter.Cost(lastPos, curPos,
				prevRef, prevTile, prevPoly,
				curRef, tile, poly,
				nextRef, nextTile, nextPoly)
		}

		if nextRef == 0 {
			// No traversable neighbour behind the exit edge: a wall.
			a := segMax
			b := 0
			if segMax+1 < nv {
				b = segMax + 1
			}
			va := verts[a*3 : a*3+3]
			vb := verts[b*3 : b*3+3]
			dx := vb[0] - va[0]
			dz := vb[2] - va[2]
			hit.HitNormal[0] = dz
			hit.HitNormal[1] = 0
			hit.HitNormal[2] = -dx
			hit.HitNormal.Normalize()

			hit.PathCount = n
			return hit, st
		}

		prevRef = curRef
		curRef = nextRef
		prevTile, tile = tile, nextTile
		prevPoly, poly = poly, nextPoly
	}

	hit.PathCount = n
	return hit, st
}
