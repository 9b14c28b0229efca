package navquery

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// Vertex flags returned by FindStraightPath.
const (
	// StraightPathStart marks the path start position.
	StraightPathStart uint8 = 0x01
	// StraightPathEnd marks the path end position.
	StraightPathEnd uint8 = 0x02
	// StraightPathOffMeshConnection marks the start of an off-mesh
	// connection.
	StraightPathOffMeshConnection uint8 = 0x04
)

// Options for FindStraightPath.
const (
	// StraightPathAreaCrossings adds a vertex at every polygon edge
	// crossing where the area changes.
	StraightPathAreaCrossings int32 = 0x01
	// StraightPathAllCrossings adds a vertex at every polygon edge
	// crossing.
	StraightPathAllCrossings int32 = 0x02
)

// FindStraightPath pulls the polyline taut inside the polygon corridor
// path, from startPos to endPos, using the funnel algorithm. straightPath
// receives the vertices; straightPathFlags and straightPathRefs, when
// non-empty, receive per-vertex flags and the polygon entered at each
// vertex. Returns the number of vertices written.
//
// The start and end positions are clamped to the corridor, so they need
// not be exactly on it.
func (q *NavMeshQuery) FindStraightPath(
	startPos, endPos d3.Vec3,
	path []navmesh.PolyRef,
	straightPath []d3.Vec3,
	straightPathFlags []uint8,
	straightPathRefs []navmesh.PolyRef,
	options int32) (int, navmesh.Status) {

	if len(straightPath) == 0 || len(path) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	var (
		stat  navmesh.Status
		count int
	)

	closestStartPos := d3.NewVec3()
	if q.ClosestPointOnPolyBoundary(path[0], startPos, closestStartPos).Failed() {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}
	closestEndPos := d3.NewVec3()
	if q.ClosestPointOnPolyBoundary(path[len(path)-1], endPos, closestEndPos).Failed() {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	stat = q.appendVertex(closestStartPos, StraightPathStart, path[0],
		straightPath, straightPathFlags, straightPathRefs, &count)
	if !stat.InProgress() {
		return count, stat
	}

	if len(path) > 1 {
		portalApex := d3.NewVec3From(closestStartPos)
		portalLeft := d3.NewVec3From(portalApex)
		portalRight := d3.NewVec3From(portalApex)
		var (
			apexIndex, leftIndex, rightIndex int
			leftPolyType, rightPolyType      navmesh.PolyType
		)

		leftPolyRef := path[0]
		rightPolyRef := path[0]

		for i := 0; i < len(path); i++ {
			left := d3.NewVec3()
			right := d3.NewVec3()
			var toType navmesh.PolyType

			if i+1 < len(path) {
				var st navmesh.Status
				if _, toType, st = q.portalPoints(path[i], path[i+1], left, right); st.Failed() {
					// path[i+1] no longer resolves. Clamp the end to path[i]
					// and return what we have.
					if q.ClosestPointOnPolyBoundary(path[i], endPos, closestEndPos).Failed() {
						return 0, navmesh.Failure | navmesh.InvalidParam
					}
					if options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0 {
						q.appendPortals(apexIndex, i, closestEndPos, path,
							straightPath, straightPathFlags, straightPathRefs, &count, options)
					}
					q.appendVertex(closestEndPos, 0, path[i],
						straightPath, straightPathFlags, straightPathRefs, &count)

					stat = navmesh.Success | navmesh.PartialResult
					if count >= len(straightPath) {
						stat |= navmesh.BufferTooSmall
					}
					return count, stat
				}

				// If starting really close to the first portal, advance.
				if i == 0 {
					if distSqr, _ := navmesh.DistancePtSegSqr2D(portalApex, left, right); distSqr < math32.Sqr(0.001) {
						continue
					}
				}
			} else {
				// End of the path: a degenerate portal at the clamped end.
				left.Assign(closestEndPos)
				right.Assign(closestEndPos)
				toType = navmesh.PolyTypeGround
			}

			// Right vertex.
			if navmesh.TriArea2D(portalApex, portalRight, right) <= 0.0 {
				if portalApex.Approx(portalRight) || navmesh.TriArea2D(portalApex, portalLeft, right) > 0.0 {
					portalRight.Assign(right)
					if i+1 < len(path) {
						rightPolyRef = path[i+1]
					} else {
						rightPolyRef = 0
					}
					rightPolyType = toType
					rightIndex = i
				} else {
					if options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0 {
						stat = q.appendPortals(apexIndex, leftIndex, portalLeft, path,
							straightPath, straightPathFlags, straightPathRefs, &count, options)
						if !stat.InProgress() {
							return count, stat
						}
					}

					portalApex.Assign(portalLeft)
					apexIndex = leftIndex

					var flags uint8
					if leftPolyRef == 0 {
						flags = StraightPathEnd
					} else if leftPolyType == navmesh.PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}

					stat = q.appendVertex(portalApex, flags, leftPolyRef,
						straightPath, straightPathFlags, straightPathRefs, &count)
					if !stat.InProgress() {
						return count, stat
					}

					portalLeft.Assign(portalApex)
					portalRight.Assign(portalApex)
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart the scan from the new apex.
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if navmesh.TriArea2D(portalApex, portalLeft, left) >= 0.0 {
				if portalApex.Approx(portalLeft) || navmesh.TriArea2D(portalApex, portalRight, left) < 0.0 {
					portalLeft.Assign(left)
					if i+1 < len(path) {
						leftPolyRef = path[i+1]
					} else {
						leftPolyRef = 0
					}
					leftPolyType = toType
					leftIndex = i
				} else {
					if options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0 {
						stat = q.appendPortals(apexIndex, rightIndex, portalRight, path,
							straightPath, straightPathFlags, straightPathRefs, &count, options)
						if !stat.InProgress() {
							return count, stat
						}
					}

					portalApex.Assign(portalRight)
					apexIndex = rightIndex

					var flags uint8
					if rightPolyRef == 0 {
						flags = StraightPathEnd
					} else if rightPolyType == navmesh.PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}

					stat = q.appendVertex(portalApex, flags, rightPolyRef,
						straightPath, straightPathFlags, straightPathRefs, &count)
					if !stat.InProgress() {
						return count, stat
					}

					portalLeft.Assign(portalApex)
					portalRight.Assign(portalApex)
					leftIndex = apexIndex
					rightIndex = apexIndex

					i = apexIndex
					continue
				}
			}
		}

		if options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0 {
			stat = q.appendPortals(apexIndex, len(path)-1, closestEndPos, path,
				straightPath, straightPathFlags, straightPathRefs, &count, options)
			if !stat.InProgress() {
				return count, stat
			}
		}
	}

	q.appendVertex(closestEndPos, StraightPathEnd, 0,
		straightPath, straightPathFlags, straightPathRefs, &count)

	stat = navmesh.Success
	if count >= len(straightPath) {
		stat |= navmesh.BufferTooSmall
	}
	return count, stat
}

// appendVertex adds pos to the straight path, or merges it into the last
// vertex when the positions coincide.
func (q *NavMeshQuery) appendVertex(
	pos d3.Vec3, flags uint8, ref navmesh.PolyRef,
	straightPath []d3.Vec3,
	straightPathFlags []uint8,
	straightPathRefs []navmesh.PolyRef,
	count *int) navmesh.Status {

	if *count > 0 && pos.Approx(straightPath[*count-1]) {
		// Same position as the previous vertex: refresh flags and ref.
		if len(straightPathFlags) > 0 {
			straightPathFlags[*count-1] = flags
		}
		if len(straightPathRefs) > 0 {
			straightPathRefs[*count-1] = ref
		}
		return navmesh.InProgress
	}

	if straightPath[*count] == nil {
		straightPath[*count] = d3.NewVec3()
	}
	straightPath[*count].Assign(pos)
	if len(straightPathFlags) > 0 {
		straightPathFlags[*count] = flags
	}
	if len(straightPathRefs) > 0 {
		straightPathRefs[*count] = ref
	}
	(*count)++

	if *count >= len(straightPath) {
		return navmesh.Success | navmesh.BufferTooSmall
	}
	if flags == StraightPathEnd {
		return navmesh.Success
	}
	return navmesh.InProgress
}

// appendPortals adds a vertex at every portal crossed between two path
// indices, subject to the crossing options.
func (q *NavMeshQuery) appendPortals(
	startIdx, endIdx int,
	endPos d3.Vec3,
	path []navmesh.PolyRef,
	straightPath []d3.Vec3,
	straightPathFlags []uint8,
	straightPathRefs []navmesh.PolyRef,
	count *int,
	options int32) navmesh.Status {

	startPos := straightPath[*count-1]

	for i := startIdx; i < endIdx; i++ {
		from := path[i]
		fromTile, fromPoly, status := q.nav.TileAndPolyByRef(from)
		if status.Failed() {
			return navmesh.Failure | navmesh.InvalidParam
		}

		to := path[i+1]
		toTile, toPoly, status := q.nav.TileAndPolyByRef(to)
		if status.Failed() {
			return navmesh.Failure | navmesh.InvalidParam
		}

		left := d3.NewVec3()
		right := d3.NewVec3()
		if q.portalPointsForPolys(from, fromPoly, fromTile, to, toPoly, toTile, left, right).Failed() {
			break
		}

		if options&StraightPathAreaCrossings != 0 {
			// Only crossings between different areas are requested.
			if fromPoly.Area() == toPoly.Area() {
				continue
			}
		}

		if hit, _, t := navmesh.IntersectSegSeg2D(startPos, endPos, left, right); hit {
			pt := left.Lerp(right, t)
			stat := q.appendVertex(pt, 0, path[i+1],
				straightPath, straightPathFlags, straightPathRefs, count)
			if !stat.InProgress() {
				return stat
			}
		}
	}
	return navmesh.InProgress
}
