package navquery

import (
	"math"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// polyQuery receives batches of polygons from queryPolygons. process may
// be called several times for a single query.
type polyQuery interface {
	process(tile *navmesh.MeshTile, polys []*navmesh.Poly, refs []navmesh.PolyRef, count int)
}

type findNearestPolyQuery struct {
	query              *NavMeshQuery
	center             d3.Vec3
	nearestDistanceSqr float32
	nearestRef         navmesh.PolyRef
	nearestPoint       d3.Vec3
}

func newFindNearestPolyQuery(query *NavMeshQuery, center d3.Vec3) *findNearestPolyQuery {
	return &findNearestPolyQuery{
		query:              query,
		center:             center,
		nearestDistanceSqr: float32(math.MaxFloat32),
		nearestPoint:       d3.NewVec3(),
	}
}

func (q *findNearestPolyQuery) process(tile *navmesh.MeshTile, polys []*navmesh.Poly, refs []navmesh.PolyRef, count int) {
	for i := 0; i < count; i++ {
		ref := refs[i]
		closestPtPoly := d3.NewVec3()
		posOverPoly := false
		q.query.ClosestPointOnPoly(ref, q.center, closestPtPoly, &posOverPoly)

		// A point directly over a polygon, within climb height, beats a
		// straight-line nearest point.
		diff := q.center.Sub(closestPtPoly)
		var d float32
		if posOverPoly {
			d = math32.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = diff.LenSqr()
		}

		if d < q.nearestDistanceSqr {
			q.nearestPoint.Assign(closestPtPoly)
			q.nearestDistanceSqr = d
			q.nearestRef = ref
		}
	}
}

type collectPolysQuery struct {
	polys        []navmesh.PolyRef
	numCollected int
	overflow     bool
}

func newCollectPolysQuery(polys []navmesh.PolyRef) *collectPolysQuery {
	return &collectPolysQuery{polys: polys}
}

func (q *collectPolysQuery) process(tile *navmesh.MeshTile, polys []*navmesh.Poly, refs []navmesh.PolyRef, count int) {
	numLeft := len(q.polys) - q.numCollected
	toCopy := count
	if toCopy > numLeft {
		q.overflow = true
		toCopy = numLeft
	}
	copy(q.polys[q.numCollected:], refs[:toCopy])
	q.numCollected += toCopy
}
