package navquery

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/navkit/navmesh"
)

const maxAreas = 64

// QueryFilter selects which polygons a query may traverse and what it
// costs to cross them. A polygon passes the filter iff it carries at least
// one include flag and no exclude flag.
//
// The filter is a plain record passed by pointer; queries never copy it
// (the sliced path API keeps the caller's pointer alive for the duration of
// the query). A zero-valued filter rejects everything, use NewQueryFilter.
type QueryFilter struct {
	areaCost     [maxAreas]float32
	includeFlags uint16
	excludeFlags uint16
}

// NewQueryFilter returns a filter that accepts any flagged polygon and
// costs every area at 1.0.
func NewQueryFilter() *QueryFilter {
	qf := &QueryFilter{
		includeFlags: 0xffff,
		excludeFlags: 0,
	}
	for i := range qf.areaCost {
		qf.areaCost[i] = 1.0
	}
	return qf
}

// AreaCost returns the traversal cost multiplier of area i.
func (qf *QueryFilter) AreaCost(i int32) float32 { return qf.areaCost[i] }

// SetAreaCost sets the traversal cost multiplier of area i.
func (qf *QueryFilter) SetAreaCost(i int32, cost float32) { qf.areaCost[i] = cost }

// IncludeFlags returns the filter's include mask.
func (qf *QueryFilter) IncludeFlags() uint16 { return qf.includeFlags }

// SetIncludeFlags sets the filter's include mask. A polygon must carry at
// least one of these flags to be visited.
func (qf *QueryFilter) SetIncludeFlags(flags uint16) { qf.includeFlags = flags }

// ExcludeFlags returns the filter's exclude mask.
func (qf *QueryFilter) ExcludeFlags() uint16 { return qf.excludeFlags }

// SetExcludeFlags sets the filter's exclude mask. A polygon carrying any of
// these flags is never visited.
func (qf *QueryFilter) SetExcludeFlags(flags uint16) { qf.excludeFlags = flags }

// PassFilter reports whether poly may be visited.
func (qf *QueryFilter) PassFilter(ref navmesh.PolyRef, tile *navmesh.MeshTile, poly *navmesh.Poly) bool {
	return (poly.Flags&qf.includeFlags) != 0 && (poly.Flags&qf.excludeFlags) == 0
}

// Cost returns the cost of moving from pa to pb, both on the surface of
// curPoly: the segment length scaled by the polygon area's cost.
func (qf *QueryFilter) Cost(pa, pb d3.Vec3,
	prevRef navmesh.PolyRef, prevTile *navmesh.MeshTile, prevPoly *navmesh.Poly,
	curRef navmesh.PolyRef, curTile *navmesh.MeshTile, curPoly *navmesh.Poly,
	nextRef navmesh.PolyRef, nextTile *navmesh.MeshTile, nextPoly *navmesh.Poly) float32 {

	return pa.Dist(pb) * qf.areaCost[curPoly.Area()]
}
