package navquery

import (
	"math"

	assert "github.com/arl/assertgo"
	"github.com/arl/gogeo/f32"
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// HScale is the A* heuristic scale. Kept slightly below 1 so the heuristic
// stays admissible under float32 rounding.
const HScale float32 = 0.999

// NavMeshQuery performs pathfinding and spatial queries against a NavMesh.
//
// A query object owns all its search state (node pools, open list, sliced
// query record), so multiple query objects may serve read-only queries on
// a shared NavMesh concurrently, as long as no tile is added or removed
// meanwhile. A single query object must not be used from more than one
// goroutine at a time.
//
// Walls and portals: a wall is a polygon edge that is impassable; a portal
// is a passable edge between two polygons. A portal may act as a wall
// depending on the QueryFilter in use.
type NavMeshQuery struct {
	nav          *navmesh.NavMesh
	query        queryData // sliced query state
	tinyNodePool *NodePool // for short-range surface queries
	nodePool     *NodePool
	openList     *nodeQueue
}

// NewNavMeshQuery returns a query object operating on nav, with search
// state sized for maxNodes A* nodes (at most 65535).
func NewNavMeshQuery(nav *navmesh.NavMesh, maxNodes int32) (*NavMeshQuery, navmesh.Status) {
	if nav == nil || maxNodes <= 0 ||
		maxNodes > int32(nullIdx) || maxNodes > (1<<nodeParentBits)-1 {
		return nil, navmesh.Failure | navmesh.InvalidParam
	}

	hashSize := int32(math32.NextPow2(uint32(maxNodes / 4)))
	if hashSize == 0 {
		hashSize = 1
	}
	q := &NavMeshQuery{
		nav:          nav,
		nodePool:     newNodePool(maxNodes, hashSize),
		tinyNodePool: newNodePool(64, 32),
		openList:     newNodeQueue(maxNodes),
	}
	return q, navmesh.Success
}

// AttachedNavMesh returns the navigation mesh the query operates on.
func (q *NavMeshQuery) AttachedNavMesh() *navmesh.NavMesh { return q.nav }

// IsValidPolyRef reports whether ref addresses a live polygon that passes
// filter.
func (q *NavMeshQuery) IsValidPolyRef(ref navmesh.PolyRef, filter *QueryFilter) bool {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return false
	}
	return filter.PassFilter(ref, tile, poly)
}

// ClosestPointOnPoly finds the point on polygon ref nearest to pos, using
// the polygon's detail triangles. posOverPoly, when non-nil, receives
// whether pos projects over the polygon's 2D footprint. pos need not be on
// the mesh.
func (q *NavMeshQuery) ClosestPointOnPoly(ref navmesh.PolyRef, pos, closest d3.Vec3, posOverPoly *bool) navmesh.Status {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return navmesh.Failure | navmesh.InvalidParam
	}

	// Off-mesh connections have no detail triangles: interpolate between
	// the endpoints by distance ratio.
	if poly.Type() == navmesh.PolyTypeOffMeshConnection {
		v0 := d3.Vec3(tile.Verts[poly.Verts[0]*3 : poly.Verts[0]*3+3])
		v1 := d3.Vec3(tile.Verts[poly.Verts[1]*3 : poly.Verts[1]*3+3])
		d0 := pos.Dist(v0)
		d1 := pos.Dist(v1)
		u := d0 / (d0 + d1)
		d3.Vec3Lerp(closest, v0, v1, u)
		if posOverPoly != nil {
			*posOverPoly = false
		}
		return navmesh.Success
	}

	_, _, ip := q.nav.DecodePolyID(ref)
	if int(ip) >= len(tile.DetailMeshes) {
		return navmesh.Failure
	}
	pd := &tile.DetailMeshes[ip]

	var (
		verts [navmesh.VertsPerPolygon * 3]float32
		edged [navmesh.VertsPerPolygon]float32
		edget [navmesh.VertsPerPolygon]float32
	)
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		jdx := poly.Verts[i] * 3
		copy(verts[i*3:i*3+3], tile.Verts[jdx:jdx+3])
	}

	if posOverPoly != nil {
		*posOverPoly = navmesh.DistancePtPolyEdgesSqr(pos, verts[:], nv, edged[:], edget[:])
	}

	// Take the nearest point across all detail triangles.
	closest.Assign(pos)
	closestDistSqr := float32(math.MaxFloat32)
	pt := d3.NewVec3()
	for j := uint8(0); j < pd.TriCount; j++ {
		tidx := (pd.TriBase + uint32(j)) * 4
		t := tile.DetailTris[tidx : tidx+3]
		var v [3]d3.Vec3
		for k := 0; k < 3; k++ {
			if t[k] < poly.VertCount {
				vidx := int(poly.Verts[t[k]]) * 3
				v[k] = d3.Vec3(tile.Verts[vidx : vidx+3])
			} else {
				di := int(pd.VertBase) + int(t[k]-poly.VertCount)
				if di*3+3 > len(tile.DetailVerts) {
					return navmesh.Failure
				}
				v[k] = d3.Vec3(tile.DetailVerts[di*3 : di*3+3])
			}
		}
		navmesh.ClosestPtPointTriangle(pt, pos, v[0], v[1], v[2])
		if d := pos.DistSqr(pt); d < closestDistSqr {
			closest.Assign(pt)
			closestDistSqr = d
		}
	}

	return navmesh.Success
}

// ClosestPointOnPolyBoundary clamps pos to polygon ref in 2D: pos itself
// when it is inside the polygon footprint, the nearest boundary point
// otherwise. The detail mesh is not consulted, so this is cheaper but less
// accurate in height than ClosestPointOnPoly.
func (q *NavMeshQuery) ClosestPointOnPolyBoundary(ref navmesh.PolyRef, pos, closest d3.Vec3) navmesh.Status {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return navmesh.Failure | navmesh.InvalidParam
	}

	var (
		verts [navmesh.VertsPerPolygon * 3]float32
		edged [navmesh.VertsPerPolygon]float32
		edget [navmesh.VertsPerPolygon]float32
	)
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		jdx := poly.Verts[i] * 3
		copy(verts[i*3:i*3+3], tile.Verts[jdx:jdx+3])
	}

	if navmesh.DistancePtPolyEdgesSqr(pos, verts[:], nv, edged[:], edget[:]) {
		closest.Assign(pos)
		return navmesh.Success
	}

	dmin := edged[0]
	imin := 0
	for i := 1; i < nv; i++ {
		if edged[i] < dmin {
			dmin = edged[i]
			imin = i
		}
	}
	va := d3.Vec3(verts[imin*3 : imin*3+3])
	vb := d3.Vec3(verts[((imin+1)%nv)*3 : ((imin+1)%nv)*3+3])
	d3.Vec3Lerp(closest, va, vb, edget[imin])
	return navmesh.Success
}

// PolyHeight returns the navmesh surface height at pos over polygon ref:
// for ground polygons, interpolated from the detail triangle containing
// pos in 2D; for off-mesh connections, interpolated between the endpoint
// heights by 2D distance ratio. Fails when pos is outside the polygon.
func (q *NavMeshQuery) PolyHeight(ref navmesh.PolyRef, pos d3.Vec3) (float32, navmesh.Status) {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	if poly.Type() == navmesh.PolyTypeOffMeshConnection {
		v0 := d3.Vec3(tile.Verts[poly.Verts[0]*3 : poly.Verts[0]*3+3])
		v1 := d3.Vec3(tile.Verts[poly.Verts[1]*3 : poly.Verts[1]*3+3])
		d0 := pos.Dist2D(v0)
		d1 := pos.Dist2D(v1)
		u := d0 / (d0 + d1)
		return v0[1] + (v1[1]-v0[1])*u, navmesh.Success
	}

	_, _, ip := q.nav.DecodePolyID(ref)
	if int(ip) >= len(tile.DetailMeshes) {
		return 0, navmesh.Failure
	}
	pd := &tile.DetailMeshes[ip]
	for j := uint8(0); j < pd.TriCount; j++ {
		tidx := (pd.TriBase + uint32(j)) * 4
		t := tile.DetailTris[tidx : tidx+3]
		var v [3]d3.Vec3
		for k := 0; k < 3; k++ {
			if t[k] < poly.VertCount {
				vidx := int(poly.Verts[t[k]]) * 3
				v[k] = d3.Vec3(tile.Verts[vidx : vidx+3])
			} else {
				di := int(pd.VertBase) + int(t[k]-poly.VertCount)
				if di*3+3 > len(tile.DetailVerts) {
					return 0, navmesh.Failure
				}
				v[k] = d3.Vec3(tile.DetailVerts[di*3 : di*3+3])
			}
		}
		if h, ok := navmesh.ClosestHeightPointTriangle(pos, v[0], v[1], v[2]); ok {
			return h, navmesh.Success
		}
	}

	return 0, navmesh.Failure | navmesh.InvalidParam
}

// FindNearestPoly returns the polygon nearest to center within the box
// center±halfExtents, and the closest point on it. A zero ref with Success
// means nothing was found.
func (q *NavMeshQuery) FindNearestPoly(center, halfExtents d3.Vec3, filter *QueryFilter) (ref navmesh.PolyRef, pt d3.Vec3, st navmesh.Status) {
	query := newFindNearestPolyQuery(q, center)
	st = q.queryPolygons(center, halfExtents, filter, query)
	if st.Failed() {
		return 0, nil, st
	}
	if ref = query.nearestRef; ref != 0 {
		pt = d3.NewVec3From(query.nearestPoint)
	}
	return ref, pt, navmesh.Success
}

// QueryPolygons collects into polys every polygon whose bounds overlap the
// box center±halfExtents and that passes filter. When polys is too small
// for the full result set the status carries BufferTooSmall.
func (q *NavMeshQuery) QueryPolygons(center, halfExtents d3.Vec3, filter *QueryFilter, polys []navmesh.PolyRef) (int, navmesh.Status) {
	if len(polys) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}
	collector := newCollectPolysQuery(polys)
	st := q.queryPolygons(center, halfExtents, filter, collector)
	if st.Failed() {
		return 0, st
	}
	st = navmesh.Success
	if collector.overflow {
		st |= navmesh.BufferTooSmall
	}
	return collector.numCollected, st
}

// queryPolygons runs query over every polygon overlapping the search box,
// batched per tile.
func (q *NavMeshQuery) queryPolygons(center, halfExtents d3.Vec3, filter *QueryFilter, query polyQuery) navmesh.Status {
	if len(center) != 3 || len(halfExtents) != 3 || filter == nil || query == nil {
		return navmesh.Failure | navmesh.InvalidParam
	}

	bmin := center.Sub(halfExtents)
	bmax := center.Add(halfExtents)

	minx, miny := q.nav.CalcTileLoc(bmin)
	maxx, maxy := q.nav.CalcTileLoc(bmax)

	const maxNeis = 32
	neis := make([]*navmesh.MeshTile, maxNeis)

	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			nneis := q.nav.TilesAt(x, y, neis, maxNeis)
			for j := int32(0); j < nneis; j++ {
				q.queryPolygonsInTile(neis[j], bmin, bmax, filter, query)
			}
		}
	}
	return navmesh.Success
}

// queryPolygonsInTile feeds query with the polygons of tile overlapping
// [qmin, qmax], via BV-tree traversal when the tile has one and a linear
// scan otherwise.
func (q *NavMeshQuery) queryPolygonsInTile(tile *navmesh.MeshTile, qmin, qmax d3.Vec3, filter *QueryFilter, query polyQuery) {
	const batchSize = 32
	var (
		polyRefs [batchSize]navmesh.PolyRef
		polys    [batchSize]*navmesh.Poly
		n        int
	)

	base := q.nav.PolyRefBase(tile)

	if len(tile.BvTree) > 0 {
		nodeIdx := int32(0)
		endIdx := tile.Header.BvNodeCount

		tbmin := d3.Vec3(tile.Header.Bmin[:])
		tbmax := d3.Vec3(tile.Header.Bmax[:])
		qfac := tile.Header.BvQuantFactor

		// Quantize the query box into the tile's local grid.
		minx := f32.Clamp(qmin[0], tbmin[0], tbmax[0]) - tbmin[0]
		miny := f32.Clamp(qmin[1], tbmin[1], tbmax[1]) - tbmin[1]
		minz := f32.Clamp(qmin[2], tbmin[2], tbmax[2]) - tbmin[2]
		maxx := f32.Clamp(qmax[0], tbmin[0], tbmax[0]) - tbmin[0]
		maxy := f32.Clamp(qmax[1], tbmin[1], tbmax[1]) - tbmin[1]
		maxz := f32.Clamp(qmax[2], tbmin[2], tbmax[2]) - tbmin[2]

		var bmin, bmax [3]uint16
		bmin[0] = uint16(uint32(qfac*minx) & 0xfffe)
		bmin[1] = uint16(uint32(qfac*miny) & 0xfffe)
		bmin[2] = uint16(uint32(qfac*minz) & 0xfffe)
		bmax[0] = uint16(uint32(qfac*maxx+1) | 1)
		bmax[1] = uint16(uint32(qfac*maxy+1) | 1)
		bmax[2] = uint16(uint32(qfac*maxz+1) | 1)

		for nodeIdx < endIdx {
			node := &tile.BvTree[nodeIdx]
			overlap := navmesh.OverlapQuantBounds(bmin, bmax, node.BMin, node.BMax)
			isLeafNode := node.I >= 0

			if isLeafNode && overlap {
				ref := base | navmesh.PolyRef(node.I)
				if filter.PassFilter(ref, tile, &tile.Polys[node.I]) {
					polyRefs[n] = ref
					polys[n] = &tile.Polys[node.I]
					n++
					if n == batchSize {
						query.process(tile, polys[:], polyRefs[:], batchSize)
						n = 0
					}
				}
			}

			if overlap || isLeafNode {
				nodeIdx++
			} else {
				nodeIdx += -node.I
			}
		}
	} else {
		bmin := d3.NewVec3()
		bmax := d3.NewVec3()
		for i := int32(0); i < tile.Header.PolyCount; i++ {
			p := &tile.Polys[i]
			if p.Type() == navmesh.PolyTypeOffMeshConnection {
				continue
			}
			ref := base | navmesh.PolyRef(i)
			if !filter.PassFilter(ref, tile, p) {
				continue
			}
			vidx := p.Verts[0] * 3
			v := tile.Verts[vidx : vidx+3]
			bmin.Assign(v)
			bmax.Assign(v)
			for j := uint8(1); j < p.VertCount; j++ {
				vidx = p.Verts[j] * 3
				v = tile.Verts[vidx : vidx+3]
				d3.Vec3Min(bmin, v)
				d3.Vec3Max(bmax, v)
			}
			if navmesh.OverlapBounds(qmin, qmax, bmin, bmax) {
				polyRefs[n] = ref
				polys[n] = p
				n++
				if n == batchSize {
					query.process(tile, polys[:], polyRefs[:], batchSize)
					n = 0
				}
			}
		}
	}

	if n > 0 {
		query.process(tile, polys[:], polyRefs[:], n)
	}
}

// FindPath searches the polygon graph for a path from startRef to endRef.
// path receives the ordered polygon sequence; the returned count is how
// many were written.
//
// When the goal is unreachable the result is the path to the polygon
// nearest the goal, with PartialResult set. When path is too small the
// sequence is truncated from the start toward the goal and BufferTooSmall
// is set. Start and end positions feed the traversal cost, so their
// y-values matter.
func (q *NavMeshQuery) FindPath(startRef, endRef navmesh.PolyRef, startPos, endPos d3.Vec3, filter *QueryFilter, path []navmesh.PolyRef) (int, navmesh.Status) {
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || len(endPos) < 3 || filter == nil || len(path) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	if startRef == endRef {
		path[0] = startRef
		return 1, navmesh.Success
	}

	q.nodePool.Clear()
	q.openList.clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos.Assign(startPos)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = startPos.Dist(endPos) * HScale
	startNode.Flags = nodeOpen
	q.openList.push(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total

	outOfNodes := false

	for !q.openList.empty() {
		bestNode := q.openList.pop()
		bestNode.Flags &^= nodeOpen
		bestNode.Flags |= nodeClosed

		if bestNode.ID == endRef {
			lastBestNode = bestNode
			break
		}

		// Input was validated, internal refs resolve without checks.
		bestRef := bestNode.ID
		bestTile, bestPoly := q.nav.TileAndPolyByRefUnsafe(bestRef)

		var (
			parentRef  navmesh.PolyRef
			parentTile *navmesh.MeshTile
			parentPoly *navmesh.Poly
		)
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).ID
		}
		if parentRef != 0 {
			parentTile, parentPoly = q.nav.TileAndPolyByRefUnsafe(parentRef)
		}

		for i := bestPoly.FirstLink; i != navmesh.NullLink; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref

			// Skip invalid ids, and do not expand back the way we came.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.TileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// A tile-boundary crossing contributes extra node state, so a
			// polygon entered from different sides gets distinct nodes.
			var crossSide uint8
			if bestTile.Links[i].Side != 0xff {
				crossSide = bestTile.Links[i].Side >> 1
			}

			neighbourNode := q.nodePool.Node(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// First visit: the node enters at the portal edge midpoint.
			if neighbourNode.Flags == 0 {
				q.edgeMidPoint(bestRef, bestPoly, bestTile,
					neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos)
			}

			var cost, heuristic float32
			if neighbourRef == endRef {
				curCost := filter.Cost(bestNode.Pos, neighbourNode.Pos,
					parentRef, parentTile, parentPoly,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly)
				endCost := filter.Cost(neighbourNode.Pos, endPos,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly,
					0, nil, nil)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				curCost := filter.Cost(bestNode.Pos, neighbourNode.Pos,
					parentRef, parentTile, parentPoly,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly)
				cost = bestNode.Cost + curCost
				heuristic = neighbourNode.Pos.Dist(endPos) * HScale
			}
			total := cost + heuristic

			// Already enqueued or expanded with a better or equal result.
			if (neighbourNode.Flags&nodeOpen) != 0 && total >= neighbourNode.Total {
				continue
			}
			if (neighbourNode.Flags&nodeClosed) != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.ID = neighbourRef
			neighbourNode.Flags &^= nodeClosed
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if (neighbourNode.Flags & nodeOpen) != 0 {
				q.openList.modify(neighbourNode)
			} else {
				neighbourNode.Flags |= nodeOpen
				q.openList.push(neighbourNode)
			}

			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	pathCount, status := q.pathToNode(lastBestNode, path)
	if lastBestNode.ID != endRef {
		status |= navmesh.PartialResult
	}
	if outOfNodes {
		status |= navmesh.OutOfNodes
	}
	return pathCount, status
}

// pathToNode writes the ref sequence from the search start to endNode by
// walking parent links, truncating from the start when path is too small.
func (q *NavMeshQuery) pathToNode(endNode *Node, path []navmesh.PolyRef) (int, navmesh.Status) {
	var length int
	for curNode := endNode; curNode != nil; curNode = q.nodePool.NodeAtIdx(curNode.PIdx) {
		length++
	}

	// Skip the nodes nearest the goal that will not fit.
	curNode := endNode
	writeCount := length
	for ; writeCount > len(path); writeCount-- {
		assert.True(curNode != nil, "path chain shorter than its measured length")
		curNode = q.nodePool.NodeAtIdx(curNode.PIdx)
	}

	for i := writeCount - 1; i >= 0; i-- {
		path[i] = curNode.ID
		curNode = q.nodePool.NodeAtIdx(curNode.PIdx)
	}

	if length > len(path) {
		return len(path), navmesh.Success | navmesh.BufferTooSmall
	}
	return length, navmesh.Success
}

// portalPoints returns the left/right endpoints of the portal between two
// polygons, plus their types.
func (q *NavMeshQuery) portalPoints(from, to navmesh.PolyRef, left, right d3.Vec3) (fromType, toType navmesh.PolyType, st navmesh.Status) {
	fromTile, fromPoly, status := q.nav.TileAndPolyByRef(from)
	if status.Failed() {
		return 0, 0, navmesh.Failure | navmesh.InvalidParam
	}
	fromType = fromPoly.Type()

	toTile, toPoly, status := q.nav.TileAndPolyByRef(to)
	if status.Failed() {
		return 0, 0, navmesh.Failure | navmesh.InvalidParam
	}
	toType = toPoly.Type()

	st = q.portalPointsForPolys(from, fromPoly, fromTile, to, toPoly, toTile, left, right)
	return fromType, toType, st
}

// portalPointsForPolys is portalPoints with the polygons already resolved.
func (q *NavMeshQuery) portalPointsForPolys(
	from navmesh.PolyRef, fromPoly *navmesh.Poly, fromTile *navmesh.MeshTile,
	to navmesh.PolyRef, toPoly *navmesh.Poly, toTile *navmesh.MeshTile,
	left, right d3.Vec3) navmesh.Status {

	// Find the link that points at 'to'.
	var link *navmesh.Link
	for i := fromPoly.FirstLink; i != navmesh.NullLink; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			link = &fromTile.Links[i]
			break
		}
	}
	if link == nil {
		return navmesh.Failure | navmesh.InvalidParam
	}

	// Off-mesh connections degenerate to a single vertex.
	if fromPoly.Type() == navmesh.PolyTypeOffMeshConnection {
		vidx := fromPoly.Verts[link.Edge] * 3
		copy(left, fromTile.Verts[vidx:vidx+3])
		copy(right, fromTile.Verts[vidx:vidx+3])
		return navmesh.Success
	}
	if toPoly.Type() == navmesh.PolyTypeOffMeshConnection {
		for i := toPoly.FirstLink; i != navmesh.NullLink; i = toTile.Links[i].Next {
			if toTile.Links[i].Ref == from {
				vidx := toPoly.Verts[toTile.Links[i].Edge] * 3
				copy(left, toTile.Verts[vidx:vidx+3])
				copy(right, toTile.Verts[vidx:vidx+3])
				return navmesh.Success
			}
		}
		return navmesh.Failure | navmesh.InvalidParam
	}

	v0 := fromPoly.Verts[link.Edge] * 3
	v1 := fromPoly.Verts[(link.Edge+1)%fromPoly.VertCount] * 3
	copy(left, fromTile.Verts[v0:v0+3])
	copy(right, fromTile.Verts[v1:v1+3])

	// A link crossing a tile boundary may cover only a sub-range of the
	// shared edge.
	if link.Side != 0xff && (link.BMin != 0 || link.BMax != 255) {
		const s = float32(1.0 / 255.0)
		tmin := float32(link.BMin) * s
		tmax := float32(link.BMax) * s
		d3.Vec3Lerp(left, fromTile.Verts[v0:v0+3], fromTile.Verts[v1:v1+3], tmin)
		d3.Vec3Lerp(right, fromTile.Verts[v0:v0+3], fromTile.Verts[v1:v1+3], tmax)
	}

	return navmesh.Success
}

// edgeMidPoint writes the midpoint of the portal between two polygons.
func (q *NavMeshQuery) edgeMidPoint(
	from navmesh.PolyRef, fromPoly *navmesh.Poly, fromTile *navmesh.MeshTile,
	to navmesh.PolyRef, toPoly *navmesh.Poly, toTile *navmesh.MeshTile,
	mid d3.Vec3) navmesh.Status {

	left, right := d3.NewVec3(), d3.NewVec3()
	if q.portalPointsForPolys(from, fromPoly, fromTile, to, toPoly, toTile, left, right).Failed() {
		return navmesh.Failure | navmesh.InvalidParam
	}
	mid[0] = (left[0] + right[0]) * 0.5
	mid[1] = (left[1] + right[1]) * 0.5
	mid[2] = (left[2] + right[2]) * 0.5
	return navmesh.Success
}
