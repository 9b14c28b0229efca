package navquery

import (
	"math"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// MoveAlongSurface moves from startPos toward endPos constrained to the
// navmesh surface: a breadth-first flood over the polygons around the
// motion segment, never leaving walkable ground. The returned position is
// endPos when it is reachable inside the flooded area, else the nearest
// point on the walls that stopped the motion. visited receives the chain
// of polygons traversed, start first.
//
// The result is not height-corrected; follow up with PolyHeight. Uses the
// small node pool, so local state is cheap but the flood is capped to a
// few dozen polygons.
func (q *NavMeshQuery) MoveAlongSurface(startRef navmesh.PolyRef, startPos, endPos d3.Vec3, filter *QueryFilter, visited []navmesh.PolyRef) (resultPos d3.Vec3, nvisited int, st navmesh.Status) {
	if !q.nav.IsValidPolyRef(startRef) || len(startPos) < 3 || len(endPos) < 3 || filter == nil {
		return nil, 0, navmesh.Failure | navmesh.InvalidParam
	}

	st = navmesh.Success

	const maxStack = 48
	stack := make([]*Node, 0, maxStack)

	q.tinyNodePool.Clear()
	startNode := q.tinyNodePool.Node(startRef, 0)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Flags = nodeClosed
	stack = append(stack, startNode)

	bestPos := d3.NewVec3From(startPos)
	bestDist := float32(math.MaxFloat32)
	var bestNode *Node

	// The whole motion must stay inside the disk spanned by the segment.
	searchPos := startPos.Lerp(endPos, 0.5)
	searchRadSqr := math32.Sqr(startPos.Dist(endPos)/2.0 + 0.001)

	var verts [navmesh.VertsPerPolygon * 3]float32

	for len(stack) > 0 {
		// Breadth first: pop front.
		curNode := stack[0]
		stack = stack[1:]

		curRef := curNode.ID
		curTile, curPoly := q.nav.TileAndPolyByRefUnsafe(curRef)

		nverts := int(curPoly.VertCount)
		for i := 0; i < nverts; i++ {
			copy(verts[i*3:i*3+3], curTile.Verts[curPoly.Verts[i]*3:curPoly.Verts[i]*3+3])
		}

		if navmesh.PointInPolygon(endPos, verts[:], nverts) {
			bestNode = curNode
			bestPos.Assign(endPos)
			break
		}

		// Find movement delta along the edges.
		for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
			// Collect this edge's traversable neighbours.
			const maxNeis = 8
			var neis [maxNeis]navmesh.PolyRef
			var nneis int

			if (curPoly.Neis[j] & navmesh.ExtLink) != 0 {
				// Tile border: the links carry the neighbours.
				for k := curPoly.FirstLink; k != navmesh.NullLink; k = curTile.Links[k].Next {
					link := &curTile.Links[k]
					if int(link.Edge) != j {
						continue
					}
					if link.Ref == 0 {
						continue
					}
					neiTile, neiPoly := q.nav.TileAndPolyByRefUnsafe(link.Ref)
					if filter.PassFilter(link.Ref, neiTile, neiPoly) && nneis < maxNeis {
						neis[nneis] = link.Ref
						nneis++
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := uint32(curPoly.Neis[j] - 1)
				ref := q.nav.PolyRefBase(curTile) | navmesh.PolyRef(idx)
				if filter.PassFilter(ref, curTile, &curTile.Polys[idx]) {
					neis[nneis] = ref
					nneis++
				}
			}

			vj := d3.Vec3(verts[j*3 : j*3+3])
			vi := d3.Vec3(verts[i*3 : i*3+3])

			if nneis == 0 {
				// Wall edge: candidate for the stop position.
				distSqr, tseg := navmesh.DistancePtSegSqr2D(endPos, vj, vi)
				if distSqr < bestDist {
					d3.Vec3Lerp(bestPos, vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
				continue
			}

			for k := 0; k < nneis; k++ {
				neighbourNode := q.tinyNodePool.Node(neis[k], 0)
				if neighbourNode == nil {
					continue
				}
				if (neighbourNode.Flags & nodeClosed) != 0 {
					continue
				}

				// Skip edges outside the search disk.
				if distSqr, _ := navmesh.DistancePtSegSqr2D(searchPos, vj, vi); distSqr > searchRadSqr {
					continue
				}

				if len(stack) < maxStack {
					neighbourNode.PIdx = q.tinyNodePool.NodeIdx(curNode)
					neighbourNode.Flags |= nodeClosed
					stack = append(stack, neighbourNode)
				}
			}
		}
	}

	if bestNode != nil {
		// Reverse the parent chain to emit the traversal start-first.
		var prev *Node
		node := bestNode
		for node != nil {
			next := q.tinyNodePool.NodeAtIdx(node.PIdx)
			node.PIdx = q.tinyNodePool.NodeIdx(prev)
			prev = node
			node = next
		}

		for node = prev; node != nil; node = q.tinyNodePool.NodeAtIdx(node.PIdx) {
			if nvisited >= len(visited) {
				st |= navmesh.BufferTooSmall
				break
			}
			visited[nvisited] = node.ID
			nvisited++
		}
	}

	return bestPos, nvisited, st
}

// FindPolysAroundCircle collects, by Dijkstra expansion from startRef,
// every polygon whose connecting portal lies inside the circle at
// centerPos of the given radius. Results are parent-chained: resultParent
// and resultCost, when non-nil, receive per-polygon the ref it was reached
// from and the accumulated portal-midpoint cost, so the output doubles as
// a search graph.
func (q *NavMeshQuery) FindPolysAroundCircle(startRef navmesh.PolyRef, centerPos d3.Vec3, radius float32, filter *QueryFilter,
	resultRef, resultParent []navmesh.PolyRef, resultCost []float32) (int, navmesh.Status) {

	if !q.nav.IsValidPolyRef(startRef) || len(centerPos) < 3 || radius < 0 || filter == nil || len(resultRef) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	q.nodePool.Clear()
	q.openList.clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos.Assign(centerPos)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Flags = nodeOpen
	q.openList.push(startNode)

	st := navmesh.Success
	radiusSqr := math32.Sqr(radius)
	var n int

	for !q.openList.empty() {
		bestNode := q.openList.pop()
		bestNode.Flags &^= nodeOpen
		bestNode.Flags |= nodeClosed

		bestRef := bestNode.ID
		bestTile, bestPoly := q.nav.TileAndPolyByRefUnsafe(bestRef)

		var parentRef navmesh.PolyRef
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).ID
		}

		if n < len(resultRef) {
			resultRef[n] = bestRef
			if resultParent != nil {
				resultParent[n] = parentRef
			}
			if resultCost != nil {
				resultCost[n] = bestNode.Total
			}
			n++
		} else {
			st |= navmesh.BufferTooSmall
		}

		q.expandWithinDisk(bestNode, bestRef, bestTile, bestPoly, parentRef, centerPos, radiusSqr, filter)
	}

	return n, st
}

// FindPolysAroundShape is FindPolysAroundCircle for a convex polygon
// footprint: every polygon whose connecting portal crosses or lies inside
// the shape described by verts is collected.
func (q *NavMeshQuery) FindPolysAroundShape(startRef navmesh.PolyRef, verts []float32, filter *QueryFilter,
	resultRef, resultParent []navmesh.PolyRef, resultCost []float32) (int, navmesh.Status) {

	nverts := len(verts) / 3
	if !q.nav.IsValidPolyRef(startRef) || nverts < 3 || filter == nil || len(resultRef) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	q.nodePool.Clear()
	q.openList.clear()

	centerPos := d3.NewVec3()
	for i := 0; i < nverts; i++ {
		d3.Vec3Add(centerPos, centerPos, d3.Vec3(verts[i*3:i*3+3]))
	}
	centerPos = centerPos.Scale(1.0 / float32(nverts))

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos.Assign(centerPos)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Flags = nodeOpen
	q.openList.push(startNode)

	st := navmesh.Success
	var n int

	for !q.openList.empty() {
		bestNode := q.openList.pop()
		bestNode.Flags &^= nodeOpen
		bestNode.Flags |= nodeClosed

		bestRef := bestNode.ID
		bestTile, bestPoly := q.nav.TileAndPolyByRefUnsafe(bestRef)

		var parentRef navmesh.PolyRef
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).ID
		}

		if n < len(resultRef) {
			resultRef[n] = bestRef
			if resultParent != nil {
				resultParent[n] = parentRef
			}
			if resultCost != nil {
				resultCost[n] = bestNode.Total
			}
			n++
		} else {
			st |= navmesh.BufferTooSmall
		}

		for i := bestPoly.FirstLink; i != navmesh.NullLink; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.TileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			va := d3.NewVec3()
			vb := d3.NewVec3()
			if q.portalPointsForPolys(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, va, vb).Failed() {
				continue
			}

			// The portal must touch the shape.
			ok, tmin, tmax, _, _ := navmesh.IntersectSegmentPoly2D(va, vb, verts, nverts)
			if !ok {
				continue
			}
			if tmin > 1.0 || tmax < 0.0 {
				continue
			}

			q.relaxDijkstraNode(bestNode, neighbourRef, va, vb)
		}
	}

	return n, st
}

// expandWithinDisk relaxes every neighbour of bestNode whose connecting
// portal lies inside the search disk.
func (q *NavMeshQuery) expandWithinDisk(bestNode *Node, bestRef navmesh.PolyRef, bestTile *navmesh.MeshTile, bestPoly *navmesh.Poly,
	parentRef navmesh.PolyRef, centerPos d3.Vec3, radiusSqr float32, filter *QueryFilter) {

	for i := bestPoly.FirstLink; i != navmesh.NullLink; i = bestTile.Links[i].Next {
		link := &bestTile.Links[i]
		neighbourRef := link.Ref
		if neighbourRef == 0 || neighbourRef == parentRef {
			continue
		}

		neighbourTile, neighbourPoly := q.nav.TileAndPolyByRefUnsafe(neighbourRef)
		if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
			continue
		}

		va := d3.NewVec3()
		vb := d3.NewVec3()
		if q.portalPointsForPolys(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, va, vb).Failed() {
			continue
		}

		if distSqr, _ := navmesh.DistancePtSegSqr2D(centerPos, va, vb); distSqr > radiusSqr {
			continue
		}

		q.relaxDijkstraNode(bestNode, neighbourRef, va, vb)
	}
}

// relaxDijkstraNode updates the neighbour node reached through portal
// (va, vb) if the path through bestNode improves it.
func (q *NavMeshQuery) relaxDijkstraNode(bestNode *Node, neighbourRef navmesh.PolyRef, va, vb d3.Vec3) {
	neighbourNode := q.nodePool.Node(neighbourRef, 0)
	if neighbourNode == nil {
		return
	}
	if (neighbourNode.Flags & nodeClosed) != 0 {
		return
	}

	// A node first entered sits at the portal midpoint.
	if neighbourNode.Flags == 0 {
		d3.Vec3Lerp(neighbourNode.Pos, va, vb, 0.5)
	}

	total := bestNode.Total + bestNode.Pos.Dist(neighbourNode.Pos)

	if (neighbourNode.Flags&nodeOpen) != 0 && total >= neighbourNode.Total {
		return
	}

	neighbourNode.ID = neighbourRef
	neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
	neighbourNode.Total = total

	if (neighbourNode.Flags & nodeOpen) != 0 {
		q.openList.modify(neighbourNode)
	} else {
		neighbourNode.Flags = nodeOpen
		q.openList.push(neighbourNode)
	}
}

// FindLocalNeighbourhood collects the polygons around centerPos whose 2D
// footprints do not overlap each other, flooding outward from startRef no
// further than radius. The non-overlap constraint makes the result usable
// as a local 2D collision neighbourhood. Uses the small node pool, so the
// flood is bounded and existing Dijkstra/A* state is untouched.
func (q *NavMeshQuery) FindLocalNeighbourhood(startRef navmesh.PolyRef, centerPos d3.Vec3, radius float32, filter *QueryFilter,
	resultRef, resultParent []navmesh.PolyRef) (int, navmesh.Status) {

	if !q.nav.IsValidPolyRef(startRef) || len(centerPos) < 3 || radius < 0 || filter == nil || len(resultRef) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	const maxStack = 48
	stack := make([]*Node, 0, maxStack)

	q.tinyNodePool.Clear()
	startNode := q.tinyNodePool.Node(startRef, 0)
	startNode.PIdx = 0
	startNode.ID = startRef
	startNode.Flags = nodeClosed
	stack = append(stack, startNode)

	radiusSqr := math32.Sqr(radius)

	var (
		pa [navmesh.VertsPerPolygon * 3]float32
		pb [navmesh.VertsPerPolygon * 3]float32
	)

	st := navmesh.Success
	var n int
	resultRef[0] = startNode.ID
	if resultParent != nil {
		resultParent[0] = 0
	}
	n = 1

	for len(stack) > 0 {
		curNode := stack[0]
		stack = stack[1:]

		curRef := curNode.ID
		curTile, curPoly := q.nav.TileAndPolyByRefUnsafe(curRef)

		for i := curPoly.FirstLink; i != navmesh.NullLink; i = curTile.Links[i].Next {
			link := &curTile.Links[i]
			neighbourRef := link.Ref
			if neighbourRef == 0 {
				continue
			}

			neighbourNode := q.tinyNodePool.Node(neighbourRef, 0)
			if neighbourNode == nil {
				continue
			}
			if (neighbourNode.Flags & nodeClosed) != 0 {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.TileAndPolyByRefUnsafe(neighbourRef)

			// Skip off-mesh connections: they have no footprint.
			if neighbourPoly.Type() == navmesh.PolyTypeOffMeshConnection {
				continue
			}
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			va := d3.NewVec3()
			vb := d3.NewVec3()
			if q.portalPointsForPolys(curRef, curPoly, curTile, neighbourRef, neighbourPoly, neighbourTile, va, vb).Failed() {
				continue
			}
			if distSqr, _ := navmesh.DistancePtSegSqr2D(centerPos, va, vb); distSqr > radiusSqr {
				continue
			}

			// Mark visited.
			neighbourNode.Flags |= nodeClosed
			neighbourNode.PIdx = q.tinyNodePool.NodeIdx(curNode)

			// The candidate must not overlap any polygon already in the
			// result set, except the ones it is directly connected to.
			npa := int(neighbourPoly.VertCount)
			for k := 0; k < npa; k++ {
				copy(pa[k*3:k*3+3], neighbourTile.Verts[neighbourPoly.Verts[k]*3:neighbourPoly.Verts[k]*3+3])
			}

			overlap := false
			for j := 0; j < n; j++ {
				pastRef := resultRef[j]

				connected := false
				for k := neighbourPoly.FirstLink; k != navmesh.NullLink; k = neighbourTile.Links[k].Next {
					if neighbourTile.Links[k].Ref == pastRef {
						connected = true
						break
					}
				}
				if connected {
					continue
				}

				pastTile, pastPoly := q.nav.TileAndPolyByRefUnsafe(pastRef)
				npb := int(pastPoly.VertCount)
				for k := 0; k < npb; k++ {
					copy(pb[k*3:k*3+3], pastTile.Verts[pastPoly.Verts[k]*3:pastPoly.Verts[k]*3+3])
				}

				if navmesh.OverlapPolyPoly2D(pa[:], npa, pb[:], npb) {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}

			if n < len(resultRef) {
				resultRef[n] = neighbourRef
				if resultParent != nil {
					resultParent[n] = curRef
				}
				n++
			} else {
				st |= navmesh.BufferTooSmall
			}

			if len(stack) < maxStack {
				stack = append(stack, neighbourNode)
			}
		}
	}

	return n, st
}

// FindDistanceToWall finds the distance from centerPos to the nearest wall
// of the navmesh, searching no further than maxRadius: a Dijkstra
// expansion from centerRef that tests every solid edge of every expanded
// polygon and shrinks the search radius as closer walls are found. An edge
// whose neighbour is filtered out counts as a wall.
func (q *NavMeshQuery) FindDistanceToWall(centerRef navmesh.PolyRef, centerPos d3.Vec3, maxRadius float32, filter *QueryFilter) (hitDist float32, hitPos, hitNormal d3.Vec3, st navmesh.Status) {
	if !q.nav.IsValidPolyRef(centerRef) || len(centerPos) < 3 || maxRadius < 0 || filter == nil {
		return 0, nil, nil, navmesh.Failure | navmesh.InvalidParam
	}

	q.nodePool.Clear()
	q.openList.clear()

	startNode := q.nodePool.Node(centerRef, 0)
	startNode.Pos.Assign(centerPos)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Flags = nodeOpen
	q.openList.push(startNode)

	radiusSqr := math32.Sqr(maxRadius)
	hitPos = d3.NewVec3()
	st = navmesh.Success

	for !q.openList.empty() {
		bestNode := q.openList.pop()
		bestNode.Flags &^= nodeOpen
		bestNode.Flags |= nodeClosed

		bestRef := bestNode.ID
		bestTile, bestPoly := q.nav.TileAndPolyByRefUnsafe(bestRef)

		var parentRef navmesh.PolyRef
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).ID
		}

		// Hit test every solid edge of the expanded polygon.
		nv := int(bestPoly.VertCount)
		for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
			if (bestPoly.Neis[j] & navmesh.ExtLink) != 0 {
				// Tile border: solid unless some link on this edge leads to
				// a traversable polygon.
				solid := true
				for k := bestPoly.FirstLink; k != navmesh.NullLink; k = bestTile.Links[k].Next {
					link := &bestTile.Links[k]
					if int(link.Edge) != j || link.Ref == 0 {
						continue
					}
					neiTile, neiPoly := q.nav.TileAndPolyByRefUnsafe(link.Ref)
					if filter.PassFilter(link.Ref, neiTile, neiPoly) {
						solid = false
						break
					}
				}
				if !solid {
					continue
				}
			} else if bestPoly.Neis[j] != 0 {
				// Internal edge: solid only when the neighbour is filtered
				// out.
				idx := uint32(bestPoly.Neis[j] - 1)
				ref := q.nav.PolyRefBase(bestTile) | navmesh.PolyRef(idx)
				if filter.PassFilter(ref, bestTile, &bestTile.Polys[idx]) {
					continue
				}
			}

			vj := d3.Vec3(bestTile.Verts[bestPoly.Verts[j]*3 : bestPoly.Verts[j]*3+3])
			vi := d3.Vec3(bestTile.Verts[bestPoly.Verts[i]*3 : bestPoly.Verts[i]*3+3])
			distSqr, tseg := navmesh.DistancePtSegSqr2D(centerPos, vj, vi)
			if distSqr > radiusSqr {
				continue
			}

			// Hit wall, shrink the search.
			radiusSqr = distSqr
			d3.Vec3Lerp(hitPos, vj, vi, tseg)
		}

		for i := bestPoly.FirstLink; i != navmesh.NullLink; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.TileAndPolyByRefUnsafe(neighbourRef)
			if neighbourPoly.Type() == navmesh.PolyTypeOffMeshConnection {
				continue
			}
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			va := d3.NewVec3()
			vb := d3.NewVec3()
			if q.portalPointsForPolys(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, va, vb).Failed() {
				continue
			}
			if distSqr, _ := navmesh.DistancePtSegSqr2D(centerPos, va, vb); distSqr > radiusSqr {
				continue
			}

			neighbourNode := q.nodePool.Node(neighbourRef, 0)
			if neighbourNode == nil {
				st |= navmesh.OutOfNodes
				continue
			}
			if (neighbourNode.Flags & nodeClosed) != 0 {
				continue
			}

			if neighbourNode.Flags == 0 {
				q.edgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos)
			}

			total := bestNode.Total + bestNode.Pos.Dist(neighbourNode.Pos)
			if (neighbourNode.Flags&nodeOpen) != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.ID = neighbourRef
			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.Total = total

			if (neighbourNode.Flags & nodeOpen) != 0 {
				q.openList.modify(neighbourNode)
			} else {
				neighbourNode.Flags |= nodeOpen
				q.openList.push(neighbourNode)
			}
		}
	}

	hitNormal = centerPos.Sub(hitPos)
	hitNormal.Normalize()

	return math32.Sqrt(radiusSqr), hitPos, hitNormal, st
}

// segInterval is one link's coverage of an external edge, in the link's
// 0..255 normalized units.
type segInterval struct {
	ref        navmesh.PolyRef
	tmin, tmax int16
}

// insertInterval keeps ints sorted by tmin.
func insertInterval(ints []segInterval, nints int, tmin, tmax int16, ref navmesh.PolyRef) int {
	if nints+1 > cap(ints) {
		return nints
	}
	idx := 0
	for idx < nints && tmax > ints[idx].tmin {
		idx++
	}
	copy(ints[idx+1:nints+1], ints[idx:nints])
	ints[idx] = segInterval{ref: ref, tmin: tmin, tmax: tmax}
	return nints + 1
}

// PolyWallSegments collects the wall segments of polygon ref, one
// (start, end) vertex pair per segment in segmentVerts. When segmentRefs
// is non-nil, portal edges are returned too, carved into the sub-segments
// covered by each link, with the neighbour's ref (walls carry ref 0);
// when nil, only walls are returned.
func (q *NavMeshQuery) PolyWallSegments(ref navmesh.PolyRef, filter *QueryFilter, segmentVerts [][6]float32, segmentRefs []navmesh.PolyRef) (int, navmesh.Status) {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}
	if filter == nil || len(segmentVerts) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}

	const maxInterval = 16
	ints := make([]segInterval, 0, maxInterval)
	storePortals := segmentRefs != nil

	st := navmesh.Success
	var n int

	nv := int(poly.VertCount)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		vj := tile.Verts[poly.Verts[j]*3 : poly.Verts[j]*3+3]
		vi := tile.Verts[poly.Verts[i]*3 : poly.Verts[i]*3+3]

		if (poly.Neis[j] & navmesh.ExtLink) != 0 {
			// External edge: gather the link coverage intervals.
			nints := 0
			ints = ints[:maxInterval]
			for k := poly.FirstLink; k != navmesh.NullLink; k = tile.Links[k].Next {
				link := &tile.Links[k]
				if int(link.Edge) != j || link.Ref == 0 {
					continue
				}
				neiTile, neiPoly := q.nav.TileAndPolyByRefUnsafe(link.Ref)
				if filter.PassFilter(link.Ref, neiTile, neiPoly) {
					nints = insertInterval(ints, nints, int16(link.BMin), int16(link.BMax), link.Ref)
				}
			}

			// Sentinels bracket the edge so the gaps between intervals
			// fall out as wall segments.
			nints = insertInterval(ints, nints, -1, 0, 0)
			nints = insertInterval(ints, nints, 255, 256, 0)

			for k := 1; k < nints; k++ {
				// Portal segment.
				if storePortals && ints[k].ref != 0 {
					tmin := float32(ints[k].tmin) / 255.0
					tmax := float32(ints[k].tmax) / 255.0
					if n < len(segmentVerts) {
						seg := &segmentVerts[n]
						d3.Vec3Lerp(d3.Vec3(seg[:3]), vj, vi, tmin)
						d3.Vec3Lerp(d3.Vec3(seg[3:]), vj, vi, tmax)
						segmentRefs[n] = ints[k].ref
						n++
					} else {
						st |= navmesh.BufferTooSmall
					}
				}

				// Wall segment in the gap before this interval.
				imin := ints[k-1].tmax
				imax := ints[k].tmin
				if imin == imax {
					continue
				}
				tmin := float32(imin) / 255.0
				tmax := float32(imax) / 255.0
				if n < len(segmentVerts) {
					seg := &segmentVerts[n]
					d3.Vec3Lerp(d3.Vec3(seg[:3]), vj, vi, tmin)
					d3.Vec3Lerp(d3.Vec3(seg[3:]), vj, vi, tmax)
					if storePortals {
						segmentRefs[n] = 0
					}
					n++
				} else {
					st |= navmesh.BufferTooSmall
				}
			}
			continue
		}

		// Internal edge.
		var neiRef navmesh.PolyRef
		if poly.Neis[j] != 0 {
			idx := uint32(poly.Neis[j] - 1)
			neiRef = q.nav.PolyRefBase(tile) | navmesh.PolyRef(idx)
			if !filter.PassFilter(neiRef, tile, &tile.Polys[idx]) {
				neiRef = 0
			}
		}
		if neiRef != 0 && !storePortals {
			continue
		}

		if n < len(segmentVerts) {
			seg := &segmentVerts[n]
			copy(seg[:3], vj)
			copy(seg[3:], vi)
			if storePortals {
				segmentRefs[n] = neiRef
			}
			n++
		} else {
			st |= navmesh.BufferTooSmall
		}
	}

	return n, st
}
