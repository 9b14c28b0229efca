package navquery

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/navkit/navmesh"
)

// queryData is the persistent state of a sliced path query. The filter is
// kept by pointer: the caller owns it and must keep it alive (and
// unchanged) until the query is finalized.
type queryData struct {
	status           navmesh.Status
	lastBestNode     *Node
	lastBestNodeCost float32
	startRef, endRef navmesh.PolyRef
	startPos, endPos d3.Vec3
	filter           *QueryFilter
}

// InitSlicedFindPath starts an incremental path search identical in result
// to FindPath, but advanced by bounded UpdateSlicedFindPath calls so the
// caller controls how much work happens per frame. Starting a new sliced
// query abandons any previous one.
//
// The sliced query shares the query object's node pool and open list, so
// interleaving other searches on the same object invalidates it.
func (q *NavMeshQuery) InitSlicedFindPath(startRef, endRef navmesh.PolyRef, startPos, endPos d3.Vec3, filter *QueryFilter) navmesh.Status {
	q.query = queryData{
		status:   navmesh.Failure,
		startRef: startRef,
		endRef:   endRef,
		startPos: d3.NewVec3From(startPos),
		endPos:   d3.NewVec3From(endPos),
		filter:   filter,
	}

	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || len(endPos) < 3 || filter == nil {
		return navmesh.Failure | navmesh.InvalidParam
	}

	if startRef == endRef {
		q.query.status = navmesh.Success
		return navmesh.Success
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

	q.query.status = navmesh.InProgress
	q.query.lastBestNode = startNode
	q.query.lastBestNodeCost = startNode.Total

	return q.query.status
}

// UpdateSlicedFindPath runs up to maxIter node expansions of the sliced
// query and returns how many were performed. The returned status is
// InProgress until the search finishes (Success, possibly with
// PartialResult) or a referenced tile disappears (Failure).
func (q *NavMeshQuery) UpdateSlicedFindPath(maxIter int32) (doneIters int32, st navmesh.Status) {
	if !q.query.status.InProgress() {
		return 0, q.query.status
	}

	// The consumer may have removed tiles since the last slice.
	if !q.nav.IsValidPolyRef(q.query.startRef) || !q.nav.IsValidPolyRef(q.query.endRef) {
		q.query.status = navmesh.Failure
		return 0, navmesh.Failure
	}

	outOfNodes := q.query.status&navmesh.OutOfNodes != 0

	var iter int32
	for iter < maxIter && !q.openList.empty() {
		iter++

		bestNode := q.openList.pop()
		bestNode.Flags &^= nodeOpen
		bestNode.Flags |= nodeClosed

		if bestNode.ID == q.query.endRef {
			q.query.lastBestNode = bestNode
			details := q.query.status & navmesh.StatusDetailMask
			q.query.status = navmesh.Success | details
			return iter, q.query.status
		}

		// Refs found by the search may stop resolving if tiles were
		// removed mid-query; that aborts the whole search.
		bestRef := bestNode.ID
		bestTile, bestPoly, status := q.nav.TileAndPolyByRef(bestRef)
		if status.Failed() {
			q.query.status = navmesh.Failure
			return iter, navmesh.Failure
		}

		var (
			parentRef  navmesh.PolyRef
			parentTile *navmesh.MeshTile
			parentPoly *navmesh.Poly
		)
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).ID
		}
		if parentRef != 0 {
			parentTile, parentPoly, status = q.nav.TileAndPolyByRef(parentRef)
			if status.Failed() {
				q.query.status = navmesh.Failure
				return iter, navmesh.Failure
			}
		}

		for i := bestPoly.FirstLink; i != navmesh.NullLink; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			neighbourTile, neighbourPoly, status := q.nav.TileAndPolyByRef(neighbourRef)
			if status.Failed() {
				continue
			}
			if !q.query.filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			var crossSide uint8
			if bestTile.Links[i].Side != 0xff {
				crossSide = bestTile.Links[i].Side >> 1
			}

			neighbourNode := q.nodePool.Node(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			if neighbourNode.Flags == 0 {
				q.edgeMidPoint(bestRef, bestPoly, bestTile,
					neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos)
			}

			var cost, heuristic float32
			if neighbourRef == q.query.endRef {
				curCost := q.query.filter.Cost(bestNode.Pos, neighbourNode.Pos,
					parentRef, parentTile, parentPoly,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly)
				endCost := q.query.filter.Cost(neighbourNode.Pos, q.query.endPos,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly,
					0, nil, nil)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				curCost := q.query.filter.Cost(bestNode.Pos, neighbourNode.Pos,
					parentRef, parentTile, parentPoly,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly)
				cost = bestNode.Cost + curCost
				heuristic = neighbourNode.Pos.Dist(q.query.endPos) * HScale
			}
			total := cost + heuristic

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

			if heuristic < q.query.lastBestNodeCost {
				q.query.lastBestNodeCost = heuristic
				q.query.lastBestNode = neighbourNode
			}
		}
	}

	if outOfNodes {
		q.query.status |= navmesh.OutOfNodes
	}

	// Exhausted the open list without reaching the goal.
	if q.openList.empty() {
		details := q.query.status & navmesh.StatusDetailMask
		q.query.status = navmesh.Success | navmesh.PartialResult | details
	}

	return iter, q.query.status
}

// FinalizeSlicedFindPath writes the polygon sequence found by the sliced
// query into path and resets the sliced state.
func (q *NavMeshQuery) FinalizeSlicedFindPath(path []navmesh.PolyRef) (int, navmesh.Status) {
	if len(path) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}
	if q.query.status.Failed() {
		// The query was aborted; leave a clean slate.
		q.query = queryData{}
		return 0, navmesh.Failure
	}

	var n int
	if q.query.startRef == q.query.endRef {
		path[0] = q.query.startRef
		n = 1
	} else {
		count, status := q.pathToNode(q.query.lastBestNode, path)
		n = count
		if status&navmesh.BufferTooSmall != 0 {
			q.query.status |= navmesh.BufferTooSmall
		}
		if q.query.lastBestNode.ID != q.query.endRef {
			q.query.status |= navmesh.PartialResult
		}
	}

	details := q.query.status & navmesh.StatusDetailMask
	q.query = queryData{}

	return n, navmesh.Success | details
}

// FinalizeSlicedFindPathPartial is FinalizeSlicedFindPath for a replan:
// it truncates the result at the furthest polygon of existing that the
// search visited, so the caller can splice the fresh prefix onto the rest
// of its previous path.
func (q *NavMeshQuery) FinalizeSlicedFindPathPartial(existing, path []navmesh.PolyRef) (int, navmesh.Status) {
	if len(existing) == 0 || len(path) == 0 {
		return 0, navmesh.Failure | navmesh.InvalidParam
	}
	if q.query.status.Failed() {
		q.query = queryData{}
		return 0, navmesh.Failure
	}

	var n int
	if q.query.startRef == q.query.endRef {
		path[0] = q.query.startRef
		n = 1
	} else {
		var node *Node
		for i := len(existing) - 1; i >= 0; i-- {
			var found [1]*Node
			if q.nodePool.FindNodes(existing[i], found[:]) > 0 {
				node = found[0]
				break
			}
		}
		if node == nil {
			q.query.status |= navmesh.PartialResult
			node = q.query.lastBestNode
		}

		count, status := q.pathToNode(node, path)
		n = count
		if status&navmesh.BufferTooSmall != 0 {
			q.query.status |= navmesh.BufferTooSmall
		}
	}

	details := q.query.status & navmesh.StatusDetailMask
	q.query = queryData{}

	return n, navmesh.Success | details
}
