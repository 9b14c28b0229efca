// Package navquery provides pathfinding and spatial queries over a
// navmesh.NavMesh: A* polygon path search (one-shot and sliced), funnel
// straight-path extraction, walkability raycasts, constrained surface
// motion and the radius/shape/wall queries built on the same pooled
// search-node infrastructure.
//
// A NavMeshQuery owns all of its search state; concurrent queries require
// one query object per goroutine, over a mesh whose tiles are not being
// added or removed meanwhile.
package navquery
