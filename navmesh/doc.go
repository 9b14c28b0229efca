// Package navmesh implements a tiled polygon navigation mesh: a
// fixed-capacity store of tiles, each one decoded from a serialized data
// blob into its own arrays of convex polygons, their links, per-polygon
// height detail, a bounding-volume tree and off-mesh connections.
//
// Tiles are produced with CreateTileData (or EncodeTile for pre-assembled
// arrays), installed with (*NavMesh).AddTile and addressed by opaque
// PolyRef handles that detect stale references across tile removal via a
// per-slot salt. Pathfinding and spatial queries over the mesh live in the
// sibling navquery package.
package navmesh
