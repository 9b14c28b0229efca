package navmesh

// MeshTile holds one tile's data: the fixed header plus the
// vertex/polygon/link/detail/BV/off-mesh arrays decoded from a
// caller-supplied byte buffer (see wire.go). The arrays are copies: changes
// made to them are not written back to the buffer in Data. It also carries the
// tile-store bookkeeping fields (Salt, LinksFreeList, Next) that are not
// part of the wire format.
type MeshTile struct {
	// index is this tile's slot in NavMesh.Tiles, fixed once at Init and
	// never reassigned.
	index uint32

	Salt          uint32
	LinksFreeList uint32
	Header        *MeshHeader
	Polys         []Poly
	Verts         []float32
	Links         []Link
	DetailMeshes  []PolyDetail
	DetailVerts   []float32
	DetailTris    []uint8
	BvTree        []BvNode
	OffMeshCons   []OffMeshConnection

	Data     []uint8
	DataSize int32
	Flags    TileFlags

	Next *MeshTile
}

// TileFlags are the bits recognized by NavMesh.AddTile.
type TileFlags int32

const (
	// TileFreeData tells the store to own (and later free) the tile's
	// data buffer when the tile is removed.
	TileFreeData TileFlags = 1 << 0
)

func (t *MeshTile) polyCount() int32 {
	if t.Header == nil {
		return 0
	}
	return t.Header.PolyCount
}
