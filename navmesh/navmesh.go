package navmesh

import (
	"encoding/binary"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// NavMesh is a tiled polygon navigation mesh: a fixed-capacity table of
// tile slots, each addressable by grid location (x, y, layer) or by a
// PolyRef/TileRef handle. Removing a tile bumps its slot's salt, so
// handles into removed tiles fail to resolve instead of aliasing the
// slot's next occupant.
type NavMesh struct {
	Params     NavMeshParams
	Orig       d3.Vec3
	TileWidth  float32
	TileHeight float32

	MaxTiles    int32
	TileLUTSize int32
	TileLUTMask int32

	posLookup []*MeshTile
	nextFree  *MeshTile
	Tiles     []MeshTile

	saltBits uint32
	tileBits uint32
	polyBits uint32
}

// Init sets up the tile store for the given capacity. The PolyRef bit
// budget left over for the salt must be at least 10 bits: fewer makes
// stale handle detection unreliable once tiles are removed and re-added
// often, which this store assumes happens routinely during streaming.
func (m *NavMesh) Init(params *NavMeshParams) Status {
	m.Params = *params
	m.Orig = d3.NewVec3From(params.Orig[0:3])
	m.TileWidth = params.TileWidth
	m.TileHeight = params.TileHeight

	m.MaxTiles = int32(params.MaxTiles)
	m.TileLUTSize = int32(math32.NextPow2(uint32(params.MaxTiles / 4)))
	if m.TileLUTSize == 0 {
		m.TileLUTSize = 1
	}
	m.TileLUTMask = m.TileLUTSize - 1

	m.Tiles = make([]MeshTile, m.MaxTiles)
	m.posLookup = make([]*MeshTile, m.TileLUTSize)
	m.nextFree = nil
	for i := m.MaxTiles - 1; i >= 0; i-- {
		m.Tiles[i].index = uint32(i)
		m.Tiles[i].Salt = 1
		m.Tiles[i].Next = m.nextFree
		m.nextFree = &m.Tiles[i]
	}

	m.tileBits = math32.Ilog2(math32.NextPow2(uint32(params.MaxTiles)))
	if m.tileBits < 1 {
		m.tileBits = 1
	}
	m.polyBits = math32.Ilog2(math32.NextPow2(uint32(params.MaxPolys)))
	if m.polyBits < 1 {
		m.polyBits = 1
	}
	if 31 < 32-m.tileBits-m.polyBits {
		m.saltBits = 31
	} else {
		m.saltBits = 32 - m.tileBits - m.polyBits
	}
	if m.saltBits < 10 {
		return Failure | InvalidParam
	}

	return Success
}

// AddTile adds a tile, previously produced by EncodeTile or
// CreateTileData, to the store. With TileFreeData the store takes
// ownership of the buffer and RemoveTile will not hand it back.
// lastRef, when non-zero, asks the store to restore the tile at the tile
// index and with the salt it previously had, so PolyRefs handed out before
// the tile was removed remain valid; the caller must also supply a data
// buffer whose header.X/Y/Layer match what was originally stored there.
func (m *NavMesh) AddTile(data []byte, flags TileFlags, lastRef TileRef) (TileRef, Status) {
	hdr, status := decodeHeader(data)
	if status.Failed() {
		return 0, status
	}
	if hdr.Magic != navMeshMagic {
		return 0, Failure | WrongMagic
	}
	if hdr.Version != navMeshVersion {
		return 0, Failure | WrongVersion
	}
	if m.TileAt(hdr.X, hdr.Y, hdr.Layer) != nil {
		return 0, Failure
	}

	var tile *MeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.Next
			tile.Next = nil
		}
	} else {
		tileIndex := m.decodePolyIDTile(PolyRef(lastRef))
		if tileIndex >= uint32(m.MaxTiles) {
			return 0, Failure | OutOfMemory
		}
		target := &m.Tiles[tileIndex]
		var prev *MeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.Next
		}
		if tile != target {
			return 0, Failure | OutOfMemory
		}
		if prev == nil {
			m.nextFree = tile.Next
		} else {
			prev.Next = tile.Next
		}
		tile.Salt = m.decodePolyIDSalt(PolyRef(lastRef))
	}

	if tile == nil {
		return 0, Failure | OutOfMemory
	}

	if st := tile.unserialize(hdr, data[meshHeaderSize:]); st.Failed() {
		tile.Next = m.nextFree
		m.nextFree = tile
		return 0, st
	}

	h := computeTileHash(hdr.X, hdr.Y, m.TileLUTMask)
	tile.Next = m.posLookup[h]
	m.posLookup[h] = tile

	if len(tile.BvTree) == 0 {
		tile.BvTree = nil
	}

	tile.LinksFreeList = 0
	if hdr.MaxLinkCount > 0 {
		tile.Links[hdr.MaxLinkCount-1].Next = NullLink
		for i := int32(0); i < hdr.MaxLinkCount-1; i++ {
			tile.Links[i].Next = uint32(i + 1)
		}
	}

	tile.Header = hdr
	tile.Data = data
	tile.DataSize = int32(len(data))
	tile.Flags = flags

	m.connectIntLinks(tile)
	m.baseOffMeshLinks(tile)
	m.connectExtOffMeshLinks(tile, tile, -1)

	const maxNeis = 32
	neis := make([]*MeshTile, maxNeis)

	nneis := m.TilesAt(hdr.X, hdr.Y, neis, maxNeis)
	for j := int32(0); j < nneis; j++ {
		if neis[j] == tile {
			continue
		}
		m.connectExtLinks(tile, neis[j], -1)
		m.connectExtLinks(neis[j], tile, -1)
		m.connectExtOffMeshLinks(tile, neis[j], -1)
		m.connectExtOffMeshLinks(neis[j], tile, -1)
	}

	for side := int32(0); side < 8; side++ {
		nneis = m.neighbourTilesAt(hdr.X, hdr.Y, side, neis, maxNeis)
		for j := int32(0); j < nneis; j++ {
			m.connectExtLinks(tile, neis[j], side)
			m.connectExtLinks(neis[j], tile, int32(oppositeTile(uint8(side))))
			m.connectExtOffMeshLinks(tile, neis[j], side)
			m.connectExtOffMeshLinks(neis[j], tile, int32(oppositeTile(uint8(side))))
		}
	}

	return m.TileRef(tile), Success
}

// RemoveTile detaches a tile from the store and returns its raw data so
// the caller may, if desired, persist or re-add it later. Tiles added with
// TileFreeData belong to the store and yield nil data here.
func (m *NavMesh) RemoveTile(ref TileRef) ([]byte, Status) {
	if ref == 0 {
		return nil, Failure | InvalidParam
	}
	tileIndex := m.decodePolyIDTile(PolyRef(ref))
	tileSalt := m.decodePolyIDSalt(PolyRef(ref))
	if tileIndex >= uint32(m.MaxTiles) {
		return nil, Failure | InvalidParam
	}
	tile := &m.Tiles[tileIndex]
	if tile.Salt != tileSalt {
		return nil, Failure | InvalidParam
	}

	var data []byte
	if tile.Flags&TileFreeData == 0 {
		data = tile.Data
	}

	h := computeTileHash(tile.Header.X, tile.Header.Y, m.TileLUTMask)
	var prev, cur *MeshTile
	cur = m.posLookup[h]
	for cur != nil {
		if cur == tile {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				m.posLookup[h] = cur.Next
			}
			break
		}
		prev = cur
		cur = cur.Next
	}

	const maxNeis = 32
	neis := make([]*MeshTile, maxNeis)

	nneis := m.TilesAt(tile.Header.X, tile.Header.Y, neis, maxNeis)
	for j := int32(0); j < nneis; j++ {
		if neis[j] == tile {
			continue
		}
		m.unconnectLinks(neis[j], tile)
	}
	for side := int32(0); side < 8; side++ {
		nneis = m.neighbourTilesAt(tile.Header.X, tile.Header.Y, side, neis, maxNeis)
		for j := int32(0); j < nneis; j++ {
			m.unconnectLinks(neis[j], tile)
		}
	}

	tile.Header = nil
	tile.Flags = 0
	tile.LinksFreeList = 0
	tile.Polys = nil
	tile.Verts = nil
	tile.Links = nil
	tile.DetailMeshes = nil
	tile.DetailVerts = nil
	tile.DetailTris = nil
	tile.BvTree = nil
	tile.OffMeshCons = nil
	tile.Data = nil
	tile.DataSize = 0

	tile.Salt = (tile.Salt + 1) & ((1 << m.saltBits) - 1)
	if tile.Salt == 0 {
		tile.Salt++
	}

	tile.Next = m.nextFree
	m.nextFree = tile

	return data, Success
}

// TileAt returns the tile at the given grid location, or nil.
func (m *NavMesh) TileAt(x, y, layer int32) *MeshTile {
	h := computeTileHash(x, y, m.TileLUTMask)
	tile := m.posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
		tile = tile.Next
	}
	return nil
}

// TilesAt fills tiles with every tile (across all layers) at grid location
// (x, y), up to maxTiles, and returns the count found.
func (m *NavMesh) TilesAt(x, y int32, tiles []*MeshTile, maxTiles int32) int32 {
	var n int32
	h := computeTileHash(x, y, m.TileLUTMask)
	tile := m.posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			if n < maxTiles {
				tiles[n] = tile
				n++
			}
		}
		tile = tile.Next
	}
	return n
}

// neighbourTilesAt fills tiles with the tiles (across all layers) at the
// grid location adjacent to (x, y) on the given side (0..7), up to
// maxTiles, and returns the count found.
func (m *NavMesh) neighbourTilesAt(x, y, side int32, tiles []*MeshTile, maxTiles int32) int32 {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return m.TilesAt(nx, ny, tiles, maxTiles)
}

// TileRefAt returns the tile reference for the tile at the given grid
// location, or 0 if there is none.
func (m *NavMesh) TileRefAt(x, y, layer int32) TileRef {
	tile := m.TileAt(x, y, layer)
	if tile == nil {
		return 0
	}
	return m.TileRef(tile)
}

// TileByRef returns the tile addressed by ref, or nil if ref is stale or
// out of range.
func (m *NavMesh) TileByRef(ref TileRef) *MeshTile {
	if ref == 0 {
		return nil
	}
	tileIndex := m.decodePolyIDTile(PolyRef(ref))
	tileSalt := m.decodePolyIDSalt(PolyRef(ref))
	if tileIndex >= uint32(m.MaxTiles) {
		return nil
	}
	tile := &m.Tiles[tileIndex]
	if tile.Salt != tileSalt {
		return nil
	}
	return tile
}

// TileRef returns the tile reference for tile, using its stored index
// rather than pointer arithmetic.
func (m *NavMesh) TileRef(tile *MeshTile) TileRef {
	if tile == nil {
		return 0
	}
	return TileRef(m.encodePolyID(tile.Salt, tile.index, 0))
}

// IsValidPolyRef reports whether ref addresses a live polygon in this
// store.
func (m *NavMesh) IsValidPolyRef(ref PolyRef) bool {
	if ref == 0 {
		return false
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= uint32(m.MaxTiles) {
		return false
	}
	if m.Tiles[it].Salt != salt || m.Tiles[it].Header == nil {
		return false
	}
	if ip >= uint32(m.Tiles[it].Header.PolyCount) {
		return false
	}
	return true
}

// TileAndPolyByRef returns the tile and polygon addressed by ref, failing
// with InvalidParam if the reference is stale or out of range.
func (m *NavMesh) TileAndPolyByRef(ref PolyRef) (*MeshTile, *Poly, Status) {
	if ref == 0 {
		return nil, nil, Failure
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= uint32(m.MaxTiles) {
		return nil, nil, Failure | InvalidParam
	}
	if m.Tiles[it].Salt != salt || m.Tiles[it].Header == nil {
		return nil, nil, Failure | InvalidParam
	}
	if ip >= uint32(m.Tiles[it].Header.PolyCount) {
		return nil, nil, Failure | InvalidParam
	}
	return &m.Tiles[it], &m.Tiles[it].Polys[ip], Success
}

// TileAndPolyByRefUnsafe is TileAndPolyByRef without the validity checks;
// the caller must already know ref is valid.
func (m *NavMesh) TileAndPolyByRefUnsafe(ref PolyRef) (*MeshTile, *Poly) {
	_, it, ip := m.DecodePolyID(ref)
	return &m.Tiles[it], &m.Tiles[it].Polys[ip]
}

// CalcTileLoc returns the tile grid location containing pos.
func (m *NavMesh) CalcTileLoc(pos d3.Vec3) (tx, ty int32) {
	tx = int32(math32.Floor((pos[0] - m.Orig[0]) / m.TileWidth))
	ty = int32(math32.Floor((pos[2] - m.Orig[2]) / m.TileHeight))
	return tx, ty
}

func computeTileHash(x, y, mask int32) int32 {
	const (
		h1 int64 = 0x8da6b343
		h2 int64 = 0xd8163841
	)
	n := h1*int64(x) + h2*int64(y)
	return int32(n) & mask
}

func allocLink(tile *MeshTile) uint32 {
	if tile.LinksFreeList == NullLink {
		return NullLink
	}
	link := tile.LinksFreeList
	tile.LinksFreeList = tile.Links[link].Next
	return link
}

func freeLink(tile *MeshTile, link uint32) {
	tile.Links[link].Next = tile.LinksFreeList
	tile.LinksFreeList = link
}

// GetTileStateSize returns the number of bytes StoreTileState will need for
// tile.
func (m *NavMesh) GetTileStateSize(tile *MeshTile) int32 {
	if tile == nil {
		return 0
	}
	// 12-byte header plus one 4-byte-aligned (flags, area) record per poly.
	return 12 + tile.polyCount()*4
}

// StoreTileState snapshots the per-polygon flags and area of tile (the
// state that external code, such as an obstacle system, is expected to
// mutate at runtime) into data, which must be at least
// GetTileStateSize(tile) bytes.
func (m *NavMesh) StoreTileState(tile *MeshTile, data []byte) Status {
	sizeReq := m.GetTileStateSize(tile)
	if int32(len(data)) < sizeReq {
		return Failure | BufferTooSmall
	}

	le := binary.LittleEndian
	le.PutUint32(data[0:], uint32(navMeshStateMagic))
	le.PutUint32(data[4:], uint32(navMeshStateVersion))
	le.PutUint32(data[8:], uint32(m.TileRef(tile)))

	off := 12
	for i := int32(0); i < tile.polyCount(); i++ {
		p := &tile.Polys[i]
		le.PutUint16(data[off:], p.Flags)
		data[off+2] = p.Area()
		off += 4
	}
	return Success
}

// RestoreTileState applies a snapshot produced by StoreTileState back onto
// tile. The tile must still be the same one the snapshot was taken from
// (same salt): restoring state onto a tile slot that has since been
// reused for a different tile returns Failure|InvalidParam rather than
// silently corrupting unrelated polygons.
func (m *NavMesh) RestoreTileState(tile *MeshTile, data []byte) Status {
	sizeReq := m.GetTileStateSize(tile)
	if int32(len(data)) < sizeReq {
		return Failure | BufferTooSmall
	}

	le := binary.LittleEndian
	if int32(le.Uint32(data[0:])) != navMeshStateMagic {
		return Failure | WrongMagic
	}
	if int32(le.Uint32(data[4:])) != navMeshStateVersion {
		return Failure | WrongVersion
	}
	if TileRef(le.Uint32(data[8:])) != m.TileRef(tile) {
		return Failure | InvalidParam
	}

	off := 12
	for i := int32(0); i < tile.polyCount(); i++ {
		p := &tile.Polys[i]
		p.Flags = le.Uint16(data[off:])
		p.SetArea(data[off+2])
		off += 4
	}
	return Success
}
