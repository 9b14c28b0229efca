package navmesh

// PolyRef is an opaque handle encoding (salt, tile index, poly index) into a
// single 32-bit integer. Field widths are derived at Init time from the
// store's capacity (see NavMesh.Init) and are not portable across stores
// configured with different capacities. A PolyRef of 0 always means "none".
type PolyRef uint32

// TileRef addresses a tile without a specific polygon: same encoding as
// PolyRef with the poly-index field set to 0.
type TileRef uint32

// encodePolyID packs salt, tile index and poly index into a PolyRef using
// the bit widths derived by Init.
func (nm *NavMesh) encodePolyID(salt, it, ip uint32) PolyRef {
	return PolyRef((salt << (nm.polyBits + nm.tileBits)) | (it << nm.polyBits) | ip)
}

// DecodePolyID splits ref back into (salt, tile index, poly index).
func (nm *NavMesh) DecodePolyID(ref PolyRef) (salt, it, ip uint32) {
	saltMask := uint32(1)<<nm.saltBits - 1
	tileMask := uint32(1)<<nm.tileBits - 1
	polyMask := uint32(1)<<nm.polyBits - 1
	ip = uint32(ref) & polyMask
	it = (uint32(ref) >> nm.polyBits) & tileMask
	salt = (uint32(ref) >> (nm.polyBits + nm.tileBits)) & saltMask
	return
}

func (nm *NavMesh) decodePolyIDSalt(ref PolyRef) uint32 {
	saltMask := uint32(1)<<nm.saltBits - 1
	return (uint32(ref) >> (nm.polyBits + nm.tileBits)) & saltMask
}

func (nm *NavMesh) decodePolyIDTile(ref PolyRef) uint32 {
	tileMask := uint32(1)<<nm.tileBits - 1
	return (uint32(ref) >> nm.polyBits) & tileMask
}

func (nm *NavMesh) decodePolyIDPoly(ref PolyRef) uint32 {
	polyMask := uint32(1)<<nm.polyBits - 1
	return uint32(ref) & polyMask
}
