package navmesh

import (
	"math"

	"github.com/arl/gogeo/f32"
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Link building: wires a newly added tile's polygons to each other and to
// its neighbours, producing the directed-edge graph that navquery
// searches over.

// connectIntLinks links every pair of polygons sharing a non-portal edge
// within tile.
func (m *NavMesh) connectIntLinks(tile *MeshTile) {
	if tile == nil {
		return
	}

	base := m.PolyRefBase(tile)

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		poly.FirstLink = NullLink

		if poly.Type() == PolyTypeOffMeshConnection {
			continue
		}

		// Build edge links backwards so that the links end up in the
		// linked list from lowest edge index to highest.
		for j := int32(poly.VertCount) - 1; j >= 0; j-- {
			if poly.Neis[j] == 0 || (poly.Neis[j]&ExtLink) != 0 {
				continue
			}

			idx := allocLink(tile)
			if idx != NullLink {
				link := &tile.Links[idx]
				link.Ref = base | PolyRef(poly.Neis[j]-1)
				link.Edge = uint8(j)
				link.Side = 0xff
				link.BMin = 0
				link.BMax = 0
				link.Next = poly.FirstLink
				poly.FirstLink = idx
			}
		}
	}
}

// PolyRefBase returns the PolyRef of the first polygon (index 0) in tile.
func (m *NavMesh) PolyRefBase(tile *MeshTile) PolyRef {
	if tile == nil {
		return 0
	}
	return m.encodePolyID(tile.Salt, tile.index, 0)
}

// baseOffMeshLinks connects each off-mesh connection's start point to its
// nearest ground polygon within tile, and links that polygon back to the
// connection.
func (m *NavMesh) baseOffMeshLinks(tile *MeshTile) {
	if tile == nil {
		return
	}

	base := m.PolyRefBase(tile)

	for i := int32(0); i < tile.Header.OffMeshConCount; i++ {
		con := &tile.OffMeshCons[i]
		poly := &tile.Polys[con.Poly]

		ext := d3.NewVec3XYZ(con.Rad, tile.Header.WalkableClimb, con.Rad)
		p := d3.NewVec3XYZ(con.Pos[0], con.Pos[1], con.Pos[2])

		nearestPt := d3.NewVec3()
		ref := m.FindNearestPolyInTile(tile, p, ext, nearestPt)
		if ref == 0 {
			continue
		}
		if math32.Sqr(nearestPt[0]-p[0])+math32.Sqr(nearestPt[2]-p[2]) > math32.Sqr(con.Rad) {
			continue
		}

		// Make sure the connection's recorded start point matches the
		// navmesh surface, not whatever the caller originally supplied.
		con.Pos[0], con.Pos[1], con.Pos[2] = nearestPt[0], nearestPt[1], nearestPt[2]

		idx := allocLink(tile)
		if idx != NullLink {
			link := &tile.Links[idx]
			link.Ref = ref
			link.Edge = 0
			link.Side = 0xff
			link.BMin = 0
			link.BMax = 0
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}

		tidx := allocLink(tile)
		if tidx != NullLink {
			landPolyIdx := uint16(m.decodePolyIDPoly(ref))
			landPoly := &tile.Polys[landPolyIdx]
			link := &tile.Links[tidx]
			link.Ref = base | PolyRef(con.Poly)
			link.Edge = 0xff
			link.Side = 0xff
			link.BMin = 0
			link.BMax = 0
			link.Next = landPoly.FirstLink
			landPoly.FirstLink = tidx
		}
	}
}

// FindNearestPolyInTile returns the polygon within tile whose surface is
// closest to center (searched within a center±extents box), and writes the
// closest point on that polygon to nearestPt.
func (m *NavMesh) FindNearestPolyInTile(tile *MeshTile, center, extents, nearestPt d3.Vec3) PolyRef {
	bmin := center.Sub(extents)
	bmax := center.Add(extents)

	var polys [128]PolyRef
	polyCount := m.queryPolygonsInTile(tile, bmin, bmax, polys[:], 128)

	var nearest PolyRef
	nearestDistanceSqr := float32(math.MaxFloat32)
	for i := int32(0); i < polyCount; i++ {
		ref := polys[i]
		closestPtPoly := d3.NewVec3()
		posOverPoly := m.closestPointOnPoly(ref, center, closestPtPoly)

		diff := center.Sub(closestPtPoly)
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

		if d <= nearestDistanceSqr {
			nearestPt.Assign(closestPtPoly)
			nearestDistanceSqr = d
			nearest = ref
		}
	}

	return nearest
}

// queryPolygonsInTile collects, into polys (capped at maxPolys), every
// polygon of tile whose AABB overlaps [qmin, qmax].
func (m *NavMesh) queryPolygonsInTile(tile *MeshTile, qmin, qmax d3.Vec3, polys []PolyRef, maxPolys int32) int32 {
	base := m.PolyRefBase(tile)

	if tile.BvTree != nil {
		nodeIdx := int32(0)
		endIdx := tile.Header.BvNodeCount

		tbmin := d3.NewVec3From(tile.Header.Bmin[:])
		tbmax := d3.NewVec3From(tile.Header.Bmax[:])
		qfac := tile.Header.BvQuantFactor

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

		var n int32
		for nodeIdx < endIdx {
			node := &tile.BvTree[nodeIdx]
			overlap := OverlapQuantBounds(bmin, bmax, node.BMin, node.BMax)
			isLeafNode := node.I >= 0

			if isLeafNode && overlap && n < maxPolys {
				polys[n] = base | PolyRef(node.I)
				n++
			}

			if overlap || isLeafNode {
				nodeIdx++
			} else {
				nodeIdx += -node.I
			}
		}
		return n
	}

	var n int32
	for i := int32(0); i < tile.Header.PolyCount; i++ {
		p := &tile.Polys[i]
		if p.Type() == PolyTypeOffMeshConnection {
			continue
		}
		v := tile.Verts[p.Verts[0]*3 : p.Verts[0]*3+3]
		bmin := d3.NewVec3From(v)
		bmax := d3.NewVec3From(v)
		for j := uint8(1); j < p.VertCount; j++ {
			v = tile.Verts[p.Verts[j]*3 : p.Verts[j]*3+3]
			d3.Vec3Min(bmin, v)
			d3.Vec3Max(bmax, v)
		}
		if OverlapBounds(qmin, qmax, bmin, bmax) && n < maxPolys {
			polys[n] = base | PolyRef(i)
			n++
		}
	}
	return n
}

// closestPointOnPoly returns the point on polygon ref closest to pos, and
// whether pos projects directly over the polygon's footprint.
func (m *NavMesh) closestPointOnPoly(ref PolyRef, pos, closest d3.Vec3) (posOverPoly bool) {
	tile, poly := m.TileAndPolyByRefUnsafe(ref)

	if poly.Type() == PolyTypeOffMeshConnection {
		v0 := d3.Vec3(tile.Verts[poly.Verts[0]*3 : poly.Verts[0]*3+3])
		v1 := d3.Vec3(tile.Verts[poly.Verts[1]*3 : poly.Verts[1]*3+3])
		d0 := pos.Dist(v0)
		d1 := pos.Dist(v1)
		u := d0 / (d0 + d1)
		closest.Assign(v0.Lerp(v1, u))
		return false
	}

	ip := m.decodePolyIDPoly(ref)
	pd := &tile.DetailMeshes[ip]

	nv := int(poly.VertCount)
	verts := make([]float32, VertsPerPolygon*3)
	edged := make([]float32, VertsPerPolygon)
	edget := make([]float32, VertsPerPolygon)
	for i := 0; i < nv; i++ {
		jdx := poly.Verts[i] * 3
		copy(verts[i*3:i*3+3], tile.Verts[jdx:jdx+3])
	}

	closest.Assign(pos)
	if !DistancePtPolyEdgesSqr(pos, verts, nv, edged, edget) {
		dmin := edged[0]
		imin := 0
		for i := 1; i < nv; i++ {
			if edged[i] < dmin {
				dmin = edged[i]
				imin = i
			}
		}
		va := d3.NewVec3From(verts[imin*3 : imin*3+3])
		vidx := ((imin + 1) % nv) * 3
		vb := d3.NewVec3From(verts[vidx : vidx+3])
		closest.Assign(va.Lerp(vb, edget[imin]))
		posOverPoly = false
	} else {
		posOverPoly = true
	}

	for j := uint8(0); j < pd.TriCount; j++ {
		tidx := (pd.TriBase + uint32(j)) * 4
		t := tile.DetailTris[tidx : tidx+3]
		var v [3]d3.Vec3
		for k := 0; k < 3; k++ {
			if t[k] < poly.VertCount {
				vidx := poly.Verts[t[k]] * 3
				v[k] = tile.Verts[vidx : vidx+3]
			} else {
				vidx := (pd.VertBase + uint32(t[k]-poly.VertCount)) * 3
				v[k] = tile.DetailVerts[vidx : vidx+3]
			}
		}
		if h, ok := ClosestHeightPointTriangle(closest, v[0], v[1], v[2]); ok {
			closest[1] = h
			break
		}
	}

	return posOverPoly
}

// connectExtLinks builds, for every portal edge of tile that faces side
// (or every portal edge if side == -1), links to the matching polygons of
// target.
func (m *NavMesh) connectExtLinks(tile, target *MeshTile, side int32) {
	if tile == nil {
		return
	}

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		nv := int32(poly.VertCount)

		for j := int32(0); j < nv; j++ {
			if (poly.Neis[j] & ExtLink) == 0 {
				continue
			}

			dir := int32(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}

			va := d3.Vec3(tile.Verts[poly.Verts[j]*3:])
			vb := d3.Vec3(tile.Verts[poly.Verts[(j+1)%nv]*3:])
			var nei [4]PolyRef
			var neia [8]float32
			nnei := m.findConnectingPolys(va, vb, target, oppositeTile(uint8(dir)), nei[:], neia[:], 4)

			for k := int32(0); k < nnei; k++ {
				idx := allocLink(tile)
				if idx == NullLink {
					continue
				}
				link := &tile.Links[idx]
				link.Ref = nei[k]
				link.Edge = uint8(j)
				link.Side = uint8(dir)
				link.Next = poly.FirstLink
				poly.FirstLink = idx

				if dir == 0 || dir == 4 {
					tmin := (neia[k*2+0] - va[2]) / (vb[2] - va[2])
					tmax := (neia[k*2+1] - va[2]) / (vb[2] - va[2])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.BMin = uint8(f32.Clamp(tmin, 0, 1) * 255)
					link.BMax = uint8(f32.Clamp(tmax, 0, 1) * 255)
				} else if dir == 2 || dir == 6 {
					tmin := (neia[k*2+0] - va[0]) / (vb[0] - va[0])
					tmax := (neia[k*2+1] - va[0]) / (vb[0] - va[0])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.BMin = uint8(f32.Clamp(tmin, 0, 1) * 255)
					link.BMax = uint8(f32.Clamp(tmax, 0, 1) * 255)
				}
			}
		}
	}
}

// findConnectingPolys returns, into con/conarea (capped at maxcon), every
// polygon of tile whose edge on the given side overlaps the portal segment
// (va, vb).
func (m *NavMesh) findConnectingPolys(va, vb d3.Vec3, tile *MeshTile, side uint8, con []PolyRef, conarea []float32, maxcon int32) int32 {
	if tile == nil {
		return 0
	}

	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := slabCoord(va, side)

	l := ExtLink | uint16(side)
	var n int32

	base := m.PolyRefBase(tile)

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		nv := poly.VertCount
		for j := uint8(0); j < nv; j++ {
			if poly.Neis[j] != l {
				continue
			}

			idx := poly.Verts[j] * 3
			vc := d3.Vec3(tile.Verts[idx : idx+3])
			idx = poly.Verts[(j+1)%nv] * 3
			vd := d3.Vec3(tile.Verts[idx : idx+3])
			bpos := slabCoord(vc, side)

			if math32.Abs(apos-bpos) > 0.01 {
				continue
			}

			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.Header.WalkableClimb) {
				continue
			}

			if n < maxcon {
				conarea[n*2+0] = math32.Max(amin[0], bmin[0])
				conarea[n*2+1] = math32.Min(amax[0], bmax[0])
				con[n] = base | PolyRef(i)
				n++
			}
			break
		}
	}
	return n
}

// unconnectLinks removes every link of tile that points into target.
func (m *NavMesh) unconnectLinks(tile, target *MeshTile) {
	if tile == nil || target == nil {
		return
	}

	targetNum := m.decodePolyIDTile(PolyRef(m.TileRef(target)))

	for i := int32(0); i < tile.Header.PolyCount; i++ {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := NullLink
		for j != NullLink {
			if m.decodePolyIDTile(tile.Links[j].Ref) == targetNum {
				nj := tile.Links[j].Next
				if pj == NullLink {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				freeLink(tile, j)
				j = nj
			} else {
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

// connectExtOffMeshLinks connects the off-mesh connections of target whose
// start point lies on the side facing tile to their nearest polygon in
// tile.
func (m *NavMesh) connectExtOffMeshLinks(tile, target *MeshTile, side int32) {
	if tile == nil {
		return
	}

	var oppositeSide uint8
	if side == -1 {
		oppositeSide = 0xff
	} else {
		oppositeSide = oppositeTile(uint8(side))
	}

	for i := int32(0); i < target.Header.OffMeshConCount; i++ {
		targetCon := &target.OffMeshCons[i]
		if targetCon.Side != oppositeSide {
			continue
		}

		targetPoly := &target.Polys[targetCon.Poly]
		if targetPoly.FirstLink == NullLink {
			continue
		}

		ext := d3.NewVec3XYZ(targetCon.Rad, target.Header.WalkableClimb, targetCon.Rad)
		p := d3.NewVec3XYZ(targetCon.Pos[3], targetCon.Pos[4], targetCon.Pos[5])

		nearestPt := d3.NewVec3()
		ref := m.FindNearestPolyInTile(tile, p, ext, nearestPt)
		if ref == 0 {
			continue
		}
		if math32.Sqr(nearestPt[0]-p[0])+math32.Sqr(nearestPt[2]-p[2]) > math32.Sqr(targetCon.Rad) {
			continue
		}

		targetCon.Pos[3], targetCon.Pos[4], targetCon.Pos[5] = nearestPt[0], nearestPt[1], nearestPt[2]

		idx := allocLink(target)
		if idx != NullLink {
			link := &target.Links[idx]
			link.Ref = ref
			link.Edge = 1
			link.Side = oppositeSide
			link.BMin = 0
			link.BMax = 0
			link.Next = targetPoly.FirstLink
			targetPoly.FirstLink = idx
		}

		if (uint32(targetCon.Flags) & OffMeshConBidir) != 0 {
			tidx := allocLink(tile)
			if tidx != NullLink {
				landPolyIdx := uint16(m.decodePolyIDPoly(ref))
				landPoly := &tile.Polys[landPolyIdx]
				link := &tile.Links[tidx]
				link.Ref = m.PolyRefBase(target) | PolyRef(targetCon.Poly)
				link.Edge = 0xff
				if side == -1 {
					link.Side = 0xff
				} else {
					link.Side = uint8(side)
				}
				link.BMin = 0
				link.BMax = 0
				link.Next = landPoly.FirstLink
				landPoly.FirstLink = tidx
			}
		}
	}
}
