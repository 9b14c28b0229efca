package navmesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/arl/gogeo/f32"
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

const (
	// NullIndex marks an unused vertex slot in CreateParams.Polys.
	NullIndex uint16 = 0xffff
)

// CreateParams describes the source data used to build one tile's data
// blob: the polygon mesh, optional height detail, optional off-mesh
// connections, and the tile's placement and agent parameters.
type CreateParams struct {
	// Polygon mesh attributes. Verts holds quantized (x, y, z) cell
	// coordinates; Polys holds, per polygon, Nvp vertex indices followed by
	// Nvp neighbour codes (NullIndex-terminated vertex lists, 0x8000|dir
	// for border/portal edges).
	Verts     []uint16
	VertCount int32
	Polys     []uint16
	PolyFlags []uint16
	PolyAreas []uint8
	PolyCount int32
	Nvp       int32

	// Height detail attributes, optional. DetailMeshes holds 4 ints per
	// polygon: vert base, vert count, tri base, tri count.
	DetailMeshes     []int32
	DetailVerts      []float32
	DetailVertsCount int32
	DetailTris       []uint8
	DetailTriCount   int32

	// Off-mesh connection attributes, optional. OffMeshConVerts holds the
	// two endpoints of each connection, in world units.
	OffMeshConVerts  []float32
	OffMeshConRad    []float32
	OffMeshConFlags  []uint16
	OffMeshConAreas  []uint8
	OffMeshConDir    []uint8
	OffMeshConUserID []uint32
	OffMeshConCount  int32

	// Tile placement.
	UserID    uint32
	TileX     int32
	TileY     int32
	TileLayer int32
	BMin      [3]float32
	BMax      [3]float32

	// Agent parameters, copied verbatim into the tile header.
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Cs             float32
	Ch             float32

	BuildBvTree bool
}

type bvItem struct {
	bmin, bmax [3]uint16
	i          int32
}

func calcItemExtents(items []bvItem, imin, imax int32, bmin, bmax *[3]uint16) {
	*bmin = items[imin].bmin
	*bmax = items[imin].bmax
	for i := imin + 1; i < imax; i++ {
		it := &items[i]
		for k := 0; k < 3; k++ {
			if it.bmin[k] < bmin[k] {
				bmin[k] = it.bmin[k]
			}
			if it.bmax[k] > bmax[k] {
				bmax[k] = it.bmax[k]
			}
		}
	}
}

func longestAxis(x, y, z uint16) int {
	axis := 0
	maxVal := x
	if y > maxVal {
		axis = 1
		maxVal = y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}

// subdivide lays the BV hierarchy out in pre-order, storing in internal
// nodes the negated escape offset consumed by the stackless traversal in
// queryPolygonsInTile.
func subdivide(items []bvItem, imin, imax int32, curNode *int32, nodes []BvNode) {
	inum := imax - imin
	icur := *curNode

	node := &nodes[*curNode]
	*curNode++

	if inum == 1 {
		node.BMin = items[imin].bmin
		node.BMax = items[imin].bmax
		node.I = items[imin].i
		return
	}

	calcItemExtents(items, imin, imax, &node.BMin, &node.BMax)

	axis := longestAxis(
		node.BMax[0]-node.BMin[0],
		node.BMax[1]-node.BMin[1],
		node.BMax[2]-node.BMin[2])
	seg := items[imin:imax]
	sort.SliceStable(seg, func(i, j int) bool {
		return seg[i].bmin[axis] < seg[j].bmin[axis]
	})

	isplit := imin + inum/2
	subdivide(items, imin, isplit, curNode, nodes)
	subdivide(items, isplit, imax, curNode, nodes)

	node.I = -(*curNode - icur)
}

func int32Clamp(a, low, high int32) int32 {
	if a < low {
		return low
	}
	if a > high {
		return high
	}
	return a
}

func createBVTree(params *CreateParams, nodes []BvNode) int32 {
	quantFactor := 1.0 / params.Cs
	items := make([]bvItem, params.PolyCount)
	for i := int32(0); i < params.PolyCount; i++ {
		it := &items[i]
		it.i = i

		if len(params.DetailMeshes) > 0 {
			// Use the detail samples for the bounds, they may extend past
			// the base polygon.
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			var bmin, bmax [3]float32

			dv := params.DetailVerts[vb*3:]
			copy(bmin[:], dv[:3])
			copy(bmax[:], dv[:3])
			for j := int32(1); j < ndv; j++ {
				d3.Vec3Min(bmin[:], dv[j*3:j*3+3])
				d3.Vec3Max(bmax[:], dv[j*3:j*3+3])
			}

			// The BV tree uses cs for all three dimensions.
			for k := 0; k < 3; k++ {
				it.bmin[k] = uint16(int32Clamp(int32((bmin[k]-params.BMin[k])*quantFactor), 0, 0xffff))
				it.bmax[k] = uint16(int32Clamp(int32((bmax[k]-params.BMin[k])*quantFactor), 0, 0xffff))
			}
		} else {
			p := params.Polys[i*params.Nvp*2:]
			it.bmin[0] = params.Verts[p[0]*3+0]
			it.bmin[1] = params.Verts[p[0]*3+1]
			it.bmin[2] = params.Verts[p[0]*3+2]
			it.bmax = it.bmin

			for j := int32(1); j < params.Nvp; j++ {
				if p[j] == NullIndex {
					break
				}
				x := params.Verts[p[j]*3+0]
				y := params.Verts[p[j]*3+1]
				z := params.Verts[p[j]*3+2]
				if x < it.bmin[0] {
					it.bmin[0] = x
				}
				if y < it.bmin[1] {
					it.bmin[1] = y
				}
				if z < it.bmin[2] {
					it.bmin[2] = z
				}
				if x > it.bmax[0] {
					it.bmax[0] = x
				}
				if y > it.bmax[1] {
					it.bmax[1] = y
				}
				if z > it.bmax[2] {
					it.bmax[2] = z
				}
			}
			// Vertex y is quantized with ch, the tree with cs.
			it.bmin[1] = uint16(math32.Floor(float32(it.bmin[1]) * params.Ch / params.Cs))
			it.bmax[1] = uint16(math32.Ceil(float32(it.bmax[1]) * params.Ch / params.Cs))
		}
	}

	var curNode int32
	subdivide(items, 0, params.PolyCount, &curNode, nodes)
	return curNode
}

// classifyOffMeshPoint returns the tile side (0..7) pt lies beyond, or 0xff
// when pt is inside [bmin, bmax] in the xz plane.
func classifyOffMeshPoint(pt d3.Vec3, bmin, bmax []float32) uint8 {
	const (
		xp uint8 = 1 << 0
		zp uint8 = 1 << 1
		xm uint8 = 1 << 2
		zm uint8 = 1 << 3
	)

	var outcode uint8
	if pt[0] >= bmax[0] {
		outcode |= xp
	}
	if pt[2] >= bmax[2] {
		outcode |= zp
	}
	if pt[0] < bmin[0] {
		outcode |= xm
	}
	if pt[2] < bmin[2] {
		outcode |= zm
	}

	switch outcode {
	case xp:
		return 0
	case xp | zp:
		return 1
	case zp:
		return 2
	case xm | zp:
		return 3
	case xm:
		return 4
	case xm | zm:
		return 5
	case zm:
		return 6
	case xp | zm:
		return 7
	}
	return 0xff
}

// CreateTileData builds a tile data blob, ready for (*NavMesh).AddTile,
// from the source mesh described by params.
func CreateTileData(params *CreateParams) ([]byte, error) {
	if params.Nvp > VertsPerPolygon {
		return nil, fmt.Errorf("create tile: nvp %d exceeds %d verts per polygon", params.Nvp, VertsPerPolygon)
	}
	if params.VertCount == 0 || params.Verts == nil {
		return nil, fmt.Errorf("create tile: no vertices")
	}
	if params.VertCount >= 0xffff {
		return nil, fmt.Errorf("create tile: too many vertices (%d)", params.VertCount)
	}
	if params.PolyCount == 0 || params.Polys == nil {
		return nil, fmt.Errorf("create tile: no polygons")
	}

	nvp := params.Nvp

	// Classify off-mesh connection endpoints. Only connections whose start
	// point is inside the tile are stored.
	var (
		offMeshConClass       []uint8
		storedOffMeshConCount int32
		offMeshConLinkCount   int32
	)
	if params.OffMeshConCount > 0 {
		offMeshConClass = make([]uint8, params.OffMeshConCount*2)

		// Height bounds are tightened to the mesh so start points hovering
		// far above or below the surface are culled.
		hmin := float32(math.MaxFloat32)
		hmax := -float32(math.MaxFloat32)
		if params.DetailVerts != nil && params.DetailVertsCount != 0 {
			for i := int32(0); i < params.DetailVertsCount; i++ {
				h := params.DetailVerts[i*3+1]
				f32.SetMin(&hmin, h)
				f32.SetMax(&hmax, h)
			}
		} else {
			for i := int32(0); i < params.VertCount; i++ {
				iv := params.Verts[i*3:]
				h := params.BMin[1] + float32(iv[1])*params.Ch
				f32.SetMin(&hmin, h)
				f32.SetMax(&hmax, h)
			}
		}
		hmin -= params.WalkableClimb
		hmax += params.WalkableClimb

		var bmin, bmax [3]float32
		copy(bmin[:], params.BMin[:])
		copy(bmax[:], params.BMax[:])
		bmin[1] = hmin
		bmax[1] = hmax

		for i := int32(0); i < params.OffMeshConCount; i++ {
			p0 := d3.Vec3(params.OffMeshConVerts[(i*2+0)*3 : (i*2+0)*3+3])
			p1 := d3.Vec3(params.OffMeshConVerts[(i*2+1)*3 : (i*2+1)*3+3])
			offMeshConClass[i*2+0] = classifyOffMeshPoint(p0, bmin[:], bmax[:])
			offMeshConClass[i*2+1] = classifyOffMeshPoint(p1, bmin[:], bmax[:])

			if offMeshConClass[i*2+0] == 0xff {
				if p0[1] < bmin[1] || p0[1] > bmax[1] {
					offMeshConClass[i*2+0] = 0
				}
			}

			if offMeshConClass[i*2+0] == 0xff {
				offMeshConLinkCount++
			}
			if offMeshConClass[i*2+1] == 0xff {
				offMeshConLinkCount++
			}
			if offMeshConClass[i*2+0] == 0xff {
				storedOffMeshConCount++
			}
		}
	}

	// Off-mesh connections are stored as degenerate 2-vertex polygons.
	totPolyCount := params.PolyCount + storedOffMeshConCount
	totVertCount := params.VertCount + storedOffMeshConCount*2

	// Count edges and tile-border portals to size the link pool.
	var edgeCount, portalCount int32
	for i := int32(0); i < params.PolyCount; i++ {
		p := params.Polys[i*2*nvp:]
		for j := int32(0); j < nvp; j++ {
			if p[j] == NullIndex {
				break
			}
			edgeCount++
			if (p[nvp+j] & 0x8000) != 0 {
				dir := p[nvp+j] & 0xf
				if dir != 0xf {
					portalCount++
				}
			}
		}
	}
	maxLinkCount := edgeCount + portalCount*2 + offMeshConLinkCount*2

	// Count detail geometry; without input detail the polys are fan
	// triangulated in place.
	var uniqueDetailVertCount, detailTriCount int32
	if params.DetailMeshes != nil {
		detailTriCount = params.DetailTriCount
		for i := int32(0); i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			ndv := params.DetailMeshes[i*4+1]
			var nv int32
			for j := int32(0); j < nvp; j++ {
				if p[j] == NullIndex {
					break
				}
				nv++
			}
			uniqueDetailVertCount += ndv - nv
		}
	} else {
		for i := int32(0); i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			var nv int32
			for j := int32(0); j < nvp; j++ {
				if p[j] == NullIndex {
					break
				}
				nv++
			}
			detailTriCount += nv - 2
		}
	}

	var bvNodeCount int32
	if params.BuildBvTree {
		bvNodeCount = params.PolyCount * 2
	}

	hdr := &MeshHeader{
		Magic:           navMeshMagic,
		Version:         navMeshVersion,
		X:               params.TileX,
		Y:               params.TileY,
		Layer:           params.TileLayer,
		UserID:          params.UserID,
		PolyCount:       totPolyCount,
		VertCount:       totVertCount,
		MaxLinkCount:    maxLinkCount,
		DetailMeshCount: params.PolyCount,
		DetailVertCount: uniqueDetailVertCount,
		DetailTriCount:  detailTriCount,
		BvNodeCount:     bvNodeCount,
		OffMeshConCount: storedOffMeshConCount,
		OffMeshBase:     params.PolyCount,
		WalkableHeight:  params.WalkableHeight,
		WalkableRadius:  params.WalkableRadius,
		WalkableClimb:   params.WalkableClimb,
		Bmin:            params.BMin,
		Bmax:            params.BMax,
		BvQuantFactor:   1.0 / params.Cs,
	}

	navVerts := make([]float32, 3*totVertCount)
	navPolys := make([]Poly, totPolyCount)
	navDMeshes := make([]PolyDetail, params.PolyCount)
	navDVerts := make([]float32, 3*uniqueDetailVertCount)
	navDTris := make([]uint8, 4*detailTriCount)
	navBvtree := make([]BvNode, bvNodeCount)
	offMeshCons := make([]OffMeshConnection, storedOffMeshConCount)

	offMeshVertsBase := params.VertCount
	offMeshPolyBase := params.PolyCount

	// Mesh vertices, dequantized to world units.
	for i := int32(0); i < params.VertCount; i++ {
		iv := params.Verts[i*3 : i*3+3]
		v := navVerts[i*3 : i*3+3]
		v[0] = params.BMin[0] + float32(iv[0])*params.Cs
		v[1] = params.BMin[1] + float32(iv[1])*params.Ch
		v[2] = params.BMin[2] + float32(iv[2])*params.Cs
	}
	// Off-mesh endpoint vertices, already in world units.
	var n int32
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] != 0xff {
			continue
		}
		linkv := params.OffMeshConVerts[i*2*3:]
		v := navVerts[(offMeshVertsBase+n*2)*3:]
		copy(v[0:6], linkv[0:6])
		n++
	}

	// Mesh polygons.
	src := params.Polys
	for i := int32(0); i < params.PolyCount; i++ {
		p := &navPolys[i]
		p.VertCount = 0
		p.Flags = params.PolyFlags[i]
		p.SetArea(params.PolyAreas[i])
		p.SetType(PolyTypeGround)
		for j := int32(0); j < nvp; j++ {
			if src[j] == NullIndex {
				break
			}
			p.Verts[j] = src[j]
			if (src[nvp+j] & 0x8000) != 0 {
				// Border or portal edge.
				switch src[nvp+j] & 0xf {
				case 0xf: // border
					p.Neis[j] = 0
				case 0: // portal x-
					p.Neis[j] = ExtLink | 4
				case 1: // portal z+
					p.Neis[j] = ExtLink | 2
				case 2: // portal x+
					p.Neis[j] = ExtLink | 0
				case 3: // portal z-
					p.Neis[j] = ExtLink | 6
				}
			} else {
				// In-tile neighbour, stored as index+1.
				p.Neis[j] = src[nvp+j] + 1
			}
			p.VertCount++
		}
		src = src[nvp*2:]
	}

	// Off-mesh connection polygons.
	n = 0
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] != 0xff {
			continue
		}
		p := &navPolys[offMeshPolyBase+n]
		p.VertCount = 2
		p.Verts[0] = uint16(offMeshVertsBase + n*2 + 0)
		p.Verts[1] = uint16(offMeshVertsBase + n*2 + 1)
		p.Flags = params.OffMeshConFlags[i]
		p.SetArea(params.OffMeshConAreas[i])
		p.SetType(PolyTypeOffMeshConnection)
		n++
	}

	// Detail meshes. The base polygon corners double as the first detail
	// vertices, so only the extra samples are stored.
	if len(params.DetailMeshes) > 0 {
		var vbase uint32
		for i := int32(0); i < params.PolyCount; i++ {
			dtl := &navDMeshes[i]
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			nv := int32(navPolys[i].VertCount)
			dtl.VertBase = vbase
			dtl.VertCount = uint8(ndv - nv)
			dtl.TriBase = uint32(params.DetailMeshes[i*4+2])
			dtl.TriCount = uint8(params.DetailMeshes[i*4+3])
			if ndv-nv != 0 {
				start := (vb + nv) * 3
				copy(navDVerts[vbase*3:], params.DetailVerts[start:start+3*(ndv-nv)])
				vbase += uint32(ndv - nv)
			}
		}
		copy(navDTris, params.DetailTris[:4*params.DetailTriCount])
	} else {
		// No detail input, fan-triangulate each polygon in place.
		var tbase int32
		for i := int32(0); i < params.PolyCount; i++ {
			dtl := &navDMeshes[i]
			nv := navPolys[i].VertCount
			dtl.VertBase = 0
			dtl.VertCount = 0
			dtl.TriBase = uint32(tbase)
			dtl.TriCount = nv - 2
			for j := uint8(2); j < nv; j++ {
				t := navDTris[tbase*4:]
				t[0] = 0
				t[1] = j - 1
				t[2] = j
				// Edge flags: bit set for each triangle edge lying on the
				// polygon boundary.
				t[3] = 1 << 2
				if j == 2 {
					t[3] |= 1 << 0
				}
				if j == nv-1 {
					t[3] |= 1 << 4
				}
				tbase++
			}
		}
	}

	if params.BuildBvTree {
		// The tree occupies 2n-1 of the 2n reserved slots; advertising the
		// exact count keeps the stackless traversal off the zeroed spare.
		nnodes := createBVTree(params, navBvtree)
		navBvtree = navBvtree[:nnodes]
		hdr.BvNodeCount = nnodes
	}

	// Off-mesh connection records.
	n = 0
	for i := int32(0); i < params.OffMeshConCount; i++ {
		if offMeshConClass[i*2+0] != 0xff {
			continue
		}
		con := &offMeshCons[n]
		con.Poly = uint16(offMeshPolyBase + n)
		endPts := params.OffMeshConVerts[i*2*3:]
		copy(con.Pos[0:3], endPts[:3])
		copy(con.Pos[3:6], endPts[3:6])
		con.Rad = params.OffMeshConRad[i]
		if params.OffMeshConDir[i] != 0 {
			con.Flags = uint8(OffMeshConBidir)
		} else {
			con.Flags = 0
		}
		con.Side = offMeshConClass[i*2+1]
		if len(params.OffMeshConUserID) != 0 {
			con.UserID = params.OffMeshConUserID[i]
		}
		n++
	}

	links := make([]Link, maxLinkCount)
	return EncodeTile(hdr, navVerts, navPolys, links, navDMeshes, navDVerts, navDTris, navBvtree, offMeshCons), nil
}
