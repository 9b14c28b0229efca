package navmesh

import "github.com/arl/gogeo/f32/d3"

const (
	// VertsPerPolygon is the maximum number of vertices a navmesh polygon
	// can have.
	VertsPerPolygon = 6

	// NullLink marks the end of a tile's link free-list / a polygon's link
	// chain.
	NullLink uint32 = 0xffffffff

	// ExtLink marks a polygon neighbour-edge code as an external portal; the
	// low byte then carries the side (0..7).
	ExtLink uint16 = 0x8000

	// OffMeshConBidir marks an off-mesh connection as traversable in both
	// directions.
	OffMeshConBidir uint32 = 1

	maxAreasCount = 64

	navMeshMagic        int32 = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	navMeshVersion      int32 = 1
	navMeshStateMagic   int32 = 'D'<<24 | 'N'<<16 | 'M'<<8 | 'S'
	navMeshStateVersion int32 = 1
)

// PolyType distinguishes a standard ground polygon from an off-mesh
// connection pseudo-polygon.
type PolyType uint8

const (
	PolyTypeGround            PolyType = 0
	PolyTypeOffMeshConnection PolyType = 1
)

// Poly describes a convex polygon within a tile: up to VertsPerPolygon
// vertex indices, one neighbour-edge code per edge, navigation flags, and a
// packed area/type byte.
type Poly struct {
	FirstLink   uint32
	Verts       [VertsPerPolygon]uint16
	Neis        [VertsPerPolygon]uint16
	Flags       uint16
	VertCount   uint8
	AreaAndType uint8
}

// SetArea sets the 6-bit area id, leaving the type bits untouched.
func (p *Poly) SetArea(area uint8) {
	p.AreaAndType = (p.AreaAndType & 0xc0) | (area & 0x3f)
}

// SetType sets the 2-bit poly type, leaving the area bits untouched.
func (p *Poly) SetType(t PolyType) {
	p.AreaAndType = (p.AreaAndType & 0x3f) | (uint8(t) << 6)
}

// Area returns the polygon's area id.
func (p *Poly) Area() uint8 { return p.AreaAndType & 0x3f }

// Type returns the polygon's type.
func (p *Poly) Type() PolyType { return PolyType(p.AreaAndType >> 6) }

// CalcPolyCenter returns the centroid of the first nidx vertices named by
// idx, read from verts (a flat x,y,z array).
func CalcPolyCenter(idx []uint16, nidx int, verts []float32) d3.Vec3 {
	tc := d3.NewVec3()
	for j := 0; j < nidx; j++ {
		v := verts[idx[j]*3 : idx[j]*3+3]
		tc[0] += v[0]
		tc[1] += v[1]
		tc[2] += v[2]
	}
	s := 1.0 / float32(nidx)
	tc[0] *= s
	tc[1] *= s
	tc[2] *= s
	return tc
}

// Link is one directed edge in the polygon graph: a free-list entry inside
// a tile's link pool.
type Link struct {
	Ref  PolyRef
	Next uint32
	Edge uint8
	Side uint8
	BMin uint8
	BMax uint8
}

// PolyDetail refines a polygon with extra height samples: a base offset
// into the tile's detail vertex array, and a base offset + count into the
// detail triangle array.
type PolyDetail struct {
	VertBase  uint32
	TriBase   uint32
	VertCount uint8
	TriCount  uint8
}

// BvNode is a quantized AABB node in a tile's bounding-volume tree. Leaves
// have I >= 0 (a polygon index); internal nodes have I < 0, the negated
// escape offset used by the stackless traversal in queryPolygonsInTile.
type BvNode struct {
	BMin, BMax [3]uint16
	I          int32
}

// OffMeshConnection describes a teleport/ladder/jump between two surface
// points.
type OffMeshConnection struct {
	Pos    [6]float32
	Rad    float32
	Poly   uint16
	Flags  uint8
	Side   uint8
	UserID uint32
}

// NavMeshParams configures a NavMesh at Init time: origin, per-tile extent,
// and the maximum tile/poly counts the PolyRef codec must be able to
// address.
type NavMeshParams struct {
	Orig                  d3.Vec3
	TileWidth, TileHeight float32
	MaxTiles, MaxPolys    uint32
}

// MeshHeader is the fixed-size header at the front of every tile data
// blob.
type MeshHeader struct {
	Magic, Version  int32
	X, Y, Layer     int32
	UserID          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32
	OffMeshConCount int32
	OffMeshBase     int32
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	Bmin, Bmax      [3]float32
	BvQuantFactor   float32
}
