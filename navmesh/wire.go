package navmesh

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Wire format for a tile's byte buffer: a fixed-size header followed by
// packed arrays in a fixed order (verts, polys, links, detail meshes,
// detail verts, detail tris, bv-tree nodes, off-mesh connections), every
// region laid out in little-endian and padded to a 4-byte boundary.

const meshHeaderSize = 100

func encodeHeader(hdr *MeshHeader) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(meshHeaderSize)
	binary.Write(buf, binary.LittleEndian, hdr)
	return buf.Bytes()
}

func decodeHeader(data []byte) (*MeshHeader, Status) {
	if len(data) < meshHeaderSize {
		return nil, Failure | InvalidParam
	}
	var hdr MeshHeader
	if err := binary.Read(bytes.NewReader(data[:meshHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, Failure | InvalidParam
	}
	return &hdr, Success
}

const (
	polyWireSize       = 4 + 2*VertsPerPolygon + 2*VertsPerPolygon + 2 + 1 + 1
	linkWireSize       = 4 + 4 + 1 + 1 + 1 + 1
	polyDetailWireSize = 4 + 4 + 1 + 1 + 2 // 2 pad bytes keep records 4-byte aligned
	bvNodeWireSize     = 2*3 + 2*3 + 4
	offMeshConWireSize = 4*6 + 4 + 2 + 1 + 1 + 4
)

// tileBodySize returns the size, in bytes, of the packed body following the
// header for a tile whose counts are described by hdr.
func tileBodySize(hdr *MeshHeader) int {
	return int(hdr.VertCount)*3*4 +
		int(hdr.PolyCount)*polyWireSize +
		int(hdr.MaxLinkCount)*linkWireSize +
		int(hdr.DetailMeshCount)*polyDetailWireSize +
		int(hdr.DetailVertCount)*3*4 +
		int(hdr.DetailTriCount)*4 +
		int(hdr.BvNodeCount)*bvNodeWireSize +
		int(hdr.OffMeshConCount)*offMeshConWireSize
}

// EncodeTile packs a tile header and its content arrays into a single byte
// buffer suitable for (*NavMesh).AddTile.
func EncodeTile(
	hdr *MeshHeader,
	verts []float32,
	polys []Poly,
	links []Link,
	dmeshes []PolyDetail,
	dverts []float32,
	dtris []uint8,
	bvtree []BvNode,
	offMeshCons []OffMeshConnection,
) []byte {
	dst := make([]byte, meshHeaderSize+tileBodySize(hdr))
	copy(dst, encodeHeader(hdr))

	off := meshHeaderSize
	le := binary.LittleEndian

	for _, f := range verts {
		le.PutUint32(dst[off:], math.Float32bits(f))
		off += 4
	}
	for i := range polys {
		p := &polys[i]
		le.PutUint32(dst[off:], p.FirstLink)
		off += 4
		for j := 0; j < VertsPerPolygon; j++ {
			le.PutUint16(dst[off:], p.Verts[j])
			off += 2
		}
		for j := 0; j < VertsPerPolygon; j++ {
			le.PutUint16(dst[off:], p.Neis[j])
			off += 2
		}
		le.PutUint16(dst[off:], p.Flags)
		dst[off+2] = p.VertCount
		dst[off+3] = p.AreaAndType
		off += 4
	}
	for i := range links {
		l := &links[i]
		le.PutUint32(dst[off:], uint32(l.Ref))
		le.PutUint32(dst[off+4:], l.Next)
		dst[off+8] = l.Edge
		dst[off+9] = l.Side
		dst[off+10] = l.BMin
		dst[off+11] = l.BMax
		off += 12
	}
	for i := range dmeshes {
		m := &dmeshes[i]
		le.PutUint32(dst[off:], m.VertBase)
		le.PutUint32(dst[off+4:], m.TriBase)
		dst[off+8] = m.VertCount
		dst[off+9] = m.TriCount
		off += 12
	}
	for _, f := range dverts {
		le.PutUint32(dst[off:], math.Float32bits(f))
		off += 4
	}
	copy(dst[off:], dtris)
	off += len(dtris)
	for i := range bvtree {
		t := &bvtree[i]
		le.PutUint16(dst[off:], t.BMin[0])
		le.PutUint16(dst[off+2:], t.BMin[1])
		le.PutUint16(dst[off+4:], t.BMin[2])
		le.PutUint16(dst[off+6:], t.BMax[0])
		le.PutUint16(dst[off+8:], t.BMax[1])
		le.PutUint16(dst[off+10:], t.BMax[2])
		le.PutUint32(dst[off+12:], uint32(t.I))
		off += 16
	}
	for i := range offMeshCons {
		o := &offMeshCons[i]
		for k := 0; k < 6; k++ {
			le.PutUint32(dst[off+k*4:], math.Float32bits(o.Pos[k]))
		}
		le.PutUint32(dst[off+24:], math.Float32bits(o.Rad))
		le.PutUint16(dst[off+28:], o.Poly)
		dst[off+30] = o.Flags
		dst[off+31] = o.Side
		le.PutUint32(dst[off+32:], o.UserID)
		off += 36
	}
	return dst
}

// unserialize decodes tile's arrays from data into newly allocated slices;
// data must be the tile body (i.e. the bytes following the header)
// produced by EncodeTile for a tile matching hdr.
func (t *MeshTile) unserialize(hdr *MeshHeader, data []byte) Status {
	if len(data) < tileBodySize(hdr) {
		return Failure | InvalidParam
	}

	le := binary.LittleEndian
	off := 0

	t.Verts = make([]float32, hdr.VertCount*3)
	for i := range t.Verts {
		t.Verts[i] = math.Float32frombits(le.Uint32(data[off:]))
		off += 4
	}

	t.Polys = make([]Poly, hdr.PolyCount)
	for i := range t.Polys {
		p := &t.Polys[i]
		p.FirstLink = le.Uint32(data[off:])
		off += 4
		for j := 0; j < VertsPerPolygon; j++ {
			p.Verts[j] = le.Uint16(data[off:])
			off += 2
		}
		for j := 0; j < VertsPerPolygon; j++ {
			p.Neis[j] = le.Uint16(data[off:])
			off += 2
		}
		p.Flags = le.Uint16(data[off:])
		p.VertCount = data[off+2]
		p.AreaAndType = data[off+3]
		off += 4
	}

	t.Links = make([]Link, hdr.MaxLinkCount)
	for i := range t.Links {
		l := &t.Links[i]
		l.Ref = PolyRef(le.Uint32(data[off:]))
		l.Next = le.Uint32(data[off+4:])
		l.Edge = data[off+8]
		l.Side = data[off+9]
		l.BMin = data[off+10]
		l.BMax = data[off+11]
		off += 12
	}

	t.DetailMeshes = make([]PolyDetail, hdr.DetailMeshCount)
	for i := range t.DetailMeshes {
		m := &t.DetailMeshes[i]
		m.VertBase = le.Uint32(data[off:])
		m.TriBase = le.Uint32(data[off+4:])
		m.VertCount = data[off+8]
		m.TriCount = data[off+9]
		off += 12
	}

	t.DetailVerts = make([]float32, hdr.DetailVertCount*3)
	for i := range t.DetailVerts {
		t.DetailVerts[i] = math.Float32frombits(le.Uint32(data[off:]))
		off += 4
	}

	n := int(hdr.DetailTriCount) * 4
	t.DetailTris = make([]uint8, n)
	copy(t.DetailTris, data[off:off+n])
	off += n

	t.BvTree = make([]BvNode, hdr.BvNodeCount)
	for i := range t.BvTree {
		b := &t.BvTree[i]
		b.BMin[0] = le.Uint16(data[off:])
		b.BMin[1] = le.Uint16(data[off+2:])
		b.BMin[2] = le.Uint16(data[off+4:])
		b.BMax[0] = le.Uint16(data[off+6:])
		b.BMax[1] = le.Uint16(data[off+8:])
		b.BMax[2] = le.Uint16(data[off+10:])
		b.I = int32(le.Uint32(data[off+12:]))
		off += 16
	}

	t.OffMeshCons = make([]OffMeshConnection, hdr.OffMeshConCount)
	for i := range t.OffMeshCons {
		o := &t.OffMeshCons[i]
		for k := 0; k < 6; k++ {
			o.Pos[k] = math.Float32frombits(le.Uint32(data[off+k*4:]))
		}
		o.Rad = math.Float32frombits(le.Uint32(data[off+24:]))
		o.Poly = le.Uint16(data[off+28:])
		o.Flags = data[off+30]
		o.Side = data[off+31]
		o.UserID = le.Uint32(data[off+32:])
		off += 36
	}

	return Success
}
