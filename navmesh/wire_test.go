package navmesh

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"
)

func TestTileDataRoundTrip(t *testing.T) {
	data := buildSquareTileData(t, 0, 0)

	hdr, st := decodeHeader(data)
	require.True(t, st.Succeeded())
	require.Equal(t, navMeshMagic, hdr.Magic)
	require.Equal(t, navMeshVersion, hdr.Version)
	require.EqualValues(t, 1, hdr.PolyCount)
	require.EqualValues(t, 4, hdr.VertCount)
	require.EqualValues(t, 1, hdr.DetailMeshCount)
	require.EqualValues(t, 2, hdr.DetailTriCount) // square fan = 2 tris
	require.EqualValues(t, 1, hdr.BvNodeCount)    // single-poly tree = one leaf

	var tile MeshTile
	require.True(t, tile.unserialize(hdr, data[meshHeaderSize:]).Succeeded())

	require.Len(t, tile.Polys, 1)
	require.EqualValues(t, 4, tile.Polys[0].VertCount)
	require.Equal(t, PolyTypeGround, tile.Polys[0].Type())
	require.Len(t, tile.Verts, 4*3)
	require.Len(t, tile.DetailTris, 2*4)

	// The polygon corners dequantize back to world units.
	want := []float32{
		0, 0, 0,
		0, 0, 4,
		4, 0, 4,
		4, 0, 0,
	}
	for i, f := range want {
		require.InDelta(t, f, tile.Verts[i], 1e-6)
	}
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	if _, st := decodeHeader(make([]byte, meshHeaderSize-1)); !st.Failed() {
		t.Fatalf("short buffer should be rejected, got 0x%x", uint32(st))
	}
}

func TestUnserializeRejectsTruncatedBody(t *testing.T) {
	data := buildSquareTileData(t, 0, 0)
	hdr, st := decodeHeader(data)
	require.True(t, st.Succeeded())

	var tile MeshTile
	if st := tile.unserialize(hdr, data[meshHeaderSize:len(data)-4]); !st.Failed() {
		t.Fatalf("truncated body should be rejected, got 0x%x", uint32(st))
	}
}

func TestQueryPolygonsInTileBvTree(t *testing.T) {
	m := newTestNavMesh(t)
	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile := m.TileAt(0, 0, 0)
	require.NotNil(t, tile.BvTree)

	var polys [8]PolyRef

	// A box around the tile center finds the polygon.
	n := m.queryPolygonsInTile(tile,
		d3.NewVec3XYZ(1, -1, 1), d3.NewVec3XYZ(3, 1, 3), polys[:], 8)
	require.EqualValues(t, 1, n)
	require.Equal(t, m.PolyRefBase(tile), polys[0])

	// The linear fallback agrees with the BV traversal.
	saved := tile.BvTree
	tile.BvTree = nil
	n = m.queryPolygonsInTile(tile,
		d3.NewVec3XYZ(1, -1, 1), d3.NewVec3XYZ(3, 1, 3), polys[:], 8)
	tile.BvTree = saved
	require.EqualValues(t, 1, n)
	require.Equal(t, m.PolyRefBase(tile), polys[0])
}

func TestFindNearestPolyInTile(t *testing.T) {
	m := newTestNavMesh(t)
	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile := m.TileAt(0, 0, 0)

	nearestPt := d3.NewVec3()
	ref := m.FindNearestPolyInTile(tile,
		d3.NewVec3XYZ(2, 0.5, 2), d3.NewVec3XYZ(1, 1, 1), nearestPt)
	require.Equal(t, m.PolyRefBase(tile), ref)
	require.InDelta(t, 2, nearestPt[0], 1e-5)
	require.InDelta(t, 0, nearestPt[1], 1e-5)
	require.InDelta(t, 2, nearestPt[2], 1e-5)
}
