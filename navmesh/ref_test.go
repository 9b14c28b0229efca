package navmesh

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
)

func TestPolyRefRoundTrip(t *testing.T) {
	m := &NavMesh{}
	st := m.Init(&NavMeshParams{
		Orig:       d3.NewVec3(),
		TileWidth:  10,
		TileHeight: 10,
		MaxTiles:   128,
		MaxPolys:   256,
	})
	if !st.Succeeded() {
		t.Fatalf("init failed with status 0x%x", uint32(st))
	}

	saltMax := uint32(1)<<m.saltBits - 1
	tileMax := uint32(1)<<m.tileBits - 1
	polyMax := uint32(1)<<m.polyBits - 1

	tests := []struct{ salt, tile, poly uint32 }{
		{0, 0, 0},
		{1, 0, 0},
		{1, 5, 17},
		{saltMax, tileMax, polyMax},
		{saltMax, 0, polyMax},
		{42, tileMax, 3},
	}
	for _, tt := range tests {
		ref := m.encodePolyID(tt.salt, tt.tile, tt.poly)
		salt, tile, poly := m.DecodePolyID(ref)
		if salt != tt.salt || tile != tt.tile || poly != tt.poly {
			t.Errorf("decode(encode(%d,%d,%d)) = (%d,%d,%d)",
				tt.salt, tt.tile, tt.poly, salt, tile, poly)
		}
		if got := m.decodePolyIDSalt(ref); got != tt.salt {
			t.Errorf("decodePolyIDSalt = %d, want %d", got, tt.salt)
		}
		if got := m.decodePolyIDTile(ref); got != tt.tile {
			t.Errorf("decodePolyIDTile = %d, want %d", got, tt.tile)
		}
		if got := m.decodePolyIDPoly(ref); got != tt.poly {
			t.Errorf("decodePolyIDPoly = %d, want %d", got, tt.poly)
		}
	}
}

func TestNullRefNeverResolves(t *testing.T) {
	m := &NavMesh{}
	st := m.Init(&NavMeshParams{
		Orig:       d3.NewVec3(),
		TileWidth:  10,
		TileHeight: 10,
		MaxTiles:   8,
		MaxPolys:   8,
	})
	if !st.Succeeded() {
		t.Fatalf("init failed with status 0x%x", uint32(st))
	}

	if m.IsValidPolyRef(0) {
		t.Error("ref 0 must be invalid")
	}
	if _, _, st := m.TileAndPolyByRef(0); !st.Failed() {
		t.Errorf("TileAndPolyByRef(0) should fail, got 0x%x", uint32(st))
	}
	if m.TileByRef(0) != nil {
		t.Error("TileByRef(0) must be nil")
	}
}
