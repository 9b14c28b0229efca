package navmesh

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"
)

// buildSquareTileData returns the data blob of a tile holding a single
// square polygon of side 4, placed at grid location (tx, ty). Boundary
// edges facing a potential neighbour tile carry portal codes.
func buildSquareTileData(t *testing.T, tx, ty int32) []byte {
	t.Helper()

	bminX := float32(tx) * 4
	bminZ := float32(ty) * 4

	params := &CreateParams{
		// One square, counter-clockwise seen from above.
		Verts: []uint16{
			0, 0, 0,
			0, 0, 4,
			4, 0, 4,
			4, 0, 0,
		},
		VertCount: 4,
		Polys: []uint16{
			// verts
			0, 1, 2, 3, NullIndex, NullIndex,
			// neis: edge 0 faces x-, edge 1 z+, edge 2 x+, edge 3 z-
			0x8000 | 0, 0x8000 | 1, 0x8000 | 2, 0x8000 | 3,
			NullIndex, NullIndex,
		},
		PolyFlags: []uint16{1},
		PolyAreas: []uint8{0},
		PolyCount: 1,
		Nvp:       6,

		TileX:          tx,
		TileY:          ty,
		BMin:           [3]float32{bminX, 0, bminZ},
		BMax:           [3]float32{bminX + 4, 1, bminZ + 4},
		WalkableHeight: 2,
		WalkableRadius: 0.6,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    true,
	}

	data, err := CreateTileData(params)
	require.NoError(t, err)
	return data
}

func newTestNavMesh(t *testing.T) *NavMesh {
	t.Helper()
	m := &NavMesh{}
	st := m.Init(&NavMeshParams{
		Orig:       d3.NewVec3(),
		TileWidth:  4,
		TileHeight: 4,
		MaxTiles:   16,
		MaxPolys:   16,
	})
	if !st.Succeeded() {
		t.Fatalf("navmesh init failed with status 0x%x", uint32(st))
	}
	return m
}

func TestInitRejectsTooFewSaltBits(t *testing.T) {
	m := &NavMesh{}
	st := m.Init(&NavMeshParams{
		Orig:       d3.NewVec3(),
		TileWidth:  4,
		TileHeight: 4,
		MaxTiles:   1 << 16,
		MaxPolys:   1 << 16,
	})
	if !st.Failed() || st&InvalidParam == 0 {
		t.Fatalf("want Failure|InvalidParam for oversized capacity, got 0x%x", uint32(st))
	}
}

func TestAddTileRejectsBadMagic(t *testing.T) {
	m := newTestNavMesh(t)
	data := buildSquareTileData(t, 0, 0)
	data[0] ^= 0xff

	_, st := m.AddTile(data, 0, 0)
	if !st.Failed() || st&WrongMagic == 0 {
		t.Fatalf("want Failure|WrongMagic, got 0x%x", uint32(st))
	}
}

func TestAddTileRejectsOccupiedLocation(t *testing.T) {
	m := newTestNavMesh(t)

	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())

	_, st = m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	if !st.Failed() {
		t.Fatalf("second add at same location should fail, got 0x%x", uint32(st))
	}
}

func TestTileLookups(t *testing.T) {
	m := newTestNavMesh(t)

	ref, st := m.AddTile(buildSquareTileData(t, 1, 2), 0, 0)
	require.True(t, st.Succeeded())
	require.NotZero(t, ref)

	tile := m.TileAt(1, 2, 0)
	if tile == nil {
		t.Fatal("TileAt(1,2,0) returned nil")
	}
	if got := m.TileRefAt(1, 2, 0); got != ref {
		t.Errorf("TileRefAt = 0x%x, want 0x%x", got, ref)
	}
	if got := m.TileByRef(ref); got != tile {
		t.Errorf("TileByRef returned a different tile")
	}
	if got := m.TileRef(tile); got != ref {
		t.Errorf("TileRef = 0x%x, want 0x%x", got, ref)
	}
	if m.TileAt(3, 3, 0) != nil {
		t.Error("TileAt on empty location should return nil")
	}
}

// Two tiles added at (0,0) and (1,0), in either order, end
// up with one bidirectional portal link pair along their shared edge.
func TestPortalLinking(t *testing.T) {
	orders := []struct {
		name  string
		tiles [][2]int32
	}{
		{"left-then-right", [][2]int32{{0, 0}, {1, 0}}},
		{"right-then-left", [][2]int32{{1, 0}, {0, 0}}},
	}

	for _, order := range orders {
		t.Run(order.name, func(t *testing.T) {
			m := newTestNavMesh(t)
			for _, loc := range order.tiles {
				_, st := m.AddTile(buildSquareTileData(t, loc[0], loc[1]), 0, 0)
				require.True(t, st.Succeeded())
			}

			left := m.TileAt(0, 0, 0)
			right := m.TileAt(1, 0, 0)
			require.NotNil(t, left)
			require.NotNil(t, right)

			leftRef := m.PolyRefBase(left)
			rightRef := m.PolyRefBase(right)

			findSide := func(tile *MeshTile, want PolyRef) *Link {
				for i := tile.Polys[0].FirstLink; i != NullLink; i = tile.Links[i].Next {
					if tile.Links[i].Ref == want {
						return &tile.Links[i]
					}
				}
				return nil
			}

			l2r := findSide(left, rightRef)
			if l2r == nil {
				t.Fatal("left tile has no link to right tile")
			}
			r2l := findSide(right, leftRef)
			if r2l == nil {
				t.Fatal("right tile has no link to left tile")
			}

			if l2r.Side != 0 {
				t.Errorf("left->right link side = %d, want 0", l2r.Side)
			}
			if r2l.Side != 4 {
				t.Errorf("right->left link side = %d, want 4", r2l.Side)
			}

			// The shared edge is fully covered from both sides.
			if l2r.BMin != 0 || l2r.BMax != 255 {
				t.Errorf("left->right sub-range = (%d,%d), want (0,255)", l2r.BMin, l2r.BMax)
			}
			if r2l.BMin != 0 || r2l.BMax != 255 {
				t.Errorf("right->left sub-range = (%d,%d), want (0,255)", r2l.BMin, r2l.BMax)
			}
		})
	}
}

func TestRemoveTileUnlinksNeighbours(t *testing.T) {
	m := newTestNavMesh(t)

	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	rightTileRef, st := m.AddTile(buildSquareTileData(t, 1, 0), 0, 0)
	require.True(t, st.Succeeded())

	left := m.TileAt(0, 0, 0)
	rightBase := m.PolyRefBase(m.TileAt(1, 0, 0))

	data, st := m.RemoveTile(rightTileRef)
	require.True(t, st.Succeeded())
	require.NotNil(t, data)

	for i := left.Polys[0].FirstLink; i != NullLink; i = left.Links[i].Next {
		if left.Links[i].Ref == rightBase {
			t.Fatal("left tile still links into removed right tile")
		}
	}
}

func TestRemoveTileFreeData(t *testing.T) {
	m := newTestNavMesh(t)

	ref, st := m.AddTile(buildSquareTileData(t, 0, 0), TileFreeData, 0)
	require.True(t, st.Succeeded())

	// The store owns the buffer, nothing is handed back.
	data, st := m.RemoveTile(ref)
	require.True(t, st.Succeeded())
	require.Nil(t, data)
}

// A PolyRef taken before removeTile must not resolve after
// the slot is reused, because the slot's salt advanced.
func TestStaleRefAfterRemoveAdd(t *testing.T) {
	m := newTestNavMesh(t)

	tileRef, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())

	oldRef := m.PolyRefBase(m.TileAt(0, 0, 0))
	require.True(t, m.IsValidPolyRef(oldRef))

	_, st = m.RemoveTile(tileRef)
	require.True(t, st.Succeeded())
	require.False(t, m.IsValidPolyRef(oldRef))

	_, st = m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())

	if m.IsValidPolyRef(oldRef) {
		t.Fatal("stale ref resolves after remove+add cycle")
	}
	if _, _, st := m.TileAndPolyByRef(oldRef); !st.Failed() {
		t.Fatalf("TileAndPolyByRef on stale ref should fail, got 0x%x", uint32(st))
	}
}

// Re-adding a tile with lastRef restores the slot and its salt, so refs
// handed out before the removal stay valid.
func TestAddTilePreservesLastRef(t *testing.T) {
	m := newTestNavMesh(t)

	tileRef, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	oldPolyRef := m.PolyRefBase(m.TileAt(0, 0, 0))

	data, st := m.RemoveTile(tileRef)
	require.True(t, st.Succeeded())

	newTileRef, st := m.AddTile(data, 0, tileRef)
	require.True(t, st.Succeeded())
	if newTileRef != tileRef {
		t.Fatalf("restored tile ref = 0x%x, want 0x%x", newTileRef, tileRef)
	}
	if !m.IsValidPolyRef(oldPolyRef) {
		t.Fatal("poly ref should stay valid after lastRef restore")
	}
}

func TestAddTileLastRefSlotNotFree(t *testing.T) {
	m := newTestNavMesh(t)

	tileRef, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())

	// The slot is occupied, so restoring into it must fail.
	_, st = m.AddTile(buildSquareTileData(t, 1, 0), 0, tileRef)
	if !st.Failed() {
		t.Fatalf("add with occupied lastRef slot should fail, got 0x%x", uint32(st))
	}
}

func TestTileStateRoundTrip(t *testing.T) {
	m := newTestNavMesh(t)

	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile := m.TileAt(0, 0, 0)

	tile.Polys[0].Flags = 0x0008
	tile.Polys[0].SetArea(7)

	buf := make([]byte, m.GetTileStateSize(tile))
	require.True(t, m.StoreTileState(tile, buf).Succeeded())

	tile.Polys[0].Flags = 0xdead
	tile.Polys[0].SetArea(1)

	require.True(t, m.RestoreTileState(tile, buf).Succeeded())
	if tile.Polys[0].Flags != 0x0008 {
		t.Errorf("restored flags = 0x%x, want 0x0008", tile.Polys[0].Flags)
	}
	if tile.Polys[0].Area() != 7 {
		t.Errorf("restored area = %d, want 7", tile.Polys[0].Area())
	}
}

func TestTileStateRejectsStaleSnapshot(t *testing.T) {
	m := newTestNavMesh(t)

	tileRef, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile := m.TileAt(0, 0, 0)

	buf := make([]byte, m.GetTileStateSize(tile))
	require.True(t, m.StoreTileState(tile, buf).Succeeded())

	// Cycle the slot: the snapshot now refers to a dead tile.
	_, st = m.RemoveTile(tileRef)
	require.True(t, st.Succeeded())
	_, st = m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile = m.TileAt(0, 0, 0)

	if st := m.RestoreTileState(tile, buf); !st.Failed() {
		t.Fatalf("restore of stale snapshot should fail, got 0x%x", uint32(st))
	}
}

func TestTileStateBufferTooSmall(t *testing.T) {
	m := newTestNavMesh(t)

	_, st := m.AddTile(buildSquareTileData(t, 0, 0), 0, 0)
	require.True(t, st.Succeeded())
	tile := m.TileAt(0, 0, 0)

	buf := make([]byte, m.GetTileStateSize(tile)-1)
	if st := m.StoreTileState(tile, buf); st&BufferTooSmall == 0 {
		t.Fatalf("want BufferTooSmall, got 0x%x", uint32(st))
	}
}

func TestCalcTileLoc(t *testing.T) {
	m := newTestNavMesh(t)

	tests := []struct {
		pos    d3.Vec3
		tx, ty int32
	}{
		{d3.NewVec3XYZ(0.5, 0, 0.5), 0, 0},
		{d3.NewVec3XYZ(5, 0, 1), 1, 0},
		{d3.NewVec3XYZ(-0.5, 0, 9), -1, 2},
	}
	for _, tt := range tests {
		tx, ty := m.CalcTileLoc(tt.pos)
		if tx != tt.tx || ty != tt.ty {
			t.Errorf("CalcTileLoc(%v) = (%d,%d), want (%d,%d)", tt.pos, tx, ty, tt.tx, tt.ty)
		}
	}
}
