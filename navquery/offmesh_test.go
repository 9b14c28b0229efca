package navquery

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"

	"github.com/arl/navkit/navmesh"
)

// The corridor fixture with offMesh: true carries a bidirectional
// connection between the centers of P0 and P2, stored as poly index 3.

func TestOffMeshConnectionLinked(t *testing.T) {
	m, refs := buildCorridor(t, corridorOpts{offMesh: true})

	tile := m.TileAt(0, 0, 0)
	require.EqualValues(t, 4, tile.Header.PolyCount)
	require.EqualValues(t, 1, tile.Header.OffMeshConCount)

	omRef := m.PolyRefBase(tile) | 3
	omPoly := tile.Polys[3]
	require.Equal(t, navmesh.PolyTypeOffMeshConnection, omPoly.Type())
	require.NotEqual(t, navmesh.NullLink, omPoly.FirstLink)

	// The connection links out to both land polygons.
	targets := map[navmesh.PolyRef]bool{}
	for i := omPoly.FirstLink; i != navmesh.NullLink; i = tile.Links[i].Next {
		targets[tile.Links[i].Ref] = true
	}
	require.True(t, targets[refs[0]], "no link to start land polygon")
	require.True(t, targets[refs[2]], "no link to end land polygon")

	// And both land polygons link back.
	hasLinkTo := func(from navmesh.PolyRef, to navmesh.PolyRef) bool {
		_, _, ip := m.DecodePolyID(from)
		for i := tile.Polys[ip].FirstLink; i != navmesh.NullLink; i = tile.Links[i].Next {
			if tile.Links[i].Ref == to {
				return true
			}
		}
		return false
	}
	require.True(t, hasLinkTo(refs[0], omRef))
	require.True(t, hasLinkTo(refs[2], omRef))
}

func TestFindPathThroughOffMeshConnection(t *testing.T) {
	const waterFlag = 2
	// Flood the middle polygon: the only way from P0 to P2 is the jump.
	m, refs := buildCorridor(t, corridorOpts{offMesh: true, midFlags: waterFlag})
	q, st := NewNavMeshQuery(m, 128)
	require.True(t, st.Succeeded())

	filter := NewQueryFilter()
	filter.SetExcludeFlags(waterFlag)

	omRef := m.PolyRefBase(m.TileAt(0, 0, 0)) | 3

	path := make([]navmesh.PolyRef, 8)
	n, st := q.FindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter, path)
	require.True(t, st.Succeeded())
	require.False(t, st&navmesh.PartialResult != 0)
	require.Equal(t, []navmesh.PolyRef{refs[0], omRef, refs[2]}, path[:n])
}

func TestClosestPointOnOffMeshConnection(t *testing.T) {
	m, _ := buildCorridor(t, corridorOpts{offMesh: true})
	q, st := NewNavMeshQuery(m, 128)
	require.True(t, st.Succeeded())

	omRef := m.PolyRefBase(m.TileAt(0, 0, 0)) | 3

	// Equidistant from both endpoints: the midpoint.
	closest := d3.NewVec3()
	over := true
	require.True(t, q.ClosestPointOnPoly(omRef, d3.NewVec3XYZ(3, 0, 1), closest, &over).Succeeded())
	require.False(t, over)
	require.InDelta(t, 3, closest[0], 1e-5)
	require.InDelta(t, 1, closest[2], 1e-5)
}
