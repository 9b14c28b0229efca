package navquery

import (
	"math"
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"

	"github.com/arl/navkit/navmesh"
)

// Casting at a solid wall reports the hit parameter, the
// wall normal and the single polygon visited.
func TestRaycastHitsWall(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	path := make([]navmesh.PolyRef, 8)
	hit, st := q.Raycast(refs[0], polyCenter(0), d3.NewVec3XYZ(-1, 0, 1), filter, 0, 0, path)
	require.True(t, st.Succeeded())

	// The wall at x=0 sits halfway along the 2-unit segment.
	require.InDelta(t, 0.5, hit.T, 1e-5)
	require.Equal(t, 1, hit.PathCount)
	require.Equal(t, refs[0], hit.Path[0])
	require.InDelta(t, 1, hit.HitNormal[0], 1e-5)
	require.InDelta(t, 0, hit.HitNormal[2], 1e-5)
}

func TestRaycastClearCorridor(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	path := make([]navmesh.PolyRef, 8)
	hit, st := q.Raycast(refs[0], polyCenter(0), polyCenter(2), filter, 0, 0, path)
	require.True(t, st.Succeeded())

	require.EqualValues(t, math.MaxFloat32, hit.T)
	require.Equal(t, []navmesh.PolyRef{refs[0], refs[1], refs[2]}, hit.Path[:hit.PathCount])
}

// A segment fully inside the start polygon never leaves it.
func TestRaycastContainedSegment(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	path := make([]navmesh.PolyRef, 8)
	hit, st := q.Raycast(refs[0], d3.NewVec3XYZ(0.5, 0, 1), d3.NewVec3XYZ(1.5, 0, 1), filter, 0, 0, path)
	require.True(t, st.Succeeded())

	require.EqualValues(t, math.MaxFloat32, hit.T)
	require.Equal(t, []navmesh.PolyRef{refs[0]}, hit.Path[:hit.PathCount])
}

// A filtered-out neighbour acts as a wall.
func TestRaycastStopsAtFilteredPoly(t *testing.T) {
	const waterFlag = 2
	q, refs := newCorridorQuery(t, corridorOpts{midFlags: waterFlag})
	filter := NewQueryFilter()
	filter.SetExcludeFlags(waterFlag)

	path := make([]navmesh.PolyRef, 8)
	hit, st := q.Raycast(refs[0], polyCenter(0), polyCenter(2), filter, 0, 0, path)
	require.True(t, st.Succeeded())

	// Stopped at the P0/P1 border, a quarter of the way.
	require.InDelta(t, 0.25, hit.T, 1e-5)
	require.Equal(t, []navmesh.PolyRef{refs[0]}, hit.Path[:hit.PathCount])
	require.InDelta(t, -1, hit.HitNormal[0], 1e-5)
}

func TestRaycastCost(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	hit, st := q.Raycast(refs[0], polyCenter(0), polyCenter(2), filter, RaycastUseCosts, 0, nil)
	require.True(t, st.Succeeded())
	require.InDelta(t, 4, hit.PathCost, 1e-4)
}

func TestRaycastInvalidRef(t *testing.T) {
	q, _ := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	if _, st := q.Raycast(0, polyCenter(0), polyCenter(2), filter, 0, 0, nil); !st.Failed() {
		t.Error("zero start ref should fail")
	}
}
