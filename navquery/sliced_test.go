package navquery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arl/navkit/navmesh"
)

// The sliced API must produce the same polygon sequence as
// the one-shot FindPath, for any slice size.
func TestSlicedMatchesFindPath(t *testing.T) {
	for _, maxIter := range []int32{1, 2, 1000} {
		q, refs := newCorridorQuery(t, corridorOpts{})
		filter := NewQueryFilter()

		want := make([]navmesh.PolyRef, 8)
		nwant, st := q.FindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter, want)
		require.True(t, st.Succeeded())

		st = q.InitSlicedFindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter)
		require.True(t, st.InProgress())

		for st.InProgress() {
			var done int32
			done, st = q.UpdateSlicedFindPath(maxIter)
			if done > maxIter {
				t.Fatalf("update reported %d iterations for a %d cap", done, maxIter)
			}
		}
		require.True(t, st.Succeeded())

		got := make([]navmesh.PolyRef, 8)
		ngot, st := q.FinalizeSlicedFindPath(got)
		require.True(t, st.Succeeded())
		require.Equal(t, want[:nwant], got[:ngot], "maxIter=%d", maxIter)
	}
}

func TestSlicedSameStartEnd(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	st := q.InitSlicedFindPath(refs[1], refs[1], polyCenter(1), polyCenter(1), filter)
	require.True(t, st.Succeeded())
	require.False(t, st.InProgress())

	path := make([]navmesh.PolyRef, 8)
	n, st := q.FinalizeSlicedFindPath(path)
	require.True(t, st.Succeeded())
	require.Equal(t, []navmesh.PolyRef{refs[1]}, path[:n])
}

func TestSlicedInvalidInput(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	st := q.InitSlicedFindPath(0, refs[2], polyCenter(0), polyCenter(2), filter)
	require.True(t, st.Failed())

	// A failed init leaves nothing to update or finalize.
	_, st = q.UpdateSlicedFindPath(10)
	require.True(t, st.Failed())

	path := make([]navmesh.PolyRef, 8)
	_, st = q.FinalizeSlicedFindPath(path)
	require.True(t, st.Failed())
}

func TestSlicedFailsWhenTileRemoved(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	st := q.InitSlicedFindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter)
	require.True(t, st.InProgress())

	// Pull the tile out from under the query.
	nav := q.AttachedNavMesh()
	_, st = nav.RemoveTile(nav.TileRefAt(0, 0, 0))
	require.True(t, st.Succeeded())

	_, st = q.UpdateSlicedFindPath(10)
	require.True(t, st.Failed())
}

func TestSlicedPartialResultWhenBlocked(t *testing.T) {
	const waterFlag = 2
	q, refs := newCorridorQuery(t, corridorOpts{midFlags: waterFlag})
	filter := NewQueryFilter()
	filter.SetExcludeFlags(waterFlag)

	st := q.InitSlicedFindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter)
	require.True(t, st.InProgress())

	for st.InProgress() {
		_, st = q.UpdateSlicedFindPath(10)
	}
	require.True(t, st.Succeeded())
	require.True(t, st&navmesh.PartialResult != 0)

	path := make([]navmesh.PolyRef, 8)
	n, st := q.FinalizeSlicedFindPath(path)
	require.True(t, st.Succeeded())
	require.True(t, st&navmesh.PartialResult != 0)
	require.Equal(t, []navmesh.PolyRef{refs[0]}, path[:n])
}

func TestFinalizeSlicedFindPathPartial(t *testing.T) {
	q, refs := newCorridorQuery(t, corridorOpts{})
	filter := NewQueryFilter()

	st := q.InitSlicedFindPath(refs[0], refs[2], polyCenter(0), polyCenter(2), filter)
	require.True(t, st.InProgress())
	for st.InProgress() {
		_, st = q.UpdateSlicedFindPath(100)
	}
	require.True(t, st.Succeeded())

	// Replanning against a previous path that stopped at P1: the result is
	// truncated at P1, the furthest polygon of the old path the new search
	// visited.
	existing := []navmesh.PolyRef{refs[0], refs[1]}
	path := make([]navmesh.PolyRef, 8)
	n, st := q.FinalizeSlicedFindPathPartial(existing, path)
	require.True(t, st.Succeeded())
	require.Equal(t, []navmesh.PolyRef{refs[0], refs[1]}, path[:n])
}
