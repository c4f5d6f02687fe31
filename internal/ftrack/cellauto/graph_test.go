package cellauto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/testutil"
)

func TestNewHitGraph(t *testing.T) {
	hits := testutil.DefaultHelix().Hits(testutil.DiskZ[:3], 1)
	hits = append(hits, hit.Hit{Layer: 1, Z: 320})
	g := NewHitGraph(newPool(t, hits, 3))

	assert.Equal(t, 1, g.Length())
	assert.Equal(t, 3, g.NumLayers())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 4, g.Live())
	assert.Len(t, g.Layer(0), 1)
	assert.Len(t, g.Layer(1), 2)
	assert.Nil(t, g.Layer(3))

	for i, s := range g.All() {
		require.Len(t, s.Hits, 1)
		assert.Equal(t, s.Layer(), s.OuterLayer())
		assert.Same(t, g.Segment(i), s)
	}
}

func TestGraph_AddPanicsOnWrongLength(t *testing.T) {
	g := NewGraph(2, 4)
	assert.Panics(t, func() { g.Add([]*hit.Hit{{Layer: 0}}) })
}

func TestGraph_RemoveRepairsLinks(t *testing.T) {
	g := NewGraph(1, 3)
	s := chain(g, 0, 1, 1, 2)
	g.Link(s[0], s[1])
	g.Link(s[0], s[2])
	g.Link(s[1], s[3])
	g.Link(s[2], s[3])
	require.NoError(t, CheckLinkSymmetry(g))

	g.remove(s[1])
	assert.True(t, g.Segment(s[1]).Removed())
	assert.Equal(t, 3, g.Live())
	assert.Equal(t, []int{s[2]}, g.Segment(s[0]).Children)
	assert.Equal(t, []int{s[2]}, g.Segment(s[3]).Parents)
	assert.NoError(t, CheckLinkSymmetry(g))

	// Tombstones stay in the buckets until compaction.
	assert.Len(t, g.Layer(1), 2)
	g.compact()
	assert.Equal(t, []int{s[2]}, g.Layer(1))

	var live []int
	for i := range g.All() {
		live = append(live, i)
	}
	assert.Equal(t, []int{s[0], s[2], s[3]}, live)
}

func TestCheckLinkSymmetry_DetectsOneSidedLink(t *testing.T) {
	g := NewGraph(1, 2)
	s := chain(g, 0, 1)
	g.segs[s[0]].Children = append(g.segs[s[0]].Children, s[1])
	assert.Error(t, CheckLinkSymmetry(g))

	g.segs[s[1]].Parents = append(g.segs[s[1]].Parents, s[0])
	assert.NoError(t, CheckLinkSymmetry(g))

	g.segs[s[1]].removed = true
	assert.Error(t, CheckLinkSymmetry(g))
}
