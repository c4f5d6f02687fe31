package cellauto

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

// trackingSpecs is a complete set of bounds that a 2 GeV helix crossing the
// test disks passes comfortably.
var trackingSpecs = []criteria.Spec{
	{Name: criteria.RZRatio, Min: 1, Max: 1.4},
	{Name: criteria.DeltaPhi, Min: 0, Max: 10},
	{Name: criteria.StraightTrackRatio, Min: 0.9, Max: 1.1},
	{Name: criteria.HelixWithIP, Min: 0.5, Max: 2},
	{Name: criteria.PT, Min: 0.5, Max: 1e9},
	{Name: criteria.Angle2D, Min: 0, Max: 10},
	{Name: criteria.Angle3D, Min: 0, Max: 10},
	{Name: criteria.IPCircleDist, Min: 0, Max: 5},
	{Name: criteria.ChangeRZRatio, Min: 0.9, Max: 1.1},
	{Name: criteria.DistToExtrapolation, Min: 0, Max: 0.05},
	{Name: criteria.RChange, Min: 0.5, Max: 2},
	{Name: criteria.NoZigZag, Min: -1, Max: 1e9},
	{Name: criteria.PhiZRatioChange, Min: 0.5, Max: 2},
	{Name: criteria.AngleChange2D, Min: 0.2, Max: 5},
}

func newSet(t *testing.T, specs []criteria.Spec, diagnostics bool) *criteria.Set {
	t.Helper()
	set, err := criteria.DefaultRegistry(criteria.DefaultEnvironment()).NewSet(specs, diagnostics)
	require.NoError(t, err)
	return set
}

func newPool(t *testing.T, hits []hit.Hit, numLayers int) *hit.Pool {
	t.Helper()
	p, err := hit.NewPool(hits, numLayers, hit.PoolOptions{})
	require.NoError(t, err)
	return p
}

// findTracks runs the full chain on a pool: 3-hit segments, automaton,
// cleaning and enumeration from every root.
func findTracks(t *testing.T, set *criteria.Set, p *hit.Pool) (*Graph, []Candidate) {
	t.Helper()
	g, err := NewBuilder(set).Build(p, 3)
	require.NoError(t, err)
	RunAutomaton(g, 0)
	Clean(g, nil)
	require.NoError(t, CheckLinkSymmetry(g))
	return g, Enumerator{}.Collect(g, Roots(g))
}

func keys(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Key()
	}
	sort.Strings(out)
	return out
}

// chain adds one 1-hit segment per entry of layers and returns the indices.
func chain(g *Graph, layers ...int) []int {
	idx := make([]int, len(layers))
	for i, l := range layers {
		h := &hit.Hit{ID: l*100 + i, Layer: l}
		idx[i] = g.Add([]*hit.Hit{h})
	}
	return idx
}
