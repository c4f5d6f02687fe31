package cellauto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/testutil"
)

func TestBuild_SingleHelix(t *testing.T) {
	hits := testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1)
	b := NewBuilder(newSet(t, trackingSpecs, false))
	g, err := b.Build(newPool(t, hits, 4), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Length())
	assert.Equal(t, 2, g.Live())
	require.Len(t, g.Layer(0), 1)
	inner := g.Segment(g.Layer(0)[0])
	require.Len(t, inner.Children, 1)
	outer := g.Segment(inner.Children[0])
	assert.Equal(t, []int{1, 2, 3}, []int{outer.Hits[0].ID, outer.Hits[1].ID, outer.Hits[2].ID})
	assert.Equal(t, []int{g.Layer(0)[0]}, outer.Parents)

	assert.Equal(t, 6, b.Stats.Evaluated)
	assert.Equal(t, 6, b.Stats.Linked)
	assert.Empty(t, b.Stats.Rejected)
}

func TestBuild_SharesOverlappingHits(t *testing.T) {
	hits := testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1)
	g, err := NewBuilder(newSet(t, trackingSpecs, false)).Build(newPool(t, hits, 4), 2)
	require.NoError(t, err)

	for _, s := range g.All() {
		for _, c := range s.Children {
			child := g.Segment(c)
			assert.Same(t, s.Hits[1], child.Hits[0])
			assert.Equal(t, s.Layer()+1, child.Layer())
		}
	}
}

func TestBuild_Diagnostics(t *testing.T) {
	hits := testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1)
	b := NewBuilder(newSet(t, trackingSpecs, true))

	var stages []int
	counts := map[int]int{}
	b.OnMeasures = func(stage int, parent, child *Segment, measures []criteria.Measure) {
		stages = append(stages, stage)
		counts[stage] = len(measures)
		assert.Len(t, parent.Hits, stage)
		assert.Len(t, child.Hits, stage)
	}
	_, err := b.Build(newPool(t, hits, 4), 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 1, 2, 2, 3}, stages)
	assert.Equal(t, map[int]int{1: 4, 2: 5, 3: 5}, counts)
}

func TestBuild_InvalidLength(t *testing.T) {
	p := newPool(t, testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1), 4)
	b := NewBuilder(newSet(t, trackingSpecs, false))
	_, err := b.Build(p, 0)
	assert.Error(t, err)
	_, err = b.Build(p, 4)
	assert.Error(t, err)
}

// wrongArity claims to be a 2-hit criterion but demands 2-hit segments.
type wrongArity struct{}

func (wrongArity) Name() string               { return "wrong" }
func (wrongArity) Arity() criteria.Arity      { return criteria.Arity2 }
func (wrongArity) Cost() criteria.Cost        { return criteria.CostCheap }
func (wrongArity) Bounds() (float64, float64) { return 0, 1 }
func (wrongArity) AreCompatible(parent, child []*hit.Hit) (criteria.Verdict, error) {
	if len(parent) != 2 || len(child) != 2 {
		return criteria.Verdict{}, &criteria.BadSegmentLengthError{
			Criterion: "wrong", Want: 2, Parent: len(parent), Child: len(child),
		}
	}
	return criteria.Verdict{Compatible: true}, nil
}

func TestBuild_PropagatesBadSegmentLength(t *testing.T) {
	p := newPool(t, testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1), 4)
	b := NewBuilder(criteria.NewSetOf(false, wrongArity{}))
	_, err := b.Build(p, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, criteria.ErrBadSegmentLength)
}

func TestBuild_DegenerateStraightTrack(t *testing.T) {
	// phi0 = 0 keeps every hit on the x axis, so every circle fit is exactly
	// collinear and every turning angle is exactly zero.
	straight := testutil.Helix{PtGeV: 2, BzTesla: 3.5, TanLambda: 5}
	hits := straight.Hits(testutil.DiskZ[:4], 1)
	for _, h := range hits {
		require.Zero(t, h.Y)
	}

	b := NewBuilder(newSet(t, trackingSpecs, true))
	degenerate := 0
	b.OnMeasures = func(_ int, _, _ *Segment, measures []criteria.Measure) {
		for _, m := range measures {
			if m.Degenerate {
				assert.Equal(t, criteria.SentinelValue, m.Value, m.Name)
				degenerate++
			}
		}
	}
	_, cands := findTracksWith(t, b, newPool(t, hits, 4))

	require.Len(t, cands, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, cands[0].Layers())
	assert.Positive(t, degenerate)
}

func TestBuild_RejectionCounts(t *testing.T) {
	hits := testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1)
	hits[2] = testutil.Rotate(hits[2], math.Pi/2)

	b := NewBuilder(newSet(t, trackingSpecs, false))
	g, err := b.Build(newPool(t, hits, 4), 3)
	require.NoError(t, err)
	assert.Zero(t, g.Live())

	total := 0
	for _, n := range b.Stats.Rejected {
		total += n
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, b.Stats.Linked)
}

func findTracksWith(t *testing.T, b *Builder, p *hit.Pool) (*Graph, []Candidate) {
	t.Helper()
	g, err := b.Build(p, 3)
	require.NoError(t, err)
	RunAutomaton(g, 0)
	Clean(g, nil)
	require.NoError(t, CheckLinkSymmetry(g))
	return g, Enumerator{}.Collect(g, Roots(g))
}
