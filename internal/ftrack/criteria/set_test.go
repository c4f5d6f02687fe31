package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet_OrdersCheapFirst(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	set, err := reg.NewSet([]Spec{
		{Name: PT, Min: 0.5, Max: 1e9},
		{Name: Angle2D, Min: 0, Max: 10},
		{Name: ChangeRZRatio, Min: 0.9, Max: 1.1},
		{Name: IPCircleDist, Min: 0, Max: 5},
		{Name: RZRatio, Min: 1, Max: 1.5},
	}, false)
	require.NoError(t, err)

	var names []string
	for _, c := range set.For(Arity3) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{ChangeRZRatio, Angle2D, PT, IPCircleDist}, names)
	assert.Len(t, set.For(Arity2), 1)
	assert.Empty(t, set.For(Arity4))
	assert.Equal(t, []string{RZRatio, ChangeRZRatio, Angle2D, PT, IPCircleDist}, set.Names())
}

func TestNewSet_RejectsInvertedBounds(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	_, err := reg.NewSet([]Spec{{Name: PT, Min: 2, Max: 1}}, false)
	assert.Error(t, err)
}

func TestEvaluate_ShortCircuitWithoutDiagnostics(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	specs := []Spec{
		{Name: ChangeRZRatio, Min: 5, Max: 6}, // fails for any sane track
		{Name: Angle2D, Min: 0, Max: 10},
		{Name: PT, Min: 0.5, Max: 1e9},
	}
	h := helixPtrs()
	parent, child := pair(h, 2)

	set, err := reg.NewSet(specs, false)
	require.NoError(t, err)
	out, err := set.Evaluate(Arity3, parent, child, nil)
	require.NoError(t, err)
	assert.False(t, out.Compatible)
	assert.Equal(t, ChangeRZRatio, out.RejectedBy)
	assert.Empty(t, out.Measures)

	diag, err := reg.NewSet(specs, true)
	require.NoError(t, err)
	out, err = diag.Evaluate(Arity3, parent, child, make([]Measure, 0, 4))
	require.NoError(t, err)
	assert.False(t, out.Compatible)
	assert.Equal(t, ChangeRZRatio, out.RejectedBy)
	require.Len(t, out.Measures, 3, "diagnostic mode evaluates every criterion")
	assert.Equal(t, PT, out.Measures[2].Name)
	assert.InDelta(t, 2.0, out.Measures[2].Value, 1e-6)
}

func TestEvaluate_EmptyArityAcceptsEverything(t *testing.T) {
	set := NewSetOf(false)
	h := helixPtrs()
	parent, child := pair(h, 3)
	out, err := set.Evaluate(Arity4, parent, child, nil)
	require.NoError(t, err)
	assert.True(t, out.Compatible)
}

func TestEvaluate_PropagatesBadSegmentLength(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	c, err := reg.Create(Angle3D, 0, 10)
	require.NoError(t, err)
	set := NewSetOf(true, c)

	h := helixPtrs()
	parent, child := pair(h, 3)
	_, err = set.Evaluate(Arity3, parent, child, nil)
	assert.ErrorIs(t, err, ErrBadSegmentLength)
}
