package criteria

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/testutil"
)

// helixPtrs returns four hits on the default 2 GeV helix, one per disk.
func helixPtrs() []*hit.Hit {
	return testutil.Ptrs(testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1))
}

// pair splits a hit chain into the parent/child segments of length k.
func pair(h []*hit.Hit, k int) (parent, child []*hit.Hit) {
	return h[:k], h[1 : k+1]
}

func TestRegistry_Catalog(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())

	assert.Equal(t, []string{"2Hit", "3Hit", "4Hit"}, reg.Types())
	assert.Equal(t, []string{
		DeltaPhi, DeltaRho, HelixWithIP, RZRatio, StraightTrackRatio,
	}, reg.Names("2Hit"))
	assert.Len(t, reg.Names("3Hit"), 5)
	assert.Len(t, reg.Names("4Hit"), 7)
	assert.Empty(t, reg.Names("5Hit"))
	assert.Len(t, reg.AllNames(), 17)
	assert.Len(t, reg.List(), 17)

	for _, info := range reg.List() {
		assert.InDelta(t, 1.0, info.Left+info.Right, 1e-12, info.Name)
	}
}

func TestRegistry_CreateUnknown(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())

	_, err := reg.Create("Crit9_Nonsense", 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCriterion))

	_, _, err = reg.LeftRight("Crit9_Nonsense")
	assert.True(t, errors.Is(err, ErrUnknownCriterion))

	_, err = reg.NewSet([]Spec{{Name: RZRatio, Min: 1, Max: 2}, {Name: "nope"}}, false)
	assert.True(t, errors.Is(err, ErrUnknownCriterion))
}

func TestRegistry_LeftRight(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())

	left, right, err := reg.LeftRight(PT)
	require.NoError(t, err)
	assert.Equal(t, 1.0, left)
	assert.Equal(t, 0.0, right)

	left, right, err = reg.LeftRight(Angle3D)
	require.NoError(t, err)
	assert.Equal(t, 0.0, left)
	assert.Equal(t, 1.0, right)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := NewRegistry(DefaultEnvironment())
	assert.Empty(t, reg.Types())

	reg.Register(define("Custom", Arity3, CostCheap, PassDegenerate, false, 0.5, 0.5, "v1",
		static(measureAngle2D)))
	reg.Register(define("Custom", Arity3, CostCheap, PassDegenerate, false, 0.5, 0.5, "v2",
		static(measureAngle2D)))

	def, ok := reg.Get("Custom")
	require.True(t, ok)
	assert.Equal(t, "v2", def.Description)
	assert.Equal(t, []string{"3Hit"}, reg.Types())
}

func TestArityMismatch(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	h := helixPtrs()

	for _, name := range reg.AllNames() {
		c, err := reg.Create(name, 0, 1)
		require.NoError(t, err)

		for k := 1; k <= 3; k++ {
			if k == c.Arity().SegmentLength() {
				continue
			}
			parent, child := pair(h, k)
			_, err := c.AreCompatible(parent, child)
			if !errors.Is(err, ErrBadSegmentLength) {
				t.Errorf("%s on %d-hit segments: expected ErrBadSegmentLength, got %v", name, k, err)
			}
			var bad *BadSegmentLengthError
			if errors.As(err, &bad) && bad.Want != c.Arity().SegmentLength() {
				t.Errorf("%s: Want = %d", name, bad.Want)
			}
		}
	}
}

func TestArityMismatch_3HitCriterionOn2HitSegments(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	h := helixPtrs()

	// Crit4_* criteria compare two 3-hit segments.
	c, err := reg.Create(DistToExtrapolation, 0, 1)
	require.NoError(t, err)
	parent, child := pair(h, 2)
	_, err = c.AreCompatible(parent, child)
	require.ErrorIs(t, err, ErrBadSegmentLength)
	assert.Contains(t, err.Error(), "2 hit parent")
}

func TestHelixMeasures(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	h := helixPtrs()

	tests := []struct {
		name string
		want float64
		tol  float64
	}{
		{RZRatio, 1.0198, 1e-3},
		{StraightTrackRatio, 1.0, 1e-3},
		{DeltaPhi, 0.3607, 1e-3},
		{HelixWithIP, 1.0, 1e-6},
		{DeltaRho, 24.0, 0.01},
		{ChangeRZRatio, 1.0, 1e-9},
		{PT, 2.0, 1e-6},
		{Angle2D, 0.7214, 1e-3},
		{Angle3D, 0.1415, 1e-3},
		{IPCircleDist, 0.0, 1e-6},
		{AngleChange2D, 1.0, 1e-6},
		{AngleChange3D, 1.0, 1e-6},
		{DistToExtrapolation, 0.0, 1e-9},
		{PhiZRatioChange, 1.0, 1e-6},
		{DistOfCircleCenters, 0.0, 1e-4},
		{NoZigZag, 0.5205, 1e-3},
		{RChange, 1.0, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := reg.Create(tt.name, tt.want-1, tt.want+1)
			require.NoError(t, err)
			parent, child := pair(h, c.Arity().SegmentLength())
			v, err := c.AreCompatible(parent, child)
			require.NoError(t, err)
			assert.True(t, v.Compatible)
			assert.Equal(t, tt.name, v.Measure.Name)
			assert.False(t, v.Measure.Degenerate)
			assert.InDelta(t, tt.want, v.Measure.Value, tt.tol)
		})
	}
}

func TestBoundsAreInclusiveAndDoNotDependOnMeasure(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	h := helixPtrs()
	parent, child := pair(h, 1)

	rz, err := reg.Create(RZRatio, 0, math.Inf(1))
	require.NoError(t, err)
	v, err := rz.AreCompatible(parent, child)
	require.NoError(t, err)
	value := v.Measure.Value

	exact, err := reg.Create(RZRatio, value, value)
	require.NoError(t, err)
	v, err = exact.AreCompatible(parent, child)
	require.NoError(t, err)
	assert.True(t, v.Compatible)

	tight, err := reg.Create(RZRatio, 0, value-1e-6)
	require.NoError(t, err)
	v, err = tight.AreCompatible(parent, child)
	require.NoError(t, err)
	assert.False(t, v.Compatible)
	assert.Equal(t, value, v.Measure.Value)
}

func TestDegenerateGeometry(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())

	// Four collinear hits along a straight line from the origin.
	line := testutil.Helix{Phi0: 0.4, TanLambda: 5}
	h := testutil.Ptrs(line.Hits(testutil.DiskZ[:4], 1))

	for _, name := range []string{PT, IPCircleDist, DistToExtrapolation, RChange, PhiZRatioChange, DistOfCircleCenters, HelixWithIP} {
		t.Run(name, func(t *testing.T) {
			c, err := reg.Create(name, 0.5, 1)
			require.NoError(t, err)
			parent, child := pair(h, c.Arity().SegmentLength())
			v, err := c.AreCompatible(parent, child)
			require.NoError(t, err)
			assert.True(t, v.Compatible, "degenerate circle must skip the bound check")
			assert.True(t, v.Measure.Degenerate)
			assert.Equal(t, SentinelValue, v.Measure.Value)
		})
	}
}

func TestDegenerateGeometry_FailPolicy(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	a := hit.Hit{X: 10, Y: 0, Z: 200}
	b := hit.Hit{X: 20, Y: 0, Z: 200}

	c, err := reg.Create(RZRatio, 0, 100)
	require.NoError(t, err)
	v, err := c.AreCompatible([]*hit.Hit{&a}, []*hit.Hit{&b})
	require.NoError(t, err)
	assert.False(t, v.Compatible)
	assert.Equal(t, SentinelValue, v.Measure.Value)
}

func TestVirtualHitSkipsAzimuthCriteria(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	ip := hit.Hit{Virtual: true}
	b := hit.Hit{X: 0, Y: -40, Z: 200}

	c, err := reg.Create(DeltaPhi, 0, 1)
	require.NoError(t, err)
	v, err := c.AreCompatible([]*hit.Hit{&ip}, []*hit.Hit{&b})
	require.NoError(t, err)
	assert.True(t, v.Compatible)
	assert.Empty(t, v.Measure.Name)

	rz, err := reg.Create(RZRatio, 1, 1.1)
	require.NoError(t, err)
	v, err = rz.AreCompatible([]*hit.Hit{&ip}, []*hit.Hit{&b})
	require.NoError(t, err)
	assert.True(t, v.Compatible)
	assert.Equal(t, RZRatio, v.Measure.Name)
}

func TestNoZigZag_DetectsReversal(t *testing.T) {
	reg := DefaultRegistry(DefaultEnvironment())
	h := testutil.DefaultHelix().Hits(testutil.DiskZ[:4], 1)
	// The track turns clockwise; pushing the outer hit anticlockwise makes
	// the last step turn the other way.
	h[3] = testutil.Rotate(h[3], 0.02)

	c, err := reg.Create(NoZigZag, -0.1, math.Inf(1))
	require.NoError(t, err)
	parent, child := pair(testutil.Ptrs(h), 3)
	v, err := c.AreCompatible(parent, child)
	require.NoError(t, err)
	assert.Less(t, v.Measure.Value, -0.1)
	assert.False(t, v.Compatible)
}
