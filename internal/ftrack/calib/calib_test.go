package calib

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/ftrack/hitio"
	"github.com/banshee-data/ftrack/internal/ftrack/pipeline"
	"github.com/banshee-data/ftrack/internal/testutil"
)

// ramp returns n, n-1, ..., 1.
func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(n - i)
	}
	return out
}

func TestBounds(t *testing.T) {
	values := ramp(1000)

	tests := []struct {
		name        string
		eff         float64
		left, right float64
		wantLo      float64
		wantHi      float64
	}{
		{"symmetric", 0.9, 0.5, 0.5, 50, 950},
		{"upper tail only", 0.9, 0, 1, 1, 900},
		{"lower tail only", 0.9, 1, 0, 100, 1000},
		{"keep everything", 1, 0.5, 0.5, 1, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := Bounds(values, tt.eff, tt.left, tt.right)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLo, lo, 1)
			assert.InDelta(t, tt.wantHi, hi, 1)
		})
	}

	assert.Equal(t, ramp(1000), values, "input is not reordered")
}

func TestBoundsErrors(t *testing.T) {
	_, _, err := Bounds(nil, 0.9, 0.5, 0.5)
	assert.ErrorIs(t, err, ErrNoSamples)

	for _, eff := range []float64{0, -0.1, 1.5} {
		_, _, err := Bounds(ramp(10), eff, 0.5, 0.5)
		assert.Error(t, err, "efficiency %g", eff)
	}

	_, _, err = Bounds(ramp(10), 0.9, -1, 0.5)
	assert.Error(t, err)
}

func newCalibrator() Calibrator {
	return Calibrator{
		Registry:   criteria.DefaultRegistry(criteria.Environment{BzTesla: 3.5}),
		Efficiency: 0.9,
	}
}

func TestCalibrateUsesRegistrySplit(t *testing.T) {
	c := newCalibrator()

	// DeltaPhi only cuts from above.
	cut, err := c.Calibrate(criteria.DeltaPhi, ramp(1000))
	require.NoError(t, err)
	assert.Equal(t, criteria.DeltaPhi, cut.Name)
	assert.Equal(t, 1.0, cut.Min)
	assert.InDelta(t, 900, cut.Max, 1)
	assert.Equal(t, 1000, cut.Samples)
	assert.InDelta(t, 500.5, cut.Mean, 1e-9)
	assert.Positive(t, cut.StdDev)
	assert.Equal(t, criteria.Spec{Name: criteria.DeltaPhi, Min: cut.Min, Max: cut.Max}, cut.Spec())

	// PT only cuts from below.
	cut, err = c.Calibrate(criteria.PT, ramp(1000))
	require.NoError(t, err)
	assert.InDelta(t, 100, cut.Min, 1)
	assert.Equal(t, 1000.0, cut.Max)
}

func TestCalibrateErrors(t *testing.T) {
	c := newCalibrator()

	_, err := c.Calibrate("Crit9_Missing", ramp(10))
	assert.ErrorIs(t, err, criteria.ErrUnknownCriterion)

	c.MinSamples = 20
	_, err = c.Calibrate(criteria.RZRatio, ramp(10))
	assert.ErrorIs(t, err, ErrNoSamples)

	c.MinSamples = 0
	c.Efficiency = 2
	_, err = c.Calibrate(criteria.RZRatio, ramp(10))
	assert.ErrorContains(t, err, criteria.RZRatio)
}

type fakeSource struct {
	values map[string][]float64
	err    error
}

func (f fakeSource) MeasureNames(context.Context, string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var names []string
	for name := range f.values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (f fakeSource) Measures(_ context.Context, _, criterion string, _, _ bool) ([]float64, error) {
	return f.values[criterion], nil
}

func TestCalibrateRun(t *testing.T) {
	c := newCalibrator()
	c.MinSamples = 100
	src := fakeSource{values: map[string][]float64{
		criteria.DeltaPhi: ramp(1000),
		criteria.RZRatio:  ramp(5),
	}}

	cuts, err := c.CalibrateRun(context.Background(), src, "run")
	require.NoError(t, err)
	require.Len(t, cuts, 1, "RZRatio has too few samples")
	assert.Equal(t, criteria.DeltaPhi, cuts[0].Name)

	boom := errors.New("locked")
	_, err = c.CalibrateRun(context.Background(), fakeSource{err: boom}, "run")
	assert.ErrorIs(t, err, boom)
}

func TestApply(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	out := Apply(cfg, []Cut{
		{Name: criteria.DeltaPhi, Min: 0, Max: 3},
		{Name: criteria.DeltaRho, Min: 0.1, Max: 0.2},
	})

	specs := out.GetCriteria()
	assert.Contains(t, specs, criteria.Spec{Name: criteria.DeltaPhi, Min: 0, Max: 3})
	assert.Contains(t, specs, criteria.Spec{Name: criteria.DeltaRho, Min: 0.1, Max: 0.2})
	assert.Len(t, specs, len(config.DefaultCriteria())+1)
	assert.Empty(t, cfg.Criteria, "the input config is untouched")

	same := Apply(cfg, nil)
	assert.NotSame(t, cfg, same)
	assert.Equal(t, cfg.GetCriteria(), same.GetCriteria())
}

func TestWriteHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deltaphi.png")
	cut := Cut{Name: criteria.DeltaPhi, Min: 1, Max: 900}
	require.NoError(t, WriteHistogram(path, cut, ramp(1000)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "file is a PNG")

	assert.ErrorIs(t, WriteHistogram(path, cut, nil), ErrNoSamples)
}

// memorySink keeps the measures of a run in memory and serves them back.
type memorySink struct {
	pairs []pipeline.PairMeasures
}

func (m *memorySink) RecordMeasures(_ int, pairs []pipeline.PairMeasures) error {
	m.pairs = append(m.pairs, pairs...)
	return nil
}

func (m *memorySink) MeasureNames(context.Context, string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, p := range m.pairs {
		for _, ms := range p.Measures {
			if !seen[ms.Name] {
				seen[ms.Name] = true
				names = append(names, ms.Name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func (m *memorySink) Measures(_ context.Context, _, criterion string, allPairs, withDegenerate bool) ([]float64, error) {
	var values []float64
	for _, p := range m.pairs {
		if !allPairs && !p.TruePair {
			continue
		}
		for _, ms := range p.Measures {
			if ms.Name == criterion && (withDegenerate || !ms.Degenerate) {
				values = append(values, ms.Value)
			}
		}
	}
	return values, nil
}

func TestCalibrateRunIgnoresBackgroundPairs(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	on := true
	cfg.Diagnostics = &on
	sink := &memorySink{}
	p, err := pipeline.NewEventProcessor(cfg, pipeline.WithDiagnostics(sink))
	require.NoError(t, err)

	// Six 2 GeV tracks one radian apart in azimuth.
	var hits []hit.Hit
	for i := range 6 {
		h := testutil.DefaultHelix()
		h.Phi0 = float64(i)
		hits = append(hits, h.Hits(testutil.DiskZ[:4], i+1)...)
	}
	_, err = p.Process(context.Background(), hitio.Event{ID: 1, Hits: hits})
	require.NoError(t, err)

	c := newCalibrator()
	c.Efficiency = 0.99
	c.MinSamples = 10

	cuts, err := c.CalibrateRun(context.Background(), sink, "run")
	require.NoError(t, err)
	deltaPhi := findCut(t, cuts, criteria.DeltaPhi)
	assert.Equal(t, 18, deltaPhi.Samples, "three true pairs per track")
	assert.Less(t, deltaPhi.Max, 2.0, "the window follows the tracks")

	c.AllPairs = true
	cuts, err = c.CalibrateRun(context.Background(), sink, "run")
	require.NoError(t, err)
	deltaPhi = findCut(t, cuts, criteria.DeltaPhi)
	assert.Equal(t, 108, deltaPhi.Samples)
	assert.Greater(t, deltaPhi.Max, 50.0, "background pairs widen the window")
}

func findCut(t *testing.T, cuts []Cut, name string) Cut {
	t.Helper()
	for _, c := range cuts {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no cut for %s in %v", name, cuts)
	return Cut{}
}
