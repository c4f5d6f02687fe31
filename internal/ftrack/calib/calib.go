package calib

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/monitoring"
)

// ErrNoSamples is returned when a criterion has fewer samples than required.
var ErrNoSamples = errors.New("calib: not enough samples")

// Cut is a calibrated criterion window with the statistics it came from.
type Cut struct {
	Name    string
	Min     float64
	Max     float64
	Samples int
	Mean    float64
	StdDev  float64
}

// Spec converts the cut into a criteria configuration entry.
func (c Cut) Spec() criteria.Spec {
	return criteria.Spec{Name: c.Name, Min: c.Min, Max: c.Max}
}

// Bounds returns the window holding efficiency of the samples. The excluded
// fraction 1-efficiency is taken left*(1-efficiency) from below and
// right*(1-efficiency) from above. values need not be sorted.
func Bounds(values []float64, efficiency, left, right float64) (lo, hi float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrNoSamples
	}
	if !(efficiency > 0 && efficiency <= 1) {
		return 0, 0, fmt.Errorf("efficiency must be in (0, 1], got %g", efficiency)
	}
	if left < 0 || right < 0 || math.IsNaN(left) || math.IsNaN(right) {
		return 0, 0, fmt.Errorf("tail split must be non-negative, got %g/%g", left, right)
	}

	x := slices.Clone(values)
	slices.Sort(x)
	excluded := 1 - efficiency
	lo = stat.Quantile(math.Min(left*excluded, 1), stat.Empirical, x, nil)
	hi = stat.Quantile(math.Max(1-right*excluded, 0), stat.Empirical, x, nil)
	return lo, hi, nil
}

// MeasureSource is where recorded measures are read from. The SQLite store
// implements it.
type MeasureSource interface {
	MeasureNames(ctx context.Context, runID string) ([]string, error)
	Measures(ctx context.Context, runID, criterion string, allPairs, withDegenerate bool) ([]float64, error)
}

// Calibrator computes cuts for registered criteria.
type Calibrator struct {
	Registry   *criteria.Registry
	Efficiency float64
	// MinSamples is the smallest sample count accepted. Values below 1
	// mean 1.
	MinSamples int
	// AllPairs calibrates on every recorded pair instead of only those made
	// of one labelled particle.
	AllPairs bool
}

// Calibrate returns the cut for one criterion.
func (c Calibrator) Calibrate(name string, values []float64) (Cut, error) {
	left, right, err := c.Registry.LeftRight(name)
	if err != nil {
		return Cut{}, err
	}
	if len(values) < max(c.MinSamples, 1) {
		return Cut{}, fmt.Errorf("%s: %d samples, need %d: %w", name, len(values), max(c.MinSamples, 1), ErrNoSamples)
	}
	lo, hi, err := Bounds(values, c.Efficiency, left, right)
	if err != nil {
		return Cut{}, fmt.Errorf("%s: %w", name, err)
	}
	mean, std := stat.MeanStdDev(values, nil)
	return Cut{Name: name, Min: lo, Max: hi, Samples: len(values), Mean: mean, StdDev: std}, nil
}

// CalibrateRun calibrates every criterion with measures in the run. Only
// true pairs are used unless AllPairs is set, and degenerate sentinels are
// left out. Criteria with too few samples are
// skipped with a log line rather than failing the run.
func (c Calibrator) CalibrateRun(ctx context.Context, src MeasureSource, runID string) ([]Cut, error) {
	names, err := src.MeasureNames(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list measures of run %s: %w", runID, err)
	}
	var cuts []Cut
	for _, name := range names {
		values, err := src.Measures(ctx, runID, name, c.AllPairs, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s measures: %w", name, err)
		}
		cut, err := c.Calibrate(name, values)
		if errors.Is(err, ErrNoSamples) {
			monitoring.Logf("[calib] skipping %v", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		monitoring.Debugf("[calib] %s: [%g, %g] from %d samples", name, cut.Min, cut.Max, cut.Samples)
		cuts = append(cuts, cut)
	}
	return cuts, nil
}

// Apply returns a copy of cfg with every cut installed.
func Apply(cfg *config.TuningConfig, cuts []Cut) *config.TuningConfig {
	out := cfg
	for _, cut := range cuts {
		out = out.WithCriterion(cut.Name, cut.Min, cut.Max)
	}
	if len(cuts) == 0 {
		cp := *cfg
		out = &cp
	}
	return out
}
