package fit

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ftrack/internal/ftrack/geom"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/units"
)

// ErrFitFailed is matched by every error a Fitter returns for a candidate
// it cannot fit.
var ErrFitFailed = errors.New("fit: failed")

// Track is a fitted candidate.
type Track struct {
	Hits      []*hit.Hit // sorted by |z|
	Center    r2.Vec     // transverse circle centre, mm
	Radius    float64    // mm
	PtGeV     float64
	Charge    int     // sign of the charge for the configured field
	TanLambda float64 // dz per unit transverse arc length
	Z0        float64 // z of the fitted line at the innermost hit
	RMS       float64 // transverse residual, mm
}

// Fitter turns a candidate's hits into a track.
type Fitter interface {
	Fit(hits []*hit.Hit) (Track, error)
}

// FitterFunc adapts a function to the Fitter interface.
type FitterFunc func(hits []*hit.Hit) (Track, error)

func (f FitterFunc) Fit(hits []*hit.Hit) (Track, error) { return f(hits) }

// HelixFitter fits a helix with a field along z.
type HelixFitter struct {
	BzTesla float64
	// MaxRMS rejects fits whose transverse residual exceeds it. Zero
	// disables the cut.
	MaxRMS float64
}

// Fit sorts a copy of hits by |z|, fits a circle through their transverse
// positions and a line through z against arc length. Virtual hits take no
// part in the fit.
func (f HelixFitter) Fit(hits []*hit.Hit) (Track, error) {
	sorted := make([]*hit.Hit, 0, len(hits))
	for _, h := range hits {
		if !h.Virtual {
			sorted = append(sorted, h)
		}
	}
	if len(sorted) < 3 {
		return Track{}, fmt.Errorf("need at least 3 hits, got %d: %w", len(sorted), ErrFitFailed)
	}
	hit.SortByAbsZ(sorted)

	center, radius, err := fitCircle(sorted)
	if err != nil {
		return Track{}, err
	}

	t := Track{
		Hits:   sorted,
		Center: center,
		Radius: radius,
		PtGeV:  units.PtFromRadius(radius, math.Abs(f.BzTesla)),
		Charge: charge(sorted, f.BzTesla),
	}

	var sumSq float64
	for _, h := range sorted {
		d := r2.Norm(r2.Sub(geom.XY(h.Vec()), center)) - radius
		sumSq += d * d
	}
	t.RMS = math.Sqrt(sumSq / float64(len(sorted)))
	if f.MaxRMS > 0 && t.RMS > f.MaxRMS {
		return Track{}, fmt.Errorf("transverse rms %.3g mm above %.3g: %w", t.RMS, f.MaxRMS, ErrFitFailed)
	}

	arc := make([]float64, len(sorted))
	zs := make([]float64, len(sorted))
	prev := math.Atan2(sorted[0].Y-center.Y, sorted[0].X-center.X)
	turned := 0.0
	for i, h := range sorted {
		phi := math.Atan2(h.Y-center.Y, h.X-center.X)
		turned += geom.WrapPhi(phi - prev)
		prev = phi
		arc[i] = radius * math.Abs(turned)
		zs[i] = h.Z
	}
	if slices.Max(arc) == 0 {
		return Track{}, fmt.Errorf("hits do not advance along the circle: %w", ErrFitFailed)
	}
	t.Z0, t.TanLambda = stat.LinearRegression(arc, zs, nil, false)
	return t, nil
}

// fitCircle solves x²+y²+Dx+Ey+F = 0 in the least-squares sense.
func fitCircle(hits []*hit.Hit) (r2.Vec, float64, error) {
	n := len(hits)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, h := range hits {
		a.Set(i, 0, h.X)
		a.Set(i, 1, h.Y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(h.X*h.X + h.Y*h.Y))
	}

	var p mat.VecDense
	if err := p.SolveVec(a, b); err != nil {
		return r2.Vec{}, 0, fmt.Errorf("circle fit: %v: %w", err, ErrFitFailed)
	}
	d, e, c := p.AtVec(0), p.AtVec(1), p.AtVec(2)
	center := r2.Vec{X: -d / 2, Y: -e / 2}
	r2sq := center.X*center.X + center.Y*center.Y - c
	if r2sq <= 0 || math.IsNaN(r2sq) || math.IsInf(r2sq, 0) {
		return r2.Vec{}, 0, fmt.Errorf("circle fit: no real radius: %w", ErrFitFailed)
	}
	return center, math.Sqrt(r2sq), nil
}

// charge infers the charge sign from the turning direction: positive
// charges turn clockwise seen from +z when Bz > 0.
func charge(hits []*hit.Hit, bz float64) int {
	var turn float64
	for i := 0; i+2 < len(hits); i++ {
		u := r2.Vec{X: hits[i+1].X - hits[i].X, Y: hits[i+1].Y - hits[i].Y}
		v := r2.Vec{X: hits[i+2].X - hits[i+1].X, Y: hits[i+2].Y - hits[i+1].Y}
		turn += r2.Cross(u, v)
	}
	switch {
	case turn == 0 || bz == 0:
		return 0
	case (turn < 0) == (bz > 0):
		return 1
	default:
		return -1
	}
}
