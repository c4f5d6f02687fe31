// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files: assertion shorthands and synthetic helix tracks
// crossing a set of forward detector disks.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/units"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// DiskZ are the z positions (mm) of the synthetic forward disks.
var DiskZ = []float64{200, 320, 440, 560, 680, 800, 920}

// Helix describes a unit-charge track from the origin in a solenoid field.
type Helix struct {
	PtGeV     float64 // transverse momentum
	BzTesla   float64 // field along z
	Phi0      float64 // initial azimuth of the direction, radians
	TanLambda float64 // dz/ds, positive for tracks towards +z
	Charge    int     // +1 or -1; 0 means a straight line
}

// DefaultHelix is a 2 GeV forward track in 3.5 T.
func DefaultHelix() Helix {
	return Helix{PtGeV: 2, BzTesla: 3.5, Phi0: 0.3, TanLambda: 5, Charge: 1}
}

// At returns the point of the helix at height z.
func (h Helix) At(z float64) (x, y float64) {
	s := z / h.TanLambda
	if h.Charge == 0 || h.BzTesla == 0 {
		return s * math.Cos(h.Phi0), s * math.Sin(h.Phi0)
	}
	r := math.Abs(units.RadiusFromPt(h.PtGeV, h.BzTesla))
	// Positive charges turn clockwise seen from +z when Bz > 0.
	w := -float64(h.Charge)
	if h.BzTesla < 0 {
		w = -w
	}
	turn := w * s / r
	x = r * w * (math.Sin(h.Phi0+turn) - math.Sin(h.Phi0))
	y = -r * w * (math.Cos(h.Phi0+turn) - math.Cos(h.Phi0))
	return x, y
}

// Hits returns one hit per disk, layer i at zs[i].
func (h Helix) Hits(zs []float64, particle int) []hit.Hit {
	out := make([]hit.Hit, len(zs))
	for i, z := range zs {
		x, y := h.At(z)
		out[i] = hit.Hit{X: x, Y: y, Z: z, Layer: i, ParticleID: particle}
	}
	return out
}

// Rotate returns the hit rotated by dphi radians about the z axis.
func Rotate(h hit.Hit, dphi float64) hit.Hit {
	c, s := math.Cos(dphi), math.Sin(dphi)
	h.X, h.Y = c*h.X-s*h.Y, s*h.X+c*h.Y
	return h
}

// Ptrs returns pointers to the elements of hits.
func Ptrs(hits []hit.Hit) []*hit.Hit {
	out := make([]*hit.Hit, len(hits))
	for i := range hits {
		out[i] = &hits[i]
	}
	return out
}
