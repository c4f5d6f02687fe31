package hit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidLayer is returned when a hit names a layer outside [0, numLayers).
var ErrInvalidLayer = errors.New("hit: layer out of range")

// Hit is a single detector measurement. Positions are in millimetres.
type Hit struct {
	ID    int // index in the owning Pool
	X     float64
	Y     float64
	Z     float64
	Layer int

	SourceID   string // provenance in the external hit collection
	ParticleID int    // truth label, 0 when unknown
	Virtual    bool   // synthetic interaction-point hit
}

// Rho returns the distance of the hit from the z axis.
func (h *Hit) Rho() float64 { return math.Hypot(h.X, h.Y) }

// Phi returns the azimuthal angle of the hit in radians.
func (h *Hit) Phi() float64 { return math.Atan2(h.Y, h.X) }

// Vec returns the hit position as a gonum vector.
func (h *Hit) Vec() r3.Vec { return r3.Vec{X: h.X, Y: h.Y, Z: h.Z} }

func (h *Hit) String() string {
	if h.Virtual {
		return fmt.Sprintf("IP@L%d", h.Layer)
	}
	return fmt.Sprintf("#%d@L%d(%.2f,%.2f,%.2f)", h.ID, h.Layer, h.X, h.Y, h.Z)
}

// SortByAbsZ orders hits from the one nearest z=0 outwards.
// Ties keep their relative order.
func SortByAbsZ(hits []*Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return math.Abs(hits[i].Z) < math.Abs(hits[j].Z)
	})
}
