// Package units provides length units and the momentum/curvature relation.
//
// Positions are stored in millimetres, magnetic fields in tesla and momenta
// in GeV/c throughout the module.
package units

// Unit constants
const (
	MM = "mm"
	CM = "cm"
	M  = "m"
)

// ValidUnits contains all valid length unit values
var ValidUnits = []string{MM, CM, M}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mm, cm, m"
}

// ToMillimetres converts a length in the given units to millimetres.
// Unknown units are treated as millimetres.
func ToMillimetres(v float64, unit string) float64 {
	switch unit {
	case CM:
		return v * 10
	case M:
		return v * 1000
	default:
		return v
	}
}

// momentumPerTeslaMetre is the transverse momentum in GeV/c of a unit-charge
// particle on a one metre radius in a one tesla field.
const momentumPerTeslaMetre = 0.299792458

// PtFromRadius returns the transverse momentum (GeV/c) of a unit-charge
// particle whose xy projection has the given radius (mm) in field bz (T).
func PtFromRadius(radiusMM, bzTesla float64) float64 {
	return momentumPerTeslaMetre * bzTesla * radiusMM / 1000
}

// RadiusFromPt is the inverse of PtFromRadius. It returns 0 for a zero field.
func RadiusFromPt(ptGeV, bzTesla float64) float64 {
	if bzTesla == 0 {
		return 0
	}
	return ptGeV * 1000 / (momentumPerTeslaMetre * bzTesla)
}
