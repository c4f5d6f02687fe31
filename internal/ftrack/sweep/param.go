package sweep

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
)

// Bound selects which end of a criterion window a Param moves.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
)

// Param is one swept criterion bound.
type Param struct {
	Criterion string
	Bound     Bound
	Values    []float64
}

// Name is the "criterion.bound" form used in CSV headers.
func (p Param) Name() string { return p.Criterion + "." + string(p.Bound) }

// ParseParam parses "Crit2_DeltaPhi.max=1:10:1" or
// "Crit3_PT.min=0.5,1,2".
func ParseParam(s string) (Param, error) {
	name, values, ok := strings.Cut(s, "=")
	if !ok {
		return Param{}, fmt.Errorf("invalid parameter %q: expected criterion.bound=values", s)
	}
	crit, bound, ok := strings.Cut(strings.TrimSpace(name), ".")
	if !ok || crit == "" {
		return Param{}, fmt.Errorf("invalid parameter name %q: expected criterion.min or criterion.max", name)
	}
	p := Param{Criterion: crit, Bound: Bound(bound)}
	if p.Bound != BoundMin && p.Bound != BoundMax {
		return Param{}, fmt.Errorf("invalid bound %q in %q: expected min or max", bound, name)
	}
	vs, err := ParseValues(strings.TrimSpace(values))
	if err != nil {
		return Param{}, fmt.Errorf("parameter %s: %w", p.Name(), err)
	}
	if len(vs) == 0 {
		return Param{}, fmt.Errorf("parameter %s has no values", p.Name())
	}
	p.Values = vs
	return p, nil
}

// Apply returns a copy of base with each param set to the matching value.
// A criterion the base does not configure starts from an open window.
func Apply(base *config.TuningConfig, params []Param, values []float64) (*config.TuningConfig, error) {
	if len(params) != len(values) {
		return nil, fmt.Errorf("%d params but %d values", len(params), len(values))
	}
	cfg := base
	for i, p := range params {
		specs := cfg.GetCriteria()
		spec := criteria.Spec{Name: p.Criterion, Min: -math.MaxFloat64, Max: math.MaxFloat64}
		if j := slices.IndexFunc(specs, func(s criteria.Spec) bool { return s.Name == p.Criterion }); j >= 0 {
			spec = specs[j]
		}
		if p.Bound == BoundMin {
			spec.Min = values[i]
		} else {
			spec.Max = values[i]
		}
		cfg = cfg.WithCriterion(spec.Name, spec.Min, spec.Max)
	}
	if len(params) == 0 {
		cp := *base
		cfg = &cp
	}
	return cfg, nil
}
