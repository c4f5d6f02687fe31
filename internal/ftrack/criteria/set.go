package criteria

import (
	"fmt"
	"sort"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

// Spec selects and parameterises one criterion.
type Spec struct {
	Name string  `json:"name" yaml:"name"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// Outcome is the combined result of every criterion of one arity.
type Outcome struct {
	Compatible bool
	RejectedBy string    // first failing criterion, empty when compatible
	Measures   []Measure // filled only when diagnostics are enabled
}

// Set is a resolved criteria configuration, grouped by arity and ordered
// cheapest first within each group.
type Set struct {
	byArity     map[Arity][]Criterion
	diagnostics bool
}

// NewSet resolves specs against the registry. Unknown names fail here,
// before any event is processed.
func (r *Registry) NewSet(specs []Spec, diagnostics bool) (*Set, error) {
	s := &Set{
		byArity:     make(map[Arity][]Criterion),
		diagnostics: diagnostics,
	}
	for _, spec := range specs {
		if spec.Min > spec.Max {
			return nil, fmt.Errorf("criterion %s: min %g exceeds max %g", spec.Name, spec.Min, spec.Max)
		}
		c, err := r.Create(spec.Name, spec.Min, spec.Max)
		if err != nil {
			return nil, err
		}
		s.byArity[c.Arity()] = append(s.byArity[c.Arity()], c)
	}
	for _, cs := range s.byArity {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Cost() < cs[j].Cost() })
	}
	return s, nil
}

// NewSetOf builds a set from already constructed criteria.
func NewSetOf(diagnostics bool, cs ...Criterion) *Set {
	s := &Set{
		byArity:     make(map[Arity][]Criterion),
		diagnostics: diagnostics,
	}
	for _, c := range cs {
		s.byArity[c.Arity()] = append(s.byArity[c.Arity()], c)
	}
	for _, group := range s.byArity {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Cost() < group[j].Cost() })
	}
	return s
}

// Diagnostics reports whether measures are collected.
func (s *Set) Diagnostics() bool { return s.diagnostics }

// For returns the criteria of arity a in evaluation order.
func (s *Set) For(a Arity) []Criterion { return s.byArity[a] }

// Names returns the names of all criteria in the set, by arity then
// evaluation order.
func (s *Set) Names() []string {
	var names []string
	for _, a := range Arities {
		for _, c := range s.byArity[a] {
			names = append(names, c.Name())
		}
	}
	return names
}

// Evaluate applies every criterion of arity a to the pair. The pair is
// compatible only when all of them agree. Without diagnostics the first
// rejection stops evaluation; with diagnostics every criterion runs and its
// measure is appended to buf, which is returned in Outcome.Measures.
func (s *Set) Evaluate(a Arity, parent, child []*hit.Hit, buf []Measure) (Outcome, error) {
	out := Outcome{Compatible: true, Measures: buf[:0]}
	for _, c := range s.byArity[a] {
		v, err := c.AreCompatible(parent, child)
		if err != nil {
			return Outcome{}, err
		}
		if s.diagnostics && v.Measure.Name != "" {
			out.Measures = append(out.Measures, v.Measure)
		}
		if !v.Compatible && out.Compatible {
			out.Compatible = false
			out.RejectedBy = c.Name()
			if !s.diagnostics {
				return out, nil
			}
		}
	}
	return out, nil
}
