package criteria

import (
	"fmt"
	"sort"
	"sync"
)

// Environment carries detector constants that some criteria need at
// construction time.
type Environment struct {
	BzTesla float64 // solenoid field along z
}

// DefaultEnvironment returns a 3.5 T field.
func DefaultEnvironment() Environment {
	return Environment{BzTesla: 3.5}
}

// Definition describes a registered criterion.
type Definition struct {
	Name        string
	Arity       Arity
	Cost        Cost
	Description string
	// Left and Right split an asymmetric statistical cut: the fraction of
	// the excluded tail taken from below the lower bound and above the
	// upper bound respectively. They sum to 1.
	Left  float64
	Right float64
	New   func(min, max float64, env Environment) Criterion
}

// Info is a summary of a registered criterion.
type Info struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Left        float64 `json:"left"`
	Right       float64 `json:"right"`
}

// Registry maps criterion names to constructors.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
	env  Environment
}

// NewRegistry creates an empty registry whose criteria are built with env.
func NewRegistry(env Environment) *Registry {
	return &Registry{
		defs: make(map[string]*Definition),
		env:  env,
	}
}

// Environment returns the detector constants passed to constructors.
func (r *Registry) Environment() Environment { return r.env }

// Register adds a definition. A definition with the same name is replaced.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Create builds the named criterion accepting measures in [min, max].
func (r *Registry) Create(name string, min, max float64) (Criterion, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCriterion)
	}
	return def.New(min, max, r.env), nil
}

// Types returns the criterion types that have at least one definition.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []string
	for _, a := range Arities {
		for _, def := range r.defs {
			if def.Arity == a {
				types = append(types, a.String())
				break
			}
		}
	}
	return types
}

// Names returns the sorted names of all criteria of the given type. An
// unknown type yields no names.
func (r *Registry) Names(typ string) []string {
	a, err := ParseArity(typ)
	if err != nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, def := range r.defs {
		if def.Arity == a {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AllNames returns every registered name, sorted.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LeftRight returns how an asymmetric cut on the named criterion is split.
func (r *Registry) LeftRight(name string) (left, right float64, err error) {
	def, ok := r.Get(name)
	if !ok {
		return 0, 0, fmt.Errorf("%q: %w", name, ErrUnknownCriterion)
	}
	return def.Left, def.Right, nil
}

// List returns summary information for every definition, sorted by name.
func (r *Registry) List() []Info {
	names := r.AllNames()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		def, _ := r.Get(name)
		infos = append(infos, Info{
			Name:        def.Name,
			Type:        def.Arity.String(),
			Description: def.Description,
			Left:        def.Left,
			Right:       def.Right,
		})
	}
	return infos
}

// define returns a Definition whose constructor builds the shared criterion
// implementation around m.
func define(name string, arity Arity, cost Cost, policy DegeneratePolicy, skipVirtual bool,
	left, right float64, desc string, m func(env Environment) measureFunc) *Definition {
	return &Definition{
		Name:        name,
		Arity:       arity,
		Cost:        cost,
		Description: desc,
		Left:        left,
		Right:       right,
		New: func(min, max float64, env Environment) Criterion {
			return &criterion{
				name:         name,
				arity:        arity,
				cost:         cost,
				min:          min,
				max:          max,
				measure:      m(env),
				onDegenerate: policy,
				skipVirtual:  skipVirtual,
			}
		},
	}
}

func static(f measureFunc) func(Environment) measureFunc {
	return func(Environment) measureFunc { return f }
}

// DefaultRegistry returns a registry pre-loaded with the full catalog.
func DefaultRegistry(env Environment) *Registry {
	reg := NewRegistry(env)

	reg.Register(define(RZRatio, Arity2, CostCheap, FailDegenerate, false, 0, 1,
		"3D distance between the hits divided by their z distance.",
		static(measureRZRatio)))
	reg.Register(define(StraightTrackRatio, Arity2, CostCheap, PassDegenerate, true, 0.5, 0.5,
		"Ratio of rho/z of the two hits; 1 for a straight track from the IP.",
		static(measureStraightTrackRatio)))
	reg.Register(define(DeltaPhi, Arity2, CostCheap, PassDegenerate, true, 0, 1,
		"Azimuth difference of the two hits in degrees.",
		static(measureDeltaPhi)))
	reg.Register(define(HelixWithIP, Arity2, CostCircle, PassDegenerate, true, 0.5, 0.5,
		"Azimuth-per-z rate IP->hit over hit->hit on the circle through the IP and both hits.",
		static(measureHelixWithIP)))
	reg.Register(define(DeltaRho, Arity2, CostCheap, PassDegenerate, true, 0.5, 0.5,
		"Distance from the z axis of the outer hit minus that of the inner hit.",
		static(measureDeltaRho)))

	reg.Register(define(ChangeRZRatio, Arity3, CostCheap, FailDegenerate, false, 0.5, 0.5,
		"RZ ratio of the outer 2-segment over that of the inner one.",
		static(measureChangeRZRatio)))
	reg.Register(define(PT, Arity3, CostCircle, PassDegenerate, false, 1, 0,
		"Transverse momentum in GeV from the circle through the three hits.",
		func(env Environment) measureFunc { return measurePT(env.BzTesla) }))
	reg.Register(define(Angle2D, Arity3, CostAngle, PassDegenerate, false, 0, 1,
		"Angle between the two 2-segments in the xy plane, degrees.",
		static(measureAngle2D)))
	reg.Register(define(Angle3D, Arity3, CostAngle, PassDegenerate, false, 0, 1,
		"Angle between the two 2-segments in 3D, degrees.",
		static(measureAngle3D)))
	reg.Register(define(IPCircleDist, Arity3, CostCircle, PassDegenerate, false, 0, 1,
		"Distance from the origin to the circle through the three hits.",
		static(measureIPCircleDist)))

	reg.Register(define(AngleChange2D, Arity4, CostAngle, PassDegenerate, false, 0.5, 0.5,
		"xy turning angle of the child over that of the parent.",
		static(measureAngleChange2D)))
	reg.Register(define(AngleChange3D, Arity4, CostAngle, PassDegenerate, false, 0.5, 0.5,
		"3D turning angle of the child over that of the parent.",
		static(measureAngleChange3D)))
	reg.Register(define(DistToExtrapolation, Arity4, CostCircle, PassDegenerate, false, 0, 1,
		"Planar miss of the helix extrapolated from the parent, per unit z.",
		static(measureDistToExtrapolation)))
	reg.Register(define(PhiZRatioChange, Arity4, CostCircle, PassDegenerate, false, 0.5, 0.5,
		"Azimuth-per-z rate of the child circle over that of the parent circle.",
		static(measurePhiZRatioChange)))
	reg.Register(define(DistOfCircleCenters, Arity4, CostCircle, PassDegenerate, false, 0, 1,
		"Distance between the centres of the parent and child circles.",
		static(measureDistOfCircleCenters)))
	reg.Register(define(NoZigZag, Arity4, CostAngle, PassDegenerate, false, 0.5, 0.5,
		"Product of the signed xy turning angles, degrees squared; negative when the path zigzags.",
		static(measureNoZigZag)))
	reg.Register(define(RChange, Arity4, CostCircle, PassDegenerate, false, 0.5, 0.5,
		"Radius of the child circle over that of the parent circle.",
		static(measureRChange)))

	return reg
}
