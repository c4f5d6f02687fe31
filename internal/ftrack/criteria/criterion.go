package criteria

import (
	"errors"
	"fmt"

	"github.com/banshee-data/ftrack/internal/ftrack/geom"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

var (
	// ErrBadSegmentLength is matched by errors returned when a criterion is
	// handed segments of the wrong hit count.
	ErrBadSegmentLength = errors.New("criteria: bad segment length")

	// ErrUnknownCriterion is returned when a name is not in the registry.
	ErrUnknownCriterion = errors.New("criteria: unknown criterion")
)

// SentinelValue is recorded as the measure when the geometry is degenerate.
const SentinelValue = -1.0

// Arity is the number of distinct hits spanned by a parent/child pair.
type Arity int

const (
	Arity2 Arity = 2
	Arity3 Arity = 3
	Arity4 Arity = 4
)

// Arities lists every supported arity in ascending order.
var Arities = []Arity{Arity2, Arity3, Arity4}

// SegmentLength returns the hit count of each segment the arity consumes.
func (a Arity) SegmentLength() int { return int(a) - 1 }

func (a Arity) String() string { return fmt.Sprintf("%dHit", int(a)) }

// ParseArity parses "2Hit", "3Hit" or "4Hit".
func ParseArity(s string) (Arity, error) {
	for _, a := range Arities {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown criterion type %q", s)
}

// Cost orders criteria inside a Set so cheap tests reject first.
type Cost int

const (
	CostCheap  Cost = iota // plain hit arithmetic
	CostAngle              // vector angles
	CostCircle             // one or more circle fits
)

// DegeneratePolicy decides the verdict when the measure cannot be computed.
type DegeneratePolicy int

const (
	PassDegenerate DegeneratePolicy = iota
	FailDegenerate
)

// Measure is the diagnostic value a criterion computed for one pair.
// A zero Measure (empty Name) means nothing was computed.
type Measure struct {
	Name       string
	Value      float64
	Degenerate bool // Value is SentinelValue because the geometry was degenerate
}

// Verdict is the result of one criterion evaluation.
type Verdict struct {
	Compatible bool
	Measure    Measure
}

// Criterion decides whether a parent segment may be linked to a child
// segment extending it outward by one layer.
type Criterion interface {
	Name() string
	Arity() Arity
	Cost() Cost
	Bounds() (min, max float64)
	// AreCompatible returns an error matching ErrBadSegmentLength when the
	// segments do not both hold Arity().SegmentLength() hits.
	AreCompatible(parent, child []*hit.Hit) (Verdict, error)
}

// BadSegmentLengthError reports a criterion evaluated on segments of the
// wrong length.
type BadSegmentLengthError struct {
	Criterion string
	Want      int
	Parent    int
	Child     int
}

func (e *BadSegmentLengthError) Error() string {
	return fmt.Sprintf("%s needs 2 segments with %d hits each, got a %d hit parent and a %d hit child",
		e.Criterion, e.Want, e.Parent, e.Child)
}

// Is makes errors.Is(err, ErrBadSegmentLength) hold.
func (e *BadSegmentLengthError) Is(target error) bool { return target == ErrBadSegmentLength }

// measureFunc computes the scalar bounded by a criterion. It returns
// geom.ErrInvalidParameter for degenerate geometry.
type measureFunc func(p points) (float64, error)

// criterion is the single implementation behind every catalog entry; the
// variants differ only in their measure and policies.
type criterion struct {
	name         string
	arity        Arity
	cost         Cost
	min, max     float64
	measure      measureFunc
	onDegenerate DegeneratePolicy
	skipVirtual  bool // pass without a measure when the pair touches the IP hit
}

func (c *criterion) Name() string               { return c.name }
func (c *criterion) Arity() Arity               { return c.arity }
func (c *criterion) Cost() Cost                 { return c.cost }
func (c *criterion) Bounds() (float64, float64) { return c.min, c.max }

func (c *criterion) AreCompatible(parent, child []*hit.Hit) (Verdict, error) {
	want := c.arity.SegmentLength()
	if len(parent) != want || len(child) != want {
		return Verdict{}, &BadSegmentLengthError{
			Criterion: c.name,
			Want:      want,
			Parent:    len(parent),
			Child:     len(child),
		}
	}

	p := chain(parent, child)
	if c.skipVirtual && p.hasVirtual() {
		return Verdict{Compatible: true}, nil
	}

	v, err := c.measure(p)
	if errors.Is(err, geom.ErrInvalidParameter) {
		return Verdict{
			Compatible: c.onDegenerate == PassDegenerate,
			Measure:    Measure{Name: c.name, Value: SentinelValue, Degenerate: true},
		}, nil
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("%s: %w", c.name, err)
	}

	return Verdict{
		Compatible: v >= c.min && v <= c.max,
		Measure:    Measure{Name: c.name, Value: v},
	}, nil
}

// points is the hit chain spanned by a parent/child pair: the parent's hits
// followed by the child's outermost hit.
type points struct {
	h [4]*hit.Hit
	n int
}

func chain(parent, child []*hit.Hit) points {
	var p points
	p.n = copy(p.h[:], parent)
	p.h[p.n] = child[len(child)-1]
	p.n++
	return p
}

func (p points) hasVirtual() bool {
	for i := 0; i < p.n; i++ {
		if p.h[i].Virtual {
			return true
		}
	}
	return false
}
