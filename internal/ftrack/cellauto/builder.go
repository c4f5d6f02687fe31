package cellauto

import (
	"fmt"

	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/monitoring"
)

// DiagnosticFunc receives the measures of one evaluated parent/child pair.
// stage is the length of the segments being linked. The measures slice is
// reused after the call returns.
type DiagnosticFunc func(stage int, parent, child *Segment, measures []criteria.Measure)

// BuildStats counts the work done by a Builder.
type BuildStats struct {
	Evaluated int            // pairs handed to the criteria
	Linked    int            // pairs that passed
	Rejected  map[string]int // first failing criterion per rejected pair
}

// Builder grows segment graphs under a criteria set.
type Builder struct {
	criteria *criteria.Set

	// PruneIntermediate runs the automaton and Clean on every graph shorter
	// than the requested length before extending it.
	PruneIntermediate bool
	// Expected is the expected-state rule used for intermediate pruning.
	// Nil means ReachesOutermost.
	Expected ExpectedStateFunc
	// OnMeasures is called for every evaluated pair when the criteria set
	// collects diagnostics.
	OnMeasures DiagnosticFunc

	Stats BuildStats
	buf   []criteria.Measure
}

// NewBuilder returns a builder evaluating pairs with set.
func NewBuilder(set *criteria.Set) *Builder {
	return &Builder{
		criteria:          set,
		PruneIntermediate: true,
		Stats:             BuildStats{Rejected: make(map[string]int)},
	}
}

// Build runs the full progression from single hits to segments of the given
// length and returns the linked graph of that length.
func (b *Builder) Build(pool *hit.Pool, length int) (*Graph, error) {
	if length < 1 || length > len(criteria.Arities) {
		return nil, fmt.Errorf("segment length must be between 1 and %d, got %d", len(criteria.Arities), length)
	}

	g := NewHitGraph(pool)
	if err := b.Link(g); err != nil {
		return nil, err
	}
	for g.Length() < length {
		if b.PruneIntermediate {
			b.prune(g)
		}
		next, err := b.Extend(g)
		if err != nil {
			return nil, err
		}
		g = next
	}
	return g, nil
}

func (b *Builder) prune(g *Graph) {
	g.ResetStates()
	passes := RunAutomaton(g, 0)
	stats := Clean(g, b.Expected)
	monitoring.Debugf("[cellauto] stage %d: %d passes, pruned %d by state and %d singlets, %d left",
		g.Length(), passes, stats.StatePruned, stats.SingletsPruned, g.Live())
}

// Link connects every pair of live segments on adjacent layers whose hits
// overlap in all but one hit and that satisfy the criteria of arity
// Length()+1. For single hits this compares every hit pair of adjacent
// layers.
func (b *Builder) Link(g *Graph) error {
	arity := criteria.Arity(g.Length() + 1)
	for l := 0; l+1 < g.NumLayers(); l++ {
		for _, pi := range g.Layer(l) {
			parent := g.Segment(pi)
			if parent.removed {
				continue
			}
			for _, ci := range g.Layer(l + 1) {
				child := g.Segment(ci)
				if child.removed || !overlaps(parent, child) {
					continue
				}
				ok, err := b.evaluate(arity, g.Length(), parent, child)
				if err != nil {
					return err
				}
				if ok {
					g.Link(pi, ci)
				}
			}
		}
	}
	return nil
}

// Extend builds the graph of segments one hit longer: one segment per link
// of g, holding the parent's hits followed by the child's outermost hit. The
// segment built from link p->c becomes the parent of every segment built
// from a link c->d whose pair satisfies the criteria of arity Length()+2.
func (b *Builder) Extend(g *Graph) (*Graph, error) {
	k := g.Length() + 1
	next := NewGraph(k, g.NumLayers())
	next.offset = g.offset

	links := 0
	for _, s := range g.All() {
		links += len(s.Children)
	}
	next.segs = make([]Segment, 0, links)
	store := make([]*hit.Hit, 0, links*k)

	// built[i][j] is the index in next of the segment made from the link
	// between segment i and its j-th child.
	built := make([][]int, g.Len())
	for i, s := range g.All() {
		built[i] = make([]int, len(s.Children))
		for j, c := range s.Children {
			start := len(store)
			store = append(store, s.Hits...)
			store = append(store, g.Segment(c).Hits[g.Length()-1])
			built[i][j] = next.Add(store[start:len(store):len(store)])
		}
	}

	if k > len(criteria.Arities) {
		return next, nil
	}
	arity := criteria.Arity(k + 1)
	for i, s := range g.All() {
		for j, c := range s.Children {
			pi := built[i][j]
			for jj := range g.Segment(c).Children {
				ci := built[c][jj]
				ok, err := b.evaluate(arity, k, next.Segment(pi), next.Segment(ci))
				if err != nil {
					return nil, err
				}
				if ok {
					next.Link(pi, ci)
				}
			}
		}
	}
	return next, nil
}

func (b *Builder) evaluate(arity criteria.Arity, stage int, parent, child *Segment) (bool, error) {
	b.Stats.Evaluated++
	out, err := b.criteria.Evaluate(arity, parent.Hits, child.Hits, b.buf)
	if err != nil {
		return false, fmt.Errorf("linking %d-hit segments %v -> %v: %w", stage, parent.Hits, child.Hits, err)
	}
	b.buf = out.Measures
	if b.OnMeasures != nil && len(out.Measures) > 0 {
		b.OnMeasures(stage, parent, child, out.Measures)
	}
	if !out.Compatible {
		b.Stats.Rejected[out.RejectedBy]++
		return false, nil
	}
	b.Stats.Linked++
	return true, nil
}

// overlaps reports whether child continues parent: the parent's hits after
// its innermost one are the child's hits before its outermost one.
func overlaps(parent, child *Segment) bool {
	n := len(parent.Hits)
	for i := 1; i < n; i++ {
		if parent.Hits[i] != child.Hits[i-1] {
			return false
		}
	}
	return true
}
