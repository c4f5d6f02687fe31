package cellauto

import (
	"fmt"
	"iter"
	"slices"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

// Segment is an ordered chain of hits with an automaton state and links to
// segments of the same length in the neighbouring layers. Links are indices
// into the owning Graph's arena.
type Segment struct {
	Hits     []*hit.Hit
	State    int
	Parents  []int
	Children []int
	removed  bool
}

// Layer returns the layer of the innermost hit.
func (s *Segment) Layer() int { return s.Hits[0].Layer }

// OuterLayer returns the layer of the outermost hit.
func (s *Segment) OuterLayer() int { return s.Hits[len(s.Hits)-1].Layer }

// Removed reports whether the segment was pruned.
func (s *Segment) Removed() bool { return s.removed }

func (s *Segment) String() string {
	return fmt.Sprintf("%v state=%d", s.Hits, s.State)
}

// Graph holds every segment of one length for one event. Indices returned by
// Add stay valid for the lifetime of the graph; removal leaves a tombstone.
type Graph struct {
	segs      []Segment
	buckets   [][]int // arena indices per innermost layer
	numLayers int
	length    int
	live      int
	offset    int // input layer = layer - offset
}

// NewGraph returns an empty graph for segments of the given length.
func NewGraph(length, numLayers int) *Graph {
	return &Graph{
		buckets:   make([][]int, numLayers),
		numLayers: numLayers,
		length:    length,
	}
}

// NewHitGraph returns the graph of 1-hit segments, one per hit in the pool,
// bucketed by layer. No links are made.
func NewHitGraph(pool *hit.Pool) *Graph {
	g := NewGraph(1, pool.NumLayers())
	g.offset = pool.LayerOffset()
	g.segs = make([]Segment, 0, pool.Len())
	store := make([]*hit.Hit, 0, pool.Len())
	for l := 0; l < pool.NumLayers(); l++ {
		for _, h := range pool.Layer(l) {
			store = append(store, h)
			g.Add(store[len(store)-1 : len(store) : len(store)])
		}
	}
	return g
}

// Length returns the number of hits in every segment of the graph.
func (g *Graph) Length() int { return g.length }

// NumLayers returns the number of detector layers.
func (g *Graph) NumLayers() int { return g.numLayers }

// LayerOffset returns the number of synthetic layers inside the innermost
// input layer.
func (g *Graph) LayerOffset() int { return g.offset }

// Len returns the arena size, removed segments included.
func (g *Graph) Len() int { return len(g.segs) }

// Live returns the number of segments not removed.
func (g *Graph) Live() int { return g.live }

// Segment returns the segment at arena index i.
func (g *Graph) Segment(i int) *Segment { return &g.segs[i] }

// Layer returns the arena indices of the segments whose innermost hit is on
// layer l. Pruned segments disappear from the buckets once Clean returns.
// The slice must not be modified.
func (g *Graph) Layer(l int) []int {
	if l < 0 || l >= len(g.buckets) {
		return nil
	}
	return g.buckets[l]
}

// Add appends a segment and returns its arena index. The graph keeps hits
// without copying them.
func (g *Graph) Add(hits []*hit.Hit) int {
	if len(hits) != g.length {
		panic(fmt.Sprintf("cellauto: adding %d-hit segment to %d-hit graph", len(hits), g.length))
	}
	i := len(g.segs)
	g.segs = append(g.segs, Segment{Hits: hits})
	l := hits[0].Layer
	g.buckets[l] = append(g.buckets[l], i)
	g.live++
	return i
}

// Link records child as a child of parent and parent as a parent of child.
func (g *Graph) Link(parent, child int) {
	g.segs[parent].Children = append(g.segs[parent].Children, child)
	g.segs[child].Parents = append(g.segs[child].Parents, parent)
}

// All iterates over the live segments, innermost layer first and in
// insertion order within a layer.
func (g *Graph) All() iter.Seq2[int, *Segment] {
	return func(yield func(int, *Segment) bool) {
		for _, bucket := range g.buckets {
			for _, i := range bucket {
				if g.segs[i].removed {
					continue
				}
				if !yield(i, &g.segs[i]) {
					return
				}
			}
		}
	}
}

// ResetStates sets every automaton state back to zero.
func (g *Graph) ResetStates() {
	for i := range g.segs {
		g.segs[i].State = 0
	}
}

// remove tombstones segment i and drops it from its neighbours' link lists.
func (g *Graph) remove(i int) {
	s := &g.segs[i]
	if s.removed {
		return
	}
	for _, p := range s.Parents {
		g.segs[p].Children = deleteIndex(g.segs[p].Children, i)
	}
	for _, c := range s.Children {
		g.segs[c].Parents = deleteIndex(g.segs[c].Parents, i)
	}
	s.Parents = nil
	s.Children = nil
	s.removed = true
	g.live--
}

// compact drops removed segments from the layer buckets.
func (g *Graph) compact() {
	for l, bucket := range g.buckets {
		g.buckets[l] = slices.DeleteFunc(bucket, func(i int) bool { return g.segs[i].removed })
	}
}

func deleteIndex(list []int, v int) []int {
	return slices.DeleteFunc(list, func(x int) bool { return x == v })
}

// CheckLinkSymmetry verifies that every child link has a matching parent link
// and the reverse, and that no link points at a removed segment.
func CheckLinkSymmetry(g *Graph) error {
	for i := range g.segs {
		s := &g.segs[i]
		if s.removed {
			if len(s.Parents) > 0 || len(s.Children) > 0 {
				return fmt.Errorf("removed segment %d still has links", i)
			}
			continue
		}
		for _, c := range s.Children {
			if g.segs[c].removed {
				return fmt.Errorf("segment %d links to removed child %d", i, c)
			}
			if !slices.Contains(g.segs[c].Parents, i) {
				return fmt.Errorf("segment %d has child %d without the reverse parent link", i, c)
			}
		}
		for _, p := range s.Parents {
			if g.segs[p].removed {
				return fmt.Errorf("segment %d links to removed parent %d", i, p)
			}
			if !slices.Contains(g.segs[p].Children, i) {
				return fmt.Errorf("segment %d has parent %d without the reverse child link", i, p)
			}
		}
	}
	return nil
}
