package cellauto

import (
	"iter"
	"strconv"
	"strings"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

// Candidate is one complete hit path through the graph, innermost hit first.
type Candidate struct {
	Hits []*hit.Hit
	// LayerOffset is subtracted from hit layers to report input layers.
	LayerOffset int
}

// Key identifies the candidate by its hit IDs, which are input indices.
func (c Candidate) Key() string {
	var b strings.Builder
	for i, h := range c.Hits {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(h.ID))
	}
	return b.String()
}

// Layers returns the input layer of every hit in order.
func (c Candidate) Layers() []int {
	layers := make([]int, len(c.Hits))
	for i, h := range c.Hits {
		layers[i] = h.Layer - c.LayerOffset
	}
	return layers
}

// Enumerator walks a cleaned graph and emits one candidate per root-to-leaf
// path.
type Enumerator struct {
	// MaxCandidates stops the walk after this many candidates. Zero means
	// no limit.
	MaxCandidates int
	// KeepVirtual leaves the virtual interaction-point hit in candidates.
	KeepVirtual bool
}

type frame struct {
	seg   int
	depth int // hits on the path before this segment's contribution
}

// Candidates yields every path starting at one of roots, depth first with
// children in link order. A segment without children completes a path. The
// walk uses an explicit stack and stops as soon as the consumer does.
func (e Enumerator) Candidates(g *Graph, roots []int) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		emitted := 0
		path := make([]*hit.Hit, 0, g.NumLayers()+1)
		var stack []frame
		for _, r := range roots {
			if g.segs[r].removed {
				continue
			}
			stack = append(stack[:0], frame{seg: r})
			for len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				s := &g.segs[f.seg]

				path = path[:f.depth]
				if f.depth == 0 {
					path = append(path, s.Hits...)
				} else {
					path = append(path, s.Hits[len(s.Hits)-1])
				}

				if len(s.Children) == 0 {
					if !yield(e.candidate(g, path)) {
						return
					}
					emitted++
					if e.MaxCandidates > 0 && emitted >= e.MaxCandidates {
						return
					}
					continue
				}
				for j := len(s.Children) - 1; j >= 0; j-- {
					stack = append(stack, frame{seg: s.Children[j], depth: len(path)})
				}
			}
		}
	}
}

func (e Enumerator) candidate(g *Graph, path []*hit.Hit) Candidate {
	hits := make([]*hit.Hit, 0, len(path))
	for _, h := range path {
		if h.Virtual && !e.KeepVirtual {
			continue
		}
		hits = append(hits, h)
	}
	return Candidate{Hits: hits, LayerOffset: g.offset}
}

// Collect drains Candidates into a slice.
func (e Enumerator) Collect(g *Graph, roots []int) []Candidate {
	var out []Candidate
	for c := range e.Candidates(g, roots) {
		out = append(out, c)
	}
	return out
}

// Roots returns every live segment without parents, innermost layer first.
func Roots(g *Graph) []int {
	var roots []int
	for i, s := range g.All() {
		if len(s.Parents) == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// InnermostRoots returns the live segments of the innermost populated layer.
func InnermostRoots(g *Graph) []int {
	for l := 0; l < g.NumLayers(); l++ {
		var roots []int
		for _, i := range g.Layer(l) {
			if !g.segs[i].removed {
				roots = append(roots, i)
			}
		}
		if len(roots) > 0 {
			return roots
		}
	}
	return nil
}

// CountPaths returns how many candidates Candidates would emit for roots
// without a limit, without materialising them.
func CountPaths(g *Graph, roots []int) int {
	paths := make([]int, len(g.segs))
	for l := g.NumLayers() - 1; l >= 0; l-- {
		for _, i := range g.Layer(l) {
			s := &g.segs[i]
			if s.removed {
				continue
			}
			if len(s.Children) == 0 {
				paths[i] = 1
				continue
			}
			for _, c := range s.Children {
				paths[i] += paths[c]
			}
		}
	}
	total := 0
	for _, r := range roots {
		total += paths[r]
	}
	return total
}
