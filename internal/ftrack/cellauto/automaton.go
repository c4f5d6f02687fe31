package cellauto

// RunAutomaton evolves segment states to the fixed point where every
// segment's state equals the length of the longest child chain above it.
// Each pass first collects the segments that have a child in the same state
// and then raises them together, so no decision in a pass reads a state
// written by the same pass. maxPasses <= 0 means NumLayers()-1, the longest
// possible chain. It returns the number of passes that changed a state.
func RunAutomaton(g *Graph, maxPasses int) int {
	if maxPasses <= 0 {
		maxPasses = g.NumLayers() - 1
	}

	var bump []int
	passes := 0
	for passes < maxPasses {
		bump = bump[:0]
		for i, s := range g.All() {
			for _, c := range s.Children {
				if g.segs[c].State == s.State {
					bump = append(bump, i)
					break
				}
			}
		}
		if len(bump) == 0 {
			break
		}
		for _, i := range bump {
			g.segs[i].State++
		}
		passes++
	}
	return passes
}
