package cellauto

// ExpectedStateFunc returns the state a segment must have reached to be
// kept by Clean.
type ExpectedStateFunc func(g *Graph, s *Segment) int

// ReachesOutermost expects a segment to have a child chain reaching the
// outermost layer: a segment ending on layer l needs state
// (NumLayers()-1) - l, which is zero for segments ending on the outermost
// layer.
func ReachesOutermost(g *Graph, s *Segment) int {
	return g.NumLayers() - 1 - s.OuterLayer()
}

// CleanStats counts what Clean removed.
type CleanStats struct {
	StatePruned    int // segments below their expected state
	SingletsPruned int // segments left without any link
}

// Clean removes every segment whose state differs from the expected state, then
// repeatedly removes segments with neither parents nor children until none
// are left. Links to removed segments are dropped on both sides. A nil
// expected function means ReachesOutermost.
func Clean(g *Graph, expected ExpectedStateFunc) CleanStats {
	if expected == nil {
		expected = ReachesOutermost
	}

	var stats CleanStats
	var drop []int
	for i, s := range g.All() {
		if s.State != expected(g, s) {
			drop = append(drop, i)
		}
	}
	for _, i := range drop {
		g.remove(i)
	}
	stats.StatePruned = len(drop)

	for {
		drop = drop[:0]
		for i, s := range g.All() {
			if len(s.Parents) == 0 && len(s.Children) == 0 {
				drop = append(drop, i)
			}
		}
		if len(drop) == 0 {
			break
		}
		for _, i := range drop {
			g.remove(i)
		}
		stats.SingletsPruned += len(drop)
	}

	g.compact()
	return stats
}
