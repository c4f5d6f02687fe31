package sweep

import (
	"github.com/banshee-data/ftrack/internal/ftrack/cellauto"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
)

// Score counts how well the candidates of a batch of events match the truth
// labels on their hits. A particle is reconstructable when its hits span at
// least MinLayers distinct layers. A candidate is pure when all its real hits
// carry the same non-zero particle ID; impure candidates are fakes, and pure
// candidates after the first for the same particle are duplicates.
type Score struct {
	Reconstructable int
	Found           int
	Candidates      int
	Fakes           int
	Duplicates      int
}

// Efficiency is Found over Reconstructable, 0 when nothing is reconstructable.
func (s Score) Efficiency() float64 { return ratio(s.Found, s.Reconstructable) }

// FakeRate is Fakes over Candidates.
func (s Score) FakeRate() float64 { return ratio(s.Fakes, s.Candidates) }

// DuplicateRate is Duplicates over Candidates.
func (s Score) DuplicateRate() float64 { return ratio(s.Duplicates, s.Candidates) }

// Add accumulates another score.
func (s *Score) Add(o Score) {
	s.Reconstructable += o.Reconstructable
	s.Found += o.Found
	s.Candidates += o.Candidates
	s.Fakes += o.Fakes
	s.Duplicates += o.Duplicates
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// ScoreEvent scores the candidates found in one event.
func ScoreEvent(hits []hit.Hit, cands []cellauto.Candidate, minLayers int) Score {
	layers := make(map[int]map[int]struct{})
	for _, h := range hits {
		if h.ParticleID == 0 || h.Virtual {
			continue
		}
		if layers[h.ParticleID] == nil {
			layers[h.ParticleID] = make(map[int]struct{})
		}
		layers[h.ParticleID][h.Layer] = struct{}{}
	}

	var s Score
	reconstructable := make(map[int]bool)
	for id, ls := range layers {
		if len(ls) >= minLayers {
			reconstructable[id] = true
			s.Reconstructable++
		}
	}

	found := make(map[int]bool)
	for _, c := range cands {
		s.Candidates++
		id, pure := purity(c.Hits)
		if !pure {
			s.Fakes++
			continue
		}
		if found[id] {
			s.Duplicates++
			continue
		}
		found[id] = true
		if reconstructable[id] {
			s.Found++
		}
	}
	return s
}

func purity(hits []*hit.Hit) (int, bool) {
	id := 0
	for _, h := range hits {
		if h.Virtual {
			continue
		}
		if h.ParticleID == 0 || (id != 0 && h.ParticleID != id) {
			return 0, false
		}
		id = h.ParticleID
	}
	return id, id != 0
}
