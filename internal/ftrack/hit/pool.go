package hit

import "fmt"

// PoolOptions controls how a Pool is assembled from raw hits.
type PoolOptions struct {
	// VirtualIP inserts a synthetic hit at the origin on a new innermost
	// layer. All real layers shift outwards by one.
	VirtualIP bool
}

// Pool owns every hit of one event. Hits are never appended after
// construction, so pointers handed out by the pool stay valid for the
// lifetime of the event.
type Pool struct {
	hits      []Hit
	byLayer   [][]*Hit
	numLayers int
	virtualIP bool
}

// NewPool copies hits into a new pool and groups them by layer. Input order
// is preserved inside each layer. A real hit's ID is its index in hits; the
// virtual IP hit, when present, comes after them.
func NewPool(hits []Hit, numLayers int, opts PoolOptions) (*Pool, error) {
	if numLayers < 1 {
		return nil, fmt.Errorf("number of layers must be positive, got %d", numLayers)
	}
	for i := range hits {
		if hits[i].Layer < 0 || hits[i].Layer >= numLayers {
			return nil, fmt.Errorf("hit %d on layer %d (have %d layers): %w",
				i, hits[i].Layer, numLayers, ErrInvalidLayer)
		}
	}

	shift := 0
	if opts.VirtualIP {
		shift = 1
	}

	p := &Pool{
		hits:      make([]Hit, 0, len(hits)+shift),
		numLayers: numLayers + shift,
		virtualIP: opts.VirtualIP,
	}
	for _, h := range hits {
		h.Layer += shift
		h.Virtual = false
		p.hits = append(p.hits, h)
	}
	if opts.VirtualIP {
		p.hits = append(p.hits, Hit{Layer: 0, Virtual: true})
	}

	p.byLayer = make([][]*Hit, p.numLayers)
	for i := range p.hits {
		h := &p.hits[i]
		h.ID = i
		p.byLayer[h.Layer] = append(p.byLayer[h.Layer], h)
	}
	return p, nil
}

// NumLayers returns the number of layers, including the virtual IP layer
// when present.
func (p *Pool) NumLayers() int { return p.numLayers }

// HasVirtualIP reports whether layer 0 is the synthetic IP layer.
func (p *Pool) HasVirtualIP() bool { return p.virtualIP }

// LayerOffset returns how far the pool moved input layers outwards.
func (p *Pool) LayerOffset() int {
	if p.virtualIP {
		return 1
	}
	return 0
}

// Len returns the number of hits, virtual ones included.
func (p *Pool) Len() int { return len(p.hits) }

// Hit returns the hit with the given pool ID.
func (p *Pool) Hit(id int) *Hit { return &p.hits[id] }

// Layer returns the hits on layer i. The slice must not be modified.
func (p *Pool) Layer(i int) []*Hit {
	if i < 0 || i >= len(p.byLayer) {
		return nil
	}
	return p.byLayer[i]
}
