package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/cellauto"
	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/fit"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/ftrack/hitio"
	"github.com/banshee-data/ftrack/internal/monitoring"
	"github.com/banshee-data/ftrack/internal/timeutil"
)

// SegmentLength is the length of the segments whose links form candidates.
// Links between them are judged by the 4-hit criteria.
const SegmentLength = config.SegmentLength

// PairMeasures are the measures computed for one parent/child pair.
type PairMeasures struct {
	Stage    int  // length of the linked segments
	TruePair bool // every real hit carries the same non-zero particle label
	Measures []criteria.Measure
}

// DiagnosticsSink receives the measures computed while building an event's
// graph, once per event.
type DiagnosticsSink interface {
	RecordMeasures(event int, pairs []PairMeasures) error
}

// ResultSink receives the result of every processed event.
type ResultSink interface {
	RecordResult(r *EventResult) error
}

// EventResult is everything the processor learned about one event.
type EventResult struct {
	Event      int
	Hits       int // real hits in the event
	Segments   int // segments left in the final graph after cleaning
	Passes     int // automaton passes
	Build      cellauto.BuildStats
	Clean      cellauto.CleanStats
	Candidates []cellauto.Candidate
	Duplicates int  // candidates dropped by deduplication
	Truncated  bool // MaxCandidates cut the enumeration short
	Tracks     []fit.Track
	// FitFailures counts candidates the fitter rejected; FitErrors holds
	// their errors combined with multierr.
	FitFailures int
	FitErrors   error
	Duration    time.Duration
}

// EventProcessor runs the track finder on one event at a time. It keeps no
// state between events, but the sinks it writes to may.
type EventProcessor struct {
	cfg      *config.TuningConfig
	registry *criteria.Registry
	set      *criteria.Set
	fitter   fit.Fitter
	diag     DiagnosticsSink
	results  ResultSink
	metrics  *Metrics
	clock    timeutil.Clock
}

// Option configures an EventProcessor.
type Option func(*EventProcessor)

// WithFitter replaces the default HelixFitter. A nil fitter disables fitting.
func WithFitter(f fit.Fitter) Option { return func(p *EventProcessor) { p.fitter = f } }

// WithDiagnostics sends criterion measures to sink. Measures are only
// computed when the configuration enables diagnostics.
func WithDiagnostics(sink DiagnosticsSink) Option { return func(p *EventProcessor) { p.diag = sink } }

// WithResults sends each EventResult to sink.
func WithResults(sink ResultSink) Option { return func(p *EventProcessor) { p.results = sink } }

// WithMetrics records per-event counters.
func WithMetrics(m *Metrics) Option { return func(p *EventProcessor) { p.metrics = m } }

// WithClock replaces the wall clock used to time events.
func WithClock(c timeutil.Clock) Option { return func(p *EventProcessor) { p.clock = c } }

// WithRegistry resolves criteria against reg instead of the default catalog.
func WithRegistry(reg *criteria.Registry) Option { return func(p *EventProcessor) { p.registry = reg } }

// NewEventProcessor validates cfg and resolves its criteria. Unknown
// criterion names fail here, before any event is read.
func NewEventProcessor(cfg *config.TuningConfig, opts ...Option) (*EventProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &EventProcessor{
		cfg:    cfg,
		fitter: fit.HelixFitter{BzTesla: cfg.GetBzTesla(), MaxRMS: cfg.GetMaxFitRMS()},
		clock:  timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = criteria.DefaultRegistry(criteria.Environment{BzTesla: cfg.GetBzTesla()})
	}

	set, err := p.registry.NewSet(cfg.GetCriteria(), cfg.GetDiagnostics())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve criteria: %w", err)
	}
	p.set = set
	return p, nil
}

// Criteria returns the resolved criteria set.
func (p *EventProcessor) Criteria() *criteria.Set { return p.set }

// Process finds the track candidates of one event and fits them. Fit
// failures are reported on the result and never abort the event; any other
// error does.
func (p *EventProcessor) Process(ctx context.Context, ev hitio.Event) (*EventResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := p.clock.Now()

	pool, err := hit.NewPool(ev.Hits, p.cfg.GetNumLayers(), hit.PoolOptions{VirtualIP: p.cfg.GetUseVirtualIP()})
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", ev.ID, err)
	}

	b := cellauto.NewBuilder(p.set)
	b.PruneIntermediate = p.cfg.GetPruneIntermediate()
	var pairs []PairMeasures
	if p.diag != nil && p.set.Diagnostics() {
		b.OnMeasures = func(stage int, parent, child *cellauto.Segment, measures []criteria.Measure) {
			pairs = append(pairs, PairMeasures{
				Stage:    stage,
				TruePair: truePair(parent, child),
				Measures: slices.Clone(measures),
			})
		}
	}

	g, err := b.Build(pool, SegmentLength)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", ev.ID, err)
	}
	if len(pairs) > 0 {
		if err := p.diag.RecordMeasures(ev.ID, pairs); err != nil {
			return nil, fmt.Errorf("event %d: recording diagnostics: %w", ev.ID, err)
		}
	}

	r := &EventResult{
		Event: ev.ID,
		Hits:  len(ev.Hits),
		Build: b.Stats,
	}
	r.Passes = cellauto.RunAutomaton(g, 0)
	r.Clean = cellauto.Clean(g, nil)
	r.Segments = g.Live()

	var roots []int
	if p.cfg.GetRoots() == config.RootsInnermost {
		roots = cellauto.InnermostRoots(g)
	} else {
		roots = cellauto.Roots(g)
	}
	limit := p.cfg.GetMaxCandidates()
	r.Candidates = cellauto.Enumerator{MaxCandidates: limit}.Collect(g, roots)
	if limit > 0 && len(r.Candidates) == limit {
		r.Truncated = cellauto.CountPaths(g, roots) > limit
	}
	if p.cfg.GetDedupeCandidates() {
		r.Candidates, r.Duplicates = dedupe(r.Candidates)
	}

	if p.fitter != nil {
		for _, c := range r.Candidates {
			tr, err := p.fitter.Fit(c.Hits)
			if err != nil {
				r.FitFailures++
				r.FitErrors = multierr.Append(r.FitErrors, fmt.Errorf("candidate %s: %w", c.Key(), err))
				continue
			}
			r.Tracks = append(r.Tracks, tr)
		}
	}

	r.Duration = p.clock.Since(start)
	monitoring.Debugf("[pipeline] event %d: %d hits, %d links, %d passes, %d segments, %d candidates, %d tracks in %v",
		ev.ID, r.Hits, r.Build.Linked, r.Passes, r.Segments, len(r.Candidates), len(r.Tracks), r.Duration)
	if r.Truncated {
		monitoring.Logf("[pipeline] event %d: candidate limit %d reached, enumeration truncated", ev.ID, limit)
	}

	if p.metrics != nil {
		p.metrics.observe(r, len(ev.Hits))
	}
	if p.results != nil {
		if err := p.results.RecordResult(r); err != nil {
			return r, fmt.Errorf("event %d: recording result: %w", ev.ID, err)
		}
	}
	return r, nil
}

// Summary aggregates a batch of events.
type Summary struct {
	Events      int
	Hits        int
	Candidates  int
	Tracks      int
	FitFailures int
	Truncated   int
	Duration    time.Duration
}

// Add folds one event result into the summary.
func (s *Summary) Add(r *EventResult) {
	s.Events++
	s.Hits += r.Hits
	s.Candidates += len(r.Candidates)
	s.Tracks += len(r.Tracks)
	s.FitFailures += r.FitFailures
	if r.Truncated {
		s.Truncated++
	}
	s.Duration += r.Duration
}

// ProcessAll processes events in order and stops at the first error or when
// ctx is cancelled.
func (p *EventProcessor) ProcessAll(ctx context.Context, events []hitio.Event) (Summary, error) {
	var s Summary
	for _, ev := range events {
		r, err := p.Process(ctx, ev)
		if err != nil {
			return s, err
		}
		s.Add(r)
	}
	return s, nil
}

// truePair reports whether the hits of a parent/child pair all belong to one
// labelled particle. Virtual hits carry no label and are ignored.
func truePair(parent, child *cellauto.Segment) bool {
	particle := 0
	for _, hits := range [][]*hit.Hit{parent.Hits, child.Hits} {
		for _, h := range hits {
			if h.Virtual {
				continue
			}
			if h.ParticleID == 0 || (particle != 0 && h.ParticleID != particle) {
				return false
			}
			particle = h.ParticleID
		}
	}
	return particle != 0
}

// dedupe drops candidates whose hit sequence was already emitted, keeping
// the first occurrence.
func dedupe(cands []cellauto.Candidate) ([]cellauto.Candidate, int) {
	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out, len(cands) - len(out)
}
