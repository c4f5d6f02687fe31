package sweep

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/hitio"
	"github.com/banshee-data/ftrack/internal/ftrack/pipeline"
	"github.com/banshee-data/ftrack/internal/monitoring"
)

// Result is the outcome of one point of the sweep.
type Result struct {
	Values  []float64 // parallel to the swept params
	Summary pipeline.Summary
	Score   Score
}

// Runner sweeps criterion bounds over a fixed set of events.
type Runner struct {
	Base   *config.TuningConfig
	Events []hitio.Event

	// Concurrency bounds the combinations processed at once. Zero means
	// GOMAXPROCS.
	Concurrency int
	// MinLayers is the layer span a particle needs to count as
	// reconstructable. Zero means the base configuration's layer count.
	MinLayers int
	// Options are passed to every EventProcessor.
	Options []pipeline.Option
	// OnResult, when set, is called once per finished combination. Calls
	// may come from several goroutines.
	OnResult func(Result)
}

// Run processes every combination of params and returns the results in
// combination order. Each combination gets its own EventProcessor. The
// first error cancels the remaining work.
func (r *Runner) Run(ctx context.Context, params []Param) ([]Result, error) {
	values := make([][]float64, len(params))
	for i, p := range params {
		values[i] = p.Values
	}
	combos, err := Combinations(values)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		combos = [][]float64{{}}
	}

	minLayers := r.MinLayers
	if minLayers <= 0 {
		minLayers = r.Base.GetNumLayers()
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	monitoring.Logf("[sweep] %d combinations over %d events, %d at a time", len(combos), len(r.Events), limit)

	results := make([]Result, len(combos))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, combo := range combos {
		g.Go(func() error {
			res, err := r.runOne(ctx, params, combo, minLayers)
			if err != nil {
				return fmt.Errorf("combination %v: %w", combo, err)
			}
			results[i] = res
			if r.OnResult != nil {
				r.OnResult(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, params []Param, combo []float64, minLayers int) (Result, error) {
	cfg, err := Apply(r.Base, params, combo)
	if err != nil {
		return Result{}, err
	}
	p, err := pipeline.NewEventProcessor(cfg, r.Options...)
	if err != nil {
		return Result{}, err
	}

	res := Result{Values: combo}
	for _, ev := range r.Events {
		er, err := p.Process(ctx, ev)
		if err != nil {
			return Result{}, err
		}
		res.Summary.Add(er)
		res.Score.Add(ScoreEvent(ev.Hits, er.Candidates, minLayers))
	}
	monitoring.Debugf("[sweep] %v: efficiency %.3f fake %.3f", combo, res.Score.Efficiency(), res.Score.FakeRate())
	return res, nil
}
