package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/ftrack/cellauto"
	"github.com/banshee-data/ftrack/internal/ftrack/pipeline"
	"github.com/banshee-data/ftrack/internal/ftrack/storage/sqlite"
)

type runOpts struct {
	dbPath      string
	notes       string
	metricsPath string
	diagnostics bool
	candidates  bool
}

func newRunCmd(g *globals) *cobra.Command {
	o := &runOpts{}
	cmd := &cobra.Command{
		Use:   "run <hits.csv|hits.json>",
		Short: "Find track candidates in every event of a hit file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dbPath, "db", "", "SQLite database to record the run in")
	f.StringVar(&o.notes, "notes", "", "free text stored with the run")
	f.StringVar(&o.metricsPath, "metrics", "", "write Prometheus metrics in text format to this file")
	f.BoolVar(&o.diagnostics, "diagnostics", false, "record every criterion measure (needs --db to be kept)")
	f.BoolVar(&o.candidates, "candidates", false, "print every candidate")
	return cmd
}

func (o *runOpts) run(cmd *cobra.Command, g *globals, path string) error {
	ctx := cmd.Context()
	events, err := g.readEvents(path)
	if err != nil {
		return err
	}

	cfg := g.cfg
	if cmd.Flags().Changed("diagnostics") {
		cp := *cfg
		cp.Diagnostics = &o.diagnostics
		cfg = &cp
	}

	reg := prometheus.NewRegistry()
	opts := []pipeline.Option{pipeline.WithMetrics(pipeline.NewMetrics(reg))}

	var run *sqlite.Run
	if o.dbPath != "" {
		store, err := sqlite.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if run, err = store.StartRun(ctx, cfg, o.notes); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithDiagnostics(run), pipeline.WithResults(run))
	}

	p, err := pipeline.NewEventProcessor(cfg, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tbl := newTable(out, "Event", "Hits", "Links", "Segments", "Candidates", "Tracks", "Fit failures", "Truncated")
	var sum pipeline.Summary
	var listing []string
	for _, ev := range events {
		r, err := p.Process(ctx, ev)
		if err != nil {
			return err
		}
		sum.Add(r)
		tbl.Append([]string{
			itoa(r.Event), itoa(r.Hits), itoa(r.Build.Linked), itoa(r.Segments),
			itoa(len(r.Candidates)), itoa(len(r.Tracks)), itoa(r.FitFailures), fmt.Sprint(r.Truncated),
		})
		if o.candidates {
			for i, c := range r.Candidates {
				listing = append(listing, formatCandidate(r.Event, i, c))
			}
		}
	}
	tbl.Render()
	for _, line := range listing {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d events, %d hits, %d candidates, %d tracks, %d fit failures, %d truncated\n",
		sum.Events, sum.Hits, sum.Candidates, sum.Tracks, sum.FitFailures, sum.Truncated)

	if run != nil {
		if err := run.Finish(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s\n", run.ID())
	}
	if o.metricsPath != "" {
		if err := prometheus.WriteToTextfile(o.metricsPath, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func formatCandidate(event, index int, c cellauto.Candidate) string {
	layers := c.Layers()
	parts := make([]string, len(c.Hits))
	for i, h := range c.Hits {
		parts[i] = fmt.Sprintf("L%d/p%d", layers[i], h.ParticleID)
	}
	return fmt.Sprintf("event %d candidate %d: %s", event, index, strings.Join(parts, " "))
}
