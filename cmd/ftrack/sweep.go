package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/ftrack/sweep"
)

type sweepOpts struct {
	params      []string
	csvPath     string
	htmlPath    string
	concurrency int
	minLayers   int
}

func newSweepCmd(g *globals) *cobra.Command {
	o := &sweepOpts{}
	cmd := &cobra.Command{
		Use:   "sweep <hits.csv|hits.json>",
		Short: "Score the track finder over a grid of criterion bounds",
		Example: `  ftrack sweep events.csv --param Crit2_DeltaPhi.max=1:10:1
  ftrack sweep events.csv --param Crit3_PT.min=0.5,1,2 --param Crit2_RZRatio.max=1.2,1.4 --csv sweep.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args[0])
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&o.params, "param", nil, "criterion.bound=min:max:step or a comma list (repeatable)")
	f.StringVar(&o.csvPath, "csv", "", "write results as CSV")
	f.StringVar(&o.htmlPath, "html", "", "write an HTML chart of the rates")
	f.IntVar(&o.concurrency, "concurrency", 0, "combinations processed at once (0 = GOMAXPROCS)")
	f.IntVar(&o.minLayers, "min-layers", 0, "layers a particle must cross to count (0 = num_layers)")
	return cmd
}

func (o *sweepOpts) run(cmd *cobra.Command, g *globals, path string) error {
	if len(o.params) == 0 {
		return errors.New("at least one --param is required")
	}
	params := make([]sweep.Param, len(o.params))
	for i, s := range o.params {
		p, err := sweep.ParseParam(s)
		if err != nil {
			return err
		}
		params[i] = p
	}

	events, err := g.readEvents(path)
	if err != nil {
		return err
	}

	r := &sweep.Runner{
		Base:        g.cfg,
		Events:      events,
		Concurrency: o.concurrency,
		MinLayers:   o.minLayers,
	}
	results, err := r.Run(cmd.Context(), params)
	if err != nil {
		return err
	}

	header := make([]string, 0, len(params)+5)
	for _, p := range params {
		header = append(header, p.Name())
	}
	header = append(header, "Candidates", "Found", "Efficiency", "Fake rate", "Duplicate rate")
	tbl := newTable(cmd.OutOrStdout(), header...)
	for _, res := range results {
		row := make([]string, 0, len(header))
		for _, v := range res.Values {
			row = append(row, ftoa(v))
		}
		row = append(row, itoa(res.Summary.Candidates), itoa(res.Score.Found),
			ftoa(res.Score.Efficiency()), ftoa(res.Score.FakeRate()), ftoa(res.Score.DuplicateRate()))
		tbl.Append(row)
	}
	tbl.Render()

	if o.csvPath != "" {
		if err := writeFile(o.csvPath, func(f *os.File) error {
			return sweep.NewCSVWriter(f, params).WriteAll(results)
		}); err != nil {
			return err
		}
	}
	if o.htmlPath != "" {
		if err := writeFile(o.htmlPath, func(f *os.File) error {
			return sweep.WriteChart(f, "ftrack sweep", params, results)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
