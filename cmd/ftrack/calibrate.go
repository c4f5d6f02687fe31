package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/ftrack/calib"
	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
	"github.com/banshee-data/ftrack/internal/ftrack/storage/sqlite"
)

type calibrateOpts struct {
	dbPath     string
	runID      string
	efficiency float64
	minSamples int
	plotsDir   string
	outPath    string
	allPairs   bool
}

func newCalibrateCmd(g *globals) *cobra.Command {
	o := &calibrateOpts{}
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive criterion windows from the measures of a recorded run",
		Long: `calibrate reads the criterion measures a run stored with --diagnostics and
chooses, for every criterion, the window that keeps the requested fraction of
them. Only pairs whose hits share one particle label are used unless
--all-pairs is given. The new windows are applied on top of --config and
written to --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dbPath, "db", "", "SQLite database holding the run")
	f.StringVar(&o.runID, "run", "", "run id; the most recent run when empty")
	f.Float64Var(&o.efficiency, "efficiency", 0.99, "fraction of measures each window keeps")
	f.IntVar(&o.minSamples, "min-samples", 100, "skip criteria with fewer measures")
	f.StringVar(&o.plotsDir, "plots", "", "directory for one histogram PNG per criterion")
	f.StringVar(&o.outPath, "out", "", "write the calibrated tuning file here (.json, .yaml)")
	f.BoolVar(&o.allPairs, "all-pairs", false, "calibrate on every recorded pair, not only true ones")
	cmd.MarkFlagRequired("db")
	return cmd
}

func (o *calibrateOpts) run(cmd *cobra.Command, g *globals) error {
	ctx := cmd.Context()
	store, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := o.runID
	if runID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return errors.New("no runs recorded")
		}
		runID = runs[0].ID
	}

	c := calib.Calibrator{
		Registry:   criteria.DefaultRegistry(criteria.Environment{BzTesla: g.cfg.GetBzTesla()}),
		Efficiency: o.efficiency,
		MinSamples: o.minSamples,
		AllPairs:   o.allPairs,
	}
	cuts, err := c.CalibrateRun(ctx, store, runID)
	if err != nil {
		return err
	}
	if len(cuts) == 0 {
		return fmt.Errorf("run %s has no criterion with %d or more measures; was it recorded with --diagnostics and particle labels?", runID, o.minSamples)
	}

	tbl := newTable(cmd.OutOrStdout(), "Criterion", "Samples", "Mean", "StdDev", "Min", "Max")
	for _, cut := range cuts {
		tbl.Append([]string{cut.Name, itoa(cut.Samples), ftoa(cut.Mean), ftoa(cut.StdDev), ftoa(cut.Min), ftoa(cut.Max)})
	}
	tbl.Render()

	if o.plotsDir != "" {
		if err := os.MkdirAll(o.plotsDir, 0o755); err != nil {
			return err
		}
		for _, cut := range cuts {
			values, err := store.Measures(ctx, runID, cut.Name, o.allPairs, false)
			if err != nil {
				return err
			}
			if err := calib.WriteHistogram(filepath.Join(o.plotsDir, cut.Name+".png"), cut, values); err != nil {
				return err
			}
		}
	}
	if o.outPath != "" {
		if err := calib.Apply(g.cfg, cuts).Save(o.outPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", o.outPath)
	}
	return nil
}
