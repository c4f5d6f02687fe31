package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/hitio"
	"github.com/banshee-data/ftrack/internal/monitoring"
	"github.com/banshee-data/ftrack/internal/units"
	"github.com/banshee-data/ftrack/internal/version"
)

// globals holds the persistent flags and the configuration they load.
type globals struct {
	configPath string
	debug      bool
	unit       string
	cfg        *config.TuningConfig
}

func (g *globals) load() error {
	monitoring.SetDebug(g.debug)
	if g.configPath == "" {
		g.cfg = config.EmptyTuningConfig()
		return nil
	}
	cfg, err := config.LoadTuningConfig(g.configPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

// readEvents loads a hit file and converts its positions to millimetres.
func (g *globals) readEvents(path string) ([]hitio.Event, error) {
	events, err := hitio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := hitio.Convert(events, g.unit); err != nil {
		return nil, err
	}
	return events, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "ftrack",
		Short:         "Cellular-automaton track finder",
		Long:          `ftrack links hits on consecutive detector layers into segments, evolves them with a cellular automaton and reports the resulting track candidates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "tuning file (.json, .yaml); built-in defaults when empty")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "verbose logging")
	root.PersistentFlags().StringVar(&g.unit, "units", units.MM, "length unit of hit positions ("+units.GetValidUnitsString()+")")

	root.AddCommand(
		newRunCmd(g),
		newCriteriaCmd(g),
		newCalibrateCmd(g),
		newSweepCmd(g),
		newRunsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(header)
	tbl.SetAutoWrapText(false)
	tbl.SetAutoFormatHeaders(false)
	return tbl
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
