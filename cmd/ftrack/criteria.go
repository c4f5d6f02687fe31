package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
)

func newCriteriaCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "criteria",
		Short: "List the criterion catalog and the configured windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := criteria.DefaultRegistry(criteria.Environment{BzTesla: g.cfg.GetBzTesla()})
			configured := make(map[string]criteria.Spec)
			for _, s := range g.cfg.GetCriteria() {
				configured[s.Name] = s
			}

			tbl := newTable(cmd.OutOrStdout(), "Name", "Type", "Left", "Right", "Min", "Max", "Description")
			for _, info := range reg.List() {
				lo, hi := "-", "-"
				if s, ok := configured[info.Name]; ok {
					lo, hi = ftoa(s.Min), ftoa(s.Max)
				}
				tbl.Append([]string{info.Name, info.Type, ftoa(info.Left), ftoa(info.Right), lo, hi, info.Description})
			}
			tbl.Render()
			return nil
		},
	}
}
