package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ftrack/internal/ftrack/storage/sqlite"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs recorded in a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			tbl := newTable(cmd.OutOrStdout(), "Run", "Started", "Finished", "Events", "Candidates", "Tracks", "Notes")
			for _, r := range runs {
				finished := "-"
				if !r.Finished.IsZero() {
					finished = r.Finished.Format(time.RFC3339)
				}
				tbl.Append([]string{
					r.ID, r.Started.Format(time.RFC3339), finished,
					itoa(r.Summary.Events), itoa(r.Summary.Candidates), itoa(r.Summary.Tracks), r.Notes,
				})
			}
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database")
	cmd.MarkFlagRequired("db")
	return cmd
}
