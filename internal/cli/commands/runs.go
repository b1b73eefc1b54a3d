package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	var showStages bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := getRuntime(cmd.Context())

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Run", "Env", "Status", "Started", "Duration"})
			for _, run := range runs {
				duration := "-"
				if run.CompletedAt != nil {
					duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				t.AppendRow(table.Row{
					run.ID[:8], run.Environment, run.Status,
					run.StartedAt.Format(time.RFC3339), duration,
				})
			}
			t.Render()

			if !showStages {
				return nil
			}

			for _, run := range runs {
				stageRuns, err := store.GetStageRunsForRun(run.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nRun %s stages:\n", run.ID[:8])
				st := table.NewWriter()
				st.SetOutputMirror(cmd.OutOrStdout())
				st.AppendHeader(table.Row{"Stage", "Status", "Rows", "Exec (ms)", "Error"})
				for _, sr := range stageRuns {
					st.AppendRow(table.Row{sr.Stage, sr.Status, sr.RowsAffected, sr.ExecutionMS, sr.Error})
				}
				st.Render()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&showStages, "stages", false, "Show per-stage outcomes for each run")

	return cmd
}
