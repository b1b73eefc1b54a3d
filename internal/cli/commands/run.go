package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/northstack-labs/shelfline/internal/pipeline"
	"github.com/northstack-labs/shelfline/internal/pricing"
	"github.com/northstack-labs/shelfline/internal/state"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var selectStages string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transformation pipeline",
		Long: `Execute the pipeline stages in dependency order:
staging, intermediate, marts, forecast, pricing.

By default all stages run. Use --select to run a subset in canonical
order; keeping upstream tables fresh is then your responsibility.`,
		Example: `  # Run the full pipeline
  shelfline run

  # Rebuild only the marts and downstream engines
  shelfline run --select marts,forecast,pricing

  # Anchor pricing on the newest inventory date instead of the wall clock
  shelfline run --anchor latest-data`,
		Aliases: []string{"build"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := getRuntime(cmd.Context())
			ctx := cmd.Context()
			startTime := time.Now()

			db, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p := pipeline.New(db, store, pipeline.Config{
				Horizon:         cfg.Horizon,
				MinObservations: cfg.MinHistoryDays,
				ForecastWorkers: cfg.ForecastWorkers,
				Anchor:          pricing.Anchor(cfg.Anchor),
				Logger:          logger,
			})

			var run *state.Run
			if selectStages != "" {
				names := strings.Split(selectStages, ",")
				for i := range names {
					names[i] = strings.TrimSpace(names[i])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Running %d selected stages...\n", len(names))
				run, err = p.RunSelected(ctx, cfg.Environment, names)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Running all stages...")
				run, err = p.Run(ctx, cfg.Environment)
			}

			if run != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", run.ID, run.Status)
				if run.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", run.Error)
				}
			}
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n", time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&selectStages, "select", "s", "", "Comma-separated list of stages to run")

	return cmd
}
