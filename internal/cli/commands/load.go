package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northstack-labs/shelfline/internal/pipeline"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load raw CSV files into the warehouse",
		Long: `Bulk-load every CSV file from the data directory into a raw
warehouse table named after the file (a trailing "_data" suffix is
stripped, so sales_data.csv becomes the sales table).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := getRuntime(cmd.Context())
			ctx := cmd.Context()

			db, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			fmt.Fprintf(cmd.OutOrStdout(), "Loading raw data from %s...\n", cfg.DataDir)
			loaded, err := pipeline.LoadRawData(ctx, db, logger, cfg.DataDir)
			if err != nil {
				return fmt.Errorf("failed to load raw data: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d raw tables\n", loaded)
			return nil
		},
	}
}
