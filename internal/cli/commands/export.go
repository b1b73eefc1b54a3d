package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northstack-labs/shelfline/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export latest snapshots to CSV",
		Long: `Snapshot the latest inventory summary and pricing recommendations
(resolved by max date) into timestamped CSV files for downstream systems.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := getRuntime(cmd.Context())
			ctx := cmd.Context()

			db, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			written, err := export.New(db, logger).Run(ctx, cfg.ExportDir)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if len(written) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to export")
				return nil
			}
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
			}
			return nil
		},
	}
}
