package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema.table>",
		Short: "Show a warehouse table's schema and row count",
		Args:  cobra.ExactArgs(1),
		Example: `  shelfline describe marts.fct_sales
  shelfline describe recommendations.product_pricing_recommendations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := getRuntime(cmd.Context())
			ctx := cmd.Context()

			db, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			meta, err := db.GetTableMetadata(ctx, args[0])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Column", "Type", "Nullable"})
			for _, col := range meta.Columns {
				t.AppendRow(table.Row{col.Position, col.Name, col.Type, col.Nullable})
			}
			t.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s: %d rows\n", meta.Schema, meta.Name, meta.RowCount)
			return nil
		},
	}
}
