package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northstack-labs/shelfline/internal/datagen"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var (
		seed     int64
		sales    int
		products int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic retail dataset into the data directory",
		Long: `Generate synthetic sales, product catalog, inventory, and supplier
CSV files for local development. The same seed always produces the same
dataset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := getRuntime(cmd.Context())

			genCfg := datagen.Config{Seed: seed, NumSales: sales, NumProducts: products}
			if err := datagen.Generate(cfg.DataDir, genCfg); err != nil {
				return fmt.Errorf("failed to generate dataset: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Synthetic dataset written to %s\n", cfg.DataDir)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for reproducible datasets")
	cmd.Flags().IntVar(&sales, "sales", 0, "Number of sales transactions (default 10000)")
	cmd.Flags().IntVar(&products, "products", 0, "Number of products (default 100)")

	return cmd
}
