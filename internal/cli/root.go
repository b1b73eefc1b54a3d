// Package cli provides the command-line interface for Shelfline.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/northstack-labs/shelfline/internal/cli/commands"
	"github.com/northstack-labs/shelfline/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "shelfline",
		Short: "Shelfline - Retail analytics pipeline",
		Long: `Shelfline is a retail analytics warehouse built with Go and DuckDB.

It transforms raw retail transaction, inventory, product, and supplier
records through a layered pipeline (staging, intermediate, marts), then
produces per-product demand forecasts and price recommendations.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cmd.SetContext(commands.WithRuntime(cmd.Context(), cfg, logger))

			if cfg.Verbose {
				if path := config.FileUsed(); path != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", path)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./shelfline.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Path to raw CSV data directory")
	rootCmd.PersistentFlags().String("export-dir", "", "Path for exported snapshot files")
	rootCmd.PersistentFlags().String("database", "", "Path to DuckDB database (empty for in-memory)")
	rootCmd.PersistentFlags().String("state-path", "", "Path to run state database")
	rootCmd.PersistentFlags().String("environment", "", "Environment name")
	rootCmd.PersistentFlags().Int("horizon", 0, "Forecast horizon in days (default 30)")
	rootCmd.PersistentFlags().Int("min-history-days", 0, "Minimum observations before modeling (default 60)")
	rootCmd.PersistentFlags().Int("forecast-workers", 0, "Concurrent per-product model fits (default 4)")
	rootCmd.PersistentFlags().String("anchor", "", "Pricing anchor date mode (wallclock|latest-data)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("anchor", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"wallclock", "latest-data"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewLoadCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
