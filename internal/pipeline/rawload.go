package pipeline

// rawload.go - Bulk load of raw CSV flat files into top-level typed tables

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// LoadRawData loads every CSV file in dir into a raw table named after the
// file, with a trailing "_data" suffix stripped (sales_data.csv -> sales).
// Schema and types are inferred by the warehouse.
func LoadRawData(ctx context.Context, db adapter.Adapter, logger *slog.Logger, dir string) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read raw data directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		tableName := strings.TrimSuffix(entry.Name(), ".csv")
		tableName = strings.TrimSuffix(tableName, "_data")
		csvPath := filepath.Join(dir, entry.Name())

		logger.Debug("loading raw file", "table", tableName, "path", csvPath)

		if err := db.LoadCSV(ctx, tableName, csvPath); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		loaded++
	}

	if loaded == 0 {
		return 0, fmt.Errorf("no CSV files found in %s", dir)
	}

	return loaded, nil
}
