// Package export snapshots the latest pipeline outputs to flat files for
// downstream consumers (ERP inventory feeds, e-commerce price updates).
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

const latestInventorySQL = `SELECT
    inventory_date,
    store_id,
    product_id,
    current_stock_level,
    product_name,
    category,
    brand,
    cost_price,
    supplier_name,
    lead_time_days
FROM marts.agg_daily_inventory_summary
WHERE inventory_date = (SELECT MAX(inventory_date) FROM marts.agg_daily_inventory_summary)`

const latestRecommendationsSQL = `SELECT
    product_id,
    product_name,
    current_price_reference,
    recommended_price,
    pricing_reason,
    recommendation_date
FROM recommendations.product_pricing_recommendations
WHERE recommendation_date = (SELECT MAX(recommendation_date) FROM recommendations.product_pricing_recommendations)`

// Exporter writes timestamped CSV snapshots of the latest outputs.
type Exporter struct {
	db     adapter.Adapter
	logger *slog.Logger

	// Now supplies the timestamp used in file names, replaceable in tests.
	Now func() time.Time
}

// New creates an exporter.
func New(db adapter.Adapter, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{db: db, logger: logger, Now: time.Now}
}

// Run exports the latest inventory summary and pricing recommendations
// into dir. Returns the paths written. A missing or empty source table is
// logged and skipped rather than producing an empty snapshot file.
func (e *Exporter) Run(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	timestamp := e.Now().Format("20060102150405")
	var written []string

	exports := []struct {
		name  string
		table string
		sql   string
	}{
		{fmt.Sprintf("inventory_snapshot_%s.csv", timestamp), "marts.agg_daily_inventory_summary", latestInventorySQL},
		{fmt.Sprintf("pricing_recommendations_%s.csv", timestamp), "recommendations.product_pricing_recommendations", latestRecommendationsSQL},
	}

	for _, ex := range exports {
		ok, err := e.hasRows(ctx, ex.table)
		if err != nil {
			return written, err
		}
		if !ok {
			e.logger.Info("nothing to export", "table", ex.table)
			continue
		}

		path, err := filepath.Abs(filepath.Join(dir, ex.name))
		if err != nil {
			return written, fmt.Errorf("failed to resolve export path: %w", err)
		}

		copySQL := fmt.Sprintf("COPY (%s) TO '%s' (HEADER, DELIMITER ',')", ex.sql, path)
		if err := e.db.Exec(ctx, copySQL); err != nil {
			return written, fmt.Errorf("failed to export %s: %w", ex.table, err)
		}

		e.logger.Info("exported snapshot", "table", ex.table, "path", path)
		written = append(written, path)
	}

	return written, nil
}

// hasRows reports whether a table exists and is non-empty.
func (e *Exporter) hasRows(ctx context.Context, table string) (bool, error) {
	exists, err := e.db.TableExists(ctx, table)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	rows, err := e.db.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, err
		}
	}
	return count > 0, rows.Err()
}
