package pipeline

// intermediate.go - Denormalized, query-friendly pre-aggregations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

const dailyProductSalesSQL = `SELECT
    s.sale_date,
    s.product_id,
    s.store_id,
    CAST(SUM(s.quantity_sold) AS BIGINT) AS daily_quantity_sold,
    SUM(s.net_sales_amount) AS daily_net_sales
FROM staging.stg_sales AS s
GROUP BY 1, 2, 3
ORDER BY 1, 2, 3`

const productDetailsSQL = `SELECT
    p.product_id,
    p.product_name,
    p.category,
    p.brand,
    p.cost_price,
    s.supplier_name,
    s.lead_time_days
FROM staging.stg_products AS p
LEFT JOIN staging.stg_supplier AS s ON p.supplier_id = s.supplier_id`

// IntermediateStage builds the intermediate aggregates from staged records.
type IntermediateStage struct {
	logger *slog.Logger
}

// NewIntermediateStage creates the intermediate stage.
func NewIntermediateStage(logger *slog.Logger) *IntermediateStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IntermediateStage{logger: logger}
}

// Name returns the stage name.
func (s *IntermediateStage) Name() string { return "intermediate" }

// Run rebuilds int_daily_product_sales and int_product_details wholesale.
// Aggregation is total: every staged sales row lands in exactly one group,
// and products without a supplier still appear with supplier fields null.
func (s *IntermediateStage) Run(ctx context.Context, db adapter.Adapter) (int64, error) {
	var total int64

	rows, err := Materialize(ctx, db, "intermediate.int_daily_product_sales", dailyProductSalesSQL)
	if err != nil {
		return total, fmt.Errorf("failed to build int_daily_product_sales: %w", err)
	}
	s.logger.Debug("intermediate table rebuilt", "table", "intermediate.int_daily_product_sales", "rows", rows)
	total += rows

	rows, err = Materialize(ctx, db, "intermediate.int_product_details", productDetailsSQL)
	if err != nil {
		return total, fmt.Errorf("failed to build int_product_details: %w", err)
	}
	s.logger.Debug("intermediate table rebuilt", "table", "intermediate.int_product_details", "rows", rows)
	total += rows

	return total, nil
}
