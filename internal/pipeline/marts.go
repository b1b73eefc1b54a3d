package pipeline

// marts.go - Dimensional/fact layer consumed by analytics and the engines

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

const dimProductsSQL = `SELECT
    product_id,
    product_name,
    category,
    brand,
    cost_price,
    supplier_name,
    lead_time_days
FROM intermediate.int_product_details`

const fctSalesSQL = `SELECT
    s.sale_date,
    s.transaction_id,
    s.product_id,
    s.customer_id,
    s.store_id,
    s.quantity_sold,
    s.price_per_unit,
    s.discount_applied,
    s.net_sales_amount,
    p.category,
    p.brand,
    p.cost_price,
    p.supplier_name
FROM staging.stg_sales AS s
LEFT JOIN marts.dim_products AS p ON s.product_id = p.product_id`

const dailyInventorySummarySQL = `SELECT
    i.inventory_date,
    i.store_id,
    i.product_id,
    i.current_stock_level,
    p.product_name,
    p.category,
    p.brand,
    p.cost_price,
    p.supplier_name,
    p.lead_time_days
FROM staging.stg_inventory AS i
LEFT JOIN marts.dim_products AS p ON i.product_id = p.product_id`

// MartStage builds dim_products, fct_sales, and agg_daily_inventory_summary.
type MartStage struct {
	logger *slog.Logger
}

// NewMartStage creates the mart stage.
func NewMartStage(logger *slog.Logger) *MartStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MartStage{logger: logger}
}

// Name returns the stage name.
func (s *MartStage) Name() string { return "marts" }

// Run rebuilds the three mart tables wholesale. dim_products is rebuilt
// first: the fact and summary joins read its freshly published content
// within the same run, re-stamping every row with current dimension values.
func (s *MartStage) Run(ctx context.Context, db adapter.Adapter) (int64, error) {
	var total int64

	for _, m := range []struct {
		table string
		sql   string
	}{
		{"marts.dim_products", dimProductsSQL},
		{"marts.fct_sales", fctSalesSQL},
		{"marts.agg_daily_inventory_summary", dailyInventorySummarySQL},
	} {
		rows, err := Materialize(ctx, db, m.table, m.sql)
		if err != nil {
			return total, fmt.Errorf("failed to build %s: %w", m.table, err)
		}
		s.logger.Debug("mart table rebuilt", "table", m.table, "rows", rows)
		total += rows
	}

	return total, nil
}
