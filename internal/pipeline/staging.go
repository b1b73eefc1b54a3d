package pipeline

// staging.go - First normalization layer, one staged table per raw entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// stagingSpec describes how one raw entity is normalized into staging.
type stagingSpec struct {
	raw    string
	target string
	sql    string
}

// Staged tables are 1:1 with their raw source: type coercion, derived
// fields, and column projection only. No filtering, no aggregation.
var stagingSpecs = []stagingSpec{
	{
		raw:    "sales",
		target: "staging.stg_sales",
		sql: `SELECT
    transaction_id,
    product_id,
    customer_id,
    CAST(sale_date AS DATE) AS sale_date,
    quantity_sold,
    price_per_unit,
    discount_applied,
    store_id,
    quantity_sold * price_per_unit * (1 - discount_applied) AS net_sales_amount
FROM sales`,
	},
	{
		raw:    "product_catalog",
		target: "staging.stg_products",
		sql: `SELECT
    product_id,
    product_name,
    category,
    brand,
    cost_price,
    weight_kg,
    dimensions_cm,
    supplier_id
FROM product_catalog`,
	},
	{
		raw:    "inventory",
		target: "staging.stg_inventory",
		sql: `SELECT
    product_id,
    store_id,
    current_stock_level,
    CAST(last_updated AS DATE) AS inventory_date
FROM inventory`,
	},
	{
		raw:    "supplier",
		target: "staging.stg_supplier",
		sql: `SELECT
    supplier_id,
    supplier_name,
    contact_person,
    lead_time_days,
    minimum_order_quantity
FROM supplier`,
	},
}

// StagingStage normalizes the four raw entity tables into the staging schema.
type StagingStage struct {
	logger *slog.Logger
}

// NewStagingStage creates the staging stage.
func NewStagingStage(logger *slog.Logger) *StagingStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StagingStage{logger: logger}
}

// Name returns the stage name.
func (s *StagingStage) Name() string { return "staging" }

// Run validates all raw inputs, then rebuilds each staged table wholesale.
// A missing or empty raw table fails the stage loudly rather than producing
// an empty staged table that masks the gap downstream.
func (s *StagingStage) Run(ctx context.Context, db adapter.Adapter) (int64, error) {
	var inputErrs []error
	for _, spec := range stagingSpecs {
		if err := requireNonEmptyTable(ctx, db, spec.raw); err != nil {
			inputErrs = append(inputErrs, err)
		}
	}
	if len(inputErrs) > 0 {
		return 0, fmt.Errorf("staging inputs invalid: %w", errors.Join(inputErrs...))
	}

	var total int64
	for _, spec := range stagingSpecs {
		rows, err := Materialize(ctx, db, spec.target, spec.sql)
		if err != nil {
			return total, fmt.Errorf("failed to stage %s: %w", spec.raw, err)
		}
		s.logger.Debug("staged table rebuilt", "table", spec.target, "rows", rows)
		total += rows
	}

	return total, nil
}

// requireNonEmptyTable fails if an upstream table is absent or has no rows.
func requireNonEmptyTable(ctx context.Context, db adapter.Adapter, table string) error {
	exists, err := db.TableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("checking table %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("required table %s does not exist", table)
	}

	rows, err := db.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return fmt.Errorf("counting rows in %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return fmt.Errorf("scanning row count for %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("required table %s is empty", table)
	}
	return nil
}
