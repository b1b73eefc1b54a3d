package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// ErrNoPricingInputs is returned when the joined input set is empty. The
// engine aborts rather than writing a zero-row recommendations table that
// would mask true absence of output from max-date readers.
var ErrNoPricingInputs = errors.New("no data found for pricing recommendations")

// Anchor selects how "today" (inventory) and "tomorrow" (forecast) are
// resolved when joining pricing context.
type Anchor string

const (
	// AnchorWallClock uses the current wall-clock date.
	AnchorWallClock Anchor = "wallclock"
	// AnchorLatestData uses the newest inventory_date in the summary mart.
	AnchorLatestData Anchor = "latest-data"
)

// Recommendation is one pricing output row.
type Recommendation struct {
	ProductID             string
	ProductName           string
	CurrentPriceReference decimal.Decimal
	RecommendedPrice      decimal.Decimal
	PricingReason         string
	RecommendationDate    time.Time
}

// Stock is summed across stores so each product yields exactly one
// recommendation per run.
const pricingInputsSQL = `SELECT
    dp.product_id,
    dp.product_name,
    dp.category,
    dp.cost_price,
    COALESCE(inv.current_stock_level, 0) AS current_stock_level,
    COALESCE(fd.predicted_quantity, 0) AS predicted_demand_tomorrow,
    (SELECT AVG(price_per_unit) FROM marts.fct_sales fs WHERE fs.product_id = dp.product_id) AS historical_avg_price
FROM marts.dim_products AS dp
LEFT JOIN (
    SELECT product_id, CAST(SUM(current_stock_level) AS BIGINT) AS current_stock_level
    FROM marts.agg_daily_inventory_summary
    WHERE inventory_date = ?
    GROUP BY product_id
) AS inv ON dp.product_id = inv.product_id
LEFT JOIN forecasts.product_demand_forecasts AS fd
    ON dp.product_id = fd.product_id AND fd.forecast_date = ?
ORDER BY dp.product_id`

// Engine computes one recommendation per dimension product.
type Engine struct {
	db     adapter.Adapter
	logger *slog.Logger

	// Rules is the ordered rule set; DefaultRules unless overridden.
	Rules []Rule
	// Anchor controls today/tomorrow resolution.
	Anchor Anchor
	// Now supplies the wall clock, replaceable in tests.
	Now func() time.Time
}

// NewEngine creates a pricing engine with the default rule set and
// wall-clock anchoring.
func NewEngine(db adapter.Adapter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		db:     db,
		logger: logger,
		Rules:  DefaultRules,
		Anchor: AnchorWallClock,
		Now:    time.Now,
	}
}

// Run joins pricing context per product and evaluates the rule set.
// Returns ErrNoPricingInputs when the dimension join yields nothing.
func (e *Engine) Run(ctx context.Context) ([]Recommendation, error) {
	today, err := e.resolveToday(ctx)
	if err != nil {
		return nil, err
	}
	tomorrow := today.AddDate(0, 0, 1)

	e.logger.Debug("loading pricing inputs", "today", today.Format("2006-01-02"), "anchor", string(e.Anchor))

	inputs, err := e.loadInputs(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, ErrNoPricingInputs
	}

	e.logger.Info("generating pricing recommendations", "products", len(inputs))

	recs := make([]Recommendation, 0, len(inputs))
	for _, in := range inputs {
		reference, recommended, reason := Evaluate(in, e.Rules)
		recs = append(recs, Recommendation{
			ProductID:             in.ProductID,
			ProductName:           in.ProductName,
			CurrentPriceReference: reference,
			RecommendedPrice:      recommended,
			PricingReason:         reason,
			RecommendationDate:    today,
		})
	}

	return recs, nil
}

// resolveToday returns the anchor date truncated to a UTC date.
func (e *Engine) resolveToday(ctx context.Context) (time.Time, error) {
	if e.Anchor != AnchorLatestData {
		now := e.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	rows, err := e.db.Query(ctx, `SELECT MAX(inventory_date) FROM marts.agg_daily_inventory_summary`)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve latest data date: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var latest sql.NullTime
	if rows.Next() {
		if err := rows.Scan(&latest); err != nil {
			return time.Time{}, fmt.Errorf("failed to scan latest data date: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("cannot anchor to latest data: inventory summary has no dates")
	}
	t := latest.Time
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (e *Engine) loadInputs(ctx context.Context, today, tomorrow time.Time) ([]Input, error) {
	rows, err := e.db.Query(ctx, pricingInputsSQL, today, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing inputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var inputs []Input
	for rows.Next() {
		var (
			in       Input
			cost     float64
			stock    int64
			demand   int64
			avgPrice sql.NullFloat64
		)
		if err := rows.Scan(&in.ProductID, &in.ProductName, &in.Category, &cost, &stock, &demand, &avgPrice); err != nil {
			return nil, fmt.Errorf("failed to scan pricing input: %w", err)
		}
		in.CostPrice = decimal.NewFromFloat(cost)
		in.StockLevel = stock
		in.PredictedDemand = demand
		if avgPrice.Valid {
			in.HistoricalAvgPrice = decimal.NewFromFloat(avgPrice.Float64)
			in.HasHistoricalAvg = true
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pricing inputs: %w", err)
	}

	return inputs, nil
}
