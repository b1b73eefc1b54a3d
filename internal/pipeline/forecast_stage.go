package pipeline

import (
	"context"
	"log/slog"

	"github.com/northstack-labs/shelfline/internal/adapter"
	"github.com/northstack-labs/shelfline/internal/forecast"
)

const forecastTable = "forecasts.product_demand_forecasts"

const forecastColumnsDDL = `product_id VARCHAR,
    forecast_date DATE,
    predicted_quantity BIGINT`

// ForecastStage runs the demand forecasting engine and publishes its
// output table, replacing any prior forecast set wholesale.
type ForecastStage struct {
	engine *forecast.Engine
	logger *slog.Logger
}

// NewForecastStage creates the forecast stage.
func NewForecastStage(db adapter.Adapter, logger *slog.Logger, horizon, minObservations, workers int) *ForecastStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engine := forecast.NewEngine(db, logger)
	if horizon > 0 {
		engine.Horizon = horizon
	}
	if minObservations > 0 {
		engine.MinObservations = minObservations
	}
	if workers > 0 {
		engine.Workers = workers
	}
	return &ForecastStage{engine: engine, logger: logger}
}

// Name returns the stage name.
func (s *ForecastStage) Name() string { return "forecast" }

// Run produces the forecast set and materializes it atomically.
func (s *ForecastStage) Run(ctx context.Context, db adapter.Adapter) (int64, error) {
	records, summary, err := s.engine.Run(ctx)
	if err != nil {
		return 0, err
	}

	for tier, count := range summary.TierCounts {
		s.logger.Debug("forecast tier usage", "tier", tier.String(), "products", count)
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.ProductID, r.ForecastDate, r.PredictedQuantity}
	}

	return MaterializeRows(ctx, db, forecastTable, forecastColumnsDDL, rows)
}
