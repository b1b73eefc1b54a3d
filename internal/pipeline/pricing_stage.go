package pipeline

import (
	"context"
	"log/slog"

	"github.com/northstack-labs/shelfline/internal/adapter"
	"github.com/northstack-labs/shelfline/internal/pricing"
)

const recommendationsTable = "recommendations.product_pricing_recommendations"

const recommendationsColumnsDDL = `product_id VARCHAR,
    product_name VARCHAR,
    current_price_reference DECIMAL(18, 2),
    recommended_price DECIMAL(18, 2),
    pricing_reason VARCHAR,
    recommendation_date DATE`

// PricingStage runs the pricing engine and publishes its output table.
// When the engine reports empty inputs the stage fails without touching
// the recommendations table.
type PricingStage struct {
	engine *pricing.Engine
	logger *slog.Logger
}

// NewPricingStage creates the pricing stage.
func NewPricingStage(db adapter.Adapter, logger *slog.Logger, anchor pricing.Anchor) *PricingStage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engine := pricing.NewEngine(db, logger)
	if anchor != "" {
		engine.Anchor = anchor
	}
	return &PricingStage{engine: engine, logger: logger}
}

// Name returns the stage name.
func (s *PricingStage) Name() string { return "pricing" }

// Run computes recommendations and materializes them atomically.
func (s *PricingStage) Run(ctx context.Context, db adapter.Adapter) (int64, error) {
	recs, err := s.engine.Run(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{
			r.ProductID,
			r.ProductName,
			r.CurrentPriceReference.InexactFloat64(),
			r.RecommendedPrice.InexactFloat64(),
			r.PricingReason,
			r.RecommendationDate,
		}
	}

	return MaterializeRows(ctx, db, recommendationsTable, recommendationsColumnsDDL, rows)
}
