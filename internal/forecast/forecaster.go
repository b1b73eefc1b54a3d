package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// Default engine parameters.
const (
	DefaultHorizon         = 30
	DefaultMinObservations = 60
	trailingMeanWindow     = 7
)

// Tier identifies which path of the fallback chain produced a product's
// forecast.
type Tier int

const (
	// TierInsufficient - too little history, flat trailing-mean projection.
	TierInsufficient Tier = iota
	// TierPrimary - seasonal trend model.
	TierPrimary
	// TierFallback - ARIMA(1,1,1).
	TierFallback
	// TierLastResort - flat zero after both models failed.
	TierLastResort
)

func (t Tier) String() string {
	switch t {
	case TierInsufficient:
		return "insufficient-history"
	case TierPrimary:
		return "primary"
	case TierFallback:
		return "fallback"
	case TierLastResort:
		return "last-resort"
	default:
		return "unknown"
	}
}

// Record is one forecast row: a product, a future date, and a
// non-negative integer predicted quantity.
type Record struct {
	ProductID         string
	ForecastDate      time.Time
	PredictedQuantity int64
}

// Summary reports how many products resolved at each tier.
type Summary struct {
	Products   int
	TierCounts map[Tier]int
}

// fitter is a fitted model able to project future daily levels.
type fitter interface {
	Forecast(steps int) ([]float64, error)
}

// Engine produces the demand forecast set for all products with sales
// history.
type Engine struct {
	db     adapter.Adapter
	logger *slog.Logger

	// Horizon is the number of future days each forecast covers.
	Horizon int
	// MinObservations is the modeling threshold; shorter series get the
	// flat trailing-mean projection.
	MinObservations int
	// Workers bounds concurrent per-product fits. Per-product fitting has
	// no shared state, so products can be fit in parallel.
	Workers int

	// Model constructors, replaceable in tests to inject fit failures.
	fitPrimary  func([]float64) (fitter, error)
	fitFallback func([]float64) (fitter, error)
}

// NewEngine creates a forecasting engine with default parameters.
func NewEngine(db adapter.Adapter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		db:              db,
		logger:          logger,
		Horizon:         DefaultHorizon,
		MinObservations: DefaultMinObservations,
		Workers:         4,
		fitPrimary: func(values []float64) (fitter, error) {
			return fitSeasonal(values)
		},
		fitFallback: func(values []float64) (fitter, error) {
			return fitARIMA111(values)
		},
	}
}

// Run loads per-product history and produces the full forecast set.
// Every product with sales history receives exactly Horizon rows; a single
// product's total model failure yields its flat zero forecast and never
// aborts the run.
func (e *Engine) Run(ctx context.Context) ([]Record, *Summary, error) {
	series, err := LoadDailySeries(ctx, e.db)
	if err != nil {
		return nil, nil, err
	}
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("no historical sales data found")
	}

	e.logger.Info("forecasting products", "products", len(series), "horizon", e.Horizon)

	summary := &Summary{Products: len(series), TierCounts: make(map[Tier]int)}
	results := make([][]Record, len(series))
	tiers := make([]Tier, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	var mu sync.Mutex

	for i, s := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, tier := e.forecastProduct(s)
			mu.Lock()
			results[i] = records
			tiers[i] = tier
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []Record
	for i := range results {
		all = append(all, results[i]...)
		summary.TierCounts[tiers[i]]++
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].ProductID != all[j].ProductID {
			return all[i].ProductID < all[j].ProductID
		}
		return all[i].ForecastDate.Before(all[j].ForecastDate)
	})

	return all, summary, nil
}

// forecastProduct walks the fallback chain for one product. Each tier
// either terminates forecast generation or hands the series to the next.
func (e *Engine) forecastProduct(s *Series) ([]Record, Tier) {
	if len(s.Values) < e.MinObservations {
		flat := int64(math.Round(s.TrailingMean(trailingMeanWindow)))
		if flat < 0 {
			flat = 0
		}
		return e.flatRecords(s, flat), TierInsufficient
	}

	if model, err := e.fitPrimary(s.Values); err == nil {
		if points, err := model.Forecast(e.Horizon); err == nil {
			return e.pointRecords(s, points), TierPrimary
		}
	}
	e.logger.Debug("primary model failed, trying fallback", "product_id", s.ProductID)

	if model, err := e.fitFallback(s.Values); err == nil {
		if points, err := model.Forecast(e.Horizon); err == nil {
			return e.pointRecords(s, points), TierFallback
		}
	}
	e.logger.Debug("fallback model failed, emitting zero forecast", "product_id", s.ProductID)

	return e.flatRecords(s, 0), TierLastResort
}

// pointRecords converts raw point forecasts to clamped, rounded rows.
func (e *Engine) pointRecords(s *Series, points []float64) []Record {
	records := make([]Record, len(points))
	last := s.LastDate()
	for i, p := range points {
		qty := int64(math.Round(p))
		if qty < 0 {
			qty = 0
		}
		records[i] = Record{
			ProductID:         s.ProductID,
			ForecastDate:      last.AddDate(0, 0, i+1),
			PredictedQuantity: qty,
		}
	}
	return records
}

// flatRecords emits the same quantity for every horizon day.
func (e *Engine) flatRecords(s *Series, qty int64) []Record {
	records := make([]Record, e.Horizon)
	last := s.LastDate()
	for i := range records {
		records[i] = Record{
			ProductID:         s.ProductID,
			ForecastDate:      last.AddDate(0, 0, i+1),
			PredictedQuantity: qty,
		}
	}
	return records
}
