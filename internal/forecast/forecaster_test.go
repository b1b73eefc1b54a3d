package forecast

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

type flatModel struct {
	level float64
}

func (m flatModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	for i := range out {
		out[i] = m.level
	}
	return out, nil
}

type brokenModel struct{}

func (brokenModel) Forecast(int) ([]float64, error) {
	return nil, errors.New("model produced non-finite forecasts")
}

func testSeries(n int, value float64) *Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return &Series{
		ProductID: "PROD0001",
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Values:    values,
	}
}

func newTestEngine() *Engine {
	return NewEngine(nil, nil)
}

func TestForecastProduct_PrimaryTier(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return flatModel{level: 12.4}, nil }
	eng.fitFallback = func([]float64) (fitter, error) {
		t.Fatal("fallback must not be consulted when the primary fits")
		return nil, nil
	}

	s := testSeries(90, 12)
	records, tier := eng.forecastProduct(s)

	assert.Equal(t, TierPrimary, tier)
	require.Len(t, records, eng.Horizon)
	for _, r := range records {
		assert.Equal(t, int64(12), r.PredictedQuantity)
	}
}

func TestForecastProduct_FallbackTier(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return nil, ErrFitFailed }
	eng.fitFallback = func([]float64) (fitter, error) { return flatModel{level: 7.6}, nil }

	records, tier := eng.forecastProduct(testSeries(90, 8))

	assert.Equal(t, TierFallback, tier)
	require.Len(t, records, eng.Horizon)
	for _, r := range records {
		assert.Equal(t, int64(8), r.PredictedQuantity)
	}
}

func TestForecastProduct_PrimaryForecastFailureFallsThrough(t *testing.T) {
	// A model can fit but still fail at forecast time; that must route to
	// the fallback, not abort.
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return brokenModel{}, nil }
	eng.fitFallback = func([]float64) (fitter, error) { return flatModel{level: 3}, nil }

	records, tier := eng.forecastProduct(testSeries(90, 3))

	assert.Equal(t, TierFallback, tier)
	require.Len(t, records, eng.Horizon)
}

func TestForecastProduct_LastResortZeros(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return nil, ErrFitFailed }
	eng.fitFallback = func([]float64) (fitter, error) { return nil, ErrFitFailed }

	records, tier := eng.forecastProduct(testSeries(90, 5))

	assert.Equal(t, TierLastResort, tier)
	require.Len(t, records, eng.Horizon)
	for _, r := range records {
		assert.Equal(t, int64(0), r.PredictedQuantity)
	}
}

func TestForecastProduct_InsufficientHistory(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) {
		t.Fatal("models must not be fit on short series")
		return nil, nil
	}
	eng.fitFallback = eng.fitPrimary

	// 20 days of history: last 7 values are 10,10,10,10,20,20,20.
	s := testSeries(20, 10)
	for i := 17; i < 20; i++ {
		s.Values[i] = 20
	}

	records, tier := eng.forecastProduct(s)

	assert.Equal(t, TierInsufficient, tier)
	require.Len(t, records, eng.Horizon)
	// mean(10,10,10,10,20,20,20) = 14.29 -> 14
	for _, r := range records {
		assert.Equal(t, int64(14), r.PredictedQuantity)
	}
}

func TestForecastProduct_NegativePointsClampToZero(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return flatModel{level: -4.2}, nil }

	records, tier := eng.forecastProduct(testSeries(90, 1))

	assert.Equal(t, TierPrimary, tier)
	for _, r := range records {
		assert.GreaterOrEqual(t, r.PredictedQuantity, int64(0))
	}
}

func TestForecastProduct_DatesStartAfterLastObservation(t *testing.T) {
	eng := newTestEngine()
	eng.fitPrimary = func([]float64) (fitter, error) { return flatModel{level: 1}, nil }

	s := testSeries(90, 1)
	records, _ := eng.forecastProduct(s)

	last := s.LastDate()
	for i, r := range records {
		assert.Equal(t, last.AddDate(0, 0, i+1), r.ForecastDate)
	}
}

func TestEngineRun(t *testing.T) {
	cfg := adapter.Config{Type: "duckdb", Path: ":memory:"}
	db, err := adapter.New(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx, cfg))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Exec(ctx, `CREATE SCHEMA marts`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE marts.fct_sales (
		transaction_id VARCHAR, sale_date DATE, product_id VARCHAR, store_id VARCHAR,
		customer_id VARCHAR, quantity_sold BIGINT, price_per_unit DOUBLE,
		discount_applied DOUBLE, net_sales_amount DOUBLE)`))

	// PROD0001: 90 days of steady demand. PROD0002: 10 days only.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 90; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		require.NoError(t, db.Exec(ctx, fmt.Sprintf(
			`INSERT INTO marts.fct_sales VALUES ('TXN%06d', DATE '%s', 'PROD0001', 'STORE01', 'CUST00001', 10, 5.0, 0.0, 50.0)`, i, d)))
		if i < 10 {
			require.NoError(t, db.Exec(ctx, fmt.Sprintf(
				`INSERT INTO marts.fct_sales VALUES ('TXN9%05d', DATE '%s', 'PROD0002', 'STORE01', 'CUST00002', 3, 5.0, 0.0, 15.0)`, i, d)))
		}
	}

	eng := NewEngine(db, nil)
	records, summary, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Products)
	assert.Equal(t, 1, summary.TierCounts[TierInsufficient])
	require.Len(t, records, 2*eng.Horizon)

	// Sorted by product then date, every quantity non-negative.
	require.Equal(t, "PROD0001", records[0].ProductID)
	require.Equal(t, "PROD0002", records[eng.Horizon].ProductID)
	for _, r := range records {
		assert.GreaterOrEqual(t, r.PredictedQuantity, int64(0))
	}

	// Short-history product projects its trailing mean of 3.
	for _, r := range records[eng.Horizon:] {
		assert.Equal(t, int64(3), r.PredictedQuantity)
	}

	// Constant 10/day history should forecast close to 10 regardless of
	// which model tier resolved it.
	for _, r := range records[:eng.Horizon] {
		assert.InDelta(t, 10, float64(r.PredictedQuantity), 2)
	}
}

func TestEngineRun_NoHistory(t *testing.T) {
	cfg := adapter.Config{Type: "duckdb", Path: ":memory:"}
	db, err := adapter.New(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx, cfg))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Exec(ctx, `CREATE SCHEMA marts`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE marts.fct_sales (
		transaction_id VARCHAR, sale_date DATE, product_id VARCHAR, store_id VARCHAR,
		customer_id VARCHAR, quantity_sold BIGINT, price_per_unit DOUBLE,
		discount_applied DOUBLE, net_sales_amount DOUBLE)`))

	_, _, err = NewEngine(db, nil).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no historical sales data")
}

func TestSeriesTrailingMean(t *testing.T) {
	s := &Series{Values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	assert.InDelta(t, 7.0, s.TrailingMean(7), 1e-9)
	assert.InDelta(t, 5.5, s.TrailingMean(100), 1e-9)

	empty := &Series{}
	assert.Equal(t, 0.0, empty.TrailingMean(7))
}

func TestLoadDailySeries_ZeroFillsGaps(t *testing.T) {
	cfg := adapter.Config{Type: "duckdb", Path: ":memory:"}
	db, err := adapter.New(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx, cfg))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Exec(ctx, `CREATE SCHEMA marts`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE marts.fct_sales (
		transaction_id VARCHAR, sale_date DATE, product_id VARCHAR, store_id VARCHAR,
		customer_id VARCHAR, quantity_sold BIGINT, price_per_unit DOUBLE,
		discount_applied DOUBLE, net_sales_amount DOUBLE)`))
	require.NoError(t, db.Exec(ctx, `INSERT INTO marts.fct_sales VALUES
		('TXN000001', DATE '2024-01-01', 'PROD0001', 'STORE01', 'CUST00001', 5, 1.0, 0.0, 5.0),
		('TXN000002', DATE '2024-01-01', 'PROD0001', 'STORE02', 'CUST00002', 2, 1.0, 0.0, 2.0),
		('TXN000003', DATE '2024-01-04', 'PROD0001', 'STORE01', 'CUST00001', 3, 1.0, 0.0, 3.0)`))

	series, err := LoadDailySeries(ctx, db)
	require.NoError(t, err)
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, "PROD0001", s.ProductID)
	// Jan 1 sums both stores; Jan 2 and 3 fill with zero.
	assert.Equal(t, []float64{7, 0, 0, 3}, s.Values)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), s.LastDate())
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "primary", TierPrimary.String())
	assert.Equal(t, "fallback", TierFallback.String())
	assert.Equal(t, "insufficient-history", TierInsufficient.String())
	assert.Equal(t, "last-resort", TierLastResort.String())
}
