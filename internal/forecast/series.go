// Package forecast produces per-product daily demand forecasts from the
// sales fact table, using a seasonal trend model with an ARIMA fallback
// and a flat last-resort projection.
package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// Series is one product's resampled daily demand history. Days with no
// sales between the first and last observed date are filled with zero.
type Series struct {
	ProductID string
	Start     time.Time
	Values    []float64
}

// LastDate returns the date of the final observation.
func (s *Series) LastDate() time.Time {
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// TrailingMean returns the mean of the last n observations (or all of
// them if the series is shorter), and 0 for an empty series.
func (s *Series) TrailingMean(n int) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	if n > len(s.Values) {
		n = len(s.Values)
	}
	return stat.Mean(s.Values[len(s.Values)-n:], nil)
}

const historicalDemandSQL = `SELECT
    sale_date,
    product_id,
    CAST(SUM(quantity_sold) AS BIGINT) AS total_quantity_sold
FROM marts.fct_sales
GROUP BY sale_date, product_id
ORDER BY sale_date, product_id`

// LoadDailySeries reads historical daily demand per product from the
// sales fact table and resamples each product to a dense daily series.
// Products are returned sorted by ID for deterministic iteration.
func LoadDailySeries(ctx context.Context, db adapter.Adapter) ([]*Series, error) {
	rows, err := db.Query(ctx, historicalDemandSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical demand: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type obs struct {
		date time.Time
		qty  float64
	}
	byProduct := make(map[string][]obs)

	for rows.Next() {
		var date time.Time
		var productID string
		var qty float64
		if err := rows.Scan(&date, &productID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan demand row: %w", err)
		}
		byProduct[productID] = append(byProduct[productID], obs{date: dateOnly(date), qty: qty})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating demand rows: %w", err)
	}

	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	series := make([]*Series, 0, len(ids))
	for _, id := range ids {
		observations := byProduct[id]
		// Rows arrive date-ordered, so first/last bound the range.
		start := observations[0].date
		end := observations[len(observations)-1].date
		days := int(end.Sub(start).Hours()/24) + 1

		values := make([]float64, days)
		for _, o := range observations {
			idx := int(o.date.Sub(start).Hours() / 24)
			values[idx] += o.qty
		}

		series = append(series, &Series{ProductID: id, Start: start, Values: values})
	}

	return series, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
