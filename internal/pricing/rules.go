// Package pricing derives a recommended price per product from mart
// dimensions, latest inventory, and tomorrow's demand forecast, via
// ordered heuristic rules with a minimum-margin floor.
package pricing

import "github.com/shopspring/decimal"

var (
	defaultMarkup  = decimal.NewFromFloat(1.5)
	highCostMarkup = decimal.NewFromFloat(1.8)
	discountFactor = decimal.NewFromFloat(0.90)
	premiumFactor  = decimal.NewFromFloat(1.15)
	marginFloor    = decimal.NewFromFloat(1.10)

	highCostThreshold = decimal.NewFromInt(1000)
)

// ReasonStandard is recorded when no heuristic rule matches.
const ReasonStandard = "Standard pricing based on cost/historical average"

// Input is one product's joined pricing context. Absent inventory and
// absent forecast arrive as zero; an absent historical average is flagged,
// never treated as an error.
type Input struct {
	ProductID          string
	ProductName        string
	Category           string
	CostPrice          decimal.Decimal
	StockLevel         int64
	PredictedDemand    int64
	HistoricalAvgPrice decimal.Decimal
	HasHistoricalAvg   bool
}

// Baseline is the reference price: the historical average when present,
// otherwise the default markup on cost.
func (in Input) Baseline() decimal.Decimal {
	if in.HasHistoricalAvg {
		return in.HistoricalAvgPrice
	}
	return in.CostPrice.Mul(defaultMarkup)
}

// Rule is one predicate and its price effect. Rules are evaluated in order and
// exactly one fires per product; there is no stacking.
type Rule struct {
	Name    string
	Reason  string
	Matches func(Input) bool
	Price   func(in Input, baseline decimal.Decimal) decimal.Decimal
}

// DefaultRules is the ordered rule set. The final catch-all always matches.
var DefaultRules = []Rule{
	{
		Name:   "high-stock-low-demand",
		Reason: "High stock, low predicted demand (10% discount)",
		Matches: func(in Input) bool {
			return in.StockLevel > 50 && in.PredictedDemand < 10
		},
		Price: func(_ Input, baseline decimal.Decimal) decimal.Decimal {
			return baseline.Mul(discountFactor)
		},
	},
	{
		Name:   "low-stock-high-demand",
		Reason: "Low stock, high predicted demand (15% premium)",
		Matches: func(in Input) bool {
			return in.StockLevel < 10 && in.PredictedDemand > 30
		},
		Price: func(_ Input, baseline decimal.Decimal) decimal.Decimal {
			return baseline.Mul(premiumFactor)
		},
	},
	{
		Name:   "high-cost-no-history",
		Reason: "High cost product, no historical sales (higher default markup)",
		Matches: func(in Input) bool {
			return !in.HasHistoricalAvg && in.CostPrice.GreaterThan(highCostThreshold)
		},
		// Overrides the baseline rather than scaling it.
		Price: func(in Input, _ decimal.Decimal) decimal.Decimal {
			return in.CostPrice.Mul(highCostMarkup)
		},
	},
	{
		Name:    "standard",
		Reason:  ReasonStandard,
		Matches: func(Input) bool { return true },
		Price: func(_ Input, baseline decimal.Decimal) decimal.Decimal {
			return baseline
		},
	},
}

// Evaluate applies the first matching rule, then clamps the result up to
// the margin floor (1.10 * cost) regardless of which rule fired. Both
// returned prices are rounded to 2 decimal places.
func Evaluate(in Input, rules []Rule) (reference, recommended decimal.Decimal, reason string) {
	baseline := in.Baseline()
	recommended = baseline
	reason = ReasonStandard

	for _, r := range rules {
		if r.Matches(in) {
			recommended = r.Price(in, baseline)
			reason = r.Reason
			break
		}
	}

	floor := in.CostPrice.Mul(marginFloor)
	if recommended.LessThan(floor) {
		recommended = floor
	}

	return baseline.Round(2), recommended.Round(2), reason
}
