package forecast

// seasonal.go - Primary model: decomposable trend plus Fourier seasonality,
// fit by ordinary least squares.

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	weeklyPeriod = 7.0
	yearlyPeriod = 365.25

	weeklyFourierOrder = 3
	yearlyFourierOrder = 10
)

// ErrFitFailed signals that a model could not be fit to a series; the
// caller routes the product to the next fallback tier.
var ErrFitFailed = errors.New("model fit failed")

// seasonalModel is a linear trend with weekly and yearly Fourier terms.
// Daily (sub-daily) seasonality is not modeled.
type seasonalModel struct {
	coef []float64
	n    int
}

// seasonalFeatures returns the design row for day index t.
func seasonalFeatures(t float64) []float64 {
	row := make([]float64, 0, 2+2*weeklyFourierOrder+2*yearlyFourierOrder)
	row = append(row, 1, t)
	for k := 1; k <= weeklyFourierOrder; k++ {
		x := 2 * math.Pi * float64(k) * t / weeklyPeriod
		row = append(row, math.Sin(x), math.Cos(x))
	}
	for k := 1; k <= yearlyFourierOrder; k++ {
		x := 2 * math.Pi * float64(k) * t / yearlyPeriod
		row = append(row, math.Sin(x), math.Cos(x))
	}
	return row
}

// fitSeasonal fits the model to a daily series by least squares.
// Rank deficiency, ill-conditioning, or a non-finite solution all count
// as fit failure.
func fitSeasonal(values []float64) (*seasonalModel, error) {
	p := 2 + 2*weeklyFourierOrder + 2*yearlyFourierOrder
	n := len(values)
	if n <= p {
		return nil, ErrFitFailed
	}

	X := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.SetRow(i, seasonalFeatures(float64(i)))
		y.SetVec(i, values[i])
	}

	var qr mat.QR
	qr.Factorize(X)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, ErrFitFailed
	}

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = beta.AtVec(j)
	}
	if hasNonFinite(coef) {
		return nil, ErrFitFailed
	}

	return &seasonalModel{coef: coef, n: n}, nil
}

// Forecast returns point forecasts for the next steps days.
func (m *seasonalModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		t := float64(m.n + i)
		row := seasonalFeatures(t)
		var v float64
		for j, c := range m.coef {
			v += c * row[j]
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrFitFailed
		}
		out[i] = v
	}
	return out, nil
}

func hasNonFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
