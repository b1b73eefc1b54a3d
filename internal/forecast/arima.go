package forecast

// arima.go - Fallback model: ARIMA(1,1,1), i.e. ARMA(1,1) on the
// first-differenced series. Coefficients are estimated by minimizing the
// conditional sum of squares over a coarse grid with local refinement.

import (
	"math"
)

// arimaModel holds a fitted ARIMA(1,1,1) in differenced form.
type arimaModel struct {
	phi   float64 // AR(1) coefficient on the differenced series
	theta float64 // MA(1) coefficient
	mean  float64 // mean of the differenced series

	lastLevel float64 // final observed value, forecast integration base
	lastDiff  float64
	lastErr   float64
}

// css computes the conditional sum of squares for candidate coefficients,
// returning the trailing residual state alongside.
func css(diffs []float64, mean, phi, theta float64) (sum, lastErr float64) {
	var prevErr float64
	prevDiff := diffs[0] - mean
	for t := 1; t < len(diffs); t++ {
		z := diffs[t] - mean
		e := z - phi*prevDiff - theta*prevErr
		sum += e * e
		prevErr = e
		prevDiff = z
	}
	return sum, prevErr
}

// fitARIMA111 fits the fallback model to a daily series.
func fitARIMA111(values []float64) (*arimaModel, error) {
	if len(values) < 4 {
		return nil, ErrFitFailed
	}

	diffs := make([]float64, len(values)-1)
	var mean float64
	for i := 1; i < len(values); i++ {
		diffs[i-1] = values[i] - values[i-1]
		mean += diffs[i-1]
	}
	mean /= float64(len(diffs))

	search := func(loPhi, hiPhi, loTheta, hiTheta, step float64) (bestPhi, bestTheta, bestCSS, bestErr float64, ok bool) {
		bestCSS = math.Inf(1)
		for phi := loPhi; phi <= hiPhi+1e-9; phi += step {
			for theta := loTheta; theta <= hiTheta+1e-9; theta += step {
				sum, lastErr := css(diffs, mean, phi, theta)
				if math.IsNaN(sum) || math.IsInf(sum, 0) {
					continue
				}
				if sum < bestCSS {
					bestCSS, bestPhi, bestTheta, bestErr = sum, phi, theta, lastErr
					ok = true
				}
			}
		}
		return bestPhi, bestTheta, bestCSS, bestErr, ok
	}

	// Coarse pass over the invertible/stationary region, then refine.
	phi, theta, _, lastErr, ok := search(-0.9, 0.9, -0.9, 0.9, 0.1)
	if !ok {
		return nil, ErrFitFailed
	}
	lo := func(x float64) float64 { return math.Max(x-0.1, -0.99) }
	hi := func(x float64) float64 { return math.Min(x+0.1, 0.99) }
	if p, t, _, e, ok2 := search(lo(phi), hi(phi), lo(theta), hi(theta), 0.01); ok2 {
		phi, theta, lastErr = p, t, e
	}

	return &arimaModel{
		phi:       phi,
		theta:     theta,
		mean:      mean,
		lastLevel: values[len(values)-1],
		lastDiff:  diffs[len(diffs)-1] - mean,
		lastErr:   lastErr,
	}, nil
}

// Forecast projects the next steps daily levels, starting immediately
// after the last historical observation.
func (m *arimaModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	level := m.lastLevel
	prevDiff := m.lastDiff
	prevErr := m.lastErr

	for i := 0; i < steps; i++ {
		z := m.phi*prevDiff + m.theta*prevErr
		level += z + m.mean
		if math.IsNaN(level) || math.IsInf(level, 0) {
			return nil, ErrFitFailed
		}
		out[i] = level
		prevDiff = z
		prevErr = 0 // future innovations have zero expectation
	}
	return out, nil
}
