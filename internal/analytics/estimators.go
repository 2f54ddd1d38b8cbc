package analytics

import "math"

// The estimators in this file are deliberately simple, deterministic
// heuristics over a fixed-size history window. Each one owns its own
// insufficient-data policy and returns an explicit "unavailable" instead of
// a zero when it cannot produce a result.

// SmoothingFactor is the fixed alpha used by exponential smoothing.
const SmoothingFactor = 0.3

// AnomalyThreshold is the z-score above which a value counts as anomalous.
const AnomalyThreshold = 2.0

// PredictNext fits an ordinary-least-squares line through the non-zero
// entries of history (oldest first) at index positions 1..n and extrapolates
// to n+1. It needs at least two valid points; the result is clamped to zero
// from below.
func PredictNext(history []float64) (float64, bool) {
	var valid []float64
	for _, v := range history {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	n := len(valid)
	if n < 2 {
		return 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range valid {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	predicted := slope*float64(n+1) + intercept
	if predicted < 0 {
		predicted = 0
	}
	return predicted, true
}

// Smooth runs exponential smoothing across history (oldest first): the
// oldest value seeds the series, every later value blends in with weight
// SmoothingFactor. The result is clamped to zero from below.
func Smooth(history []float64) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	smoothed := history[0]
	for _, v := range history[1:] {
		smoothed = SmoothingFactor*v + (1-SmoothingFactor)*smoothed
	}
	if smoothed < 0 {
		smoothed = 0
	}
	return smoothed, true
}

// IsAnomalous reports whether value deviates from the history mean by more
// than AnomalyThreshold population standard deviations. A zero-variance
// history never flags anything; that is the divide-by-zero guard, not an
// error branch.
func IsAnomalous(history []float64, value float64) bool {
	if len(history) == 0 {
		return false
	}
	mean, stdDev := meanStdDev(history)
	if stdDev == 0 {
		return false
	}
	z := (value - mean) / stdDev
	if z < 0 {
		z = -z
	}
	return z > AnomalyThreshold
}

// meanStdDev returns the population mean and standard deviation of values.
func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}
