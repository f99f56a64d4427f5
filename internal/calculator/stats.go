package calculator

import "math"

// StdDev returns the sample standard deviation (n-1). It needs at least two
// values and returns 0 otherwise.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return math.Sqrt(sumSquares(values) / float64(len(values)-1))
}

// PopStdDev returns the population standard deviation (n), 0 when empty.
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Sqrt(sumSquares(values) / float64(len(values)))
}

// ZScore standardizes v. ok is false when std is zero or not finite.
func ZScore(v, mean, std float64) (z float64, ok bool) {
	if std <= 0 || !Finite(std) {
		return 0, false
	}
	z = (v - mean) / std
	if !Finite(z) {
		return 0, false
	}
	return z, true
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Ratio returns a/b - 1, or 0 when the result is not finite or b is zero.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a/b - 1
	if !Finite(r) {
		return 0
	}
	return r
}

func sumSquares(values []float64) float64 {
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return ss
}
