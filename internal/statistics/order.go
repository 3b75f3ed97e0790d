package statistics

import (
	"math"
	"sort"
)

// iqrToSigma converts an interquartile range into the standard deviation of
// a Gaussian with that IQR.
const iqrToSigma = 0.741

// sortedCopy returns the values in ascending order without touching the input.
func sortedCopy(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	return s
}

// quantile returns the q-quantile of sorted data by linear interpolation
// between the two nearest ranks, with rank q·(n-1).
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1 || q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func median(sorted []float64) float64 {
	return quantile(sorted, 0.5)
}

func interquartileRange(sorted []float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return quantile(sorted, 0.75) - quantile(sorted, 0.25)
}
