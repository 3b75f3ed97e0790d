package statistics

import "math"

// moments accumulates weighted count, sum, mean and variance with the
// weighted incremental form of Welford's algorithm.
type moments struct {
	n     int
	wSum  float64
	w2Sum float64
	mean  float64
	s     float64 // Σ w·(x-mean)², updated incrementally
	sum   float64 // Σ w·x
	sumSq float64 // Σ w·x²
}

func (m *moments) add(x, w float64) {
	m.n++
	m.wSum += w
	m.w2Sum += w * w
	delta := x - m.mean
	m.mean += delta * (w / m.wSum)
	m.s += w * delta * (x - m.mean)
	m.sum += w * x
	m.sumSq += w * x * x
}

func accumulate(values, weights []float64) moments {
	var m moments
	for i, x := range values {
		m.add(x, weights[i])
	}
	return m
}

func (m moments) Mean() float64 {
	if m.n == 0 || m.wSum <= 0 {
		return math.NaN()
	}
	return m.mean
}

// effectiveN is Kish's effective sample size (Σw)²/Σw². It equals n when all
// weights are equal.
func (m moments) effectiveN() float64 {
	if m.w2Sum == 0 {
		return 0
	}
	return m.wSum * m.wSum / m.w2Sum
}

// Variance is the bias-corrected weighted variance. It is 0 for a single
// sample and NaN for none.
func (m moments) Variance() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	nEff := m.effectiveN()
	if m.n < 2 || nEff <= 1 {
		return 0
	}
	v := m.s / m.wSum * nEff / (nEff - 1)
	if v < 0 {
		return 0
	}
	return v
}

func (m moments) Stdev() float64 {
	return math.Sqrt(m.Variance())
}

func (m moments) MeanSquare() float64 {
	if m.n == 0 || m.wSum <= 0 {
		return math.NaN()
	}
	return m.sumSq / m.wSum
}
