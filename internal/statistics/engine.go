package statistics

import (
	"fmt"
	"math"
)

// filtered is the working copy built by the filter pass.
type filtered struct {
	values  []float64
	weights []float64
	min     float64
	max     float64
	orMask  MaskPixel
}

// clipOutcome is the state left by the sigma-clipping passes.
type clipOutcome struct {
	m          moments
	iterations int
	converged  bool
	empty      bool
}

// Compute calculates the statistics named in props over src.
//
// Compute runs a filter pass over src, then only the passes the requested
// statistics depend on: moment accumulation, a sorted copy for order
// statistics, and iterative sigma-clipping. It either returns a Result holding
// every requested statistic or fails with one of the package's sentinel
// errors; it never returns a partial Result.
//
// When every sample is excluded, the Result reports NoGoodPixels, carries the
// Control's NoGoodPixelsMask in Flags, and every statistic except NPOINT and
// ORMASK is NaN. If the Control requires good pixels Compute fails with
// ErrNoGoodSamples instead.
//
// Compute keeps no state between calls and may run concurrently over
// independent sources.
func Compute(src SampleSource, props Property, ctrl Control) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil sample source", ErrInvalidRequest)
	}
	if props.stats() == 0 {
		return nil, fmt.Errorf("%w: no statistic requested (%s)", ErrInvalidRequest, props)
	}
	if err := ctrl.Validate(); err != nil {
		return nil, err
	}

	weighted := ctrl.weighted
	if !ctrl.weightedIsSet {
		weighted = false
		if w, ok := src.(Weighter); ok {
			weighted = w.HasWeights()
		}
	}

	data := filterSamples(src, ctrl, weighted)

	res := newResult(props)
	res.n = len(data.values)
	res.nClipped = res.n
	res.orMask = data.orMask
	res.set(NPoint, float64(res.n))
	res.set(OrMask, float64(data.orMask))

	if res.n == 0 {
		res.noGood = true
		res.flags = ctrl.noGoodPixelsMask
		if ctrl.requireGoodPixels {
			return nil, res.Err()
		}
		return res, nil
	}

	res.set(Min, data.min)
	res.set(Max, data.max)

	plan := props.plan()
	if ctrl.clipFromMedian && plan&passClip != 0 {
		plan |= passSort
	}
	if props.Has(Errors) && plan&passSort != 0 {
		// median error is derived from the standard deviation
		plan |= passMoments
	}

	var base moments
	if plan&passMoments != 0 {
		base = accumulate(data.values, data.weights)
		mean, variance, stdev := base.Mean(), base.Variance(), base.Stdev()

		res.set(Sum, base.sum)
		res.set(MeanSquare, base.MeanSquare())
		res.set(Mean, mean)
		res.setError(Mean, meanError(stdev, base.n))
		res.set(Variance, variance)
		res.setError(Variance, varianceError(variance, base.n))
		res.set(Stdev, stdev)
		res.setError(Stdev, stdevError(stdev, base.n))
	}

	var sorted []float64
	if plan&passSort != 0 {
		sorted = sortedCopy(data.values)
		res.set(Median, median(sorted))
		res.setError(Median, medianError(base.Stdev(), base.n))
		res.set(IQRange, interquartileRange(sorted))
	}

	if plan&passClip != 0 {
		c := sigmaClip(data, sorted, base, ctrl)
		res.iterations = c.iterations
		res.converged = c.converged
		if c.empty {
			res.nClipped = 0
			res.noGood = true
			res.flags = ctrl.noGoodPixelsMask
			if ctrl.requireGoodPixels {
				return nil, res.Err()
			}
			return res, nil
		}

		res.nClipped = c.m.n
		mean, variance, stdev := c.m.Mean(), c.m.Variance(), c.m.Stdev()
		res.set(MeanClip, mean)
		res.setError(MeanClip, meanError(stdev, c.m.n))
		res.set(VarianceClip, variance)
		res.setError(VarianceClip, varianceError(variance, c.m.n))
		res.set(StdevClip, stdev)
		res.setError(StdevClip, stdevError(stdev, c.m.n))
	}

	return res, nil
}

// filterSamples drops masked and (when NaN-safe) non-finite samples and
// assigns each remaining sample its weight.
func filterSamples(src SampleSource, ctrl Control, weighted bool) filtered {
	n := src.Len()
	f := filtered{
		values:  make([]float64, 0, n),
		weights: make([]float64, 0, n),
		min:     math.Inf(1),
		max:     math.Inf(-1),
	}
	for i := 0; i < n; i++ {
		s := src.At(i)
		if s.Mask&ctrl.andMask != 0 {
			continue
		}
		if ctrl.nanSafe && (math.IsNaN(s.Value) || math.IsInf(s.Value, 0)) {
			continue
		}

		w := 1.0
		if weighted {
			w = sampleWeight(s)
		}
		f.values = append(f.values, s.Value)
		f.weights = append(f.weights, w)
		f.orMask |= s.Mask
		if s.Value < f.min {
			f.min = s.Value
		}
		if s.Value > f.max {
			f.max = s.Value
		}
	}
	return f
}

// sampleWeight prefers an explicit weight, then inverse variance, then 1.
func sampleWeight(s Sample) float64 {
	if s.Weight > 0 && !math.IsInf(s.Weight, 0) {
		return s.Weight
	}
	if s.Variance > 0 && !math.IsInf(s.Variance, 0) {
		return 1 / s.Variance
	}
	return 1
}

// sigmaClip iteratively rejects samples outside mean ± k·stdev of the
// retained set. Clipping stops after numIter passes, when a pass excludes
// nothing, or when nothing is left.
//
// With ClipFromMedian the first pass is instead centred on the median with a
// sigma estimated from the interquartile range; a first pass of that kind
// that excludes nothing does not count as convergence.
func sigmaClip(data filtered, sorted []float64, base moments, ctrl Control) clipOutcome {
	out := clipOutcome{m: base}
	if !ctrl.clipping() {
		return out
	}

	values := make([]float64, len(data.values))
	weights := make([]float64, len(data.weights))
	copy(values, data.values)
	copy(weights, data.weights)

	k := ctrl.numSigmaClip
	var robustSigma float64
	if ctrl.clipFromMedian {
		robustSigma = iqrToSigma * interquartileRange(sorted)
	}

	for iter := 0; iter < ctrl.numIter; iter++ {
		robust := iter == 0 && robustSigma > 0
		center, sigma := out.m.Mean(), out.m.Stdev()
		if robust {
			center, sigma = median(sorted), robustSigma
		}
		lo, hi := center-k*sigma, center+k*sigma

		kept := 0
		for i, x := range values {
			if x >= lo && x <= hi {
				values[kept] = x
				weights[kept] = weights[i]
				kept++
			}
		}
		out.iterations++

		if kept == 0 {
			out.m = moments{}
			out.empty = true
			return out
		}
		excluded := kept < len(values)
		values, weights = values[:kept], weights[:kept]
		if excluded {
			out.m = accumulate(values, weights)
		}
		if !excluded && !robust {
			out.converged = true
			break
		}
	}
	return out
}

func meanError(stdev float64, n int) float64 {
	return stdev / math.Sqrt(float64(n))
}

func stdevError(stdev float64, n int) float64 {
	if n < 2 {
		return 0
	}
	return stdev / math.Sqrt(2*float64(n-1))
}

func varianceError(variance float64, n int) float64 {
	if n < 2 {
		return 0
	}
	return variance * math.Sqrt(2/float64(n-1))
}

// medianError is the asymptotic error of the median of a Gaussian sample.
func medianError(stdev float64, n int) float64 {
	return math.Sqrt(math.Pi/2) * stdev / math.Sqrt(float64(n))
}
