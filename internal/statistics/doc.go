// Package statistics computes robust sample statistics over pixel data.
//
// A computation takes three inputs:
//   - a SampleSource: an ordered sequence of samples, each with a value and
//     optional mask bits, variance and weight
//   - a Property: the statistics wanted, ORed together (MEAN|STDEV|ERRORS)
//   - a Control: clip threshold and iterations, excluded mask planes,
//     weighting and NaN handling
//
// and returns a Result from which each statistic and its error are read:
//
//	ctrl := statistics.NewControl()
//	if err := ctrl.SetNumSigmaClip(5); err != nil {
//	    return err
//	}
//	ctrl.SetAndMask(statistics.MaskBad | statistics.MaskSat)
//
//	res, err := statistics.Compute(src, statistics.Mean|statistics.MeanClip|statistics.Errors, ctrl)
//	if err != nil {
//	    return err
//	}
//	mean, meanErr, err := res.ValueError(statistics.MeanClip)
//
// # Algorithm
//
// Compute first filters the source: samples with a mask bit in the AndMask,
// and (when NaN-safe) NaN or infinite values, are dropped. When weighting is
// enabled each remaining sample is weighted by its explicit weight or its
// inverse variance. Only the passes the requested statistics need then run:
//
//   - moments: weighted Welford accumulation of sum, mean and bias-corrected
//     variance, using Kish's effective sample size so that equal weights give
//     the ordinary sample variance
//   - order statistics: a sorted copy of the filtered values; quantiles are
//     linearly interpolated at rank q·(N-1)
//   - sigma-clipping: up to NumIter passes rejecting samples outside
//     center ± NumSigmaClip·sigma. The first pass uses the median and an
//     IQR-derived sigma; later passes use the retained mean and stdev and stop
//     at a fixed point
//
// # Errors
//
// With ERRORS requested, MEAN, STDEV, VARIANCE, MEDIAN and their clipped
// counterparts carry Gaussian errors (σ/√N, σ/√(2(N-1)), σ²·√(2/(N-1)),
// √(π/2)·σ/√N). The other statistics have no analytic error and Result.Error
// fails with ErrErrorUnavailable.
//
// When no sample survives, Compute does not fail: the Result reports
// NoGoodPixels and its values are NaN, so batch pipelines can continue.
//
// # Thread Safety
//
// Compute holds no shared state. Results are immutable. A SampleSource must
// not be modified while a computation over it runs.
package statistics
