package statistics

import "github.com/hyp3rd/ewrap"

// Sentinel errors returned by this package. Callers should match them with
// errors.Is; the returned errors carry additional context.
var (
	// ErrInvalidParameter is returned when a Control is configured with an
	// out-of-range value (numIter < 0, numSigmaClip <= 0, unknown mask plane).
	ErrInvalidParameter = ewrap.New("invalid statistics parameter")

	// ErrInvalidRequest is returned when a lookup or computation names no
	// statistic, more than one statistic, or an unknown statistic.
	ErrInvalidRequest = ewrap.New("invalid statistics request")

	// ErrNotComputed is returned when a Result is queried for a statistic
	// that was not requested when the Result was computed.
	ErrNotComputed = ewrap.New("statistic not computed")

	// ErrErrorUnavailable is returned when the error of a statistic is
	// queried but has no analytic definition, or ERRORS was not requested.
	ErrErrorUnavailable = ewrap.New("statistic error unavailable")

	// ErrNoGoodSamples reports that every sample was excluded by the filter
	// pass. Compute only returns it when the Control requires good pixels;
	// otherwise it is reported through Result.Err.
	ErrNoGoodSamples = ewrap.New("no good samples")
)
