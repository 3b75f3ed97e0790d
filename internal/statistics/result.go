package statistics

import (
	"fmt"
	"math"
	"math/bits"
)

type entry struct {
	value  float64
	err    float64
	hasErr bool
}

// Result holds the statistics produced by one call to Compute. It is
// read-only and safe for concurrent use.
type Result struct {
	requested  Property
	entries    map[Property]entry
	n          int
	nClipped   int
	iterations int
	converged  bool
	noGood     bool
	flags      MaskPixel
	orMask     MaskPixel
}

func newResult(props Property) *Result {
	r := &Result{
		requested: props,
		entries:   make(map[Property]entry, bits.OnesCount32(uint32(props.stats()))),
	}
	for _, s := range props.Stats() {
		r.entries[s] = entry{value: math.NaN()}
	}
	return r
}

func (r *Result) set(p Property, value float64) {
	if r.requested&p == 0 {
		return
	}
	e := r.entries[p]
	e.value = value
	r.entries[p] = e
}

func (r *Result) setError(p Property, err float64) {
	if r.requested&p == 0 || !r.requested.Has(Errors) || !hasAnalyticError(p) {
		return
	}
	e := r.entries[p]
	e.err = err
	e.hasErr = true
	r.entries[p] = e
}

// single validates that p names exactly one statistic and returns it.
func single(p Property) (Property, error) {
	s := p.stats()
	if bits.OnesCount32(uint32(s)) != 1 {
		return 0, fmt.Errorf("%w: lookup needs exactly one statistic, got %s", ErrInvalidRequest, p)
	}
	return s, nil
}

// Value returns the value of one statistic.
func (r *Result) Value(p Property) (float64, error) {
	s, err := single(p)
	if err != nil {
		return math.NaN(), err
	}
	e, ok := r.entries[s]
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %w: %s was not requested", ErrInvalidRequest, ErrNotComputed, s)
	}
	return e.value, nil
}

// Error returns the propagated error of one statistic.
func (r *Result) Error(p Property) (float64, error) {
	s, err := single(p)
	if err != nil {
		return math.NaN(), err
	}
	e, ok := r.entries[s]
	switch {
	case !ok:
		return math.NaN(), fmt.Errorf("%w: %w: %s was not requested", ErrInvalidRequest, ErrNotComputed, s)
	case !r.requested.Has(Errors):
		return math.NaN(), fmt.Errorf("%w: ERRORS was not requested", ErrErrorUnavailable)
	case !e.hasErr:
		return math.NaN(), fmt.Errorf("%w: %s has no analytic error", ErrErrorUnavailable, s)
	}
	return e.err, nil
}

// ValueError returns both the value and the error of one statistic. It fails
// if either is unavailable.
func (r *Result) ValueError(p Property) (value, errValue float64, err error) {
	if value, err = r.Value(p); err != nil {
		return math.NaN(), math.NaN(), err
	}
	if errValue, err = r.Error(p); err != nil {
		return math.NaN(), math.NaN(), err
	}
	return value, errValue, nil
}

// Requested returns the properties the Result was computed for.
func (r *Result) Requested() Property { return r.requested }

// Samples returns the number of samples that passed the filter pass.
func (r *Result) Samples() int { return r.n }

// ClippedSamples returns the number of samples retained by sigma-clipping.
// It equals Samples when no clipping ran.
func (r *Result) ClippedSamples() int { return r.nClipped }

// Iterations returns the number of clipping passes actually run.
func (r *Result) Iterations() int { return r.iterations }

// Converged reports whether clipping stopped because no further sample was
// excluded.
func (r *Result) Converged() bool { return r.converged }

// NoGoodPixels reports whether no valid sample was left, either after the
// filter pass or after clipping.
func (r *Result) NoGoodPixels() bool { return r.noGood }

// Flags returns the Control's NoGoodPixelsMask when NoGoodPixels is true.
func (r *Result) Flags() MaskPixel { return r.flags }

// OrMask returns the OR of the mask words of every accepted sample.
func (r *Result) OrMask() MaskPixel { return r.orMask }

// Err returns an error wrapping ErrNoGoodSamples when NoGoodPixels is true,
// and nil otherwise.
func (r *Result) Err() error {
	if !r.noGood {
		return nil
	}
	if r.n == 0 {
		return fmt.Errorf("%w: every sample was excluded (flags %s)", ErrNoGoodSamples, r.flags)
	}
	return fmt.Errorf("%w: clipping excluded every sample (flags %s)", ErrNoGoodSamples, r.flags)
}

// StatisticSummary is one entry of a Summary. Nil pointers stand for NaN or
// an unavailable error.
type StatisticSummary struct {
	Name  string   `json:"name" yaml:"name"`
	Value *float64 `json:"value" yaml:"value"`
	Error *float64 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary is a serializable view of a Result.
type Summary struct {
	Samples        int                `json:"samples" yaml:"samples"`
	ClippedSamples int                `json:"clipped_samples" yaml:"clipped_samples"`
	Iterations     int                `json:"iterations" yaml:"iterations"`
	Converged      bool               `json:"converged" yaml:"converged"`
	NoGoodPixels   bool               `json:"no_good_pixels" yaml:"no_good_pixels"`
	Flags          []string           `json:"flags,omitempty" yaml:"flags,omitempty"`
	OrMask         []string           `json:"or_mask,omitempty" yaml:"or_mask,omitempty"`
	Statistics     []StatisticSummary `json:"statistics" yaml:"statistics"`
}

// Summary returns every requested statistic in canonical order.
func (r *Result) Summary() Summary {
	s := Summary{
		Samples:        r.n,
		ClippedSamples: r.nClipped,
		Iterations:     r.iterations,
		Converged:      r.converged,
		NoGoodPixels:   r.noGood,
		Flags:          r.flags.Planes(),
		OrMask:         r.orMask.Planes(),
	}
	for _, p := range r.requested.Stats() {
		e := r.entries[p]
		st := StatisticSummary{Name: p.String(), Value: finite(e.value)}
		if e.hasErr {
			st.Error = finite(e.err)
		}
		s.Statistics = append(s.Statistics, st)
	}
	return s
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
