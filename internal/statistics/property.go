package statistics

import (
	"fmt"
	"math/bits"
	"strings"
)

// Property is a set of statistics, combined with bitwise OR.
//
// Each flag other than Errors names one statistic. Errors is a modifier: when
// present, the engine also propagates errors for every requested statistic
// that has an analytic error.
type Property uint32

// Statistics that can be requested from Compute.
const (
	NPoint       Property = 1 << iota // number of samples that passed the filter
	Mean                              // (weighted) mean
	Stdev                             // sample standard deviation
	Variance                          // sample variance
	Median                            // median of the unclipped samples
	IQRange                           // interquartile range of the unclipped samples
	MeanClip                          // sigma-clipped mean
	StdevClip                         // sigma-clipped standard deviation
	VarianceClip                      // sigma-clipped variance
	Min                               // smallest sample value
	Max                               // largest sample value
	Sum                               // (weighted) sum of sample values
	MeanSquare                        // (weighted) mean of squared values
	OrMask                            // OR of the mask words of accepted samples
	Errors                            // modifier: also compute errors
)

// allStats lists the individual statistics in canonical order.
var allStats = []Property{
	NPoint, Mean, Stdev, Variance, Median, IQRange,
	MeanClip, StdevClip, VarianceClip, Min, Max, Sum, MeanSquare, OrMask,
}

const statMask = NPoint | Mean | Stdev | Variance | Median | IQRange |
	MeanClip | StdevClip | VarianceClip | Min | Max | Sum | MeanSquare | OrMask

var propertyNames = map[Property]string{
	NPoint:       "NPOINT",
	Mean:         "MEAN",
	Stdev:        "STDEV",
	Variance:     "VARIANCE",
	Median:       "MEDIAN",
	IQRange:      "IQRANGE",
	MeanClip:     "MEANCLIP",
	StdevClip:    "STDEVCLIP",
	VarianceClip: "VARIANCECLIP",
	Min:          "MIN",
	Max:          "MAX",
	Sum:          "SUM",
	MeanSquare:   "MEANSQUARE",
	OrMask:       "ORMASK",
	Errors:       "ERRORS",
}

// pass is a unit of work the engine may have to perform.
type pass uint8

const (
	passMoments pass = 1 << iota // weighted mean/variance accumulation
	passSort                     // sorted copy for order statistics
	passClip                     // iterative sigma-clipping
)

// passes declares what each statistic depends on. The filter pass always
// runs and also produces NPOINT, MIN, MAX and ORMASK.
var passes = map[Property]pass{
	Mean:         passMoments,
	Stdev:        passMoments,
	Variance:     passMoments,
	Sum:          passMoments,
	MeanSquare:   passMoments,
	Median:       passSort,
	IQRange:      passSort,
	MeanClip:     passMoments | passClip,
	StdevClip:    passMoments | passClip,
	VarianceClip: passMoments | passClip,
}

// hasAnalyticError reports whether a statistic has a defined error term.
func hasAnalyticError(p Property) bool {
	switch p {
	case Mean, Stdev, Variance, Median, MeanClip, StdevClip, VarianceClip:
		return true
	}
	return false
}

// HasAnalyticError reports whether p, a single statistic, has an error term
// that Compute can propagate.
func HasAnalyticError(p Property) bool {
	return hasAnalyticError(p.stats())
}

// Has reports whether every flag in flag is set in p.
func (p Property) Has(flag Property) bool {
	return flag != 0 && p&flag == flag
}

// stats strips the Errors modifier and unknown bits.
func (p Property) stats() Property {
	return p & statMask
}

// Stats returns the individual statistics set in p, in canonical order.
func (p Property) Stats() []Property {
	out := make([]Property, 0, bits.OnesCount32(uint32(p.stats())))
	for _, s := range allStats {
		if p&s != 0 {
			out = append(out, s)
		}
	}
	return out
}

// plan resolves the passes needed to produce every statistic in p.
func (p Property) plan() pass {
	var pl pass
	for _, s := range p.Stats() {
		pl |= passes[s]
	}
	return pl
}

func (p Property) String() string {
	if p == 0 {
		return "NOTHING"
	}
	parts := make([]string, 0, bits.OnesCount32(uint32(p)))
	for _, s := range append(allStats, Errors) {
		if p&s != 0 {
			parts = append(parts, propertyNames[s])
		}
	}
	if rest := p &^ (statMask | Errors); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseProperty maps a statistic name such as "MEAN" or "stdevclip" to its
// flag. Names may also be joined with "|".
func ParseProperty(name string) (Property, error) {
	var p Property
	for _, part := range strings.Split(name, "|") {
		upper := strings.ToUpper(strings.TrimSpace(part))
		found := false
		for flag, n := range propertyNames {
			if n == upper {
				p |= flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown statistic %q", ErrInvalidRequest, part)
		}
	}
	return p, nil
}

// ParseProperties ORs together the flags of all names.
func ParseProperties(names []string) (Property, error) {
	var p Property
	for _, n := range names {
		flag, err := ParseProperty(n)
		if err != nil {
			return 0, err
		}
		p |= flag
	}
	return p, nil
}

// PropertyNames returns the names of every statistic plus ERRORS.
func PropertyNames() []string {
	names := make([]string, 0, len(allStats)+1)
	for _, s := range allStats {
		names = append(names, propertyNames[s])
	}
	return append(names, propertyNames[Errors])
}
