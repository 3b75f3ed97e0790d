package statistics

// Sample is one pixel as seen by the engine.
//
// Variance and Weight are optional: zero, negative or NaN means the source
// has no value for this sample.
type Sample struct {
	Value    float64
	Mask     MaskPixel
	Variance float64
	Weight   float64
}

// SampleSource is an ordered, finite sequence of samples.
//
// Compute reads each index at most a few times and never retains the source
// after it returns. The source must not be modified while a computation over
// it is running.
type SampleSource interface {
	Len() int
	At(i int) Sample
}

// Weighter is implemented by sources that know whether they carry weights or
// variances. When the Control has not been told explicitly whether to weight,
// Compute weights exactly the sources that report true.
type Weighter interface {
	HasWeights() bool
}

// Values is a SampleSource over plain values with no mask, variance or weight.
type Values []float64

// Len implements SampleSource.
func (v Values) Len() int { return len(v) }

// At implements SampleSource.
func (v Values) At(i int) Sample { return Sample{Value: v[i]} }

// MaskedValues is a SampleSource over parallel slices. Mask, Variance and
// Weight may be nil or shorter than Values; missing entries are absent.
type MaskedValues struct {
	Values   []float64
	Mask     []MaskPixel
	Variance []float64
	Weight   []float64
}

// Len implements SampleSource.
func (m MaskedValues) Len() int { return len(m.Values) }

// At implements SampleSource.
func (m MaskedValues) At(i int) Sample {
	s := Sample{Value: m.Values[i]}
	if i < len(m.Mask) {
		s.Mask = m.Mask[i]
	}
	if i < len(m.Variance) {
		s.Variance = m.Variance[i]
	}
	if i < len(m.Weight) {
		s.Weight = m.Weight[i]
	}
	return s
}

// HasWeights implements Weighter.
func (m MaskedValues) HasWeights() bool {
	return len(m.Variance) > 0 || len(m.Weight) > 0
}
