package statistics

import (
	"fmt"
	"math"
)

// Default Control parameters.
const (
	DefaultNumSigmaClip = 3.0
	DefaultNumIter      = 3
)

// Control holds the parameters of a statistics computation.
//
// The zero value is not valid; start from NewControl. Compute takes a Control
// by value, so changing a Control after the call has no effect on it.
type Control struct {
	numSigmaClip      float64
	numIter           int
	andMask           MaskPixel
	noGoodPixelsMask  MaskPixel
	weighted          bool
	weightedIsSet     bool
	nanSafe           bool
	requireGoodPixels bool
	clipFromMedian    bool
}

// NewControl returns a Control with the default parameters: 3σ clipping,
// 3 iterations, no mask bits excluded, NaN-safe, weighting decided by the
// source.
func NewControl() Control {
	return Control{
		numSigmaClip:     DefaultNumSigmaClip,
		numIter:          DefaultNumIter,
		noGoodPixelsMask: MaskNoData,
		nanSafe:          true,
	}
}

// NumSigmaClip returns the clip threshold in standard deviations.
func (c Control) NumSigmaClip() float64 { return c.numSigmaClip }

// NumIter returns the maximum number of clipping passes.
func (c Control) NumIter() int { return c.numIter }

// AndMask returns the mask bits that exclude a sample.
func (c Control) AndMask() MaskPixel { return c.andMask }

// NoGoodPixelsMask returns the bits reported when no valid sample remains.
func (c Control) NoGoodPixelsMask() MaskPixel { return c.noGoodPixelsMask }

// Weighted returns whether per-sample weights participate.
func (c Control) Weighted() bool { return c.weighted }

// WeightedIsSet returns whether SetWeighted has been called.
func (c Control) WeightedIsSet() bool { return c.weightedIsSet }

// NanSafe returns whether NaN and ±Inf values are filtered out.
func (c Control) NanSafe() bool { return c.nanSafe }

// RequireGoodPixels returns whether Compute fails with ErrNoGoodSamples
// instead of returning a flagged Result.
func (c Control) RequireGoodPixels() bool { return c.requireGoodPixels }

// ClipFromMedian returns whether the first clipping pass is centred on the
// median with a sigma estimated from the interquartile range.
func (c Control) ClipFromMedian() bool { return c.clipFromMedian }

// SetNumSigmaClip sets the clip threshold. It must be finite and > 0.
func (c *Control) SetNumSigmaClip(n float64) error {
	if !(n > 0) || math.IsInf(n, 0) {
		return fmt.Errorf("%w: numSigmaClip must be > 0, got %v", ErrInvalidParameter, n)
	}
	c.numSigmaClip = n
	return nil
}

// SetNumIter sets the number of clipping passes. 0 and 1 disable clipping.
func (c *Control) SetNumIter(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: numIter must be >= 0, got %d", ErrInvalidParameter, n)
	}
	c.numIter = n
	return nil
}

// SetAndMask sets the mask bits that exclude a sample.
func (c *Control) SetAndMask(m MaskPixel) { c.andMask = m }

// SetNoGoodPixelsMask sets the bits reported when no valid sample remains.
func (c *Control) SetNoGoodPixelsMask(m MaskPixel) { c.noGoodPixelsMask = m }

// SetWeighted enables or disables weighting and marks it as explicitly set.
func (c *Control) SetWeighted(w bool) {
	c.weighted = w
	c.weightedIsSet = true
}

// SetNanSafe enables or disables NaN/Inf filtering.
func (c *Control) SetNanSafe(b bool) { c.nanSafe = b }

// SetRequireGoodPixels makes Compute fail with ErrNoGoodSamples when every
// sample is excluded.
func (c *Control) SetRequireGoodPixels(b bool) { c.requireGoodPixels = b }

// SetClipFromMedian makes the first clipping pass use median ± k·0.741·IQR
// instead of mean ± k·stdev. Off by default.
func (c *Control) SetClipFromMedian(b bool) { c.clipFromMedian = b }

// Validate checks the Control invariants.
func (c Control) Validate() error {
	if !(c.numSigmaClip > 0) || math.IsInf(c.numSigmaClip, 0) {
		return fmt.Errorf("%w: numSigmaClip must be > 0, got %v", ErrInvalidParameter, c.numSigmaClip)
	}
	if c.numIter < 0 {
		return fmt.Errorf("%w: numIter must be >= 0, got %d", ErrInvalidParameter, c.numIter)
	}
	return nil
}

// clipping reports whether sigma-clipping passes run at all.
func (c Control) clipping() bool { return c.numIter > 1 }

// ControlOptions is the serializable form of a Control. Nil or empty fields
// keep the value of the Control they are applied to.
type ControlOptions struct {
	NumSigmaClip      *float64 `json:"num_sigma_clip,omitempty" yaml:"num_sigma_clip,omitempty"`
	NumIter           *int     `json:"num_iter,omitempty" yaml:"num_iter,omitempty"`
	AndMask           []string `json:"and_mask,omitempty" yaml:"and_mask,omitempty"`
	NoGoodPixelsMask  []string `json:"no_good_pixels_mask,omitempty" yaml:"no_good_pixels_mask,omitempty"`
	Weighted          *bool    `json:"weighted,omitempty" yaml:"weighted,omitempty"`
	NanSafe           *bool    `json:"nan_safe,omitempty" yaml:"nan_safe,omitempty"`
	RequireGoodPixels *bool    `json:"require_good_pixels,omitempty" yaml:"require_good_pixels,omitempty"`
	ClipFromMedian    *bool    `json:"clip_from_median,omitempty" yaml:"clip_from_median,omitempty"`
}

// ToControl applies the options to NewControl().
func (o ControlOptions) ToControl() (Control, error) {
	return o.Apply(NewControl())
}

// Apply returns c with every set option applied. c is not modified.
func (o ControlOptions) Apply(c Control) (Control, error) {
	if o.NumSigmaClip != nil {
		if err := c.SetNumSigmaClip(*o.NumSigmaClip); err != nil {
			return Control{}, err
		}
	}
	if o.NumIter != nil {
		if err := c.SetNumIter(*o.NumIter); err != nil {
			return Control{}, err
		}
	}
	if o.AndMask != nil {
		m, err := ParseMask(o.AndMask)
		if err != nil {
			return Control{}, fmt.Errorf("and_mask: %w", err)
		}
		c.SetAndMask(m)
	}
	if o.NoGoodPixelsMask != nil {
		m, err := ParseMask(o.NoGoodPixelsMask)
		if err != nil {
			return Control{}, fmt.Errorf("no_good_pixels_mask: %w", err)
		}
		c.SetNoGoodPixelsMask(m)
	}
	if o.Weighted != nil {
		c.SetWeighted(*o.Weighted)
	}
	if o.NanSafe != nil {
		c.SetNanSafe(*o.NanSafe)
	}
	if o.RequireGoodPixels != nil {
		c.SetRequireGoodPixels(*o.RequireGoodPixels)
	}
	if o.ClipFromMedian != nil {
		c.SetClipFromMedian(*o.ClipFromMedian)
	}
	return c, nil
}
