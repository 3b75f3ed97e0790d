package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// Channel selects which per-pixel quantity becomes the sample value.
type Channel string

// Supported channels. Luminance, colour and alpha values are on a 0..255
// scale; lightness is CIE L* on 0..100.
const (
	ChannelLuminance Channel = "luminance"
	ChannelLightness Channel = "lightness"
	ChannelRed       Channel = "red"
	ChannelGreen     Channel = "green"
	ChannelBlue      Channel = "blue"
	ChannelAlpha     Channel = "alpha"
)

var channels = []Channel{
	ChannelLuminance, ChannelLightness, ChannelRed, ChannelGreen, ChannelBlue, ChannelAlpha,
}

// BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ChannelNames returns the accepted channel names.
func ChannelNames() []string {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = string(c)
	}
	return names
}

// ParseChannel maps a channel name to a Channel. The empty string selects
// luminance.
func ParseChannel(name string) (Channel, error) {
	if name == "" {
		return ChannelLuminance, nil
	}
	c := Channel(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range channels {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown channel: %s (valid: %s)", name, strings.Join(ChannelNames(), ", "))
}

// SourceOptions controls how an image is turned into samples.
type SourceOptions struct {
	Channel Channel

	// Region restricts sampling to part of the image. Nil means the whole
	// image.
	Region *Region

	// Mask marks bad pixels: any pixel with a non-zero colour sets
	// MaskBad. It must have the same size as the image.
	Mask image.Image

	// Variance supplies per-pixel variance as its luminance. It must have
	// the same size as the image and takes precedence over Gain.
	Variance image.Image

	// Gain and ReadNoise give the detector noise model
	// variance = value/Gain + ReadNoise² used when Variance is nil and
	// Gain > 0.
	Gain      float64
	ReadNoise float64

	// Edge flags pixels within this many pixels of the region border with
	// MaskEdge, counted after binning.
	Edge int

	// Bin averages Bin×Bin blocks into one sample. Values <= 1 disable
	// binning. Trailing rows and columns that do not fill a block are
	// dropped.
	Bin int
}

// ImageSource exposes the pixels of an image as statistics samples, in
// row-major order.
//
// All values, mask words and variances are computed up front, so an
// ImageSource is immutable and safe for concurrent use.
type ImageSource struct {
	width, height int
	channel       Channel
	values        []float64
	mask          []statistics.MaskPixel
	variance      []float64
}

// NewImageSource extracts samples from img according to opts.
func NewImageSource(img image.Image, opts SourceOptions) (*ImageSource, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	ch, err := ParseChannel(string(opts.Channel))
	if err != nil {
		return nil, err
	}
	if opts.Gain < 0 || math.IsNaN(opts.Gain) {
		return nil, fmt.Errorf("gain must be >= 0, got %v", opts.Gain)
	}
	if opts.Edge < 0 {
		return nil, fmt.Errorf("edge must be >= 0, got %d", opts.Edge)
	}

	bounds := img.Bounds()
	region := FullRegion(bounds)
	if opts.Region != nil {
		region = *opts.Region
	}
	if err := region.Validate(bounds); err != nil {
		return nil, err
	}

	bin := opts.Bin
	if bin < 1 {
		bin = 1
	}
	outW, outH := region.Width()/bin, region.Height()/bin
	if outW == 0 || outH == 0 {
		return nil, fmt.Errorf("bin %d larger than region %dx%d", bin, region.Width(), region.Height())
	}
	// Drop the partial blocks so every output sample covers bin×bin pixels.
	rect := image.Rect(region.X1, region.Y1, region.X1+outW*bin, region.Y1+outH*bin)

	work := imaging.Crop(img, rect)
	fullValues := channelValues(work, ch)
	fullMask := pixelMask(work)

	if opts.Mask != nil {
		if opts.Mask.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("mask image is %v, image is %v", opts.Mask.Bounds().Size(), bounds.Size())
		}
		markBad(fullMask, imaging.Crop(opts.Mask, shiftTo(rect, bounds, opts.Mask.Bounds())))
	}

	var fullVariance []float64
	switch {
	case opts.Variance != nil:
		if opts.Variance.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("variance image is %v, image is %v", opts.Variance.Bounds().Size(), bounds.Size())
		}
		fullVariance = channelValues(imaging.Crop(opts.Variance, shiftTo(rect, bounds, opts.Variance.Bounds())), ChannelLuminance)
	case opts.Gain > 0:
		rn2 := opts.ReadNoise * opts.ReadNoise
		fullVariance = make([]float64, len(fullValues))
		for i, v := range fullValues {
			fullVariance[i] = math.Max(v, 0)/opts.Gain + rn2
		}
	}

	src := &ImageSource{
		width:    outW,
		height:   outH,
		channel:  ch,
		values:   fullValues,
		mask:     fullMask,
		variance: fullVariance,
	}

	if bin > 1 {
		src.values = binValues(fullValues, work.Bounds().Dx(), outW, outH, bin)
		src.mask = binMask(fullMask, work.Bounds().Dx(), outW, outH, bin)
		if fullVariance != nil {
			src.variance = binVariance(fullVariance, work.Bounds().Dx(), outW, outH, bin)
		}
	}

	if opts.Edge > 0 {
		markEdge(src.mask, outW, outH, opts.Edge)
	}

	return src, nil
}

// Len returns the number of samples.
func (s *ImageSource) Len() int { return len(s.values) }

// At returns sample i; pixel (x, y) of the sampled grid is i = y*Width()+x.
func (s *ImageSource) At(i int) statistics.Sample {
	smp := statistics.Sample{Value: s.values[i], Mask: s.mask[i]}
	if s.variance != nil {
		smp.Variance = s.variance[i]
	}
	return smp
}

// HasWeights reports whether a variance plane is available.
func (s *ImageSource) HasWeights() bool { return s.variance != nil }

// Width returns the sampled grid width.
func (s *ImageSource) Width() int { return s.width }

// Height returns the sampled grid height.
func (s *ImageSource) Height() int { return s.height }

// Channel returns the channel the values were taken from.
func (s *ImageSource) Channel() Channel { return s.channel }

// shiftTo moves rect, given in the coordinates of from, into the coordinates
// of an equally sized image with bounds to.
func shiftTo(rect, from, to image.Rectangle) image.Rectangle {
	return rect.Add(to.Min.Sub(from.Min))
}

// channelValues extracts ch from an image whose bounds start at (0,0), as
// returned by imaging.Crop.
func channelValues(img *image.NRGBA, ch Channel) []float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([]float64, 0, w*h)

	switch ch {
	case ChannelLuminance:
		gray := effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out = append(out, float64(gray.Pix[gray.PixOffset(x, y)]))
			}
		}
	case ChannelLightness:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c, ok := colorful.MakeColor(img.NRGBAAt(x, y))
				if !ok {
					// Transparent; the pixel is flagged NO_DATA.
					out = append(out, 0)
					continue
				}
				l, _, _ := c.Lab()
				out = append(out, l*100)
			}
		}
	default:
		idx := map[Channel]int{ChannelRed: 0, ChannelGreen: 1, ChannelBlue: 2, ChannelAlpha: 3}[ch]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out = append(out, float64(img.Pix[img.PixOffset(x, y)+idx]))
			}
		}
	}
	return out
}

// pixelMask sets MaskSat for pixels with a saturated colour component and
// MaskNoData for fully transparent pixels.
func pixelMask(img *image.NRGBA) []statistics.MaskPixel {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	mask := make([]statistics.MaskPixel, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.Pix[img.PixOffset(x, y):]
			var m statistics.MaskPixel
			if p[3] == 0 {
				m |= statistics.MaskNoData
			} else if p[0] == 255 || p[1] == 255 || p[2] == 255 {
				m |= statistics.MaskSat
			}
			mask[y*w+x] = m
		}
	}
	return mask
}

func markBad(mask []statistics.MaskPixel, bad *image.NRGBA) {
	w, h := bad.Bounds().Dx(), bad.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := bad.Pix[bad.PixOffset(x, y):]
			if p[0] != 0 || p[1] != 0 || p[2] != 0 {
				mask[y*w+x] |= statistics.MaskBad
			}
		}
	}
}

func markEdge(mask []statistics.MaskPixel, w, h, edge int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < edge || y < edge || x >= w-edge || y >= h-edge {
				mask[y*w+x] |= statistics.MaskEdge
			}
		}
	}
}

// binMask ORs the mask words of each bin×bin block.
func binMask(mask []statistics.MaskPixel, stride, outW, outH, bin int) []statistics.MaskPixel {
	out := make([]statistics.MaskPixel, outW*outH)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var m statistics.MaskPixel
			for y := oy * bin; y < (oy+1)*bin; y++ {
				for x := ox * bin; x < (ox+1)*bin; x++ {
					m |= mask[y*stride+x]
				}
			}
			out[oy*outW+ox] = m
		}
	}
	return out
}

// binValues averages each bin×bin block.
func binValues(values []float64, stride, outW, outH, bin int) []float64 {
	n := float64(bin * bin)
	out := make([]float64, outW*outH)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var sum float64
			for y := oy * bin; y < (oy+1)*bin; y++ {
				for x := ox * bin; x < (ox+1)*bin; x++ {
					sum += values[y*stride+x]
				}
			}
			out[oy*outW+ox] = sum / n
		}
	}
	return out
}

// binVariance returns the variance of each block mean: the mean of the
// pixel variances divided by the number of pixels in the block.
func binVariance(variance []float64, stride, outW, outH, bin int) []float64 {
	n := float64(bin * bin)
	out := make([]float64, outW*outH)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var sum float64
			for y := oy * bin; y < (oy+1)*bin; y++ {
				for x := ox * bin; x < (ox+1)*bin; x++ {
					sum += variance[y*stride+x]
				}
			}
			out[oy*outW+ox] = sum / n / n
		}
	}
	return out
}
