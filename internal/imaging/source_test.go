package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// newUniformImage returns an NRGBA image filled with c.
func newUniformImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// newQuadrantImage returns an image with red, green, blue and gray quadrants.
func newQuadrantImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.NRGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.NRGBA{200, 0, 0, 255}
			case y < height/2:
				c = color.NRGBA{0, 200, 0, 255}
			case x < width/2:
				c = color.NRGBA{0, 0, 200, 255}
			default:
				c = color.NRGBA{50, 50, 50, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func sourceValues(src *ImageSource) []float64 {
	out := make([]float64, src.Len())
	for i := range out {
		out[i] = src.At(i).Value
	}
	return out
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		input   string
		want    Channel
		wantErr bool
	}{
		{"", ChannelLuminance, false},
		{"luminance", ChannelLuminance, false},
		{"Lightness", ChannelLightness, false},
		{" RED ", ChannelRed, false},
		{"alpha", ChannelAlpha, false},
		{"infrared", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseChannel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChannel(%q): err=%v, wantErr=%v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChannel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewImageSource_Channels(t *testing.T) {
	img := newUniformImage(4, 3, color.NRGBA{100, 150, 50, 200})

	tests := []struct {
		channel Channel
		want    float64
	}{
		{ChannelRed, 100},
		{ChannelGreen, 150},
		{ChannelBlue, 50},
		{ChannelAlpha, 200},
	}

	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			src, err := NewImageSource(img, SourceOptions{Channel: tt.channel})
			if err != nil {
				t.Fatalf("NewImageSource failed: %v", err)
			}
			if src.Len() != 12 || src.Width() != 4 || src.Height() != 3 {
				t.Fatalf("size: got len=%d %dx%d, want 12 4x3", src.Len(), src.Width(), src.Height())
			}
			for i, v := range sourceValues(src) {
				if v != tt.want {
					t.Fatalf("sample %d: got %v, want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestNewImageSource_LuminanceOfGray(t *testing.T) {
	img := newUniformImage(3, 3, color.NRGBA{120, 120, 120, 255})

	src, err := NewImageSource(img, SourceOptions{})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Channel() != ChannelLuminance {
		t.Errorf("default channel: got %s", src.Channel())
	}
	for i, v := range sourceValues(src) {
		if v != 120 {
			t.Fatalf("sample %d: got %v, want 120", i, v)
		}
	}
}

func TestNewImageSource_Lightness(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want float64
	}{
		{"white", color.NRGBA{255, 255, 255, 255}, 100},
		{"black", color.NRGBA{0, 0, 0, 255}, 0},
		{"mid gray", color.NRGBA{119, 119, 119, 255}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewImageSource(newUniformImage(2, 2, tt.c), SourceOptions{Channel: ChannelLightness})
			if err != nil {
				t.Fatalf("NewImageSource failed: %v", err)
			}
			if got := src.At(0).Value; math.Abs(got-tt.want) > 0.5 {
				t.Errorf("L*: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewImageSource_PixelMask(t *testing.T) {
	img := newUniformImage(3, 1, color.NRGBA{10, 10, 10, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(2, 0, color.NRGBA{0, 0, 0, 0})

	src, err := NewImageSource(img, SourceOptions{})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}

	want := []statistics.MaskPixel{0, statistics.MaskSat, statistics.MaskNoData}
	for i, m := range want {
		if got := src.At(i).Mask; got != m {
			t.Errorf("pixel %d: mask %s, want %s", i, got, m)
		}
	}
}

func TestNewImageSource_MaskImage(t *testing.T) {
	img := newUniformImage(4, 4, color.NRGBA{10, 10, 10, 255})
	mask := newUniformImage(4, 4, color.NRGBA{0, 0, 0, 255})
	mask.SetNRGBA(1, 2, color.NRGBA{255, 255, 255, 255})

	src, err := NewImageSource(img, SourceOptions{Mask: mask})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}

	for i := 0; i < src.Len(); i++ {
		bad := src.At(i).Mask&statistics.MaskBad != 0
		if bad != (i == 2*4+1) {
			t.Errorf("pixel %d: bad=%v", i, bad)
		}
	}

	if _, err := NewImageSource(img, SourceOptions{Mask: newUniformImage(3, 4, color.NRGBA{})}); err == nil {
		t.Error("mismatched mask size should fail")
	}
}

func TestNewImageSource_MaskedPixelExcluded(t *testing.T) {
	img := newUniformImage(3, 3, color.NRGBA{40, 40, 40, 255})
	img.SetNRGBA(1, 1, color.NRGBA{240, 240, 240, 255})
	mask := newUniformImage(3, 3, color.NRGBA{0, 0, 0, 255})
	mask.SetNRGBA(1, 1, color.NRGBA{1, 0, 0, 255})

	src, err := NewImageSource(img, SourceOptions{Mask: mask})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}

	ctrl := statistics.NewControl()
	ctrl.SetAndMask(statistics.MaskBad)
	res, err := statistics.Compute(src, statistics.NPoint|statistics.Max, ctrl)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	n, _ := res.Value(statistics.NPoint)
	hi, _ := res.Value(statistics.Max)
	if n != 8 || hi != 40 {
		t.Errorf("got NPOINT=%v MAX=%v, want 8 and 40", n, hi)
	}
}

func TestNewImageSource_GainVariance(t *testing.T) {
	img := newUniformImage(2, 2, color.NRGBA{100, 100, 100, 255})

	src, err := NewImageSource(img, SourceOptions{Gain: 2, ReadNoise: 3})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if !src.HasWeights() {
		t.Fatal("HasWeights should be true with a noise model")
	}
	if got := src.At(0).Variance; got != 59 {
		t.Errorf("variance: got %v, want 59", got)
	}

	plain, _ := NewImageSource(img, SourceOptions{})
	if plain.HasWeights() {
		t.Error("HasWeights should be false without variance")
	}
}

func TestNewImageSource_VarianceImage(t *testing.T) {
	img := newUniformImage(2, 2, color.NRGBA{100, 100, 100, 255})
	variance := newUniformImage(2, 2, color.NRGBA{16, 16, 16, 255})

	src, err := NewImageSource(img, SourceOptions{Variance: variance, Gain: 1})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if got := src.At(3).Variance; got != 16 {
		t.Errorf("variance image should take precedence: got %v, want 16", got)
	}
}

func TestNewImageSource_Region(t *testing.T) {
	img := newQuadrantImage(10, 10)

	r, err := QuadrantRegion(img.Bounds(), "top-left")
	if err != nil {
		t.Fatalf("QuadrantRegion failed: %v", err)
	}
	src, err := NewImageSource(img, SourceOptions{Channel: ChannelRed, Region: &r})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Len() != 25 {
		t.Fatalf("len: got %d, want 25", src.Len())
	}
	for i, v := range sourceValues(src) {
		if v != 200 {
			t.Fatalf("sample %d: got %v, want 200", i, v)
		}
	}

	if _, err := NewImageSource(img, SourceOptions{Region: &Region{5, 5, 11, 8}}); err == nil {
		t.Error("out-of-bounds region should fail")
	}
}

func TestNewImageSource_SubImageBounds(t *testing.T) {
	img := newQuadrantImage(10, 10)
	sub := img.SubImage(image.Rect(5, 5, 10, 10))
	mask := newUniformImage(5, 5, color.NRGBA{0, 0, 0, 255})
	mask.SetNRGBA(0, 0, color.NRGBA{9, 9, 9, 255})

	src, err := NewImageSource(sub, SourceOptions{Channel: ChannelGreen, Mask: mask})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Len() != 25 || src.At(0).Value != 50 {
		t.Errorf("got len=%d first=%v, want 25 and 50", src.Len(), src.At(0).Value)
	}
	if src.At(0).Mask&statistics.MaskBad == 0 {
		t.Error("mask should align with the sub-image origin")
	}
}

func TestNewImageSource_Bin(t *testing.T) {
	img := newUniformImage(5, 4, color.NRGBA{80, 80, 80, 255})
	img.SetNRGBA(3, 1, color.NRGBA{255, 80, 80, 255})

	src, err := NewImageSource(img, SourceOptions{Channel: ChannelGreen, Bin: 2, Gain: 4})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Width() != 2 || src.Height() != 2 || src.Len() != 4 {
		t.Fatalf("binned size: got %dx%d len=%d, want 2x2 len=4", src.Width(), src.Height(), src.Len())
	}
	for i, v := range sourceValues(src) {
		if v != 80 {
			t.Errorf("sample %d: got %v, want 80", i, v)
		}
	}

	// The saturated pixel (3,1) lies in block (1,0).
	for i := 0; i < src.Len(); i++ {
		sat := src.At(i).Mask&statistics.MaskSat != 0
		if sat != (i == 1) {
			t.Errorf("block %d: sat=%v", i, sat)
		}
	}

	// 80/4 per pixel, averaged over 4 pixels and divided by 4.
	if got := src.At(0).Variance; got != 5 {
		t.Errorf("binned variance: got %v, want 5", got)
	}

	if _, err := NewImageSource(img, SourceOptions{Bin: 5}); err == nil {
		t.Error("bin larger than the image should fail")
	}
}

func TestNewImageSource_BinKeepsFractionalMeans(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	reds := []uint8{
		10, 10, 0, 0,
		11, 12, 0, 1,
	}
	for i, r := range reds {
		img.SetNRGBA(i%4, i/4, color.NRGBA{r, 0, 0, 255})
	}

	src, err := NewImageSource(img, SourceOptions{Channel: ChannelRed, Bin: 2, Gain: 1})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}

	want := []float64{10.75, 0.25}
	got := sourceValues(src)
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("block %d: got %v, want %v", i, got[i], want[i])
		}
		// With gain 1 the block variance is the block mean divided by 4.
		if v := src.At(i).Variance; math.Abs(v-want[i]/4) > 1e-12 {
			t.Errorf("block %d variance: got %v, want %v", i, v, want[i]/4)
		}
	}
}

func TestNewImageSource_Edge(t *testing.T) {
	img := newUniformImage(5, 5, color.NRGBA{10, 10, 10, 255})

	src, err := NewImageSource(img, SourceOptions{Edge: 1})
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}

	edges := 0
	for i := 0; i < src.Len(); i++ {
		if src.At(i).Mask&statistics.MaskEdge != 0 {
			edges++
		}
	}
	if edges != 16 {
		t.Errorf("edge pixels: got %d, want 16", edges)
	}
	if src.At(12).Mask != 0 {
		t.Errorf("center pixel mask: got %s, want 0", src.At(12).Mask)
	}
}

func TestNewImageSource_InvalidOptions(t *testing.T) {
	img := newUniformImage(4, 4, color.NRGBA{1, 1, 1, 255})

	tests := []struct {
		name string
		opts SourceOptions
	}{
		{"bad channel", SourceOptions{Channel: "uv"}},
		{"negative gain", SourceOptions{Gain: -1}},
		{"negative edge", SourceOptions{Edge: -2}},
		{"empty region", SourceOptions{Region: &Region{2, 2, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewImageSource(img, tt.opts); err == nil {
				t.Error("NewImageSource should fail")
			}
		})
	}

	if _, err := NewImageSource(nil, SourceOptions{}); err == nil {
		t.Error("nil image should fail")
	}
}
