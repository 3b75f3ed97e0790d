package imaging

import (
	"context"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

func TestCompareRegions(t *testing.T) {
	img := newQuadrantImage(20, 20)

	tests := []struct {
		name     string
		r1, r2   Region
		channel  Channel
		wantDiff float64
		sameSize bool
	}{
		{"red vs green in red", Region{0, 0, 10, 10}, Region{10, 0, 20, 10}, ChannelRed, -200, true},
		{"same region", Region{0, 0, 10, 10}, Region{0, 0, 10, 10}, ChannelRed, 0, true},
		{"different sizes", Region{0, 10, 10, 20}, Region{10, 10, 15, 15}, ChannelBlue, -150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CompareRegions(context.Background(), img, tt.r1, tt.r2,
				SourceOptions{Channel: tt.channel}, statistics.NPoint, statistics.NewControl())
			if err != nil {
				t.Fatalf("CompareRegions failed: %v", err)
			}
			if res.SameSize != tt.sameSize {
				t.Errorf("SameSize: got %v, want %v", res.SameSize, tt.sameSize)
			}
			if res.MeanStatistic != "MEAN" {
				t.Errorf("MeanStatistic: got %s", res.MeanStatistic)
			}
			if res.MeanDifference == nil {
				t.Fatal("MeanDifference should be set")
			}
			if *res.MeanDifference != tt.wantDiff {
				t.Errorf("MeanDifference: got %v, want %v", *res.MeanDifference, tt.wantDiff)
			}
			// Uniform quadrants have zero spread.
			if *res.MeanDifferenceError != 0 || res.Significance != nil {
				t.Errorf("error: got %v, significance %v", *res.MeanDifferenceError, res.Significance)
			}
			if res.Region1.Samples != tt.r1.Width()*tt.r1.Height() {
				t.Errorf("Region1.Samples: got %d", res.Region1.Samples)
			}
		})
	}
}

func TestCompareRegions_Significance(t *testing.T) {
	img := newUniformImage(10, 10, color.NRGBA{100, 100, 100, 255})
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(100 + (x+y)%3)
			if x >= 5 {
				v += 10
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	res, err := CompareRegions(context.Background(), img, Region{0, 0, 5, 10}, Region{5, 0, 10, 10},
		SourceOptions{Channel: ChannelRed}, statistics.MeanClip, statistics.NewControl())
	if err != nil {
		t.Fatalf("CompareRegions failed: %v", err)
	}
	if res.MeanStatistic != "MEANCLIP" {
		t.Errorf("MeanStatistic: got %s, want MEANCLIP", res.MeanStatistic)
	}
	if res.Significance == nil || *res.Significance < 10 {
		t.Errorf("a 10-count offset over unit noise should be significant, got %v", res.Significance)
	}
	if math.Abs(*res.MeanDifference-10) > 0.5 {
		t.Errorf("MeanDifference: got %v, want about 10", *res.MeanDifference)
	}
}

func TestCompareRegions_NoGoodPixels(t *testing.T) {
	img := newUniformImage(4, 4, color.NRGBA{0, 0, 0, 0})

	ctrl := statistics.NewControl()
	ctrl.SetAndMask(statistics.MaskNoData)
	res, err := CompareRegions(context.Background(), img, Region{0, 0, 2, 2}, Region{2, 2, 4, 4},
		SourceOptions{}, statistics.NPoint, ctrl)
	if err != nil {
		t.Fatalf("CompareRegions failed: %v", err)
	}
	if res.MeanDifference != nil {
		t.Error("MeanDifference should be nil without good pixels")
	}
	if !res.Region1.Statistics.NoGoodPixels {
		t.Error("Region1 should report NoGoodPixels")
	}
}

func TestCompareRegions_InvalidRegion(t *testing.T) {
	img := newUniformImage(4, 4, color.NRGBA{1, 1, 1, 255})
	_, err := CompareRegions(context.Background(), img, Region{0, 0, 2, 2}, Region{2, 2, 5, 5},
		SourceOptions{}, statistics.Mean, statistics.NewControl())
	if err == nil {
		t.Error("out-of-bounds region should fail")
	}
}
