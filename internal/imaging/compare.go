package imaging

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// RegionStatistics is the outcome of statistics over one region.
type RegionStatistics struct {
	Region     Region             `json:"region" yaml:"region"`
	Samples    int                `json:"samples" yaml:"samples"`
	Statistics statistics.Summary `json:"statistics" yaml:"statistics"`
}

// CompareResult holds the statistics of two regions and the difference of
// their means.
type CompareResult struct {
	Region1  RegionStatistics `json:"region1" yaml:"region1"`
	Region2  RegionStatistics `json:"region2" yaml:"region2"`
	SameSize bool             `json:"same_size" yaml:"same_size"`

	// MeanStatistic is MEANCLIP when clipped statistics were requested and
	// MEAN otherwise.
	MeanStatistic string `json:"mean_statistic" yaml:"mean_statistic"`

	// MeanDifference is mean(region2) - mean(region1), with the errors of
	// both means added in quadrature. Significance is |difference|/error.
	// All three are nil when a region has no good pixels.
	MeanDifference      *float64 `json:"mean_difference" yaml:"mean_difference"`
	MeanDifferenceError *float64 `json:"mean_difference_error" yaml:"mean_difference_error"`
	Significance        *float64 `json:"significance,omitempty" yaml:"significance,omitempty"`
}

// CompareRegions computes props over r1 and r2 of img in parallel and
// compares their means. Mean and Errors are always added to props.
func CompareRegions(ctx context.Context, img image.Image, r1, r2 Region, opts SourceOptions, props statistics.Property, ctrl statistics.Control) (*CompareResult, error) {
	meanStat := statistics.Mean
	if props&(statistics.MeanClip|statistics.StdevClip|statistics.VarianceClip) != 0 {
		meanStat = statistics.MeanClip
	}
	props |= meanStat | statistics.Errors

	sources := make([]statistics.SampleSource, 2)
	for i, r := range []Region{r1, r2} {
		o := opts
		o.Region = &r
		src, err := NewImageSource(img, o)
		if err != nil {
			return nil, fmt.Errorf("region%d: %w", i+1, err)
		}
		sources[i] = src
	}

	results, err := statistics.ComputeBatch(ctx, sources, props, ctrl)
	if err != nil {
		return nil, err
	}

	out := &CompareResult{
		Region1:       RegionStatistics{Region: r1, Samples: sources[0].Len(), Statistics: results[0].Summary()},
		Region2:       RegionStatistics{Region: r2, Samples: sources[1].Len(), Statistics: results[1].Summary()},
		SameSize:      r1.Width() == r2.Width() && r1.Height() == r2.Height(),
		MeanStatistic: meanStat.String(),
	}

	m1, e1, err1 := results[0].ValueError(meanStat)
	m2, e2, err2 := results[1].ValueError(meanStat)
	if err1 != nil || err2 != nil || math.IsNaN(m1) || math.IsNaN(m2) {
		return out, nil
	}

	diff := m2 - m1
	diffErr := math.Hypot(e1, e2)
	out.MeanDifference = &diff
	out.MeanDifferenceError = &diffErr
	if diffErr > 0 {
		sig := math.Abs(diff) / diffErr
		out.Significance = &sig
	}
	return out, nil
}
