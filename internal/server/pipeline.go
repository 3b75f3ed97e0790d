package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/ironsheep/image-stats-mcp/internal/imaging"
	"github.com/ironsheep/image-stats-mcp/internal/metrics"
	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// errInvalidArguments marks tool failures caused by the caller's arguments.
// They are reported as JSON-RPC invalid params.
var errInvalidArguments = ewrap.New("invalid arguments")

// MaskSpec is a mask given as an integer, as plane names joined with "|"
// ("BAD|SAT") or as a list of plane names. Set is false when the field was
// absent or null.
type MaskSpec struct {
	Set   bool
	Value statistics.MaskPixel
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MaskSpec) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		*m = MaskSpec{Set: true, Value: statistics.MaskPixel(n)}
		return nil
	}

	var names []string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			names = strings.Split(s, "|")
		}
	} else if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("mask must be an integer, a string or a list of plane names")
	}

	v, err := statistics.ParseMask(names)
	if err != nil {
		return err
	}
	*m = MaskSpec{Set: true, Value: v}
	return nil
}

// Info loads path and describes it.
func (s *Server) Info(path string) (*imaging.ImageInfo, error) {
	return imaging.LoadImageInfo(s.cache, path)
}

// StatisticsRequest describes one statistics computation over an image file.
// Zero or nil fields take the server's configured defaults.
type StatisticsRequest struct {
	Path       string   `json:"path"`
	Properties []string `json:"properties,omitempty"`
	Channel    string   `json:"channel,omitempty"`

	NumSigmaClip      *float64 `json:"num_sigma_clip,omitempty"`
	NumIter           *int     `json:"num_iter,omitempty"`
	AndMask           MaskSpec `json:"and_mask"`
	NoGoodPixelsMask  MaskSpec `json:"no_good_pixels_mask"`
	Weighted          *bool    `json:"weighted,omitempty"`
	NanSafe           *bool    `json:"nan_safe,omitempty"`
	RequireGoodPixels *bool    `json:"require_good_pixels,omitempty"`
	ClipFromMedian    *bool    `json:"clip_from_median,omitempty"`

	MaskPath     string  `json:"mask_path,omitempty"`
	VariancePath string  `json:"variance_path,omitempty"`
	Gain         float64 `json:"gain,omitempty"`
	ReadNoise    float64 `json:"read_noise,omitempty"`
	Edge         int     `json:"edge,omitempty"`
	Bin          int     `json:"bin,omitempty"`

	Region   *imaging.Region `json:"region,omitempty"`
	Quadrant string          `json:"quadrant,omitempty"`
}

// ControlSummary reports the Control a computation ran with.
type ControlSummary struct {
	NumSigmaClip     float64  `json:"num_sigma_clip" yaml:"num_sigma_clip"`
	NumIter          int      `json:"num_iter" yaml:"num_iter"`
	AndMask          []string `json:"and_mask,omitempty" yaml:"and_mask,omitempty"`
	NoGoodPixelsMask []string `json:"no_good_pixels_mask,omitempty" yaml:"no_good_pixels_mask,omitempty"`
	NanSafe          bool     `json:"nan_safe" yaml:"nan_safe"`
	ClipFromMedian   bool     `json:"clip_from_median,omitempty" yaml:"clip_from_median,omitempty"`
}

func summarizeControl(c statistics.Control) ControlSummary {
	return ControlSummary{
		NumSigmaClip:     c.NumSigmaClip(),
		NumIter:          c.NumIter(),
		AndMask:          c.AndMask().Planes(),
		NoGoodPixelsMask: c.NoGoodPixelsMask().Planes(),
		NanSafe:          c.NanSafe(),
		ClipFromMedian:   c.ClipFromMedian(),
	}
}

// StatisticsResponse is the outcome of Server.Statistics.
type StatisticsResponse struct {
	Path    string         `json:"path" yaml:"path"`
	Channel string         `json:"channel" yaml:"channel"`
	Region  imaging.Region `json:"region" yaml:"region"`

	// Width and Height are the size of the sampled grid, after binning.
	Width    int            `json:"width" yaml:"width"`
	Height   int            `json:"height" yaml:"height"`
	Bin      int            `json:"bin,omitempty" yaml:"bin,omitempty"`
	Weighted bool           `json:"weighted" yaml:"weighted"`
	Control  ControlSummary `json:"control" yaml:"control"`

	statistics.Summary `yaml:",inline"`
}

// Statistics loads req.Path and computes the requested statistics.
func (s *Server) Statistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	region, err := resolveRegion(p.img.Bounds(), req.Region, req.Quadrant)
	if err != nil {
		return nil, err
	}
	p.opts.Region = &region

	start := time.Now()
	src, err := imaging.NewImageSource(p.img, p.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	res, err := statistics.Compute(src, p.props, p.ctrl)

	obs := metrics.Computation{Total: src.Len(), Err: err, Duration: time.Since(start)}
	if res != nil {
		obs.Accepted = res.Samples()
		obs.Clipped = res.ClippedSamples()
		obs.Iterations = res.Iterations()
		obs.NoGood = res.NoGoodPixels()
	}
	metrics.ObserveComputation(obs)
	if err != nil {
		return nil, err
	}

	s.debugf("statistics %s channel=%s region=%s n=%d %s in %s",
		req.Path, p.opts.Channel, region, res.Samples(), p.props, obs.Duration)

	weighted := src.HasWeights()
	if p.ctrl.WeightedIsSet() {
		weighted = p.ctrl.Weighted()
	}

	return &StatisticsResponse{
		Path:     req.Path,
		Channel:  string(src.Channel()),
		Region:   region,
		Width:    src.Width(),
		Height:   src.Height(),
		Bin:      p.opts.Bin,
		Weighted: weighted,
		Control:  summarizeControl(p.ctrl),
		Summary:  res.Summary(),
	}, nil
}

// CompareRequest asks for statistics on two regions of one image. Each
// region is given either as coordinates or as a quadrant name.
type CompareRequest struct {
	StatisticsRequest

	Region1   *imaging.Region `json:"region1,omitempty"`
	Region2   *imaging.Region `json:"region2,omitempty"`
	Quadrant1 string          `json:"quadrant1,omitempty"`
	Quadrant2 string          `json:"quadrant2,omitempty"`
}

// CompareResponse is the outcome of Server.Compare.
type CompareResponse struct {
	Path    string         `json:"path" yaml:"path"`
	Channel string         `json:"channel" yaml:"channel"`
	Control ControlSummary `json:"control" yaml:"control"`

	imaging.CompareResult `yaml:",inline"`
}

// Compare computes statistics on two regions of req.Path and the difference
// of their means.
func (s *Server) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	p, err := s.prepare(req.StatisticsRequest)
	if err != nil {
		return nil, err
	}

	r1, err := resolveRegion(p.img.Bounds(), req.Region1, req.Quadrant1)
	if err != nil {
		return nil, fmt.Errorf("region1: %w", err)
	}
	r2, err := resolveRegion(p.img.Bounds(), req.Region2, req.Quadrant2)
	if err != nil {
		return nil, fmt.Errorf("region2: %w", err)
	}

	start := time.Now()
	cmp, err := imaging.CompareRegions(ctx, p.img, r1, r2, p.opts, p.props, p.ctrl)
	obs := metrics.Computation{Err: err, Duration: time.Since(start)}
	if cmp != nil {
		obs.Total = cmp.Region1.Samples + cmp.Region2.Samples
		obs.Accepted = cmp.Region1.Statistics.Samples + cmp.Region2.Statistics.Samples
		obs.Clipped = cmp.Region1.Statistics.ClippedSamples + cmp.Region2.Statistics.ClippedSamples
		obs.NoGood = cmp.Region1.Statistics.NoGoodPixels || cmp.Region2.Statistics.NoGoodPixels
	}
	metrics.ObserveComputation(obs)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, statistics.ErrNoGoodSamples) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}

	return &CompareResponse{
		Path:          req.Path,
		Channel:       string(p.opts.Channel),
		Control:       summarizeControl(p.ctrl),
		CompareResult: *cmp,
	}, nil
}

// prepared holds everything a request resolves to before sampling.
type prepared struct {
	img   image.Image
	opts  imaging.SourceOptions
	props statistics.Property
	ctrl  statistics.Control
}

func (s *Server) prepare(req StatisticsRequest) (*prepared, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArguments)
	}

	props, err := s.properties(req.Properties)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controlFor(req)
	if err != nil {
		return nil, err
	}

	channelName := req.Channel
	if channelName == "" {
		channelName = s.cfg.Defaults.Channel
	}
	ch, err := imaging.ParseChannel(channelName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}

	img, err := s.cache.Load(req.Path)
	if err != nil {
		return nil, err
	}

	opts := imaging.SourceOptions{
		Channel:   ch,
		Gain:      req.Gain,
		ReadNoise: req.ReadNoise,
		Edge:      req.Edge,
		Bin:       req.Bin,
	}
	if req.MaskPath != "" {
		if opts.Mask, err = s.cache.Load(req.MaskPath); err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
	}
	if req.VariancePath != "" {
		if opts.Variance, err = s.cache.Load(req.VariancePath); err != nil {
			return nil, fmt.Errorf("variance: %w", err)
		}
	}

	return &prepared{img: img, opts: opts, props: props, ctrl: ctrl}, nil
}

// properties resolves requested statistic names, falling back to the
// configured defaults when none are given.
func (s *Server) properties(names []string) (statistics.Property, error) {
	if len(names) == 0 {
		return s.props, nil
	}
	return statistics.ParseProperties(names)
}

// controlFor applies the request's overrides to the configured Control.
func (s *Server) controlFor(req StatisticsRequest) (statistics.Control, error) {
	ctrl, err := statistics.ControlOptions{
		NumSigmaClip:      req.NumSigmaClip,
		NumIter:           req.NumIter,
		Weighted:          req.Weighted,
		NanSafe:           req.NanSafe,
		RequireGoodPixels: req.RequireGoodPixels,
		ClipFromMedian:    req.ClipFromMedian,
	}.Apply(s.control)
	if err != nil {
		return ctrl, err
	}
	if req.AndMask.Set {
		ctrl.SetAndMask(req.AndMask.Value)
	}
	if req.NoGoodPixelsMask.Set {
		ctrl.SetNoGoodPixelsMask(req.NoGoodPixelsMask.Value)
	}
	return ctrl, nil
}

// resolveRegion returns the region named by r or quadrant, or all of bounds
// when neither is given.
func resolveRegion(bounds image.Rectangle, r *imaging.Region, quadrant string) (imaging.Region, error) {
	switch {
	case r != nil && quadrant != "":
		return imaging.Region{}, fmt.Errorf("%w: give either a region or a quadrant, not both", errInvalidArguments)
	case r != nil:
		if err := r.Validate(bounds); err != nil {
			return imaging.Region{}, fmt.Errorf("%w: %w", errInvalidArguments, err)
		}
		return *r, nil
	case quadrant != "":
		q, err := imaging.QuadrantRegion(bounds, quadrant)
		if err != nil {
			return imaging.Region{}, fmt.Errorf("%w: %w", errInvalidArguments, err)
		}
		return q, nil
	}
	return imaging.FullRegion(bounds), nil
}
