package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-stats-mcp/internal/config"
	"github.com/ironsheep/image-stats-mcp/internal/imaging"
	"github.com/ironsheep/image-stats-mcp/internal/server"
	"github.com/ironsheep/image-stats-mcp/internal/statistics"
)

// statsFlags holds the options shared by stats and compare.
type statsFlags struct {
	properties   []string
	channel      string
	clip         float64
	iter         int
	andMask      string
	noGoodMask   string
	weighted     bool
	nanSafe      bool
	requireGood  bool
	fromMedian   bool
	maskPath     string
	variancePath string
	gain         float64
	readNoise    float64
	edge         int
	bin          int
	format       string
}

func (f *statsFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&f.properties, "prop", "p", nil, "statistic to compute, repeatable (e.g. -p MEANCLIP -p ERRORS)")
	fs.StringVar(&f.channel, "channel", "", "pixel channel: "+strings.Join(imaging.ChannelNames(), ", "))
	fs.Float64Var(&f.clip, "clip", statistics.DefaultNumSigmaClip, "clipping threshold in standard deviations")
	fs.IntVar(&f.iter, "iter", statistics.DefaultNumIter, "maximum clipping passes")
	fs.BoolVar(&f.fromMedian, "clip-from-median", false, "centre the first clipping pass on the median and IQR")
	fs.StringVar(&f.andMask, "and-mask", "", "mask planes to exclude, e.g. BAD|SAT")
	fs.StringVar(&f.noGoodMask, "no-good-mask", "", "flags reported when no pixel survives")
	fs.BoolVar(&f.weighted, "weighted", false, "weight pixels by inverse variance")
	fs.BoolVar(&f.nanSafe, "nan-safe", true, "drop NaN and infinite values")
	fs.BoolVar(&f.requireGood, "require-good", false, "fail when every pixel is excluded")
	fs.StringVar(&f.maskPath, "mask", "", "image whose non-zero pixels are flagged BAD")
	fs.StringVar(&f.variancePath, "variance", "", "image whose luminance is the per-pixel variance")
	fs.Float64Var(&f.gain, "gain", 0, "detector gain for the variance model")
	fs.Float64Var(&f.readNoise, "read-noise", 0, "read noise for the variance model")
	fs.IntVar(&f.edge, "edge", 0, "flag pixels this close to the border as EDGE")
	fs.IntVar(&f.bin, "bin", 0, "average bin x bin blocks before measuring")
	fs.StringVar(&f.format, "format", "", "output format: yaml or json")
}

// request converts the flags into a StatisticsRequest. Flags left at their
// defaults keep the configured values.
func (f *statsFlags) request(fs *pflag.FlagSet, path string) (server.StatisticsRequest, error) {
	req := server.StatisticsRequest{
		Path:         path,
		Properties:   f.properties,
		Channel:      f.channel,
		MaskPath:     f.maskPath,
		VariancePath: f.variancePath,
		Gain:         f.gain,
		ReadNoise:    f.readNoise,
		Edge:         f.edge,
		Bin:          f.bin,
	}
	if fs.Changed("clip") {
		req.NumSigmaClip = &f.clip
	}
	if fs.Changed("iter") {
		req.NumIter = &f.iter
	}
	if fs.Changed("weighted") {
		req.Weighted = &f.weighted
	}
	if fs.Changed("nan-safe") {
		req.NanSafe = &f.nanSafe
	}
	if fs.Changed("require-good") {
		req.RequireGoodPixels = &f.requireGood
	}
	if fs.Changed("clip-from-median") {
		req.ClipFromMedian = &f.fromMedian
	}

	var err error
	if fs.Changed("and-mask") {
		if req.AndMask, err = parseMaskFlag(f.andMask); err != nil {
			return req, fmt.Errorf("--and-mask: %w", err)
		}
	}
	if fs.Changed("no-good-mask") {
		if req.NoGoodPixelsMask, err = parseMaskFlag(f.noGoodMask); err != nil {
			return req, fmt.Errorf("--no-good-mask: %w", err)
		}
	}
	return req, nil
}

func parseMaskFlag(s string) (server.MaskSpec, error) {
	var names []string
	if s != "" {
		names = strings.Split(s, "|")
	}
	m, err := statistics.ParseMask(names)
	if err != nil {
		return server.MaskSpec{}, err
	}
	return server.MaskSpec{Set: true, Value: m}, nil
}

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		flags    statsFlags
		region   string
		quadrant string
	)

	cmd := &cobra.Command{
		Use:   "stats <image>",
		Short: "Compute statistics over an image or a region of it",
		Example: `  image-stats-mcp stats frame.png
  image-stats-mcp stats frame.png -p MEANCLIP -p STDEVCLIP -p ERRORS --clip 2.5 --iter 5
  image-stats-mcp stats frame.png --region 0,0,100,100 --and-mask "SAT|NO_DATA" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, srv, err := loadServer(*configPath)
			if err != nil {
				return err
			}

			req, err := flags.request(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			if region != "" {
				r, err := imaging.ParseRegion(region)
				if err != nil {
					return err
				}
				req.Region = &r
			}
			req.Quadrant = quadrant

			res, err := srv.Statistics(commandContext(cmd), req)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat(flags.format, cfg), res)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&region, "region", "", "region as x1,y1,x2,y2 (x2 and y2 exclusive)")
	cmd.Flags().StringVar(&quadrant, "quadrant", "", "named region: "+strings.Join(imaging.QuadrantNames, ", "))
	return cmd
}

func newCompareCmd(configPath *string) *cobra.Command {
	var (
		flags                statsFlags
		region1, region2     string
		quadrant1, quadrant2 string
	)

	cmd := &cobra.Command{
		Use:   "compare <image>",
		Short: "Compare the means of two regions of an image",
		Example: `  image-stats-mcp compare flat.png --quadrant1 left-half --quadrant2 right-half
  image-stats-mcp compare frame.png --region1 0,0,50,50 --region2 50,50,100,100 -p MEANCLIP`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, srv, err := loadServer(*configPath)
			if err != nil {
				return err
			}

			base, err := flags.request(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			req := server.CompareRequest{StatisticsRequest: base, Quadrant1: quadrant1, Quadrant2: quadrant2}
			if req.Region1, err = optionalRegion(region1); err != nil {
				return fmt.Errorf("--region1: %w", err)
			}
			if req.Region2, err = optionalRegion(region2); err != nil {
				return fmt.Errorf("--region2: %w", err)
			}
			if (req.Region1 == nil && quadrant1 == "") || (req.Region2 == nil && quadrant2 == "") {
				return fmt.Errorf("both regions are required (--region1/--quadrant1 and --region2/--quadrant2)")
			}

			res, err := srv.Compare(commandContext(cmd), req)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat(flags.format, cfg), res)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&region1, "region1", "", "first region as x1,y1,x2,y2")
	cmd.Flags().StringVar(&region2, "region2", "", "second region as x1,y1,x2,y2")
	cmd.Flags().StringVar(&quadrant1, "quadrant1", "", "named first region")
	cmd.Flags().StringVar(&quadrant2, "quadrant2", "", "named second region")
	return cmd
}

func newInfoCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Print image dimensions, format and channels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, srv, err := loadServer(*configPath)
			if err != nil {
				return err
			}
			info, err := srv.Info(args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat(format, cfg), info)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: yaml or json")
	return cmd
}

func loadServer(configPath string) (config.Config, *server.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	srv, err := server.New(cfg, Version)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, srv, nil
}

func optionalRegion(s string) (*imaging.Region, error) {
	if s == "" {
		return nil, nil
	}
	r, err := imaging.ParseRegion(s)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func outputFormat(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Defaults.Format
}

// writeOutput encodes v as YAML or indented JSON.
func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (valid: yaml, json)", format)
	}
}
