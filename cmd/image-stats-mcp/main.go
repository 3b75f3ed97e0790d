package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-stats-mcp/internal/config"
	"github.com/ironsheep/image-stats-mcp/internal/metrics"
	"github.com/ironsheep/image-stats-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Without a subcommand the binary runs
// the MCP server on stdin/stdout.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "image-stats-mcp",
		Short: "MCP server and CLI for robust image statistics",
		Long: `image-stats-mcp computes robust statistics (clipped means, medians,
interquartile ranges, errors) over image pixels.

Run without arguments it serves the Model Context Protocol over stdin/stdout;
configure it in your MCP client (e.g., Claude Desktop). The stats, compare
and info subcommands run the same pipeline from the shell.

Configuration is read from --config or $IMAGE_STATS_CONFIG, then overridden
by IMAGE_STATS_* environment variables (IMAGE_STATS_LOG_LEVEL=debug enables
debug logging).`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")

	root.AddCommand(
		newStatsCmd(&configPath),
		newCompareCmd(&configPath),
		newInfoCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "image-stats-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Debug() {
		log.Printf("Image Stats MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		addr, err := metrics.Serve(ctx, cfg.Metrics.Addr, func(err error) {
			log.Printf("Metrics server error: %v", err)
		})
		if err != nil {
			return err
		}
		log.Printf("Serving metrics on http://%s/metrics", addrString(addr))
	}

	srv, err := server.New(cfg, Version)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Printf("Server error: %v", err)
		return err
	}
	return nil
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
