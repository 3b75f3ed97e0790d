// Package metrics exposes Prometheus metrics for statistics computations
// and MCP tool calls.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// computationsTotal counts statistics computations by outcome:
	// "ok", "no_good_pixels" or "error".
	computationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_stats_computations_total",
		Help: "Statistics computations by outcome",
	}, []string{"outcome"})

	computationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_stats_computation_duration_seconds",
		Help:    "Duration of one statistics computation, including pixel extraction",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	})

	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_stats_samples_total",
		Help: "Samples seen by statistics computations, by stage",
	}, []string{"stage"})

	clipIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_stats_clip_iterations",
		Help:    "Sigma-clipping passes per computation",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_stats_tool_calls_total",
		Help: "MCP tool calls by tool and outcome",
	}, []string{"tool", "outcome"})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "image_stats_cache_entries",
		Help: "Decoded images held in the image cache",
	})
)

// Computation describes one finished statistics computation.
type Computation struct {
	Total      int // samples offered by the source
	Accepted   int // samples that passed the mask and NaN filter
	Clipped    int // samples kept after clipping
	Iterations int // clipping passes; 0 when no clipped statistic was asked for
	NoGood     bool
	Err        error
	Duration   time.Duration
}

// ObserveComputation records c.
func ObserveComputation(c Computation) {
	outcome := "ok"
	switch {
	case c.Err != nil:
		outcome = "error"
	case c.NoGood:
		outcome = "no_good_pixels"
	}
	computationsTotal.WithLabelValues(outcome).Inc()
	computationDuration.Observe(c.Duration.Seconds())
	if c.Err != nil {
		return
	}

	samplesTotal.WithLabelValues("total").Add(float64(c.Total))
	samplesTotal.WithLabelValues("accepted").Add(float64(c.Accepted))
	samplesTotal.WithLabelValues("clipped").Add(float64(c.Clipped))
	if c.Iterations > 0 {
		clipIterations.Observe(float64(c.Iterations))
	}
}

// ObserveToolCall records one MCP tool call.
func ObserveToolCall(tool string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// SetCacheEntries records the current size of the image cache.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve serves /metrics on addr until ctx is cancelled. It returns once the
// listener is open; serving continues in the background and errors after
// that point are passed to onErr.
func Serve(ctx context.Context, addr string, onErr func(error)) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && onErr != nil {
			onErr(err)
		}
	}()

	return ln.Addr(), nil
}
