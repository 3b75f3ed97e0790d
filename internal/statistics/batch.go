package statistics

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ComputeBatch runs Compute over each source in parallel, at most GOMAXPROCS
// at a time, and returns the results in input order.
//
// The first failing source cancels the remaining work and its error is
// returned, annotated with the source index. Cancelling ctx stops sources
// that have not started yet; a Compute call already running is not
// interrupted.
func ComputeBatch(ctx context.Context, sources []SampleSource, props Property, ctrl Control) ([]*Result, error) {
	results := make([]*Result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Compute(src, props, ctrl)
			if err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
