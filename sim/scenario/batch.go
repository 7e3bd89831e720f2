package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/cachesim/sim"
)

// newSimulator builds each scenario of a batch; tests swap it to inject failures.
var newSimulator = NewSimulator

// RunBatch runs configs concurrently, at most parallelism at a time (0 means
// unbounded). Results are returned in configuration order.
//
// A scenario that fails on its own (bad configuration, a ValuationError) is
// logged and reported through its Result.Err; the others keep running. A
// CapacityInvariantViolation cancels the whole batch and is returned.
func RunBatch(ctx context.Context, configs []Config, parallelism int, opts Options) ([]Result, error) {
	results := make([]Result, len(configs))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range configs {
		i := i
		cfg := configs[i]
		g.Go(func() error {
			log := logrus.WithField("scenario", cfg.Name)
			s, err := newSimulator(cfg, opts)
			if err != nil {
				log.Errorf("not started: %v", err)
				results[i] = Result{Name: cfg.Name, Err: err}
				return nil
			}
			res, err := s.Run(ctx)
			if errors.Is(err, sim.ErrCapacityInvariant) {
				return fmt.Errorf("scenario %s: %w", cfg.Name, err)
			}
			if err != nil {
				log.Warnf("aborted: %v", err)
				res.Err = err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
