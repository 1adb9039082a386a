// Package runner fans a list of URLs out over a bounded worker pool.
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
)

// DefaultWorkers is used when Config.Workers is not positive.
const DefaultWorkers = 4

// Config holds settings for the runner.
type Config struct {
	Workers   int `mapstructure:"workers"`
	RateLimit int `mapstructure:"rate_limit"` // analyses per second, 0 = unlimited
}

// Analyzer is the single-URL operation the runner parallelises.
type Analyzer interface {
	Analyze(ctx context.Context, url string) model.Report
}

// Runner coordinates concurrent analyses.
type Runner struct {
	cfg      Config
	analyzer Analyzer
	limiter  *rate.Limiter
	log      logger.Logger
}

// New creates a new Runner.
func New(cfg Config, a Analyzer, log logger.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &Runner{cfg: cfg, analyzer: a, log: log}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Run analyses targets and returns the reports in input order. When ctx is
// cancelled the reports finished so far are returned with ctx's error.
func (r *Runner) Run(ctx context.Context, targets []string) ([]model.Report, error) {
	out := make([]model.Report, len(targets))
	done := make([]bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, t := range targets {
		if gctx.Err() != nil {
			break
		}
		i, t := i, t
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			// each slot is written by exactly one goroutine
			out[i] = r.analyzer.Analyze(gctx, t)
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		return out, nil
	}
	r.log.Warn("batch interrupted", logger.Error(err))
	finished := out[:0:0]
	for i, ok := range done {
		if ok {
			finished = append(finished, out[i])
		}
	}
	return finished, err
}
