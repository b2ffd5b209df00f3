// Package profile times repeated scheduler passes over a chunk plan.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/weiihann/reducebench/metrics"
	"github.com/weiihann/reducebench/partition"
	"github.com/weiihann/reducebench/scheduler"
	"github.com/weiihann/reducebench/workload"
)

// ErrIncompleteRun is returned when a pass merged a different number of
// partials than the plan has chunks.
var ErrIncompleteRun = errors.New("incomplete run")

// Report is the outcome of one timed pass.
type Report struct {
	Elapsed time.Duration
	Value   float64
	Commits int64

	// AllocBytes is the heap allocated during the pass, read from
	// runtime.MemStats outside the timed region.
	AllocBytes uint64
}

// Runner times passes of one scheduler over a plan.
type Runner struct {
	Scheduler *scheduler.Scheduler
	Plan      *partition.Plan
	Item      workload.Item

	// Warmup is the number of untimed passes run before the reported ones.
	Warmup int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Run performs Warmup untimed passes followed by repeat timed passes and
// returns one Report per timed pass in execution order. The first failing
// pass aborts the run; no reports are returned in that case.
func (r *Runner) Run(ctx context.Context, repeat int) ([]Report, error) {
	if repeat <= 0 {
		return nil, fmt.Errorf(
			"%w: repeat count must be positive, got %d",
			partition.ErrInvalidConfiguration, repeat,
		)
	}

	if r.Scheduler == nil || r.Plan == nil || r.Item == nil {
		return nil, fmt.Errorf(
			"%w: runner needs a scheduler, plan, and item",
			partition.ErrInvalidConfiguration,
		)
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	strategy := r.Scheduler.Strategy().String()
	logger = logger.With(slog.String("strategy", strategy))

	plan := r.Plan
	item := r.Item
	eval := func(i int) (float64, error) {
		return item(plan.Chunk(i))
	}

	for i := range r.Warmup {
		if _, err := r.pass(ctx, eval); err != nil {
			r.Metrics.ObserveFailure(strategy)
			return nil, fmt.Errorf("warmup pass %d: %w", i, err)
		}
	}

	reports := make([]Report, 0, repeat)

	for i := range repeat {
		rep, err := r.pass(ctx, eval)
		if err != nil {
			r.Metrics.ObserveFailure(strategy)
			return nil, fmt.Errorf("pass %d: %w", i, err)
		}

		r.Metrics.ObservePass(strategy, rep.Elapsed,
			int64(plan.Count()), rep.Commits)

		logger.DebugContext(ctx, "pass finished",
			slog.Int("pass", i),
			slog.Duration("elapsed", rep.Elapsed),
			slog.Float64("value", rep.Value),
			slog.Int64("commits", rep.Commits),
		)

		reports = append(reports, rep)
	}

	return reports, nil
}

func (r *Runner) pass(
	ctx context.Context,
	eval scheduler.Evaluator,
) (Report, error) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	start := time.Now()

	res, err := r.Scheduler.Run(ctx, r.Plan.Count(), eval)
	if err != nil {
		return Report{}, err
	}

	elapsed := time.Since(start)

	runtime.ReadMemStats(&after)

	if res.Count != int64(r.Plan.Count()) {
		return Report{}, fmt.Errorf("%w: merged %d of %d chunks",
			ErrIncompleteRun, res.Count, r.Plan.Count())
	}

	return Report{
		Elapsed:    elapsed,
		Value:      res.Sum,
		Commits:    res.Commits,
		AllocBytes: after.TotalAlloc - before.TotalAlloc,
	}, nil
}
