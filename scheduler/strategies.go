package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/reducebench/accumulator"
	"github.com/weiihann/reducebench/partition"
)

// parallelFor runs a fixed pool of workers that claim indices from a
// shared cursor. Each chunk's result is committed on its own, which makes
// this the high-contention baseline.
func (s *Scheduler) parallelFor(
	ctx context.Context,
	n int,
	eval Evaluator,
	acc *accumulator.Accumulator,
) error {
	g, gctx := errgroup.WithContext(ctx)
	done := gctx.Done()

	var next atomic.Int64

	for range min(s.opts.Workers, n) {
		g.Go(func() error {
			for {
				if stopped(done) {
					return gctx.Err()
				}

				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}

				v, err := evaluate(eval, i)
				if err != nil {
					return err
				}

				acc.Commit(accumulator.Local{}.Merge(v))
			}
		})
	}

	return g.Wait()
}

// taskPerChunk starts every chunk up front with no concurrency bound and
// commits the collected results once all goroutines have joined.
func (s *Scheduler) taskPerChunk(
	ctx context.Context,
	n int,
	eval Evaluator,
	acc *accumulator.Accumulator,
) error {
	g, gctx := errgroup.WithContext(ctx)
	done := gctx.Done()

	results := make([]float64, n)

	for i := range n {
		g.Go(func() error {
			if stopped(done) {
				return gctx.Err()
			}

			v, err := evaluate(eval, i)
			if err != nil {
				return err
			}

			results[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, v := range results {
		acc.Commit(accumulator.Local{}.Merge(v))
	}

	return nil
}

type outcome struct {
	value float64
	err   error
}

// grouped splits [0, n) into at most Groups contiguous groups. Groups run
// concurrently; inside a group each chunk is handed to a fresh goroutine
// and awaited before the next one starts, so at most Groups evaluations
// are in flight.
func (s *Scheduler) grouped(
	ctx context.Context,
	n int,
	eval Evaluator,
	acc *accumulator.Accumulator,
) error {
	g, gctx := errgroup.WithContext(ctx)
	done := gctx.Done()

	groups := min(s.opts.Groups, n)
	size := (n + groups - 1) / groups

	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)

		g.Go(func() error {
			hop := make(chan outcome, 1)

			for i := lo; i < hi; i++ {
				if stopped(done) {
					return gctx.Err()
				}

				go func() {
					v, err := evaluate(eval, i)
					hop <- outcome{value: v, err: err}
				}()

				out := <-hop
				if out.err != nil {
					return out.err
				}

				acc.Commit(accumulator.Local{}.Merge(out.value))
			}

			return nil
		})
	}

	return g.Wait()
}

// rangeLocal lets workers draw variable-size ranges from a shared
// RangeSource. Each worker folds its partials into a private Local and
// commits exactly once, after the source is drained.
func (s *Scheduler) rangeLocal(
	ctx context.Context,
	n int,
	eval Evaluator,
	acc *accumulator.Accumulator,
) error {
	g, gctx := errgroup.WithContext(ctx)
	done := gctx.Done()

	workers := min(s.opts.Workers, n)
	src := partition.NewRangeSource(n, workers, s.opts.MinRange)

	for range workers {
		g.Go(func() error {
			var local accumulator.Local

			for {
				lo, hi, ok := src.Next()
				if !ok {
					break
				}

				for i := lo; i < hi; i++ {
					if stopped(done) {
						return gctx.Err()
					}

					v, err := evaluate(eval, i)
					if err != nil {
						return err
					}

					local = local.Merge(v)
				}
			}

			if local.Count > 0 {
				acc.Commit(local)
			}

			return nil
		})
	}

	return g.Wait()
}

// serial evaluates every chunk in index order on the calling goroutine.
func (s *Scheduler) serial(
	ctx context.Context,
	n int,
	eval Evaluator,
	acc *accumulator.Accumulator,
) error {
	done := ctx.Done()

	var local accumulator.Local

	for i := range n {
		if stopped(done) {
			return ctx.Err()
		}

		v, err := evaluate(eval, i)
		if err != nil {
			return err
		}

		local = local.Merge(v)
	}

	acc.Commit(local)

	return nil
}
