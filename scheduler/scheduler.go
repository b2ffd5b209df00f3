// Package scheduler executes every chunk of a run under one concurrency
// strategy and reduces the partial results through an Accumulator.
//
// Every strategy evaluates each index in [0, chunkCount) exactly once on
// a successful run and returns only after all of its goroutines have
// exited. The first evaluation error cancels the run; the partial sum is
// discarded and the error is returned as a *ChunkError.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/weiihann/reducebench/accumulator"
	"github.com/weiihann/reducebench/partition"
)

// DefaultGroups is the group bound of the Grouped strategy.
const DefaultGroups = 16

// ErrChunkEvaluation matches every *ChunkError via errors.Is.
var ErrChunkEvaluation = errors.New("chunk evaluation failed")

// Evaluator computes the partial result of one chunk index.
type Evaluator func(index int) (float64, error)

// ChunkError reports the chunk whose evaluation aborted a run.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("evaluate chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrChunkEvaluation.
func (e *ChunkError) Is(target error) bool {
	return target == ErrChunkEvaluation
}

// Options tunes the worker counts of the strategies. Zero values select
// the defaults.
type Options struct {
	// Workers is the pool size of ParallelFor and RangeLocal.
	// Default: runtime.GOMAXPROCS(0).
	Workers int `json:"workers" yaml:"workers"`

	// Groups bounds the in-flight chunks of Grouped. Default: 16.
	Groups int `json:"groups" yaml:"groups"`

	// MinRange is the smallest range RangeLocal hands out. Default: 1.
	MinRange int `json:"min_range" yaml:"min_range"`
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers < 0 || o.Groups < 0 || o.MinRange < 0 {
		return o, fmt.Errorf(
			"%w: negative scheduler option (workers=%d groups=%d min_range=%d)",
			partition.ErrInvalidConfiguration, o.Workers, o.Groups, o.MinRange,
		)
	}

	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}

	if o.Groups == 0 {
		o.Groups = DefaultGroups
	}

	if o.MinRange == 0 {
		o.MinRange = 1
	}

	return o, nil
}

// Scheduler runs chunk evaluations under a single strategy.
type Scheduler struct {
	strategy Strategy
	opts     Options
}

// New creates a Scheduler for strategy.
func New(strategy Strategy, opts Options) (*Scheduler, error) {
	if _, ok := strategyNames[strategy]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Scheduler{strategy: strategy, opts: opts}, nil
}

// Strategy returns the scheduler's strategy.
func (s *Scheduler) Strategy() Strategy { return s.strategy }

// Options returns the resolved options.
func (s *Scheduler) Options() Options { return s.opts }

// Run evaluates chunks [0, chunkCount) and returns the reduced result.
func (s *Scheduler) Run(
	ctx context.Context,
	chunkCount int,
	eval Evaluator,
) (accumulator.Result, error) {
	if chunkCount <= 0 {
		return accumulator.Result{}, fmt.Errorf(
			"%w: chunk count must be positive, got %d",
			partition.ErrInvalidConfiguration, chunkCount,
		)
	}

	if eval == nil {
		return accumulator.Result{}, fmt.Errorf(
			"%w: nil evaluator", partition.ErrInvalidConfiguration,
		)
	}

	var (
		acc accumulator.Accumulator
		err error
	)

	switch s.strategy {
	case ParallelFor:
		err = s.parallelFor(ctx, chunkCount, eval, &acc)
	case TaskPerChunk:
		err = s.taskPerChunk(ctx, chunkCount, eval, &acc)
	case Grouped:
		err = s.grouped(ctx, chunkCount, eval, &acc)
	case RangeLocal:
		err = s.rangeLocal(ctx, chunkCount, eval, &acc)
	case Serial:
		err = s.serial(ctx, chunkCount, eval, &acc)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownStrategy, s.strategy)
	}

	if err != nil {
		return accumulator.Result{}, err
	}

	return acc.Result(), nil
}

// evaluate calls eval and converts errors and panics into a *ChunkError.
func evaluate(eval Evaluator, index int) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ChunkError{Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	v, err = eval(index)
	if err != nil {
		return 0, &ChunkError{Index: index, Err: err}
	}

	return v, nil
}

// stopped polls done without blocking.
func stopped(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
