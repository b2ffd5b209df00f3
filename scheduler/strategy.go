package scheduler

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy selects the concurrency policy of a run. The set is closed.
type Strategy int

const (
	// ParallelFor dispatches chunk indices over a fixed worker pool and
	// commits once per chunk.
	ParallelFor Strategy = iota + 1

	// TaskPerChunk starts one goroutine per chunk and collects the
	// results after all of them finish.
	TaskPerChunk

	// Grouped splits indices into a bounded number of groups that run
	// concurrently; chunks within a group run one after another, each
	// on its own goroutine.
	Grouped

	// RangeLocal hands variable-size index ranges to workers, which
	// accumulate locally and commit once.
	RangeLocal

	// Serial evaluates every chunk on the calling goroutine. It is the
	// single-threaded baseline.
	Serial
)

var strategyNames = map[Strategy]string{
	ParallelFor:  "parallel-for",
	TaskPerChunk: "task-per-chunk",
	Grouped:      "grouped",
	RangeLocal:   "range-local",
	Serial:       "serial",
}

// String returns the strategy's flag name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Strategy(%d)", int(s))
}

// All returns the concurrent strategies in report order.
func All() []Strategy {
	return []Strategy{ParallelFor, TaskPerChunk, Grouped, RangeLocal}
}

// Known returns every strategy, including the serial baseline.
func Known() []Strategy {
	return append(All(), Serial)
}

// ParseStrategy maps a flag name back to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Known() {
		if s.String() == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
}
