// Package accumulator merges partial chunk results into a single value.
//
// Workers fold partials into a goroutine-confined Local without any
// synchronization and publish it with Commit. Contention is therefore
// proportional to the number of Commit calls, not the number of chunks.
package accumulator

import "sync"

// Local is a worker's private running (sum, count).
type Local struct {
	Sum   float64
	Count int64
}

// Merge folds one partial result into the local state.
func (l Local) Merge(partial float64) Local {
	return Local{
		Sum:   l.Sum + partial,
		Count: l.Count + 1,
	}
}

// Result is the final state of an Accumulator.
type Result struct {
	Sum     float64
	Count   int64
	Commits int64
}

// Accumulator is the shared reduction target of one scheduler run.
// The zero value is ready to use.
type Accumulator struct {
	mu      sync.Mutex
	sum     float64
	count   int64
	commits int64
}

// Commit merges a worker's local state. The lock covers only the
// addition.
func (a *Accumulator) Commit(l Local) {
	a.mu.Lock()
	a.sum += l.Sum
	a.count += l.Count
	a.commits++
	a.mu.Unlock()
}

// Result returns a snapshot of the accumulated state.
func (a *Accumulator) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Result{
		Sum:     a.sum,
		Count:   a.count,
		Commits: a.commits,
	}
}
