package workload

import (
	"errors"
	"sort"
	"sync"

	"github.com/weiihann/reducebench/partition"
)

// ErrInjected is the default error returned by FailAt.
var ErrInjected = errors.New("injected chunk failure")

// Recorder wraps an Item and records the index of every invoked chunk.
type Recorder struct {
	item Item

	mu     sync.Mutex
	counts map[int]int
}

// NewRecorder creates a Recorder around item.
func NewRecorder(item Item) *Recorder {
	return &Recorder{
		item:   item,
		counts: make(map[int]int),
	}
}

// Item returns the recording work item.
func (r *Recorder) Item() Item {
	return func(c partition.Chunk) (float64, error) {
		r.mu.Lock()
		r.counts[c.Index]++
		r.mu.Unlock()

		return r.item(c)
	}
}

// Indices returns the distinct invoked indices in ascending order.
func (r *Recorder) Indices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, 0, len(r.counts))
	for idx := range r.counts {
		out = append(out, idx)
	}

	sort.Ints(out)

	return out
}

// Duplicates returns the indices invoked more than once.
func (r *Recorder) Duplicates() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []int
	for idx, n := range r.counts {
		if n > 1 {
			out = append(out, idx)
		}
	}

	sort.Ints(out)

	return out
}

// FailAt wraps item so that evaluating chunk index returns err. A nil err
// is replaced with ErrInjected.
func FailAt(item Item, index int, err error) Item {
	if err == nil {
		err = ErrInjected
	}

	return func(c partition.Chunk) (float64, error) {
		if c.Index == index {
			return 0, err
		}

		return item(c)
	}
}
