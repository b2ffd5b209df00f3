package partition

import "sync/atomic"

// RangeSource hands out variable-size contiguous ranges of [0, total)
// to concurrent workers. Range sizes follow guided scheduling: each grant
// is max(minRange, remaining/(2*workers)), so early grants are large and
// the tail is split finely for load balance.
type RangeSource struct {
	total    int64
	workers  int64
	minRange int64
	next     atomic.Int64
}

// NewRangeSource creates a source over [0, total). Non-positive workers
// and minRange are treated as 1.
func NewRangeSource(total, workers, minRange int) *RangeSource {
	return &RangeSource{
		total:    int64(max(total, 0)),
		workers:  int64(max(workers, 1)),
		minRange: int64(max(minRange, 1)),
	}
}

// Next claims the next range. ok is false once the domain is exhausted.
func (s *RangeSource) Next() (lo, hi int, ok bool) {
	for {
		cur := s.next.Load()
		if cur >= s.total {
			return 0, 0, false
		}

		grant := max((s.total-cur)/(2*s.workers), s.minRange)
		end := min(cur+grant, s.total)

		if s.next.CompareAndSwap(cur, end) {
			return int(cur), int(end), true
		}
	}
}
