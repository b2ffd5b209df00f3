package accumulator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalMerge(t *testing.T) {
	var l Local
	for _, v := range []float64{1, 2.5, -0.5} {
		l = l.Merge(v)
	}

	assert.Equal(t, Local{Sum: 3, Count: 3}, l)
}

func TestCommitConcurrent(t *testing.T) {
	var acc Accumulator

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var l Local
			for range perWorker {
				l = l.Merge(1)
			}
			acc.Commit(l)
		}()
	}

	wg.Wait()

	assert.Equal(t, Result{
		Sum:     workers * perWorker,
		Count:   workers * perWorker,
		Commits: workers,
	}, acc.Result())
}

func TestCommitPerChunk(t *testing.T) {
	var acc Accumulator

	for range 10 {
		acc.Commit(Local{}.Merge(0.5))
	}

	res := acc.Result()
	assert.Equal(t, 5.0, res.Sum)
	assert.Equal(t, int64(10), res.Count)
	assert.Equal(t, int64(10), res.Commits)
}
