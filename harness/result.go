// Package harness runs the profile runner over several scheduler
// strategies and aggregates the per-strategy statistics.
package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/weiihann/reducebench/profile"
)

// Sample is one timed pass as stored in a Result.
type Sample struct {
	ElapsedNs int64   `json:"elapsed_ns"`
	Value     float64 `json:"value"`
}

// Result holds the aggregate statistics of one strategy. AllocBytes is
// the mean heap allocation per pass.
type Result struct {
	Strategy        string   `json:"strategy"`
	Chunks          int      `json:"chunks"`
	AvgElapsedNs    int64    `json:"avg_elapsed_ns"`
	LastValue       float64  `json:"last_value"`
	PerChunkNs      float64  `json:"per_chunk_ns"`
	ChunksPerSecond float64  `json:"chunks_per_second"`
	Commits         int64    `json:"commits"`
	AllocBytes      uint64   `json:"alloc_bytes"`
	Samples         []Sample `json:"samples"`
}

// AvgElapsed returns the mean pass duration.
func (r Result) AvgElapsed() time.Duration {
	return time.Duration(r.AvgElapsedNs)
}

// Run is the full output of one harness invocation. Reference is the
// single-threaded reduction of the same plan.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Integrand string    `json:"integrand"`
	Target    float64   `json:"target"`
	Reference float64   `json:"reference"`
	Samples   int       `json:"samples"`
	ChunkSize int       `json:"chunk_size"`
	Chunks    int       `json:"chunks"`
	Repeat    int       `json:"repeat"`
	Results   []Result  `json:"results"`
}

// Summarize derives the aggregate statistics of a strategy from its
// reports. Throughput is chunks divided by the mean pass duration.
func Summarize(strategy string, chunks int, reports []profile.Report) Result {
	res := Result{
		Strategy: strategy,
		Chunks:   chunks,
		Samples:  make([]Sample, 0, len(reports)),
	}

	if len(reports) == 0 {
		return res
	}

	var (
		total  time.Duration
		allocs uint64
	)

	for _, rep := range reports {
		total += rep.Elapsed
		allocs += rep.AllocBytes
		res.Samples = append(res.Samples, Sample{
			ElapsedNs: rep.Elapsed.Nanoseconds(),
			Value:     rep.Value,
		})
	}

	avg := total / time.Duration(len(reports))
	last := reports[len(reports)-1]

	res.AvgElapsedNs = avg.Nanoseconds()
	res.LastValue = last.Value
	res.Commits = last.Commits
	res.AllocBytes = allocs / uint64(len(reports))

	if chunks > 0 {
		res.PerChunkNs = float64(avg.Nanoseconds()) / float64(chunks)
	}

	if avg > 0 {
		res.ChunksPerSecond = float64(chunks) / avg.Seconds()
	}

	return res
}

// LoadRun decodes a Run previously written as JSON.
func LoadRun(r io.Reader) (*Run, error) {
	var run Run
	if err := json.NewDecoder(r).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if len(run.Results) == 0 {
		return nil, fmt.Errorf("run %q has no results", run.ID)
	}

	for i := range run.Results {
		if run.Results[i].Chunks == 0 {
			run.Results[i].Chunks = run.Chunks
		}
	}

	return &run, nil
}
