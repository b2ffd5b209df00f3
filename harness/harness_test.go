package harness

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/weiihann/reducebench/metrics"
	"github.com/weiihann/reducebench/partition"
	"github.com/weiihann/reducebench/profile"
	"github.com/weiihann/reducebench/scheduler"
	"github.com/weiihann/reducebench/workload"
)

func testConfig() Config {
	return Config{
		Samples:    1 << 18,
		Chunks:     1024,
		Repeat:     3,
		Integrand:  "arctan",
		Strategies: scheduler.All(),
	}
}

func TestRunAllStrategies(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(nil, m)

	run, err := h.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.ID == "" {
		t.Error("run ID is empty")
	}
	if math.Abs(run.Reference-math.Pi) > 1e-9 {
		t.Errorf("reference = %v, want ~pi", run.Reference)
	}
	if run.Chunks != 1024 || run.ChunkSize != 256 {
		t.Errorf("plan = %d chunks of %d, want 1024 of 256", run.Chunks, run.ChunkSize)
	}
	if len(run.Results) != len(scheduler.All()) {
		t.Fatalf("results = %d, want %d", len(run.Results), len(scheduler.All()))
	}

	for i, res := range run.Results {
		if want := scheduler.All()[i].String(); res.Strategy != want {
			t.Errorf("result %d strategy = %q, want %q", i, res.Strategy, want)
		}
		if len(res.Samples) != 3 {
			t.Errorf("%s: samples = %d, want 3", res.Strategy, len(res.Samples))
		}
		if math.Abs(res.LastValue-math.Pi) > 1e-9 {
			t.Errorf("%s: value = %v, want ~pi", res.Strategy, res.LastValue)
		}
		if math.Abs(res.LastValue-run.Reference) > 1e-9*run.Reference {
			t.Errorf("%s: value = %v, serial reference %v", res.Strategy, res.LastValue, run.Reference)
		}
	}

	passes := testutil.ToFloat64(m.PassesTotal.WithLabelValues("task-per-chunk", "success"))
	if passes != 3 {
		t.Errorf("task-per-chunk passes = %f, want 3", passes)
	}
}

func TestRunInjectedFailure(t *testing.T) {
	cfg := testConfig()
	cfg.InjectFailure = true
	cfg.FailChunk = 500

	run, err := New(nil, nil).Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error from injected failure")
	}
	if run != nil {
		t.Error("expected no run on failure")
	}
	if !strings.Contains(err.Error(), "parallel-for") {
		t.Errorf("error %q does not name the failing strategy", err)
	}
	if !errors.Is(err, workload.ErrInjected) || !errors.Is(err, scheduler.ErrChunkEvaluation) {
		t.Errorf("error chain = %v, want injected chunk failure", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero samples", func(c *Config) { c.Samples = 0 }},
		{"zero chunks", func(c *Config) { c.Chunks = 0 }},
		{"negative chunk size", func(c *Config) { c.ChunkSize = -1; c.Chunks = 0 }},
		{"zero repeat", func(c *Config) { c.Repeat = 0 }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"negative workers", func(c *Config) { c.Options.Workers = -2 }},
		{"fail chunk past plan", func(c *Config) { c.InjectFailure = true; c.FailChunk = 1024 }},
		{"negative fail chunk", func(c *Config) { c.InjectFailure = true; c.FailChunk = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := New(nil, nil).Run(context.Background(), cfg)
			if !errors.Is(err, partition.ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestRunUnknownIntegrand(t *testing.T) {
	cfg := testConfig()
	cfg.Integrand = "sine"

	_, err := New(nil, nil).Run(context.Background(), cfg)
	if !errors.Is(err, workload.ErrUnknownIntegrand) {
		t.Errorf("err = %v, want ErrUnknownIntegrand", err)
	}
}

func TestSummarize(t *testing.T) {
	reports := []profile.Report{
		{Elapsed: 10 * time.Millisecond, Value: 3.0, Commits: 100},
		{Elapsed: 30 * time.Millisecond, Value: 3.1, Commits: 8},
	}

	res := Summarize("range-local", 1000, reports)

	if res.AvgElapsed() != 20*time.Millisecond {
		t.Errorf("avg = %s, want 20ms", res.AvgElapsed())
	}
	if res.LastValue != 3.1 {
		t.Errorf("last value = %v, want 3.1", res.LastValue)
	}
	if res.Commits != 8 {
		t.Errorf("commits = %d, want 8", res.Commits)
	}
	if res.PerChunkNs != 20_000 {
		t.Errorf("per chunk = %v ns, want 20000", res.PerChunkNs)
	}
	if math.Abs(res.ChunksPerSecond-50_000) > 1e-6 {
		t.Errorf("chunks/s = %v, want 50000", res.ChunksPerSecond)
	}
	if len(res.Samples) != 2 || res.Samples[0].ElapsedNs != 10_000_000 {
		t.Errorf("samples = %+v", res.Samples)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	res := Summarize("serial", 10, nil)
	if res.AvgElapsedNs != 0 || res.ChunksPerSecond != 0 {
		t.Errorf("empty summary = %+v", res)
	}
}

func TestLoadRun(t *testing.T) {
	input := `{
		"id": "abc",
		"integrand": "arctan",
		"chunks": 64,
		"results": [
			{"strategy": "serial", "avg_elapsed_ns": 1500, "last_value": 3.14}
		]
	}`

	run, err := LoadRun(bytes.NewReader([]byte(input)))
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if run.ID != "abc" {
		t.Errorf("id = %q, want abc", run.ID)
	}
	if run.Results[0].Chunks != 64 {
		t.Errorf("result chunks = %d, want 64 (filled from run)", run.Results[0].Chunks)
	}
	if run.Results[0].AvgElapsed() != 1500*time.Nanosecond {
		t.Errorf("avg = %s, want 1.5µs", run.Results[0].AvgElapsed())
	}
}

func TestLoadRunInvalid(t *testing.T) {
	if _, err := LoadRun(strings.NewReader("not json at all")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := LoadRun(strings.NewReader(`{"id": "x"}`)); err == nil {
		t.Error("expected error for run without results")
	}
}
