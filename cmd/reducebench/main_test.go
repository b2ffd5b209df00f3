package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weiihann/reducebench/harness"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	root := newRootCmd(logger, new(slog.LevelVar), &out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

var smallRun = []string{
	"run", "--samples", "65536", "--chunks", "256", "--repeat", "2", "--warmup", "0",
}

func TestRunTable(t *testing.T) {
	out, err := execute(t, smallRun...)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, want := range []string{"all agree", "parallel-for", "task-per-chunk", "grouped", "range-local"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunJSONAndBaseline(t *testing.T) {
	args := append(append([]string{}, smallRun...), "--json", "--strategies", "serial,range-local")

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("run --json failed: %v", err)
	}

	var run harness.Run
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if run.Chunks != 256 {
		t.Errorf("chunks = %d, want 256", run.Chunks)
	}
	if len(run.Results) != 2 || run.Results[0].Strategy != "serial" {
		t.Fatalf("results = %+v, want serial then range-local", run.Results)
	}

	path := filepath.Join(t.TempDir(), "baseline.json")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatalf("write baseline: %v", err)
	}

	args = append(append([]string{}, smallRun...), "--strategies", "serial", "--baseline", path)

	out, err = execute(t, args...)
	if err != nil {
		t.Fatalf("run --baseline failed: %v", err)
	}
	if !strings.Contains(out, "Compared to "+run.ID) {
		t.Errorf("output missing comparison:\n%s", out)
	}
}

func TestRunFailChunk(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "bench.prom")
	args := append(append([]string{}, smallRun...),
		"--fail-chunk", "3", "--metrics-file", metricsPath)

	_, err := execute(t, args...)
	if err == nil {
		t.Fatal("expected failure from injected chunk error")
	}
	if !strings.Contains(err.Error(), "chunk 3") {
		t.Errorf("error %q does not name chunk 3", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), `status="error"`) {
		t.Errorf("metrics missing failed pass:\n%s", data)
	}
}

func TestRunFailChunkOutOfRange(t *testing.T) {
	args := append(append([]string{}, smallRun...), "--fail-chunk", "10000000")

	_, err := execute(t, args...)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("err = %v, want invalid configuration", err)
	}
}

func TestRunConfigFileWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := "samples: 4096\nchunk_size: 64\nrepeat: 1\nwarmup: 0\nstrategies: [grouped]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "run", "--config", path, "--strategies", "serial", "--json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var run harness.Run
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if run.Chunks != 64 || run.Samples != 4096 {
		t.Errorf("plan = %d samples / %d chunks, want 4096 / 64", run.Samples, run.Chunks)
	}
	if len(run.Results) != 1 || run.Results[0].Strategy != "serial" {
		t.Errorf("flag override lost: %+v", run.Results)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--samples", "0")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("err = %v, want invalid configuration", err)
	}

	_, err = execute(t, "run", "--strategies", "rx")
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Errorf("err = %v, want unknown strategy", err)
	}
}

func TestStrategiesCommand(t *testing.T) {
	out, err := execute(t, "strategies")
	if err != nil {
		t.Fatalf("strategies failed: %v", err)
	}

	for _, want := range []string{"parallel-for", "task-per-chunk", "grouped", "range-local", "serial"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan", "--samples", "10", "--chunk-size", "4")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	if !strings.Contains(out, "chunks:     3") {
		t.Errorf("expected 3 chunks:\n%s", out)
	}
	if !strings.Contains(out, "last:       [8, 10) len 2") {
		t.Errorf("expected short final chunk:\n%s", out)
	}

	if _, err := execute(t, "plan", "--samples", "0"); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestLogLevelFlag(t *testing.T) {
	if _, err := execute(t, "--log-level", "loud", "strategies"); err == nil {
		t.Error("expected error for unknown log level")
	}
}
