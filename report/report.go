// Package report formats benchmark results into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/weiihann/reducebench/harness"
)

// DefaultTolerance is the relative tolerance used to decide whether
// strategies agree on the reduced value.
const DefaultTolerance = 1e-9

// Generate writes a markdown comparison table for the given run.
func Generate(w io.Writer, run *harness.Run, tolerance float64) error {
	if run == nil || len(run.Results) == 0 {
		return fmt.Errorf("no results to report")
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	results := run.Results
	fastestNs := findFastest(results)

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Integrand: %s, samples %d, %d chunks of %d, %d passes\n",
		run.Integrand, run.Samples, run.Chunks, run.ChunkSize, run.Repeat)
	fmt.Fprintln(w)

	// Agreement check. Runs without a serial reference fall back to the
	// first row.
	base, baseName := run.Reference, "serial reference"
	if base == 0 {
		base, baseName = results[0].LastValue, "first row ("+results[0].Strategy+")"
	}

	if valuesAgree(results, base, tolerance) {
		fmt.Fprintf(w, "Values: **all agree** with %s within %.0e\n", baseName, tolerance)
	} else {
		fmt.Fprintf(w, "Values: **MISMATCH** against %s %.17g\n", baseName, base)

		for _, r := range results {
			fmt.Fprintf(w, "  - %s: %.17g\n", r.Strategy, r.LastValue)
		}
	}

	fmt.Fprintln(w)

	// Table header.
	fmt.Fprintln(w, "| Strategy | Avg Elapsed | Value | Abs Error "+
		"| Per Chunk | Chunks/s | Commits | Alloc/Pass | Speedup |")
	fmt.Fprintln(w, "|----------|-------------|-------|-----------"+
		"|-----------|----------|---------|------------|---------|")

	for _, r := range results {
		speedup := 1.0
		if fastestNs > 0 && r.AvgElapsedNs > 0 {
			speedup = float64(r.AvgElapsedNs) / float64(fastestNs)
		}

		fmt.Fprintf(w, "| %s | %s | %.15f | %s | %s | %s | %d | %s | %.2fx |\n",
			r.Strategy,
			formatDuration(r.AvgElapsed()),
			r.LastValue,
			formatError(r.LastValue, run.Target),
			formatPerChunk(r.PerChunkNs),
			formatRate(r.ChunksPerSecond),
			r.Commits,
			formatBytes(r.AllocBytes),
			speedup,
		)
	}

	return nil
}

// Compare writes a table of current timings relative to a baseline run.
// Strategies missing from the baseline are listed without a ratio.
func Compare(w io.Writer, baseline, current *harness.Run) error {
	if baseline == nil || current == nil || len(current.Results) == 0 {
		return fmt.Errorf("nothing to compare")
	}

	base := make(map[string]harness.Result, len(baseline.Results))
	for _, r := range baseline.Results {
		base[r.Strategy] = r
	}

	fmt.Fprintf(w, "## Compared to %s\n", baseline.ID)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Strategy | Baseline | Current | Ratio |")
	fmt.Fprintln(w, "|----------|----------|---------|-------|")

	for _, r := range current.Results {
		b, ok := base[r.Strategy]
		if !ok || b.AvgElapsedNs <= 0 {
			fmt.Fprintf(w, "| %s | - | %s | - |\n",
				r.Strategy, formatDuration(r.AvgElapsed()))

			continue
		}

		fmt.Fprintf(w, "| %s | %s | %s | %.2fx |\n",
			r.Strategy,
			formatDuration(b.AvgElapsed()),
			formatDuration(r.AvgElapsed()),
			float64(r.AvgElapsedNs)/float64(b.AvgElapsedNs),
		)
	}

	return nil
}

// GenerateJSON writes the run as JSON to w.
func GenerateJSON(w io.Writer, run *harness.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(run)
}

func valuesAgree(results []harness.Result, base, tolerance float64) bool {
	for _, r := range results {
		scale := math.Max(math.Abs(base), math.Abs(r.LastValue))
		if math.Abs(r.LastValue-base) > tolerance*scale {
			return false
		}
	}

	return true
}

func findFastest(results []harness.Result) int64 {
	fastest := int64(math.MaxInt64)
	for _, r := range results {
		if r.AvgElapsedNs > 0 && r.AvgElapsedNs < fastest {
			fastest = r.AvgElapsedNs
		}
	}

	if fastest == math.MaxInt64 {
		return 0
	}

	return fastest
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatPerChunk(ns float64) string {
	if ns <= 0 {
		return "-"
	}

	if ns < 1000 {
		return fmt.Sprintf("%.0fns", ns)
	}

	return fmt.Sprintf("%.2fµs", ns/1000)
}

func formatRate(perSecond float64) string {
	switch {
	case perSecond <= 0:
		return "-"
	case perSecond >= 1e6:
		return fmt.Sprintf("%.2fM", perSecond/1e6)
	case perSecond >= 1e3:
		return fmt.Sprintf("%.1fK", perSecond/1e3)
	default:
		return fmt.Sprintf("%.0f", perSecond)
	}
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}

func formatError(value, target float64) string {
	if target == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2e", math.Abs(value-target))
}
