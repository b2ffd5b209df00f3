// Package main provides the CLI entry point for reducebench, a benchmark
// of chunked parallel reduction strategies.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/weiihann/reducebench/config"
	"github.com/weiihann/reducebench/harness"
	"github.com/weiihann/reducebench/metrics"
	"github.com/weiihann/reducebench/report"
	"github.com/weiihann/reducebench/scheduler"
	"github.com/weiihann/reducebench/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar, out io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "reducebench",
		Short: "Benchmark chunked parallel reduction strategies",
		Long: `Reducebench estimates an integral by summing many independent chunk
contributions under several concurrency strategies, and compares their
elapsed time, throughput, and accumulator contention.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return level.UnmarshalText([]byte(logLevel))
		},
	}

	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newStrategiesCmd())
	root.AddCommand(newPlanCmd())

	return root
}

type runOptions struct {
	configPath  string
	strategies  []string
	outputJSON  bool
	baseline    string
	metricsFile string
	failChunk   int
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var opts runOptions

	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reduction benchmark across strategies",
		Long: `Partition the sample domain into chunks and reduce it under each
selected strategy, timing repeated passes and printing a comparison table.

Settings are resolved in order: defaults, --config file, REDUCEBENCH_*
environment variables, then explicitly set flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveConfig(cmd.Flags(), cfg, opts)
			if err != nil {
				return err
			}

			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), resolved, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to a YAML or JSON config file")
	flags.IntVar(&cfg.Samples, "samples", cfg.Samples,
		"Total number of integration samples")
	flags.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize,
		"Samples per chunk (0 = derive from --chunks)")
	flags.IntVar(&cfg.Chunks, "chunks", cfg.Chunks,
		"Target chunk count when --chunk-size is 0")
	flags.IntVar(&cfg.Repeat, "repeat", cfg.Repeat,
		"Timed passes per strategy")
	flags.IntVar(&cfg.Warmup, "warmup", cfg.Warmup,
		"Untimed warmup passes per strategy")
	flags.StringVar(&cfg.Integrand, "integrand", cfg.Integrand,
		"Integrand: "+strings.Join(workload.Names(), ", "))
	flags.StringSliceVar(&opts.strategies, "strategies", cfg.Strategies,
		"Strategies to run (e.g. parallel-for,range-local,serial)")
	flags.IntVar(&cfg.Scheduler.Workers, "workers", cfg.Scheduler.Workers,
		"Worker pool size (0 = GOMAXPROCS)")
	flags.IntVar(&cfg.Scheduler.Groups, "groups", cfg.Scheduler.Groups,
		"Concurrent groups of the grouped strategy")
	flags.IntVar(&cfg.Scheduler.MinRange, "min-range", cfg.Scheduler.MinRange,
		"Smallest range handed out by range-local")
	flags.Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance,
		"Relative tolerance for the value agreement check")
	flags.BoolVar(&opts.outputJSON, "json", false,
		"Output results as JSON instead of table")
	flags.StringVar(&opts.baseline, "baseline", "",
		"Path to a previous JSON result to compare against")
	flags.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this textfile")
	flags.IntVar(&opts.failChunk, "fail-chunk", -1,
		"Inject an evaluation error at this chunk index (-1 = off)")

	return cmd
}

// resolveConfig layers the config file and environment under the flags
// the user set explicitly.
func resolveConfig(
	flags *pflag.FlagSet,
	fromFlags *config.Config,
	opts runOptions,
) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if opts.configPath != "" {
		loaded, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	overrides := map[string]func(){
		"samples":    func() { cfg.Samples = fromFlags.Samples },
		"chunk-size": func() { cfg.ChunkSize = fromFlags.ChunkSize },
		"chunks":     func() { cfg.Chunks = fromFlags.Chunks },
		"repeat":     func() { cfg.Repeat = fromFlags.Repeat },
		"warmup":     func() { cfg.Warmup = fromFlags.Warmup },
		"integrand":  func() { cfg.Integrand = fromFlags.Integrand },
		"strategies": func() { cfg.Strategies = opts.strategies },
		"workers":    func() { cfg.Scheduler.Workers = fromFlags.Scheduler.Workers },
		"groups":     func() { cfg.Scheduler.Groups = fromFlags.Scheduler.Groups },
		"min-range":  func() { cfg.Scheduler.MinRange = fromFlags.Scheduler.MinRange },
		"tolerance":  func() { cfg.Tolerance = fromFlags.Tolerance },
	}

	for name, apply := range overrides {
		if flags.Changed(name) {
			apply()
		}
	}

	// --chunks alone implies a derived chunk size.
	if flags.Changed("chunks") && !flags.Changed("chunk-size") {
		cfg.ChunkSize = 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	cfg *config.Config,
	opts runOptions,
) error {
	hc, err := cfg.Harness()
	if err != nil {
		return err
	}

	if opts.failChunk >= 0 {
		hc.InjectFailure = true
		hc.FailChunk = opts.failChunk
	}

	// Load the baseline first so a bad path fails before the benchmark.
	var baseline *harness.Run
	if opts.baseline != "" {
		baseline, err = loadBaseline(opts.baseline)
		if err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	h := harness.New(logger, metrics.New(reg))

	run, runErr := h.Run(ctx, hc)

	// Failed passes are recorded too, so write metrics either way.
	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}

		logger.InfoContext(ctx, "metrics written",
			slog.String("path", opts.metricsFile),
		)
	}

	if runErr != nil {
		return runErr
	}

	if opts.outputJSON {
		if err := report.GenerateJSON(out, run); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(out, run, cfg.Tolerance); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if baseline != nil {
		fmt.Fprintln(out)

		if err := report.Compare(out, baseline, run); err != nil {
			return fmt.Errorf("generate comparison: %w", err)
		}
	}

	return nil
}

func loadBaseline(path string) (*harness.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baseline %s: %w", path, err)
	}
	defer f.Close()

	run, err := harness.LoadRun(f)
	if err != nil {
		return nil, fmt.Errorf("load baseline %s: %w", path, err)
	}

	return run, nil
}

func newStrategiesCmd() *cobra.Command {
	descriptions := map[scheduler.Strategy]string{
		scheduler.ParallelFor:  "fixed worker pool, one commit per chunk",
		scheduler.TaskPerChunk: "one goroutine per chunk, unbounded",
		scheduler.Grouped:      "bounded groups, sequential hops within a group",
		scheduler.RangeLocal:   "dynamic ranges, one commit per worker",
		scheduler.Serial:       "single goroutine baseline",
	}

	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available strategies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, s := range scheduler.Known() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", s, descriptions[s])
			}
		},
	}
}

func newPlanCmd() *cobra.Command {
	var (
		samples   int
		chunkSize int
		chunks    int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the chunk layout for a domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := harness.Config{
				Samples:   samples,
				ChunkSize: chunkSize,
				Chunks:    chunks,
			}.Plan()
			if err != nil {
				return err
			}

			first := plan.Chunk(0)
			last := plan.Chunk(plan.Count() - 1)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "samples:    %d\n", plan.Total())
			fmt.Fprintf(w, "chunk size: %d\n", plan.Size())
			fmt.Fprintf(w, "chunks:     %d\n", plan.Count())
			fmt.Fprintf(w, "first:      [%d, %d)\n", first.Start, first.End)
			fmt.Fprintf(w, "last:       [%d, %d) len %d\n", last.Start, last.End, last.Len())

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&samples, "samples", 65536*128, "Total number of samples")
	flags.IntVar(&chunkSize, "chunk-size", 0, "Samples per chunk (0 = derive from --chunks)")
	flags.IntVar(&chunks, "chunks", 65536, "Target chunk count")

	return cmd
}
