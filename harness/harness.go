package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/reducebench/metrics"
	"github.com/weiihann/reducebench/partition"
	"github.com/weiihann/reducebench/profile"
	"github.com/weiihann/reducebench/scheduler"
	"github.com/weiihann/reducebench/workload"
)

// Config holds parameters for one harness invocation.
type Config struct {
	// Samples is the domain size N.
	Samples int

	// ChunkSize fixes the chunk size. When zero, the size is derived
	// from Chunks.
	ChunkSize int

	// Chunks is the target chunk count used when ChunkSize is zero.
	Chunks int

	Repeat     int
	Warmup     int
	Integrand  string
	Strategies []scheduler.Strategy
	Options    scheduler.Options

	// InjectFailure makes chunk FailChunk return an evaluation error.
	InjectFailure bool
	FailChunk     int
}

// Plan builds the chunk plan described by the config.
func (c Config) Plan() (*partition.Plan, error) {
	if c.ChunkSize > 0 {
		return partition.New(c.Samples, c.ChunkSize)
	}

	return partition.ByCount(c.Samples, c.Chunks)
}

// Harness runs every configured strategy through a profile.Runner.
type Harness struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// New creates a Harness.
func New(logger *slog.Logger, m *metrics.Metrics) *Harness {
	return &Harness{
		Logger:  logger,
		Metrics: m,
	}
}

// Run executes the strategies in order and returns their statistics.
// Configuration errors are reported before any strategy runs.
func (h *Harness) Run(ctx context.Context, cfg Config) (*Run, error) {
	if len(cfg.Strategies) == 0 {
		return nil, fmt.Errorf(
			"%w: at least one strategy is required",
			partition.ErrInvalidConfiguration,
		)
	}

	if cfg.Repeat <= 0 || cfg.Warmup < 0 {
		return nil, fmt.Errorf(
			"%w: repeat must be positive and warmup non-negative (repeat=%d warmup=%d)",
			partition.ErrInvalidConfiguration, cfg.Repeat, cfg.Warmup,
		)
	}

	plan, err := cfg.Plan()
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	in, err := workload.Lookup(cfg.Integrand)
	if err != nil {
		return nil, err
	}

	if cfg.InjectFailure && (cfg.FailChunk < 0 || cfg.FailChunk >= plan.Count()) {
		return nil, fmt.Errorf(
			"%w: fail chunk %d outside [0, %d)",
			partition.ErrInvalidConfiguration, cfg.FailChunk, plan.Count(),
		)
	}

	item := in.Item(plan.Total())

	if cfg.InjectFailure {
		item = workload.FailAt(item, cfg.FailChunk, nil)
	}

	schedulers := make([]*scheduler.Scheduler, 0, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		sched, err := scheduler.New(s, cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("scheduler %s: %w", s, err)
		}

		schedulers = append(schedulers, sched)
	}

	reference, err := workload.Reference(in.Item(plan.Total()), plan)
	if err != nil {
		return nil, fmt.Errorf("serial reference: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Integrand: in.Name,
		Target:    in.Target,
		Reference: reference,
		Samples:   plan.Total(),
		ChunkSize: plan.Size(),
		Chunks:    plan.Count(),
		Repeat:    cfg.Repeat,
		Results:   make([]Result, 0, len(schedulers)),
	}

	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	logger = logger.With(slog.String("run_id", run.ID))

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("integrand", in.Name),
		slog.Int("samples", plan.Total()),
		slog.Int("chunks", plan.Count()),
		slog.Int("chunk_size", plan.Size()),
		slog.Int("repeat", cfg.Repeat),
		slog.Int("warmup", cfg.Warmup),
	)

	for _, sched := range schedulers {
		name := sched.Strategy().String()

		runner := &profile.Runner{
			Scheduler: sched,
			Plan:      plan,
			Item:      item,
			Warmup:    cfg.Warmup,
			Logger:    logger,
			Metrics:   h.Metrics,
		}

		reports, err := runner.Run(ctx, cfg.Repeat)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}

		res := Summarize(name, plan.Count(), reports)

		logger.InfoContext(ctx, "strategy finished",
			slog.String("strategy", name),
			slog.Duration("avg_elapsed", res.AvgElapsed()),
			slog.Float64("value", res.LastValue),
			slog.Float64("chunks_per_second", res.ChunksPerSecond),
		)

		run.Results = append(run.Results, res)
	}

	logger.InfoContext(ctx, "benchmark complete")

	return run, nil
}
