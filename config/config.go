// Package config provides file and environment configuration for
// reducebench runs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/reducebench/harness"
	"github.com/weiihann/reducebench/partition"
	"github.com/weiihann/reducebench/scheduler"
	"github.com/weiihann/reducebench/workload"
)

// Config holds the settings of a benchmark run.
type Config struct {
	// Samples is the total domain size.
	Samples int `json:"samples" yaml:"samples"`

	// ChunkSize fixes the chunk size; 0 derives it from Chunks.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// Chunks is the target chunk count when ChunkSize is 0.
	Chunks int `json:"chunks" yaml:"chunks"`

	// Repeat is the number of timed passes per strategy.
	Repeat int `json:"repeat" yaml:"repeat"`

	// Warmup is the number of untimed passes per strategy.
	Warmup int `json:"warmup" yaml:"warmup"`

	// Integrand names the work item (arctan, circle).
	Integrand string `json:"integrand" yaml:"integrand"`

	// Strategies lists the strategies to run, in report order.
	Strategies []string `json:"strategies" yaml:"strategies"`

	// Scheduler tunes worker and group counts.
	Scheduler scheduler.Options `json:"scheduler" yaml:"scheduler"`

	// Tolerance is the relative agreement tolerance of the report.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// DefaultConfig returns the configuration of the reference benchmark:
// 65536 chunks of 128 samples. The chunk size is derived from Chunks so
// that setting only chunks in a file or the environment takes effect.
func DefaultConfig() *Config {
	strategies := make([]string, 0, len(scheduler.All()))
	for _, s := range scheduler.All() {
		strategies = append(strategies, s.String())
	}

	return &Config{
		Samples:    65536 * 128,
		ChunkSize:  0,
		Chunks:     65536,
		Repeat:     8,
		Warmup:     1,
		Integrand:  "arctan",
		Strategies: strategies,
		Scheduler: scheduler.Options{
			Groups:   scheduler.DefaultGroups,
			MinRange: 1,
		},
		Tolerance: 1e-9,
	}
}

// Validate checks the configuration before any scheduling begins.
func (c *Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive, got %d",
			partition.ErrInvalidConfiguration, c.Samples)
	}

	if c.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk_size must not be negative, got %d",
			partition.ErrInvalidConfiguration, c.ChunkSize)
	}

	if c.ChunkSize == 0 && c.Chunks <= 0 {
		return fmt.Errorf("%w: chunks must be positive when chunk_size is 0, got %d",
			partition.ErrInvalidConfiguration, c.Chunks)
	}

	if c.Repeat <= 0 {
		return fmt.Errorf("%w: repeat must be positive, got %d",
			partition.ErrInvalidConfiguration, c.Repeat)
	}

	if c.Warmup < 0 {
		return fmt.Errorf("%w: warmup must not be negative, got %d",
			partition.ErrInvalidConfiguration, c.Warmup)
	}

	if c.Scheduler.Workers < 0 || c.Scheduler.Groups < 0 || c.Scheduler.MinRange < 0 {
		return fmt.Errorf("%w: scheduler options must not be negative",
			partition.ErrInvalidConfiguration)
	}

	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative, got %g",
			partition.ErrInvalidConfiguration, c.Tolerance)
	}

	if _, err := workload.Lookup(c.Integrand); err != nil {
		return err
	}

	if _, err := c.ParseStrategies(); err != nil {
		return err
	}

	return nil
}

// ParseStrategies resolves the configured strategy names.
func (c *Config) ParseStrategies() ([]scheduler.Strategy, error) {
	if len(c.Strategies) == 0 {
		return nil, fmt.Errorf("%w: at least one strategy is required",
			partition.ErrInvalidConfiguration)
	}

	out := make([]scheduler.Strategy, 0, len(c.Strategies))
	for _, name := range c.Strategies {
		s, err := scheduler.ParseStrategy(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

// Harness converts the configuration into a harness.Config.
func (c *Config) Harness() (harness.Config, error) {
	strategies, err := c.ParseStrategies()
	if err != nil {
		return harness.Config{}, err
	}

	return harness.Config{
		Samples:    c.Samples,
		ChunkSize:  c.ChunkSize,
		Chunks:     c.Chunks,
		Repeat:     c.Repeat,
		Warmup:     c.Warmup,
		Integrand:  c.Integrand,
		Strategies: strategies,
		Options:    c.Scheduler,
	}, nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overrides cfg with REDUCEBENCH_* environment variables.
// Malformed numbers are reported rather than ignored.
func LoadFromEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"REDUCEBENCH_SAMPLES", &cfg.Samples},
		{"REDUCEBENCH_CHUNK_SIZE", &cfg.ChunkSize},
		{"REDUCEBENCH_CHUNKS", &cfg.Chunks},
		{"REDUCEBENCH_REPEAT", &cfg.Repeat},
		{"REDUCEBENCH_WARMUP", &cfg.Warmup},
		{"REDUCEBENCH_WORKERS", &cfg.Scheduler.Workers},
		{"REDUCEBENCH_GROUPS", &cfg.Scheduler.Groups},
		{"REDUCEBENCH_MIN_RANGE", &cfg.Scheduler.MinRange},
	}

	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.key, err)
		}

		*e.dst = n
	}

	if v := os.Getenv("REDUCEBENCH_INTEGRAND"); v != "" {
		cfg.Integrand = v
	}

	if v := os.Getenv("REDUCEBENCH_STRATEGIES"); v != "" {
		cfg.Strategies = strings.Split(v, ",")
	}

	if v := os.Getenv("REDUCEBENCH_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse REDUCEBENCH_TOLERANCE: %w", err)
		}

		cfg.Tolerance = f
	}

	return nil
}
