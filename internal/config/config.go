package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/metrics"
	"github.com/san-kum/boundembed/internal/solver"
)

const (
	DefaultK         = 10
	DefaultOutputDir = "runs"
	DefaultDataDir   = "data"
	DefaultEmbedder  = "polar"
	DefaultLogLevel  = "info"
)

type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LoggingConfig `yaml:"logging"`
}

type SolverConfig struct {
	MaxIter      int     `yaml:"max_iter"`
	Tolerance    float64 `yaml:"tolerance"`
	CheckEvery   int     `yaml:"check_every"`
	MaxCondition float64 `yaml:"max_condition"`
	Seed         int64   `yaml:"seed"`
}

type SweepConfig struct {
	Points    []int    `yaml:"points"`
	K         int      `yaml:"k"`
	Embedder  string   `yaml:"embedder"`
	Metrics   []string `yaml:"metrics"`
	Mode      string   `yaml:"mode"`
	Trials    int      `yaml:"trials"`
	OutputDir string   `yaml:"output_dir"`
}

type DatasetConfig struct {
	Name      string                  `yaml:"name"`
	Dir       string                  `yaml:"dir"`
	Synthetic dataset.SyntheticConfig `yaml:"synthetic"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			MaxIter:      solver.DefaultMaxIter,
			Tolerance:    solver.DefaultTolerance,
			CheckEvery:   solver.DefaultCheckEvery,
			MaxCondition: solver.DefaultMaxCondition,
		},
		Sweep: SweepConfig{
			Points:    []int{50, 100, 150, 200},
			K:         DefaultK,
			Embedder:  DefaultEmbedder,
			Metrics:   []string{"violation_rate", "max_excursion", "stress"},
			Mode:      string(metrics.ModeDistance),
			Trials:    5,
			OutputDir: DefaultOutputDir,
		},
		Dataset: DatasetConfig{
			Name:      "synthetic",
			Dir:       DefaultDataDir,
			Synthetic: dataset.DefaultSyntheticConfig(),
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Merge(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge reads a YAML file over the current values of c.
func (c *Config) Merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	s := c.Solver
	switch {
	case s.MaxIter < 1:
		return fmt.Errorf("config: solver.max_iter must be >= 1, got %d", s.MaxIter)
	case s.Tolerance <= 0:
		return fmt.Errorf("config: solver.tolerance must be > 0, got %g", s.Tolerance)
	case s.CheckEvery < 1:
		return fmt.Errorf("config: solver.check_every must be >= 1, got %d", s.CheckEvery)
	case s.MaxCondition <= 1:
		return fmt.Errorf("config: solver.max_condition must be > 1, got %g", s.MaxCondition)
	}

	if c.Sweep.K < 1 {
		return fmt.Errorf("config: sweep.k must be >= 1, got %d", c.Sweep.K)
	}
	if c.Sweep.Trials < 1 {
		return fmt.Errorf("config: sweep.trials must be >= 1, got %d", c.Sweep.Trials)
	}
	for _, n := range c.Sweep.Points {
		if n < 2 {
			return fmt.Errorf("config: sweep.points entries must be >= 2, got %d", n)
		}
	}
	switch metrics.Mode(c.Sweep.Mode) {
	case "", metrics.ModeDistance, metrics.ModeCorrelation:
	default:
		return fmt.Errorf("config: sweep.mode must be %s or %s, got %q", metrics.ModeDistance, metrics.ModeCorrelation, c.Sweep.Mode)
	}
	if c.Dataset.Name == "" {
		return fmt.Errorf("config: dataset.name is empty")
	}
	return nil
}

// SolverSettings converts the solver section into a solver configuration.
func (c *Config) SolverSettings(log zerolog.Logger) solver.Config {
	cfg := solver.DefaultConfig()
	cfg.MaxIter = c.Solver.MaxIter
	cfg.Tolerance = c.Solver.Tolerance
	cfg.CheckEvery = c.Solver.CheckEvery
	cfg.MaxCondition = c.Solver.MaxCondition
	cfg.Seed = c.Solver.Seed
	cfg.Logger = log
	return cfg
}

// Loader reads the dataset from dataset.dir when it has been written there.
// A name matching the synthetic section that is not on disk is generated in
// memory instead.
func (c *Config) Loader() dataset.Loader {
	if _, err := os.Stat(filepath.Join(c.Dataset.Dir, c.Dataset.Name)); err == nil {
		return dataset.NewDirLoader(c.Dataset.Dir)
	}
	syn := c.Dataset.Synthetic
	if syn.Name == "" {
		syn.Name = "synthetic"
	}
	if c.Dataset.Name == syn.Name {
		return dataset.NewSyntheticLoader(syn)
	}
	return dataset.NewDirLoader(c.Dataset.Dir)
}
