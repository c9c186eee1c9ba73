package experiment

import (
	"github.com/rs/zerolog"

	"github.com/san-kum/boundembed/internal/config"
	"github.com/san-kum/boundembed/internal/metrics"
)

// FromConfig builds an experiment from the sweep, solver and dataset
// sections of cfg.
func FromConfig(cfg *config.Config, log zerolog.Logger) *Experiment {
	return New(Config{
		Dataset:  cfg.Dataset.Name,
		Points:   cfg.Sweep.Points,
		K:        cfg.Sweep.K,
		Embedder: cfg.Sweep.Embedder,
		Metrics:  cfg.Sweep.Metrics,
		Mode:     metrics.Mode(cfg.Sweep.Mode),
		Solver:   cfg.SolverSettings(log),
	}, cfg.Loader(), NewRegistry(), log)
}
