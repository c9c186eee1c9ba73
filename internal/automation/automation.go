// Package automation runs scripted batches of solves described in YAML.
package automation

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/boundembed/internal/config"
	"github.com/san-kum/boundembed/internal/experiment"
	"github.com/san-kum/boundembed/internal/logging"
	"github.com/san-kum/boundembed/internal/storage"
)

// Scenario defines a scripted sequence of solves.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single solve. Zero fields inherit the base config.
type ScenarioStep struct {
	Dataset    string  `yaml:"dataset"`
	Points     int     `yaml:"points"`
	K          int     `yaml:"k"`
	MaxIter    int     `yaml:"max_iter"`
	Tolerance  float64 `yaml:"tolerance"`
	CheckEvery int     `yaml:"check_every"`
	Seed       int64   `yaml:"seed"`
	SaveAs     string  `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step    ScenarioStep
	Outcome *experiment.Outcome
	RunID   string
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("automation: scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

func (s ScenarioStep) apply(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Dataset != "" {
		cfg.Dataset.Name = s.Dataset
	}
	if s.K > 0 {
		cfg.Sweep.K = s.K
	}
	if s.MaxIter > 0 {
		cfg.Solver.MaxIter = s.MaxIter
	}
	if s.Tolerance > 0 {
		cfg.Solver.Tolerance = s.Tolerance
	}
	if s.CheckEvery > 0 {
		cfg.Solver.CheckEvery = s.CheckEvery
	}
	if s.Seed != 0 {
		cfg.Solver.Seed = s.Seed
	}
	if s.Points < 2 {
		return nil, fmt.Errorf("automation: points must be >= 2, got %d", s.Points)
	}
	return &cfg, cfg.Validate()
}

// RunScenario executes all steps in order. Each result is saved to st when
// st is non-nil. The first failing step ends the scenario.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, st *storage.Store, log zerolog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	log = logging.Component(log, "automation").With().Str("scenario", scenario.Name).Logger()

	for i, step := range scenario.Steps {
		cfg, err := step.apply(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("dataset", cfg.Dataset.Name).Int("n_points", step.Points).Msg("running step")

		out, err := experiment.FromConfig(cfg, log).Run(ctx, step.Points)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Step: step, Outcome: out}
		if st != nil {
			solve := out.Output.Solve
			name := cfg.Dataset.Name
			if step.SaveAs != "" {
				name = step.SaveAs
			}
			res.RunID, err = st.SaveRun(storage.RunMetadata{
				Dataset:    name,
				Embedder:   cfg.Sweep.Embedder,
				Timestamp:  time.Now(),
				Seed:       cfg.Solver.Seed,
				Points:     out.Data.Len(),
				K:          cfg.Sweep.K,
				MaxIter:    cfg.Solver.MaxIter,
				Tolerance:  cfg.Solver.Tolerance,
				CheckEvery: cfg.Solver.CheckEvery,
				Status:     solve.Status.String(),
				Iterations: solve.Iterations,
				FinalError: solve.FinalError(),
				Metrics:    out.Metrics,
			}, solve.Errors, out.Output.Coords)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}

		results = append(results, res)
	}

	return results, nil
}
