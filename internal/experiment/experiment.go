// Package experiment drives the embedder over datasets: single runs, point
// count sweeps with incremental persistence, and multi-seed trials.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/embed"
	"github.com/san-kum/boundembed/internal/logging"
	"github.com/san-kum/boundembed/internal/metrics"
	"github.com/san-kum/boundembed/internal/solver"
)

type Config struct {
	Dataset  string
	Points   []int
	K        int
	Embedder string
	Metrics  []string
	Mode     metrics.Mode
	Solver   solver.Config
}

// Outcome is one embedding of the first N records of a dataset.
type Outcome struct {
	Data    *dataset.Dataset
	Output  *embed.Output
	Metrics map[string]float64
	Elapsed time.Duration
}

// Step is one sweep size. Err is set when the size failed and was skipped.
type Step struct {
	Index      int
	Points     int
	Iterations int
	FinalError float64
	Status     solver.Status
	Metrics    map[string]float64
	Elapsed    time.Duration
	Err        error
}

// Observer receives sweep progress.
type Observer interface {
	StepStarted(index, points int)
	StepFinished(step Step)
}

// Recorder persists completed sweep steps.
type Recorder interface {
	Append(points, iterations int, finalError float64) error
}

type Experiment struct {
	cfg       Config
	loader    dataset.Loader
	registry  *Registry
	log       zerolog.Logger
	observers []Observer
}

func New(cfg Config, loader dataset.Loader, registry *Registry, log zerolog.Logger) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.Embedder == "" {
		cfg.Embedder = EmbedderPolar
	}
	return &Experiment{
		cfg:      cfg,
		loader:   loader,
		registry: registry,
		log:      logging.Component(log, "experiment"),
	}
}

func (e *Experiment) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *Experiment) input(ds *dataset.Dataset) embed.Input {
	return embed.Input{
		Data:  ds.Data,
		Score: ds.Score,
		K:     e.cfg.K,
		Dist:  ds.Dist,
		Corr:  ds.Corr,
	}
}

// Run embeds the first n records and evaluates the configured metrics.
func (e *Experiment) Run(ctx context.Context, n int) (*Outcome, error) {
	start := time.Now()

	ds, err := e.loader.Load(e.cfg.Dataset, n)
	if err != nil {
		return nil, err
	}

	emb, err := e.registry.GetEmbedder(e.cfg.Embedder, e.cfg.Solver)
	if err != nil {
		return nil, err
	}
	ms, err := e.registry.GetMetrics(e.cfg.Metrics)
	if err != nil {
		return nil, err
	}

	out, err := emb.Embed(ctx, e.input(ds))
	if err != nil {
		return nil, err
	}

	values, err := metrics.Evaluate(metrics.Input{
		Coords: out.Coords,
		Edges:  out.Edges,
		Dist:   ds.Dist,
		Corr:   ds.Corr,
		Mode:   e.cfg.Mode,
	}, ms...)
	if err != nil {
		return nil, err
	}

	return &Outcome{Data: ds, Output: out, Metrics: values, Elapsed: time.Since(start)}, nil
}

// Sweep runs every configured size in order. After each successful size the
// recorder, when non-nil, receives (N, iterations, final error). A size that
// fails is logged and skipped; cancellation and recorder failures end the
// sweep. The returned steps include skipped sizes.
func (e *Experiment) Sweep(ctx context.Context, rec Recorder) ([]Step, error) {
	if len(e.cfg.Points) == 0 {
		return nil, fmt.Errorf("experiment: no sweep sizes")
	}

	steps := make([]Step, 0, len(e.cfg.Points))
	for i, n := range e.cfg.Points {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		for _, o := range e.observers {
			o.StepStarted(i, n)
		}

		step := Step{Index: i, Points: n}
		out, err := e.Run(ctx, n)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, solver.ErrCanceled) {
				return steps, err
			}
			step.Err = err
			e.log.Warn().Err(err).Int("n_points", n).Msg("sweep size failed, skipping")
			steps = append(steps, step)
			e.notify(step)
			continue
		}

		res := out.Output.Solve
		step.Iterations = res.Iterations
		step.FinalError = res.FinalError()
		step.Status = res.Status
		step.Metrics = out.Metrics
		step.Elapsed = out.Elapsed

		if rec != nil {
			if err := rec.Append(n, step.Iterations, step.FinalError); err != nil {
				return steps, fmt.Errorf("experiment: persist n=%d: %w", n, err)
			}
		}

		e.log.Info().
			Int("n_points", n).
			Int("iterations", step.Iterations).
			Float64("final_error", step.FinalError).
			Str("status", step.Status.String()).
			Dur("elapsed", step.Elapsed).
			Msg("sweep step")

		steps = append(steps, step)
		e.notify(step)
	}

	return steps, nil
}

func (e *Experiment) notify(step Step) {
	for _, o := range e.observers {
		o.StepFinished(step)
	}
}

// TrialSummary aggregates an ensemble of solves on one problem.
type TrialSummary struct {
	Points      int
	Results     []*solver.Result
	Median      []float64
	FinalErrors []float64
	Converged   int
}

// Trials solves the problem for the first n records under runs consecutive
// seeds starting at the configured seed.
func (e *Experiment) Trials(ctx context.Context, n, runs int) (*TrialSummary, error) {
	ds, err := e.loader.Load(e.cfg.Dataset, n)
	if err != nil {
		return nil, err
	}

	prob, _, err := embed.Problem(e.input(ds))
	if err != nil {
		return nil, err
	}

	results, err := solver.NewEnsemble(e.cfg.Solver, runs, e.cfg.Solver.Seed).Run(ctx, prob)
	if err != nil {
		return nil, err
	}

	sum := &TrialSummary{
		Points:      ds.Len(),
		Results:     results,
		Median:      solver.MedianTrace(results),
		FinalErrors: make([]float64, len(results)),
	}
	for i, r := range results {
		sum.FinalErrors[i] = r.FinalError()
		if r.Converged() {
			sum.Converged++
		}
	}

	e.log.Info().
		Int("n_points", sum.Points).
		Int("runs", runs).
		Int("converged", sum.Converged).
		Msg("trials complete")

	return sum, nil
}
