// Package optim searches experiment settings for the lowest objective.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/boundembed/internal/experiment"
)

// Objectives reported by every run besides the configured metrics.
const (
	ObjectiveFinalError = "final_error"
	ObjectiveIterations = "iterations"
)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs the experiment built for every grid point on the first n
// records and returns the parameters with the lowest objective, along with
// every trial in grid order. Failed grid points are kept with Err set.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	n int,
	objective string,
) (map[string]float64, float64, []Trial, error) {

	best := math.Inf(1)
	var bestParams map[string]float64
	trials := make([]Trial, 0, g.Size())

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, n, objective, &best, &bestParams, &trials); err != nil {
		return nil, 0, trials, err
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("optim: no grid point produced %s", objective)
	}

	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	n int,
	objective string,
	best *float64,
	bestParams *map[string]float64,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		trial := Trial{Params: current, Value: math.NaN()}
		trial.Value, trial.Err = evaluate(ctx, buildExperiment, current, n, objective)
		*trials = append(*trials, trial)
		if trial.Err != nil {
			return nil
		}

		if trial.Value < *best {
			*best = trial.Value
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, n, objective, best, bestParams, trials); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(
	ctx context.Context,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	params map[string]float64,
	n int,
	objective string,
) (float64, error) {
	exp, err := buildExperiment(params)
	if err != nil {
		return math.NaN(), err
	}

	out, err := exp.Run(ctx, n)
	if err != nil {
		return math.NaN(), err
	}

	switch objective {
	case ObjectiveFinalError:
		return out.Output.Solve.FinalError(), nil
	case ObjectiveIterations:
		return float64(out.Output.Solve.Iterations), nil
	}
	val, ok := out.Metrics[objective]
	if !ok {
		return math.NaN(), fmt.Errorf("optim: objective %q not reported", objective)
	}
	return val, nil
}

// Describe renders params as "a=1 b=2" in name order.
func Describe(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	s := ""
	for i, name := range names {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", name, params[name])
	}
	return s
}
