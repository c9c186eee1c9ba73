// Package embed places score-ranked records in the plane from their
// correlation bounds.
package embed

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/bounds"
	"github.com/san-kum/boundembed/internal/knn"
	"github.com/san-kum/boundembed/internal/solver"
)

// Input carries one embedding request. Distance and correlation bounds are
// n × n and aligned with the rows of Data.
type Input struct {
	Data      *mat.Dense
	Score     []float64
	K         int
	MaxIter   int
	Tolerance float64
	Dist      bounds.Pair
	Corr      bounds.Pair
}

// Output is the embedding of one Input.
type Output struct {
	// Coords is n × 2.
	Coords *mat.Dense
	Errors []float64
	// AvgDist is the mean of the distance bounds the data graph was built on.
	AvgDist *mat.Dense
	Edges   []knn.Edge
	Solve   *solver.Result
}

type Embedder interface {
	Embed(ctx context.Context, in Input) (*Output, error)
}

// SolveFunc recovers node values for one problem. [solver.Solve] and
// [solver.Descend] both qualify.
type SolveFunc func(ctx context.Context, p solver.Problem, cfg solver.Config) (*solver.Result, error)

// Polar recovers one angle per record from angle bounds on the edges of the
// kNN graph and places record i at |data_i|·(cos θ_i, sin θ_i).
type Polar struct {
	Solver solver.Config
	// Solve defaults to the randomized dual-primal solver.
	Solve SolveFunc
}

func NewPolar(cfg solver.Config) *Polar {
	return &Polar{Solver: cfg, Solve: solver.Solve}
}

// NewPolarDescent is a Polar embedder driven by full-batch gradient descent.
func NewPolarDescent(cfg solver.Config) *Polar {
	return &Polar{Solver: cfg, Solve: solver.Descend}
}

// Graph is the data graph an embedding is solved on.
type Graph struct {
	AvgDist *mat.Dense
	Edges   []knn.Edge
}

// Problem builds the angle-recovery problem for in: the score-ordered
// incidence matrix of the kNN graph and per-edge angle bounds.
func Problem(in Input) (solver.Problem, *Graph, error) {
	if in.Data == nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: missing data matrix")
	}
	n, _ := in.Data.Dims()
	if len(in.Score) != n {
		return solver.Problem{}, nil, fmt.Errorf("embed: %d scores for %d records", len(in.Score), n)
	}
	if in.Dist.Lower == nil || in.Dist.Upper == nil || in.Corr.Lower == nil || in.Corr.Upper == nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: missing bound matrices")
	}

	avg := knn.Mean(in.Dist.Lower, in.Dist.Upper)
	g, err := knn.Build(avg, in.K)
	if err != nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: %w", err)
	}
	edges, err := knn.Edges(g, in.Score)
	if err != nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: %w", err)
	}
	inc, err := knn.Incidence(edges, n)
	if err != nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: %w", err)
	}

	l, u, err := bounds.Edge(edges, bounds.Angles(in.Corr))
	if err != nil {
		return solver.Problem{}, nil, fmt.Errorf("embed: %w", err)
	}

	return solver.Problem{I: inc, L: l, U: u, Score: in.Score}, &Graph{AvgDist: avg, Edges: edges}, nil
}

func (p *Polar) Embed(ctx context.Context, in Input) (*Output, error) {
	prob, g, err := Problem(in)
	if err != nil {
		return nil, err
	}

	cfg := p.Solver
	if in.MaxIter > 0 {
		cfg.MaxIter = in.MaxIter
	}
	if in.Tolerance > 0 {
		cfg.Tolerance = in.Tolerance
	}

	solve := p.Solve
	if solve == nil {
		solve = solver.Solve
	}
	res, err := solve(ctx, prob, cfg)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return &Output{
		Coords:  Polarize(bounds.Norms(in.Data), res.X),
		Errors:  res.Errors,
		AvgDist: g.AvgDist,
		Edges:   g.Edges,
		Solve:   res,
	}, nil
}

// Polarize places point i at radius[i]·(cos θ[i], sin θ[i]).
func Polarize(radius, theta []float64) *mat.Dense {
	out := mat.NewDense(len(theta), 2, nil)
	for i, t := range theta {
		sin, cos := math.Sincos(t)
		out.Set(i, 0, radius[i]*cos)
		out.Set(i, 1, radius[i]*sin)
	}
	return out
}
