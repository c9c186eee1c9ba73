package solver

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/logging"
)

// Solve reconstructs a node-value vector whose measurements lie inside their
// bounds. Reaching MaxIter without meeting the tolerance is not an error; the
// result then carries StatusMaxIter. On error no result is returned.
func Solve(ctx context.Context, p Problem, cfg Config) (*Result, error) {
	if err := validate(p, cfg); err != nil {
		return nil, err
	}
	_, n := p.I.Dims()
	log := logging.Component(cfg.Logger, "solver")

	g := gauge{anchor: floats.MinIdx(p.Score), n: n}
	sys := newSystem(p.I, g)

	proj, err := newProjector(sys, cfg.MaxCondition)
	if err != nil {
		return nil, err
	}

	sampler := cfg.Sampler
	if sampler == nil {
		sampler = NewCategoricalSampler(newSource(cfg.Seed, nodeStream))
	}
	seq, err := sampler.Sample(sys.colNorm2, cfg.MaxIter)
	if err != nil {
		return nil, invalid("Sampler", "%v", err)
	}
	rng := rand.New(newSource(cfg.Seed, rowStream))

	log.Debug().
		Int("rows", sys.m).
		Int("nodes", n).
		Int("anchor", g.anchor).
		Int("max_iter", cfg.MaxIter).
		Float64("tolerance", cfg.Tolerance).
		Msg("solve started")
	start := time.Now()

	x := make([]float64, sys.k)
	meas := make([]float64, sys.m)
	target := make([]float64, sys.m)
	resid := make([]float64, sys.m)
	grad := make([]float64, sys.k)
	targetVec := mat.NewVecDense(sys.m, target)
	scale := 1 / math.Sqrt(float64(n))

	res := &Result{
		Errors: make([]float64, 0, min(cfg.MaxIter, 1<<16)),
		Anchor: g.anchor,
		Status: StatusMaxIter,
	}

	for it := 0; it < cfg.MaxIter; it++ {
		sys.mulVec(meas, x)
		Clamp(target, meas, p.L, p.U)
		floats.SubTo(resid, meas, target)
		sys.mulTransVec(grad, resid)
		e := scale * floats.Norm(grad, 2)
		res.Errors = append(res.Errors, e)

		if cfg.Observer != nil {
			cfg.Observer.OnIteration(it, e)
		}

		if it%cfg.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				log.Warn().Int("iteration", it).Err(err).Msg("solve canceled")
				return nil, &CancelError{Iteration: it, Cause: err}
			}
			log.Debug().Int("iteration", it).Float64("error", e).Msg("check")
			if e < cfg.Tolerance {
				res.Status = StatusConverged
				break
			}
		}

		incident := sys.cols[seq[it]]
		if len(incident) == 0 {
			continue
		}
		row := incident[rng.IntN(len(incident))]

		z := proj.component(row, targetVec)
		rowVal := sys.dot(sys.rows[row], x)
		step := (rowVal - clamp(rowVal, p.L[row], p.U[row]) + z) / sys.rowNorm2[row]
		for _, en := range sys.rows[row] {
			x[en.col] -= step * en.val
		}
	}

	res.X = g.expand(x)
	res.Iterations = len(res.Errors)

	log.Debug().
		Stringer("status", res.Status).
		Int("iterations", res.Iterations).
		Float64("final_error", res.FinalError()).
		Dur("elapsed", time.Since(start)).
		Msg("solve finished")

	return res, nil
}

func validate(p Problem, cfg Config) error {
	if p.I == nil {
		return invalid("I", "is nil")
	}
	m, n := p.I.Dims()
	if m < 1 || n < 1 {
		return invalid("I", "must be at least 1x1, got %dx%d", m, n)
	}
	if len(p.L) != m {
		return invalid("L", "has length %d, want %d", len(p.L), m)
	}
	if len(p.U) != m {
		return invalid("U", "has length %d, want %d", len(p.U), m)
	}
	if len(p.Score) != n {
		return invalid("Score", "has length %d, want %d", len(p.Score), n)
	}
	if cfg.MaxIter < 1 {
		return invalid("MaxIter", "must be positive, got %d", cfg.MaxIter)
	}
	if !(cfg.Tolerance > 0) {
		return invalid("Tolerance", "must be positive, got %g", cfg.Tolerance)
	}
	if cfg.CheckEvery < 1 {
		return invalid("CheckEvery", "must be positive, got %d", cfg.CheckEvery)
	}
	if !(cfg.MaxCondition > 0) {
		return invalid("MaxCondition", "must be positive, got %g", cfg.MaxCondition)
	}
	for i, v := range p.Score {
		if math.IsNaN(v) {
			return invalid("Score", "has NaN at %d", i)
		}
	}
	return nil
}
